package models

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// AsicExtract is one company register snapshot. Uid is the upstream id, or
// "idx-N" (position in the payload) when the upstream sends none.
type AsicExtract struct {
	ID               uint              `gorm:"primary_key" json:"id"`
	ReportId         uint              `gorm:"not null;uniqueIndex:uniq_asic_extract_uid,priority:1" json:"report_id"`
	Uid              string            `gorm:"size:128;not null;uniqueIndex:uniq_asic_extract_uid,priority:2" json:"uid"`
	Type             *string           `gorm:"size:50" json:"type"`
	ExtractDate      *time.Time        `json:"extract_date"`
	CompanyName      *string           `gorm:"size:255" json:"company_name"`
	Acn              *string           `gorm:"size:20" json:"acn"`
	Abn              *string           `gorm:"size:20" json:"abn"`
	CompanyType      *string           `gorm:"size:100" json:"company_type"`
	CompanyClass     *string           `gorm:"size:100" json:"company_class"`
	CompanySubclass  *string           `gorm:"size:100" json:"company_subclass"`
	Status           *string           `gorm:"size:50" json:"status"`
	RegistrationDate *time.Time        `json:"registration_date"`
	ReviewDate       *time.Time        `json:"review_date"`
	RegisteredIn     *string           `gorm:"size:50" json:"registered_in"`
	Addresses        []*Address        `gorm:"foreignKey:AsicExtractId;constraint:OnDelete:CASCADE" json:"addresses,omitempty"`
	Directors        []*Director       `gorm:"foreignKey:AsicExtractId;constraint:OnDelete:CASCADE" json:"directors,omitempty"`
	Shareholders     []*Shareholder    `gorm:"foreignKey:AsicExtractId;constraint:OnDelete:CASCADE" json:"shareholders,omitempty"`
	ShareStructures  []*ShareStructure `gorm:"foreignKey:AsicExtractId;constraint:OnDelete:CASCADE" json:"share_structures,omitempty"`
	Documents        []*AsicDocument   `gorm:"foreignKey:AsicExtractId;constraint:OnDelete:CASCADE" json:"documents,omitempty"`
	CreatedAt        time.Time         `gorm:"autoCreateTime" json:"created_at"`
}

// Address is flat: role addresses are copies tagged by Category, with Entity
// holding the role name. There is no key back to the owning person.
type Address struct {
	ID            uint            `gorm:"primary_key" json:"id"`
	AsicExtractId uint            `gorm:"index;not null" json:"asic_extract_id"`
	Category      AddressCategory `gorm:"size:20;not null;index" json:"category"`
	Entity        *string         `gorm:"size:50" json:"entity"`
	Type          *string         `gorm:"size:100" json:"type"`
	CareOf        *string         `gorm:"size:255" json:"care_of"`
	AddressLine1  *string         `gorm:"size:255" json:"address_line_1"`
	AddressLine2  *string         `gorm:"size:255" json:"address_line_2"`
	Suburb        *string         `gorm:"size:100" json:"suburb"`
	State         *string         `gorm:"size:20" json:"state"`
	Postcode      *string         `gorm:"size:10" json:"postcode"`
	Country       *string         `gorm:"size:100" json:"country"`
	Status        *string         `gorm:"size:50" json:"status"`
	StartDate     *time.Time      `json:"start_date"`
	EndDate       *time.Time      `json:"end_date"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

// BeforeSave rejects rows whose category is not one of the known roles.
func (a *Address) BeforeSave(tx *gorm.DB) error {
	_ = tx
	if a == nil || a.Category.IsValid() {
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidAddressCategory, a.Category)
}

// Director also stores secretaries, told apart by Type.
type Director struct {
	ID              uint             `gorm:"primary_key" json:"id"`
	AsicExtractId   uint             `gorm:"index;not null" json:"asic_extract_id"`
	Type            OfficeholderType `gorm:"size:20;not null" json:"type"`
	Name            *string          `gorm:"size:255" json:"name"`
	DateOfBirth     *time.Time       `json:"date_of_birth"`
	PlaceOfBirth    *string          `gorm:"size:255" json:"place_of_birth"`
	AppointmentDate *time.Time       `json:"appointment_date"`
	CeaseDate       *time.Time       `json:"cease_date"`
	Status          *string          `gorm:"size:50" json:"status"`
	CreatedAt       time.Time        `gorm:"autoCreateTime" json:"created_at"`
}

type Shareholder struct {
	ID                uint       `gorm:"primary_key" json:"id"`
	AsicExtractId     uint       `gorm:"index;not null" json:"asic_extract_id"`
	Name              *string    `gorm:"size:255" json:"name"`
	Acn               *string    `gorm:"size:20" json:"acn"`
	Class             *string    `gorm:"size:50" json:"class"`
	NumberHeld        NullAmount `gorm:"type:decimal(24,4)" json:"number_held"`
	PercentageHeld    NullAmount `gorm:"type:decimal(10,4)" json:"percentage_held"`
	BeneficiallyOwned *string    `gorm:"size:20" json:"beneficially_owned"`
	FullyPaid         *string    `gorm:"size:20" json:"fully_paid"`
	JointlyHeld       *string    `gorm:"size:20" json:"jointly_held"`
	CreatedAt         time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

type ShareStructure struct {
	ID               uint       `gorm:"primary_key" json:"id"`
	AsicExtractId    uint       `gorm:"index;not null" json:"asic_extract_id"`
	Class            *string    `gorm:"size:50" json:"class"`
	ClassDescription *string    `gorm:"size:255" json:"class_description"`
	ShareCount       NullAmount `gorm:"type:decimal(24,4)" json:"share_count"`
	AmountPaid       NullAmount `gorm:"type:decimal(20,4)" json:"amount_paid"`
	AmountDue        NullAmount `gorm:"type:decimal(20,4)" json:"amount_due"`
	Status           *string    `gorm:"size:50" json:"status"`
	CreatedAt        time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

type AsicDocument struct {
	ID             uint       `gorm:"primary_key" json:"id"`
	AsicExtractId  uint       `gorm:"index;not null" json:"asic_extract_id"`
	DocumentNumber *string    `gorm:"size:50" json:"document_number"`
	FormCode       *string    `gorm:"size:20" json:"form_code"`
	Description    *string    `gorm:"type:text" json:"description"`
	DateReceived   *time.Time `json:"date_received"`
	DateProcessed  *time.Time `json:"date_processed"`
	EffectiveDate  *time.Time `json:"effective_date"`
	NumberOfPages  *string    `gorm:"size:20" json:"number_of_pages"`
	CreatedAt      time.Time  `gorm:"autoCreateTime" json:"created_at"`
}
