package models

import (
	"time"

	"gorm.io/datatypes"
)

// Entity is the business profile of a report, at most one per report.
type Entity struct {
	ID                       uint           `gorm:"primary_key" json:"id"`
	ReportId                 uint           `gorm:"uniqueIndex;not null" json:"report_id"`
	Abn                      *string        `gorm:"size:20" json:"abn"`
	Acn                      *string        `gorm:"size:20" json:"acn"`
	Name                     *string        `gorm:"size:255" json:"name"`
	EntityType               *string        `gorm:"size:100" json:"entity_type"`
	AsicStatus               *string        `gorm:"size:50" json:"asic_status"`
	AbnStatus                *string        `gorm:"size:50" json:"abn_status"`
	AbnStatusEffectiveFrom   *time.Time     `json:"abn_status_effective_from"`
	GstStatus                *string        `gorm:"size:50" json:"gst_status"`
	GstEffectiveFrom         *time.Time     `json:"gst_effective_from"`
	AsicRegistrationDate     *time.Time     `json:"asic_registration_date"`
	AsicDateOfDeregistration *time.Time     `json:"asic_date_of_deregistration"`
	ReviewDate               *time.Time     `json:"review_date"`
	RegisteredState          *string        `gorm:"size:10" json:"registered_state"`
	Postcode                 *string        `gorm:"size:10" json:"postcode"`
	FormerNames              datatypes.JSON `json:"former_names"`
	CreatedAt                time.Time      `gorm:"autoCreateTime" json:"created_at"`
}

type TaxDebt struct {
	ID           uint       `gorm:"primary_key" json:"id"`
	ReportId     uint       `gorm:"uniqueIndex;not null" json:"report_id"`
	Amount       NullAmount `gorm:"type:decimal(20,4)" json:"amount"`
	Status       *string    `gorm:"size:50" json:"status"`
	AsAt         *time.Time `json:"as_at"`
	DateNotified *time.Time `json:"date_notified"`
	DateUpdated  *time.Time `json:"date_updated"`
	CreatedAt    time.Time  `gorm:"autoCreateTime" json:"created_at"`
}
