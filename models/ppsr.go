package models

import (
	"time"

	"gorm.io/datatypes"
)

// PpsrSearch is one search-criteria summary of a PPSR report.
type PpsrSearch struct {
	ID                 uint           `gorm:"primary_key" json:"id"`
	ReportId           uint           `gorm:"not null;uniqueIndex:uniq_ppsr_search_seq,priority:1" json:"report_id"`
	Sequence           int            `gorm:"not null;uniqueIndex:uniq_ppsr_search_seq,priority:2" json:"sequence"`
	PpsrCloudId        *string        `gorm:"size:100;index" json:"ppsr_cloud_id"`
	SearchNumber       *string        `gorm:"size:100" json:"search_number"`
	SearchType         *string        `gorm:"size:100" json:"search_type"`
	GrantorType        *string        `gorm:"size:50" json:"grantor_type"`
	OrganisationNumber *string        `gorm:"size:50" json:"organisation_number"`
	OrganisationName   *string        `gorm:"size:255" json:"organisation_name"`
	SearchDate         *time.Time     `json:"search_date"`
	ResultCount        *int           `json:"result_count"`
	Criteria           datatypes.JSON `json:"criteria"`
	Items              []*PpsrItem    `gorm:"foreignKey:PpsrSearchId;constraint:OnDelete:CASCADE" json:"items,omitempty"`
	CreatedAt          time.Time      `gorm:"autoCreateTime" json:"created_at"`
}

type PpsrItem struct {
	ID                       uint                `gorm:"primary_key" json:"id"`
	PpsrSearchId             uint                `gorm:"index;not null" json:"ppsr_search_id"`
	RegistrationNumber       *string             `gorm:"size:50;index" json:"registration_number"`
	RegistrationKind         *string             `gorm:"size:100" json:"registration_kind"`
	CollateralClassType      *string             `gorm:"size:100" json:"collateral_class_type"`
	CollateralType           *string             `gorm:"size:100" json:"collateral_type"`
	CollateralDescription    *string             `gorm:"type:text" json:"collateral_description"`
	RegistrationStartTime    *time.Time          `json:"registration_start_time"`
	RegistrationEndTime      *time.Time          `json:"registration_end_time"`
	RegistrationChangeTime   *time.Time          `json:"registration_change_time"`
	ChangeNumber             *string             `gorm:"size:50" json:"change_number"`
	GivingOfNoticeIdentifier *string             `gorm:"size:255" json:"giving_of_notice_identifier"`
	IsPmsi                   *bool               `json:"is_pmsi"`
	IsTransitional           *bool               `json:"is_transitional"`
	IsMigrated               *bool               `json:"is_migrated"`
	IsSubordinate            *bool               `json:"is_subordinate"`
	AddressForService        *AddressForService  `gorm:"foreignKey:PpsrItemId;constraint:OnDelete:CASCADE" json:"address_for_service,omitempty"`
	Grantors                 []*PpsrGrantor      `gorm:"foreignKey:PpsrItemId;constraint:OnDelete:CASCADE" json:"grantors,omitempty"`
	SecuredParties           []*PpsrSecuredParty `gorm:"foreignKey:PpsrItemId;constraint:OnDelete:CASCADE" json:"secured_parties,omitempty"`
	CreatedAt                time.Time           `gorm:"autoCreateTime" json:"created_at"`
}

type AddressForService struct {
	ID              uint      `gorm:"primary_key" json:"id"`
	PpsrItemId      uint      `gorm:"uniqueIndex;not null" json:"ppsr_item_id"`
	Addressee       *string   `gorm:"size:255" json:"addressee"`
	EmailAddress    *string   `gorm:"size:255" json:"email_address"`
	FaxNumber       *string   `gorm:"size:50" json:"fax_number"`
	MailingAddress  *string   `gorm:"size:500" json:"mailing_address"`
	PhysicalAddress *string   `gorm:"size:500" json:"physical_address"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
}

type PpsrGrantor struct {
	ID                     uint       `gorm:"primary_key" json:"id"`
	PpsrItemId             uint       `gorm:"index;not null" json:"ppsr_item_id"`
	GrantorType            *string    `gorm:"size:50" json:"grantor_type"`
	OrganisationName       *string    `gorm:"size:255" json:"organisation_name"`
	OrganisationNumber     *string    `gorm:"size:50" json:"organisation_number"`
	OrganisationNumberType *string    `gorm:"size:20" json:"organisation_number_type"`
	IndividualGivenNames   *string    `gorm:"size:255" json:"individual_given_names"`
	IndividualFamilyName   *string    `gorm:"size:255" json:"individual_family_name"`
	IndividualDateOfBirth  *time.Time `json:"individual_date_of_birth"`
	CreatedAt              time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

type PpsrSecuredParty struct {
	ID                     uint      `gorm:"primary_key" json:"id"`
	PpsrItemId             uint      `gorm:"index;not null" json:"ppsr_item_id"`
	SecuredPartyType       *string   `gorm:"size:50" json:"secured_party_type"`
	OrganisationName       *string   `gorm:"size:255" json:"organisation_name"`
	OrganisationNumber     *string   `gorm:"size:50" json:"organisation_number"`
	OrganisationNumberType *string   `gorm:"size:20" json:"organisation_number_type"`
	IndividualGivenNames   *string   `gorm:"size:255" json:"individual_given_names"`
	IndividualFamilyName   *string   `gorm:"size:255" json:"individual_family_name"`
	CreatedAt              time.Time `gorm:"autoCreateTime" json:"created_at"`
}
