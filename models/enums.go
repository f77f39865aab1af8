package models

import (
	"errors"
	"strings"
)

// AddressCategory attributes a flat Address row to the role that owned it in the payload.
type AddressCategory string

const (
	AddressCategoryCompany     AddressCategory = "company"
	AddressCategoryContact     AddressCategory = "contact"
	AddressCategoryDirector    AddressCategory = "director"
	AddressCategorySecretary   AddressCategory = "secretary"
	AddressCategoryShareholder AddressCategory = "shareholder"
)

func (c AddressCategory) IsValid() bool {
	switch c {
	case AddressCategoryCompany, AddressCategoryContact, AddressCategoryDirector,
		AddressCategorySecretary, AddressCategoryShareholder:
		return true
	}
	return false
}

// OfficeholderType is stored on director rows; secretaries share the table.
type OfficeholderType string

const (
	OfficeholderTypeDirector  OfficeholderType = "Director"
	OfficeholderTypeSecretary OfficeholderType = "Secretary"
)

// ParseOfficeholderType maps the upstream role string, defaulting to Director.
func ParseOfficeholderType(s string) OfficeholderType {
	if strings.Contains(strings.ToLower(s), "secretary") {
		return OfficeholderTypeSecretary
	}
	return OfficeholderTypeDirector
}

// AddressCategory returns the category of an address synthesized for this role.
func (t OfficeholderType) AddressCategory() AddressCategory {
	if t == OfficeholderTypeSecretary {
		return AddressCategorySecretary
	}
	return AddressCategoryDirector
}

type IngestionStatus string

const (
	IngestionStatusRunning IngestionStatus = "running"
	IngestionStatusSuccess IngestionStatus = "success"
	IngestionStatusPartial IngestionStatus = "partial"
	IngestionStatusFailed  IngestionStatus = "failed"
	IngestionStatusSkipped IngestionStatus = "skipped"
)

// AggregateType names the failure scope an ingestion error belongs to.
type AggregateType string

const (
	AggregateEntity      AggregateType = "entity"
	AggregateAsicExtract AggregateType = "asic_extract"
	AggregateCase        AggregateType = "case"
	AggregateInsolvency  AggregateType = "insolvency"
	AggregateTaxDebt     AggregateType = "tax_debt"
	AggregatePpsrSearch  AggregateType = "ppsr_search"
)

const (
	IngestTriggeredCreate   = "create"
	IngestTriggeredCacheHit = "cache_hit"
	IngestTriggeredReingest = "reingest"
)

// ErrInvalidAddressCategory is returned when saving an address with an unknown category.
var ErrInvalidAddressCategory = errors.New("invalid address category")
