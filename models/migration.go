package models

import (
	"log"

	"github.com/bizcheckau/reports_backend/config"
	"gorm.io/gorm"
)

// AllModels lists every table in creation order (parents before children).
func AllModels() []interface{} {
	return []interface{}{
		&Report{}, &Entity{}, &TaxDebt{},
		&AsicExtract{}, &Address{}, &Director{}, &Shareholder{}, &ShareStructure{}, &AsicDocument{},
		&Case{}, &CaseParty{}, &CaseHearing{}, &CaseDocument{}, &CaseApplication{}, &CaseJudgment{},
		&Insolvency{}, &InsolvencyParty{},
		&PpsrSearch{}, &PpsrItem{}, &AddressForService{}, &PpsrGrantor{}, &PpsrSecuredParty{},
		&Matter{}, &UserReport{},
		&IngestionRun{}, &IngestionError{},
		&IdempotencyKey{},
	}
}

func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(AllModels()...)
}

func MigrateTable() {
	if err := AutoMigrate(config.GetDB()); err != nil {
		log.Fatal(err)
	}
}
