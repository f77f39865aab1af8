package ingest

import (
	"context"

	"github.com/bizcheckau/reports_backend/models"
	"gorm.io/gorm"
)

// Gateway writes normalized aggregates. Each Save* is one transaction: the
// parent and all of its children commit together or not at all.
type Gateway struct {
	DB *gorm.DB
}

const batchSize = 100

func createAll[T any](tx *gorm.DB, rows []*T) error {
	if len(rows) == 0 {
		return nil
	}
	return tx.CreateInBatches(rows, batchSize).Error
}

// runAll stops at the first failing step.
func runAll(steps ...func() error) error {
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}

// AlreadyIngested is the per-report guard: a stored extract, a stored PPSR
// search or a completed run marks the report as done.
func (g *Gateway) AlreadyIngested(ctx context.Context, reportId uint) (bool, error) {
	var report models.Report
	if err := g.DB.WithContext(ctx).Select("id", "ingested_at").First(&report, reportId).Error; err != nil {
		return false, err
	}
	if report.IngestedAt != nil {
		return true, nil
	}
	for _, model := range []interface{}{&models.AsicExtract{}, &models.PpsrSearch{}} {
		var count int64
		if err := g.DB.WithContext(ctx).Model(model).Where("report_id = ?", reportId).Limit(1).Count(&count).Error; err != nil {
			return false, err
		}
		if count > 0 {
			return true, nil
		}
	}
	return false, nil
}

func (g *Gateway) SaveEntity(ctx context.Context, entity *models.Entity) error {
	return g.DB.WithContext(ctx).Create(entity).Error
}

func (g *Gateway) SaveTaxDebt(ctx context.Context, debt *models.TaxDebt) error {
	return g.DB.WithContext(ctx).Create(debt).Error
}

func (g *Gateway) SaveAsicExtract(ctx context.Context, agg *AsicExtractAggregate) error {
	return g.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&agg.Extract).Error; err != nil {
			return err
		}
		id := agg.Extract.ID
		for _, r := range agg.Addresses {
			r.AsicExtractId = id
		}
		for _, r := range agg.Directors {
			r.AsicExtractId = id
		}
		for _, r := range agg.Shareholders {
			r.AsicExtractId = id
		}
		for _, r := range agg.ShareStructures {
			r.AsicExtractId = id
		}
		for _, r := range agg.Documents {
			r.AsicExtractId = id
		}
		return runAll(
			func() error { return createAll(tx, agg.Addresses) },
			func() error { return createAll(tx, agg.Directors) },
			func() error { return createAll(tx, agg.Shareholders) },
			func() error { return createAll(tx, agg.ShareStructures) },
			func() error { return createAll(tx, agg.Documents) },
		)
	})
}

func (g *Gateway) SaveCase(ctx context.Context, agg *CaseAggregate) error {
	return g.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&agg.Case).Error; err != nil {
			return err
		}
		id := agg.Case.ID
		for _, r := range agg.Parties {
			r.CaseId = id
		}
		for _, r := range agg.Hearings {
			r.CaseId = id
		}
		for _, r := range agg.Documents {
			r.CaseId = id
		}
		for _, r := range agg.Applications {
			r.CaseId = id
		}
		for _, r := range agg.Judgments {
			r.CaseId = id
		}
		return runAll(
			func() error { return createAll(tx, agg.Parties) },
			func() error { return createAll(tx, agg.Hearings) },
			func() error { return createAll(tx, agg.Documents) },
			func() error { return createAll(tx, agg.Applications) },
			func() error { return createAll(tx, agg.Judgments) },
		)
	})
}

func (g *Gateway) SaveInsolvency(ctx context.Context, agg *InsolvencyAggregate) error {
	return g.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&agg.Insolvency).Error; err != nil {
			return err
		}
		for _, r := range agg.Parties {
			r.InsolvencyId = agg.Insolvency.ID
		}
		return createAll(tx, agg.Parties)
	})
}

func (g *Gateway) SavePpsrSearch(ctx context.Context, agg *PpsrSearchAggregate) error {
	return g.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&agg.Search).Error; err != nil {
			return err
		}
		for _, item := range agg.Items {
			item.Item.PpsrSearchId = agg.Search.ID
			if err := tx.Create(&item.Item).Error; err != nil {
				return err
			}
			itemId := item.Item.ID
			if item.AddressForService != nil {
				item.AddressForService.PpsrItemId = itemId
				if err := tx.Create(item.AddressForService).Error; err != nil {
					return err
				}
			}
			for _, r := range item.Grantors {
				r.PpsrItemId = itemId
			}
			for _, r := range item.SecuredParties {
				r.PpsrItemId = itemId
			}
			if err := createAll(tx, item.Grantors); err != nil {
				return err
			}
			if err := createAll(tx, item.SecuredParties); err != nil {
				return err
			}
		}
		return nil
	})
}
