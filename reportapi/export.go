package reportapi

import (
	"fmt"
	"time"

	"github.com/bizcheckau/reports_backend/models"
	"github.com/bizcheckau/reports_backend/utils"
	"github.com/xuri/excelize/v2"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type sheet struct {
	name     string
	headings []string
	rows     [][]interface{}
}

func str(p *string) string {
	return utils.DereferencePtr(p, "")
}

func day(t *time.Time) interface{} {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}

func boolCell(b *bool) interface{} {
	if b == nil {
		return ""
	}
	return *b
}

func amountCell(a models.NullAmount) interface{} {
	if !a.Valid {
		return ""
	}
	f, _ := a.Decimal.Float64()
	return f
}

// BuildWorkbook lays a fully preloaded report out as one sheet per row kind.
func BuildWorkbook(report *models.Report) (*excelize.File, error) {
	sheets := []sheet{summarySheet(report)}
	sheets = append(sheets, extractSheets(report)...)
	sheets = append(sheets, caseSheet(report), insolvencySheet(report), ppsrSheet(report))

	f := excelize.NewFile()
	for i, s := range sheets {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", s.name); err != nil {
				return nil, err
			}
		} else if _, err := f.NewSheet(s.name); err != nil {
			return nil, err
		}
		if err := writeSheet(f, s); err != nil {
			return nil, err
		}
	}
	return f, nil
}

func writeSheet(f *excelize.File, s sheet) error {
	headings := make([]interface{}, len(s.headings))
	for i, h := range s.headings {
		headings[i] = h
	}
	if err := f.SetSheetRow(s.name, "A1", &headings); err != nil {
		return err
	}
	for i, row := range s.rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := row
		if err := f.SetSheetRow(s.name, cell, &row); err != nil {
			return err
		}
	}
	return nil
}

func summarySheet(r *models.Report) sheet {
	s := sheet{name: "Summary", headings: []string{"Field", "Value"}}
	add := func(k string, v interface{}) { s.rows = append(s.rows, []interface{}{k, v}) }
	add("Report ID", r.ID)
	add("ABN", r.Abn)
	add("Category", r.Category)
	add("Subtype", str(r.Subtype))
	add("Upstream UUID", r.Uuid)
	add("Created", r.CreatedAt.Format(time.RFC3339))
	if e := r.Entity; e != nil {
		add("Name", str(e.Name))
		add("ACN", str(e.Acn))
		add("Entity Type", str(e.EntityType))
		add("ASIC Status", str(e.AsicStatus))
		add("ABN Status", str(e.AbnStatus))
		add("GST Status", str(e.GstStatus))
		add("ASIC Registration", day(e.AsicRegistrationDate))
		add("State", str(e.RegisteredState))
		add("Postcode", str(e.Postcode))
		add("Former Names", string(e.FormerNames))
	}
	if d := r.TaxDebt; d != nil {
		add("Tax Debt", amountCell(d.Amount))
		add("Tax Debt Status", str(d.Status))
		add("Tax Debt As At", day(d.AsAt))
	}
	return s
}

func extractSheets(r *models.Report) []sheet {
	extracts := sheet{name: "ASIC Extracts", headings: []string{"Uid", "Company", "ACN", "Type", "Status", "Registered", "Review Date"}}
	directors := sheet{name: "Officeholders", headings: []string{"Extract", "Role", "Name", "Date Of Birth", "Appointed", "Ceased", "Status"}}
	addresses := sheet{name: "Addresses", headings: []string{"Extract", "Category", "Entity", "Line 1", "Line 2", "Suburb", "State", "Postcode", "Country", "Start", "End"}}
	holders := sheet{name: "Shareholders", headings: []string{"Extract", "Name", "ACN", "Class", "Number Held", "Percentage Held", "Beneficially Owned"}}

	for _, x := range r.AsicExtracts {
		extracts.rows = append(extracts.rows, []interface{}{x.Uid, str(x.CompanyName), str(x.Acn), str(x.CompanyType), str(x.Status), day(x.RegistrationDate), day(x.ReviewDate)})
		for _, d := range x.Directors {
			directors.rows = append(directors.rows, []interface{}{x.Uid, string(d.Type), str(d.Name), day(d.DateOfBirth), day(d.AppointmentDate), day(d.CeaseDate), str(d.Status)})
		}
		for _, a := range x.Addresses {
			addresses.rows = append(addresses.rows, []interface{}{x.Uid, string(a.Category), str(a.Entity), str(a.AddressLine1), str(a.AddressLine2), str(a.Suburb), str(a.State), str(a.Postcode), str(a.Country), day(a.StartDate), day(a.EndDate)})
		}
		for _, h := range x.Shareholders {
			holders.rows = append(holders.rows, []interface{}{x.Uid, str(h.Name), str(h.Acn), str(h.Class), amountCell(h.NumberHeld), amountCell(h.PercentageHeld), str(h.BeneficiallyOwned)})
		}
	}
	return []sheet{extracts, directors, addresses, holders}
}

func caseSheet(r *models.Report) sheet {
	s := sheet{name: "Cases", headings: []string{"Uid", "Number", "Name", "Type", "Status", "Court", "Jurisdiction", "Parties", "Next Hearing"}}
	for _, c := range r.Cases {
		s.rows = append(s.rows, []interface{}{c.Uid, str(c.Number), str(c.Name), str(c.Type), str(c.Status), str(c.CourtName), str(c.Jurisdiction), len(c.Parties), day(c.NextHearingDate)})
	}
	return s
}

func insolvencySheet(r *models.Report) sheet {
	s := sheet{name: "Insolvencies", headings: []string{"Uid", "Number", "Name", "Type", "Notice Type", "Status", "Published", "Parties"}}
	for _, n := range r.Insolvencies {
		s.rows = append(s.rows, []interface{}{n.Uid, str(n.Number), str(n.Name), str(n.Type), str(n.NoticeType), str(n.Status), day(n.PublishedDate), len(n.Parties)})
	}
	return s
}

func ppsrSheet(r *models.Report) sheet {
	s := sheet{name: "PPSR", headings: []string{"Search", "Registration", "Collateral Class", "Collateral Type", "Start", "End", "PMSI", "Secured Parties", "Mailing Address"}}
	for _, search := range r.PpsrSearches {
		label := str(search.SearchNumber)
		if label == "" {
			label = fmt.Sprintf("#%d", search.Sequence)
		}
		for _, it := range search.Items {
			mailing := ""
			if it.AddressForService != nil {
				mailing = str(it.AddressForService.MailingAddress)
			}
			s.rows = append(s.rows, []interface{}{label, str(it.RegistrationNumber), str(it.CollateralClassType), str(it.CollateralType), day(it.RegistrationStartTime), day(it.RegistrationEndTime), boolCell(it.IsPmsi), len(it.SecuredParties), mailing})
		}
	}
	return s
}
