package ingest

import (
	"encoding/json"

	"github.com/bizcheckau/reports_backend/models"
	"github.com/bizcheckau/reports_backend/payload"
	"gorm.io/datatypes"
)

// Aggregates are parent rows with their children, ready for one write unit.
// Child foreign keys are filled in by the gateway once the parent has an id.

type AsicExtractAggregate struct {
	Extract         models.AsicExtract
	Addresses       []*models.Address
	Directors       []*models.Director
	Shareholders    []*models.Shareholder
	ShareStructures []*models.ShareStructure
	Documents       []*models.AsicDocument
}

type CaseAggregate struct {
	Case         models.Case
	Parties      []*models.CaseParty
	Hearings     []*models.CaseHearing
	Documents    []*models.CaseDocument
	Applications []*models.CaseApplication
	Judgments    []*models.CaseJudgment
}

type InsolvencyAggregate struct {
	Insolvency models.Insolvency
	Parties    []*models.InsolvencyParty
}

type PpsrItemAggregate struct {
	Item              models.PpsrItem
	AddressForService *models.AddressForService
	Grantors          []*models.PpsrGrantor
	SecuredParties    []*models.PpsrSecuredParty
}

type PpsrSearchAggregate struct {
	Search models.PpsrSearch
	Items  []*PpsrItemAggregate
}

const (
	roleDirector    = "Director"
	roleSecretary   = "Secretary"
	roleShareholder = "Shareholder"
)

func normalizeEntity(reportId uint, rec *payload.EntityRecord) (*models.Entity, error) {
	formerNames, err := json.Marshal(rec.FormerNameStrings())
	if err != nil {
		return nil, err
	}
	return &models.Entity{
		ReportId:                 reportId,
		Abn:                      rec.Abn.Ptr(),
		Acn:                      rec.Acn.Ptr(),
		Name:                     rec.Name.Ptr(),
		EntityType:               rec.Type.Ptr(),
		AsicStatus:               rec.AsicStatus.Ptr(),
		AbnStatus:                rec.AbnStatus.Ptr(),
		AbnStatusEffectiveFrom:   rec.AbnStatusEffectiveFrom.Ptr(),
		GstStatus:                rec.GstStatus.Ptr(),
		GstEffectiveFrom:         rec.GstEffectiveFrom.Ptr(),
		AsicRegistrationDate:     rec.AsicRegistrationDate.Ptr(),
		AsicDateOfDeregistration: rec.AsicDateOfDeregistration.Ptr(),
		ReviewDate:               rec.ReviewDate.Ptr(),
		RegisteredState:          rec.RegisteredState.Ptr(),
		Postcode:                 rec.Postcode.Ptr(),
		FormerNames:              datatypes.JSON(formerNames),
	}, nil
}

func normalizeTaxDebt(reportId uint, rec *payload.TaxDebtRecord) *models.TaxDebt {
	return &models.TaxDebt{
		ReportId:     reportId,
		Amount:       rec.Amount.NullDecimal,
		Status:       rec.Status.Ptr(),
		AsAt:         rec.AsAt.Ptr(),
		DateNotified: rec.DateNotified.Ptr(),
		DateUpdated:  rec.DateUpdated.Ptr(),
	}
}

// normalizeAsicExtract flattens one extract. Officeholders and shareholders
// with an inline address also get a copy in Addresses tagged with their role.
func normalizeAsicExtract(reportId uint, uid string, rec *payload.AsicExtractRecord) *AsicExtractAggregate {
	agg := &AsicExtractAggregate{
		Extract: models.AsicExtract{
			ReportId:         reportId,
			Uid:              uid,
			Type:             rec.Type.Ptr(),
			ExtractDate:      rec.ExtractDate.Ptr(),
			CompanyName:      rec.CompanyName.Ptr(),
			Acn:              rec.Acn.Ptr(),
			Abn:              rec.Abn.Ptr(),
			CompanyType:      rec.CompanyType.Ptr(),
			CompanyClass:     rec.CompanyClass.Ptr(),
			CompanySubclass:  rec.CompanySubclass.Ptr(),
			Status:           rec.Status.Ptr(),
			RegistrationDate: rec.RegistrationDate.Ptr(),
			ReviewDate:       rec.ReviewDate.Ptr(),
			RegisteredIn:     rec.RegisteredIn.Ptr(),
		},
	}

	for i := range rec.Addresses {
		if a := &rec.Addresses[i]; a.Present() {
			agg.Addresses = append(agg.Addresses, newAddress(a, models.AddressCategoryCompany, nil))
		}
	}
	for i := range rec.ContactAddresses {
		if a := &rec.ContactAddresses[i]; a.Present() {
			agg.Addresses = append(agg.Addresses, newAddress(a, models.AddressCategoryContact, nil))
		}
	}

	for _, d := range rec.Directors {
		officeholder := models.ParseOfficeholderType(d.Type.String())
		agg.Directors = append(agg.Directors, &models.Director{
			Type:            officeholder,
			Name:            d.Name.Ptr(),
			DateOfBirth:     d.DateOfBirth.Ptr(),
			PlaceOfBirth:    d.PlaceOfBirth.Ptr(),
			AppointmentDate: d.AppointmentDate.Ptr(),
			CeaseDate:       d.CeaseDate.Ptr(),
			Status:          d.Status.Ptr(),
		})
		if d.Address.Present() {
			role := roleDirector
			if officeholder == models.OfficeholderTypeSecretary {
				role = roleSecretary
			}
			agg.Addresses = append(agg.Addresses, newAddress(d.Address, officeholder.AddressCategory(), &role))
		}
	}

	for _, s := range rec.Shareholders {
		agg.Shareholders = append(agg.Shareholders, &models.Shareholder{
			Name:              s.Name.Ptr(),
			Acn:               s.Acn.Ptr(),
			Class:             s.Class.Ptr(),
			NumberHeld:        s.NumberHeld.NullDecimal,
			PercentageHeld:    s.PercentageHeld.NullDecimal,
			BeneficiallyOwned: s.BeneficiallyOwned.Ptr(),
			FullyPaid:         s.FullyPaid.Ptr(),
			JointlyHeld:       s.JointlyHeld.Ptr(),
		})
		if s.Address.Present() {
			role := roleShareholder
			agg.Addresses = append(agg.Addresses, newAddress(s.Address, models.AddressCategoryShareholder, &role))
		}
	}

	for _, s := range rec.ShareStructures {
		agg.ShareStructures = append(agg.ShareStructures, &models.ShareStructure{
			Class:            s.Class.Ptr(),
			ClassDescription: s.ClassDescription.Ptr(),
			ShareCount:       s.ShareCount.NullDecimal,
			AmountPaid:       s.AmountPaid.NullDecimal,
			AmountDue:        s.AmountDue.NullDecimal,
			Status:           s.Status.Ptr(),
		})
	}

	for _, d := range rec.Documents {
		agg.Documents = append(agg.Documents, &models.AsicDocument{
			DocumentNumber: d.DocumentNumber.Ptr(),
			FormCode:       d.FormCode.Ptr(),
			Description:    d.Description.Ptr(),
			DateReceived:   d.DateReceived.Ptr(),
			DateProcessed:  d.DateProcessed.Ptr(),
			EffectiveDate:  d.EffectiveDate.Ptr(),
			NumberOfPages:  d.NumberOfPages.Ptr(),
		})
	}
	return agg
}

func newAddress(a *payload.AddressRecord, category models.AddressCategory, entity *string) *models.Address {
	return &models.Address{
		Category:     category,
		Entity:       entity,
		Type:         a.Type.Ptr(),
		CareOf:       a.CareOf.Ptr(),
		AddressLine1: a.AddressLine1.Ptr(),
		AddressLine2: a.AddressLine2.Ptr(),
		Suburb:       a.Suburb.Ptr(),
		State:        a.State.Ptr(),
		Postcode:     a.Postcode.Ptr(),
		Country:      a.Country.Ptr(),
		Status:       a.Status.Ptr(),
		StartDate:    a.StartDate.Ptr(),
		EndDate:      a.EndDate.Ptr(),
	}
}

func normalizeCase(reportId uint, uid string, rec *payload.CaseRecord) *CaseAggregate {
	agg := &CaseAggregate{
		Case: models.Case{
			ReportId:         reportId,
			Uid:              uid,
			Number:           rec.Number.Ptr(),
			Name:             rec.Name.Ptr(),
			Type:             rec.Type.Ptr(),
			Status:           rec.Status.Ptr(),
			Jurisdiction:     rec.Jurisdiction.Ptr(),
			CourtName:        rec.CourtName.Ptr(),
			State:            rec.State.Ptr(),
			Suburb:           rec.Suburb.Ptr(),
			Source:           rec.Source.Ptr(),
			MatterType:       rec.MatterType.Ptr(),
			MostRecentEvent:  rec.MostRecentEvent.Ptr(),
			NotificationTime: rec.NotificationTime.Ptr(),
			NextHearingDate:  rec.NextHearingDate.Ptr(),
		},
	}
	for _, p := range rec.Parties {
		agg.Parties = append(agg.Parties, &models.CaseParty{
			Name:               p.Name.Ptr(),
			Role:               p.Role.Ptr(),
			Type:               p.Type.Ptr(),
			Abn:                p.Abn.Ptr(),
			Acn:                p.Acn.Ptr(),
			RepresentativeName: p.RepresentativeName.Ptr(),
			RepresentativeFirm: p.RepresentativeFirm.Ptr(),
		})
	}
	for _, h := range rec.Hearings {
		agg.Hearings = append(agg.Hearings, &models.CaseHearing{
			Datetime:     h.Datetime.Ptr(),
			Officer:      h.Officer.Ptr(),
			CourtRoom:    h.CourtRoom.Ptr(),
			CourtName:    h.CourtName.Ptr(),
			CourtAddress: h.CourtAddress.Ptr(),
			Type:         h.Type.Ptr(),
			Outcome:      h.Outcome.Ptr(),
		})
	}
	for _, d := range rec.Documents {
		agg.Documents = append(agg.Documents, &models.CaseDocument{
			Date:        d.Date.Ptr(),
			Title:       d.Title.Ptr(),
			Description: d.Description.Ptr(),
			FiledBy:     d.FiledBy.Ptr(),
		})
	}
	for _, a := range rec.Applications {
		agg.Applications = append(agg.Applications, &models.CaseApplication{
			Title:         a.Title.Ptr(),
			Type:          a.Type.Ptr(),
			Status:        a.Status.Ptr(),
			DateFiled:     a.DateFiled.Ptr(),
			DateFinalised: a.DateFinalised.Ptr(),
		})
	}
	for _, j := range rec.Judgments {
		agg.Judgments = append(agg.Judgments, &models.CaseJudgment{
			Date:     j.Date.Ptr(),
			Title:    j.Title.Ptr(),
			Officer:  j.Officer.Ptr(),
			Citation: j.Citation.Ptr(),
			Outcome:  j.Outcome.Ptr(),
			Url:      j.Url.Ptr(),
		})
	}
	return agg
}

func normalizeInsolvency(reportId uint, uid string, rec *payload.InsolvencyRecord) *InsolvencyAggregate {
	agg := &InsolvencyAggregate{
		Insolvency: models.Insolvency{
			ReportId:      reportId,
			Uid:           uid,
			Number:        rec.Number.Ptr(),
			Name:          rec.Name.Ptr(),
			Type:          rec.Type.Ptr(),
			NoticeType:    rec.NoticeType.Ptr(),
			Status:        rec.Status.Ptr(),
			Court:         rec.Court.Ptr(),
			PublishedDate: rec.PublishedDate.Ptr(),
			Url:           rec.Url.Ptr(),
		},
	}
	for _, p := range rec.Parties {
		agg.Parties = append(agg.Parties, &models.InsolvencyParty{
			Name:         p.Name.Ptr(),
			Role:         p.Role.Ptr(),
			Abn:          p.Abn.Ptr(),
			Acn:          p.Acn.Ptr(),
			Practitioner: p.Practitioner.Ptr(),
		})
	}
	return agg
}

func normalizePpsrSearch(reportId uint, sequence int, cloudId payload.Text, group payload.PpsrSearchGroup) *PpsrSearchAggregate {
	s := group.Summary
	agg := &PpsrSearchAggregate{
		Search: models.PpsrSearch{
			ReportId:           reportId,
			Sequence:           sequence,
			PpsrCloudId:        cloudId.Ptr(),
			SearchNumber:       s.SearchNumber.Ptr(),
			SearchType:         s.SearchType.Ptr(),
			GrantorType:        s.GrantorType.Ptr(),
			OrganisationNumber: s.OrganisationNumber.Ptr(),
			OrganisationName:   s.OrganisationName.Ptr(),
			SearchDate:         s.SearchDate.Ptr(),
			ResultCount:        s.ResultCount.Ptr(),
		},
	}
	if len(s.Raw) > 0 {
		agg.Search.Criteria = datatypes.JSON(s.Raw)
	}

	for _, it := range group.Items {
		item := &PpsrItemAggregate{
			Item: models.PpsrItem{
				RegistrationNumber:       it.RegistrationNumber.Ptr(),
				RegistrationKind:         it.RegistrationKind.Ptr(),
				CollateralClassType:      it.CollateralClassType.Ptr(),
				CollateralType:           it.CollateralType.Ptr(),
				CollateralDescription:    it.CollateralDescription.Ptr(),
				RegistrationStartTime:    it.RegistrationStartTime.Ptr(),
				RegistrationEndTime:      it.RegistrationEndTime.Ptr(),
				RegistrationChangeTime:   it.RegistrationChangeTime.Ptr(),
				ChangeNumber:             it.ChangeNumber.Ptr(),
				GivingOfNoticeIdentifier: it.GivingOfNoticeIdentifier.Ptr(),
				IsPmsi:                   it.IsPmsi.Ptr(),
				IsTransitional:           it.IsTransitional.Ptr(),
				IsMigrated:               it.IsMigrated.Ptr(),
				IsSubordinate:            it.IsSubordinate.Ptr(),
			},
		}
		if afs := it.AddressForService; afs.Present() {
			item.AddressForService = &models.AddressForService{
				Addressee:       afs.Addressee.Ptr(),
				EmailAddress:    afs.EmailAddress.Ptr(),
				FaxNumber:       afs.FaxNumber.Ptr(),
				MailingAddress:  payload.NewText(afs.MailingAddress.Format()).Ptr(),
				PhysicalAddress: payload.NewText(afs.PhysicalAddress.Format()).Ptr(),
			}
		}
		for _, g := range it.Grantors {
			item.Grantors = append(item.Grantors, &models.PpsrGrantor{
				GrantorType:            g.GrantorType.Ptr(),
				OrganisationName:       g.OrganisationName.Ptr(),
				OrganisationNumber:     g.OrganisationNumber.Ptr(),
				OrganisationNumberType: g.OrganisationNumberType.Ptr(),
				IndividualGivenNames:   g.IndividualGivenNames.Ptr(),
				IndividualFamilyName:   g.IndividualFamilyName.Ptr(),
				IndividualDateOfBirth:  g.IndividualDateOfBirth.Ptr(),
			})
		}
		for _, sp := range it.SecuredParties {
			item.SecuredParties = append(item.SecuredParties, &models.PpsrSecuredParty{
				SecuredPartyType:       sp.SecuredPartyType.Ptr(),
				OrganisationName:       sp.OrganisationName.Ptr(),
				OrganisationNumber:     sp.OrganisationNumber.Ptr(),
				OrganisationNumberType: sp.OrganisationNumberType.Ptr(),
				IndividualGivenNames:   sp.IndividualGivenNames.Ptr(),
				IndividualFamilyName:   sp.IndividualFamilyName.Ptr(),
			})
		}
		agg.Items = append(agg.Items, item)
	}
	return agg
}
