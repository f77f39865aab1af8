package payload

import (
	"encoding/json"
	"strings"
)

// StandardReportPayload is the Alares report document. Aggregates stay raw
// so each one is decoded inside its own failure scope.
type StandardReportPayload struct {
	Uuid           Text            `json:"uuid"`
	Status         Text            `json:"status"`
	Entity         json.RawMessage `json:"entity"`
	AsicExtracts   RawList         `json:"asic_extracts"`
	Cases          Entries         `json:"cases"`
	Insolvencies   Entries         `json:"insolvencies"`
	CurrentTaxDebt json.RawMessage `json:"current_tax_debt"`
}

type EntityRecord struct {
	Abn                      Text       `json:"abn"`
	Acn                      Text       `json:"acn"`
	Name                     Text       `json:"name"`
	Type                     Text       `json:"type"`
	AsicStatus               Text       `json:"asic_status"`
	AbnStatus                Text       `json:"abn_status"`
	AbnStatusEffectiveFrom   Date       `json:"abn_status_effective_from"`
	GstStatus                Text       `json:"gst_status"`
	GstEffectiveFrom         Date       `json:"gst_effective_from"`
	AsicRegistrationDate     Date       `json:"asic_date_of_registration"`
	AsicDateOfDeregistration Date       `json:"asic_date_of_deregistration"`
	ReviewDate               Date       `json:"review_date"`
	RegisteredState          Text       `json:"state"`
	Postcode                 Text       `json:"postcode"`
	FormerNames              List[Text] `json:"former_names"`
}

// FormerNameStrings drops blank names; the result is never nil.
func (e EntityRecord) FormerNameStrings() []string {
	out := make([]string, 0, len(e.FormerNames))
	for _, n := range e.FormerNames {
		if n.Valid() {
			out = append(out, n.String())
		}
	}
	return out
}

type AsicExtractRecord struct {
	Id               Text                   `json:"id"`
	Type             Text                   `json:"type"`
	ExtractDate      Date                   `json:"extract_date"`
	CompanyName      Text                   `json:"company_name"`
	Acn              Text                   `json:"acn"`
	Abn              Text                   `json:"abn"`
	CompanyType      Text                   `json:"company_type"`
	CompanyClass     Text                   `json:"company_class"`
	CompanySubclass  Text                   `json:"company_subclass"`
	Status           Text                   `json:"status"`
	RegistrationDate Date                   `json:"date_of_registration"`
	ReviewDate       Date                   `json:"review_date"`
	RegisteredIn     Text                   `json:"registered_in"`
	Addresses        []AddressRecord        `json:"addresses"`
	ContactAddresses []AddressRecord        `json:"contact_addresses"`
	Directors        []OfficeholderRecord   `json:"directors"`
	Shareholders     []ShareholderRecord    `json:"shareholders"`
	ShareStructures  []ShareStructureRecord `json:"share_structures"`
	Documents        []DocumentRecord       `json:"documents"`
}

// AddressRecord decodes only from a JSON object; any other value leaves it
// absent instead of failing the owner.
type AddressRecord struct {
	Type         Text `json:"type"`
	CareOf       Text `json:"care_of"`
	AddressLine1 Text `json:"address_1"`
	AddressLine2 Text `json:"address_2"`
	Suburb       Text `json:"suburb"`
	State        Text `json:"state"`
	Postcode     Text `json:"postcode"`
	Country      Text `json:"country"`
	Status       Text `json:"status"`
	StartDate    Date `json:"start_date"`
	EndDate      Date `json:"end_date"`
	present      bool
}

func (a *AddressRecord) UnmarshalJSON(b []byte) error {
	*a = AddressRecord{}
	if firstByte(b) != '{' {
		return nil
	}
	type plain AddressRecord
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return nil
	}
	*a = AddressRecord(p)
	a.present = true
	return nil
}

// Present reports whether the payload carried an address object.
func (a *AddressRecord) Present() bool {
	return a != nil && a.present
}

// Format joins the non-empty parts into a single line.
func (a AddressRecord) Format() string {
	parts := make([]string, 0, 6)
	for _, t := range []Text{a.AddressLine1, a.AddressLine2, a.Suburb, a.State, a.Postcode, a.Country} {
		if t.Valid() {
			parts = append(parts, t.String())
		}
	}
	return strings.Join(parts, ", ")
}

// OfficeholderRecord is a director or, by Type, a secretary.
type OfficeholderRecord struct {
	Type            Text           `json:"type"`
	Name            Text           `json:"name"`
	DateOfBirth     Date           `json:"date_of_birth"`
	PlaceOfBirth    Text           `json:"place_of_birth"`
	AppointmentDate Date           `json:"appointment_date"`
	CeaseDate       Date           `json:"cease_date"`
	Status          Text           `json:"status"`
	Address         *AddressRecord `json:"address"`
}

type ShareholderRecord struct {
	Name              Text           `json:"name"`
	Acn               Text           `json:"acn"`
	Class             Text           `json:"class"`
	NumberHeld        Amount         `json:"number_held"`
	PercentageHeld    Amount         `json:"percentage_held"`
	BeneficiallyOwned Text           `json:"beneficially_owned"`
	FullyPaid         Text           `json:"fully_paid"`
	JointlyHeld       Text           `json:"jointly_held"`
	Address           *AddressRecord `json:"address"`
}

type ShareStructureRecord struct {
	Class            Text   `json:"class"`
	ClassDescription Text   `json:"class_description"`
	ShareCount       Amount `json:"share_count"`
	AmountPaid       Amount `json:"amount_paid"`
	AmountDue        Amount `json:"amount_due"`
	Status           Text   `json:"status"`
}

type DocumentRecord struct {
	DocumentNumber Text `json:"document_number"`
	FormCode       Text `json:"form_code"`
	Description    Text `json:"description"`
	DateReceived   Date `json:"date_received"`
	DateProcessed  Date `json:"date_processed"`
	EffectiveDate  Date `json:"effective_date"`
	NumberOfPages  Text `json:"number_of_pages"`
}

type CaseRecord struct {
	Uuid             Text                    `json:"uuid"`
	Number           Text                    `json:"number"`
	Name             Text                    `json:"name"`
	Type             Text                    `json:"type"`
	Status           Text                    `json:"status"`
	Jurisdiction     Text                    `json:"jurisdiction"`
	CourtName        Text                    `json:"court_name"`
	State            Text                    `json:"state"`
	Suburb           Text                    `json:"suburb"`
	Source           Text                    `json:"source"`
	MatterType       Text                    `json:"matter_type"`
	MostRecentEvent  Text                    `json:"most_recent_event"`
	NotificationTime Date                    `json:"notification_time"`
	NextHearingDate  Date                    `json:"next_hearing_date"`
	Parties          []CasePartyRecord       `json:"parties"`
	Hearings         []CaseHearingRecord     `json:"hearings"`
	Documents        []CaseDocumentRecord    `json:"documents"`
	Applications     []CaseApplicationRecord `json:"applications"`
	Judgments        []CaseJudgmentRecord    `json:"judgments"`
}

type CasePartyRecord struct {
	Name               Text `json:"name"`
	Role               Text `json:"role"`
	Type               Text `json:"type"`
	Abn                Text `json:"abn"`
	Acn                Text `json:"acn"`
	RepresentativeName Text `json:"representative_name"`
	RepresentativeFirm Text `json:"representative_firm"`
}

type CaseHearingRecord struct {
	Datetime     Date `json:"datetime"`
	Officer      Text `json:"officer"`
	CourtRoom    Text `json:"court_room"`
	CourtName    Text `json:"court_name"`
	CourtAddress Text `json:"court_address"`
	Type         Text `json:"type"`
	Outcome      Text `json:"outcome"`
}

type CaseDocumentRecord struct {
	Date        Date `json:"date"`
	Title       Text `json:"title"`
	Description Text `json:"description"`
	FiledBy     Text `json:"filed_by"`
}

type CaseApplicationRecord struct {
	Title         Text `json:"title"`
	Type          Text `json:"type"`
	Status        Text `json:"status"`
	DateFiled     Date `json:"date_filed"`
	DateFinalised Date `json:"date_finalised"`
}

type CaseJudgmentRecord struct {
	Date     Date `json:"date"`
	Title    Text `json:"title"`
	Officer  Text `json:"officer"`
	Citation Text `json:"citation"`
	Outcome  Text `json:"outcome"`
	Url      Text `json:"url"`
}

type InsolvencyRecord struct {
	Uuid          Text                    `json:"uuid"`
	Number        Text                    `json:"number"`
	Name          Text                    `json:"name"`
	Type          Text                    `json:"type"`
	NoticeType    Text                    `json:"notice_type"`
	Status        Text                    `json:"status"`
	Court         Text                    `json:"court"`
	PublishedDate Date                    `json:"published_date"`
	Url           Text                    `json:"url"`
	Parties       []InsolvencyPartyRecord `json:"parties"`
}

type InsolvencyPartyRecord struct {
	Name         Text `json:"name"`
	Role         Text `json:"role"`
	Abn          Text `json:"abn"`
	Acn          Text `json:"acn"`
	Practitioner Text `json:"practitioner"`
}

type TaxDebtRecord struct {
	Amount       Amount `json:"amount"`
	Status       Text   `json:"status"`
	AsAt         Date   `json:"as_at"`
	DateNotified Date   `json:"ato_added"`
	DateUpdated  Date   `json:"ato_updated"`
}
