package payload

import (
	"encoding/json"
	"strings"
)

// PpsrReportPayload is the merged PPSR Cloud grantor search result. Every
// field is optional and nothing in it fails to decode.
type PpsrReportPayload struct {
	PpsrCloudId Text         `json:"ppsrCloudId"`
	Resource    PpsrResource `json:"resource"`
}

type PpsrResource struct {
	SearchCriteriaSummaries List[PpsrSearchSummary] `json:"searchCriteriaSummaries"`
	Items                   List[PpsrItemRecord]    `json:"items"`
}

func (r *PpsrResource) UnmarshalJSON(b []byte) error {
	*r = PpsrResource{}
	if firstByte(b) != '{' {
		return nil
	}
	type plain PpsrResource
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return nil
	}
	*r = PpsrResource(p)
	return nil
}

type PpsrSearchSummary struct {
	SearchNumber       Text                 `json:"searchNumber"`
	SearchType         Text                 `json:"searchType"`
	GrantorType        Text                 `json:"grantorType"`
	OrganisationNumber Text                 `json:"organisationNumber"`
	OrganisationName   Text                 `json:"organisationName"`
	SearchDate         Date                 `json:"searchDate"`
	ResultCount        Int                  `json:"resultCount"`
	Items              List[PpsrItemRecord] `json:"items"`
	// Raw is the summary as received, kept for the criteria column.
	Raw json.RawMessage `json:"-"`
}

func (s *PpsrSearchSummary) UnmarshalJSON(b []byte) error {
	*s = PpsrSearchSummary{}
	if firstByte(b) != '{' {
		return nil
	}
	type plain PpsrSearchSummary
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return nil
	}
	*s = PpsrSearchSummary(p)
	s.Raw = append(json.RawMessage(nil), b...)
	return nil
}

type PpsrItemRecord struct {
	SearchNumber             Text                         `json:"searchNumber"`
	RegistrationNumber       Text                         `json:"registrationNumber"`
	RegistrationKind         Text                         `json:"registrationKind"`
	CollateralClassType      Text                         `json:"collateralClassType"`
	CollateralType           Text                         `json:"collateralType"`
	CollateralDescription    Text                         `json:"collateralDescription"`
	RegistrationStartTime    Date                         `json:"registrationStartTime"`
	RegistrationEndTime      Date                         `json:"registrationEndTime"`
	RegistrationChangeTime   Date                         `json:"registrationChangeTime"`
	ChangeNumber             Text                         `json:"changeNumber"`
	GivingOfNoticeIdentifier Text                         `json:"givingOfNoticeIdentifier"`
	IsPmsi                   Bool                         `json:"isPMSI"`
	IsTransitional           Bool                         `json:"isTransitional"`
	IsMigrated               Bool                         `json:"isMigrated"`
	IsSubordinate            Bool                         `json:"isSubordinate"`
	AddressForService        *PpsrAddressForService       `json:"addressForService"`
	Grantors                 List[PpsrGrantorRecord]      `json:"grantors"`
	SecuredParties           List[PpsrSecuredPartyRecord] `json:"securedParties"`
}

type PpsrAddressForService struct {
	Addressee       Text        `json:"addressee"`
	EmailAddress    Text        `json:"emailAddress"`
	FaxNumber       Text        `json:"faxNumber"`
	MailingAddress  PpsrAddress `json:"mailingAddress"`
	PhysicalAddress PpsrAddress `json:"physicalAddress"`
	present         bool
}

func (a *PpsrAddressForService) UnmarshalJSON(b []byte) error {
	*a = PpsrAddressForService{}
	if firstByte(b) != '{' {
		return nil
	}
	type plain PpsrAddressForService
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return nil
	}
	*a = PpsrAddressForService(p)
	a.present = true
	return nil
}

func (a *PpsrAddressForService) Present() bool {
	return a != nil && a.present
}

// PpsrAddress is a structured address; a plain string is kept as Line1.
type PpsrAddress struct {
	Line1       Text `json:"line1"`
	Line2       Text `json:"line2"`
	Line3       Text `json:"line3"`
	Locality    Text `json:"locality"`
	State       Text `json:"state"`
	Postcode    Text `json:"postcode"`
	CountryName Text `json:"countryName"`
}

func (a *PpsrAddress) UnmarshalJSON(b []byte) error {
	*a = PpsrAddress{}
	switch firstByte(b) {
	case '"':
		_ = a.Line1.UnmarshalJSON(b)
	case '{':
		type plain PpsrAddress
		var p plain
		if err := json.Unmarshal(b, &p); err != nil {
			return nil
		}
		*a = PpsrAddress(p)
	}
	return nil
}

// Format joins the non-empty parts; empty when the address is absent.
func (a PpsrAddress) Format() string {
	parts := make([]string, 0, 7)
	for _, t := range []Text{a.Line1, a.Line2, a.Line3, a.Locality, a.State, a.Postcode, a.CountryName} {
		if t.Valid() {
			parts = append(parts, t.String())
		}
	}
	return strings.Join(parts, ", ")
}

type PpsrGrantorRecord struct {
	GrantorType            Text `json:"grantorType"`
	OrganisationName       Text `json:"organisationName"`
	OrganisationNumber     Text `json:"organisationNumber"`
	OrganisationNumberType Text `json:"organisationNumberType"`
	IndividualGivenNames   Text `json:"individualGivenNames"`
	IndividualFamilyName   Text `json:"individualFamilyName"`
	IndividualDateOfBirth  Date `json:"individualDateOfBirth"`
}

type PpsrSecuredPartyRecord struct {
	SecuredPartyType       Text `json:"securedPartyType"`
	OrganisationName       Text `json:"organisationName"`
	OrganisationNumber     Text `json:"organisationNumber"`
	OrganisationNumberType Text `json:"organisationNumberType"`
	IndividualGivenNames   Text `json:"individualGivenNames"`
	IndividualFamilyName   Text `json:"individualFamilyName"`
}

// PpsrSearchGroup is one search to persist with the items attributed to it.
type PpsrSearchGroup struct {
	Summary   PpsrSearchSummary
	Items     []PpsrItemRecord
	Synthetic bool
}

// Groups attributes items to summaries. A summary keeps its nested items;
// top-level items join the summary with the same searchNumber, else the
// first summary, unless that group already holds the registration. With no
// summaries, one synthetic search owns every item.
func (p *PpsrReportPayload) Groups() []PpsrSearchGroup {
	summaries := p.Resource.SearchCriteriaSummaries
	if len(summaries) == 0 {
		if len(p.Resource.Items) == 0 {
			return nil
		}
		return []PpsrSearchGroup{{Items: append([]PpsrItemRecord(nil), p.Resource.Items...), Synthetic: true}}
	}

	groups := make([]PpsrSearchGroup, len(summaries))
	bySearchNumber := make(map[string]int, len(summaries))
	for i, s := range summaries {
		groups[i] = PpsrSearchGroup{Summary: s, Items: append([]PpsrItemRecord(nil), s.Items...)}
		if s.SearchNumber.Valid() {
			if _, seen := bySearchNumber[s.SearchNumber.String()]; !seen {
				bySearchNumber[s.SearchNumber.String()] = i
			}
		}
	}
	for _, item := range p.Resource.Items {
		idx := 0
		if item.SearchNumber.Valid() {
			if i, ok := bySearchNumber[item.SearchNumber.String()]; ok {
				idx = i
			}
		}
		if hasRegistration(groups[idx].Items, item.RegistrationNumber) {
			continue
		}
		groups[idx].Items = append(groups[idx].Items, item)
	}
	return groups
}

func hasRegistration(items []PpsrItemRecord, number Text) bool {
	if !number.Valid() {
		return false
	}
	for _, it := range items {
		if it.RegistrationNumber.Valid() && it.RegistrationNumber.String() == number.String() {
			return true
		}
	}
	return false
}
