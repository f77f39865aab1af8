// Package reporttype maps free-form requested report types onto the
// (category, subtype) pair used for cache matching and storage tagging.
package reporttype

import "strings"

const (
	CategoryASIC               = "ASIC"
	CategoryCourt              = "COURT"
	CategoryATO                = "ATO"
	CategoryLandTitle          = "LAND TITLE"
	CategoryPPSR               = "PPSR"
	CategoryProperty           = "PROPERTY"
	CategoryDirectorPPSR       = "DIRECTOR PPSR"
	CategoryDirectorBankruptcy = "DIRECTOR BANKRUPTCY"
	CategoryDirectorProperty   = "DIRECTOR PROPERTY"
	CategoryDirectorRelated    = "DIRECTOR RELATED"
)

const (
	SubtypeCurrent        = "Current"
	SubtypeHistorical     = "Historical"
	SubtypeCompany        = "Company"
	SubtypePersonal       = "Personal"
	SubtypeDocumentSearch = "Document Search"
)

// Classification is the normalized report type. Subtype is empty for
// categories that have none. Category is empty for a bare director request.
type Classification struct {
	Category string `json:"category"`
	Subtype  string `json:"subtype,omitempty"`
	// Fallback is set when no keyword matched and Category echoes the input.
	Fallback bool `json:"-"`
}

func (c Classification) Known() bool {
	return c.Category != ""
}

func (c Classification) String() string {
	if c.Subtype == "" {
		return c.Category
	}
	return c.Category + " " + c.Subtype
}

// UsesPpsrCloud reports whether the report is produced by a PPSR Cloud
// grantor search rather than the Alares report API.
func (c Classification) UsesPpsrCloud() bool {
	return c.Category == CategoryPPSR
}

// Classify never fails; the first matching keyword wins. Director requests are
// checked before ppsr and property so "director ppsr" stays a director report.
func Classify(rawType string) Classification {
	s := strings.ToLower(rawType)

	switch {
	case strings.Contains(s, "asic"):
		return Classification{Category: CategoryASIC, Subtype: asicSubtype(s)}
	case strings.Contains(s, "court"):
		return Classification{Category: CategoryCourt}
	case strings.Contains(s, "ato"):
		return Classification{Category: CategoryATO}
	case strings.Contains(s, "land"):
		return Classification{Category: CategoryLandTitle}
	case strings.Contains(s, "director"):
		return Classification{Category: directorCategory(s)}
	case strings.Contains(s, "ppsr"):
		return Classification{Category: CategoryPPSR}
	case strings.Contains(s, "property"):
		return Classification{Category: CategoryProperty}
	}
	return Classification{Category: strings.ToUpper(rawType), Fallback: true}
}

func asicSubtype(s string) string {
	switch {
	case strings.Contains(s, "historical"):
		return SubtypeHistorical
	case strings.Contains(s, "current"):
		return SubtypeCurrent
	case strings.Contains(s, "company"):
		return SubtypeCompany
	case strings.Contains(s, "personal"):
		return SubtypePersonal
	case strings.Contains(s, "document"):
		return SubtypeDocumentSearch
	}
	return SubtypeCurrent
}

func directorCategory(s string) string {
	switch {
	case strings.Contains(s, "ppsr"):
		return CategoryDirectorPPSR
	case strings.Contains(s, "bankruptcy"):
		return CategoryDirectorBankruptcy
	case strings.Contains(s, "property"):
		return CategoryDirectorProperty
	case strings.Contains(s, "related"):
		return CategoryDirectorRelated
	}
	return ""
}
