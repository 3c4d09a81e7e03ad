package tax

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/dronehub/backend/internal/domain/shared"
)

// HomeCountry is the seller's VAT country
const HomeCountry = "PL"

// euPrefixes are the VAT prefixes VIES answers for. Greece uses EL, Northern Ireland XI.
var euPrefixes = map[string]string{
	"AT": "Austria", "BE": "Belgium", "BG": "Bulgaria", "CY": "Cyprus", "CZ": "Czechia",
	"DE": "Germany", "DK": "Denmark", "EE": "Estonia", "EL": "Greece", "ES": "Spain",
	"FI": "Finland", "FR": "France", "HR": "Croatia", "HU": "Hungary", "IE": "Ireland",
	"IT": "Italy", "LT": "Lithuania", "LU": "Luxembourg", "LV": "Latvia", "MT": "Malta",
	"NL": "Netherlands", "PL": "Poland", "PT": "Portugal", "RO": "Romania", "SE": "Sweden",
	"SI": "Slovenia", "SK": "Slovakia", "XI": "Northern Ireland",
}

var numberPattern = regexp.MustCompile(`^[0-9A-Z+*]{2,12}$`)

// VATNumber is a normalized EU VAT identifier split into prefix and number
type VATNumber struct {
	CountryCode string
	Number      string
}

// String renders "DE123456789"
func (v VATNumber) String() string {
	return v.CountryCode + v.Number
}

// ParseVATNumber normalizes raw input and checks the country prefix.
// Spaces, dots and dashes are stripped; "GR" is accepted as an alias of "EL".
func ParseVATNumber(raw string) (VATNumber, error) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	s = strings.NewReplacer(" ", "", ".", "", "-", "", "\t", "").Replace(s)
	if len(s) < 4 {
		return VATNumber{}, ErrInvalidVATFormat
	}
	prefix, number := s[:2], s[2:]
	if prefix == "GR" {
		prefix = "EL"
	}
	if prefix[0] < 'A' || prefix[0] > 'Z' || prefix[1] < 'A' || prefix[1] > 'Z' {
		return VATNumber{}, ErrMissingCountryPrefix
	}
	if _, ok := euPrefixes[prefix]; !ok {
		return VATNumber{}, ErrNonEUPrefix.WithMessage("%s is not an EU VAT prefix", prefix)
	}
	if !numberPattern.MatchString(number) {
		return VATNumber{}, ErrInvalidVATFormat
	}
	return VATNumber{CountryCode: prefix, Number: number}, nil
}

// IsEUPrefix reports whether code is a VIES country prefix
func IsEUPrefix(code string) bool {
	_, ok := euPrefixes[strings.ToUpper(code)]
	return ok
}

// Registration is what the VIES registry says about a number
type Registration struct {
	CountryCode string
	Number      string
	Valid       bool
	Name        *string
	Address     *string
	RequestDate time.Time
}

// Result is the validation answer returned to callers
type Result struct {
	CountryCode string
	VATNumber   string
	Valid       bool
	Name        *string
	Address     *string
	VATExempt   bool
	CheckedAt   time.Time
}

// Evaluate derives the intra-community exemption for the requested number.
// Country and number come from the request, never from the registry echo:
// exempt means valid AND a country other than the seller's. An echo naming
// another country is treated as not exempt.
func Evaluate(requested VATNumber, reg Registration, homeCountry string) Result {
	echoed := strings.ToUpper(strings.TrimSpace(reg.CountryCode))
	consistent := echoed == "" || echoed == requested.CountryCode
	return Result{
		CountryCode: requested.CountryCode,
		VATNumber:   requested.Number,
		Valid:       reg.Valid,
		Name:        reg.Name,
		Address:     reg.Address,
		VATExempt:   reg.Valid && consistent && requested.CountryCode != homeCountry,
		CheckedAt:   time.Now(),
	}
}

// Registry checks VAT numbers against an external register
type Registry interface {
	Check(ctx context.Context, n VATNumber) (*Registration, error)
}

var (
	ErrInvalidVATFormat     = shared.NewDomainError("INVALID_VAT_NUMBER", "VAT number format is invalid")
	ErrMissingCountryPrefix = shared.NewDomainError("INVALID_VAT_NUMBER", "VAT number must start with a country prefix")
	ErrNonEUPrefix          = shared.NewDomainError("NON_EU_VAT_PREFIX", "VAT number prefix is not an EU member state")
	ErrVIESUnavailable      = shared.NewDomainError("VIES_UNAVAILABLE", "VIES service is temporarily unavailable")
	ErrVIESRejectedInput    = shared.NewDomainError("INVALID_VAT_NUMBER", "VIES rejected the VAT number")
)
