package order

import (
	"regexp"
	"strings"

	"github.com/dronehub/backend/internal/domain/shared"
)

// AddressKind discriminates the ShippingAddress union
type AddressKind string

const (
	AddressKindStreet AddressKind = "street"
	AddressKindLocker AddressKind = "locker"
)

var (
	plPostalCode = regexp.MustCompile(`^\d{2}-\d{3}$`)
	lockerID     = regexp.MustCompile(`^[A-Z0-9]{3,16}$`)
	emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
)

// Recipient is the person receiving the parcel
type Recipient struct {
	Name    string
	Company string
	Email   string
	Phone   string
}

// StreetAddress is a postal delivery address
type StreetAddress struct {
	Street         string
	BuildingNumber string
	FlatNumber     string
	PostalCode     string
	City           string
	CountryCode    string
}

// Line1 renders "Street 12/3"
func (a StreetAddress) Line1() string {
	s := strings.TrimSpace(a.Street + " " + a.BuildingNumber)
	if a.FlatNumber != "" {
		s += "/" + a.FlatNumber
	}
	return s
}

// ShippingAddress is either a street address or a parcel locker.
// Exactly one of Street and LockerID is set, according to Kind.
type ShippingAddress struct {
	Kind      AddressKind
	Recipient Recipient
	Street    *StreetAddress
	LockerID  string
}

// NewStreetShippingAddress builds a street variant
func NewStreetShippingAddress(r Recipient, a StreetAddress) (ShippingAddress, error) {
	addr := ShippingAddress{Kind: AddressKindStreet, Recipient: r, Street: &a}
	return addr.normalized()
}

// NewLockerShippingAddress builds a locker variant
func NewLockerShippingAddress(r Recipient, locker string) (ShippingAddress, error) {
	addr := ShippingAddress{Kind: AddressKindLocker, Recipient: r, LockerID: locker}
	return addr.normalized()
}

func (a ShippingAddress) normalized() (ShippingAddress, error) {
	a.Recipient.Name = strings.TrimSpace(a.Recipient.Name)
	a.Recipient.Email = strings.ToLower(strings.TrimSpace(a.Recipient.Email))
	a.Recipient.Phone = normalizePhone(a.Recipient.Phone)
	if a.Street != nil {
		s := *a.Street
		s.CountryCode = strings.ToUpper(strings.TrimSpace(s.CountryCode))
		if s.CountryCode == "" {
			s.CountryCode = "PL"
		}
		s.PostalCode = strings.TrimSpace(s.PostalCode)
		a.Street = &s
	}
	a.LockerID = strings.ToUpper(strings.TrimSpace(a.LockerID))
	return a, a.Validate()
}

// Validate checks the union is well formed
func (a ShippingAddress) Validate() error {
	if a.Recipient.Name == "" {
		return ErrInvalidAddress.WithMessage("recipient name is required")
	}
	if !emailPattern.MatchString(a.Recipient.Email) {
		return ErrInvalidAddress.WithMessage("a valid recipient email is required")
	}
	if len(a.Recipient.Phone) < 9 {
		return ErrInvalidAddress.WithMessage("recipient phone is required")
	}
	switch a.Kind {
	case AddressKindLocker:
		if a.LockerID == "" {
			return ErrLockerIDRequired
		}
		if !lockerID.MatchString(a.LockerID) {
			return ErrInvalidAddress.WithMessage("invalid parcel locker id %q", a.LockerID)
		}
		if a.Street != nil {
			return ErrInvalidAddress.WithMessage("locker address cannot carry a street address")
		}
	case AddressKindStreet:
		if a.Street == nil {
			return ErrInvalidAddress.WithMessage("street address is required")
		}
		s := a.Street
		if s.Street == "" || s.BuildingNumber == "" || s.City == "" || s.PostalCode == "" {
			return ErrInvalidAddress.WithMessage("street, building number, postal code and city are required")
		}
		if s.CountryCode == "PL" && !plPostalCode.MatchString(s.PostalCode) {
			return ErrInvalidAddress.WithMessage("postal code must look like 00-000")
		}
	default:
		return ErrInvalidAddress.WithMessage("unknown address kind %q", a.Kind)
	}
	return nil
}

// CompatibleWith checks the address variant against the shipping method
func (a ShippingAddress) CompatibleWith(m ShippingMethod) error {
	if m.RequiresLocker() && a.Kind != AddressKindLocker {
		return ErrLockerIDRequired
	}
	if !m.RequiresLocker() && a.Kind != AddressKindStreet {
		return ErrInvalidAddress.WithMessage("%s delivers to a street address", m)
	}
	return nil
}

// normalizePhone keeps digits and a leading plus
func normalizePhone(p string) string {
	var b strings.Builder
	for i, r := range strings.TrimSpace(p) {
		if (r >= '0' && r <= '9') || (r == '+' && i == 0) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

var (
	ErrInvalidAddress   = shared.NewDomainError("INVALID_ADDRESS", "Invalid shipping address")
	ErrLockerIDRequired = shared.NewDomainError("LOCKER_ID_REQUIRED", "Parcel locker delivery requires a locker id")
)
