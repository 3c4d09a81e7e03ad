package order

// PaymentMethod is how the customer pays.
// Card, Przelewy24 and BLIK go through a Stripe hosted checkout session.
type PaymentMethod string

const (
	PaymentMethodCard PaymentMethod = "card"
	PaymentMethodP24  PaymentMethod = "p24"
	PaymentMethodBLIK PaymentMethod = "blik"
	PaymentMethodCOD  PaymentMethod = "cod"
)

// IsValid reports whether m is supported
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCard, PaymentMethodP24, PaymentMethodBLIK, PaymentMethodCOD:
		return true
	}
	return false
}

// IsOnline reports whether the method needs a payment session
func (m PaymentMethod) IsOnline() bool {
	return m.IsValid() && m != PaymentMethodCOD
}

// Carrier identifies a shipping company
type Carrier string

const (
	CarrierInPost Carrier = "inpost"
	CarrierGLS    Carrier = "gls"
)

// IsValid reports whether c is a known carrier
func (c Carrier) IsValid() bool {
	return c == CarrierInPost || c == CarrierGLS
}

// ShippingMethod is the delivery option chosen at checkout
type ShippingMethod string

const (
	ShippingInPostLocker  ShippingMethod = "inpost_locker"
	ShippingInPostCourier ShippingMethod = "inpost_courier"
	ShippingGLSCourier    ShippingMethod = "gls_courier"
)

// IsValid reports whether m is offered
func (m ShippingMethod) IsValid() bool {
	switch m {
	case ShippingInPostLocker, ShippingInPostCourier, ShippingGLSCourier:
		return true
	}
	return false
}

// Carrier returns the carrier that fulfils m
func (m ShippingMethod) Carrier() Carrier {
	if m == ShippingGLSCourier {
		return CarrierGLS
	}
	return CarrierInPost
}

// RequiresLocker reports whether the parcel goes to a parcel locker
func (m ShippingMethod) RequiresLocker() bool {
	return m == ShippingInPostLocker
}
