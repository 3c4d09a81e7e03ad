package shipping

import (
	"context"

	"github.com/dronehub/backend/internal/domain/order"
	"github.com/dronehub/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// PackageSize is a parcel size preset. A, B and C are the parcel locker gauges.
type PackageSize string

const (
	SizeA      PackageSize = "A"
	SizeB      PackageSize = "B"
	SizeC      PackageSize = "C"
	SizeCustom PackageSize = "custom"
)

// Dimensions are in millimetres
type Dimensions struct {
	Length int `json:"length"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

var presets = map[PackageSize]Dimensions{
	SizeA: {Length: 640, Width: 380, Height: 80},
	SizeB: {Length: 640, Width: 380, Height: 190},
	SizeC: {Length: 640, Width: 380, Height: 410},
}

// Mode is where the carrier delivers
type Mode string

const (
	ModeLocker  Mode = "locker"
	ModeAddress Mode = "address"
)

// Parcel describes the physical package
type Parcel struct {
	Size       PackageSize
	Dimensions *Dimensions
	WeightKg   decimal.Decimal
}

// ResolveDimensions maps the preset to fixed dimensions, or validates custom ones
func (p Parcel) ResolveDimensions() (Dimensions, error) {
	if p.Size == SizeCustom {
		if p.Dimensions == nil || p.Dimensions.Length <= 0 || p.Dimensions.Width <= 0 || p.Dimensions.Height <= 0 {
			return Dimensions{}, ErrInvalidParcel.WithMessage("custom parcel needs positive length, width and height")
		}
		return *p.Dimensions, nil
	}
	d, ok := presets[p.Size]
	if !ok {
		return Dimensions{}, ErrInvalidParcel.WithMessage("unknown package size %q", p.Size)
	}
	return d, nil
}

// Request is what a carrier adapter needs to create a shipment
type Request struct {
	Order     *order.Order
	Mode      Mode
	Parcel    Parcel
	CODAmount *decimal.Decimal
	Reference string
}

// Shipment is the carrier's answer
type Shipment struct {
	Carrier        order.Carrier
	ShipmentID     string
	TrackingNumber string
	Status         string
	Href           string
}

// Label is a printable shipping label
type Label struct {
	ContentType string
	Data        []byte
}

// Carrier creates shipments with one courier company
type Carrier interface {
	Name() order.Carrier
	CreateShipment(ctx context.Context, req Request) (*Shipment, error)
	GetLabel(ctx context.Context, shipmentID string) (*Label, error)
}

// TrackingURL returns the public tracking page of a parcel
func TrackingURL(c order.Carrier, tracking string) string {
	if tracking == "" {
		return ""
	}
	switch c {
	case order.CarrierInPost:
		return "https://inpost.pl/sledzenie-przesylek?number=" + tracking
	case order.CarrierGLS:
		return "https://gls-group.com/PL/pl/sledzenie-paczek?match=" + tracking
	}
	return ""
}

// Shipping errors. The messages are shown to operators verbatim.
var (
	ErrCarrierDisabled      = shared.NewDomainError("CARRIER_DISABLED", "Carrier integration is disabled")
	ErrCarrierNotConfigured = shared.NewDomainError("CARRIER_NOT_CONFIGURED", "Carrier credentials are missing")
	ErrCarrierRejected      = shared.NewDomainError("CARRIER_REJECTED", "Carrier rejected the shipment")
	ErrCarrierUnavailable   = shared.NewDomainError("CARRIER_UNAVAILABLE", "Carrier API is unavailable")
	ErrInvalidParcel        = shared.NewDomainError("INVALID_PARCEL", "Invalid parcel")
	ErrUnknownCarrier       = shared.NewDomainError("UNKNOWN_CARRIER", "Unknown carrier")
	ErrNoShipment           = shared.NewDomainError("NO_SHIPMENT", "Order has no shipment yet")
	ErrLabelUnavailable     = shared.NewDomainError("LABEL_UNAVAILABLE", "Label is not available")
)
