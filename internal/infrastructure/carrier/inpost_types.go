package carrier

// ShipX API payloads

type inpostAddress struct {
	Street         string `json:"street"`
	BuildingNumber string `json:"building_number"`
	City           string `json:"city"`
	PostCode       string `json:"post_code"`
	CountryCode    string `json:"country_code"`
}

type inpostPeer struct {
	Name        string         `json:"name,omitempty"`
	CompanyName string         `json:"company_name,omitempty"`
	FirstName   string         `json:"first_name,omitempty"`
	LastName    string         `json:"last_name,omitempty"`
	Email       string         `json:"email"`
	Phone       string         `json:"phone"`
	Address     *inpostAddress `json:"address,omitempty"`
}

type inpostDimensions struct {
	Length string `json:"length"`
	Width  string `json:"width"`
	Height string `json:"height"`
	Unit   string `json:"unit"`
}

type inpostWeight struct {
	Amount string `json:"amount"`
	Unit   string `json:"unit"`
}

type inpostParcel struct {
	Template   string            `json:"template,omitempty"`
	Dimensions *inpostDimensions `json:"dimensions,omitempty"`
	Weight     *inpostWeight     `json:"weight,omitempty"`
}

type inpostMoney struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

type inpostShipmentRequest struct {
	Receiver         inpostPeer        `json:"receiver"`
	Sender           *inpostPeer       `json:"sender,omitempty"`
	Parcels          []inpostParcel    `json:"parcels"`
	CustomAttributes map[string]string `json:"custom_attributes,omitempty"`
	COD              *inpostMoney      `json:"cod,omitempty"`
	Insurance        *inpostMoney      `json:"insurance,omitempty"`
	Service          string            `json:"service"`
	Reference        string            `json:"reference,omitempty"`
}

type inpostShipmentResponse struct {
	ID             int64  `json:"id"`
	Status         string `json:"status"`
	TrackingNumber string `json:"tracking_number"`
	Href           string `json:"href"`
}

type inpostErrorResponse struct {
	Status      int            `json:"status"`
	Error       string         `json:"error"`
	Message     string         `json:"message"`
	Description string         `json:"description"`
	Details     map[string]any `json:"details"`
}

const (
	inpostServiceLocker  = "inpost_locker_standard"
	inpostServiceCourier = "inpost_courier_standard"

	inpostDefaultAPIURL        = "https://api-shipx-pl.easypack24.net"
	inpostDefaultSendingMethod = "dispatch_order"
)

// ShipX locker templates per gauge
var inpostTemplates = map[string]string{
	"A": "small",
	"B": "medium",
	"C": "large",
}
