package carrier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dronehub/backend/internal/domain/order"
	"github.com/dronehub/backend/internal/domain/setting"
	"github.com/dronehub/backend/internal/domain/shipping"
	"github.com/dronehub/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// InPostAdapter creates shipments through the InPost ShipX REST API.
// Credentials are read from the setting store on every call so that
// operators can rotate them without a restart.
type InPostAdapter struct {
	settings   setting.Reader
	httpClient *http.Client
	logger     *zap.Logger
}

type inpostConfig struct {
	apiURL         string
	token          string
	organizationID string
	sendingMethod  string
	senderEmail    string
	senderPhone    string
}

// NewInPostAdapter creates a new InPost adapter
func NewInPostAdapter(settings setting.Reader, httpClient *http.Client, logger *zap.Logger) *InPostAdapter {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &InPostAdapter{settings: settings, httpClient: httpClient, logger: logger}
}

// Name returns the carrier identifier
func (a *InPostAdapter) Name() order.Carrier {
	return order.CarrierInPost
}

func (a *InPostAdapter) loadConfig(ctx context.Context) (*inpostConfig, error) {
	v, err := a.settings.GetPrefix(ctx, setting.PrefixInPost)
	if err != nil {
		return nil, fmt.Errorf("inpost: failed to read settings: %w", err)
	}
	if !v.Bool(setting.InPostEnabled) {
		return nil, shipping.ErrCarrierDisabled.WithMessage("InPost integration is disabled (%s)", setting.InPostEnabled)
	}
	if missing := v.Missing(setting.InPostAPIToken, setting.InPostOrganizationID); len(missing) > 0 {
		return nil, shipping.ErrCarrierNotConfigured.WithMessage("InPost is missing settings: %s", strings.Join(missing, ", "))
	}
	return &inpostConfig{
		apiURL:         strings.TrimRight(v.String(setting.InPostAPIURL, inpostDefaultAPIURL), "/"),
		token:          v.String(setting.InPostAPIToken, ""),
		organizationID: v.String(setting.InPostOrganizationID, ""),
		sendingMethod:  v.String(setting.InPostSendingMethod, inpostDefaultSendingMethod),
		senderEmail:    v.String(setting.InPostSenderEmail, ""),
		senderPhone:    v.String(setting.InPostSenderPhone, ""),
	}, nil
}

// CreateShipment registers a parcel. Locker mode targets the order's parcel locker,
// address mode sends a courier to the order's street address.
func (a *InPostAdapter) CreateShipment(ctx context.Context, req shipping.Request) (*shipping.Shipment, error) {
	body, err := a.buildRequest(req)
	if err != nil {
		return nil, err
	}
	cfg, err := a.loadConfig(ctx)
	if err != nil {
		return nil, err
	}
	if body.Service == inpostServiceLocker {
		body.CustomAttributes["sending_method"] = cfg.sendingMethod
	}
	if cfg.senderEmail != "" || cfg.senderPhone != "" {
		body.Sender = &inpostPeer{Email: cfg.senderEmail, Phone: cfg.senderPhone}
	}

	a.logger.Info("Creating InPost shipment",
		zap.Int64("order_number", req.Order.Number),
		zap.String("service", body.Service))

	path := fmt.Sprintf("/v1/organizations/%s/shipments", cfg.organizationID)
	raw, err := a.doRequest(ctx, cfg, http.MethodPost, path, body, "application/json")
	if err != nil {
		a.logger.Error("Failed to create InPost shipment",
			zap.Int64("order_number", req.Order.Number),
			zap.Error(err))
		return nil, err
	}

	var resp inpostShipmentResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, shipping.ErrCarrierUnavailable.WithMessage("InPost: unreadable response: %v", err)
	}
	if resp.ID == 0 {
		return nil, shipping.ErrCarrierRejected.WithMessage("InPost: response has no shipment id")
	}

	a.logger.Info("Created InPost shipment",
		zap.Int64("order_number", req.Order.Number),
		zap.Int64("shipment_id", resp.ID),
		zap.String("status", resp.Status))

	return &shipping.Shipment{
		Carrier:        order.CarrierInPost,
		ShipmentID:     strconv.FormatInt(resp.ID, 10),
		TrackingNumber: resp.TrackingNumber,
		Status:         resp.Status,
		Href:           resp.Href,
	}, nil
}

func (a *InPostAdapter) buildRequest(req shipping.Request) (*inpostShipmentRequest, error) {
	o := req.Order
	if o == nil {
		return nil, fmt.Errorf("inpost: order is required")
	}
	mode := req.Mode
	if mode == "" {
		mode = shipping.ModeAddress
		if o.ShippingMethod.RequiresLocker() {
			mode = shipping.ModeLocker
		}
	}

	r := o.Address.Recipient
	first, last := splitName(r.Name)
	body := &inpostShipmentRequest{
		Receiver: inpostPeer{
			Name:        r.Name,
			CompanyName: r.Company,
			FirstName:   first,
			LastName:    last,
			Email:       r.Email,
			Phone:       localPhone(r.Phone),
		},
		CustomAttributes: map[string]string{},
		Reference:        req.Reference,
	}
	if body.Reference == "" {
		body.Reference = o.DisplayNumber()
	}

	switch mode {
	case shipping.ModeLocker:
		if o.Address.LockerID == "" {
			return nil, order.ErrLockerIDRequired
		}
		template, ok := inpostTemplates[string(req.Parcel.Size)]
		if !ok {
			return nil, shipping.ErrInvalidParcel.WithMessage("parcel locker shipments use size A, B or C")
		}
		body.Service = inpostServiceLocker
		body.CustomAttributes["target_point"] = o.Address.LockerID
		body.Parcels = []inpostParcel{{Template: template}}
	case shipping.ModeAddress:
		s := o.Address.Street
		if s == nil {
			return nil, order.ErrInvalidAddress.WithMessage("courier delivery needs a street address")
		}
		dims, err := req.Parcel.ResolveDimensions()
		if err != nil {
			return nil, err
		}
		weight := req.Parcel.WeightKg
		if !weight.IsPositive() {
			return nil, shipping.ErrInvalidParcel.WithMessage("courier parcels need a positive weight")
		}
		building := s.BuildingNumber
		if s.FlatNumber != "" {
			building += "/" + s.FlatNumber
		}
		body.Service = inpostServiceCourier
		body.Receiver.Address = &inpostAddress{
			Street:         s.Street,
			BuildingNumber: building,
			City:           s.City,
			PostCode:       s.PostalCode,
			CountryCode:    s.CountryCode,
		}
		body.Parcels = []inpostParcel{{
			Dimensions: &inpostDimensions{
				Length: strconv.Itoa(dims.Length),
				Width:  strconv.Itoa(dims.Width),
				Height: strconv.Itoa(dims.Height),
				Unit:   "mm",
			},
			Weight: &inpostWeight{Amount: weight.StringFixed(2), Unit: "kg"},
		}}
	default:
		return nil, shipping.ErrInvalidParcel.WithMessage("unknown delivery mode %q", mode)
	}

	if req.CODAmount != nil && req.CODAmount.IsPositive() {
		amount := req.CODAmount.StringFixed(2)
		body.COD = &inpostMoney{Amount: amount, Currency: "PLN"}
		// ShipX requires insurance covering the COD amount
		body.Insurance = &inpostMoney{Amount: amount, Currency: "PLN"}
	}
	return body, nil
}

// GetLabel downloads the PDF label of a shipment
func (a *InPostAdapter) GetLabel(ctx context.Context, shipmentID string) (*shipping.Label, error) {
	if shipmentID == "" {
		return nil, shipping.ErrNoShipment
	}
	cfg, err := a.loadConfig(ctx)
	if err != nil {
		return nil, err
	}
	path := fmt.Sprintf("/v1/shipments/%s/label?format=pdf&type=A6", shipmentID)
	raw, err := a.doRequest(ctx, cfg, http.MethodGet, path, nil, "application/pdf")
	if err != nil {
		return nil, err
	}
	if !bytes.HasPrefix(raw, []byte("%PDF")) {
		return nil, shipping.ErrLabelUnavailable.WithMessage("InPost: label for shipment %s is not ready", shipmentID)
	}
	return &shipping.Label{ContentType: "application/pdf", Data: raw}, nil
}

// doRequest performs an authenticated call to the ShipX API
func (a *InPostAdapter) doRequest(ctx context.Context, cfg *inpostConfig, method, path string, body any, accept string) ([]byte, error) {
	ctx, span := telemetry.StartClientSpan(ctx, "inpost", strings.ToLower(method))
	defer span.End()
	telemetry.SetAttributes(span, "http.path", path)

	data, err := a.send(ctx, cfg, method, path, body, accept)
	telemetry.RecordError(span, err)
	return data, err
}

func (a *InPostAdapter) send(ctx context.Context, cfg *inpostConfig, method, path string, body any, accept string) ([]byte, error) {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("inpost: failed to encode request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, cfg.apiURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("inpost: failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+cfg.token)
	req.Header.Set("Accept", accept)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, shipping.ErrCarrierUnavailable.WithMessage("InPost: %v", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, shipping.ErrCarrierUnavailable.WithMessage("InPost: failed to read response: %v", err)
	}

	if resp.StatusCode >= 500 {
		return nil, shipping.ErrCarrierUnavailable.WithMessage("InPost: HTTP %d", resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		return nil, shipping.ErrCarrierRejected.WithMessage("InPost: %s", describeInPostError(resp.StatusCode, respBody))
	}
	return respBody, nil
}

// describeInPostError flattens a ShipX validation error into one line
func describeInPostError(status int, body []byte) string {
	var e inpostErrorResponse
	if err := json.Unmarshal(body, &e); err != nil || (e.Error == "" && e.Message == "") {
		return fmt.Sprintf("HTTP %d", status)
	}
	msg := e.Message
	if msg == "" {
		msg = e.Description
	}
	if msg == "" {
		msg = e.Error
	}
	if len(e.Details) > 0 {
		keys := make([]string, 0, len(e.Details))
		for k := range e.Details {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s: %v", k, e.Details[k]))
		}
		msg += " (" + strings.Join(parts, "; ") + ")"
	}
	return msg
}

func splitName(full string) (string, string) {
	full = strings.TrimSpace(full)
	if i := strings.LastIndex(full, " "); i > 0 {
		return full[:i], full[i+1:]
	}
	return full, ""
}

// localPhone strips the Polish country code, ShipX expects 9 digits
func localPhone(p string) string {
	p = strings.TrimPrefix(p, "+48")
	if len(p) == 11 && strings.HasPrefix(p, "48") {
		p = p[2:]
	}
	return p
}

var _ shipping.Carrier = (*InPostAdapter)(nil)
