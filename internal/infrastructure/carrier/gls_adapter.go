package carrier

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dronehub/backend/internal/domain/order"
	"github.com/dronehub/backend/internal/domain/setting"
	"github.com/dronehub/backend/internal/domain/shipping"
	"github.com/dronehub/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// GLSAdapter creates shipments through the GLS Poland ADE SOAP API.
// Every operation opens its own session and logs out afterwards.
type GLSAdapter struct {
	settings   setting.Reader
	httpClient *http.Client
	logger     *zap.Logger
}

type glsConfig struct {
	apiURL   string
	username string
	password string
}

// NewGLSAdapter creates a new GLS adapter
func NewGLSAdapter(settings setting.Reader, httpClient *http.Client, logger *zap.Logger) *GLSAdapter {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &GLSAdapter{settings: settings, httpClient: httpClient, logger: logger}
}

// Name returns the carrier identifier
func (a *GLSAdapter) Name() order.Carrier {
	return order.CarrierGLS
}

func (a *GLSAdapter) loadConfig(ctx context.Context) (*glsConfig, error) {
	v, err := a.settings.GetPrefix(ctx, setting.PrefixGLS)
	if err != nil {
		return nil, fmt.Errorf("gls: failed to read settings: %w", err)
	}
	if !v.Bool(setting.GLSEnabled) {
		return nil, shipping.ErrCarrierDisabled.WithMessage("GLS integration is disabled (%s)", setting.GLSEnabled)
	}
	if missing := v.Missing(setting.GLSUsername, setting.GLSPassword); len(missing) > 0 {
		return nil, shipping.ErrCarrierNotConfigured.WithMessage("GLS is missing settings: %s", strings.Join(missing, ", "))
	}
	return &glsConfig{
		apiURL:   v.String(setting.GLSAPIURL, glsDefaultAPIURL),
		username: v.String(setting.GLSUsername, ""),
		password: v.String(setting.GLSPassword, ""),
	}, nil
}

// CreateShipment puts a consignment into the GLS preparing box and reads
// back the parcel number GLS assigned, which is the tracking number.
// The consignment id is the shipment id used for labels.
func (a *GLSAdapter) CreateShipment(ctx context.Context, req shipping.Request) (*shipping.Shipment, error) {
	consign, err := a.buildConsign(req)
	if err != nil {
		return nil, err
	}
	cfg, err := a.loadConfig(ctx)
	if err != nil {
		return nil, err
	}

	a.logger.Info("Creating GLS consignment",
		zap.Int64("order_number", req.Order.Number),
		zap.Bool("cod", consign.Services != nil))

	var id, tracking string
	err = a.withSession(ctx, cfg, func(session string) error {
		resp, err := a.call(ctx, cfg, glsInsertRequest{Session: session, Consign: *consign})
		if err != nil {
			return err
		}
		if resp.Body.Insert == nil || resp.Body.Insert.ID == "" {
			return shipping.ErrCarrierRejected.WithMessage("GLS: response has no consignment id")
		}
		id = resp.Body.Insert.ID

		resp, err = a.call(ctx, cfg, glsConsignRequest{Session: session, ID: id})
		if err != nil {
			return fmt.Errorf("gls: consignment %s created but not readable: %w", id, err)
		}
		tracking = resp.Body.Consign.parcelNumber()
		if tracking == "" {
			return shipping.ErrCarrierRejected.WithMessage("GLS: consignment %s has no parcel number", id)
		}
		return nil
	})
	if err != nil {
		a.logger.Error("Failed to create GLS consignment",
			zap.Int64("order_number", req.Order.Number),
			zap.Error(err))
		return nil, err
	}

	a.logger.Info("Created GLS consignment",
		zap.Int64("order_number", req.Order.Number),
		zap.String("consignment_id", id),
		zap.String("tracking_number", tracking))

	return &shipping.Shipment{
		Carrier:        order.CarrierGLS,
		ShipmentID:     id,
		TrackingNumber: tracking,
		Status:         "prepared",
	}, nil
}

func (a *GLSAdapter) buildConsign(req shipping.Request) (*glsConsign, error) {
	o := req.Order
	if o == nil {
		return nil, fmt.Errorf("gls: order is required")
	}
	if req.Mode == shipping.ModeLocker || o.Address.Kind != order.AddressKindStreet || o.Address.Street == nil {
		return nil, shipping.ErrInvalidParcel.WithMessage("GLS delivers to street addresses only")
	}
	if !req.Parcel.WeightKg.IsPositive() {
		return nil, shipping.ErrInvalidParcel.WithMessage("GLS parcels need a positive weight")
	}
	if req.Parcel.Size != "" {
		if _, err := req.Parcel.ResolveDimensions(); err != nil {
			return nil, err
		}
	}

	r, s := o.Address.Recipient, o.Address.Street
	ref := req.Reference
	if ref == "" {
		ref = o.DisplayNumber()
	}
	c := &glsConsign{
		RName1:     r.Name,
		RName2:     r.Company,
		RCountry:   s.CountryCode,
		RZipcode:   s.PostalCode,
		RCity:      s.City,
		RStreet:    s.Line1(),
		RPhone:     r.Phone,
		RContact:   r.Email,
		References: ref,
		Quantity:   1,
		Weight:     req.Parcel.WeightKg.StringFixed(2),
	}
	if req.CODAmount != nil && req.CODAmount.IsPositive() {
		c.Services = &glsServices{COD: 1, CODAmount: req.CODAmount.StringFixed(2)}
	}
	return c, nil
}

// GetLabel downloads the PDF label of a consignment
func (a *GLSAdapter) GetLabel(ctx context.Context, shipmentID string) (*shipping.Label, error) {
	if shipmentID == "" {
		return nil, shipping.ErrNoShipment
	}
	cfg, err := a.loadConfig(ctx)
	if err != nil {
		return nil, err
	}

	var pdf []byte
	err = a.withSession(ctx, cfg, func(session string) error {
		resp, err := a.call(ctx, cfg, glsLabelsRequest{Session: session, ID: shipmentID, Mode: glsLabelMode})
		if err != nil {
			return err
		}
		if resp.Body.Labels == nil || strings.TrimSpace(resp.Body.Labels.Labels) == "" {
			return shipping.ErrLabelUnavailable.WithMessage("GLS: no label for consignment %s", shipmentID)
		}
		pdf, err = base64.StdEncoding.DecodeString(strings.TrimSpace(resp.Body.Labels.Labels))
		if err != nil {
			return shipping.ErrLabelUnavailable.WithMessage("GLS: label is not valid base64: %v", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &shipping.Label{ContentType: "application/pdf", Data: pdf}, nil
}

// withSession logs in, runs fn and always logs out
func (a *GLSAdapter) withSession(ctx context.Context, cfg *glsConfig, fn func(session string) error) error {
	resp, err := a.call(ctx, cfg, glsLoginRequest{Username: cfg.username, Password: cfg.password})
	if err != nil {
		return err
	}
	if resp.Body.Login == nil || resp.Body.Login.Session == "" {
		return shipping.ErrCarrierRejected.WithMessage("GLS: login returned no session")
	}
	session := resp.Body.Login.Session

	defer func() {
		if _, err := a.call(context.WithoutCancel(ctx), cfg, glsLogoutRequest{Session: session}); err != nil {
			a.logger.Warn("GLS logout failed", zap.Error(err))
		}
	}()
	return fn(session)
}

func (a *GLSAdapter) call(ctx context.Context, cfg *glsConfig, content any) (*glsResponse, error) {
	ctx, span := telemetry.StartClientSpan(ctx, "gls", soapAction(content))
	defer span.End()

	out, err := a.post(ctx, cfg, content)
	telemetry.RecordError(span, err)
	return out, err
}

// post sends one SOAP request. Faults are carrier rejections, transport problems are outages.
func (a *GLSAdapter) post(ctx context.Context, cfg *glsConfig, content any) (*glsResponse, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	if err := xml.NewEncoder(&buf).Encode(newGLSEnvelope(content)); err != nil {
		return nil, fmt.Errorf("gls: failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.apiURL, &buf)
	if err != nil {
		return nil, fmt.Errorf("gls: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	req.Header.Set("SOAPAction", soapAction(content))

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, shipping.ErrCarrierUnavailable.WithMessage("GLS: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 20<<20))
	if err != nil {
		return nil, shipping.ErrCarrierUnavailable.WithMessage("GLS: failed to read response: %v", err)
	}

	var out glsResponse
	if err := xml.Unmarshal(body, &out); err != nil {
		return nil, shipping.ErrCarrierUnavailable.WithMessage("GLS: HTTP %d, unreadable response", resp.StatusCode)
	}
	if f := out.Body.Fault; f != nil {
		return nil, shipping.ErrCarrierRejected.WithMessage("GLS: %s (%s)", strings.TrimSpace(f.String), strings.TrimSpace(f.Code))
	}
	if resp.StatusCode >= 400 {
		return nil, shipping.ErrCarrierUnavailable.WithMessage("GLS: HTTP %d", resp.StatusCode)
	}
	return &out, nil
}

func soapAction(content any) string {
	switch content.(type) {
	case glsLoginRequest:
		return "adeLogin"
	case glsLogoutRequest:
		return "adeLogout"
	case glsInsertRequest:
		return "adePreparingBox_Insert"
	case glsLabelsRequest:
		return "adePreparingBox_GetConsignLabels"
	case glsConsignRequest:
		return "adePreparingBox_GetConsign"
	}
	return ""
}

var _ shipping.Carrier = (*GLSAdapter)(nil)
