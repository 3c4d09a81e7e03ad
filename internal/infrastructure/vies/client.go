package vies

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dronehub/backend/internal/domain/tax"
	"github.com/dronehub/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

const (
	DefaultURL = "https://ec.europa.eu/taxation_customs/vies/services/checkVatService"

	soapNamespace  = "http://schemas.xmlsoap.org/soap/envelope/"
	typesNamespace = "urn:ec.europa.eu:taxud:vies:services:checkVat:types"
)

// Client queries the EU VIES checkVat SOAP service
type Client struct {
	url        string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a VIES client. An empty url means the public service.
func NewClient(url string, httpClient *http.Client, logger *zap.Logger) *Client {
	if url == "" {
		url = DefaultURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{url: url, httpClient: httpClient, logger: logger}
}

type checkVatEnvelope struct {
	XMLName xml.Name `xml:"soapenv:Envelope"`
	SoapNS  string   `xml:"xmlns:soapenv,attr"`
	TypesNS string   `xml:"xmlns:urn,attr"`
	Body    struct {
		CheckVat struct {
			CountryCode string `xml:"urn:countryCode"`
			VATNumber   string `xml:"urn:vatNumber"`
		} `xml:"urn:checkVat"`
	} `xml:"soapenv:Body"`
}

type checkVatResponse struct {
	XMLName xml.Name `xml:"Envelope"`
	Body    struct {
		Fault *struct {
			Code   string `xml:"faultcode"`
			String string `xml:"faultstring"`
		} `xml:"Fault"`
		Result *struct {
			CountryCode string `xml:"countryCode"`
			VATNumber   string `xml:"vatNumber"`
			RequestDate string `xml:"requestDate"`
			Valid       bool   `xml:"valid"`
			Name        string `xml:"name"`
			Address     string `xml:"address"`
		} `xml:"checkVatResponse"`
	} `xml:"Body"`
}

// Fault strings VIES returns when a member state registry cannot answer
var unavailableFaults = map[string]bool{
	"SERVICE_UNAVAILABLE":       true,
	"MS_UNAVAILABLE":            true,
	"TIMEOUT":                   true,
	"MS_MAX_CONCURRENT_REQ":     true,
	"GLOBAL_MAX_CONCURRENT_REQ": true,
	"SERVER_BUSY":               true,
}

// Check asks VIES whether n is registered
func (c *Client) Check(ctx context.Context, n tax.VATNumber) (*tax.Registration, error) {
	ctx, span := telemetry.StartClientSpan(ctx, "vies", "check_vat")
	defer span.End()
	telemetry.SetAttributes(span, "vat.country", n.CountryCode)

	reg, err := c.check(ctx, n)
	telemetry.RecordError(span, err)
	return reg, err
}

func (c *Client) check(ctx context.Context, n tax.VATNumber) (*tax.Registration, error) {
	env := checkVatEnvelope{SoapNS: soapNamespace, TypesNS: typesNamespace}
	env.Body.CheckVat.CountryCode = n.CountryCode
	env.Body.CheckVat.VATNumber = n.Number

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	if err := xml.NewEncoder(&buf).Encode(env); err != nil {
		return nil, fmt.Errorf("vies: failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, &buf)
	if err != nil {
		return nil, fmt.Errorf("vies: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	req.Header.Set("SOAPAction", "")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("VIES request failed", zap.String("country", n.CountryCode), zap.Error(err))
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, tax.ErrVIESUnavailable.Wrap(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, tax.ErrVIESUnavailable.Wrap(err)
	}

	var out checkVatResponse
	if err := xml.Unmarshal(body, &out); err != nil {
		c.logger.Warn("Unreadable VIES response",
			zap.Int("status", resp.StatusCode),
			zap.Error(err))
		return nil, tax.ErrVIESUnavailable.WithMessage("VIES returned an unreadable response (HTTP %d)", resp.StatusCode)
	}
	if f := out.Body.Fault; f != nil {
		fault := strings.TrimSpace(f.String)
		c.logger.Info("VIES fault", zap.String("country", n.CountryCode), zap.String("fault", fault))
		if unavailableFaults[fault] {
			return nil, tax.ErrVIESUnavailable.WithMessage("VIES is unavailable: %s", fault)
		}
		if fault == "INVALID_INPUT" {
			return nil, tax.ErrVIESRejectedInput
		}
		return nil, tax.ErrVIESUnavailable.WithMessage("VIES fault: %s", fault)
	}
	if out.Body.Result == nil {
		return nil, tax.ErrVIESUnavailable.WithMessage("VIES response has no result (HTTP %d)", resp.StatusCode)
	}

	r := out.Body.Result
	c.logger.Debug("VIES answered",
		zap.String("country", r.CountryCode),
		zap.Bool("valid", r.Valid),
		zap.Duration("took", time.Since(start)))

	return &tax.Registration{
		CountryCode: strings.TrimSpace(r.CountryCode),
		Number:      strings.TrimSpace(r.VATNumber),
		Valid:       r.Valid,
		Name:        optional(r.Name),
		Address:     optional(r.Address),
		RequestDate: parseRequestDate(r.RequestDate),
	}, nil
}

// optional maps VIES placeholders ("---" or empty) to nil
func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" || s == "---" {
		return nil
	}
	return &s
}

// parseRequestDate reads the xsd:date VIES returns, e.g. "2024-05-06+02:00"
func parseRequestDate(s string) time.Time {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"2006-01-02-07:00", "2006-01-02Z07:00", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Now()
}

var _ tax.Registry = (*Client)(nil)
