package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/dronehub/backend/internal/domain/notification"
)

// defaultEmailAPIURL is a Brevo-compatible transactional endpoint
const defaultEmailAPIURL = "https://api.brevo.com/v3/smtp/email"

type apiContact struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type apiEmailRequest struct {
	Sender      apiContact   `json:"sender"`
	To          []apiContact `json:"to"`
	Subject     string       `json:"subject"`
	HTMLContent string       `json:"htmlContent,omitempty"`
	TextContent string       `json:"textContent,omitempty"`
}

type apiErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (m *Mailer) sendAPI(ctx context.Context, cfg *mailConfig, msg notification.Email) error {
	body := apiEmailRequest{
		Sender:      apiContact{Email: cfg.from, Name: cfg.fromName},
		Subject:     msg.Subject,
		HTMLContent: msg.HTML,
		TextContent: msg.Text,
	}
	for _, to := range msg.To {
		body.To = append(body.To, apiContact{Email: to})
	}

	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("mailer: failed to encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.apiURL, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("mailer: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("api-key", cfg.apiKey)

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return notification.ErrDeliveryFailed.WithMessage("email API: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		var e apiErrorResponse
		if json.Unmarshal(raw, &e) == nil && e.Message != "" {
			return notification.ErrDeliveryFailed.WithMessage("email API: HTTP %d %s: %s", resp.StatusCode, e.Code, e.Message)
		}
		return notification.ErrDeliveryFailed.WithMessage("email API: HTTP %d", resp.StatusCode)
	}
	return nil
}
