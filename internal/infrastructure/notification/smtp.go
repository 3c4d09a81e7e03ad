package notification

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"mime"
	"mime/quotedprintable"
	"net"
	"net/mail"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/dronehub/backend/internal/domain/notification"
)

type smtpSendFunc func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error

func defaultSMTPSend(addr string, auth smtp.Auth, from string, to []string, msg []byte) error {
	return smtp.SendMail(addr, auth, from, to, msg)
}

func (m *Mailer) sendSMTP(cfg *mailConfig, msg notification.Email) error {
	addr := net.JoinHostPort(cfg.smtpHost, strconv.Itoa(cfg.smtpPort))
	var auth smtp.Auth
	if cfg.smtpUser != "" {
		auth = smtp.PlainAuth("", cfg.smtpUser, cfg.smtpPass, cfg.smtpHost)
	}

	raw, err := buildMIME(cfg.from, cfg.fromName, msg)
	if err != nil {
		return err
	}
	if err := m.smtpSend(addr, auth, cfg.from, msg.To, raw); err != nil {
		return notification.ErrDeliveryFailed.WithMessage("SMTP %s: %v", addr, err)
	}
	return nil
}

// buildMIME renders a multipart/alternative message with text and HTML parts
func buildMIME(from, fromName string, msg notification.Email) ([]byte, error) {
	boundary, err := randomBoundary()
	if err != nil {
		return nil, err
	}

	var b bytes.Buffer
	sender := mail.Address{Name: fromName, Address: from}
	b.WriteString("From: " + sender.String() + "\r\n")
	b.WriteString("To: " + strings.Join(msg.To, ", ") + "\r\n")
	b.WriteString("Subject: " + mime.QEncoding.Encode("utf-8", msg.Subject) + "\r\n")
	b.WriteString("Date: " + time.Now().Format(time.RFC1123Z) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString(`Content-Type: multipart/alternative; boundary="` + boundary + "\"\r\n\r\n")

	parts := []struct{ contentType, body string }{
		{"text/plain", msg.Text},
		{"text/html", msg.HTML},
	}
	for _, p := range parts {
		if p.body == "" {
			continue
		}
		b.WriteString("--" + boundary + "\r\n")
		b.WriteString("Content-Type: " + p.contentType + "; charset=UTF-8\r\n")
		b.WriteString("Content-Transfer-Encoding: quoted-printable\r\n\r\n")
		w := quotedprintable.NewWriter(&b)
		if _, err := w.Write([]byte(p.body)); err != nil {
			return nil, fmt.Errorf("mailer: failed to encode body: %w", err)
		}
		if err := w.Close(); err != nil {
			return nil, fmt.Errorf("mailer: failed to encode body: %w", err)
		}
		b.WriteString("\r\n")
	}
	b.WriteString("--" + boundary + "--\r\n")
	return b.Bytes(), nil
}

func randomBoundary() (string, error) {
	buf := make([]byte, 12)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("mailer: failed to create boundary: %w", err)
	}
	return "dh-" + hex.EncodeToString(buf), nil
}
