// Package tax validates EU VAT numbers and decides the intra-community exemption.
package tax

import (
	"context"
	"errors"

	"github.com/dronehub/backend/internal/domain/tax"
	"go.uber.org/zap"
)

// Exemption is the checkout-time VAT decision for a buyer
type Exemption struct {
	// VATNumber is the normalized number, empty when none was given
	VATNumber string
	Exempt    bool
	// Verified is false when VIES could not answer
	Verified bool
}

// Service validates VAT numbers against VIES
type Service struct {
	registry    tax.Registry
	homeCountry string
	logger      *zap.Logger
}

// NewService creates the VAT service. homeCountry defaults to PL.
func NewService(registry tax.Registry, homeCountry string, logger *zap.Logger) *Service {
	if homeCountry == "" {
		homeCountry = tax.HomeCountry
	}
	return &Service{registry: registry, homeCountry: homeCountry, logger: logger}
}

// Validate normalizes raw and asks VIES. Format and prefix errors are returned before any network call.
func (s *Service) Validate(ctx context.Context, raw string) (*tax.Result, error) {
	n, err := tax.ParseVATNumber(raw)
	if err != nil {
		return nil, err
	}
	reg, err := s.registry.Check(ctx, n)
	if err != nil {
		s.logger.Warn("VIES check failed",
			zap.String("vat_number", n.String()),
			zap.Error(err))
		return nil, err
	}
	res := tax.Evaluate(n, *reg, s.homeCountry)
	s.logger.Info("VIES check completed",
		zap.String("vat_number", n.String()),
		zap.Bool("valid", res.Valid),
		zap.Bool("vat_exempt", res.VATExempt))
	return &res, nil
}

// ExemptionFor decides whether an order is VAT exempt. A malformed number is an error;
// an unreachable VIES is not, and the order is taxed.
func (s *Service) ExemptionFor(ctx context.Context, raw string) (Exemption, error) {
	if raw == "" {
		return Exemption{}, nil
	}
	n, err := tax.ParseVATNumber(raw)
	if err != nil {
		return Exemption{}, err
	}
	res, err := s.Validate(ctx, n.String())
	if err != nil {
		if errors.Is(err, tax.ErrVIESUnavailable) {
			return Exemption{VATNumber: n.String()}, nil
		}
		if errors.Is(err, tax.ErrVIESRejectedInput) {
			return Exemption{VATNumber: n.String(), Verified: true}, nil
		}
		return Exemption{}, err
	}
	return Exemption{VATNumber: n.String(), Exempt: res.VATExempt, Verified: true}, nil
}
