package handler

import (
	"context"
	"time"

	"github.com/dronehub/backend/internal/domain/tax"
	"github.com/gin-gonic/gin"
)

// VATValidator checks EU VAT numbers against VIES
type VATValidator interface {
	Validate(ctx context.Context, raw string) (*tax.Result, error)
}

// VATHandler exposes VAT number validation to the storefront
type VATHandler struct {
	BaseHandler
	validator VATValidator
}

// NewVATHandler creates a new VAT handler
func NewVATHandler(validator VATValidator) *VATHandler {
	return &VATHandler{validator: validator}
}

// VATValidateRequest carries the number as typed by the buyer
type VATValidateRequest struct {
	VATNumber string `json:"vat_number" binding:"required,vat_id"`
}

// VATValidateResponse is the VIES answer; name and address are absent when VIES withholds them
type VATValidateResponse struct {
	CountryCode string    `json:"country_code"`
	VATNumber   string    `json:"vat_number"`
	IsValid     bool      `json:"is_valid"`
	Name        *string   `json:"name"`
	Address     *string   `json:"address"`
	VATExempt   bool      `json:"vat_exempt"`
	CheckedAt   time.Time `json:"checked_at"`
}

// Validate godoc
// @ID           validateVAT
// @Summary      Validate an EU VAT number
// @Description  Non-EU prefixes are rejected without calling VIES.
// @Description  A valid non-PL number makes the order exempt from Polish VAT.
// @Tags         vat
// @Accept       json
// @Produce      json
// @Param        request body VATValidateRequest true "VAT number"
// @Success      200 {object} APIResponse[VATValidateResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      503 {object} ErrorResponse
// @Router       /vat/validate [post]
func (h *VATHandler) Validate(c *gin.Context) {
	var req VATValidateRequest
	if !h.bindJSON(c, &req) {
		return
	}
	res, err := h.validator.Validate(c.Request.Context(), req.VATNumber)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, VATValidateResponse{
		CountryCode: res.CountryCode,
		VATNumber:   res.VATNumber,
		IsValid:     res.Valid,
		Name:        res.Name,
		Address:     res.Address,
		VATExempt:   res.VATExempt,
		CheckedAt:   res.CheckedAt,
	})
}
