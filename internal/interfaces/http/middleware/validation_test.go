package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dronehub/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type contactForm struct {
	Email     string `json:"email" binding:"required,email"`
	Phone     string `json:"phone" binding:"required,phone"`
	VATNumber string `json:"vat_number" binding:"omitempty,vat_id"`
	Quantity  int    `json:"quantity" binding:"required,min=1,max=999"`
}

func validationRouter() *gin.Engine {
	SetupValidator()
	r := gin.New()
	r.POST("/form", func(c *gin.Context) {
		var req contactForm
		if err := c.ShouldBindJSON(&req); err != nil {
			HandleValidationError(c, err)
			return
		}
		c.Status(http.StatusOK)
	})
	return r
}

func postForm(t *testing.T, r *gin.Engine, body string) (int, dto.Response) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/form", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(RequestIDKey, "req-9")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var resp dto.Response
	if w.Code != http.StatusOK {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	}
	return w.Code, resp
}

func TestValidation_ShopTags(t *testing.T) {
	r := validationRouter()

	tests := []struct {
		name   string
		body   string
		fields []string
	}{
		{"valid with spaced phone and vat", `{"email":"jan@example.pl","phone":"+48 600-700-800","vat_number":"de 123.456.789","quantity":2}`, nil},
		{"valid without vat", `{"email":"jan@example.pl","phone":"600700800","quantity":1}`, nil},
		{"short phone", `{"email":"jan@example.pl","phone":"12345","quantity":1}`, []string{"phone"}},
		{"vat without prefix", `{"email":"jan@example.pl","phone":"600700800","vat_number":"123456789","quantity":1}`, []string{"vat_number"}},
		{"everything wrong", `{"email":"x","phone":"abc","quantity":0}`, []string{"email", "phone", "quantity"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, resp := postForm(t, r, tt.body)
			if tt.fields == nil {
				assert.Equal(t, http.StatusOK, code)
				return
			}
			assert.Equal(t, http.StatusBadRequest, code)
			require.NotNil(t, resp.Error)
			assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
			assert.Equal(t, "req-9", resp.Error.RequestID)
			var got []string
			for _, d := range resp.Error.Details {
				got = append(got, d.Field)
			}
			assert.ElementsMatch(t, tt.fields, got)
		})
	}
}

func TestValidation_Messages(t *testing.T) {
	r := validationRouter()

	_, resp := postForm(t, r, `{"email":"jan@example.pl","phone":"600700800","vat_number":"12","quantity":1000}`)
	require.NotNil(t, resp.Error)
	msgs := map[string]string{}
	for _, d := range resp.Error.Details {
		msgs[d.Field] = d.Message
	}
	assert.Equal(t, "Must be at most 999", msgs["quantity"])
	assert.Contains(t, msgs["vat_number"], "country prefix")
}

type shippingForm struct {
	PostalCode  string `json:"postal_code" binding:"postcode_pl"`
	CountryCode string `json:"country_code"`
}

func TestValidation_PolishPostcode(t *testing.T) {
	SetupValidator()
	r := gin.New()
	r.POST("/ship", func(c *gin.Context) {
		var req shippingForm
		if err := c.ShouldBindJSON(&req); err != nil {
			HandleValidationError(c, err)
			return
		}
		c.Status(http.StatusOK)
	})

	tests := []struct {
		body string
		want int
	}{
		{`{"postal_code":"31-147"}`, http.StatusOK},
		{`{"postal_code":"31-147","country_code":"pl"}`, http.StatusOK},
		{`{"postal_code":"31147"}`, http.StatusBadRequest},
		{`{"postal_code":"31147","country_code":"PL"}`, http.StatusBadRequest},
		{`{"postal_code":"10115","country_code":"DE"}`, http.StatusOK},
		{`{}`, http.StatusOK},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodPost, "/ship", strings.NewReader(tt.body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, tt.want, w.Code, tt.body)
	}
}

func TestSetupValidator_Idempotent(t *testing.T) {
	assert.NotPanics(t, func() {
		SetupValidator()
		SetupValidator()
	})
}
