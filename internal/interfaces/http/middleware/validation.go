package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/dronehub/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// RequestIDKey is the context key for request ID
const RequestIDKey = "X-Request-ID"

var (
	vatIDPattern = regexp.MustCompile(`^[A-Z]{2}[0-9A-Z+*]{2,13}$`)
	phonePattern = regexp.MustCompile(`^\+?[0-9]{9,15}$`)
	plPostcode   = regexp.MustCompile(`^\d{2}-\d{3}$`)
	setupOnce    sync.Once
)

// SetupValidator reports JSON field names in errors and registers the shop
// tags: vat_id (two letter prefix plus 2..13 characters, spaces and dots
// ignored), phone (9..15 digits, optional leading plus, separators ignored)
// and postcode_pl (NN-NNN unless a sibling CountryCode names another country).
// Safe to call more than once.
func SetupValidator() {
	setupOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				name = strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
			}
			return name
		})
		_ = v.RegisterValidation("vat_id", func(fl validator.FieldLevel) bool {
			return vatIDPattern.MatchString(compact(strings.ToUpper(fl.Field().String()), " .-"))
		})
		_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
			return phonePattern.MatchString(compact(fl.Field().String(), " -()"))
		})
		_ = v.RegisterValidation("postcode_pl", validatePolishPostcode)
	})
}

func validatePolishPostcode(fl validator.FieldLevel) bool {
	code := strings.TrimSpace(fl.Field().String())
	if code == "" {
		return true
	}
	if parent := fl.Parent(); parent.Kind() == reflect.Struct {
		if country := parent.FieldByName("CountryCode"); country.IsValid() && country.Kind() == reflect.String {
			if cc := strings.ToUpper(strings.TrimSpace(country.String())); cc != "" && cc != "PL" {
				return true
			}
		}
	}
	return plPostcode.MatchString(code)
}

func compact(s, cutset string) string {
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(cutset, r) {
			return -1
		}
		return r
	}, s)
}

// validationMessages maps a tag to its message; %s is the tag parameter.
// Length tags on strings count characters, see lengthTags.
var validationMessages = map[string]string{
	"required":    "This field is required",
	"required_if": "This field is required for the selected option",
	"email":       "Invalid email format",
	"uuid":        "Invalid UUID format",
	"url":         "Invalid URL format",
	"min":         "Must be at least %s",
	"max":         "Must be at most %s",
	"len":         "Must be exactly %s characters",
	"oneof":       "Must be one of: %s",
	"gte":         "Must be greater than or equal to %s",
	"lte":         "Must be less than or equal to %s",
	"gt":          "Must be greater than %s",
	"lt":          "Must be less than %s",
	"numeric":     "Must be numeric",
	"alphanum":    "Must be alphanumeric",
	"alpha":       "Must contain only letters",
	"datetime":    "Must be a date formatted as %s",
	"dive":        "Invalid list item",
	"postcode_pl": "Must be a Polish postal code, e.g. 31-147",
	"vat_id":      "Must be a VAT number with a country prefix, e.g. DE123456789",
	"phone":       "Must be a phone number",
}

var lengthTags = map[string]bool{"min": true, "max": true}

func validationMessage(e validator.FieldError) string {
	msg, ok := validationMessages[e.Tag()]
	if !ok {
		return "Invalid value"
	}
	if strings.Contains(msg, "%s") {
		msg = fmt.Sprintf(msg, e.Param())
	}
	if lengthTags[e.Tag()] && e.Type().Kind() == reflect.String {
		msg += " characters"
	}
	return msg
}

// FormatValidationErrors lists one detail per failed field
func FormatValidationErrors(err error, requestID string) dto.Response {
	var details []dto.ValidationDetail
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		for _, e := range fieldErrs {
			details = append(details, dto.ValidationDetail{Field: e.Field(), Message: validationMessage(e)})
		}
	}
	return dto.Invalid("Request validation failed", requestID, details)
}

// HandleValidationError answers 400 with the field details
func HandleValidationError(c *gin.Context, err error) {
	requestID := c.GetString("request_id")
	if requestID == "" {
		requestID = c.GetHeader(RequestIDKey)
	}
	c.JSON(http.StatusBadRequest, FormatValidationErrors(err, requestID))
}
