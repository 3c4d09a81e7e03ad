package handler

import "github.com/dronehub/backend/internal/interfaces/http/dto"

// APIResponse is the envelope every shop endpoint answers with. It mirrors
// dto.Response with a concrete Data type so swag can render it.
type APIResponse[T any] struct {
	Success bool           `json:"success"`
	Data    T              `json:"data,omitempty"`
	Error   *dto.ErrorInfo `json:"error,omitempty"`
	Meta    *dto.Meta      `json:"meta,omitempty"`
}

// ErrorResponse documents the failure envelope.
type ErrorResponse struct {
	Success bool           `json:"success" example:"false"`
	Error   *dto.ErrorInfo `json:"error"`
}
