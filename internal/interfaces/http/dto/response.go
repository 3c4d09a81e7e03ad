package dto

// Response is the envelope of every JSON answer. Success is false whenever
// Error is set.
type Response struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorInfo `json:"error,omitempty"`
	Meta    *Meta      `json:"meta,omitempty"`
}

type ErrorInfo struct {
	Code      string             `json:"code"`
	Message   string             `json:"message"`
	RequestID string             `json:"request_id,omitempty"`
	Details   []ValidationDetail `json:"details,omitempty"`
}

// ValidationDetail names one rejected field
type ValidationDetail struct {
	Field   string `json:"field"`
	Tag     string `json:"tag,omitempty"`
	Message string `json:"message"`
}

// Meta describes one page of a list
type Meta struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalPages int   `json:"total_pages"`
}

func pageMeta(total int64, page, size int) *Meta {
	m := &Meta{Total: total, Page: page, PageSize: size}
	if size > 0 {
		m.TotalPages = int((total + int64(size) - 1) / int64(size))
	}
	return m
}

func OK(data any) Response { return Response{Success: true, Data: data} }

// Paged wraps one page of results with its pagination meta
func Paged(data any, total int64, page, pageSize int) Response {
	return Response{Success: true, Data: data, Meta: pageMeta(total, page, pageSize)}
}

func Fail(code, message, requestID string) Response {
	return Response{Error: &ErrorInfo{Code: code, Message: message, RequestID: requestID}}
}

// Invalid reports a request that failed binding, one detail per field
func Invalid(message, requestID string, details []ValidationDetail) Response {
	r := Fail(ErrCodeValidation, message, requestID)
	r.Error.Details = details
	return r
}

// ListRequest is the query string shared by list endpoints
type ListRequest struct {
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy  string `form:"order_by"`
	OrderDir string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
	Search   string `form:"search"`
}
