// Package printing renders HTML documents to PDF with headless Chrome.
package printing

import (
	"context"
	"time"

	"github.com/dronehub/backend/internal/domain/shared"
)

// A4 in millimetres
const (
	A4WidthMM  = 210.0
	A4HeightMM = 297.0
)

// Margins in millimetres
type Margins struct {
	Top    float64
	Right  float64
	Bottom float64
	Left   float64
}

// DefaultMargins are 12 mm on every side
func DefaultMargins() Margins {
	return Margins{Top: 12, Right: 12, Bottom: 12, Left: 12}
}

// RenderRequest contains the parameters for rendering HTML to PDF
type RenderRequest struct {
	HTML      string
	Title     string
	Landscape bool
	Margins   Margins
	// FooterHTML is a Chrome footer template, e.g. with <span class="pageNumber">
	FooterHTML string
	// Timeout overrides the renderer default
	Timeout time.Duration
}

// RenderResult contains the output from PDF rendering
type RenderResult struct {
	PDFData        []byte
	RenderDuration time.Duration
}

// PDFRenderer converts HTML to PDF
type PDFRenderer interface {
	Render(ctx context.Context, req *RenderRequest) (*RenderResult, error)
	Close() error
}

// Rendering errors
var (
	ErrRenderDisabled = shared.NewDomainError("PDF_DISABLED", "PDF rendering is disabled")
	ErrRenderTimeout  = shared.NewDomainError("PDF_RENDER_TIMEOUT", "PDF rendering timed out")
	ErrRenderFailed   = shared.NewDomainError("PDF_RENDER_FAILED", "PDF rendering failed")
	ErrEmptyDocument  = shared.NewDomainError("INVALID_DOCUMENT", "HTML content is empty")
)

// DisabledRenderer is used when pdf.enabled is false
type DisabledRenderer struct{}

func (DisabledRenderer) Render(context.Context, *RenderRequest) (*RenderResult, error) {
	return nil, ErrRenderDisabled
}

func (DisabledRenderer) Close() error { return nil }

var _ PDFRenderer = DisabledRenderer{}
