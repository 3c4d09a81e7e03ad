package catalog

import (
	"strings"

	"github.com/dronehub/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Review is a customer rating of a product. New reviews wait for admin approval.
type Review struct {
	shared.BaseEntity
	ProductID  uuid.UUID
	UserID     *uuid.UUID
	AuthorName string
	Rating     int
	Comment    string
	IsApproved bool
}

// NewReview validates and creates an unapproved review
func NewReview(productID uuid.UUID, userID *uuid.UUID, author string, rating int, comment string) (*Review, error) {
	if rating < 1 || rating > 5 {
		return nil, ErrInvalidRating
	}
	author = strings.TrimSpace(author)
	if author == "" {
		return nil, shared.ErrInvalidInput.WithMessage("author name is required")
	}
	if len(comment) > 4000 {
		return nil, shared.ErrInvalidInput.WithMessage("comment cannot exceed 4000 characters")
	}
	return &Review{
		BaseEntity: shared.NewBaseEntity(),
		ProductID:  productID,
		UserID:     userID,
		AuthorName: author,
		Rating:     rating,
		Comment:    strings.TrimSpace(comment),
	}, nil
}

// Approve publishes the review
func (r *Review) Approve() {
	r.IsApproved = true
	r.Touch()
}
