package catalog

import (
	"context"

	"github.com/dronehub/backend/internal/domain/catalog"
	"github.com/dronehub/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ReviewService handles product reviews and their moderation
type ReviewService struct {
	reviews  catalog.ReviewRepository
	products catalog.ProductRepository
	logger   *zap.Logger
}

// NewReviewService creates a new ReviewService
func NewReviewService(reviews catalog.ReviewRepository, products catalog.ProductRepository, logger *zap.Logger) *ReviewService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReviewService{reviews: reviews, products: products, logger: logger}
}

// ListApproved returns the published reviews of a product
func (s *ReviewService) ListApproved(ctx context.Context, productID uuid.UUID) ([]ReviewResponse, error) {
	reviews, err := s.reviews.ListByProduct(ctx, productID, true)
	if err != nil {
		return nil, err
	}
	return toReviewResponses(reviews), nil
}

// Create stores a review that waits for approval
func (s *ReviewService) Create(ctx context.Context, productID uuid.UUID, userID *uuid.UUID, req ReviewRequest) (*ReviewResponse, error) {
	p, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !p.IsActive {
		return nil, catalog.ErrProductNotFound
	}
	r, err := catalog.NewReview(p.ID, userID, req.AuthorName, req.Rating, req.Comment)
	if err != nil {
		return nil, err
	}
	if err := s.reviews.Save(ctx, r); err != nil {
		return nil, err
	}
	s.logger.Info("Review submitted", zap.String("product_id", p.ID.String()), zap.Int("rating", r.Rating))
	resp := ToReviewResponse(r)
	return &resp, nil
}

// ListPending returns reviews waiting for moderation, oldest first
func (s *ReviewService) ListPending(ctx context.Context, filter shared.Filter) ([]ReviewResponse, int64, error) {
	reviews, total, err := s.reviews.ListPending(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	return toReviewResponses(reviews), total, nil
}

// Approve publishes a review
func (s *ReviewService) Approve(ctx context.Context, id uuid.UUID) (*ReviewResponse, error) {
	r, err := s.reviews.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	r.Approve()
	if err := s.reviews.Save(ctx, r); err != nil {
		return nil, err
	}
	resp := ToReviewResponse(r)
	return &resp, nil
}

// Delete removes a review
func (s *ReviewService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.reviews.Delete(ctx, id)
}
