package handler

import (
	"context"
	"net/http"
	"testing"

	catalogapp "github.com/dronehub/backend/internal/application/catalog"
	"github.com/dronehub/backend/internal/domain/catalog"
	"github.com/dronehub/backend/internal/domain/shared"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockProductCatalog struct {
	mock.Mock
}

func (m *MockProductCatalog) Create(ctx context.Context, req catalogapp.ProductRequest) (*catalogapp.ProductResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalogapp.ProductResponse), args.Error(1)
}

func (m *MockProductCatalog) Update(ctx context.Context, id uuid.UUID, req catalogapp.ProductRequest) (*catalogapp.ProductResponse, error) {
	args := m.Called(ctx, id, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalogapp.ProductResponse), args.Error(1)
}

func (m *MockProductCatalog) GetByID(ctx context.Context, id uuid.UUID) (*catalogapp.ProductResponse, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalogapp.ProductResponse), args.Error(1)
}

func (m *MockProductCatalog) GetBySlug(ctx context.Context, slug string) (*catalogapp.ProductDetailResponse, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalogapp.ProductDetailResponse), args.Error(1)
}

func (m *MockProductCatalog) List(ctx context.Context, q catalogapp.ProductListQuery) ([]catalogapp.ProductResponse, int64, error) {
	args := m.Called(ctx, q)
	return args.Get(0).([]catalogapp.ProductResponse), args.Get(1).(int64), args.Error(2)
}

func (m *MockProductCatalog) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockProductCatalog) ReplaceImages(ctx context.Context, id uuid.UUID, req catalogapp.ReplaceImagesRequest) (*catalogapp.ProductResponse, error) {
	args := m.Called(ctx, id, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalogapp.ProductResponse), args.Error(1)
}

func (m *MockProductCatalog) CreateUploadURL(ctx context.Context, id uuid.UUID, req catalogapp.UploadURLRequest) (*catalogapp.UploadURLResponse, error) {
	args := m.Called(ctx, id, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalogapp.UploadURLResponse), args.Error(1)
}

type MockTaxonomy struct {
	mock.Mock
}

func taxonomyResult(args mock.Arguments) (*catalogapp.TaxonomyResponse, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalogapp.TaxonomyResponse), args.Error(1)
}

func (m *MockTaxonomy) ListCategories(ctx context.Context) ([]catalogapp.TaxonomyResponse, error) {
	args := m.Called(ctx)
	return args.Get(0).([]catalogapp.TaxonomyResponse), args.Error(1)
}

func (m *MockTaxonomy) GetCategory(ctx context.Context, slug string) (*catalogapp.TaxonomyResponse, error) {
	return taxonomyResult(m.Called(ctx, slug))
}

func (m *MockTaxonomy) CreateCategory(ctx context.Context, req catalogapp.TaxonomyRequest) (*catalogapp.TaxonomyResponse, error) {
	return taxonomyResult(m.Called(ctx, req))
}

func (m *MockTaxonomy) UpdateCategory(ctx context.Context, id uuid.UUID, req catalogapp.TaxonomyRequest) (*catalogapp.TaxonomyResponse, error) {
	return taxonomyResult(m.Called(ctx, id, req))
}

func (m *MockTaxonomy) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockTaxonomy) ListBrands(ctx context.Context) ([]catalogapp.TaxonomyResponse, error) {
	args := m.Called(ctx)
	return args.Get(0).([]catalogapp.TaxonomyResponse), args.Error(1)
}

func (m *MockTaxonomy) GetBrand(ctx context.Context, slug string) (*catalogapp.TaxonomyResponse, error) {
	return taxonomyResult(m.Called(ctx, slug))
}

func (m *MockTaxonomy) CreateBrand(ctx context.Context, req catalogapp.TaxonomyRequest) (*catalogapp.TaxonomyResponse, error) {
	return taxonomyResult(m.Called(ctx, req))
}

func (m *MockTaxonomy) UpdateBrand(ctx context.Context, id uuid.UUID, req catalogapp.TaxonomyRequest) (*catalogapp.TaxonomyResponse, error) {
	return taxonomyResult(m.Called(ctx, id, req))
}

func (m *MockTaxonomy) DeleteBrand(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

type MockReviews struct {
	mock.Mock
}

func (m *MockReviews) ListApproved(ctx context.Context, productID uuid.UUID) ([]catalogapp.ReviewResponse, error) {
	args := m.Called(ctx, productID)
	return args.Get(0).([]catalogapp.ReviewResponse), args.Error(1)
}

func (m *MockReviews) Create(ctx context.Context, productID uuid.UUID, userID *uuid.UUID, req catalogapp.ReviewRequest) (*catalogapp.ReviewResponse, error) {
	args := m.Called(ctx, productID, userID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalogapp.ReviewResponse), args.Error(1)
}

func (m *MockReviews) ListPending(ctx context.Context, filter shared.Filter) ([]catalogapp.ReviewResponse, int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]catalogapp.ReviewResponse), args.Get(1).(int64), args.Error(2)
}

func (m *MockReviews) Approve(ctx context.Context, id uuid.UUID) (*catalogapp.ReviewResponse, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalogapp.ReviewResponse), args.Error(1)
}

func (m *MockReviews) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func catalogRouter(p ProductCatalog, t Taxonomy, rv Reviews, mw ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(mw...)
	ph := NewProductHandler(p)
	rh := NewReviewHandler(rv)
	ch := NewCategoryHandler(t)
	bh := NewBrandHandler(t)
	r.GET("/products", ph.List)
	r.GET("/products/:product", ph.GetBySlug)
	r.GET("/products/:product/reviews", rh.List)
	r.POST("/products/:product/reviews", rh.Create)
	r.GET("/categories", ch.List)
	r.GET("/brands", bh.List)
	r.DELETE("/admin/brands/:id", bh.Delete)
	r.GET("/admin/products", ph.AdminList)
	r.POST("/admin/products", ph.Create)
	r.POST("/admin/products/:id/upload-url", ph.UploadURL)
	r.POST("/admin/reviews/:id/approve", rh.Approve)
	return r
}

func TestProductList_PublicHidesInactive(t *testing.T) {
	p := new(MockProductCatalog)
	p.On("List", mock.Anything, mock.MatchedBy(func(q catalogapp.ProductListQuery) bool {
		return !q.WithInactive && q.Category == "ramy" && q.InStock &&
			q.MinPrice != nil && q.MinPrice.Equal(decimal.NewFromInt(50)) &&
			q.Page == 1 && q.PageSize == 20
	})).Return([]catalogapp.ProductResponse{{Name: "Rama 5\"", Slug: "rama-5"}}, int64(1), nil)
	p.On("List", mock.Anything, mock.MatchedBy(func(q catalogapp.ProductListQuery) bool {
		return q.WithInactive
	})).Return([]catalogapp.ProductResponse{}, int64(0), nil)
	r := catalogRouter(p, nil, nil)

	w, resp := doJSON(t, r, http.MethodGet, "/products?category=ramy&in_stock=true&min_price=50", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(1), resp.Meta.Total)

	w, _ = doJSON(t, r, http.MethodGet, "/admin/products", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = doJSON(t, r, http.MethodGet, "/products?order_by=password", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	p.AssertExpectations(t)
}

func TestProductDetailBySlug(t *testing.T) {
	p := new(MockProductCatalog)
	p.On("GetBySlug", mock.Anything, "silnik-2207").Return(&catalogapp.ProductDetailResponse{
		ProductResponse: catalogapp.ProductResponse{Slug: "silnik-2207"},
		AverageRating:   4.5,
	}, nil)
	p.On("GetBySlug", mock.Anything, "nope").Return(nil, catalog.ErrProductNotFound)
	r := catalogRouter(p, nil, nil)

	w, resp := doJSON(t, r, http.MethodGet, "/products/silnik-2207", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var out catalogapp.ProductDetailResponse
	dataAs(t, resp, &out)
	assert.Equal(t, 4.5, out.AverageRating)

	w, resp = doJSON(t, r, http.MethodGet, "/products/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "PRODUCT_NOT_FOUND", resp.Error.Code)
}

func TestProductCreate_Validation(t *testing.T) {
	p := new(MockProductCatalog)
	p.On("Create", mock.Anything, mock.Anything).Return(&catalogapp.ProductResponse{Name: "Śmigło 5147", Slug: "smiglo-5147"}, nil)
	r := catalogRouter(p, nil, nil)

	w, _ := doJSON(t, r, http.MethodPost, "/admin/products", map[string]any{"name": "Śmigło 5147", "price": "12.50", "stock": 40})
	assert.Equal(t, http.StatusCreated, w.Code)

	w, resp := doJSON(t, r, http.MethodPost, "/admin/products", map[string]any{"price": "12.50"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
}

func TestUploadURL_UnsupportedType(t *testing.T) {
	p := new(MockProductCatalog)
	id := uuid.New()
	p.On("CreateUploadURL", mock.Anything, id, catalogapp.UploadURLRequest{FileName: "x.svg", ContentType: "image/svg+xml"}).
		Return(nil, catalogapp.ErrUnsupportedImageType)

	w, resp := doJSON(t, catalogRouter(p, nil, nil), http.MethodPost, "/admin/products/"+id.String()+"/upload-url",
		map[string]string{"file_name": "x.svg", "content_type": "image/svg+xml"})

	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
	assert.Equal(t, "UNSUPPORTED_MEDIA_TYPE", resp.Error.Code)
}

func TestTaxonomy_KindSelectsService(t *testing.T) {
	tx := new(MockTaxonomy)
	tx.On("ListCategories", mock.Anything).Return([]catalogapp.TaxonomyResponse{{Name: "Ramy"}}, nil)
	tx.On("ListBrands", mock.Anything).Return([]catalogapp.TaxonomyResponse{{Name: "T-Motor"}, {Name: "iFlight"}}, nil)
	id := uuid.New()
	tx.On("DeleteBrand", mock.Anything, id).Return(nil)
	r := catalogRouter(nil, tx, nil)

	_, resp := doJSON(t, r, http.MethodGet, "/categories", nil)
	var cats []catalogapp.TaxonomyResponse
	dataAs(t, resp, &cats)
	assert.Len(t, cats, 1)

	_, resp = doJSON(t, r, http.MethodGet, "/brands", nil)
	var brands []catalogapp.TaxonomyResponse
	dataAs(t, resp, &brands)
	assert.Len(t, brands, 2)

	w, _ := doJSON(t, r, http.MethodDelete, "/admin/brands/"+id.String(), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	tx.AssertExpectations(t)
}

func TestReviews(t *testing.T) {
	rv := new(MockReviews)
	productID := uuid.New()
	userID := uuid.New()
	rv.On("ListApproved", mock.Anything, productID).Return([]catalogapp.ReviewResponse{{Rating: 5}}, nil)
	rv.On("Create", mock.Anything, productID, &userID, catalogapp.ReviewRequest{AuthorName: "Marek", Rating: 4, Comment: "Solidna rama"}).
		Return(&catalogapp.ReviewResponse{Rating: 4}, nil)

	w, _ := doJSON(t, catalogRouter(nil, nil, rv), http.MethodGet, "/products/"+productID.String()+"/reviews", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	body := map[string]any{"author_name": "Marek", "rating": 4, "comment": "Solidna rama"}
	w, _ = doJSON(t, catalogRouter(nil, nil, rv), http.MethodPost, "/products/"+productID.String()+"/reviews", body)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	authed := catalogRouter(nil, nil, rv, asUser(userID, "CUSTOMER"))
	w, _ = doJSON(t, authed, http.MethodPost, "/products/"+productID.String()+"/reviews", body)
	assert.Equal(t, http.StatusCreated, w.Code)

	body["rating"] = 6
	w, _ = doJSON(t, authed, http.MethodPost, "/products/"+productID.String()+"/reviews", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = doJSON(t, authed, http.MethodGet, "/products/rama-5/reviews", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	rv.AssertExpectations(t)
}
