package catalog

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/dronehub/backend/internal/domain/catalog"
	"github.com/dronehub/backend/internal/domain/shared"
	"github.com/dronehub/backend/internal/infrastructure/event"
	"github.com/dronehub/backend/internal/infrastructure/persistence"
	"github.com/dronehub/backend/internal/infrastructure/persistence/models"
	"github.com/dronehub/backend/internal/infrastructure/storage"
	"github.com/dronehub/backend/tests/testutil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type MockSearcher struct {
	mock.Mock
}

func (m *MockSearcher) Search(ctx context.Context, query string, limit int) ([]uuid.UUID, error) {
	args := m.Called(ctx, query, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

type fixture struct {
	db       *gorm.DB
	products *ProductService
	taxonomy *TaxonomyService
	reviews  *ReviewService
	storage  *storage.MemoryObjectStorage
}

func newFixture(t *testing.T, searcher ProductSearcher) *fixture {
	t.Helper()
	db := testutil.NewSQLiteDB(t)
	codec := event.NewShopCodec()

	productRepo := persistence.NewGormProductRepository(db, event.NewOutboxPublisher(codec, 0))
	categoryRepo := persistence.NewGormCategoryRepository(db)
	brandRepo := persistence.NewGormBrandRepository(db)
	reviewRepo := persistence.NewGormReviewRepository(db)
	f := &fixture{db: db, storage: storage.NewMemoryObjectStorage("https://cdn.dronehub.test")}

	cfg := ProductServiceConfig{
		Products:   productRepo,
		Categories: categoryRepo,
		Brands:     brandRepo,
		Reviews:    reviewRepo,
		Storage:    f.storage,
		Logger:     zap.NewNop(),
	}
	if searcher != nil {
		cfg.Searcher = searcher
	}
	f.products = NewProductService(cfg)
	f.taxonomy = NewTaxonomyService(categoryRepo, brandRepo)
	f.reviews = NewReviewService(reviewRepo, productRepo, zap.NewNop())
	return f
}

func (f *fixture) product(t *testing.T, req ProductRequest) *ProductResponse {
	t.Helper()
	p, err := f.products.Create(context.Background(), req)
	require.NoError(t, err)
	return p
}

func (f *fixture) productChangedCount(t *testing.T, id uuid.UUID) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&models.OutboxEntryModel{}).
		Where("event_type = ? AND aggregate_id = ?", catalog.EventTypeProductChanged, id).
		Count(&n).Error)
	return n
}

func TestProductService_Create(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	cat, err := f.taxonomy.CreateCategory(ctx, TaxonomyRequest{Name: "Śmigła"})
	require.NoError(t, err)
	assert.Equal(t, "smigla", cat.Slug)

	p := f.product(t, ProductRequest{
		Name:       "Śmigła Gemfan 51466 Hurricane",
		Price:      decimal.RequireFromString("14.50"),
		SKU:        "gf-51466",
		Stock:      40,
		IsActive:   true,
		CategoryID: &cat.ID,
	})
	assert.Equal(t, "smigla-gemfan-51466-hurricane", p.Slug)
	assert.Equal(t, "GF-51466", p.SKU)
	assert.True(t, p.InStock)
	assert.Equal(t, int64(1), f.productChangedCount(t, p.ID))

	t.Run("unknown category", func(t *testing.T) {
		missing := uuid.New()
		_, err := f.products.Create(ctx, ProductRequest{Name: "Rama", Price: decimal.NewFromInt(1), CategoryID: &missing})
		assert.ErrorIs(t, err, catalog.ErrCategoryNotFound)
	})

	t.Run("duplicate slug", func(t *testing.T) {
		_, err := f.products.Create(ctx, ProductRequest{Name: "Śmigła Gemfan 51466 Hurricane", Price: decimal.NewFromInt(1)})
		assert.ErrorIs(t, err, catalog.ErrSlugTaken)
	})

	t.Run("negative price", func(t *testing.T) {
		_, err := f.products.Create(ctx, ProductRequest{Name: "Kamera", Price: decimal.NewFromInt(-1)})
		assert.ErrorIs(t, err, catalog.ErrNegativePrice)
	})
}

func TestProductService_Update(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	p := f.product(t, ProductRequest{Name: "Silnik 2306", Price: decimal.NewFromInt(79), Stock: 8, IsActive: true})

	updated, err := f.products.Update(ctx, p.ID, ProductRequest{
		Name:       "Silnik 2306 1950KV",
		Slug:       p.Slug,
		Price:      decimal.RequireFromString("74.999"),
		Stock:      12,
		IsActive:   true,
		IsFeatured: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "silnik-2306", updated.Slug)
	assert.Equal(t, "75", updated.Price.String())
	assert.Equal(t, 12, updated.Stock)
	assert.Equal(t, p.Version+1, updated.Version)
	assert.Equal(t, int64(2), f.productChangedCount(t, p.ID))

	_, err = f.products.Update(ctx, uuid.New(), ProductRequest{Name: "x", Price: decimal.Zero})
	assert.ErrorIs(t, err, catalog.ErrProductNotFound)
}

func TestProductService_List(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	frames, err := f.taxonomy.CreateCategory(ctx, TaxonomyRequest{Name: "Ramy"})
	require.NoError(t, err)
	brand, err := f.taxonomy.CreateBrand(ctx, TaxonomyRequest{Name: "iFlight"})
	require.NoError(t, err)

	f.product(t, ProductRequest{Name: "Rama Nazgul 5", Price: decimal.NewFromInt(249), Stock: 3, IsActive: true, CategoryID: &frames.ID, BrandID: &brand.ID})
	f.product(t, ProductRequest{Name: "Rama Apex 5", Price: decimal.NewFromInt(199), Stock: 0, IsActive: true, IsFeatured: true, CategoryID: &frames.ID})
	f.product(t, ProductRequest{Name: "Akumulator 6S 1300", Price: decimal.NewFromInt(159), Stock: 10, IsActive: true})
	f.product(t, ProductRequest{Name: "Rama prototyp", Price: decimal.NewFromInt(99), Stock: 1, IsActive: false, CategoryID: &frames.ID})

	minPrice := decimal.NewFromInt(150)
	maxPrice := decimal.NewFromInt(200)
	tests := []struct {
		name  string
		query ProductListQuery
		want  []string
	}{
		{"category", ProductListQuery{Category: "ramy", OrderBy: "price", OrderDir: "asc"}, []string{"Rama Apex 5", "Rama Nazgul 5"}},
		{"brand", ProductListQuery{Brand: "iflight"}, []string{"Rama Nazgul 5"}},
		{"featured", ProductListQuery{Featured: true}, []string{"Rama Apex 5"}},
		{"in stock", ProductListQuery{Category: "ramy", InStock: true}, []string{"Rama Nazgul 5"}},
		{"price range", ProductListQuery{MinPrice: &minPrice, MaxPrice: &maxPrice, OrderBy: "price", OrderDir: "desc"}, []string{"Rama Apex 5", "Akumulator 6S 1300"}},
		{"search", ProductListQuery{Search: "akumulator"}, []string{"Akumulator 6S 1300"}},
		{"admin sees inactive", ProductListQuery{Category: "ramy", WithInactive: true, OrderBy: "price", OrderDir: "asc"}, []string{"Rama prototyp", "Rama Apex 5", "Rama Nazgul 5"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, total, err := f.products.List(ctx, tt.query)
			require.NoError(t, err)
			names := make([]string, len(items))
			for i, p := range items {
				names[i] = p.Name
			}
			assert.Equal(t, tt.want, names)
			assert.Equal(t, int64(len(tt.want)), total)
		})
	}
}

func TestProductService_ListWithSearcher(t *testing.T) {
	searcher := new(MockSearcher)
	f := newFixture(t, searcher)
	ctx := context.Background()
	gps := f.product(t, ProductRequest{Name: "Moduł GPS M10", Price: decimal.NewFromInt(89), Stock: 4, IsActive: true})
	f.product(t, ProductRequest{Name: "Odbiornik ELRS", Price: decimal.NewFromInt(59), Stock: 4, IsActive: true})

	searcher.On("Search", mock.Anything, "gps", mock.Anything).Return([]uuid.UUID{gps.ID}, nil).Once()
	items, total, err := f.products.List(ctx, ProductListQuery{Search: "gps"})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, gps.ID, items[0].ID)
	assert.Equal(t, int64(1), total)

	searcher.On("Search", mock.Anything, "nic", mock.Anything).Return([]uuid.UUID{}, nil).Once()
	items, total, err = f.products.List(ctx, ProductListQuery{Search: "nic"})
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Zero(t, total)

	// index down: SQL matching still answers
	searcher.On("Search", mock.Anything, "elrs", mock.Anything).Return(nil, errors.New("connection refused")).Once()
	items, _, err = f.products.List(ctx, ProductListQuery{Search: "elrs"})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Odbiornik ELRS", items[0].Name)
	searcher.AssertExpectations(t)
}

func TestProductService_GetBySlug(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	brand, err := f.taxonomy.CreateBrand(ctx, TaxonomyRequest{Name: "DJI"})
	require.NoError(t, err)
	p := f.product(t, ProductRequest{Name: "Gogle DJI N3", Price: decimal.NewFromInt(899), Stock: 2, IsActive: true, BrandID: &brand.ID})
	hidden := f.product(t, ProductRequest{Name: "Gogle wycofane", Price: decimal.NewFromInt(1), IsActive: false})

	for _, rating := range []int{5, 4} {
		r, err := f.reviews.Create(ctx, p.ID, nil, ReviewRequest{AuthorName: "Tomek", Rating: rating})
		require.NoError(t, err)
		_, err = f.reviews.Approve(ctx, r.ID)
		require.NoError(t, err)
	}
	_, err = f.reviews.Create(ctx, p.ID, nil, ReviewRequest{AuthorName: "Anon", Rating: 1})
	require.NoError(t, err)

	detail, err := f.products.GetBySlug(ctx, p.Slug)
	require.NoError(t, err)
	require.NotNil(t, detail.Brand)
	assert.Equal(t, "dji", detail.Brand.Slug)
	assert.Len(t, detail.Reviews, 2)
	assert.InDelta(t, 4.5, detail.AverageRating, 0.001)

	_, err = f.products.GetBySlug(ctx, hidden.Slug)
	assert.ErrorIs(t, err, catalog.ErrProductNotFound)
}

func TestProductService_Images(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	p := f.product(t, ProductRequest{Name: "Kamera Walksnail", Price: decimal.NewFromInt(399), IsActive: true})

	upload, err := f.products.CreateUploadURL(ctx, p.ID, UploadURLRequest{FileName: "Front.JPEG", ContentType: "image/jpeg"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(upload.Key, "products/"+p.ID.String()+"/"))
	assert.True(t, strings.HasSuffix(upload.Key, ".jpeg"))
	assert.Equal(t, "https://cdn.dronehub.test/"+upload.Key, upload.PublicURL)
	assert.NotEmpty(t, upload.UploadURL)

	_, err = f.products.CreateUploadURL(ctx, p.ID, UploadURLRequest{FileName: "x.svg", ContentType: "image/svg+xml"})
	assert.ErrorIs(t, err, ErrUnsupportedImageType)

	updated, err := f.products.ReplaceImages(ctx, p.ID, ReplaceImagesRequest{Images: []ImageRequest{
		{URL: "https://cdn.dronehub.test/b.jpg", Position: 3},
		{URL: upload.PublicURL, Alt: "Przód", Position: 1},
	}})
	require.NoError(t, err)
	require.Len(t, updated.Images, 2)
	assert.Equal(t, upload.PublicURL, updated.Images[0].URL)
	assert.Equal(t, 0, updated.Images[0].Position)
	assert.Equal(t, 1, updated.Images[1].Position)

	stored, err := f.products.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Images, 2)

	cleared, err := f.products.ReplaceImages(ctx, p.ID, ReplaceImagesRequest{})
	require.NoError(t, err)
	assert.Empty(t, cleared.Images)
}

func TestProductService_Delete(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	p := f.product(t, ProductRequest{Name: "Antena Lumenier", Price: decimal.NewFromInt(49), IsActive: true})

	require.NoError(t, f.products.Delete(ctx, p.ID))
	_, err := f.products.GetByID(ctx, p.ID)
	assert.ErrorIs(t, err, catalog.ErrProductNotFound)
	// created + deleted
	assert.Equal(t, int64(2), f.productChangedCount(t, p.ID))

	assert.ErrorIs(t, f.products.Delete(ctx, p.ID), catalog.ErrProductNotFound)
}

func TestTaxonomyService_DeleteDetachesProducts(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	cat, err := f.taxonomy.CreateCategory(ctx, TaxonomyRequest{Name: "Kontrolery lotu"})
	require.NoError(t, err)
	brand, err := f.taxonomy.CreateBrand(ctx, TaxonomyRequest{Name: "SpeedyBee"})
	require.NoError(t, err)
	p := f.product(t, ProductRequest{Name: "F405 V4", Price: decimal.NewFromInt(189), IsActive: true, CategoryID: &cat.ID, BrandID: &brand.ID})

	require.NoError(t, f.taxonomy.DeleteCategory(ctx, cat.ID))
	require.NoError(t, f.taxonomy.DeleteBrand(ctx, brand.ID))

	stored, err := f.products.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.CategoryID)
	assert.Nil(t, stored.BrandID)

	assert.ErrorIs(t, f.taxonomy.DeleteCategory(ctx, cat.ID), catalog.ErrCategoryNotFound)
	_, err = f.taxonomy.GetBrand(ctx, "speedybee")
	assert.ErrorIs(t, err, catalog.ErrBrandNotFound)
}

func TestTaxonomyService_Update(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	a, err := f.taxonomy.CreateCategory(ctx, TaxonomyRequest{Name: "Silniki"})
	require.NoError(t, err)
	_, err = f.taxonomy.CreateCategory(ctx, TaxonomyRequest{Name: "ESC"})
	require.NoError(t, err)

	renamed, err := f.taxonomy.UpdateCategory(ctx, a.ID, TaxonomyRequest{Name: "Silniki bezszczotkowe"})
	require.NoError(t, err)
	assert.Equal(t, "silniki-bezszczotkowe", renamed.Slug)

	_, err = f.taxonomy.UpdateCategory(ctx, a.ID, TaxonomyRequest{Name: "x", Slug: "esc"})
	assert.ErrorIs(t, err, catalog.ErrSlugTaken)

	_, err = f.taxonomy.CreateBrand(ctx, TaxonomyRequest{Name: "T-Motor", Slug: "Bad Slug"})
	assert.ErrorIs(t, err, catalog.ErrInvalidSlug)

	cats, err := f.taxonomy.ListCategories(ctx)
	require.NoError(t, err)
	assert.Len(t, cats, 2)
}

func TestReviewService(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	p := f.product(t, ProductRequest{Name: "Pasek do akumulatora", Price: decimal.NewFromInt(9), IsActive: true})
	user := uuid.New()

	_, err := f.reviews.Create(ctx, p.ID, &user, ReviewRequest{AuthorName: "Kasia", Rating: 6})
	assert.ErrorIs(t, err, catalog.ErrInvalidRating)
	_, err = f.reviews.Create(ctx, uuid.New(), &user, ReviewRequest{AuthorName: "Kasia", Rating: 4})
	assert.ErrorIs(t, err, catalog.ErrProductNotFound)

	r, err := f.reviews.Create(ctx, p.ID, &user, ReviewRequest{AuthorName: "Kasia", Rating: 4, Comment: "  Trzyma mocno  "})
	require.NoError(t, err)
	assert.False(t, r.IsApproved)
	assert.Equal(t, "Trzyma mocno", r.Comment)

	public, err := f.reviews.ListApproved(ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, public)

	pending, total, err := f.reviews.ListPending(ctx, shared.DefaultFilter())
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, r.ID, pending[0].ID)

	approved, err := f.reviews.Approve(ctx, r.ID)
	require.NoError(t, err)
	assert.True(t, approved.IsApproved)
	public, err = f.reviews.ListApproved(ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, public, 1)

	require.NoError(t, f.reviews.Delete(ctx, r.ID))
	assert.ErrorIs(t, f.reviews.Delete(ctx, r.ID), catalog.ErrReviewNotFound)
}
