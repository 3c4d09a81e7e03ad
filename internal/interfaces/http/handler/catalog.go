package handler

import (
	"context"

	catalogapp "github.com/dronehub/backend/internal/application/catalog"
	"github.com/dronehub/backend/internal/domain/shared"
	"github.com/dronehub/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ProductCatalog is the product side of the catalog service
type ProductCatalog interface {
	Create(ctx context.Context, req catalogapp.ProductRequest) (*catalogapp.ProductResponse, error)
	Update(ctx context.Context, id uuid.UUID, req catalogapp.ProductRequest) (*catalogapp.ProductResponse, error)
	GetByID(ctx context.Context, id uuid.UUID) (*catalogapp.ProductResponse, error)
	GetBySlug(ctx context.Context, slug string) (*catalogapp.ProductDetailResponse, error)
	List(ctx context.Context, q catalogapp.ProductListQuery) ([]catalogapp.ProductResponse, int64, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ReplaceImages(ctx context.Context, id uuid.UUID, req catalogapp.ReplaceImagesRequest) (*catalogapp.ProductResponse, error)
	CreateUploadURL(ctx context.Context, id uuid.UUID, req catalogapp.UploadURLRequest) (*catalogapp.UploadURLResponse, error)
}

// productParam is shared by /products/:product and /products/:product/reviews;
// gin requires one wildcard name per path segment. It holds a slug on the
// detail route and a product id on the review routes.
const productParam = "product"

// ProductHandler serves the public catalog and product administration
type ProductHandler struct {
	BaseHandler
	products ProductCatalog
}

// NewProductHandler creates a new ProductHandler
func NewProductHandler(products ProductCatalog) *ProductHandler {
	return &ProductHandler{products: products}
}

// List godoc
// @ID           listProducts
// @Summary      List products
// @Description  Active products only. q runs a full-text search when search is enabled, a LIKE match otherwise.
// @Tags         catalog
// @Produce      json
// @Param        q query string false "Search text"
// @Param        category query string false "Category slug"
// @Param        brand query string false "Brand slug"
// @Param        featured query bool false "Featured only"
// @Param        in_stock query bool false "In stock only"
// @Param        min_price query number false "Minimum net price"
// @Param        max_price query number false "Maximum net price"
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Items per page" default(20) maximum(100)
// @Param        order_by query string false "Sort field" Enums(created_at, updated_at, name, price, stock)
// @Param        order_dir query string false "Sort direction" Enums(asc, desc)
// @Success      200 {object} APIResponse[[]catalogapp.ProductResponse]
// @Failure      400 {object} ErrorResponse
// @Router       /products [get]
func (h *ProductHandler) List(c *gin.Context) {
	h.list(c, false)
}

// AdminList godoc
// @ID           adminListProducts
// @Summary      List products including inactive ones
// @Tags         admin-catalog
// @Produce      json
// @Param        q query string false "Search text"
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Items per page" default(20) maximum(100)
// @Success      200 {object} APIResponse[[]catalogapp.ProductResponse]
// @Security     BearerAuth
// @Router       /admin/products [get]
func (h *ProductHandler) AdminList(c *gin.Context) {
	h.list(c, true)
}

func (h *ProductHandler) list(c *gin.Context, withInactive bool) {
	var q catalogapp.ProductListQuery
	if !h.bindQuery(c, &q) {
		return
	}
	q.WithInactive = withInactive
	if q.Page <= 0 {
		q.Page = 1
	}
	if q.PageSize <= 0 {
		q.PageSize = 20
	}
	products, total, err := h.products.List(c.Request.Context(), q)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, products, total, q.Page, q.PageSize)
}

// GetBySlug godoc
// @ID           getProductBySlug
// @Summary      Product detail
// @Description  Includes ordered images, taxonomy and approved reviews
// @Tags         catalog
// @Produce      json
// @Param        product path string true "Product slug"
// @Success      200 {object} APIResponse[catalogapp.ProductDetailResponse]
// @Failure      404 {object} ErrorResponse
// @Router       /products/{product} [get]
func (h *ProductHandler) GetBySlug(c *gin.Context) {
	p, err := h.products.GetBySlug(c.Request.Context(), c.Param(productParam))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, p)
}

// Get godoc
// @ID           adminGetProduct
// @Summary      Get a product by id
// @Tags         admin-catalog
// @Produce      json
// @Param        id path string true "Product ID" format(uuid)
// @Success      200 {object} APIResponse[catalogapp.ProductResponse]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /admin/products/{id} [get]
func (h *ProductHandler) Get(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	p, err := h.products.GetByID(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, p)
}

// Create godoc
// @ID           adminCreateProduct
// @Summary      Create a product
// @Description  The slug is derived from the name when omitted
// @Tags         admin-catalog
// @Accept       json
// @Produce      json
// @Param        request body catalogapp.ProductRequest true "Product"
// @Success      201 {object} APIResponse[catalogapp.ProductResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /admin/products [post]
func (h *ProductHandler) Create(c *gin.Context) {
	var req catalogapp.ProductRequest
	if !h.bindJSON(c, &req) {
		return
	}
	p, err := h.products.Create(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, p)
}

// Update godoc
// @ID           adminUpdateProduct
// @Summary      Replace a product
// @Tags         admin-catalog
// @Accept       json
// @Produce      json
// @Param        id path string true "Product ID" format(uuid)
// @Param        request body catalogapp.ProductRequest true "Product"
// @Success      200 {object} APIResponse[catalogapp.ProductResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /admin/products/{id} [put]
func (h *ProductHandler) Update(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	var req catalogapp.ProductRequest
	if !h.bindJSON(c, &req) {
		return
	}
	p, err := h.products.Update(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, p)
}

// Delete godoc
// @ID           adminDeleteProduct
// @Summary      Delete a product
// @Tags         admin-catalog
// @Param        id path string true "Product ID" format(uuid)
// @Success      204
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /admin/products/{id} [delete]
func (h *ProductHandler) Delete(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	if err := h.products.Delete(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// ReplaceImages godoc
// @ID           adminReplaceProductImages
// @Summary      Replace the product gallery
// @Tags         admin-catalog
// @Accept       json
// @Produce      json
// @Param        id path string true "Product ID" format(uuid)
// @Param        request body catalogapp.ReplaceImagesRequest true "Images in display order"
// @Success      200 {object} APIResponse[catalogapp.ProductResponse]
// @Failure      400 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /admin/products/{id}/images [put]
func (h *ProductHandler) ReplaceImages(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	var req catalogapp.ReplaceImagesRequest
	if !h.bindJSON(c, &req) {
		return
	}
	p, err := h.products.ReplaceImages(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, p)
}

// UploadURL godoc
// @ID           adminProductUploadURL
// @Summary      Presigned image upload
// @Description  The browser PUTs the file to upload_url, then submits public_url with the gallery
// @Tags         admin-catalog
// @Accept       json
// @Produce      json
// @Param        id path string true "Product ID" format(uuid)
// @Param        request body catalogapp.UploadURLRequest true "File"
// @Success      200 {object} APIResponse[catalogapp.UploadURLResponse]
// @Failure      415 {object} ErrorResponse
// @Failure      503 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /admin/products/{id}/upload-url [post]
func (h *ProductHandler) UploadURL(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	var req catalogapp.UploadURLRequest
	if !h.bindJSON(c, &req) {
		return
	}
	resp, err := h.products.CreateUploadURL(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Taxonomy manages categories and brands
type Taxonomy interface {
	ListCategories(ctx context.Context) ([]catalogapp.TaxonomyResponse, error)
	GetCategory(ctx context.Context, slug string) (*catalogapp.TaxonomyResponse, error)
	CreateCategory(ctx context.Context, req catalogapp.TaxonomyRequest) (*catalogapp.TaxonomyResponse, error)
	UpdateCategory(ctx context.Context, id uuid.UUID, req catalogapp.TaxonomyRequest) (*catalogapp.TaxonomyResponse, error)
	DeleteCategory(ctx context.Context, id uuid.UUID) error
	ListBrands(ctx context.Context) ([]catalogapp.TaxonomyResponse, error)
	GetBrand(ctx context.Context, slug string) (*catalogapp.TaxonomyResponse, error)
	CreateBrand(ctx context.Context, req catalogapp.TaxonomyRequest) (*catalogapp.TaxonomyResponse, error)
	UpdateBrand(ctx context.Context, id uuid.UUID, req catalogapp.TaxonomyRequest) (*catalogapp.TaxonomyResponse, error)
	DeleteBrand(ctx context.Context, id uuid.UUID) error
}

// TaxonomyHandler serves categories and brands. Both kinds share one set of
// handlers; kind selects which half of the service is called.
type TaxonomyHandler struct {
	BaseHandler
	taxonomy Taxonomy
	brands   bool
}

// NewCategoryHandler handles /categories
func NewCategoryHandler(t Taxonomy) *TaxonomyHandler {
	return &TaxonomyHandler{taxonomy: t}
}

// NewBrandHandler handles /brands
func NewBrandHandler(t Taxonomy) *TaxonomyHandler {
	return &TaxonomyHandler{taxonomy: t, brands: true}
}

// List godoc
// @ID           listCategories
// @Summary      List categories or brands
// @Tags         catalog
// @Produce      json
// @Success      200 {object} APIResponse[[]catalogapp.TaxonomyResponse]
// @Router       /categories [get]
// @Router       /brands [get]
func (h *TaxonomyHandler) List(c *gin.Context) {
	list := h.taxonomy.ListCategories
	if h.brands {
		list = h.taxonomy.ListBrands
	}
	items, err := list(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, items)
}

// Get godoc
// @ID           getCategory
// @Summary      Get a category or brand by slug
// @Tags         catalog
// @Produce      json
// @Param        slug path string true "Slug"
// @Success      200 {object} APIResponse[catalogapp.TaxonomyResponse]
// @Failure      404 {object} ErrorResponse
// @Router       /categories/{slug} [get]
// @Router       /brands/{slug} [get]
func (h *TaxonomyHandler) Get(c *gin.Context) {
	get := h.taxonomy.GetCategory
	if h.brands {
		get = h.taxonomy.GetBrand
	}
	item, err := get(c.Request.Context(), c.Param("slug"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, item)
}

// Create godoc
// @ID           adminCreateCategory
// @Summary      Create a category or brand
// @Tags         admin-catalog
// @Accept       json
// @Produce      json
// @Param        request body catalogapp.TaxonomyRequest true "Category or brand"
// @Success      201 {object} APIResponse[catalogapp.TaxonomyResponse]
// @Failure      409 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /admin/categories [post]
// @Router       /admin/brands [post]
func (h *TaxonomyHandler) Create(c *gin.Context) {
	var req catalogapp.TaxonomyRequest
	if !h.bindJSON(c, &req) {
		return
	}
	create := h.taxonomy.CreateCategory
	if h.brands {
		create = h.taxonomy.CreateBrand
	}
	item, err := create(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, item)
}

// Update godoc
// @ID           adminUpdateCategory
// @Summary      Update a category or brand
// @Tags         admin-catalog
// @Accept       json
// @Produce      json
// @Param        id path string true "ID" format(uuid)
// @Param        request body catalogapp.TaxonomyRequest true "Category or brand"
// @Success      200 {object} APIResponse[catalogapp.TaxonomyResponse]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /admin/categories/{id} [put]
// @Router       /admin/brands/{id} [put]
func (h *TaxonomyHandler) Update(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	var req catalogapp.TaxonomyRequest
	if !h.bindJSON(c, &req) {
		return
	}
	update := h.taxonomy.UpdateCategory
	if h.brands {
		update = h.taxonomy.UpdateBrand
	}
	item, err := update(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, item)
}

// Delete godoc
// @ID           adminDeleteCategory
// @Summary      Delete a category or brand
// @Description  Products keep existing with the reference cleared
// @Tags         admin-catalog
// @Param        id path string true "ID" format(uuid)
// @Success      204
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /admin/categories/{id} [delete]
// @Router       /admin/brands/{id} [delete]
func (h *TaxonomyHandler) Delete(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	del := h.taxonomy.DeleteCategory
	if h.brands {
		del = h.taxonomy.DeleteBrand
	}
	if err := del(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// Reviews moderates product reviews
type Reviews interface {
	ListApproved(ctx context.Context, productID uuid.UUID) ([]catalogapp.ReviewResponse, error)
	Create(ctx context.Context, productID uuid.UUID, userID *uuid.UUID, req catalogapp.ReviewRequest) (*catalogapp.ReviewResponse, error)
	ListPending(ctx context.Context, filter shared.Filter) ([]catalogapp.ReviewResponse, int64, error)
	Approve(ctx context.Context, id uuid.UUID) (*catalogapp.ReviewResponse, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// ReviewHandler serves product reviews
type ReviewHandler struct {
	BaseHandler
	reviews Reviews
}

// NewReviewHandler creates a new ReviewHandler
func NewReviewHandler(reviews Reviews) *ReviewHandler {
	return &ReviewHandler{reviews: reviews}
}

// List godoc
// @ID           listProductReviews
// @Summary      Approved reviews of a product
// @Tags         catalog
// @Produce      json
// @Param        product path string true "Product ID" format(uuid)
// @Success      200 {object} APIResponse[[]catalogapp.ReviewResponse]
// @Router       /products/{product}/reviews [get]
func (h *ReviewHandler) List(c *gin.Context) {
	id, ok := h.pathUUID(c, productParam)
	if !ok {
		return
	}
	reviews, err := h.reviews.ListApproved(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, reviews)
}

// Create godoc
// @ID           createProductReview
// @Summary      Review a product
// @Description  Reviews are hidden until an administrator approves them
// @Tags         catalog
// @Accept       json
// @Produce      json
// @Param        product path string true "Product ID" format(uuid)
// @Param        request body catalogapp.ReviewRequest true "Review"
// @Success      201 {object} APIResponse[catalogapp.ReviewResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      401 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /products/{product}/reviews [post]
func (h *ReviewHandler) Create(c *gin.Context) {
	id, ok := h.pathUUID(c, productParam)
	if !ok {
		return
	}
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}
	var req catalogapp.ReviewRequest
	if !h.bindJSON(c, &req) {
		return
	}
	review, err := h.reviews.Create(c.Request.Context(), id, &userID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, review)
}

// Pending godoc
// @ID           adminPendingReviews
// @Summary      Reviews waiting for approval
// @Tags         admin-catalog
// @Produce      json
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Items per page" default(20) maximum(100)
// @Success      200 {object} APIResponse[[]catalogapp.ReviewResponse]
// @Security     BearerAuth
// @Router       /admin/reviews [get]
func (h *ReviewHandler) Pending(c *gin.Context) {
	var req dto.ListRequest
	if !h.bindQuery(c, &req) {
		return
	}
	filter := listFilter(req)
	reviews, total, err := h.reviews.ListPending(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, reviews, total, filter.Page, filter.PageSize)
}

// Approve godoc
// @ID           adminApproveReview
// @Summary      Approve a review
// @Tags         admin-catalog
// @Produce      json
// @Param        id path string true "Review ID" format(uuid)
// @Success      200 {object} APIResponse[catalogapp.ReviewResponse]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /admin/reviews/{id}/approve [post]
func (h *ReviewHandler) Approve(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	review, err := h.reviews.Approve(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, review)
}

// Delete godoc
// @ID           adminDeleteReview
// @Summary      Delete a review
// @Tags         admin-catalog
// @Param        id path string true "Review ID" format(uuid)
// @Success      204
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /admin/reviews/{id} [delete]
func (h *ReviewHandler) Delete(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	if err := h.reviews.Delete(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}
