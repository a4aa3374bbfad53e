package services

import (
	"context"
	"net/http"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/deepaktraders/storefront-backend/models"
	"github.com/deepaktraders/storefront-backend/repository"
)

const (
	DefaultPerPage = 12
	MaxPerPage     = 50
)

// ProductPage is one page of the catalog as served to clients.
type ProductPage struct {
	Products   []models.ProductView `json:"products"`
	Page       int                  `json:"page"`
	PerPage    int                  `json:"per_page"`
	Total      int64                `json:"total"`
	TotalPages int64                `json:"total_pages"`
}

func totalPages(total int64, perPage int) int64 {
	if total == 0 {
		return 0
	}
	return (total + int64(perPage) - 1) / int64(perPage)
}

// ProductInput is the admin payload for creating or updating a product.
type ProductInput struct {
	Name     string  `json:"name" binding:"required"`
	Price    float64 `json:"price" binding:"required,gt=0"`
	Image    string  `json:"image"`
	Category string  `json:"category" binding:"required"`
}

// ProductService serves the catalog read paths and the admin write paths.
// List pages are cached; any admin write invalidates the whole cache.
type ProductService struct {
	products   repository.ProductRepository
	categories repository.CategoryRepository
	cache      *repository.ProductCache
	images     *ImageService
	log        *zap.Logger
}

func NewProductService(products repository.ProductRepository, categories repository.CategoryRepository, cache *repository.ProductCache, images *ImageService, log *zap.Logger) *ProductService {
	return &ProductService{
		products:   products,
		categories: categories,
		cache:      cache,
		images:     images,
		log:        log,
	}
}

func normalizePage(page, perPage int) (int, int) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}
	return page, perPage
}

// List returns one catalog page, newest first, served from cache when warm.
func (s *ProductService) List(ctx context.Context, page, perPage int) (*ProductPage, *ServiceError) {
	page, perPage = normalizePage(page, perPage)

	if s.cache != nil {
		var cached ProductPage
		if s.cache.Get(ctx, page, perPage, &cached) {
			return &cached, nil
		}
	}

	products, total, err := s.products.List(ctx, page, perPage)
	if err != nil {
		s.log.Error("Failed to list products", zap.Error(err))
		return nil, ErrInternal
	}

	result := &ProductPage{
		Products:   s.toViews(ctx, products),
		Page:       page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: totalPages(total, perPage),
	}
	if s.cache != nil {
		s.cache.Set(ctx, page, perPage, result)
	}
	return result, nil
}

// Search runs a text search over product names. Blank terms fall back to List.
func (s *ProductService) Search(ctx context.Context, term string, page, perPage int) (*ProductPage, *ServiceError) {
	term = strings.TrimSpace(term)
	if term == "" {
		return s.List(ctx, page, perPage)
	}
	page, perPage = normalizePage(page, perPage)

	products, total, err := s.products.Search(ctx, term, page, perPage)
	if err != nil {
		s.log.Error("Failed to search products", zap.String("term", term), zap.Error(err))
		return nil, ErrInternal
	}
	return &ProductPage{
		Products:   s.toViews(ctx, products),
		Page:       page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: totalPages(total, perPage),
	}, nil
}

// ByCategory returns a category's products, newest first.
func (s *ProductService) ByCategory(ctx context.Context, categoryName string, limit int) ([]models.ProductView, *ServiceError) {
	category, err := s.categories.FindByName(ctx, categoryName)
	if err == repository.ErrNotFound {
		return nil, NewServiceError(http.StatusNotFound, "category not found")
	}
	if err != nil {
		s.log.Error("Failed to look up category", zap.Error(err))
		return nil, ErrInternal
	}

	products, err := s.products.FindByCategory(ctx, category.ID, limit)
	if err != nil {
		s.log.Error("Failed to list category products", zap.Error(err))
		return nil, ErrInternal
	}
	return s.toViews(ctx, products), nil
}

// ByID returns a single product view.
func (s *ProductService) ByID(ctx context.Context, id string) (*models.ProductView, *ServiceError) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, NewServiceError(http.StatusNotFound, "product not found")
	}
	product, err := s.products.FindByID(ctx, oid)
	if err == repository.ErrNotFound {
		return nil, NewServiceError(http.StatusNotFound, "product not found")
	}
	if err != nil {
		s.log.Error("Failed to load product", zap.Error(err))
		return nil, ErrInternal
	}
	view := s.toView(ctx, *product)
	return &view, nil
}

// ResolveMany returns views for the requested ids, in request order, silently
// skipping ids that no longer resolve. Used to price and render cart lines.
func (s *ProductService) ResolveMany(ctx context.Context, ids []string) ([]models.ProductView, *ServiceError) {
	oids := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		oid, err := primitive.ObjectIDFromHex(id)
		if err != nil {
			continue
		}
		oids = append(oids, oid)
	}

	products, err := s.products.FindByIDs(ctx, oids)
	if err != nil {
		s.log.Error("Failed to resolve products", zap.Error(err))
		return nil, ErrInternal
	}

	byID := make(map[string]models.Product, len(products))
	for _, p := range products {
		byID[p.ID.Hex()] = p
	}

	views := make([]models.ProductView, 0, len(ids))
	for _, id := range ids {
		p, ok := byID[id]
		if !ok {
			continue
		}
		views = append(views, s.toView(ctx, p))
	}
	return views, nil
}

// Create inserts a product under the named category, creating the category on
// first use. Admin only; enforced at the route layer.
func (s *ProductService) Create(ctx context.Context, input ProductInput) (*models.ProductView, *ServiceError) {
	categoryID, svcErr := s.ensureCategory(ctx, input.Category)
	if svcErr != nil {
		return nil, svcErr
	}

	product := &models.Product{
		Name:     input.Name,
		Price:    input.Price,
		Image:    input.Image,
		Category: categoryID,
	}
	id, err := s.products.Create(ctx, product)
	if err != nil {
		s.log.Error("Failed to create product", zap.Error(err))
		return nil, ErrInternal
	}
	product.ID = id
	s.invalidate(ctx)

	s.log.Info("Product created", zap.String("product_id", id.Hex()), zap.String("name", input.Name))
	view := s.toView(ctx, *product)
	return &view, nil
}

// Update replaces a product's fields. A changed image key deletes the old blob.
func (s *ProductService) Update(ctx context.Context, id string, input ProductInput) (*models.ProductView, *ServiceError) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, NewServiceError(http.StatusNotFound, "product not found")
	}
	existing, err := s.products.FindByID(ctx, oid)
	if err == repository.ErrNotFound {
		return nil, NewServiceError(http.StatusNotFound, "product not found")
	}
	if err != nil {
		s.log.Error("Failed to load product", zap.Error(err))
		return nil, ErrInternal
	}

	categoryID, svcErr := s.ensureCategory(ctx, input.Category)
	if svcErr != nil {
		return nil, svcErr
	}

	updates := bson.M{
		"name":     input.Name,
		"price":    input.Price,
		"image":    input.Image,
		"category": categoryID,
	}
	if err := s.products.Update(ctx, oid, updates); err != nil {
		if err == repository.ErrNotFound {
			return nil, NewServiceError(http.StatusNotFound, "product not found")
		}
		s.log.Error("Failed to update product", zap.Error(err))
		return nil, ErrInternal
	}
	if s.images != nil && existing.Image != "" && existing.Image != input.Image {
		s.images.Delete(ctx, existing.Image)
	}
	s.invalidate(ctx)

	updated := models.Product{
		ID:        oid,
		Name:      input.Name,
		Price:     input.Price,
		Image:     input.Image,
		Category:  categoryID,
		CreatedAt: existing.CreatedAt,
	}
	view := s.toView(ctx, updated)
	return &view, nil
}

// Delete removes a product and its stored image.
func (s *ProductService) Delete(ctx context.Context, id string) *ServiceError {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return NewServiceError(http.StatusNotFound, "product not found")
	}
	existing, err := s.products.FindByID(ctx, oid)
	if err == repository.ErrNotFound {
		return NewServiceError(http.StatusNotFound, "product not found")
	}
	if err != nil {
		s.log.Error("Failed to load product", zap.Error(err))
		return ErrInternal
	}

	if err := s.products.Delete(ctx, oid); err != nil {
		if err == repository.ErrNotFound {
			return NewServiceError(http.StatusNotFound, "product not found")
		}
		s.log.Error("Failed to delete product", zap.Error(err))
		return ErrInternal
	}
	if s.images != nil {
		s.images.Delete(ctx, existing.Image)
	}
	s.invalidate(ctx)

	s.log.Info("Product deleted", zap.String("product_id", id))
	return nil
}

func (s *ProductService) ensureCategory(ctx context.Context, name string) (primitive.ObjectID, *ServiceError) {
	name = strings.TrimSpace(name)
	if name == "" {
		return primitive.NilObjectID, NewServiceError(http.StatusBadRequest, "category is required")
	}
	category, err := s.categories.FindByName(ctx, name)
	if err == nil {
		return category.ID, nil
	}
	if err != repository.ErrNotFound {
		s.log.Error("Failed to look up category", zap.Error(err))
		return primitive.NilObjectID, ErrInternal
	}
	id, err := s.categories.Create(ctx, &models.Category{Name: name})
	if err != nil {
		s.log.Error("Failed to create category", zap.Error(err))
		return primitive.NilObjectID, ErrInternal
	}
	return id, nil
}

func (s *ProductService) invalidate(ctx context.Context) {
	if s.cache != nil {
		s.cache.Invalidate(ctx)
	}
}

func (s *ProductService) toViews(ctx context.Context, products []models.Product) []models.ProductView {
	views := make([]models.ProductView, 0, len(products))
	for _, p := range products {
		views = append(views, s.toView(ctx, p))
	}
	return views
}

func (s *ProductService) toView(ctx context.Context, p models.Product) models.ProductView {
	view := models.ProductView{
		ID:    p.ID.Hex(),
		Name:  p.Name,
		Price: p.Price,
	}
	if s.images != nil {
		view.Image = s.images.Resolve(ctx, p.Image)
	}
	if !p.Category.IsZero() {
		if category, err := s.categories.FindByID(ctx, p.Category); err == nil {
			view.Category = category.Name
		}
	}
	return view
}
