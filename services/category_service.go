package services

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/deepaktraders/storefront-backend/models"
	"github.com/deepaktraders/storefront-backend/repository"
)

// CategoryService serves the category list and the storefront landing page
// previews.
type CategoryService struct {
	categories repository.CategoryRepository
	products   repository.ProductRepository
	images     *ImageService
	log        *zap.Logger
}

func NewCategoryService(categories repository.CategoryRepository, products repository.ProductRepository, images *ImageService, log *zap.Logger) *CategoryService {
	return &CategoryService{categories: categories, products: products, images: images, log: log}
}

func (s *CategoryService) List(ctx context.Context) ([]models.Category, *ServiceError) {
	categories, err := s.categories.List(ctx)
	if err != nil {
		s.log.Error("Failed to list categories", zap.Error(err))
		return nil, ErrInternal
	}
	if categories == nil {
		categories = []models.Category{}
	}
	return categories, nil
}

// Previews returns each category with its newest products, for the landing
// page grid.
func (s *CategoryService) Previews(ctx context.Context, perCategory int) ([]models.CategoryPreview, *ServiceError) {
	if perCategory < 1 {
		perCategory = 3
	}
	categories, err := s.categories.List(ctx)
	if err != nil {
		s.log.Error("Failed to list categories", zap.Error(err))
		return nil, ErrInternal
	}

	previews := make([]models.CategoryPreview, 0, len(categories))
	for _, category := range categories {
		products, err := s.products.FindByCategory(ctx, category.ID, perCategory)
		if err != nil {
			s.log.Error("Failed to load category previews",
				zap.String("category", category.Name),
				zap.Error(err),
			)
			return nil, ErrInternal
		}

		views := make([]models.ProductView, 0, len(products))
		for _, p := range products {
			view := models.ProductView{
				ID:       p.ID.Hex(),
				Name:     p.Name,
				Price:    p.Price,
				Category: category.Name,
			}
			if s.images != nil {
				view.Image = s.images.Resolve(ctx, p.Image)
			}
			views = append(views, view)
		}
		previews = append(previews, models.CategoryPreview{Category: category, Previews: views})
	}
	return previews, nil
}

// Create adds a category, rejecting case-insensitive duplicates.
func (s *CategoryService) Create(ctx context.Context, name string) (*models.Category, *ServiceError) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, NewServiceError(http.StatusBadRequest, "name is required")
	}

	if _, err := s.categories.FindByName(ctx, name); err == nil {
		return nil, NewServiceError(http.StatusConflict, "category already exists")
	} else if err != repository.ErrNotFound {
		s.log.Error("Failed to check category", zap.Error(err))
		return nil, ErrInternal
	}

	category := &models.Category{Name: name}
	id, err := s.categories.Create(ctx, category)
	if err != nil {
		s.log.Error("Failed to create category", zap.Error(err))
		return nil, ErrInternal
	}
	category.ID = id
	return category, nil
}
