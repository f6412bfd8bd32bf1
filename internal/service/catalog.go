package service

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/util"
)

type Searcher interface {
	Search(ctx context.Context, query string, from, size int) (int64, []models.Product, error)
}

type CatalogService struct {
	Repo     *repo.GormRepo
	Searcher Searcher
}

type ProductPage struct {
	Category *models.Category `json:"category,omitempty"`
	Total    int64            `json:"total"`
	Page     int              `json:"page"`
	Size     int              `json:"size"`
	Items    []models.Product `json:"items"`
}

func (s *CatalogService) Categories(ctx context.Context) ([]models.Category, error) {
	return s.Repo.ListCategories(ctx)
}

// Products lists available products, narrowed to a category when slug is set.
func (s *CatalogService) Products(ctx context.Context, categorySlug string, page, size int) (*ProductPage, error) {
	var cat *models.Category
	var categoryID uint
	if categorySlug != "" {
		c, err := s.Repo.CategoryBySlug(ctx, categorySlug)
		if err != nil {
			return nil, notFound(err, "category")
		}
		cat, categoryID = c, c.ID
	}

	from, limit := util.Calculate(page, size)
	total, items, err := s.Repo.ListAvailable(ctx, categoryID, from, limit)
	if err != nil {
		return nil, err
	}
	return &ProductPage{Category: cat, Total: total, Page: from/limit + 1, Size: limit, Items: items}, nil
}

func (s *CatalogService) Product(ctx context.Context, id uint, slug string) (*models.Product, error) {
	p, err := s.Repo.AvailableProduct(ctx, id, slug)
	if err != nil {
		return nil, notFound(err, "product")
	}
	return p, nil
}

// ProductByID resolves a product for cart operations regardless of availability.
func (s *CatalogService) ProductByID(ctx context.Context, id uint) (*models.Product, error) {
	p, err := s.Repo.ProductByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "product")
	}
	return p, nil
}

func (s *CatalogService) FindByIDs(ctx context.Context, ids []uint) ([]models.Product, error) {
	return s.Repo.FindByIDs(ctx, ids)
}

// Search uses Elasticsearch when configured and falls back to the database
// when it is absent or failing.
func (s *CatalogService) Search(ctx context.Context, q string, page, size int) (*ProductPage, error) {
	l := logging.FromContext(ctx).With("svc", "catalog.search")
	if q == "" {
		return nil, fmt.Errorf("%w: empty query", ErrValidation)
	}

	from, limit := util.Calculate(page, size)
	if s.Searcher != nil {
		total, items, err := s.Searcher.Search(ctx, q, from, limit)
		if err == nil {
			return &ProductPage{Total: total, Page: from/limit + 1, Size: limit, Items: items}, nil
		}
		l.Warn("search_backend_failed", "error", err)
	}

	total, items, err := s.Repo.SearchProducts(ctx, q, from, limit)
	if err != nil {
		return nil, err
	}
	return &ProductPage{Total: total, Page: from/limit + 1, Size: limit, Items: items}, nil
}

func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, what)
	}
	return err
}
