package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"storefront/internal/catalog"
	"storefront/internal/models"
	"storefront/internal/redisclient"
	"storefront/internal/util"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// ProductRepository reads and writes raw product documents
type ProductRepository interface {
	ListProducts(ctx context.Context, category models.Category) ([]models.RawProduct, error)
	FindProductBySKU(ctx context.Context, category models.Category, sku string) (*models.RawProduct, error)
	InsertProduct(ctx context.Context, category models.Category, raw models.RawProduct) (string, error)
	UpdateProduct(ctx context.Context, category models.Category, id string, raw models.RawProduct) (*models.RawProduct, error)
	DeleteProduct(ctx context.Context, category models.Category, id string) (*models.RawProduct, error)
}

// ProductCache caches normalized products by sku
type ProductCache interface {
	GetProduct(ctx context.Context, category models.Category, sku string) (*models.Product, error)
	SetProduct(ctx context.Context, p *models.Product, ttl time.Duration) error
	InvalidateProduct(ctx context.Context, category models.Category, sku string) error
}

// CatalogService serves product listings and lookups
type CatalogService struct {
	repo     ProductRepository
	cache    ProductCache
	cacheTTL time.Duration
	pageSize int
	sfg      singleflight.Group
	logger   *zap.Logger
}

// NewCatalogService creates a new catalog service
func NewCatalogService(repo ProductRepository, cache ProductCache, cacheTTL time.Duration, pageSize int) *CatalogService {
	if pageSize <= 0 {
		pageSize = catalog.DefaultPageSize
	}
	return &CatalogService{
		repo:     repo,
		cache:    cache,
		cacheTTL: cacheTTL,
		pageSize: pageSize,
		logger:   util.Named("catalog"),
	}
}

// GetBySKU returns a product or catalog.ErrProductNotFound
func (s *CatalogService) GetBySKU(ctx context.Context, category models.Category, sku string) (*models.Product, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.GetBySKU")
	defer span.End()

	sku = strings.TrimSpace(sku)
	if sku == "" {
		return nil, catalog.ErrProductNotFound
	}

	if s.cache != nil {
		p, err := s.cache.GetProduct(ctx, category, sku)
		if err == nil {
			util.CatalogCacheTotal.WithLabelValues("hit").Inc()
			return p, nil
		}
		if !errors.Is(err, redisclient.ErrCacheMiss) {
			s.logger.Warn("Product cache read failed", zap.String("sku", sku), zap.Error(err))
		}
		util.CatalogCacheTotal.WithLabelValues("miss").Inc()
	}

	// Concurrent misses for the same sku share one lookup.
	v, err, _ := s.sfg.Do(string(category)+":"+sku, func() (interface{}, error) {
		raw, err := s.repo.FindProductBySKU(ctx, category, sku)
		if errors.Is(err, models.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", catalog.ErrProductNotFound, sku)
		}
		if err != nil {
			return nil, err
		}

		p, err := catalog.Normalize(*raw, category)
		if err != nil {
			s.logger.Warn("Malformed product record", zap.String("sku", sku), zap.Error(err))
			return nil, fmt.Errorf("%w: %v", catalog.ErrProductNotFound, err)
		}

		if s.cache != nil {
			if err := s.cache.SetProduct(ctx, &p, s.cacheTTL); err != nil {
				s.logger.Warn("Product cache write failed", zap.String("sku", sku), zap.Error(err))
			}
		}
		return &p, nil
	})
	if err != nil {
		return nil, util.RecordError(span, err)
	}

	p := *v.(*models.Product)
	return &p, nil
}

// List returns one page of a filtered category listing
func (s *CatalogService) List(ctx context.Context, category models.Category, q catalog.Query) (catalog.Page, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.List")
	defer span.End()

	products, err := s.all(ctx, category)
	if err != nil {
		return catalog.Page{}, util.RecordError(span, err)
	}

	if q.PageSize <= 0 {
		q.PageSize = s.pageSize
	}
	return catalog.Apply(products, q), nil
}

func (s *CatalogService) all(ctx context.Context, category models.Category) ([]models.Product, error) {
	raws, err := s.repo.ListProducts(ctx, category)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	products := make([]models.Product, 0, len(raws))
	for _, raw := range raws {
		p, err := catalog.Normalize(raw, category)
		if err != nil {
			s.logger.Warn("Skipping malformed product", zap.String("id", raw.ID), zap.Error(err))
			continue
		}
		products = append(products, p)
	}
	return products, nil
}

// Create stores a new product, generating its sku when none was given
func (s *CatalogService) Create(ctx context.Context, category models.Category, p models.Product) (*models.Product, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.Create")
	defer span.End()

	p.Category = category
	if strings.TrimSpace(p.SKU) == "" {
		p.SKU = catalog.GenerateSKU(draftOf(p))
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	if err := catalog.Validate(p); err != nil {
		return nil, err
	}

	id, err := s.repo.InsertProduct(ctx, category, catalog.ToRaw(p))
	if err != nil {
		return nil, util.RecordError(span, err)
	}
	p.ID = id

	s.logger.Info("Product created", zap.String("category", string(category)), zap.String("sku", p.SKU))
	return &p, nil
}

// Update replaces a product and drops the cached copies under its old and new sku
func (s *CatalogService) Update(ctx context.Context, category models.Category, id string, p models.Product) (*models.Product, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.Update")
	defer span.End()

	p.ID = id
	p.Category = category
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	if err := catalog.Validate(p); err != nil {
		return nil, err
	}

	previous, err := s.repo.UpdateProduct(ctx, category, id, catalog.ToRaw(p))
	if errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", catalog.ErrProductNotFound, id)
	}
	if err != nil {
		return nil, util.RecordError(span, err)
	}
	if previous.SKU != p.SKU {
		s.invalidate(ctx, category, previous.SKU)
	}
	s.invalidate(ctx, category, p.SKU)
	return &p, nil
}

// Delete removes a product and drops its cached copy
func (s *CatalogService) Delete(ctx context.Context, category models.Category, id string) error {
	ctx, span := util.StartSpan(ctx, "CatalogService.Delete")
	defer span.End()

	raw, err := s.repo.DeleteProduct(ctx, category, id)
	if errors.Is(err, models.ErrNotFound) {
		return fmt.Errorf("%w: %s", catalog.ErrProductNotFound, id)
	}
	if err != nil {
		return util.RecordError(span, err)
	}
	s.invalidate(ctx, category, raw.SKU)
	return nil
}

func (s *CatalogService) invalidate(ctx context.Context, category models.Category, sku string) {
	if s.cache == nil || sku == "" {
		return
	}
	if err := s.cache.InvalidateProduct(ctx, category, sku); err != nil {
		s.logger.Warn("Product cache invalidation failed", zap.String("sku", sku), zap.Error(err))
	}
}

func draftOf(p models.Product) catalog.SKUDraft {
	return catalog.SKUDraft{
		Title:     p.Title,
		Type:      p.Type,
		Price:     p.Price.StringFixed(0),
		Stock:     strconv.Itoa(p.Stock),
		Size:      first(p.Sizes),
		Thickness: first(p.Thicknesses),
	}
}

func first(vs []string) string {
	if len(vs) == 0 {
		return ""
	}
	return vs[0]
}
