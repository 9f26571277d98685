package worker

import (
	"context"
	"fmt"
	"sync"

	"storefront/internal/catalog"
	"storefront/internal/live"
	"storefront/internal/models"
	"storefront/internal/util"

	"go.uber.org/zap"
)

// ChangeSource streams product collection changes.
type ChangeSource interface {
	WatchProducts(ctx context.Context, category models.Category) (<-chan models.CatalogChange, error)
}

// ProductCache drops stale cached products.
type ProductCache interface {
	InvalidateProduct(ctx context.Context, category models.Category, sku string) error
}

// CatalogUpdate is the payload broadcast for a product change.
type CatalogUpdate struct {
	Operation string          `json:"operation"`
	ID        string          `json:"id"`
	Product   *models.Product `json:"product,omitempty"`
}

// CatalogWatcher keeps the product cache and live catalog feeds in step
// with writes made directly against the document store.
type CatalogWatcher struct {
	source     ChangeSource
	cache      ProductCache
	feed       Broadcaster
	categories []models.Category
	logger     *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewCatalogWatcher creates a watcher over the given categories
func NewCatalogWatcher(source ChangeSource, cache ProductCache, feed Broadcaster, categories ...models.Category) *CatalogWatcher {
	return &CatalogWatcher{
		source:     source,
		cache:      cache,
		feed:       feed,
		categories: categories,
		logger:     util.Named("catalog-watcher"),
	}
}

// Start opens one change stream per category and returns once all are open.
func (w *CatalogWatcher) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	for _, cat := range w.categories {
		changes, err := w.source.WatchProducts(ctx, cat)
		if err != nil {
			cancel()
			w.wg.Wait()
			return fmt.Errorf("failed to watch %s: %w", cat, err)
		}

		w.wg.Add(1)
		go func(cat models.Category, changes <-chan models.CatalogChange) {
			defer w.wg.Done()
			for change := range changes {
				w.apply(ctx, change)
			}
			w.logger.Info("Catalog change stream closed", zap.String("category", string(cat)))
		}(cat, changes)
	}

	w.logger.Info("Catalog watcher started", zap.Int("categories", len(w.categories)))
	return nil
}

func (w *CatalogWatcher) apply(ctx context.Context, change models.CatalogChange) {
	update := CatalogUpdate{Operation: change.Operation, ID: change.ID}

	if change.Product != nil {
		if change.Product.SKU != "" && w.cache != nil {
			if err := w.cache.InvalidateProduct(ctx, change.Category, change.Product.SKU); err != nil {
				w.logger.Warn("Failed to invalidate cached product",
					zap.String("sku", change.Product.SKU),
					zap.Error(err))
			}
		}
		if p, err := catalog.Normalize(*change.Product, change.Category); err == nil {
			update.Product = &p
		} else {
			w.logger.Warn("Skipping product payload in change", zap.String("id", change.ID), zap.Error(err))
		}
	}

	w.feed.Broadcast(live.CatalogTopic(string(change.Category)), change.Operation, update)
}

// Stop closes the change streams and waits for the relays to drain
func (w *CatalogWatcher) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
