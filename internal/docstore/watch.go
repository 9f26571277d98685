package docstore

import (
	"context"
	"fmt"

	"storefront/internal/models"
	"storefront/internal/util"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

type changeEvent struct {
	OperationType string `bson:"operationType"`
	DocumentKey   struct {
		ID primitive.ObjectID `bson:"_id"`
	} `bson:"documentKey"`
	FullDocument *productDocument `bson:"fullDocument"`
}

// WatchProducts streams inserts, updates and deletes on a category's
// collection until ctx is cancelled. Requires a replica set.
func (d *DocStore) WatchProducts(ctx context.Context, category models.Category) (<-chan models.CatalogChange, error) {
	opts := options.ChangeStream().SetFullDocument(options.UpdateLookup)

	stream, err := d.db.Collection(category.Collection()).Watch(ctx, mongo.Pipeline{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to watch %s: %w", category.Collection(), err)
	}

	out := make(chan models.CatalogChange, 16)
	logger := util.Named("docstore")

	go func() {
		defer close(out)
		defer stream.Close(context.Background())

		for stream.Next(ctx) {
			var ev changeEvent
			if err := stream.Decode(&ev); err != nil {
				logger.Warn("Failed to decode change event", zap.Error(err))
				continue
			}

			change := models.CatalogChange{
				Category:  category,
				Operation: ev.OperationType,
				ID:        ev.DocumentKey.ID.Hex(),
			}
			if ev.FullDocument != nil {
				raw := ev.FullDocument.raw()
				change.Product = &raw
			}

			select {
			case out <- change:
			case <-ctx.Done():
				return
			}
		}
		if err := stream.Err(); err != nil && ctx.Err() == nil {
			logger.Error("Change stream stopped", zap.String("collection", category.Collection()), zap.Error(err))
		}
	}()

	return out, nil
}
