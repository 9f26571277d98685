// Package docstore is the MongoDB-backed home of the catalog, the editorial
// content and uploaded media.
package docstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection names
const (
	CollectionSliders = "sliders"
	CollectionVideos  = "youtubeVideos"
	MediaBucket       = "media"
)

const opTimeout = 5 * time.Second

type DocStore struct {
	client *mongo.Client
	db     *mongo.Database
	media  *gridfs.Bucket
}

// Connect opens a client, verifies it and prepares the media bucket
func Connect(ctx context.Context, uri, database string) (*DocStore, error) {
	clientOpts := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(5 * time.Second).
		SetMaxPoolSize(100).
		SetMinPoolSize(5)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return New(client, database)
}

// New wraps a connected client.
func New(client *mongo.Client, database string) (*DocStore, error) {
	db := client.Database(database)
	bucket, err := gridfs.NewBucket(db, options.GridFSBucket().SetName(MediaBucket))
	if err != nil {
		return nil, fmt.Errorf("failed to open media bucket: %w", err)
	}
	return &DocStore{client: client, db: db, media: bucket}, nil
}

// Close disconnects the client
func (d *DocStore) Close(ctx context.Context) error {
	return d.client.Disconnect(ctx)
}

// Ping checks the connection
func (d *DocStore) Ping(ctx context.Context) error {
	return d.client.Ping(ctx, nil)
}

// CreateIndexes creates the lookup indexes used by the storefront
func (d *DocStore) CreateIndexes(ctx context.Context) error {
	for _, c := range []models.Category{models.CategoryMattress, models.CategoryPillow} {
		_, err := d.db.Collection(c.Collection()).Indexes().CreateMany(ctx, []mongo.IndexModel{
			{Keys: bson.D{{Key: "sku", Value: 1}}},
			{Keys: bson.D{{Key: "createdAt", Value: -1}}},
		})
		if err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", c.Collection(), err)
		}
	}

	_, err := d.db.Collection(CollectionVideos).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "createdAt", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create indexes on %s: %w", CollectionVideos, err)
	}
	return nil
}

func objectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: invalid id %q", models.ErrNotFound, id)
	}
	return oid, nil
}

func notFound(err error, what string) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return fmt.Errorf("%w: %s", models.ErrNotFound, what)
	}
	return err
}
