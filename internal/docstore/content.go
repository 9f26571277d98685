package docstore

import (
	"context"
	"fmt"
	"time"

	"storefront/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type sliderDocument struct {
	ID            primitive.ObjectID `bson:"_id,omitempty"`
	models.Slider `bson:",inline"`
}

type videoDocument struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	models.Video `bson:",inline"`
}

// ListSliders returns sliders in display order
func (d *DocStore) ListSliders(ctx context.Context) ([]models.Slider, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	cur, err := d.db.Collection(CollectionSliders).Find(ctx, bson.M{},
		options.Find().SetSort(bson.D{{Key: "position", Value: 1}, {Key: "createdAt", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list sliders: %w", err)
	}
	defer cur.Close(ctx)

	var docs []sliderDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode sliders: %w", err)
	}

	out := make([]models.Slider, 0, len(docs))
	for _, doc := range docs {
		s := doc.Slider
		s.ID = doc.ID.Hex()
		out = append(out, s)
	}
	return out, nil
}

// SaveSlider inserts a slider when ID is empty and replaces it otherwise
func (d *DocStore) SaveSlider(ctx context.Context, s models.Slider) (models.Slider, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	coll := d.db.Collection(CollectionSliders)
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now()
	}

	if s.ID == "" {
		res, err := coll.InsertOne(ctx, sliderDocument{Slider: s})
		if err != nil {
			return models.Slider{}, fmt.Errorf("failed to insert slider: %w", err)
		}
		s.ID = res.InsertedID.(primitive.ObjectID).Hex()
		return s, nil
	}

	oid, err := objectID(s.ID)
	if err != nil {
		return models.Slider{}, err
	}
	res, err := coll.ReplaceOne(ctx, bson.M{"_id": oid}, sliderDocument{Slider: s})
	if err != nil {
		return models.Slider{}, fmt.Errorf("failed to update slider: %w", err)
	}
	if res.MatchedCount == 0 {
		return models.Slider{}, fmt.Errorf("%w: slider %s", models.ErrNotFound, s.ID)
	}
	return s, nil
}

// DeleteSlider removes a slider
func (d *DocStore) DeleteSlider(ctx context.Context, id string) error {
	return d.deleteByID(ctx, CollectionSliders, id)
}

// ListVideos returns videos newest first
func (d *DocStore) ListVideos(ctx context.Context) ([]models.Video, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	cur, err := d.db.Collection(CollectionVideos).Find(ctx, bson.M{},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list videos: %w", err)
	}
	defer cur.Close(ctx)

	var docs []videoDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode videos: %w", err)
	}

	out := make([]models.Video, 0, len(docs))
	for _, doc := range docs {
		v := doc.Video
		v.ID = doc.ID.Hex()
		out = append(out, v)
	}
	return out, nil
}

// InsertVideo stores a validated video
func (d *DocStore) InsertVideo(ctx context.Context, v models.Video) (models.Video, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now()
	}
	res, err := d.db.Collection(CollectionVideos).InsertOne(ctx, videoDocument{Video: v})
	if err != nil {
		return models.Video{}, fmt.Errorf("failed to insert video: %w", err)
	}
	v.ID = res.InsertedID.(primitive.ObjectID).Hex()
	return v, nil
}

// DeleteVideo removes a video
func (d *DocStore) DeleteVideo(ctx context.Context, id string) error {
	return d.deleteByID(ctx, CollectionVideos, id)
}

func (d *DocStore) deleteByID(ctx context.Context, collection, id string) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := d.db.Collection(collection).DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("failed to delete from %s: %w", collection, err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("%w: %s %s", models.ErrNotFound, collection, id)
	}
	return nil
}
