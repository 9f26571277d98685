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

type productDocument struct {
	ID                primitive.ObjectID `bson:"_id,omitempty"`
	models.RawProduct `bson:",inline"`
}

func (p productDocument) raw() models.RawProduct {
	raw := p.RawProduct
	raw.ID = p.ID.Hex()
	return raw
}

// ListProducts returns every product of a category
func (d *DocStore) ListProducts(ctx context.Context, category models.Category) ([]models.RawProduct, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	cur, err := d.db.Collection(category.Collection()).Find(ctx, bson.M{},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", category.Collection(), err)
	}
	defer cur.Close(ctx)

	var docs []productDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", category.Collection(), err)
	}

	out := make([]models.RawProduct, 0, len(docs))
	for _, doc := range docs {
		out = append(out, doc.raw())
	}
	return out, nil
}

// FindProductBySKU returns the product with sku or models.ErrNotFound
func (d *DocStore) FindProductBySKU(ctx context.Context, category models.Category, sku string) (*models.RawProduct, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var doc productDocument
	err := d.db.Collection(category.Collection()).FindOne(ctx, bson.M{"sku": sku}).Decode(&doc)
	if err != nil {
		return nil, notFound(err, "product "+sku)
	}
	raw := doc.raw()
	return &raw, nil
}

// InsertProduct stores a new product and returns its id
func (d *DocStore) InsertProduct(ctx context.Context, category models.Category, raw models.RawProduct) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if raw.CreatedAt.IsZero() {
		raw.CreatedAt = time.Now()
	}
	res, err := d.db.Collection(category.Collection()).InsertOne(ctx, productDocument{RawProduct: raw})
	if err != nil {
		return "", fmt.Errorf("failed to insert product: %w", err)
	}
	return res.InsertedID.(primitive.ObjectID).Hex(), nil
}

// UpdateProduct replaces the product document with id and returns the
// document as it was before the write
func (d *DocStore) UpdateProduct(ctx context.Context, category models.Category, id string, raw models.RawProduct) (*models.RawProduct, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var doc productDocument
	err = d.db.Collection(category.Collection()).
		FindOneAndReplace(ctx, bson.M{"_id": oid}, productDocument{RawProduct: raw}).
		Decode(&doc)
	if err != nil {
		return nil, notFound(err, "product "+id)
	}
	previous := doc.raw()
	return &previous, nil
}

// UpsertProductBySKU inserts or replaces the product keyed by its sku
func (d *DocStore) UpsertProductBySKU(ctx context.Context, category models.Category, raw models.RawProduct) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := d.db.Collection(category.Collection()).ReplaceOne(ctx,
		bson.M{"sku": raw.SKU}, productDocument{RawProduct: raw}, options.Replace().SetUpsert(true))
	if err != nil {
		return false, fmt.Errorf("failed to upsert product %s: %w", raw.SKU, err)
	}
	return res.UpsertedCount > 0, nil
}

// DeleteProduct removes the product with id and returns the deleted record
func (d *DocStore) DeleteProduct(ctx context.Context, category models.Category, id string) (*models.RawProduct, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var doc productDocument
	err = d.db.Collection(category.Collection()).FindOneAndDelete(ctx, bson.M{"_id": oid}).Decode(&doc)
	if err != nil {
		return nil, notFound(err, "product "+id)
	}
	raw := doc.raw()
	return &raw, nil
}
