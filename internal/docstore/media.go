package docstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"storefront/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MediaURL is the public path an uploaded file is served from.
func MediaURL(id string) string {
	return "/media/" + id
}

// UploadMedia stores a binary in the media bucket
func (d *DocStore) UploadMedia(ctx context.Context, filename, contentType string, r io.Reader) (*models.Media, error) {
	opts := options.GridFSUpload().SetMetadata(bson.D{{Key: "contentType", Value: contentType}})

	stream, err := d.media.OpenUploadStream(filename, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open upload stream: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = stream.SetWriteDeadline(deadline)
	}

	size, err := io.Copy(stream, r)
	if err != nil {
		_ = stream.Abort()
		return nil, fmt.Errorf("failed to upload %s: %w", filename, err)
	}
	if err := stream.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish upload of %s: %w", filename, err)
	}

	id := stream.FileID.(primitive.ObjectID).Hex()
	return &models.Media{
		ID:          id,
		Filename:    filename,
		ContentType: contentType,
		Size:        size,
		URL:         MediaURL(id),
		UploadedAt:  time.Now(),
	}, nil
}

// OpenMedia returns a reader over a stored binary and its description
func (d *DocStore) OpenMedia(ctx context.Context, id string) (io.ReadCloser, *models.Media, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, nil, err
	}

	stream, err := d.media.OpenDownloadStream(oid)
	if errors.Is(err, gridfs.ErrFileNotFound) {
		return nil, nil, fmt.Errorf("%w: media %s", models.ErrNotFound, id)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open media %s: %w", id, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = stream.SetReadDeadline(deadline)
	}

	file := stream.GetFile()
	media := &models.Media{
		ID:          id,
		Filename:    file.Name,
		ContentType: "application/octet-stream",
		Size:        file.Length,
		URL:         MediaURL(id),
		UploadedAt:  file.UploadDate,
	}
	if v, err := file.Metadata.LookupErr("contentType"); err == nil {
		if ct, ok := v.StringValueOK(); ok && ct != "" {
			media.ContentType = ct
		}
	}
	return stream, media, nil
}

// DeleteMedia removes a stored binary
func (d *DocStore) DeleteMedia(ctx context.Context, id string) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}
	if err := d.media.DeleteContext(ctx, oid); err != nil {
		if errors.Is(err, gridfs.ErrFileNotFound) {
			return fmt.Errorf("%w: media %s", models.ErrNotFound, id)
		}
		return fmt.Errorf("failed to delete media %s: %w", id, err)
	}
	return nil
}
