package service

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"storefront/internal/content"
	"storefront/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryContent struct {
	sliders []models.Slider
	videos  []models.Video
}

func (m *memoryContent) ListSliders(ctx context.Context) ([]models.Slider, error) {
	return m.sliders, nil
}

func (m *memoryContent) SaveSlider(ctx context.Context, s models.Slider) (models.Slider, error) {
	if s.ID == "" {
		s.ID = "s" + string(rune('0'+len(m.sliders)))
	}
	m.sliders = append(m.sliders, s)
	return s, nil
}

func (m *memoryContent) DeleteSlider(ctx context.Context, id string) error {
	return nil
}

func (m *memoryContent) ListVideos(ctx context.Context) ([]models.Video, error) {
	return m.videos, nil
}

func (m *memoryContent) InsertVideo(ctx context.Context, v models.Video) (models.Video, error) {
	v.ID = "v1"
	m.videos = append(m.videos, v)
	return v, nil
}

func (m *memoryContent) DeleteVideo(ctx context.Context, id string) error {
	return nil
}

type memoryMedia struct {
	files map[string][]byte
}

func (m *memoryMedia) UploadMedia(ctx context.Context, filename, contentType string, r io.Reader) (*models.Media, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	m.files[filename] = data
	return &models.Media{ID: filename, Filename: filename, ContentType: contentType, Size: int64(len(data)), URL: "/media/" + filename}, nil
}

func (m *memoryMedia) OpenMedia(ctx context.Context, id string) (io.ReadCloser, *models.Media, error) {
	data, ok := m.files[id]
	if !ok {
		return nil, nil, models.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), &models.Media{ID: id}, nil
}

func (m *memoryMedia) DeleteMedia(ctx context.Context, id string) error {
	delete(m.files, id)
	return nil
}

func TestContentService_Sliders(t *testing.T) {
	repo := &memoryContent{}
	svc := NewContentService(repo, &memoryMedia{files: map[string][]byte{}})
	ctx := context.Background()

	sliders, err := svc.Sliders(ctx)
	require.NoError(t, err)
	require.Len(t, sliders, 1)
	assert.Equal(t, "default", sliders[0].ID)

	_, err = svc.SaveSlider(ctx, models.Slider{Title: "No image"})
	assert.ErrorIs(t, err, content.ErrInvalidSlider)

	// editing the default slide creates a real one
	def := content.DefaultSlider()
	saved, err := svc.SaveSlider(ctx, def)
	require.NoError(t, err)
	assert.NotEqual(t, "default", saved.ID)

	sliders, err = svc.Sliders(ctx)
	require.NoError(t, err)
	assert.Len(t, sliders, 1)
}

func TestContentService_VideosRejectedBeforeSubmission(t *testing.T) {
	repo := &memoryContent{}
	svc := NewContentService(repo, &memoryMedia{files: map[string][]byte{}})
	ctx := context.Background()

	_, err := svc.AddVideo(ctx, "https://vimeo.com/12345")
	assert.ErrorIs(t, err, content.ErrInvalidVideoURL)
	assert.Empty(t, repo.videos)

	v, err := svc.AddVideo(ctx, " https://youtu.be/dQw4w9WgXcQ ")
	require.NoError(t, err)
	assert.Equal(t, "dQw4w9WgXcQ", v.VideoID)
	assert.Equal(t, "https://youtu.be/dQw4w9WgXcQ", v.URL)
}

func TestContentService_Media(t *testing.T) {
	svc := NewContentService(&memoryContent{}, &memoryMedia{files: map[string][]byte{}})
	ctx := context.Background()

	m, err := svc.Upload(ctx, "hero.jpg", "", strings.NewReader("jpeg"))
	require.NoError(t, err)
	assert.Equal(t, "application/octet-stream", m.ContentType)

	rc, _, err := svc.Open(ctx, "hero.jpg")
	require.NoError(t, err)
	body, _ := io.ReadAll(rc)
	assert.Equal(t, "jpeg", string(body))

	require.NoError(t, svc.DeleteMedia(ctx, "hero.jpg"))
	_, _, err = svc.Open(ctx, "hero.jpg")
	assert.ErrorIs(t, err, models.ErrNotFound)
}
