package service

import (
	"context"
	"io"
	"strings"

	"storefront/internal/content"
	"storefront/internal/models"
	"storefront/internal/util"

	"go.uber.org/zap"
)

// ContentRepository stores sliders and videos
type ContentRepository interface {
	ListSliders(ctx context.Context) ([]models.Slider, error)
	SaveSlider(ctx context.Context, s models.Slider) (models.Slider, error)
	DeleteSlider(ctx context.Context, id string) error
	ListVideos(ctx context.Context) ([]models.Video, error)
	InsertVideo(ctx context.Context, v models.Video) (models.Video, error)
	DeleteVideo(ctx context.Context, id string) error
}

// MediaStore keeps uploaded binaries
type MediaStore interface {
	UploadMedia(ctx context.Context, filename, contentType string, r io.Reader) (*models.Media, error)
	OpenMedia(ctx context.Context, id string) (io.ReadCloser, *models.Media, error)
	DeleteMedia(ctx context.Context, id string) error
}

// ContentService manages the editorial content of the home page
type ContentService struct {
	repo   ContentRepository
	media  MediaStore
	logger *zap.Logger
}

// NewContentService creates a new content service
func NewContentService(repo ContentRepository, media MediaStore) *ContentService {
	return &ContentService{repo: repo, media: media, logger: util.Named("content")}
}

// Sliders returns the configured sliders, or the default one when none exist
func (s *ContentService) Sliders(ctx context.Context) ([]models.Slider, error) {
	sliders, err := s.repo.ListSliders(ctx)
	if err != nil {
		return nil, err
	}
	if len(sliders) == 0 {
		return []models.Slider{content.DefaultSlider()}, nil
	}
	return sliders, nil
}

// SaveSlider validates and stores a slider
func (s *ContentService) SaveSlider(ctx context.Context, slider models.Slider) (models.Slider, error) {
	if slider.ID == "default" {
		slider.ID = ""
	}
	if err := content.ValidateSlider(slider); err != nil {
		return models.Slider{}, err
	}
	return s.repo.SaveSlider(ctx, slider)
}

// DeleteSlider removes a slider
func (s *ContentService) DeleteSlider(ctx context.Context, id string) error {
	return s.repo.DeleteSlider(ctx, id)
}

// Videos returns videos newest first
func (s *ContentService) Videos(ctx context.Context) ([]models.Video, error) {
	return s.repo.ListVideos(ctx)
}

// AddVideo rejects URLs without a recognizable video id before storing anything
func (s *ContentService) AddVideo(ctx context.Context, rawURL string) (models.Video, error) {
	id, err := content.ExtractVideoID(rawURL)
	if err != nil {
		return models.Video{}, err
	}

	v, err := s.repo.InsertVideo(ctx, models.Video{URL: strings.TrimSpace(rawURL), VideoID: id})
	if err != nil {
		return models.Video{}, err
	}
	s.logger.Info("Video added", zap.String("video_id", id))
	return v, nil
}

// DeleteVideo removes a video
func (s *ContentService) DeleteVideo(ctx context.Context, id string) error {
	return s.repo.DeleteVideo(ctx, id)
}

// Upload stores a binary and returns where it can be fetched
func (s *ContentService) Upload(ctx context.Context, filename, contentType string, r io.Reader) (*models.Media, error) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return s.media.UploadMedia(ctx, filename, contentType, r)
}

// Open returns a stored binary
func (s *ContentService) Open(ctx context.Context, id string) (io.ReadCloser, *models.Media, error) {
	return s.media.OpenMedia(ctx, id)
}

// DeleteMedia removes a stored binary
func (s *ContentService) DeleteMedia(ctx context.Context, id string) error {
	return s.media.DeleteMedia(ctx, id)
}
