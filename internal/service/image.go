package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/oklog/ulid/v2"

	"github.com/ytvaala/ytvaala/internal/apperr"
	"github.com/ytvaala/ytvaala/internal/cache"
	"github.com/ytvaala/ytvaala/internal/generation"
	"github.com/ytvaala/ytvaala/internal/metered"
	"github.com/ytvaala/ytvaala/internal/metrics"
	"github.com/ytvaala/ytvaala/internal/model"
	"github.com/ytvaala/ytvaala/internal/repository"
	"github.com/ytvaala/ytvaala/internal/storage"
)

// Operation listing limits.
const (
	DefaultListLimit = 50
	MaxListLimit     = 100
)

// Image errors returned to clients.
var (
	ErrProviderUnavailable  = apperr.BadRequest("Provider is not available")
	ErrOperationNotFound    = apperr.NotFound("Operation not found")
	ErrInvalidFaceImage     = apperr.Validation("Invalid face image", faceImageDetails("must be a base64 image data URI"))
	ErrUnsupportedFaceImage = apperr.Validation("Unsupported face image", faceImageDetails("must be a JPEG, PNG or WebP image"))
)

func faceImageDetails(msg string) map[string]string {
	return map[string]string{"faceImageData": msg}
}

var faceImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// OperationReader reads operation records scoped to their owner.
type OperationReader interface {
	GetOperation(ctx context.Context, accountID, id string) (*model.Operation, error)
	ListOperations(ctx context.Context, accountID string, limit int) ([]*model.Operation, error)
}

// OperationCache holds finalized operations.
type OperationCache interface {
	GetOperation(ctx context.Context, accountID, id string) (*model.Operation, error)
	SetOperation(ctx context.Context, op *model.Operation) error
}

// SEOWriter drafts video metadata.
type SEOWriter interface {
	GenerateSEO(ctx context.Context, topic string) (*generation.SEOResult, error)
}

// ImageConfig holds ImageService dependencies. Cache and SEO are optional.
type ImageConfig struct {
	Catalog  *generation.Catalog
	Uploader storage.Uploader
	Runner   *metered.Runner
	Reader   OperationReader
	Cache    OperationCache
	SEO      SEOWriter
	Metrics  metrics.Recorder
	Logger   *slog.Logger
}

// ImageService runs paid generation operations and serves their records.
type ImageService struct {
	catalog  *generation.Catalog
	uploader storage.Uploader
	runner   *metered.Runner
	reader   OperationReader
	cache    OperationCache
	seo      SEOWriter
	metrics  metrics.Recorder
	logger   *slog.Logger
}

// NewImageService creates a new ImageService.
func NewImageService(cfg ImageConfig) *ImageService {
	recorder := cfg.Metrics
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &ImageService{
		catalog:  cfg.Catalog,
		uploader: cfg.Uploader,
		runner:   cfg.Runner,
		reader:   cfg.Reader,
		cache:    cfg.Cache,
		seo:      cfg.SEO,
		metrics:  recorder,
		logger:   logger.With("component", "images"),
	}
}

// GenerateInput defines input for a free-form image.
type GenerateInput struct {
	Prompt   string
	Provider string
}

// ThumbnailInput defines input for a video thumbnail. FaceImageData is a
// base64 data URI of the creator's face.
type ThumbnailInput struct {
	VideoTitle    string
	Category      string
	Style         string
	Mood          string
	IncludeFace   bool
	FaceImageData string
}

// Generate creates an image from a free-form prompt.
func (s *ImageService) Generate(ctx context.Context, accountID string, input GenerateInput) (*model.Operation, error) {
	provider := input.Provider
	if provider == "" {
		provider = generation.DefaultProvider
	}
	return s.runImage(ctx, accountID, model.KindImage, provider, strings.TrimSpace(input.Prompt), nil)
}

// Thumbnail creates a 16:9 video thumbnail, using the face photo as a
// reference when one is sent.
func (s *ImageService) Thumbnail(ctx context.Context, accountID string, input ThumbnailInput) (*model.Operation, error) {
	var face *generation.InlineImage
	if input.IncludeFace && input.FaceImageData != "" {
		img, err := generation.ParseDataURI(input.FaceImageData)
		if err != nil {
			return nil, ErrInvalidFaceImage.Wrap(err)
		}
		if !faceImageTypes[img.MIMEType] {
			return nil, ErrUnsupportedFaceImage
		}
		face = img
	}

	prompt := generation.ThumbnailPrompt(generation.ThumbnailInput{
		VideoTitle:   input.VideoTitle,
		Category:     input.Category,
		Style:        input.Style,
		Mood:         input.Mood,
		IncludeFace:  input.IncludeFace,
		HasFaceImage: face != nil,
	})
	return s.runImage(ctx, accountID, model.KindThumbnail, generation.DefaultProvider, prompt, face)
}

// Banner creates channel banner art.
func (s *ImageService) Banner(ctx context.Context, accountID, description string) (*model.Operation, error) {
	return s.runImage(ctx, accountID, model.KindBanner, generation.DefaultProvider, generation.BannerPrompt(description), nil)
}

// Logo creates a square channel logo.
func (s *ImageService) Logo(ctx context.Context, accountID, description string) (*model.Operation, error) {
	return s.runImage(ctx, accountID, model.KindLogo, generation.DefaultProvider, generation.LogoPrompt(description), nil)
}

// Social creates a square social media post image.
func (s *ImageService) Social(ctx context.Context, accountID, idea string) (*model.Operation, error) {
	return s.runImage(ctx, accountID, model.KindSocial, generation.DefaultProvider, generation.SocialPostPrompt(idea), nil)
}

// Shorts creates a 9:16 cover for short-form video.
func (s *ImageService) Shorts(ctx context.Context, accountID, idea string) (*model.Operation, error) {
	return s.runImage(ctx, accountID, model.KindShorts, generation.DefaultProvider, generation.ShortsPrompt(idea), nil)
}

// SEO drafts a title, description and tags for a video topic. The result
// is stored as a JSON asset.
func (s *ImageService) SEO(ctx context.Context, accountID, topic string) (*model.Operation, error) {
	if s.seo == nil {
		return nil, ErrProviderUnavailable
	}
	_, cost, err := s.catalog.Lookup(generation.ProviderGemini)
	if err != nil {
		return nil, ErrProviderUnavailable.Wrap(err)
	}

	task := func(ctx context.Context) (string, error) {
		result, err := s.seo.GenerateSEO(ctx, topic)
		if err != nil {
			return "", err
		}
		data, err := json.Marshal(result)
		if err != nil {
			return "", fmt.Errorf("failed to encode seo result: %w", err)
		}
		return s.upload(ctx, model.KindSEO, &generation.Asset{Data: data, ContentType: "application/json"})
	}

	return s.run(ctx, accountID, metered.Request{
		Kind:     model.KindSEO,
		Provider: generation.ProviderGemini,
		Prompt:   generation.SEOPrompt(topic),
		Cost:     cost,
		Task:     task,
	})
}

// Get returns one of the caller's operations. Finalized records are served
// from the cache when one is configured.
func (s *ImageService) Get(ctx context.Context, accountID, id string) (*model.Operation, error) {
	if s.cache != nil {
		op, err := s.cache.GetOperation(ctx, accountID, id)
		switch {
		case err == nil:
			s.metrics.IncOperationCacheHit()
			return op, nil
		case errors.Is(err, cache.ErrCacheMiss):
			s.metrics.IncOperationCacheMiss()
		default:
			s.metrics.IncOperationCacheMiss()
			s.logger.WarnContext(ctx, "operation cache read failed", slog.String("error", err.Error()))
		}
	}

	op, err := s.reader.GetOperation(ctx, accountID, id)
	if err != nil {
		if errors.Is(err, repository.ErrOperationNotFound) {
			return nil, ErrOperationNotFound
		}
		return nil, fmt.Errorf("failed to get operation: %w", err)
	}

	s.remember(ctx, op)
	return op, nil
}

// List returns the caller's operations, newest first.
func (s *ImageService) List(ctx context.Context, accountID string, limit int) ([]*model.Operation, error) {
	switch {
	case limit <= 0:
		limit = DefaultListLimit
	case limit > MaxListLimit:
		limit = MaxListLimit
	}

	ops, err := s.reader.ListOperations(ctx, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list operations: %w", err)
	}
	return ops, nil
}

func (s *ImageService) runImage(ctx context.Context, accountID string, kind model.OperationKind, providerName, prompt string, reference *generation.InlineImage) (*model.Operation, error) {
	provider, cost, err := s.catalog.Lookup(providerName)
	if err != nil {
		return nil, ErrProviderUnavailable.Wrap(err)
	}

	task := func(ctx context.Context) (string, error) {
		asset, err := provider.GenerateImage(ctx, generation.ImageRequest{
			Prompt:      prompt,
			AspectRatio: generation.AspectRatioFor(kind),
			Reference:   reference,
		})
		if err != nil {
			return "", err
		}
		return s.upload(ctx, kind, asset)
	}

	return s.run(ctx, accountID, metered.Request{
		Kind:     kind,
		Provider: provider.Name(),
		Prompt:   prompt,
		Cost:     cost,
		Task:     task,
	})
}

func (s *ImageService) run(ctx context.Context, accountID string, req metered.Request) (*model.Operation, error) {
	op, err := s.runner.Run(ctx, accountID, req)
	if err != nil {
		return nil, err
	}
	s.remember(ctx, op)
	return op, nil
}

func (s *ImageService) upload(ctx context.Context, kind model.OperationKind, asset *generation.Asset) (string, error) {
	name := fmt.Sprintf("%s-%s.%s", kind, strings.ToLower(ulid.Make().String()), asset.Extension())
	assetURL, err := s.uploader.Upload(ctx, name, asset.ContentType, asset.Data)
	if err != nil {
		return "", fmt.Errorf("failed to upload asset: %w", err)
	}
	return assetURL, nil
}

// remember caches finalized operations. Cache errors are logged only.
func (s *ImageService) remember(ctx context.Context, op *model.Operation) {
	if s.cache == nil || !op.Status.IsFinal() {
		return
	}
	if err := s.cache.SetOperation(ctx, op); err != nil {
		s.logger.WarnContext(ctx, "operation cache write failed",
			slog.String("operation_id", op.ID),
			slog.String("error", err.Error()),
		)
	}
}
