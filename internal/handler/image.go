package handler

import (
	"context"
	"log/slog"

	"github.com/ytvaala/ytvaala/internal/handler/dto"
	"github.com/ytvaala/ytvaala/internal/model"
	"github.com/ytvaala/ytvaala/internal/router"
	"github.com/ytvaala/ytvaala/internal/service"
	"github.com/ytvaala/ytvaala/internal/validation"
)

// ImageHandler handles paid generation requests and operation lookups.
type ImageHandler struct {
	images    *service.ImageService
	validator *validation.Validator
	logger    *slog.Logger
}

// NewImageHandler creates a new ImageHandler.
func NewImageHandler(images *service.ImageService, v *validation.Validator, logger *slog.Logger) *ImageHandler {
	return &ImageHandler{images: images, validator: v, logger: logger}
}

// Generate handles POST /images/generate.
func (h *ImageHandler) Generate(c *router.Context) (any, error) {
	id, err := accountID(c)
	if err != nil {
		return nil, err
	}

	var req dto.GenerateImageRequest
	if err := bind(c, h.validator, &req); err != nil {
		return nil, err
	}

	return h.images.Generate(c.Context(), id, service.GenerateInput{
		Prompt:   req.Prompt,
		Provider: req.Provider,
	})
}

// Thumbnail handles POST /images/thumbnail.
func (h *ImageHandler) Thumbnail(c *router.Context) (any, error) {
	id, err := accountID(c)
	if err != nil {
		return nil, err
	}

	var req dto.ThumbnailRequest
	if err := bind(c, h.validator, &req); err != nil {
		return nil, err
	}

	return h.images.Thumbnail(c.Context(), id, service.ThumbnailInput{
		VideoTitle:    req.VideoTitle,
		Category:      req.ChannelCategory,
		Style:         req.ThumbnailStyle,
		Mood:          req.Mood,
		IncludeFace:   req.IsFaceIncluded,
		FaceImageData: req.FaceImageData,
	})
}

// Banner handles POST /images/banner.
func (h *ImageHandler) Banner(c *router.Context) (any, error) {
	return h.channel(c, h.images.Banner)
}

// Logo handles POST /images/logo.
func (h *ImageHandler) Logo(c *router.Context) (any, error) {
	return h.channel(c, h.images.Logo)
}

// Social handles POST /images/social.
func (h *ImageHandler) Social(c *router.Context) (any, error) {
	return h.prompt(c, h.images.Social)
}

// Shorts handles POST /images/shorts.
func (h *ImageHandler) Shorts(c *router.Context) (any, error) {
	return h.prompt(c, h.images.Shorts)
}

// SEO handles POST /images/seo.
func (h *ImageHandler) SEO(c *router.Context) (any, error) {
	id, err := accountID(c)
	if err != nil {
		return nil, err
	}

	var req dto.SEORequest
	if err := bind(c, h.validator, &req); err != nil {
		return nil, err
	}
	return h.images.SEO(c.Context(), id, req.VideoTopic)
}

// List handles GET /images.
func (h *ImageHandler) List(c *router.Context) (any, error) {
	id, err := accountID(c)
	if err != nil {
		return nil, err
	}
	return h.images.List(c.Context(), id, queryLimit(c))
}

// Get handles GET /images/:id.
func (h *ImageHandler) Get(c *router.Context) (any, error) {
	id, err := accountID(c)
	if err != nil {
		return nil, err
	}
	return h.images.Get(c.Context(), id, c.Param("id"))
}

type textOperation func(ctx context.Context, accountID, text string) (*model.Operation, error)

func (h *ImageHandler) channel(c *router.Context, run textOperation) (any, error) {
	id, err := accountID(c)
	if err != nil {
		return nil, err
	}

	var req dto.ChannelRequest
	if err := bind(c, h.validator, &req); err != nil {
		return nil, err
	}
	return run(c.Context(), id, req.ChannelDescription)
}

func (h *ImageHandler) prompt(c *router.Context, run textOperation) (any, error) {
	id, err := accountID(c)
	if err != nil {
		return nil, err
	}

	var req dto.PromptRequest
	if err := bind(c, h.validator, &req); err != nil {
		return nil, err
	}
	return run(c.Context(), id, req.Prompt)
}
