// Package dto provides Data Transfer Objects for API requests and responses.
package dto

import (
	"github.com/go-playground/validator/v10"

	"github.com/ytvaala/ytvaala/internal/validation"
)

// RegisterRequest represents the request body for creating an account.
type RegisterRequest struct {
	Email    string  `json:"email" validate:"required,email,max=254"`
	Password string  `json:"password" validate:"required,min=8,max=128"`
	Name     *string `json:"name,omitempty" validate:"omitempty,max=100"`
}

// LoginRequest represents the request body for logging in.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AddCreditsRequest represents the request body for topping up credits.
type AddCreditsRequest struct {
	Amount      int64  `json:"amount" validate:"gt=0,max=100000"`
	Description string `json:"description,omitempty" validate:"max=200"`
}

// BalanceResponse reports an account's current balance.
type BalanceResponse struct {
	Credits int64 `json:"credits"`
}

// GenerateImageRequest represents the request body for a free-form image.
type GenerateImageRequest struct {
	Prompt   string `json:"prompt" validate:"required,min=1,max=1000"`
	Provider string `json:"provider,omitempty" validate:"omitempty,oneof=openai replicate gemini"`
}

// ThumbnailRequest represents the request body for a video thumbnail.
type ThumbnailRequest struct {
	VideoTitle      string `json:"videoTitle" validate:"required,min=1,max=100"`
	ChannelCategory string `json:"channelCategory" validate:"required,oneof=tech vlogging education cooking lifestyle gaming"`
	ThumbnailStyle  string `json:"thumbnailStyle" validate:"required,oneof=bold minimalist cartoon photo"`
	Mood            string `json:"mood" validate:"required,oneof=excited serious educational funny mysterious"`
	IsFaceIncluded  bool   `json:"isFaceIncluded"`
	FaceImageData   string `json:"faceImageData,omitempty" validate:"omitempty,datauri_image"`
}

// ChannelRequest carries a channel description for banners and logos.
type ChannelRequest struct {
	ChannelDescription string `json:"channelDescription" validate:"required,min=10,max=120"`
}

// PromptRequest carries a short idea for social posts and shorts covers.
type PromptRequest struct {
	Prompt string `json:"prompt" validate:"required,min=10,max=120"`
}

// SEORequest carries the topic of a video.
type SEORequest struct {
	VideoTopic string `json:"videoTopic" validate:"required,min=10,max=120"`
}

// RegisterValidations adds the cross-field rules of the request types.
func RegisterValidations(v *validation.Validator) {
	v.RegisterStructValidation("face_required", "is required when isFaceIncluded is true", func(sl validator.StructLevel) {
		req := sl.Current().Interface().(ThumbnailRequest)
		if req.IsFaceIncluded && req.FaceImageData == "" {
			sl.ReportError(req.FaceImageData, "faceImageData", "FaceImageData", "face_required", "")
		}
	}, ThumbnailRequest{})
}
