package generation

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

const (
	defaultGeminiBaseURL    = "https://generativelanguage.googleapis.com/v1beta"
	defaultGeminiImageModel = "imagen-4.0-generate-001"
	defaultGeminiEditModel  = "gemini-2.5-flash-image"
	defaultGeminiTextModel  = "gemini-2.5-pro"
)

// GeminiConfig configures the Gemini provider.
type GeminiConfig struct {
	APIKey     string
	BaseURL    string
	ImageModel string // text-to-image (Imagen predict)
	EditModel  string // image-to-image (generateContent)
	TextModel  string // structured copy
	HTTPClient *http.Client
}

// Gemini generates images with Imagen, reference-guided images with a
// Gemini image model and structured copy with a Gemini text model.
type Gemini struct {
	apiKey     string
	baseURL    string
	imageModel string
	editModel  string
	textModel  string
	client     *http.Client
}

// NewGemini creates a Gemini provider.
func NewGemini(cfg GeminiConfig) *Gemini {
	p := &Gemini{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		imageModel: cfg.ImageModel,
		editModel:  cfg.EditModel,
		textModel:  cfg.TextModel,
		client:     cfg.HTTPClient,
	}
	if p.baseURL == "" {
		p.baseURL = defaultGeminiBaseURL
	}
	if p.imageModel == "" {
		p.imageModel = defaultGeminiImageModel
	}
	if p.editModel == "" {
		p.editModel = defaultGeminiEditModel
	}
	if p.textModel == "" {
		p.textModel = defaultGeminiTextModel
	}
	if p.client == nil {
		p.client = NewHTTPClient()
	}
	return p
}

// Name implements Provider.
func (p *Gemini) Name() string { return ProviderGemini }

func (p *Gemini) headers() map[string]string {
	return map[string]string{"x-goog-api-key": p.apiKey}
}

type imagenRequest struct {
	Instances  []imagenInstance `json:"instances"`
	Parameters imagenParameters `json:"parameters"`
}

type imagenInstance struct {
	Prompt string `json:"prompt"`
}

type imagenParameters struct {
	SampleCount   int                 `json:"sampleCount"`
	AspectRatio   string              `json:"aspectRatio,omitempty"`
	OutputOptions imagenOutputOptions `json:"outputOptions"`
}

type imagenOutputOptions struct {
	MimeType string `json:"mimeType"`
}

type imagenResponse struct {
	Predictions []struct {
		BytesBase64Encoded string `json:"bytesBase64Encoded"`
		MimeType           string `json:"mimeType"`
	} `json:"predictions"`
}

// GenerateImage implements Provider. Requests with a reference image go to
// the edit model; the rest go to Imagen.
func (p *Gemini) GenerateImage(ctx context.Context, req ImageRequest) (*Asset, error) {
	if req.Reference != nil {
		return p.editImage(ctx, req)
	}

	var resp imagenResponse
	err := postJSON(ctx, p.client, ProviderGemini, p.modelURL(p.imageModel, "predict"), p.headers(),
		imagenRequest{
			Instances: []imagenInstance{{Prompt: req.Prompt}},
			Parameters: imagenParameters{
				SampleCount:   1,
				AspectRatio:   string(req.AspectRatio),
				OutputOptions: imagenOutputOptions{MimeType: "image/jpeg"},
			},
		},
		&resp,
	)
	if err != nil {
		return nil, err
	}
	if len(resp.Predictions) == 0 || resp.Predictions[0].BytesBase64Encoded == "" {
		return nil, fmt.Errorf("%s: %w", ProviderGemini, ErrNoOutput)
	}

	pred := resp.Predictions[0]
	return decodeAsset(pred.BytesBase64Encoded, pred.MimeType, "image/jpeg")
}

type geminiContentRequest struct {
	Contents         []geminiContent         `json:"contents"`
	GenerationConfig *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type geminiGenerationConfig struct {
	ResponseModalities []string        `json:"responseModalities,omitempty"`
	ResponseMimeType   string          `json:"responseMimeType,omitempty"`
	ResponseSchema     json.RawMessage `json:"responseSchema,omitempty"`
}

type geminiContentResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

func (p *Gemini) editImage(ctx context.Context, req ImageRequest) (*Asset, error) {
	prompt := fmt.Sprintf("%s. The final output image MUST have a %s aspect ratio.", req.Prompt, req.AspectRatio)

	var resp geminiContentResponse
	err := postJSON(ctx, p.client, ProviderGemini, p.modelURL(p.editModel, "generateContent"), p.headers(),
		geminiContentRequest{
			Contents: []geminiContent{{Parts: []geminiPart{
				{InlineData: &geminiInlineData{
					MimeType: req.Reference.MIMEType,
					Data:     base64.StdEncoding.EncodeToString(req.Reference.Data),
				}},
				{Text: prompt},
			}}},
			GenerationConfig: &geminiGenerationConfig{ResponseModalities: []string{"IMAGE"}},
		},
		&resp,
	)
	if err != nil {
		return nil, err
	}

	for _, cand := range resp.Candidates {
		for _, part := range cand.Content.Parts {
			if part.InlineData != nil && part.InlineData.Data != "" {
				return decodeAsset(part.InlineData.Data, part.InlineData.MimeType, "image/png")
			}
		}
	}
	return nil, fmt.Errorf("%s: %w", ProviderGemini, ErrNoOutput)
}

// SEOResult is generated video copy.
type SEOResult struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

const seoSchema = `{
  "type": "OBJECT",
  "properties": {
    "title": {"type": "STRING"},
    "description": {"type": "STRING"},
    "tags": {"type": "ARRAY", "items": {"type": "STRING"}}
  },
  "required": ["title", "description", "tags"]
}`

// GenerateSEO writes a title, description and tags for a video topic.
func (p *Gemini) GenerateSEO(ctx context.Context, topic string) (*SEOResult, error) {
	var resp geminiContentResponse
	err := postJSON(ctx, p.client, ProviderGemini, p.modelURL(p.textModel, "generateContent"), p.headers(),
		geminiContentRequest{
			Contents: []geminiContent{{Parts: []geminiPart{{Text: SEOPrompt(topic)}}}},
			GenerationConfig: &geminiGenerationConfig{
				ResponseMimeType: "application/json",
				ResponseSchema:   json.RawMessage(seoSchema),
			},
		},
		&resp,
	)
	if err != nil {
		return nil, err
	}

	var text string
	for _, cand := range resp.Candidates {
		for _, part := range cand.Content.Parts {
			text += part.Text
		}
	}
	return parseSEO(text)
}

// parseSEO decodes model output, tolerating a markdown code fence.
func parseSEO(text string) (*SEOResult, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%s: %w", ProviderGemini, ErrNoOutput)
	}

	var result SEOResult
	if err := json.Unmarshal([]byte(text), &result); err != nil {
		return nil, fmt.Errorf("%s: failed to decode SEO content: %w", ProviderGemini, err)
	}
	if result.Title == "" || result.Description == "" || result.Tags == nil {
		return nil, fmt.Errorf("%s: SEO content is missing fields", ProviderGemini)
	}
	return &result, nil
}

func (p *Gemini) modelURL(model, method string) string {
	return fmt.Sprintf("%s/models/%s:%s", p.baseURL, model, method)
}

func decodeAsset(b64, mimeType, fallback string) (*Asset, error) {
	data, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to decode image bytes: %w", ProviderGemini, err)
	}
	if len(data) > maxAssetBytes {
		return nil, fmt.Errorf("%s: asset exceeds %d bytes", ProviderGemini, maxAssetBytes)
	}
	if mimeType == "" {
		mimeType = fallback
	}
	return &Asset{Data: data, ContentType: mimeType}, nil
}
