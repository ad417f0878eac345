package generation

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

const (
	defaultOpenAIBaseURL = "https://api.openai.com/v1"
	defaultOpenAIModel   = "dall-e-3"
)

// OpenAIConfig configures the OpenAI images provider.
type OpenAIConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	HTTPClient *http.Client
}

// OpenAI generates images through the OpenAI images API. The API returns a
// short-lived URL which is downloaded immediately.
type OpenAI struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

// NewOpenAI creates an OpenAI provider.
func NewOpenAI(cfg OpenAIConfig) *OpenAI {
	p := &OpenAI{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		model:   cfg.Model,
		client:  cfg.HTTPClient,
	}
	if p.baseURL == "" {
		p.baseURL = defaultOpenAIBaseURL
	}
	if p.model == "" {
		p.model = defaultOpenAIModel
	}
	if p.client == nil {
		p.client = NewHTTPClient()
	}
	return p
}

// Name implements Provider.
func (p *OpenAI) Name() string { return ProviderOpenAI }

type openAIImageRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	N      int    `json:"n"`
	Size   string `json:"size"`
}

type openAIImageResponse struct {
	Data []struct {
		URL string `json:"url"`
	} `json:"data"`
}

// GenerateImage implements Provider. Reference images are not supported by
// this API and are ignored.
func (p *OpenAI) GenerateImage(ctx context.Context, req ImageRequest) (*Asset, error) {
	var resp openAIImageResponse
	err := postJSON(ctx, p.client, ProviderOpenAI, p.baseURL+"/images/generations",
		map[string]string{"Authorization": "Bearer " + p.apiKey},
		openAIImageRequest{Model: p.model, Prompt: req.Prompt, N: 1, Size: openAISize(req.AspectRatio)},
		&resp,
	)
	if err != nil {
		return nil, err
	}

	if len(resp.Data) == 0 || resp.Data[0].URL == "" {
		return nil, fmt.Errorf("%s: %w", ProviderOpenAI, ErrNoOutput)
	}
	return download(ctx, p.client, ProviderOpenAI, resp.Data[0].URL)
}

func openAISize(ratio AspectRatio) string {
	switch ratio {
	case Landscape:
		return "1792x1024"
	case Portrait:
		return "1024x1792"
	default:
		return "1024x1024"
	}
}
