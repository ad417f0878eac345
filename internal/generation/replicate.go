package generation

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

const (
	defaultReplicateBaseURL = "https://api.replicate.com/v1"
	defaultReplicateModel   = "black-forest-labs/flux-schnell"
)

// ReplicateConfig configures the Replicate predictions provider.
type ReplicateConfig struct {
	APIKey     string
	BaseURL    string
	Model      string // owner/name
	HTTPClient *http.Client
}

// Replicate runs a hosted model through the predictions API, asking the
// server to hold the connection until the prediction finishes.
type Replicate struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

// NewReplicate creates a Replicate provider.
func NewReplicate(cfg ReplicateConfig) *Replicate {
	p := &Replicate{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		model:   cfg.Model,
		client:  cfg.HTTPClient,
	}
	if p.baseURL == "" {
		p.baseURL = defaultReplicateBaseURL
	}
	if p.model == "" {
		p.model = defaultReplicateModel
	}
	if p.client == nil {
		p.client = NewHTTPClient()
	}
	return p
}

// Name implements Provider.
func (p *Replicate) Name() string { return ProviderReplicate }

type replicateInput struct {
	Prompt       string `json:"prompt"`
	AspectRatio  string `json:"aspect_ratio,omitempty"`
	NumOutputs   int    `json:"num_outputs"`
	OutputFormat string `json:"output_format"`
}

type replicatePrediction struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Output json.RawMessage `json:"output"`
	Error  *string         `json:"error"`
}

// GenerateImage implements Provider.
func (p *Replicate) GenerateImage(ctx context.Context, req ImageRequest) (*Asset, error) {
	var pred replicatePrediction
	err := postJSON(ctx, p.client, ProviderReplicate, p.baseURL+"/models/"+p.model+"/predictions",
		map[string]string{
			"Authorization": "Bearer " + p.apiKey,
			"Prefer":        "wait",
		},
		map[string]any{"input": replicateInput{
			Prompt:       req.Prompt,
			AspectRatio:  string(req.AspectRatio),
			NumOutputs:   1,
			OutputFormat: "png",
		}},
		&pred,
	)
	if err != nil {
		return nil, err
	}

	switch pred.Status {
	case "failed", "canceled":
		reason := pred.Status
		if pred.Error != nil && *pred.Error != "" {
			reason = *pred.Error
		}
		return nil, fmt.Errorf("%s: prediction %s: %s", ProviderReplicate, pred.ID, reason)
	case "succeeded":
	default:
		return nil, fmt.Errorf("%s: prediction %s still %s", ProviderReplicate, pred.ID, pred.Status)
	}

	url, err := firstOutputURL(pred.Output)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ProviderReplicate, err)
	}
	return download(ctx, p.client, ProviderReplicate, url)
}

// firstOutputURL accepts both a single URL and a list of URLs.
func firstOutputURL(raw json.RawMessage) (string, error) {
	var single string
	if err := json.Unmarshal(raw, &single); err == nil && single != "" {
		return single, nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil && len(list) > 0 && list[0] != "" {
		return list[0], nil
	}
	return "", ErrNoOutput
}
