// Package generation talks to the paid content providers (OpenAI, Replicate
// and Gemini) and builds the prompts for each generation variant.
package generation

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Provider names accepted by the API.
const (
	ProviderOpenAI    = "openai"
	ProviderReplicate = "replicate"
	ProviderGemini    = "gemini"
)

// DefaultProvider is used when a request does not name one.
const DefaultProvider = ProviderGemini

// Sentinel errors for generation.
var (
	ErrUnknownProvider = errors.New("unknown provider")
	ErrNoOutput        = errors.New("provider returned no output")
	ErrInvalidDataURI  = errors.New("invalid base64 image data URI")
)

// AspectRatio of a generated image.
type AspectRatio string

const (
	Landscape AspectRatio = "16:9"
	Square    AspectRatio = "1:1"
	Portrait  AspectRatio = "9:16"
)

// InlineImage is a reference image sent along with the prompt.
type InlineImage struct {
	MIMEType string
	Data     []byte
}

// ImageRequest is a single text-to-image (or image-to-image) call.
type ImageRequest struct {
	Prompt      string
	AspectRatio AspectRatio
	Reference   *InlineImage
}

// Asset is generated content ready to upload.
type Asset struct {
	Data        []byte
	ContentType string
}

// Extension returns the file extension matching the asset's content type.
func (a *Asset) Extension() string {
	switch a.ContentType {
	case "image/jpeg":
		return "jpg"
	case "image/webp":
		return "webp"
	case "application/json":
		return "json"
	default:
		return "png"
	}
}

// Provider generates images.
type Provider interface {
	Name() string
	GenerateImage(ctx context.Context, req ImageRequest) (*Asset, error)
}

// Catalog holds the configured providers and what each one costs.
type Catalog struct {
	providers map[string]Provider
	costs     map[string]int64
}

// NewCatalog creates an empty Catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		providers: make(map[string]Provider),
		costs:     make(map[string]int64),
	}
}

// Register adds p at the given per-call cost.
func (c *Catalog) Register(p Provider, cost int64) {
	c.providers[p.Name()] = p
	c.costs[p.Name()] = cost
}

// Lookup returns the provider registered under name and its cost.
func (c *Catalog) Lookup(name string) (Provider, int64, error) {
	p, ok := c.providers[name]
	if !ok {
		return nil, 0, fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}
	return p, c.costs[name], nil
}

// Names lists registered providers in sorted order.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.providers))
	for name := range c.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var dataURIPattern = regexp.MustCompile(`^data:(image/[a-zA-Z0-9.+-]+);base64,(.*)$`)

// ParseDataURI decodes a "data:image/...;base64," URI.
func ParseDataURI(uri string) (*InlineImage, error) {
	m := dataURIPattern.FindStringSubmatch(strings.TrimSpace(uri))
	if m == nil {
		return nil, ErrInvalidDataURI
	}
	data, err := base64.StdEncoding.DecodeString(m[2])
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDataURI, err)
	}
	if len(data) == 0 {
		return nil, ErrInvalidDataURI
	}
	return &InlineImage{MIMEType: m[1], Data: data}, nil
}
