package generation

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ytvaala/ytvaala/internal/model"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\nfake-image")

// assetServer serves pngBytes at /asset.png and delegates other paths to api.
func assetServer(t *testing.T, api http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/asset.png" {
			w.Header().Set("Content-Type", "image/png")
			_, _ = w.Write(pngBytes)
			return
		}
		api(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func decodeBody(t *testing.T, r *http.Request) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
	return body
}

func TestOpenAI_GenerateImage(t *testing.T) {
	var srv *httptest.Server
	srv = assetServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/images/generations", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		body := decodeBody(t, r)
		assert.Equal(t, "dall-e-3", body["model"])
		assert.Equal(t, "1792x1024", body["size"])
		assert.Equal(t, "a fox", body["prompt"])

		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]string{{"url": srv.URL + "/asset.png"}},
		})
	})

	p := NewOpenAI(OpenAIConfig{APIKey: "sk-test", BaseURL: srv.URL, HTTPClient: srv.Client()})
	asset, err := p.GenerateImage(context.Background(), ImageRequest{Prompt: "a fox", AspectRatio: Landscape})
	require.NoError(t, err)
	assert.Equal(t, pngBytes, asset.Data)
	assert.Equal(t, "image/png", asset.ContentType)
	assert.Equal(t, "png", asset.Extension())
}

func TestOpenAI_ErrorStatus(t *testing.T) {
	srv := assetServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":{"message":"content policy"}}`)
	})

	p := NewOpenAI(OpenAIConfig{APIKey: "k", BaseURL: srv.URL, HTTPClient: srv.Client()})
	_, err := p.GenerateImage(context.Background(), ImageRequest{Prompt: "x"})

	var perr *ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, http.StatusBadRequest, perr.StatusCode)
	assert.Contains(t, perr.Body, "content policy")
}

func TestOpenAI_NoOutput(t *testing.T) {
	srv := assetServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"data":[]}`)
	})

	p := NewOpenAI(OpenAIConfig{APIKey: "k", BaseURL: srv.URL, HTTPClient: srv.Client()})
	_, err := p.GenerateImage(context.Background(), ImageRequest{Prompt: "x"})
	assert.ErrorIs(t, err, ErrNoOutput)
}

func TestReplicate_GenerateImage(t *testing.T) {
	tests := []struct {
		name   string
		output func(base string) any
	}{
		{"list output", func(base string) any { return []string{base + "/asset.png"} }},
		{"single output", func(base string) any { return base + "/asset.png" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var srv *httptest.Server
			srv = assetServer(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/models/owner/model/predictions", r.URL.Path)
				assert.Equal(t, "wait", r.Header.Get("Prefer"))
				input := decodeBody(t, r)["input"].(map[string]any)
				assert.Equal(t, "9:16", input["aspect_ratio"])

				_ = json.NewEncoder(w).Encode(map[string]any{
					"id":     "p1",
					"status": "succeeded",
					"output": tt.output(srv.URL),
				})
			})

			p := NewReplicate(ReplicateConfig{APIKey: "r8", BaseURL: srv.URL, Model: "owner/model", HTTPClient: srv.Client()})
			asset, err := p.GenerateImage(context.Background(), ImageRequest{Prompt: "x", AspectRatio: Portrait})
			require.NoError(t, err)
			assert.Equal(t, pngBytes, asset.Data)
		})
	}
}

func TestReplicate_FailedPrediction(t *testing.T) {
	srv := assetServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"id":"p1","status":"failed","error":"NSFW content detected"}`)
	})

	p := NewReplicate(ReplicateConfig{APIKey: "r8", BaseURL: srv.URL, HTTPClient: srv.Client()})
	_, err := p.GenerateImage(context.Background(), ImageRequest{Prompt: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NSFW content detected")
}

func TestGemini_Imagen(t *testing.T) {
	encoded := base64.StdEncoding.EncodeToString(pngBytes)
	srv := assetServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/imagen-4.0-generate-001:predict", r.URL.Path)
		assert.Equal(t, "g-key", r.Header.Get("x-goog-api-key"))
		params := decodeBody(t, r)["parameters"].(map[string]any)
		assert.Equal(t, "1:1", params["aspectRatio"])

		_ = json.NewEncoder(w).Encode(map[string]any{
			"predictions": []map[string]string{{"bytesBase64Encoded": encoded, "mimeType": "image/jpeg"}},
		})
	})

	p := NewGemini(GeminiConfig{APIKey: "g-key", BaseURL: srv.URL, HTTPClient: srv.Client()})
	asset, err := p.GenerateImage(context.Background(), ImageRequest{Prompt: "x", AspectRatio: Square})
	require.NoError(t, err)
	assert.Equal(t, pngBytes, asset.Data)
	assert.Equal(t, "jpg", asset.Extension())
}

func TestGemini_ReferenceImage(t *testing.T) {
	encoded := base64.StdEncoding.EncodeToString(pngBytes)
	srv := assetServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/gemini-2.5-flash-image:generateContent", r.URL.Path)

		var req geminiContentRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Contents[0].Parts, 2)
		assert.Equal(t, "image/png", req.Contents[0].Parts[0].InlineData.MimeType)
		assert.Contains(t, req.Contents[0].Parts[1].Text, "16:9 aspect ratio")

		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{{
				"content": map[string]any{"parts": []map[string]any{
					{"text": "here you go"},
					{"inlineData": map[string]string{"mimeType": "image/png", "data": encoded}},
				}},
			}},
		})
	})

	p := NewGemini(GeminiConfig{APIKey: "g-key", BaseURL: srv.URL, HTTPClient: srv.Client()})
	asset, err := p.GenerateImage(context.Background(), ImageRequest{
		Prompt:      "thumbnail",
		AspectRatio: Landscape,
		Reference:   &InlineImage{MIMEType: "image/png", Data: []byte("face")},
	})
	require.NoError(t, err)
	assert.Equal(t, pngBytes, asset.Data)
}

func TestGemini_GenerateSEO(t *testing.T) {
	srv := assetServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/gemini-2.5-pro:generateContent", r.URL.Path)
		text := "```json\n{\"title\":\"Go in 10 minutes\",\"description\":\"Learn Go.\",\"tags\":[\"go\",\"golang\"]}\n```"
		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{{
				"content": map[string]any{"parts": []map[string]any{{"text": text}}},
			}},
		})
	})

	p := NewGemini(GeminiConfig{APIKey: "g-key", BaseURL: srv.URL, HTTPClient: srv.Client()})
	result, err := p.GenerateSEO(context.Background(), "learning go quickly")
	require.NoError(t, err)
	assert.Equal(t, "Go in 10 minutes", result.Title)
	assert.Equal(t, []string{"go", "golang"}, result.Tags)
}

func TestParseSEO_Invalid(t *testing.T) {
	for _, text := range []string{"", "not json", `{"title":"only a title"}`} {
		_, err := parseSEO(text)
		assert.Error(t, err, "input %q", text)
	}
}

func TestCatalog(t *testing.T) {
	c := NewCatalog()
	c.Register(NewGemini(GeminiConfig{APIKey: "k"}), 5)
	c.Register(NewOpenAI(OpenAIConfig{APIKey: "k"}), 10)

	p, cost, err := c.Lookup(ProviderOpenAI)
	require.NoError(t, err)
	assert.Equal(t, ProviderOpenAI, p.Name())
	assert.Equal(t, int64(10), cost)

	_, _, err = c.Lookup(ProviderReplicate)
	assert.True(t, errors.Is(err, ErrUnknownProvider))
	assert.Equal(t, []string{"gemini", "openai"}, c.Names())
}

func TestParseDataURI(t *testing.T) {
	img, err := ParseDataURI("data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("face")))
	require.NoError(t, err)
	assert.Equal(t, "image/png", img.MIMEType)
	assert.Equal(t, []byte("face"), img.Data)

	for _, bad := range []string{"", "data:text/plain;base64,Zm9v", "data:image/png;base64,!!!", "data:image/png;base64,"} {
		_, err := ParseDataURI(bad)
		assert.ErrorIs(t, err, ErrInvalidDataURI, "input %q", bad)
	}
}

func TestPrompts(t *testing.T) {
	thumb := ThumbnailPrompt(ThumbnailInput{
		VideoTitle:   "I built a rocket in my garage",
		Category:     "tech",
		Style:        "bold",
		Mood:         "excited",
		IncludeFace:  true,
		HasFaceImage: true,
	})
	assert.Contains(t, thumb, `"I built a rocket in my garage"`)
	assert.Contains(t, thumb, "futuristic")
	assert.Contains(t, thumb, "reference photo")
	assert.Contains(t, thumb, "16:9")

	noFace := ThumbnailPrompt(ThumbnailInput{VideoTitle: "t", Category: "cooking", Style: "photo", Mood: "funny"})
	assert.Contains(t, noFace, "no people")

	assert.Contains(t, BannerPrompt("retro gaming reviews"), "safe area")
	assert.Contains(t, LogoPrompt("coffee brewing channel"), "1:1")
	assert.Contains(t, SocialPostPrompt("launching our app"), "1:1")
	assert.Contains(t, ShortsPrompt("fastest car ever"), "9:16")
	assert.True(t, strings.Contains(SEOPrompt("budget travel"), `"tags"`))
}

func TestAspectRatioFor(t *testing.T) {
	tests := map[model.OperationKind]AspectRatio{
		model.KindThumbnail: Landscape,
		model.KindBanner:    Landscape,
		model.KindLogo:      Square,
		model.KindSocial:    Square,
		model.KindImage:     Square,
		model.KindShorts:    Portrait,
	}
	for kind, want := range tests {
		assert.Equal(t, want, AspectRatioFor(kind), "kind %s", kind)
	}
}
