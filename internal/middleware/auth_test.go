package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ytvaala/ytvaala/internal/apperr"
	"github.com/ytvaala/ytvaala/internal/auth"
	"github.com/ytvaala/ytvaala/internal/model"
	"github.com/ytvaala/ytvaala/internal/router"
)

// stubVerifier accepts exactly one token.
type stubVerifier struct {
	token string
	calls int
}

func (v *stubVerifier) Verify(token string) (*model.Identity, error) {
	v.calls++
	if token != v.token {
		return nil, auth.ErrInvalidToken
	}
	return &model.Identity{AccountID: "acc-1", Email: "a@example.com"}, nil
}

func newGatedRouter(t *testing.T, logs *bytes.Buffer, v auth.TokenVerifier) *router.Router {
	t.Helper()

	logger := slog.New(slog.NewJSONHandler(logs, nil))
	rt := router.New(router.Config{Logger: logger, CORS: router.DefaultCORSConfig()})
	rt.Use(AuthGate(AuthConfig{Logger: logger, Verifier: v}))

	rt.Get("/health", func(c *router.Context) (any, error) { return "ok", nil }, router.Public())
	rt.Get("/me", func(c *router.Context) (any, error) {
		if auth.AccountIDFromContext(c.Context()) != c.Identity.AccountID {
			return nil, errors.New("identity missing from request context")
		}
		return c.Identity, nil
	})
	return rt
}

func TestAuthGate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantMsg    string
		wantReason string
	}{
		{"valid token", "Bearer good-token", http.StatusOK, "", ""},
		{"scheme is case-insensitive", "bearer good-token", http.StatusOK, "", ""},
		{"extra whitespace", "Bearer    good-token", http.StatusOK, "", ""},
		{"missing header", "", http.StatusUnauthorized, "Missing authorization token", "missing_token"},
		{"wrong scheme", "Basic dXNlcjpwYXNz", http.StatusUnauthorized, "Missing authorization token", "missing_token"},
		{"no token", "Bearer ", http.StatusUnauthorized, "Missing authorization token", "missing_token"},
		{"bad token", "Bearer forged", http.StatusUnauthorized, "Invalid or expired token", "invalid_token"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var logs bytes.Buffer
			rt := newGatedRouter(t, &logs, &stubVerifier{token: "good-token"})

			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			rt.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d: %s", tt.wantStatus, rec.Code, rec.Body.String())
			}
			if tt.wantStatus == http.StatusOK {
				return
			}

			var body struct {
				Success bool `json:"success"`
				Error   struct {
					Message string `json:"message"`
					Code    string `json:"code"`
				} `json:"error"`
			}
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("invalid JSON body: %v", err)
			}
			if body.Success || body.Error.Code != apperr.CodeUnauthorized || body.Error.Message != tt.wantMsg {
				t.Errorf("unexpected error body: %s", rec.Body.String())
			}
			if !strings.Contains(logs.String(), `"reason":"`+tt.wantReason+`"`) {
				t.Errorf("expected WARN log with reason %s, got %s", tt.wantReason, logs.String())
			}
		})
	}
}

func TestAuthGate_SkippedOnPublicRoutes(t *testing.T) {
	t.Parallel()

	v := &stubVerifier{token: "good-token"}
	rt := newGatedRouter(t, &bytes.Buffer{}, v)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Authorization", "Bearer forged")
	rec := httptest.NewRecorder()
	rt.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected public route to ignore credentials, got %d", rec.Code)
	}
	if v.calls != 0 {
		t.Errorf("verifier must not run on public routes, ran %d times", v.calls)
	}
}

func TestAuthGate_RunsBeforeBodyParsing(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	rt := router.New(router.Config{Logger: logger})
	rt.Use(AuthGate(AuthConfig{Logger: logger, Verifier: &stubVerifier{token: "t"}}))
	rt.Post("/credits/add", func(c *router.Context) (any, error) {
		var v map[string]any
		return nil, c.Bind(&v)
	})

	req := httptest.NewRequest(http.MethodPost, "/credits/add", strings.NewReader(`{not json`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	rt.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 before body validation, got %d", rec.Code)
	}
}

func TestExtractBearerToken(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"":                 "",
		"Bearer abc":       "abc",
		"BEARER abc":       "abc",
		"Bearer\tabc":      "abc",
		"Bearerabc":        "",
		"Token abc":        "",
		"Bearer a.b.c ":    "a.b.c",
		"Basic Bearer abc": "",
	}

	for header, want := range tests {
		if got := extractBearerToken(header); got != want {
			t.Errorf("extractBearerToken(%q) = %q, want %q", header, got, want)
		}
	}
}
