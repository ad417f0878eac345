package router

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	"github.com/ytvaala/ytvaala/internal/apperr"
)

type testEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Message    string            `json:"message"`
		Code       string            `json:"code"`
		StatusCode int               `json:"statusCode"`
		Details    map[string]string `json:"details"`
	} `json:"error"`
}

func newTestRouter() *Router {
	return New(Config{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		CORS:   DefaultCORSConfig(),
	})
}

func serve(t *testing.T, h http.Handler, method, path string, body string) (*httptest.ResponseRecorder, testEnvelope) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env testEnvelope
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			t.Fatalf("failed to decode response %q: %v", rec.Body.String(), err)
		}
	}
	return rec, env
}

func constant(v any) HandlerFunc {
	return func(c *Context) (any, error) { return v, nil }
}

func TestRouter_RegistrationOrderWins(t *testing.T) {
	t.Parallel()

	rt := newTestRouter()
	rt.Get("/a/:id", func(c *Context) (any, error) { return "param:" + c.Param("id"), nil })
	rt.Get("/a/fixed", constant("fixed"))

	_, env := serve(t, rt, http.MethodGet, "/a/fixed", "")

	var got string
	if err := json.Unmarshal(env.Data, &got); err != nil {
		t.Fatalf("failed to decode data: %v", err)
	}
	if got != "param:fixed" {
		t.Errorf("expected the first registered route to match, got %q", got)
	}
}

func TestRouter_DuplicateRoutesFirstWins(t *testing.T) {
	t.Parallel()

	rt := newTestRouter()
	rt.Get("/dup", constant("first"))
	rt.Get("/dup", constant("second"))

	_, env := serve(t, rt, http.MethodGet, "/dup", "")
	if string(env.Data) != `"first"` {
		t.Errorf("expected first, got %s", env.Data)
	}
	if len(rt.Routes()) != 2 {
		t.Errorf("expected both duplicate routes to be kept, got %d", len(rt.Routes()))
	}
}

func TestRouter_SuccessEnvelope(t *testing.T) {
	t.Parallel()

	rt := newTestRouter()
	rt.Get("/ok", constant(map[string]int{"credits": 5}))

	rec, env := serve(t, rt, http.MethodGet, "/ok", "")
	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected Content-Type application/json, got %s", ct)
	}
	if !env.Success {
		t.Error("expected success=true")
	}
	if string(env.Data) != `{"credits":5}` {
		t.Errorf("unexpected data: %s", env.Data)
	}
}

func TestRouter_ResponseStatus(t *testing.T) {
	t.Parallel()

	rt := newTestRouter()
	rt.Get("/ready", constant(&Response{Status: http.StatusServiceUnavailable, Data: "down"}))

	rec, env := serve(t, rt, http.MethodGet, "/ready", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status 503, got %d", rec.Code)
	}
	if env.Success {
		t.Error("expected success=false for an error status")
	}
}

func TestRouter_Preflight(t *testing.T) {
	t.Parallel()

	rt := newTestRouter()
	globalCalled := false
	rt.Use(NewMiddleware("spy", func(c *Context, next Next) (any, error) {
		globalCalled = true
		return next()
	}))
	rt.Post("/credits/add", constant("nope"))

	for _, path := range []string{"/credits/add", "/does/not/exist"} {
		req := httptest.NewRequest(http.MethodOptions, path, nil)
		req.Header.Set("Origin", "https://app.example.com")
		rec := httptest.NewRecorder()
		rt.ServeHTTP(rec, req)

		if rec.Code != http.StatusNoContent {
			t.Errorf("%s: expected status 204, got %d", path, rec.Code)
		}
		if rec.Body.Len() != 0 {
			t.Errorf("%s: expected empty body, got %q", path, rec.Body.String())
		}
		if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
			t.Errorf("%s: expected wildcard origin, got %q", path, rec.Header().Get("Access-Control-Allow-Origin"))
		}
		if rec.Header().Get("Access-Control-Allow-Methods") == "" {
			t.Errorf("%s: expected Access-Control-Allow-Methods", path)
		}
	}

	if globalCalled {
		t.Error("preflight must bypass all middleware")
	}
}

func TestRouter_PreflightConfiguredOrigins(t *testing.T) {
	t.Parallel()

	rt := New(Config{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		CORS: CORSConfig{
			AllowedOrigins: []string{"https://app.example.com", "*.ytvaala.com"},
			AllowedMethods: []string{"GET", "POST"},
			AllowedHeaders: []string{"Authorization"},
		},
	})

	tests := []struct {
		origin string
		want   string
	}{
		{"https://app.example.com", "https://app.example.com"},
		{"https://studio.ytvaala.com", "https://studio.ytvaala.com"},
		{"https://evil.com", ""},
		{"https://notytvaala.com", ""},
	}

	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodOptions, "/anything", nil)
		req.Header.Set("Origin", tt.origin)
		rec := httptest.NewRecorder()
		rt.ServeHTTP(rec, req)

		if rec.Code != http.StatusNoContent {
			t.Errorf("%s: expected 204, got %d", tt.origin, rec.Code)
		}
		if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tt.want {
			t.Errorf("%s: expected allow-origin %q, got %q", tt.origin, tt.want, got)
		}
	}
}

func TestRouter_PublicRoutesSkipAuthMiddleware(t *testing.T) {
	t.Parallel()

	rt := newTestRouter()
	var trace []string
	rt.Use(
		NewMiddleware("log", func(c *Context, next Next) (any, error) {
			trace = append(trace, "log")
			return next()
		}),
		NewAuthMiddleware("auth", func(c *Context, next Next) (any, error) {
			trace = append(trace, "auth")
			return nil, apperr.Unauthorized("Missing authorization token")
		}),
	)
	rt.Get("/health", constant("ok"), Public())
	rt.Get("/me", constant("me"))

	rec, _ := serve(t, rt, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Errorf("expected public route to succeed, got %d", rec.Code)
	}
	if !reflect.DeepEqual(trace, []string{"log"}) {
		t.Errorf("expected only untagged middleware on a public route, got %v", trace)
	}

	trace = nil
	rec, env := serve(t, rt, http.MethodGet, "/me", "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 on protected route, got %d", rec.Code)
	}
	if env.Error == nil || env.Error.Code != apperr.CodeUnauthorized {
		t.Errorf("expected UNAUTHORIZED error body, got %+v", env.Error)
	}
	if !reflect.DeepEqual(trace, []string{"log", "auth"}) {
		t.Errorf("expected global middleware in order, got %v", trace)
	}
}

func TestRouter_PublicRoutesSkipRouteMiddleware(t *testing.T) {
	t.Parallel()

	rt := newTestRouter()
	called := false
	rt.Get("/open", constant("ok"), Public(), With(NewMiddleware("route", func(c *Context, next Next) (any, error) {
		called = true
		return next()
	})))

	serve(t, rt, http.MethodGet, "/open", "")
	if called {
		t.Error("public routes run only untagged global middleware")
	}
}

func TestRouter_GroupPrefixAndMiddleware(t *testing.T) {
	t.Parallel()

	rt := newTestRouter()
	var trace []string
	mark := func(name string) Middleware {
		return NewMiddleware(name, func(c *Context, next Next) (any, error) {
			trace = append(trace, name)
			return next()
		})
	}

	rt.Group("/images", func(g *Router) {
		g.Get("/", constant("list"))
		g.Get("/:id", func(c *Context) (any, error) { return c.Param("id"), nil }, With(mark("route")))
	}, mark("group"))

	routes := rt.Routes()
	if len(routes) != 2 || routes[0].Template != "/images" || routes[1].Template != "/images/:id" {
		t.Fatalf("unexpected routes: %+v", routes)
	}
	if !reflect.DeepEqual(routes[1].Middleware, []string{"group", "route"}) {
		t.Errorf("expected group middleware before route middleware, got %v", routes[1].Middleware)
	}

	_, env := serve(t, rt, http.MethodGet, "/images/abc", "")
	if string(env.Data) != `"abc"` {
		t.Errorf("expected param through group, got %s", env.Data)
	}
	if !reflect.DeepEqual(trace, []string{"group", "route"}) {
		t.Errorf("expected group then route middleware, got %v", trace)
	}

	_, env = serve(t, rt, http.MethodGet, "/images", "")
	if string(env.Data) != `"list"` {
		t.Errorf("expected group root route, got %s", env.Data)
	}
}

func TestRouter_Merge(t *testing.T) {
	t.Parallel()

	credits := newTestRouter()
	credits.Get("/balance", constant("balance"), With(NewMiddleware("route", func(c *Context, next Next) (any, error) {
		return next()
	})))
	credits.Post("/add", constant("add"))
	credits.Use(NewMiddleware("not-imported", func(c *Context, next Next) (any, error) {
		return nil, errors.New("global middleware of a merged router must not run")
	}))

	rt := newTestRouter()
	rt.Get("/health", constant("ok"), Public())
	rt.Merge(credits, "/credits")

	routes := rt.Routes()
	want := []string{"/health", "/credits/balance", "/credits/add"}
	for i, w := range want {
		if routes[i].Template != w {
			t.Errorf("route %d: expected %s, got %s", i, w, routes[i].Template)
		}
	}
	if !reflect.DeepEqual(routes[1].Middleware, []string{"route"}) {
		t.Errorf("expected merged route to keep its middleware, got %v", routes[1].Middleware)
	}

	rec, env := serve(t, rt, http.MethodGet, "/credits/balance", "")
	if rec.Code != http.StatusOK || string(env.Data) != `"balance"` {
		t.Errorf("expected merged route to serve, got %d %s", rec.Code, env.Data)
	}
}

func TestRouter_ErrorMapping(t *testing.T) {
	t.Parallel()

	rt := newTestRouter()
	rt.Get("/typed", func(c *Context) (any, error) {
		return nil, apperr.InsufficientCredits("Insufficient credits")
	})
	rt.Get("/validation", func(c *Context) (any, error) {
		return nil, apperr.Validation("Validation failed", map[string]string{"email": "must be a valid email"})
	})
	rt.Get("/untyped", func(c *Context) (any, error) {
		return nil, errors.New("pq: connection refused to 10.0.0.3")
	})

	rec, env := serve(t, rt, http.MethodGet, "/typed", "")
	if rec.Code != http.StatusPaymentRequired {
		t.Errorf("expected status 402, got %d", rec.Code)
	}
	if env.Success || env.Error == nil || env.Error.Code != apperr.CodeInsufficientCredits || env.Error.StatusCode != 402 {
		t.Errorf("unexpected error body: %+v", env.Error)
	}

	rec, env = serve(t, rt, http.MethodGet, "/validation", "")
	if rec.Code != http.StatusBadRequest || env.Error.Details["email"] == "" {
		t.Errorf("expected validation details, got %d %+v", rec.Code, env.Error)
	}

	rec, env = serve(t, rt, http.MethodGet, "/untyped", "")
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", rec.Code)
	}
	if env.Error.Code != apperr.CodeInternal || env.Error.Message != "Internal Server Error" {
		t.Errorf("unexpected error body: %+v", env.Error)
	}
	if strings.Contains(rec.Body.String(), "10.0.0.3") {
		t.Error("internal error text leaked to the client")
	}
}

func TestRouter_NotFound(t *testing.T) {
	t.Parallel()

	rt := newTestRouter()
	rt.Get("/a", constant("a"))

	rec, env := serve(t, rt, http.MethodGet, "/missing", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
	if env.Success || env.Error == nil || env.Error.Message != "Not found" || env.Error.StatusCode != 404 {
		t.Errorf("unexpected not-found body: %s", rec.Body.String())
	}
}

func TestRouter_MethodNotAllowed(t *testing.T) {
	t.Parallel()

	rt := newTestRouter()
	rt.Get("/credits/balance", constant("b"))
	rt.Post("/credits/balance", constant("b"))

	rec, env := serve(t, rt, http.MethodDelete, "/credits/balance", "")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", rec.Code)
	}
	if rec.Header().Get("Allow") != "GET, POST" {
		t.Errorf("expected Allow header, got %q", rec.Header().Get("Allow"))
	}
	if env.Error == nil || env.Error.Code != apperr.CodeMethodNotAllowed {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}
}

func TestRouter_OnlyOneRouteInvoked(t *testing.T) {
	t.Parallel()

	rt := newTestRouter()
	secondCalled := false
	rt.Get("/x/:id", func(c *Context) (any, error) { return nil, errors.New("boom") })
	rt.Get("/x/1", func(c *Context) (any, error) {
		secondCalled = true
		return "second", nil
	})

	rec, _ := serve(t, rt, http.MethodGet, "/x/1", "")
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected failing first route to produce 500, got %d", rec.Code)
	}
	if secondCalled {
		t.Error("matching must not fall through to a later route")
	}
}

func TestRouter_QueryAndBody(t *testing.T) {
	t.Parallel()

	type addRequest struct {
		Amount int64 `json:"amount"`
	}

	rt := newTestRouter()
	rt.Post("/credits/add", func(c *Context) (any, error) {
		var req addRequest
		if err := c.Bind(&req); err != nil {
			return nil, err
		}
		return map[string]any{"amount": req.Amount, "note": c.Query.Get("note")}, nil
	})

	rec, env := serve(t, rt, http.MethodPost, "/credits/add?note=hi", `{"amount":25}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if string(env.Data) != `{"amount":25,"note":"hi"}` {
		t.Errorf("unexpected data: %s", env.Data)
	}

	rec, env = serve(t, rt, http.MethodPost, "/credits/add", `{"amount":`)
	if rec.Code != http.StatusBadRequest || env.Error.Code != apperr.CodeValidation {
		t.Errorf("expected validation error for malformed JSON, got %d %s", rec.Code, rec.Body.String())
	}

	req := httptest.NewRequest(http.MethodPost, "/credits/add", strings.NewReader(`{"amount":1}`))
	req.Header.Set("Content-Type", "text/plain")
	plain := httptest.NewRecorder()
	rt.ServeHTTP(plain, req)
	if plain.Code != http.StatusBadRequest {
		t.Errorf("expected non-JSON body to be ignored and rejected by Bind, got %d", plain.Code)
	}
}

func TestRouter_BodyTooLarge(t *testing.T) {
	t.Parallel()

	rt := newTestRouter()
	rt.Post("/big", func(c *Context) (any, error) {
		var v map[string]any
		return nil, c.Bind(&v)
	})

	req := httptest.NewRequest(http.MethodPost, "/big", strings.NewReader(`{"prompt":"`+strings.Repeat("a", 64)+`"}`))
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	rec := httptest.NewRecorder()
	req.Body = http.MaxBytesReader(rec, req.Body, 16)
	rt.ServeHTTP(rec, req)

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("expected 413, got %d", rec.Code)
	}
}

func TestRouter_NextCalledTwiceIsNotAClientError(t *testing.T) {
	t.Parallel()

	rt := newTestRouter()
	rt.Use(NewMiddleware("buggy", func(c *Context, next Next) (any, error) {
		_, _ = next()
		return next()
	}))
	rt.Get("/x", constant("x"))

	defer func() {
		rvr := recover()
		err, ok := rvr.(error)
		if !ok || !errors.Is(err, ErrNextCalledTwice) {
			t.Fatalf("expected the router to let ErrNextCalledTwice propagate, got %v", rvr)
		}
	}()

	serve(t, rt, http.MethodGet, "/x", "")
}
