package router

import (
	"net/http"
	"strconv"
	"strings"
)

// CORSConfig holds CORS configuration options.
type CORSConfig struct {
	// AllowedOrigins lists origins allowed to make cross-origin requests.
	// "*" allows any origin; "*.example.com" allows subdomains.
	AllowedOrigins []string

	// AllowedMethods specifies the methods announced on preflight.
	AllowedMethods []string

	// AllowedHeaders specifies the request headers announced on preflight.
	AllowedHeaders []string

	// ExposedHeaders specifies which headers the browser can read.
	ExposedHeaders []string

	// MaxAge is the Access-Control-Max-Age value in seconds.
	MaxAge int
}

// DefaultCORSConfig returns the defaults used by the API.
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         86400, // 24 hours
	}
}

type corsPolicy struct {
	wildcard bool
	origins  map[string]bool
	suffixes []string
	methods  string
	headers  string
	exposed  string
	maxAge   string
}

func newCORSPolicy(cfg CORSConfig) *corsPolicy {
	p := &corsPolicy{
		origins: make(map[string]bool, len(cfg.AllowedOrigins)),
		methods: strings.Join(cfg.AllowedMethods, ", "),
		headers: strings.Join(cfg.AllowedHeaders, ", "),
		exposed: strings.Join(cfg.ExposedHeaders, ", "),
	}
	if cfg.MaxAge > 0 {
		p.maxAge = strconv.Itoa(cfg.MaxAge)
	}

	for _, origin := range cfg.AllowedOrigins {
		origin = strings.ToLower(strings.TrimSpace(origin))
		switch {
		case origin == "*":
			p.wildcard = true
		case strings.HasPrefix(origin, "*."):
			p.suffixes = append(p.suffixes, strings.TrimPrefix(origin, "*"))
		case origin != "":
			p.origins[origin] = true
		}
	}

	return p
}

// allows checks origin against exact entries and "*.domain" entries.
func (p *corsPolicy) allows(origin string) bool {
	normalized := strings.ToLower(origin)
	if p.origins[normalized] {
		return true
	}

	for _, suffix := range p.suffixes {
		if !strings.HasSuffix(normalized, suffix) {
			continue
		}
		// "*.example.com" matches "https://sub.example.com" but not "https://notexample.com".
		prefix := strings.TrimSuffix(normalized, suffix)
		if strings.Contains(prefix, "://") && !strings.HasSuffix(prefix, "://") {
			return true
		}
	}

	return false
}

// apply writes CORS headers for a response. Disallowed origins get no
// Access-Control-Allow-Origin header, so browsers block the response.
func (p *corsPolicy) apply(h http.Header, origin string, preflight bool) {
	switch {
	case p.wildcard:
		h.Set("Access-Control-Allow-Origin", "*")
	case origin != "" && p.allows(origin):
		h.Set("Access-Control-Allow-Origin", origin)
		h.Add("Vary", "Origin")
	}

	if p.exposed != "" {
		h.Set("Access-Control-Expose-Headers", p.exposed)
	}

	if !preflight {
		return
	}

	h.Set("Access-Control-Allow-Methods", p.methods)
	h.Set("Access-Control-Allow-Headers", p.headers)
	if p.maxAge != "" {
		h.Set("Access-Control-Max-Age", p.maxAge)
	}
}
