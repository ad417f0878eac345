// Package handler provides the API's endpoint handlers. Handlers are
// router.HandlerFunc values: they return data for the success envelope or
// an error that the router translates into an error response.
package handler

import (
	"strconv"

	"github.com/ytvaala/ytvaala/internal/apperr"
	"github.com/ytvaala/ytvaala/internal/router"
	"github.com/ytvaala/ytvaala/internal/validation"
)

// Handler serves service-level endpoints.
type Handler struct {
	name    string
	version string
}

// New creates a new Handler instance.
func New(name, version string) *Handler {
	return &Handler{name: name, version: version}
}

// InfoResponse describes the running service.
type InfoResponse struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Status  string `json:"status"`
}

// Info returns the service name and version.
// GET /
func (h *Handler) Info(c *router.Context) (any, error) {
	return InfoResponse{Name: h.name, Version: h.version, Status: "running"}, nil
}

// bind decodes the request body into dst and validates it.
func bind(c *router.Context, v *validation.Validator, dst any) error {
	if err := c.Bind(dst); err != nil {
		return err
	}
	return v.Struct(dst)
}

// accountID returns the caller set by the auth gate.
func accountID(c *router.Context) (string, error) {
	if c.Identity == nil || c.Identity.AccountID == "" {
		return "", apperr.Unauthorized("Missing authorization token")
	}
	return c.Identity.AccountID, nil
}

// queryLimit parses ?limit. Missing or malformed values yield 0 so the
// service default applies.
func queryLimit(c *router.Context) int {
	raw := c.Query.Get("limit")
	if raw == "" {
		return 0
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return 0
	}
	return limit
}
