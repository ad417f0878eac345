package router

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"net/url"

	"github.com/ytvaala/ytvaala/internal/apperr"
	"github.com/ytvaala/ytvaala/internal/model"
)

// Context is the per-request state passed through the pipeline.
// It is owned by a single request and never shared.
type Context struct {
	Request *http.Request
	Params  Params
	Query   url.Values
	// Body is the raw JSON body, nil unless the request declared a JSON
	// content type and sent a non-empty body.
	Body json.RawMessage
	// Identity is set by the auth gate.
	Identity *model.Identity

	bodyErr error
}

func newContext(r *http.Request, params Params) *Context {
	c := &Context{
		Request: r,
		Params:  params,
		Query:   r.URL.Query(),
	}

	if r.Body == nil || !isJSON(r.Header.Get("Content-Type")) {
		return c
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		c.bodyErr = err
		return c
	}
	if len(data) > 0 {
		c.Body = data
	}
	return c
}

func isJSON(contentType string) bool {
	if contentType == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	return err == nil && mediaType == "application/json"
}

// Context returns the request's context.Context.
func (c *Context) Context() context.Context {
	return c.Request.Context()
}

// Param returns the path parameter bound to name.
func (c *Context) Param(name string) string {
	return c.Params.Get(name)
}

// Bind decodes the JSON body into v. Decoding happens lazily so that
// middleware such as the auth gate runs before body errors surface.
func (c *Context) Bind(v any) error {
	if c.bodyErr != nil {
		var maxErr *http.MaxBytesError
		if errors.As(c.bodyErr, &maxErr) {
			return apperr.New(http.StatusRequestEntityTooLarge, apperr.CodePayloadTooLarge, "Request body too large")
		}
		return apperr.BadRequest("Could not read request body").Wrap(c.bodyErr)
	}
	if c.Body == nil {
		return apperr.Validation("Request body must be a JSON object", nil)
	}
	if err := json.Unmarshal(c.Body, v); err != nil {
		return apperr.Validation("Invalid JSON body", nil).Wrap(err)
	}
	return nil
}
