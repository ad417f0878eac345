// Package storage uploads generated assets to object storage and returns
// their public URLs.
package storage

import (
	"context"
	"fmt"
	"path"
	"strings"
	"sync"
	"time"
)

// Uploader stores an object and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, name, contentType string, data []byte) (string, error)
}

// objectKey namespaces uploads by time so names never collide across runs.
func objectKey(now time.Time, name string) string {
	return fmt.Sprintf("images/%d-%s", now.UnixMilli(), path.Base(strings.TrimSpace(name)))
}

// Object is an upload held by Memory.
type Object struct {
	Key         string
	ContentType string
	Data        []byte
}

// Memory keeps uploads in process. It backs development and tests.
type Memory struct {
	baseURL string
	now     func() time.Time

	mu      sync.Mutex
	objects map[string]Object
}

// NewMemory creates a Memory uploader whose URLs start with baseURL.
func NewMemory(baseURL string) *Memory {
	if baseURL == "" {
		baseURL = "memory://assets"
	}
	return &Memory{
		baseURL: strings.TrimRight(baseURL, "/"),
		now:     time.Now,
		objects: make(map[string]Object),
	}
}

// Upload implements Uploader.
func (m *Memory) Upload(ctx context.Context, name, contentType string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	key := objectKey(m.now(), name)
	m.mu.Lock()
	m.objects[key] = Object{Key: key, ContentType: contentType, Data: append([]byte(nil), data...)}
	m.mu.Unlock()

	return m.baseURL + "/" + key, nil
}

// Objects returns a copy of everything uploaded so far.
func (m *Memory) Objects() []Object {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Object, 0, len(m.objects))
	for _, obj := range m.objects {
		out = append(out, obj)
	}
	return out
}
