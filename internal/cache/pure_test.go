package cache

import (
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ytvaala/ytvaala/internal/model"
)

func TestOperationKey(t *testing.T) {
	t.Parallel()

	if got := operationKey("acc-1", "op-1"); got != "operation:acc-1:op-1" {
		t.Errorf("operationKey = %q", got)
	}
	if operationKey("a", "b") == operationKey("b", "a") {
		t.Error("keys must be scoped by account")
	}
}

func TestEncodeDecodeOperation(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 2, 3, 4, 5, 6, time.UTC)
	op := &model.Operation{
		ID:        "op-1",
		AccountID: "acc-1",
		Kind:      model.KindLogo,
		Provider:  "gemini",
		Prompt:    "coffee channel",
		Cost:      5,
		Status:    model.OperationCompleted,
		AssetURL:  "https://cdn.example.com/images/1-op-1.png",
		CreatedAt: now,
		UpdatedAt: now.Add(time.Second),
	}

	fields := make(map[string]string)
	for k, v := range encodeOperation(op) {
		fields[k] = v.(string)
	}

	got, err := decodeOperation(fields)
	if err != nil {
		t.Fatalf("decodeOperation failed: %v", err)
	}
	if *got != *op {
		t.Errorf("decoded operation differs:\n got %+v\nwant %+v", got, op)
	}
}

func TestDecodeOperation_Invalid(t *testing.T) {
	t.Parallel()

	valid := map[string]string{
		"cost":       "5",
		"status":     "completed",
		"created_at": "2026-01-02T03:04:05Z",
		"updated_at": "2026-01-02T03:04:05Z",
	}

	tests := []struct {
		name  string
		field string
		value string
	}{
		{"bad cost", "cost", "five"},
		{"bad created_at", "created_at", "yesterday"},
		{"bad updated_at", "updated_at", ""},
		{"pending status", "status", "pending"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			fields := make(map[string]string, len(valid))
			for k, v := range valid {
				fields[k] = v
			}
			fields[tt.field] = tt.value

			if _, err := decodeOperation(fields); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	t.Parallel()

	opt, err := redis.ParseURL("redis://localhost:6379/0")
	if err != nil {
		t.Fatalf("ParseURL failed: %v", err)
	}
	applyDefaults(opt)

	if opt.PoolSize != DefaultPoolSize || opt.MinIdleConns != DefaultMinIdleConns {
		t.Errorf("pool = %d/%d, want %d/%d", opt.PoolSize, opt.MinIdleConns, DefaultPoolSize, DefaultMinIdleConns)
	}
	if opt.DialTimeout != DefaultDialTimeout || opt.ReadTimeout != DefaultReadTimeout || opt.WriteTimeout != DefaultWriteTimeout {
		t.Errorf("timeouts = %v/%v/%v", opt.DialTimeout, opt.ReadTimeout, opt.WriteTimeout)
	}
	if opt.PoolTimeout != DefaultPoolTimeout || opt.MaxRetries != DefaultMaxRetries {
		t.Errorf("pool timeout = %v, retries = %d", opt.PoolTimeout, opt.MaxRetries)
	}
}

func TestApplyDefaults_URLOverrides(t *testing.T) {
	t.Parallel()

	opt, err := redis.ParseURL("redis://localhost:6379/0?pool_size=50&read_timeout=3s&max_retries=5")
	if err != nil {
		t.Fatalf("ParseURL failed: %v", err)
	}
	applyDefaults(opt)

	if opt.PoolSize != 50 {
		t.Errorf("PoolSize = %d, want 50", opt.PoolSize)
	}
	if opt.ReadTimeout != 3*time.Second {
		t.Errorf("ReadTimeout = %v, want 3s", opt.ReadTimeout)
	}
	if opt.MaxRetries != 5 {
		t.Errorf("MaxRetries = %d, want 5", opt.MaxRetries)
	}
	if opt.WriteTimeout != DefaultWriteTimeout {
		t.Errorf("WriteTimeout = %v, want default", opt.WriteTimeout)
	}
}
