package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/ytvaala/ytvaala/internal/model"
)

// Cache key prefixes and TTLs.
const (
	operationKeyPrefix = "operation:"

	// DefaultOperationTTL is the TTL for cached operation records.
	DefaultOperationTTL = 24 * time.Hour
)

// Common cache errors.
var (
	ErrCacheMiss = errors.New("cache miss")
	ErrNotFinal  = errors.New("only finalized operations are cached")
)

// operationKey scopes entries to their owner so a lookup can never leak
// another account's record.
func operationKey(accountID, id string) string {
	return operationKeyPrefix + accountID + ":" + id
}

// GetOperation retrieves a finalized operation from cache.
// Returns ErrCacheMiss if not found.
func (c *Cache) GetOperation(ctx context.Context, accountID, id string) (*model.Operation, error) {
	result, err := c.client.HGetAll(ctx, operationKey(accountID, id)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hgetall failed: %w", err)
	}
	if len(result) == 0 {
		return nil, ErrCacheMiss
	}

	op, err := decodeOperation(result)
	if err != nil {
		return nil, fmt.Errorf("failed to decode cached operation: %w", err)
	}
	return op, nil
}

// SetOperation stores a finalized operation. Pending records change and
// are rejected with ErrNotFinal.
func (c *Cache) SetOperation(ctx context.Context, op *model.Operation) error {
	if !op.Status.IsFinal() {
		return ErrNotFinal
	}

	key := operationKey(op.AccountID, op.ID)
	pipe := c.client.Pipeline()
	pipe.HSet(ctx, key, encodeOperation(op))
	pipe.Expire(ctx, key, DefaultOperationTTL)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to cache operation: %w", err)
	}
	return nil
}

// DeleteOperation removes an operation from cache.
func (c *Cache) DeleteOperation(ctx context.Context, accountID, id string) error {
	if err := c.client.Del(ctx, operationKey(accountID, id)).Err(); err != nil {
		return fmt.Errorf("failed to delete operation from cache: %w", err)
	}
	return nil
}

func encodeOperation(op *model.Operation) map[string]any {
	return map[string]any{
		"id":         op.ID,
		"account_id": op.AccountID,
		"kind":       string(op.Kind),
		"provider":   op.Provider,
		"prompt":     op.Prompt,
		"cost":       strconv.FormatInt(op.Cost, 10),
		"status":     string(op.Status),
		"asset_url":  op.AssetURL,
		"created_at": op.CreatedAt.UTC().Format(time.RFC3339Nano),
		"updated_at": op.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func decodeOperation(fields map[string]string) (*model.Operation, error) {
	cost, err := strconv.ParseInt(fields["cost"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid cost: %w", err)
	}
	createdAt, err := time.Parse(time.RFC3339Nano, fields["created_at"])
	if err != nil {
		return nil, fmt.Errorf("invalid created_at: %w", err)
	}
	updatedAt, err := time.Parse(time.RFC3339Nano, fields["updated_at"])
	if err != nil {
		return nil, fmt.Errorf("invalid updated_at: %w", err)
	}

	op := &model.Operation{
		ID:        fields["id"],
		AccountID: fields["account_id"],
		Kind:      model.OperationKind(fields["kind"]),
		Provider:  fields["provider"],
		Prompt:    fields["prompt"],
		Cost:      cost,
		Status:    model.OperationStatus(fields["status"]),
		AssetURL:  fields["asset_url"],
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}
	if !op.Status.IsFinal() {
		return nil, fmt.Errorf("unexpected status %q", op.Status)
	}
	return op, nil
}
