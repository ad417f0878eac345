package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/ytvaala/ytvaala/internal/model"
)

const operationColumns = `id, account_id, kind, provider, prompt, cost, status, asset_url, error, created_at, updated_at`

// CreateOperation inserts a new operation record.
func (r *Repository) CreateOperation(ctx context.Context, op *model.Operation) error {
	query := `
		INSERT INTO operations (id, account_id, kind, provider, prompt, cost, status, asset_url, error, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.pool.Exec(ctx, query,
		op.ID,
		op.AccountID,
		string(op.Kind),
		op.Provider,
		op.Prompt,
		op.Cost,
		string(op.Status),
		op.AssetURL,
		op.Error,
		op.CreatedAt,
		op.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create operation: %w", err)
	}

	return nil
}

// FinalizeOperation moves a pending operation to status. Only pending rows
// are updated, so a record transitions exactly once; a second attempt
// returns ErrOperationFinalized.
func (r *Repository) FinalizeOperation(ctx context.Context, id string, status model.OperationStatus, assetURL, reason string) (*model.Operation, error) {
	query := `
		UPDATE operations
		SET status = $2, asset_url = $3, error = $4, updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
		RETURNING ` + operationColumns

	op, err := scanOperation(r.pool.QueryRow(ctx, query, id, string(status), assetURL, reason))
	if err == nil {
		return op, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to finalize operation: %w", err)
	}

	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM operations WHERE id = $1)`, id).Scan(&exists); err != nil {
		return nil, fmt.Errorf("failed to check operation: %w", err)
	}
	if !exists {
		return nil, ErrOperationNotFound
	}
	return nil, ErrOperationFinalized
}

// GetOperation retrieves an operation owned by accountID.
func (r *Repository) GetOperation(ctx context.Context, accountID, id string) (*model.Operation, error) {
	query := `SELECT ` + operationColumns + ` FROM operations WHERE id = $1 AND account_id = $2`

	op, err := scanOperation(r.pool.QueryRow(ctx, query, id, accountID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOperationNotFound
		}
		return nil, fmt.Errorf("failed to get operation: %w", err)
	}

	return op, nil
}

// ListOperations returns up to limit operations of accountID, newest first.
func (r *Repository) ListOperations(ctx context.Context, accountID string, limit int) ([]*model.Operation, error) {
	query := `
		SELECT ` + operationColumns + `
		FROM operations
		WHERE account_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list operations: %w", err)
	}
	defer rows.Close()

	ops := make([]*model.Operation, 0, limit)
	for rows.Next() {
		op, err := scanOperation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan operation: %w", err)
		}
		ops = append(ops, op)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate operations: %w", err)
	}

	return ops, nil
}

func scanOperation(row pgx.Row) (*model.Operation, error) {
	var op model.Operation
	var kind, status string
	err := row.Scan(
		&op.ID,
		&op.AccountID,
		&kind,
		&op.Provider,
		&op.Prompt,
		&op.Cost,
		&status,
		&op.AssetURL,
		&op.Error,
		&op.CreatedAt,
		&op.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	op.Kind = model.OperationKind(kind)
	op.Status = model.OperationStatus(status)
	return &op, nil
}
