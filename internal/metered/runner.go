// Package metered runs paid operations against an account's credit balance.
//
// A run moves an operation record through created -> debited -> generated ->
// finalized. If anything fails after the debit, the record is marked failed
// and the cost is refunded, so a caller is never charged for work that did
// not produce an asset.
package metered

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/sync/semaphore"

	"github.com/ytvaala/ytvaala/internal/apperr"
	"github.com/ytvaala/ytvaala/internal/ledger"
	"github.com/ytvaala/ytvaala/internal/metrics"
	"github.com/ytvaala/ytvaala/internal/model"
)

// RefundDescription is recorded on the credit that reverses a failed run.
const RefundDescription = "refund for failed operation"

// DefaultMaxConcurrent bounds in-flight generations when Config leaves it unset.
const DefaultMaxConcurrent = 8

// ErrGenerationFailed is returned when the paid work fails after the debit.
// The underlying cause is wrapped but never sent to clients.
var ErrGenerationFailed = apperr.BadRequest("Image generation failed")

// OperationStore persists operation records.
type OperationStore interface {
	CreateOperation(ctx context.Context, op *model.Operation) error
	// FinalizeOperation moves a pending record to a terminal status. It
	// must reject records that are already final.
	FinalizeOperation(ctx context.Context, id string, status model.OperationStatus, assetURL, reason string) (*model.Operation, error)
}

// Ledger is the subset of the credit ledger a run needs.
type Ledger interface {
	AddCredits(ctx context.Context, accountID string, amount int64, description string) (*ledger.Receipt, error)
	DeductCredits(ctx context.Context, accountID string, amount int64, description string) (*ledger.Receipt, error)
}

// Task produces the paid asset and returns its public URL.
type Task func(ctx context.Context) (string, error)

// Request describes one paid operation.
type Request struct {
	Kind     model.OperationKind
	Provider string
	Prompt   string
	Cost     int64
	Task     Task
}

// Config holds runner dependencies.
type Config struct {
	Logger        *slog.Logger
	Metrics       metrics.Recorder
	MaxConcurrent int64
}

// Runner executes metered operations.
type Runner struct {
	ops     OperationStore
	credits Ledger
	slots   *semaphore.Weighted
	logger  *slog.Logger
	metrics metrics.Recorder
	now     func() time.Time
}

// New creates a Runner.
func New(ops OperationStore, credits Ledger, cfg Config) *Runner {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	recorder := cfg.Metrics
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	limit := cfg.MaxConcurrent
	if limit <= 0 {
		limit = DefaultMaxConcurrent
	}

	return &Runner{
		ops:     ops,
		credits: credits,
		slots:   semaphore.NewWeighted(limit),
		logger:  logger.With("component", "metered"),
		metrics: recorder,
		now:     time.Now,
	}
}

// Run charges accountID for req, runs its task and returns the finalized
// operation. Ledger errors from the debit (for example
// ledger.ErrInsufficientCredits) are returned unchanged and no task runs.
// Failures after the debit are refunded and reported as ErrGenerationFailed.
func (r *Runner) Run(ctx context.Context, accountID string, req Request) (*model.Operation, error) {
	now := r.now().UTC()
	op := &model.Operation{
		ID:        ulid.Make().String(),
		AccountID: accountID,
		Kind:      req.Kind,
		Provider:  req.Provider,
		Prompt:    req.Prompt,
		Cost:      req.Cost,
		Status:    model.OperationPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := r.ops.CreateOperation(ctx, op); err != nil {
		return nil, fmt.Errorf("failed to create operation: %w", err)
	}

	logger := r.logger.With(
		slog.String("operation_id", op.ID),
		slog.String("account_id", accountID),
		slog.String("kind", string(req.Kind)),
		slog.String("provider", req.Provider),
	)

	description := fmt.Sprintf("%s generation via %s", req.Kind, req.Provider)
	if _, err := r.credits.DeductCredits(ctx, accountID, req.Cost, description); err != nil {
		r.markFailed(ctx, logger, op.ID, err)
		r.metrics.IncOperation(string(req.Kind), req.Provider, metrics.OutcomeRejected)
		if _, ok := apperr.As(err); ok {
			return nil, err
		}
		return nil, fmt.Errorf("failed to debit credits: %w", err)
	}

	assetURL, err := r.generate(ctx, req)
	if err == nil {
		done, ferr := r.ops.FinalizeOperation(ctx, op.ID, model.OperationCompleted, assetURL, "")
		if ferr == nil {
			r.metrics.IncOperation(string(req.Kind), req.Provider, metrics.OutcomeCompleted)
			logger.InfoContext(ctx, "operation completed", slog.Int64("cost", req.Cost))
			return done, nil
		}
		err = fmt.Errorf("failed to complete operation: %w", ferr)
	}

	logger.WarnContext(ctx, "operation failed", slog.String("error", err.Error()))
	r.markFailed(ctx, logger, op.ID, err)
	r.refund(ctx, logger, accountID, req.Cost)
	r.metrics.IncOperation(string(req.Kind), req.Provider, metrics.OutcomeFailed)

	return nil, ErrGenerationFailed.Wrap(err)
}

// generate runs the task inside a concurrency slot.
func (r *Runner) generate(ctx context.Context, req Request) (string, error) {
	if req.Task == nil {
		return "", fmt.Errorf("no task for %s operation", req.Kind)
	}
	if err := r.slots.Acquire(ctx, 1); err != nil {
		return "", fmt.Errorf("failed to acquire generation slot: %w", err)
	}
	defer r.slots.Release(1)

	r.metrics.AddGenerationsInFlight(1)
	defer r.metrics.AddGenerationsInFlight(-1)

	start := time.Now()
	assetURL, err := req.Task(ctx)
	r.metrics.ObserveGenerationDuration(req.Provider, time.Since(start))
	if err != nil {
		return "", err
	}
	if assetURL == "" {
		return "", fmt.Errorf("task returned an empty asset URL")
	}
	return assetURL, nil
}

// markFailed records the failure on a context that survives client
// cancellation.
func (r *Runner) markFailed(ctx context.Context, logger *slog.Logger, id string, cause error) {
	detached := context.WithoutCancel(ctx)
	if _, err := r.ops.FinalizeOperation(detached, id, model.OperationFailed, "", cause.Error()); err != nil {
		logger.ErrorContext(detached, "failed to mark operation failed", slog.String("error", err.Error()))
	}
}

func (r *Runner) refund(ctx context.Context, logger *slog.Logger, accountID string, amount int64) {
	detached := context.WithoutCancel(ctx)
	if _, err := r.credits.AddCredits(detached, accountID, amount, RefundDescription); err != nil {
		r.metrics.IncRefund(false)
		logger.ErrorContext(detached, "refund_failed",
			slog.Int64("amount", amount),
			slog.String("error", err.Error()),
		)
		return
	}
	r.metrics.IncRefund(true)
}
