package usecase

import (
	"context"

	"orderflow/internal/dispatch"
	"orderflow/internal/domain/order"
	"orderflow/internal/domain/provider"
	"orderflow/internal/domain/replacement"
	"orderflow/internal/domain/user"
	"orderflow/internal/infra/queue"
	"orderflow/internal/infra/repository"

	"github.com/google/uuid"
)

// Repository contracts consumed by the usecases. Implementations live in
// internal/infra/repository; methods taking a repository.DBTX run inside the
// caller's transaction when one is passed, or against the pool otherwise.

type OrderRepository interface {
	LockIntake(ctx context.Context, tx repository.DBTX, keys repository.DedupKeys) error
	Create(ctx context.Context, tx repository.DBTX, o *order.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*order.Order, error)
	FindByTransactionID(ctx context.Context, transactionID string) (*order.Order, error)
	FindDuplicate(ctx context.Context, tx repository.DBTX, keys repository.DedupKeys) (*order.Order, error)
	FindPending(ctx context.Context, limit int) ([]*order.Order, error)
	FindProcessing(ctx context.Context, limit int) ([]*order.Order, error)
	Update(ctx context.Context, tx repository.DBTX, o *order.Order) error
	CountByStatus(ctx context.Context) (map[order.Status]int64, error)
}

type OrderLogRepository interface {
	Append(ctx context.Context, orderID uuid.UUID, level order.LogLevel, message string, data order.Metadata) error
	AppendBestEffort(ctx context.Context, orderID uuid.UUID, level order.LogLevel, message string, data order.Metadata)
	FindByOrderID(ctx context.Context, orderID uuid.UUID, limit int) ([]*order.Log, error)
}

type ReplacementRepository interface {
	LockOrder(ctx context.Context, tx repository.DBTX, orderID uuid.UUID) error
	Create(ctx context.Context, tx repository.DBTX, rep *replacement.Replacement) error
	FindByID(ctx context.Context, id uuid.UUID) (*replacement.Replacement, error)
	FindActiveByOrderID(ctx context.Context, tx repository.DBTX, orderID uuid.UUID) (*replacement.Replacement, error)
	FindOldestPendingByOrderID(ctx context.Context, orderID uuid.UUID) (*replacement.Replacement, error)
	CountByOrderID(ctx context.Context, tx repository.DBTX, orderID uuid.UUID) (int32, error)
	Update(ctx context.Context, tx repository.DBTX, rep *replacement.Replacement) error
	CountByStatus(ctx context.Context) (map[replacement.Status]int64, error)
}

type ProviderRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*provider.Provider, error)
	FindActive(ctx context.Context) ([]*provider.Provider, error)
	Upsert(ctx context.Context, p *provider.Provider) error
}

type UserRepository interface {
	FindByEmail(ctx context.Context, email string) (*user.User, error)
	Create(ctx context.Context, u *user.User) error
}

type SettingsRepository interface {
	Get(ctx context.Context) (order.Metadata, error)
	Update(ctx context.Context, doc order.Metadata) error
}

type BatchLogRepository interface {
	Append(ctx context.Context, b *repository.BatchLog) error
	FindRecent(ctx context.Context, limit int) ([]*repository.BatchLog, error)
}

// ReplacementQueue is the priority queue feeding the replacement pipeline.
type ReplacementQueue interface {
	Enqueue(ctx context.Context, job queue.ReplacementJob, priority float64) error
	Claim(ctx context.Context, n int) ([]queue.ReplacementJob, error)
	Depth(ctx context.Context) (int64, error)
	Purge(ctx context.Context) (int64, error)
}

// DispatchRegistry resolves a provider row to its API client.
type DispatchRegistry interface {
	ClientFor(p *provider.Provider) (dispatch.Client, error)
	Supports(slug string) bool
}
