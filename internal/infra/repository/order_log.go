package repository

import (
	"context"
	"log/slog"

	"orderflow/internal/domain/order"
	"orderflow/internal/infra"

	"github.com/google/uuid"
)

type OrderLogRepository struct {
	db DBTX
}

func NewOrderLogRepository(db DBTX) *OrderLogRepository {
	return &OrderLogRepository{db: db}
}

// Append writes one audit entry. Callers treat failures as non-fatal: the
// order state change is durable even when its log entry is not.
func (r *OrderLogRepository) Append(ctx context.Context, orderID uuid.UUID, level order.LogLevel, message string, data order.Metadata) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO order_logs (id, order_id, level, message, data, created_at)
		VALUES ($1, $2, $3, $4, $5, now())`,
		uuid.New(), orderID, string(level), message, data,
	)
	if err != nil {
		return infra.WrapRepoErr("failed to append order log", err)
	}
	return nil
}

// AppendBestEffort logs and swallows the repository error, for the paths
// where side-effect ordering mandates that log failures only get reported.
func (r *OrderLogRepository) AppendBestEffort(ctx context.Context, orderID uuid.UUID, level order.LogLevel, message string, data order.Metadata) {
	if err := r.Append(ctx, orderID, level, message, data); err != nil {
		slog.Warn("failed to write order log entry", "order_id", orderID, "message", message, "error", err)
	}
}

func (r *OrderLogRepository) FindByOrderID(ctx context.Context, orderID uuid.UUID, limit int) ([]*order.Log, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, order_id, level, message, data, created_at
		FROM order_logs WHERE order_id = $1 ORDER BY created_at DESC LIMIT $2`,
		orderID, limit)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to find order logs", err)
	}
	defer rows.Close()

	var result []*order.Log
	for rows.Next() {
		var l order.Log
		if err := rows.Scan(&l.ID, &l.OrderID, &l.Level, &l.Message, &l.Data, &l.CreatedAt); err != nil {
			return nil, infra.WrapRepoErr("failed to scan order log row", err)
		}
		result = append(result, &l)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to iterate order log rows", err)
	}
	return result, nil
}
