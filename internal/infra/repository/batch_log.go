package repository

import (
	"context"
	"time"

	"orderflow/internal/domain/order"
	"orderflow/internal/infra"

	"github.com/google/uuid"
)

// BatchLog records one sweep of the pending or status-check pipeline.
type BatchLog struct {
	ID         uuid.UUID
	Kind       string
	Total      int
	Succeeded  int
	Failed     int
	Details    order.Metadata
	StartedAt  time.Time
	FinishedAt time.Time
}

type BatchLogRepository struct {
	db DBTX
}

func NewBatchLogRepository(db DBTX) *BatchLogRepository {
	return &BatchLogRepository{db: db}
}

func (r *BatchLogRepository) Append(ctx context.Context, b *BatchLog) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO batch_process_logs (id, kind, total, succeeded, failed, details, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		b.ID, b.Kind, b.Total, b.Succeeded, b.Failed, b.Details, b.StartedAt, b.FinishedAt,
	)
	if err != nil {
		return infra.WrapRepoErr("failed to append batch log", err)
	}
	return nil
}

func (r *BatchLogRepository) FindRecent(ctx context.Context, limit int) ([]*BatchLog, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, kind, total, succeeded, failed, details, started_at, finished_at
		FROM batch_process_logs ORDER BY started_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to find batch logs", err)
	}
	defer rows.Close()

	var result []*BatchLog
	for rows.Next() {
		var b BatchLog
		if err := rows.Scan(&b.ID, &b.Kind, &b.Total, &b.Succeeded, &b.Failed, &b.Details, &b.StartedAt, &b.FinishedAt); err != nil {
			return nil, infra.WrapRepoErr("failed to scan batch log row", err)
		}
		result = append(result, &b)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to iterate batch log rows", err)
	}
	return result, nil
}
