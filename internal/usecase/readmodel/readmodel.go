// Package readmodel holds the flattened views returned by usecases to the
// handler and scheduler layers.
package readmodel

import (
	"time"

	"orderflow/internal/domain/order"

	"github.com/google/uuid"
)

// IntakeResultRM is the outcome of an intake request. Duplicate hits carry
// the existing order's id so the caller can acknowledge idempotently.
type IntakeResultRM struct {
	OrderID   uuid.UUID
	Duplicate bool
	Message   string
}

type SyncResultRM struct {
	OrderID uuid.UUID
	Created bool
}

// ProcessResultRM reports one dispatch or status-check step. A terminal
// Status with a nil error means the step ran and the order landed there;
// dispatch failures are outcomes, not usecase errors.
type ProcessResultRM struct {
	OrderID         uuid.UUID
	Status          order.Status
	ExternalOrderID *string
	Message         string
}

type ReplacementRM struct {
	ID                uuid.UUID
	OrderID           uuid.UUID
	Status            string
	Motivo            string
	Resposta          *string
	Tentativas        int32
	DataSolicitacao   time.Time
	DataLimite        time.Time
	DataProcessamento *time.Time
	Existing          bool
}

type ReplacementStatsRM struct {
	Total      int64
	Pending    int64
	Processing int64
	Completed  int64
	Failed     int64
}

type QueueInfoRM struct {
	Name     string
	Waiting  int64
	Interval time.Duration
}

type QueueStatusRM struct {
	Queues        []QueueInfoRM
	Workers       int
	RecentBatches []BatchSummaryRM
}

type QueueActionRM struct {
	Action  string
	Queues  []string
	JobID   string
	Removed int64
}

type BatchSummaryRM struct {
	Kind       string
	Total      int
	Succeeded  int
	Failed     int
	Skipped    int
	Details    order.Metadata
	StartedAt  time.Time
	FinishedAt time.Time
}
