package usecase

import (
	"context"
	"errors"
	"fmt"

	"orderflow/internal/domain/order"
	"orderflow/internal/pkg/clock"
	"orderflow/internal/pkg/config"
	"orderflow/internal/pkg/errs"
	"orderflow/internal/usecase/readmodel"
)

var ErrUnknownQueue = errors.New("unknown queue")

// recentBatchLimit caps the sweep history returned by Status.
const recentBatchLimit = 10

// Queue names accepted by the scheduler admin surface.
const (
	QueuePendingOrders = "pending_orders"
	QueueStatusCheck   = "status_check"
	QueueReplacements  = "replacements"
	QueueAll           = "all"
)

// SweepTrigger lets the admin surface kick a sweep outside its ticker. The
// scheduler implements it; triggers are coalesced, not stacked.
type SweepTrigger interface {
	RunNow(queue string)
}

type SchedulerAdminUseCase interface {
	Status(ctx context.Context) (*readmodel.QueueStatusRM, error)
	RunNow(ctx context.Context, queue string) (*readmodel.QueueActionRM, error)
	Clean(ctx context.Context, queue string) (*readmodel.QueueActionRM, error)
}

type schedulerAdminUseCaseImpl struct {
	orderRepo OrderRepository
	batchRepo BatchLogRepository
	queue     ReplacementQueue
	trigger   SweepTrigger
	clock     clock.Clock
	cfg       config.SchedulerConfig
}

func NewSchedulerAdminUseCase(
	orderRepo OrderRepository,
	batchRepo BatchLogRepository,
	queue ReplacementQueue,
	trigger SweepTrigger,
	clock clock.Clock,
	cfg config.SchedulerConfig,
) SchedulerAdminUseCase {
	return &schedulerAdminUseCaseImpl{
		orderRepo: orderRepo,
		batchRepo: batchRepo,
		queue:     queue,
		trigger:   trigger,
		clock:     clock,
		cfg:       cfg,
	}
}

func (s *schedulerAdminUseCaseImpl) Status(ctx context.Context) (*readmodel.QueueStatusRM, error) {
	counts, err := s.orderRepo.CountByStatus(ctx)
	if err != nil {
		return nil, errs.Mark(err, ErrDatabaseOperationFailed)
	}
	depth, err := s.queue.Depth(ctx)
	if err != nil {
		return nil, errs.Wrap(err, "failed to read replacement queue depth")
	}
	batches, err := s.batchRepo.FindRecent(ctx, recentBatchLimit)
	if err != nil {
		return nil, errs.Wrap(err, "failed to load recent batch summaries")
	}

	recent := make([]readmodel.BatchSummaryRM, 0, len(batches))
	for _, b := range batches {
		recent = append(recent, readmodel.BatchSummaryRM{
			Kind:       b.Kind,
			Total:      b.Total,
			Succeeded:  b.Succeeded,
			Failed:     b.Failed,
			Details:    b.Details,
			StartedAt:  b.StartedAt,
			FinishedAt: b.FinishedAt,
		})
	}

	return &readmodel.QueueStatusRM{
		Queues: []readmodel.QueueInfoRM{
			{Name: QueuePendingOrders, Waiting: counts[order.StatusPending], Interval: s.cfg.PendingSweepInterval},
			{Name: QueueStatusCheck, Waiting: counts[order.StatusProcessing], Interval: s.cfg.StatusCheckInterval},
			{Name: QueueReplacements, Waiting: depth, Interval: s.cfg.ReplacementDrainInterval},
		},
		Workers:       s.cfg.WorkerCount,
		RecentBatches: recent,
	}, nil
}

func (s *schedulerAdminUseCaseImpl) RunNow(_ context.Context, queueName string) (*readmodel.QueueActionRM, error) {
	targets, err := resolveQueues(queueName)
	if err != nil {
		return nil, err
	}
	for _, q := range targets {
		s.trigger.RunNow(q)
	}
	return &readmodel.QueueActionRM{
		Action: "run_now",
		Queues: targets,
		JobID:  fmt.Sprintf("manual-%d", s.clock.Now().UnixMilli()),
	}, nil
}

// Clean purges queued replacement jobs. The order sweeps are DB-driven and
// hold no removable backlog; cleaning them is a no-op reported as zero.
func (s *schedulerAdminUseCaseImpl) Clean(ctx context.Context, queueName string) (*readmodel.QueueActionRM, error) {
	targets, err := resolveQueues(queueName)
	if err != nil {
		return nil, err
	}

	var removed int64
	for _, q := range targets {
		if q == QueueReplacements {
			n, err := s.queue.Purge(ctx)
			if err != nil {
				return nil, errs.Wrap(err, "failed to purge replacement queue")
			}
			removed += n
		}
	}
	return &readmodel.QueueActionRM{
		Action:  "clean",
		Queues:  targets,
		Removed: removed,
	}, nil
}

func resolveQueues(name string) ([]string, error) {
	switch name {
	case QueuePendingOrders, QueueStatusCheck, QueueReplacements:
		return []string{name}, nil
	case QueueAll, "":
		return []string{QueuePendingOrders, QueueStatusCheck, QueueReplacements}, nil
	}
	return nil, ErrUnknownQueue
}
