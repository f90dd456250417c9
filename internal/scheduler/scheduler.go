package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"orderflow/internal/domain/order"
	"orderflow/internal/pkg/clock"
	"orderflow/internal/pkg/config"
	"orderflow/internal/usecase"
	"orderflow/internal/usecase/readmodel"
)

// Scheduler owns the three background pipelines: the pending-orders sweep,
// the status-check sweep and the replacement queue drain. Each runs on its
// own ticker, shares one bounded worker pool, and is guarded by a TryLock so
// a slow sweep is skipped rather than stacked.
type Scheduler struct {
	processing   usecase.OrderProcessingUseCase
	replacements usecase.ReplacementUseCase
	queue        usecase.ReplacementQueue
	settings     usecase.SettingsUseCase
	cfg          config.SchedulerConfig
	clock        clock.Clock

	pool *Pool

	pendingMu     sync.Mutex
	statusMu      sync.Mutex
	replacementMu sync.Mutex

	triggers map[string]chan struct{}
	stop     chan struct{}
	loops    sync.WaitGroup
}

func New(
	processing usecase.OrderProcessingUseCase,
	replacements usecase.ReplacementUseCase,
	queue usecase.ReplacementQueue,
	settings usecase.SettingsUseCase,
	cfg config.SchedulerConfig,
	clock clock.Clock,
) *Scheduler {
	return &Scheduler{
		processing:   processing,
		replacements: replacements,
		queue:        queue,
		settings:     settings,
		cfg:          cfg,
		clock:        clock,
		triggers: map[string]chan struct{}{
			usecase.QueuePendingOrders: make(chan struct{}, 1),
			usecase.QueueStatusCheck:   make(chan struct{}, 1),
			usecase.QueueReplacements:  make(chan struct{}, 1),
		},
		stop: make(chan struct{}),
	}
}

func (s *Scheduler) Start(_ context.Context) error {
	s.pool = NewPool(s.cfg.WorkerCount)

	s.launch(s.cfg.PendingSweepInterval, usecase.QueuePendingOrders, s.SweepPending)
	s.launch(s.cfg.StatusCheckInterval, usecase.QueueStatusCheck, s.SweepStatus)
	s.launch(s.cfg.ReplacementDrainInterval, usecase.QueueReplacements, s.DrainReplacements)

	slog.Info("scheduler started",
		"workers", s.cfg.WorkerCount,
		"pending_interval", s.cfg.PendingSweepInterval,
		"status_interval", s.cfg.StatusCheckInterval,
		"replacement_interval", s.cfg.ReplacementDrainInterval,
	)
	return nil
}

func (s *Scheduler) Stop(_ context.Context) error {
	close(s.stop)
	s.loops.Wait()
	s.pool.Close()
	slog.Info("scheduler stopped")
	return nil
}

// RunNow kicks a sweep outside its ticker. The trigger channel holds one
// slot, so repeated requests during a running sweep coalesce into one extra
// run.
func (s *Scheduler) RunNow(queue string) {
	ch, ok := s.triggers[queue]
	if !ok {
		return
	}
	select {
	case ch <- struct{}{}:
	default:
	}
}

func (s *Scheduler) launch(interval time.Duration, queue string, sweep func(context.Context)) {
	s.loops.Add(1)
	go func() {
		defer s.loops.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-s.stop:
				return
			case <-ticker.C:
				sweep(context.Background())
			case <-s.triggers[queue]:
				sweep(context.Background())
			}
		}
	}()
}

// SweepPending submits a batch of pending orders to their providers.
func (s *Scheduler) SweepPending(ctx context.Context) {
	if !s.pendingMu.TryLock() {
		slog.Debug("pending sweep already running, skipping tick")
		return
	}
	defer s.pendingMu.Unlock()
	if s.inMaintenance(ctx) {
		return
	}

	started := s.clock.Now()
	ids, err := s.processing.ClaimPending(ctx, s.cfg.PendingBatchLimit)
	if err != nil {
		slog.Error("failed to claim pending orders", "error", err)
		return
	}
	if len(ids) == 0 {
		return
	}

	var tally batchTally
	var wg sync.WaitGroup
	for _, id := range ids {
		id := id
		wg.Add(1)
		s.pool.Submit(func() {
			defer wg.Done()
			rm, err := s.processing.ProcessOrder(ctx, id)
			switch {
			case isSkip(err):
				tally.skip()
			case err != nil:
				tally.fail()
				slog.Error("pending sweep job failed", "order_id", id, "error", err)
			case rm.Status == order.StatusFailed:
				tally.fail()
			default:
				tally.ok()
			}
		})
	}
	wg.Wait()

	s.processing.RecordBatch(ctx, tally.summary("process_pending", len(ids), started, s.clock.Now()))
}

// SweepStatus polls providers for orders sitting in processing.
func (s *Scheduler) SweepStatus(ctx context.Context) {
	if !s.statusMu.TryLock() {
		slog.Debug("status sweep already running, skipping tick")
		return
	}
	defer s.statusMu.Unlock()
	if s.inMaintenance(ctx) {
		return
	}

	started := s.clock.Now()
	ids, err := s.processing.ClaimProcessing(ctx, s.cfg.StatusCheckBatchLimit)
	if err != nil {
		slog.Error("failed to claim processing orders", "error", err)
		return
	}
	if len(ids) == 0 {
		return
	}

	var tally batchTally
	var wg sync.WaitGroup
	for _, id := range ids {
		id := id
		wg.Add(1)
		s.pool.Submit(func() {
			defer wg.Done()
			rm, err := s.processing.CheckOrderStatus(ctx, id)
			switch {
			case isSkip(err):
				tally.skip()
			case err != nil:
				tally.fail()
				slog.Error("status sweep job failed", "order_id", id, "error", err)
			case rm.Status == order.StatusCompleted:
				tally.ok()
			case rm.Status == order.StatusFailed:
				tally.fail()
			default:
				// Still processing; neither success nor failure.
				tally.skip()
			}
		})
	}
	wg.Wait()

	s.processing.RecordBatch(ctx, tally.summary("status_check", len(ids), started, s.clock.Now()))
}

// DrainReplacements claims queued replacement jobs and dispatches refills.
func (s *Scheduler) DrainReplacements(ctx context.Context) {
	if !s.replacementMu.TryLock() {
		slog.Debug("replacement drain already running, skipping tick")
		return
	}
	defer s.replacementMu.Unlock()
	if s.inMaintenance(ctx) {
		return
	}

	started := s.clock.Now()
	jobs, err := s.queue.Claim(ctx, s.cfg.ReplacementBatchLimit)
	if err != nil {
		slog.Error("failed to claim replacement jobs", "error", err)
		return
	}
	if len(jobs) == 0 {
		return
	}

	var tally batchTally
	var wg sync.WaitGroup
	for _, job := range jobs {
		job := job
		wg.Add(1)
		s.pool.Submit(func() {
			defer wg.Done()
			rm, err := s.replacements.ProcessJob(ctx, job)
			switch {
			case isSkip(err):
				tally.skip()
			case err != nil:
				tally.fail()
				slog.Error("replacement job failed", "job_id", job.JobID, "error", err)
			case rm.Status == "failed":
				tally.fail()
			default:
				tally.ok()
			}
		})
	}
	wg.Wait()

	s.processing.RecordBatch(ctx, tally.summary("replacements", len(jobs), started, s.clock.Now()))
}

func (s *Scheduler) inMaintenance(ctx context.Context) bool {
	current, err := s.settings.Get(ctx)
	if err != nil {
		return false
	}
	if current.MaintenanceMode {
		slog.Info("maintenance mode on, skipping sweep")
		return true
	}
	return false
}

// isSkip covers jobs another actor already resolved between claim and run.
func isSkip(err error) bool {
	return errors.Is(err, usecase.ErrOrderNotPending) ||
		errors.Is(err, usecase.ErrOrderNotProcessing) ||
		errors.Is(err, usecase.ErrOrderNotFound) ||
		errors.Is(err, usecase.ErrNoActiveProvider) ||
		errors.Is(err, usecase.ErrReplacementNotPending) ||
		errors.Is(err, usecase.ErrReplacementNotFound)
}

type batchTally struct {
	mu                         sync.Mutex
	succeeded, failed, skipped int
}

func (t *batchTally) ok()   { t.mu.Lock(); t.succeeded++; t.mu.Unlock() }
func (t *batchTally) fail() { t.mu.Lock(); t.failed++; t.mu.Unlock() }
func (t *batchTally) skip() { t.mu.Lock(); t.skipped++; t.mu.Unlock() }

func (t *batchTally) summary(kind string, total int, started, finished time.Time) readmodel.BatchSummaryRM {
	t.mu.Lock()
	defer t.mu.Unlock()
	return readmodel.BatchSummaryRM{
		Kind:      kind,
		Total:     total,
		Succeeded: t.succeeded,
		Failed:    t.failed,
		Skipped:   t.skipped,
		Details: order.Metadata{
			"skipped": t.skipped,
		},
		StartedAt:  started,
		FinishedAt: finished,
	}
}
