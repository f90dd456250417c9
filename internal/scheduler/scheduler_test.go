//go:build unit

package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"orderflow/internal/domain/order"
	"orderflow/internal/infra/queue"
	"orderflow/internal/pkg/clock"
	"orderflow/internal/pkg/config"
	"orderflow/internal/usecase"
	"orderflow/internal/usecase/readmodel"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProcessing scripts per-order outcomes for the sweeps.
type fakeProcessing struct {
	mu        sync.Mutex
	pending   []uuid.UUID
	procing   []uuid.UUID
	results   map[uuid.UUID]*readmodel.ProcessResultRM
	errs      map[uuid.UUID]error
	batches   []readmodel.BatchSummaryRM
	processed []uuid.UUID
}

func newFakeProcessing() *fakeProcessing {
	return &fakeProcessing{
		results: make(map[uuid.UUID]*readmodel.ProcessResultRM),
		errs:    make(map[uuid.UUID]error),
	}
}

func (f *fakeProcessing) outcome(id uuid.UUID) (*readmodel.ProcessResultRM, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.processed = append(f.processed, id)
	if err, ok := f.errs[id]; ok {
		return nil, err
	}
	if rm, ok := f.results[id]; ok {
		return rm, nil
	}
	return &readmodel.ProcessResultRM{OrderID: id, Status: order.StatusProcessing}, nil
}

func (f *fakeProcessing) ProcessOrder(_ context.Context, id uuid.UUID) (*readmodel.ProcessResultRM, error) {
	return f.outcome(id)
}

func (f *fakeProcessing) CheckOrderStatus(_ context.Context, id uuid.UUID) (*readmodel.ProcessResultRM, error) {
	return f.outcome(id)
}

func (f *fakeProcessing) ClaimPending(_ context.Context, limit int) ([]uuid.UUID, error) {
	if limit < len(f.pending) {
		return f.pending[:limit], nil
	}
	return f.pending, nil
}

func (f *fakeProcessing) ClaimProcessing(_ context.Context, limit int) ([]uuid.UUID, error) {
	if limit < len(f.procing) {
		return f.procing[:limit], nil
	}
	return f.procing, nil
}

func (f *fakeProcessing) RecordBatch(_ context.Context, summary readmodel.BatchSummaryRM) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches = append(f.batches, summary)
}

type fakeReplacements struct {
	mu      sync.Mutex
	results map[uuid.UUID]*readmodel.ReplacementRM
	errs    map[uuid.UUID]error
	handled []uuid.UUID
}

func newFakeReplacements() *fakeReplacements {
	return &fakeReplacements{
		results: make(map[uuid.UUID]*readmodel.ReplacementRM),
		errs:    make(map[uuid.UUID]error),
	}
}

func (f *fakeReplacements) Create(context.Context, usecase.CreateReplacementCommand) (*readmodel.ReplacementRM, error) {
	panic("not used by the scheduler")
}

func (f *fakeReplacements) Get(context.Context, uuid.UUID) (*readmodel.ReplacementRM, error) {
	panic("not used by the scheduler")
}

func (f *fakeReplacements) Approve(context.Context, uuid.UUID, string) (*readmodel.ReplacementRM, error) {
	panic("not used by the scheduler")
}

func (f *fakeReplacements) Reject(context.Context, uuid.UUID, string, *string) (*readmodel.ReplacementRM, error) {
	panic("not used by the scheduler")
}

func (f *fakeReplacements) ProcessOldestPending(context.Context, usecase.ProcessReplacementCommand, string) (*readmodel.ReplacementRM, error) {
	panic("not used by the scheduler")
}

func (f *fakeReplacements) Stats(context.Context) (*readmodel.ReplacementStatsRM, error) {
	panic("not used by the scheduler")
}

func (f *fakeReplacements) ProcessJob(_ context.Context, job queue.ReplacementJob) (*readmodel.ReplacementRM, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handled = append(f.handled, job.ReplacementID)
	if err, ok := f.errs[job.ReplacementID]; ok {
		return nil, err
	}
	if rm, ok := f.results[job.ReplacementID]; ok {
		return rm, nil
	}
	return &readmodel.ReplacementRM{ID: job.ReplacementID, Status: "completed"}, nil
}

type fakeJobQueue struct {
	mu   sync.Mutex
	jobs []queue.ReplacementJob
}

func (f *fakeJobQueue) Enqueue(_ context.Context, job queue.ReplacementJob, _ float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs = append(f.jobs, job)
	return nil
}

func (f *fakeJobQueue) Claim(_ context.Context, n int) ([]queue.ReplacementJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if n > len(f.jobs) {
		n = len(f.jobs)
	}
	claimed := f.jobs[:n]
	f.jobs = f.jobs[n:]
	return claimed, nil
}

func (f *fakeJobQueue) Depth(context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.jobs)), nil
}

func (f *fakeJobQueue) Purge(context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := int64(len(f.jobs))
	f.jobs = nil
	return n, nil
}

type fixedSettings struct {
	current usecase.Settings
}

func (s *fixedSettings) Get(context.Context) (usecase.Settings, error) {
	return s.current, nil
}

func (s *fixedSettings) Update(_ context.Context, next usecase.Settings) (usecase.Settings, error) {
	s.current = next
	return next, nil
}

func testConfig() config.SchedulerConfig {
	return config.SchedulerConfig{
		PendingSweepInterval:     time.Hour,
		StatusCheckInterval:      time.Hour,
		ReplacementDrainInterval: time.Hour,
		PendingBatchLimit:        10,
		StatusCheckBatchLimit:    10,
		ReplacementBatchLimit:    5,
		WorkerCount:              2,
	}
}

func newTestScheduler(t *testing.T, processing *fakeProcessing, replacements *fakeReplacements, q *fakeJobQueue, settings usecase.SettingsUseCase) *Scheduler {
	t.Helper()
	s := New(processing, replacements, q, settings,
		testConfig(), clock.NewMockClock(time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)))
	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(func() { _ = s.Stop(context.Background()) })
	return s
}

func TestPool(t *testing.T) {
	t.Run("success: runs every submitted task", func(t *testing.T) {
		p := NewPool(3)
		var mu sync.Mutex
		ran := 0
		for i := 0; i < 20; i++ {
			p.Submit(func() {
				mu.Lock()
				ran++
				mu.Unlock()
			})
		}
		p.Close()
		assert.Equal(t, 20, ran)
	})

	t.Run("success: a panicking task does not kill its worker", func(t *testing.T) {
		p := NewPool(1)
		done := make(chan struct{})
		p.Submit(func() { panic("boom") })
		p.Submit(func() { close(done) })
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("worker died after panic")
		}
		p.Close()
	})
}

func TestSweepPending(t *testing.T) {
	t.Run("success: tallies outcomes and records the batch", func(t *testing.T) {
		processing := newFakeProcessing()
		okID, failID, skipID := uuid.New(), uuid.New(), uuid.New()
		processing.pending = []uuid.UUID{okID, failID, skipID}
		processing.results[okID] = &readmodel.ProcessResultRM{OrderID: okID, Status: order.StatusProcessing}
		processing.results[failID] = &readmodel.ProcessResultRM{OrderID: failID, Status: order.StatusFailed}
		processing.errs[skipID] = usecase.ErrOrderNotPending

		s := newTestScheduler(t, processing, newFakeReplacements(), &fakeJobQueue{}, &fixedSettings{})
		s.SweepPending(context.Background())

		require.Len(t, processing.batches, 1)
		b := processing.batches[0]
		assert.Equal(t, "process_pending", b.Kind)
		assert.Equal(t, 3, b.Total)
		assert.Equal(t, 1, b.Succeeded)
		assert.Equal(t, 1, b.Failed)
		assert.Equal(t, 1, b.Skipped)
	})

	t.Run("success: maintenance mode skips the sweep entirely", func(t *testing.T) {
		processing := newFakeProcessing()
		processing.pending = []uuid.UUID{uuid.New()}
		settings := &fixedSettings{current: usecase.Settings{MaintenanceMode: true}}

		s := newTestScheduler(t, processing, newFakeReplacements(), &fakeJobQueue{}, settings)
		s.SweepPending(context.Background())

		assert.Empty(t, processing.processed)
		assert.Empty(t, processing.batches)
	})

	t.Run("success: empty claim records nothing", func(t *testing.T) {
		processing := newFakeProcessing()

		s := newTestScheduler(t, processing, newFakeReplacements(), &fakeJobQueue{}, &fixedSettings{})
		s.SweepPending(context.Background())

		assert.Empty(t, processing.batches)
	})
}

func TestSweepStatus(t *testing.T) {
	t.Run("success: still-processing orders count as skipped", func(t *testing.T) {
		processing := newFakeProcessing()
		doneID, stuckID := uuid.New(), uuid.New()
		processing.procing = []uuid.UUID{doneID, stuckID}
		processing.results[doneID] = &readmodel.ProcessResultRM{OrderID: doneID, Status: order.StatusCompleted}
		processing.results[stuckID] = &readmodel.ProcessResultRM{OrderID: stuckID, Status: order.StatusProcessing}

		s := newTestScheduler(t, processing, newFakeReplacements(), &fakeJobQueue{}, &fixedSettings{})
		s.SweepStatus(context.Background())

		require.Len(t, processing.batches, 1)
		b := processing.batches[0]
		assert.Equal(t, "status_check", b.Kind)
		assert.Equal(t, 1, b.Succeeded)
		assert.Equal(t, 1, b.Skipped)
	})
}

func TestDrainReplacements(t *testing.T) {
	t.Run("success: claimed jobs are dispatched and tallied", func(t *testing.T) {
		processing := newFakeProcessing()
		replacements := newFakeReplacements()
		q := &fakeJobQueue{}
		okRep, failRep := uuid.New(), uuid.New()
		replacements.results[failRep] = &readmodel.ReplacementRM{ID: failRep, Status: "failed"}
		_ = q.Enqueue(context.Background(), queue.ReplacementJob{JobID: "rep-1", ReplacementID: okRep}, queue.PriorityScheduled)
		_ = q.Enqueue(context.Background(), queue.ReplacementJob{JobID: "rep-2", ReplacementID: failRep}, queue.PriorityScheduled)

		s := newTestScheduler(t, processing, replacements, q, &fixedSettings{})
		s.DrainReplacements(context.Background())

		assert.Len(t, replacements.handled, 2)
		require.Len(t, processing.batches, 1)
		b := processing.batches[0]
		assert.Equal(t, "replacements", b.Kind)
		assert.Equal(t, 1, b.Succeeded)
		assert.Equal(t, 1, b.Failed)

		depth, err := q.Depth(context.Background())
		require.NoError(t, err)
		assert.Zero(t, depth)
	})

	t.Run("success: jobs already handled by an admin are skipped", func(t *testing.T) {
		processing := newFakeProcessing()
		replacements := newFakeReplacements()
		q := &fakeJobQueue{}
		repID := uuid.New()
		replacements.errs[repID] = usecase.ErrReplacementNotPending
		_ = q.Enqueue(context.Background(), queue.ReplacementJob{JobID: "rep-1", ReplacementID: repID}, queue.PriorityManual)

		s := newTestScheduler(t, processing, replacements, q, &fixedSettings{})
		s.DrainReplacements(context.Background())

		require.Len(t, processing.batches, 1)
		assert.Equal(t, 1, processing.batches[0].Skipped)
	})
}

func TestRunNow(t *testing.T) {
	t.Run("success: repeated kicks never block", func(t *testing.T) {
		s := New(newFakeProcessing(), newFakeReplacements(), &fakeJobQueue{}, &fixedSettings{},
			testConfig(), clock.NewMockClock(time.Now()))

		done := make(chan struct{})
		go func() {
			for i := 0; i < 10; i++ {
				s.RunNow(usecase.QueuePendingOrders)
				s.RunNow("unknown-queue")
			}
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("RunNow blocked")
		}
	})
}
