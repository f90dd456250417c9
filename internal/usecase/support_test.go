//go:build unit

package usecase_test

import (
	"context"
	"errors"
	"time"

	"orderflow/internal/dispatch"
	"orderflow/internal/domain/order"
	"orderflow/internal/domain/provider"
	"orderflow/internal/domain/replacement"
	"orderflow/internal/domain/user"
	"orderflow/internal/infra"
	"orderflow/internal/infra/queue"
	"orderflow/internal/infra/repository"
	"orderflow/internal/usecase"
	"orderflow/internal/usecase/readmodel"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

func notFoundErr(msg string) error {
	return infra.WrapRepoErr(msg, errors.New("no rows in result set"), infra.KindNotFound)
}

func assertableErr(msg string) error {
	return errors.New(msg)
}

// fakeTx satisfies repository.Tx; the usecases only hand it to fake
// repositories, so the query methods never run.
type fakeTx struct {
	committed  bool
	rolledBack bool
}

func (t *fakeTx) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

func (t *fakeTx) Query(context.Context, string, ...any) (pgx.Rows, error) { return nil, nil }

func (t *fakeTx) QueryRow(context.Context, string, ...any) pgx.Row { return nil }

func (t *fakeTx) Commit(context.Context) error {
	t.committed = true
	return nil
}

func (t *fakeTx) Rollback(context.Context) error {
	if !t.committed {
		t.rolledBack = true
	}
	return nil
}

// fakeDB hands out fakeTx transactions and remembers them so tests can
// assert commit versus rollback.
type fakeDB struct {
	txs      []*fakeTx
	beginErr error
}

func (d *fakeDB) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

func (d *fakeDB) Query(context.Context, string, ...any) (pgx.Rows, error) { return nil, nil }

func (d *fakeDB) QueryRow(context.Context, string, ...any) pgx.Row { return nil }

func (d *fakeDB) Begin(context.Context) (repository.Tx, error) {
	if d.beginErr != nil {
		return nil, d.beginErr
	}
	tx := &fakeTx{}
	d.txs = append(d.txs, tx)
	return tx, nil
}

func (d *fakeDB) lastTx() *fakeTx {
	if len(d.txs) == 0 {
		return nil
	}
	return d.txs[len(d.txs)-1]
}

func readmodelSummary(kind string, total, succeeded, failed int) readmodel.BatchSummaryRM {
	now := time.Now()
	return readmodel.BatchSummaryRM{
		Kind:       kind,
		Total:      total,
		Succeeded:  succeeded,
		Failed:     failed,
		StartedAt:  now.Add(-time.Second),
		FinishedAt: now,
	}
}

type fakeOrderRepo struct {
	orders     map[uuid.UUID]*order.Order
	byTxID     map[string]*order.Order
	duplicate  *order.Order
	pending    []*order.Order
	procing    []*order.Order
	counts     map[order.Status]int64
	updated    []*order.Order
	lockedKeys []repository.DedupKeys
	dedupKeys  []repository.DedupKeys
	findErr    error
	updateErr  error
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{
		orders: make(map[uuid.UUID]*order.Order),
		byTxID: make(map[string]*order.Order),
		counts: make(map[order.Status]int64),
	}
}

func (f *fakeOrderRepo) add(o *order.Order) {
	f.orders[o.ID] = o
	f.byTxID[o.TransactionID] = o
}

func (f *fakeOrderRepo) LockIntake(_ context.Context, _ repository.DBTX, keys repository.DedupKeys) error {
	f.lockedKeys = append(f.lockedKeys, keys)
	return nil
}

func (f *fakeOrderRepo) Create(_ context.Context, _ repository.DBTX, o *order.Order) error {
	f.add(o)
	return nil
}

func (f *fakeOrderRepo) FindByID(_ context.Context, id uuid.UUID) (*order.Order, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	o, ok := f.orders[id]
	if !ok {
		return nil, notFoundErr("order not found")
	}
	return o, nil
}

func (f *fakeOrderRepo) FindByTransactionID(_ context.Context, txID string) (*order.Order, error) {
	o, ok := f.byTxID[txID]
	if !ok {
		return nil, notFoundErr("order not found")
	}
	return o, nil
}

func (f *fakeOrderRepo) FindDuplicate(_ context.Context, _ repository.DBTX, keys repository.DedupKeys) (*order.Order, error) {
	f.dedupKeys = append(f.dedupKeys, keys)
	if f.duplicate == nil {
		return nil, notFoundErr("no duplicate")
	}
	return f.duplicate, nil
}

func (f *fakeOrderRepo) FindPending(context.Context, int) ([]*order.Order, error) {
	return f.pending, nil
}

func (f *fakeOrderRepo) FindProcessing(context.Context, int) ([]*order.Order, error) {
	return f.procing, nil
}

func (f *fakeOrderRepo) Update(_ context.Context, _ repository.DBTX, o *order.Order) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updated = append(f.updated, o)
	f.orders[o.ID] = o
	return nil
}

func (f *fakeOrderRepo) CountByStatus(context.Context) (map[order.Status]int64, error) {
	return f.counts, nil
}

type loggedEntry struct {
	OrderID uuid.UUID
	Level   order.LogLevel
	Message string
	Data    order.Metadata
}

type fakeLogRepo struct {
	entries []loggedEntry
}

func (f *fakeLogRepo) Append(_ context.Context, orderID uuid.UUID, level order.LogLevel, message string, data order.Metadata) error {
	f.entries = append(f.entries, loggedEntry{OrderID: orderID, Level: level, Message: message, Data: data})
	return nil
}

func (f *fakeLogRepo) AppendBestEffort(ctx context.Context, orderID uuid.UUID, level order.LogLevel, message string, data order.Metadata) {
	_ = f.Append(ctx, orderID, level, message, data)
}

func (f *fakeLogRepo) FindByOrderID(_ context.Context, orderID uuid.UUID, _ int) ([]*order.Log, error) {
	var logs []*order.Log
	for _, e := range f.entries {
		if e.OrderID == orderID {
			logs = append(logs, &order.Log{OrderID: e.OrderID, Level: e.Level, Message: e.Message})
		}
	}
	return logs, nil
}

func (f *fakeLogRepo) entryFor(message string) *loggedEntry {
	for i := range f.entries {
		if f.entries[i].Message == message {
			return &f.entries[i]
		}
	}
	return nil
}

func (f *fakeLogRepo) messages() []string {
	out := make([]string, 0, len(f.entries))
	for _, e := range f.entries {
		out = append(out, e.Message)
	}
	return out
}

type fakeReplacementRepo struct {
	reps    map[uuid.UUID]*replacement.Replacement
	active  *replacement.Replacement
	counts  map[replacement.Status]int64
	updated []*replacement.Replacement
	prior   int32
}

func newFakeReplacementRepo() *fakeReplacementRepo {
	return &fakeReplacementRepo{
		reps:   make(map[uuid.UUID]*replacement.Replacement),
		counts: make(map[replacement.Status]int64),
	}
}

func (f *fakeReplacementRepo) LockOrder(context.Context, repository.DBTX, uuid.UUID) error {
	return nil
}

func (f *fakeReplacementRepo) Create(_ context.Context, _ repository.DBTX, rep *replacement.Replacement) error {
	f.reps[rep.ID] = rep
	return nil
}

func (f *fakeReplacementRepo) FindByID(_ context.Context, id uuid.UUID) (*replacement.Replacement, error) {
	rep, ok := f.reps[id]
	if !ok {
		return nil, notFoundErr("replacement not found")
	}
	return rep, nil
}

func (f *fakeReplacementRepo) FindActiveByOrderID(context.Context, repository.DBTX, uuid.UUID) (*replacement.Replacement, error) {
	if f.active == nil {
		return nil, notFoundErr("no active replacement")
	}
	return f.active, nil
}

func (f *fakeReplacementRepo) FindOldestPendingByOrderID(_ context.Context, orderID uuid.UUID) (*replacement.Replacement, error) {
	for _, rep := range f.reps {
		if rep.OrderID == orderID && rep.Status == replacement.StatusPending {
			return rep, nil
		}
	}
	return nil, notFoundErr("no pending replacement")
}

func (f *fakeReplacementRepo) CountByOrderID(context.Context, repository.DBTX, uuid.UUID) (int32, error) {
	return f.prior, nil
}

func (f *fakeReplacementRepo) Update(_ context.Context, _ repository.DBTX, rep *replacement.Replacement) error {
	f.updated = append(f.updated, rep)
	f.reps[rep.ID] = rep
	return nil
}

func (f *fakeReplacementRepo) CountByStatus(context.Context) (map[replacement.Status]int64, error) {
	return f.counts, nil
}

type fakeProviderRepo struct {
	providers map[uuid.UUID]*provider.Provider
	active    []*provider.Provider
	upserted  []*provider.Provider
}

func newFakeProviderRepo() *fakeProviderRepo {
	return &fakeProviderRepo{providers: make(map[uuid.UUID]*provider.Provider)}
}

func (f *fakeProviderRepo) add(p *provider.Provider) {
	f.providers[p.ID] = p
	f.active = append(f.active, p)
}

func (f *fakeProviderRepo) FindByID(_ context.Context, id uuid.UUID) (*provider.Provider, error) {
	p, ok := f.providers[id]
	if !ok {
		return nil, notFoundErr("provider not found")
	}
	return p, nil
}

func (f *fakeProviderRepo) FindActive(context.Context) ([]*provider.Provider, error) {
	return f.active, nil
}

func (f *fakeProviderRepo) Upsert(_ context.Context, p *provider.Provider) error {
	f.upserted = append(f.upserted, p)
	f.providers[p.ID] = p
	return nil
}

type fakeUserRepo struct {
	byEmail map[string]*user.User
	created []*user.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{byEmail: make(map[string]*user.User)}
}

func (f *fakeUserRepo) FindByEmail(_ context.Context, email string) (*user.User, error) {
	u, ok := f.byEmail[email]
	if !ok {
		return nil, notFoundErr("user not found")
	}
	return u, nil
}

func (f *fakeUserRepo) Create(_ context.Context, u *user.User) error {
	f.created = append(f.created, u)
	f.byEmail[u.Email] = u
	return nil
}

type fakeSettingsRepo struct {
	doc     order.Metadata
	getErr  error
	updated order.Metadata
}

func (f *fakeSettingsRepo) Get(context.Context) (order.Metadata, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	if f.doc == nil {
		return nil, notFoundErr("settings not found")
	}
	return f.doc, nil
}

func (f *fakeSettingsRepo) Update(_ context.Context, doc order.Metadata) error {
	f.updated = doc
	return nil
}

type fakeBatchRepo struct {
	entries []*repository.BatchLog
}

func (f *fakeBatchRepo) Append(_ context.Context, b *repository.BatchLog) error {
	f.entries = append(f.entries, b)
	return nil
}

func (f *fakeBatchRepo) FindRecent(context.Context, int) ([]*repository.BatchLog, error) {
	return f.entries, nil
}

type fakeQueue struct {
	jobs       []queue.ReplacementJob
	priorities []float64
	enqueueErr error
	purged     int64
}

func (f *fakeQueue) Enqueue(_ context.Context, job queue.ReplacementJob, priority float64) error {
	if f.enqueueErr != nil {
		return f.enqueueErr
	}
	f.jobs = append(f.jobs, job)
	f.priorities = append(f.priorities, priority)
	return nil
}

func (f *fakeQueue) Claim(_ context.Context, n int) ([]queue.ReplacementJob, error) {
	if n > len(f.jobs) {
		n = len(f.jobs)
	}
	claimed := f.jobs[:n]
	f.jobs = f.jobs[n:]
	return claimed, nil
}

func (f *fakeQueue) Depth(context.Context) (int64, error) {
	return int64(len(f.jobs)), nil
}

func (f *fakeQueue) Purge(context.Context) (int64, error) {
	n := int64(len(f.jobs))
	f.jobs = nil
	f.purged += n
	return n, nil
}

// fakeRegistry returns one fixed client for every supported slug and
// remembers the provider it was resolved for.
type fakeRegistry struct {
	client       dispatch.Client
	unsupported  bool
	lastProvider *provider.Provider
}

func (f *fakeRegistry) ClientFor(p *provider.Provider) (dispatch.Client, error) {
	f.lastProvider = p
	if f.unsupported {
		return nil, dispatch.ErrUnsupportedProvider
	}
	return f.client, nil
}

func (f *fakeRegistry) Supports(string) bool { return !f.unsupported }

// stubSettings bypasses the settings repository for usecases that only
// consult toggles.
type stubSettings struct {
	current usecase.Settings
	err     error
}

func (s *stubSettings) Get(context.Context) (usecase.Settings, error) {
	if s.err != nil {
		return usecase.Settings{}, s.err
	}
	return s.current, nil
}

func (s *stubSettings) Update(_ context.Context, next usecase.Settings) (usecase.Settings, error) {
	s.current = next
	return next, nil
}

// stubTrigger records which queues were kicked.
type stubTrigger struct {
	kicked []string
}

func (s *stubTrigger) RunNow(queueName string) {
	s.kicked = append(s.kicked, queueName)
}

func completedOrder(createdAt time.Time) *order.Order {
	ext := "ext-123"
	provID := uuid.New()
	return &order.Order{
		ID:              uuid.New(),
		TransactionID:   "tx-1",
		ServiceID:       "svc-1",
		Status:          order.StatusCompleted,
		Quantity:        100,
		TargetUsername:  "someone",
		TargetURL:       "https://instagram.com/someone",
		ProviderID:      &provID,
		ExternalOrderID: &ext,
		Metadata:        order.Metadata{},
		CreatedAt:       createdAt,
	}
}

func pendingOrder() *order.Order {
	return &order.Order{
		ID:             uuid.New(),
		TransactionID:  "tx-1",
		ServiceID:      "svc-1",
		Status:         order.StatusPending,
		Quantity:       250,
		TargetUsername: "someone",
		TargetURL:      "https://instagram.com/someone",
		Metadata:       order.Metadata{},
	}
}

func activeProvider(slug string) *provider.Provider {
	return &provider.Provider{
		ID:     uuid.New(),
		Name:   "Test Panel",
		Slug:   slug,
		APIKey: "key",
		APIURL: "https://panel.example.com/api",
		Active: true,
	}
}
