package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"orderflow/internal/dispatch"
	"orderflow/internal/domain/order"
	"orderflow/internal/domain/replacement"
	"orderflow/internal/infra"
	"orderflow/internal/infra/queue"
	"orderflow/internal/infra/repository"
	"orderflow/internal/pkg/clock"
	"orderflow/internal/pkg/config"
	"orderflow/internal/pkg/errs"
	"orderflow/internal/usecase/readmodel"

	"github.com/google/uuid"
)

var (
	ErrReplacementNotFound   = errors.New("replacement not found")
	ErrReplacementNotPending = errors.New("replacement is no longer pending")
)

// CreateReplacementCommand identifies the order either directly or through
// the upstream transaction id, which is what customers usually hold.
type CreateReplacementCommand struct {
	OrderID       *uuid.UUID
	TransactionID string
	Motivo        string
	Observacoes   *string
}

// ProcessReplacementCommand identifies the order whose oldest pending
// request should be dispatched out of band.
type ProcessReplacementCommand struct {
	OrderID       *uuid.UUID
	TransactionID string
}

type ReplacementUseCase interface {
	Create(ctx context.Context, cmd CreateReplacementCommand) (*readmodel.ReplacementRM, error)
	Get(ctx context.Context, id uuid.UUID) (*readmodel.ReplacementRM, error)
	Approve(ctx context.Context, id uuid.UUID, actor string) (*readmodel.ReplacementRM, error)
	Reject(ctx context.Context, id uuid.UUID, actor string, resposta *string) (*readmodel.ReplacementRM, error)
	ProcessOldestPending(ctx context.Context, cmd ProcessReplacementCommand, actor string) (*readmodel.ReplacementRM, error)
	ProcessJob(ctx context.Context, job queue.ReplacementJob) (*readmodel.ReplacementRM, error)
	Stats(ctx context.Context) (*readmodel.ReplacementStatsRM, error)
}

type replacementUseCaseImpl struct {
	repRepo      ReplacementRepository
	orderRepo    OrderRepository
	logRepo      OrderLogRepository
	providerRepo ProviderRepository
	registry     DispatchRegistry
	queue        ReplacementQueue
	db           repository.DB
	clock        clock.Clock
	cfg          config.DispatchConfig
}

func NewReplacementUseCase(
	repRepo ReplacementRepository,
	orderRepo OrderRepository,
	logRepo OrderLogRepository,
	providerRepo ProviderRepository,
	registry DispatchRegistry,
	queue ReplacementQueue,
	db repository.DB,
	clock clock.Clock,
	cfg config.DispatchConfig,
) ReplacementUseCase {
	return &replacementUseCaseImpl{
		repRepo:      repRepo,
		orderRepo:    orderRepo,
		logRepo:      logRepo,
		providerRepo: providerRepo,
		registry:     registry,
		queue:        queue,
		db:           db,
		clock:        clock,
		cfg:          cfg,
	}
}

func (s *replacementUseCaseImpl) Create(ctx context.Context, cmd CreateReplacementCommand) (*readmodel.ReplacementRM, error) {
	o, err := s.resolveOrder(ctx, cmd.OrderID, cmd.TransactionID)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, errs.Mark(err, ErrDatabaseOperationFailed)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Single-active guard: the check and the insert share one advisory lock
	// per order, so two concurrent requests cannot both pass.
	if err := s.repRepo.LockOrder(ctx, tx, o.ID); err != nil {
		return nil, errs.Mark(err, ErrDatabaseOperationFailed)
	}

	active, err := s.repRepo.FindActiveByOrderID(ctx, tx, o.ID)
	if err != nil && !infra.IsKind(err, infra.KindNotFound) {
		return nil, errs.Mark(err, ErrDatabaseOperationFailed)
	}
	if active != nil && cmd.OrderID == nil {
		// The transaction-id path is retried by upstream automations; an
		// existing active request is acknowledged idempotently.
		return toReplacementRM(active, true), nil
	}
	if err := replacement.CheckEligibility(o, active != nil, now); err != nil {
		return nil, err
	}

	prior, err := s.repRepo.CountByOrderID(ctx, tx, o.ID)
	if err != nil {
		return nil, errs.Mark(err, ErrDatabaseOperationFailed)
	}

	rep := replacement.NewReplacement(replacement.NewReplacementParams{
		OrderID:     o.ID,
		UserID:      o.UserID,
		Motivo:      cmd.Motivo,
		Observacoes: cmd.Observacoes,
		DataLimite:  replacement.Deadline(o),
		Tentativas:  prior + 1,
		Metadata: order.Metadata{
			"transaction_id": o.TransactionID,
		},
	}, now)

	if err := s.repRepo.Create(ctx, tx, rep); err != nil {
		return nil, errs.Mark(err, ErrDatabaseOperationFailed)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, errs.Mark(err, ErrDatabaseOperationFailed)
	}

	s.logRepo.AppendBestEffort(ctx, o.ID, order.LogLevelInfo, "Reposição solicitada", order.Metadata{
		"replacement_id": rep.ID.String(),
		"tentativas":     rep.Tentativas,
	})

	job := queue.ReplacementJob{
		JobID:         "rep-" + rep.ID.String(),
		ReplacementID: rep.ID,
		OrderID:       o.ID,
	}
	if err := s.queue.Enqueue(ctx, job, queue.PriorityScheduled); err != nil {
		// The request is durable; only its scheduling is lost. run_now or a
		// manual approval recovers it.
		slog.Error("failed to enqueue replacement job", "replacement_id", rep.ID, "error", err)
	}

	return toReplacementRM(rep, false), nil
}

func (s *replacementUseCaseImpl) Get(ctx context.Context, id uuid.UUID) (*readmodel.ReplacementRM, error) {
	rep, err := s.findReplacement(ctx, id)
	if err != nil {
		return nil, err
	}
	return toReplacementRM(rep, false), nil
}

// Approve moves a pending request to processing under the actor's name and
// dispatches the refill immediately.
func (s *replacementUseCaseImpl) Approve(ctx context.Context, id uuid.UUID, actor string) (*readmodel.ReplacementRM, error) {
	rep, err := s.findReplacement(ctx, id)
	if err != nil {
		return nil, err
	}
	if rep.Status != replacement.StatusPending {
		return nil, ErrReplacementNotPending
	}
	return s.process(ctx, rep, actor)
}

func (s *replacementUseCaseImpl) Reject(ctx context.Context, id uuid.UUID, actor string, resposta *string) (*readmodel.ReplacementRM, error) {
	rep, err := s.findReplacement(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := rep.Reject(actor, resposta, s.clock.Now()); err != nil {
		return nil, ErrReplacementNotPending
	}
	if err := s.repRepo.Update(ctx, s.db, rep); err != nil {
		return nil, errs.Mark(err, ErrDatabaseOperationFailed)
	}
	s.logRepo.AppendBestEffort(ctx, rep.OrderID, order.LogLevelInfo, "Reposição rejeitada", order.Metadata{
		"replacement_id": rep.ID.String(),
		"actor":          actor,
	})
	return toReplacementRM(rep, false), nil
}

// ProcessOldestPending dispatches the oldest pending request for an order
// immediately, ahead of the queue drain. Admin remediation for a request
// that must not wait for its scheduled slot.
func (s *replacementUseCaseImpl) ProcessOldestPending(ctx context.Context, cmd ProcessReplacementCommand, actor string) (*readmodel.ReplacementRM, error) {
	o, err := s.resolveOrder(ctx, cmd.OrderID, cmd.TransactionID)
	if err != nil {
		return nil, err
	}
	rep, err := s.repRepo.FindOldestPendingByOrderID(ctx, o.ID)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, ErrReplacementNotFound
		}
		return nil, errs.Mark(err, ErrDatabaseOperationFailed)
	}
	return s.process(ctx, rep, actor)
}

// ProcessJob handles one claimed queue job. Jobs for requests that are no
// longer pending are skipped: an admin acted first.
func (s *replacementUseCaseImpl) ProcessJob(ctx context.Context, job queue.ReplacementJob) (*readmodel.ReplacementRM, error) {
	rep, err := s.findReplacement(ctx, job.ReplacementID)
	if err != nil {
		return nil, err
	}
	if rep.Status != replacement.StatusPending {
		return nil, ErrReplacementNotPending
	}
	return s.process(ctx, rep, "scheduler")
}

func (s *replacementUseCaseImpl) Stats(ctx context.Context) (*readmodel.ReplacementStatsRM, error) {
	counts, err := s.repRepo.CountByStatus(ctx)
	if err != nil {
		return nil, errs.Mark(err, ErrDatabaseOperationFailed)
	}
	stats := &readmodel.ReplacementStatsRM{
		Pending:    counts[replacement.StatusPending],
		Processing: counts[replacement.StatusProcessing],
		Completed:  counts[replacement.StatusCompleted],
		Failed:     counts[replacement.StatusFailed],
	}
	stats.Total = stats.Pending + stats.Processing + stats.Completed + stats.Failed
	return stats, nil
}

// process runs approve-then-refill for one pending replacement. Dispatch
// failures land the request in failed with a recorded reason; they are
// outcomes, not errors.
func (s *replacementUseCaseImpl) process(ctx context.Context, rep *replacement.Replacement, actor string) (*readmodel.ReplacementRM, error) {
	now := s.clock.Now()
	if err := rep.Approve(actor, now); err != nil {
		return nil, ErrReplacementNotPending
	}
	if err := s.repRepo.Update(ctx, s.db, rep); err != nil {
		return nil, errs.Mark(err, ErrDatabaseOperationFailed)
	}

	o, err := s.orderRepo.FindByID(ctx, rep.OrderID)
	if err != nil {
		return s.failDispatch(ctx, rep, "Pedido original não encontrado")
	}
	if o.ExternalOrderID == nil || *o.ExternalOrderID == "" {
		return s.failDispatch(ctx, rep, "Pedido sem ID externo no provedor")
	}
	if o.ProviderID == nil {
		return s.failDispatch(ctx, rep, "Pedido sem provedor atribuído")
	}

	prov, err := s.providerRepo.FindByID(ctx, *o.ProviderID)
	if err != nil {
		return s.failDispatch(ctx, rep, "Provedor não encontrado")
	}
	client, err := s.registry.ClientFor(prov)
	if err != nil {
		return s.failDispatch(ctx, rep, "Provedor não suportado: "+prov.Slug)
	}

	dispatchCtx, cancel := context.WithTimeout(ctx, s.cfg.RequestTimeout)
	defer cancel()

	result, err := client.Refill(dispatchCtx, dispatch.RefillRequest{ExternalOrderID: *o.ExternalOrderID})
	if err != nil {
		return s.failDispatch(ctx, rep, fmt.Sprintf("Falha na reposição junto ao provedor: %v", err))
	}

	if err := rep.CompleteDispatch(result.RefillID, s.clock.Now()); err != nil {
		return nil, err
	}
	if err := s.repRepo.Update(ctx, s.db, rep); err != nil {
		return nil, errs.Mark(err, ErrDatabaseOperationFailed)
	}
	s.logRepo.AppendBestEffort(ctx, rep.OrderID, order.LogLevelInfo, "Reposição processada com sucesso", order.Metadata{
		"replacement_id": rep.ID.String(),
		"refill_id":      result.RefillID,
		"actor":          actor,
	})
	return toReplacementRM(rep, false), nil
}

func (s *replacementUseCaseImpl) failDispatch(ctx context.Context, rep *replacement.Replacement, reason string) (*readmodel.ReplacementRM, error) {
	if err := rep.FailDispatch(reason, s.clock.Now()); err != nil {
		return nil, err
	}
	if err := s.repRepo.Update(ctx, s.db, rep); err != nil {
		return nil, errs.Mark(err, ErrDatabaseOperationFailed)
	}
	s.logRepo.AppendBestEffort(ctx, rep.OrderID, order.LogLevelError, "Falha ao processar reposição", order.Metadata{
		"replacement_id": rep.ID.String(),
		"error":          reason,
	})
	return toReplacementRM(rep, false), nil
}

func (s *replacementUseCaseImpl) resolveOrder(ctx context.Context, orderID *uuid.UUID, transactionID string) (*order.Order, error) {
	var (
		o   *order.Order
		err error
	)
	switch {
	case orderID != nil:
		o, err = s.orderRepo.FindByID(ctx, *orderID)
	case transactionID != "":
		o, err = s.orderRepo.FindByTransactionID(ctx, transactionID)
	default:
		return nil, replacement.ErrOrderNotFound
	}
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, replacement.ErrOrderNotFound
		}
		return nil, errs.Mark(err, ErrDatabaseOperationFailed)
	}
	return o, nil
}

func (s *replacementUseCaseImpl) findReplacement(ctx context.Context, id uuid.UUID) (*replacement.Replacement, error) {
	rep, err := s.repRepo.FindByID(ctx, id)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, ErrReplacementNotFound
		}
		return nil, errs.Mark(err, ErrDatabaseOperationFailed)
	}
	return rep, nil
}

func toReplacementRM(rep *replacement.Replacement, existing bool) *readmodel.ReplacementRM {
	return &readmodel.ReplacementRM{
		ID:                rep.ID,
		OrderID:           rep.OrderID,
		Status:            rep.Status.String(),
		Motivo:            rep.Motivo,
		Resposta:          rep.Resposta,
		Tentativas:        rep.Tentativas,
		DataSolicitacao:   rep.DataSolicitacao,
		DataLimite:        rep.DataLimite,
		DataProcessamento: rep.DataProcessamento,
		Existing:          existing,
	}
}
