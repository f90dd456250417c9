package usecase

import (
	"context"
	"errors"
	"log/slog"

	"orderflow/internal/dispatch"
	"orderflow/internal/domain/order"
	"orderflow/internal/domain/provider"
	"orderflow/internal/infra"
	"orderflow/internal/infra/repository"
	"orderflow/internal/pkg/clock"
	"orderflow/internal/pkg/config"
	"orderflow/internal/pkg/errs"
	"orderflow/internal/usecase/readmodel"

	"github.com/google/uuid"
)

var (
	// ErrOrderNotPending and ErrOrderNotProcessing signal that another actor
	// already moved the order on; sweeps treat them as skips, not failures.
	ErrOrderNotPending    = errors.New("order is no longer pending")
	ErrOrderNotProcessing = errors.New("order is not awaiting status check")
	ErrNoActiveProvider   = errors.New("no active provider available")
)

type OrderProcessingUseCase interface {
	ProcessOrder(ctx context.Context, orderID uuid.UUID) (*readmodel.ProcessResultRM, error)
	CheckOrderStatus(ctx context.Context, orderID uuid.UUID) (*readmodel.ProcessResultRM, error)
	ClaimPending(ctx context.Context, limit int) ([]uuid.UUID, error)
	ClaimProcessing(ctx context.Context, limit int) ([]uuid.UUID, error)
	RecordBatch(ctx context.Context, summary readmodel.BatchSummaryRM)
}

type orderProcessingUseCaseImpl struct {
	orderRepo    OrderRepository
	logRepo      OrderLogRepository
	providerRepo ProviderRepository
	batchRepo    BatchLogRepository
	registry     DispatchRegistry
	settings     SettingsUseCase
	db           repository.DBTX
	clock        clock.Clock
	cfg          config.DispatchConfig
}

func NewOrderProcessingUseCase(
	orderRepo OrderRepository,
	logRepo OrderLogRepository,
	providerRepo ProviderRepository,
	batchRepo BatchLogRepository,
	registry DispatchRegistry,
	settings SettingsUseCase,
	db repository.DBTX,
	clock clock.Clock,
	cfg config.DispatchConfig,
) OrderProcessingUseCase {
	return &orderProcessingUseCaseImpl{
		orderRepo:    orderRepo,
		logRepo:      logRepo,
		providerRepo: providerRepo,
		batchRepo:    batchRepo,
		registry:     registry,
		settings:     settings,
		db:           db,
		clock:        clock,
		cfg:          cfg,
	}
}

// ProcessOrder submits one pending order to its provider. Submission
// failures are terminal for the order (unless auto-retry is enabled) but are
// reported as outcomes, not errors.
func (s *orderProcessingUseCaseImpl) ProcessOrder(ctx context.Context, orderID uuid.UUID) (*readmodel.ProcessResultRM, error) {
	o, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, errs.Mark(err, ErrDatabaseOperationFailed)
	}
	// Freshness re-check: claims are stale by the time a worker runs.
	if o.Status != order.StatusPending {
		return nil, ErrOrderNotPending
	}

	prov, err := s.resolveProvider(ctx, o)
	if err != nil {
		// No provider is an operational gap: leave the order pending for the
		// next sweep instead of failing it terminally.
		s.logRepo.AppendBestEffort(ctx, o.ID, order.LogLevelWarn, "Nenhum provedor disponível", nil)
		return nil, err
	}

	client, err := s.registry.ClientFor(prov)
	if err != nil {
		// Unsupported provider fails closed and terminally: retrying cannot
		// change the outcome.
		return s.failOrder(ctx, o, "Provedor não suportado: "+prov.Slug)
	}

	dispatchCtx, cancel := context.WithTimeout(ctx, s.cfg.RequestTimeout)
	defer cancel()

	result, err := client.Submit(dispatchCtx, dispatch.SubmitRequest{
		Service:  o.ServiceIDForProvider(),
		Link:     o.TargetURL,
		Quantity: int(o.Quantity),
	})
	if err != nil {
		return s.handleSubmitFailure(ctx, o, err)
	}

	prev := o.Status
	if err := o.MarkProcessing(result.ExternalOrderID); err != nil {
		return nil, err
	}
	o.ProviderResponse = result.Raw
	if err := s.orderRepo.Update(ctx, s.db, o); err != nil {
		return nil, errs.Mark(err, ErrDatabaseOperationFailed)
	}
	s.logRepo.AppendBestEffort(ctx, o.ID, order.LogLevelInfo, "Pedido enviado ao provedor", order.Metadata{
		"provider_id":       prov.ID.String(),
		"external_order_id": result.ExternalOrderID,
		"previous_status":   prev.String(),
		"new_status":        o.Status.String(),
	})

	return &readmodel.ProcessResultRM{
		OrderID:         o.ID,
		Status:          o.Status,
		ExternalOrderID: o.ExternalOrderID,
	}, nil
}

// CheckOrderStatus polls the provider for one processing order and applies
// the reported terminal state, if any. Poll errors are transient: the order
// stays processing and the next sweep retries.
func (s *orderProcessingUseCaseImpl) CheckOrderStatus(ctx context.Context, orderID uuid.UUID) (*readmodel.ProcessResultRM, error) {
	o, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, errs.Mark(err, ErrDatabaseOperationFailed)
	}
	if o.Status != order.StatusProcessing {
		return nil, ErrOrderNotProcessing
	}
	if o.ProviderID == nil || o.ExternalOrderID == nil || *o.ExternalOrderID == "" {
		s.logRepo.AppendBestEffort(ctx, o.ID, order.LogLevelWarn, "Pedido em processamento sem ID externo", nil)
		return &readmodel.ProcessResultRM{OrderID: o.ID, Status: o.Status, Message: "missing external order id"}, nil
	}

	prov, err := s.providerRepo.FindByID(ctx, *o.ProviderID)
	if err != nil {
		return nil, errs.Mark(err, ErrDatabaseOperationFailed)
	}
	client, err := s.registry.ClientFor(prov)
	if err != nil {
		return nil, err
	}

	dispatchCtx, cancel := context.WithTimeout(ctx, s.cfg.RequestTimeout)
	defer cancel()

	status, err := client.Status(dispatchCtx, dispatch.StatusRequest{ExternalOrderID: *o.ExternalOrderID})
	if err != nil {
		slog.Warn("provider status check failed", "order_id", o.ID, "error", err)
		return &readmodel.ProcessResultRM{OrderID: o.ID, Status: o.Status, Message: "status check failed"}, nil
	}

	prev := o.Status
	switch status.State {
	case dispatch.StateCompleted:
		if err := o.MarkCompleted(s.clock.Now()); err != nil {
			return nil, err
		}
		o.ProviderResponse = status.Raw
		if err := s.orderRepo.Update(ctx, s.db, o); err != nil {
			return nil, errs.Mark(err, ErrDatabaseOperationFailed)
		}
		s.logRepo.AppendBestEffort(ctx, o.ID, order.LogLevelInfo, "Pedido concluído pelo provedor", order.Metadata{
			"remains":         status.Remains,
			"previous_status": prev.String(),
			"new_status":      o.Status.String(),
		})
	case dispatch.StateFailed:
		if err := o.MarkFailed(); err != nil {
			return nil, err
		}
		o.ProviderResponse = status.Raw
		if err := s.orderRepo.Update(ctx, s.db, o); err != nil {
			return nil, errs.Mark(err, ErrDatabaseOperationFailed)
		}
		s.logRepo.AppendBestEffort(ctx, o.ID, order.LogLevelError, "Pedido falhou no provedor", order.Metadata{
			"provider_status": status.Raw,
			"previous_status": prev.String(),
			"new_status":      o.Status.String(),
		})
	default:
		// Still running on the provider side.
	}

	return &readmodel.ProcessResultRM{
		OrderID:         o.ID,
		Status:          o.Status,
		ExternalOrderID: o.ExternalOrderID,
	}, nil
}

func (s *orderProcessingUseCaseImpl) ClaimPending(ctx context.Context, limit int) ([]uuid.UUID, error) {
	orders, err := s.orderRepo.FindPending(ctx, limit)
	if err != nil {
		return nil, errs.Mark(err, ErrDatabaseOperationFailed)
	}
	return orderIDs(orders), nil
}

func (s *orderProcessingUseCaseImpl) ClaimProcessing(ctx context.Context, limit int) ([]uuid.UUID, error) {
	orders, err := s.orderRepo.FindProcessing(ctx, limit)
	if err != nil {
		return nil, errs.Mark(err, ErrDatabaseOperationFailed)
	}
	return orderIDs(orders), nil
}

// RecordBatch persists one sweep summary; best effort.
func (s *orderProcessingUseCaseImpl) RecordBatch(ctx context.Context, summary readmodel.BatchSummaryRM) {
	entry := &repository.BatchLog{
		ID:         uuid.New(),
		Kind:       summary.Kind,
		Total:      summary.Total,
		Succeeded:  summary.Succeeded,
		Failed:     summary.Failed,
		Details:    summary.Details,
		StartedAt:  summary.StartedAt,
		FinishedAt: summary.FinishedAt,
	}
	if err := s.batchRepo.Append(ctx, entry); err != nil {
		slog.Warn("failed to record batch summary", "kind", summary.Kind, "error", err)
	}
}

// resolveProvider returns the order's assigned provider or auto-assigns one:
// an active provider matching the order's platform/service type metadata,
// else the first active provider.
func (s *orderProcessingUseCaseImpl) resolveProvider(ctx context.Context, o *order.Order) (*provider.Provider, error) {
	if o.ProviderID != nil {
		prov, err := s.providerRepo.FindByID(ctx, *o.ProviderID)
		if err == nil {
			return s.withBaseURLFallback(ctx, prov), nil
		}
		if !infra.IsKind(err, infra.KindNotFound) {
			return nil, errs.Mark(err, ErrDatabaseOperationFailed)
		}
		slog.Warn("assigned provider missing, reassigning", "order_id", o.ID, "provider_id", *o.ProviderID)
	}

	active, err := s.providerRepo.FindActive(ctx)
	if err != nil {
		return nil, errs.Mark(err, ErrDatabaseOperationFailed)
	}
	if len(active) == 0 {
		return nil, ErrNoActiveProvider
	}

	chosen := active[0]
	platform := o.Metadata.GetString("platform")
	serviceType := o.Metadata.GetString("service_type")
	for _, p := range active {
		if p.MatchesService(platform, serviceType) {
			chosen = p
			break
		}
	}

	o.ProviderID = &chosen.ID
	s.logRepo.AppendBestEffort(ctx, o.ID, order.LogLevelWarn, "Provedor atribuído automaticamente", order.Metadata{
		"provider_id":   chosen.ID.String(),
		"provider_name": chosen.Name,
	})
	return s.withBaseURLFallback(ctx, chosen), nil
}

// withBaseURLFallback fills a blank provider api_url from settings.
func (s *orderProcessingUseCaseImpl) withBaseURLFallback(ctx context.Context, prov *provider.Provider) *provider.Provider {
	if prov.APIURL != "" {
		return prov
	}
	current, err := s.settings.Get(ctx)
	if err == nil && current.ProviderAPIBaseURL != "" {
		clone := *prov
		clone.APIURL = current.ProviderAPIBaseURL
		return &clone
	}
	return prov
}

// handleSubmitFailure applies the failure policy: with auto-retry enabled
// the order stays pending until the attempt budget is spent, otherwise the
// failure is terminal.
func (s *orderProcessingUseCaseImpl) handleSubmitFailure(ctx context.Context, o *order.Order, submitErr error) (*readmodel.ProcessResultRM, error) {
	current, settingsErr := s.settings.Get(ctx)
	if settingsErr == nil && current.AutoRetryEnabled {
		attempts := 0
		if v, ok := o.Metadata["dispatch_attempts"].(float64); ok {
			attempts = int(v)
		}
		attempts++
		if attempts < current.MaxRetryAttempts {
			o.Metadata = o.Metadata.Set("dispatch_attempts", attempts)
			if err := s.orderRepo.Update(ctx, s.db, o); err != nil {
				return nil, errs.Mark(err, ErrDatabaseOperationFailed)
			}
			s.logRepo.AppendBestEffort(ctx, o.ID, order.LogLevelWarn, "Falha no envio, nova tentativa agendada", order.Metadata{
				"attempt": attempts,
				"error":   submitErr.Error(),
			})
			return &readmodel.ProcessResultRM{OrderID: o.ID, Status: o.Status, Message: "submission failed, will retry"}, nil
		}
	}
	return s.failOrder(ctx, o, submitErr.Error())
}

func (s *orderProcessingUseCaseImpl) failOrder(ctx context.Context, o *order.Order, reason string) (*readmodel.ProcessResultRM, error) {
	prev := o.Status
	if err := o.MarkFailed(); err != nil {
		return nil, err
	}
	o.ProviderResponse = order.Metadata{"error": reason}
	if err := s.orderRepo.Update(ctx, s.db, o); err != nil {
		return nil, errs.Mark(err, ErrDatabaseOperationFailed)
	}
	s.logRepo.AppendBestEffort(ctx, o.ID, order.LogLevelError, "Falha no envio ao provedor", order.Metadata{
		"error":           reason,
		"previous_status": prev.String(),
		"new_status":      o.Status.String(),
	})
	return &readmodel.ProcessResultRM{
		OrderID: o.ID,
		Status:  o.Status,
		Message: reason,
	}, nil
}

func orderIDs(orders []*order.Order) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.ID)
	}
	return ids
}
