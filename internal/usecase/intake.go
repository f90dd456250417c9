package usecase

import (
	"context"
	"errors"
	"log/slog"

	"orderflow/internal/domain/order"
	"orderflow/internal/domain/user"
	"orderflow/internal/infra"
	"orderflow/internal/infra/repository"
	"orderflow/internal/pkg/clock"
	"orderflow/internal/pkg/errs"
	"orderflow/internal/usecase/readmodel"

	"github.com/google/uuid"
)

var (
	ErrOrderNotFound        = errors.New("order not found")
	ErrOrderInvalid         = errors.New("invalid order payload")
	ErrMaintenanceMode      = errors.New("intake is paused for maintenance")
	ErrTransactionIDMissing = errors.New("transaction_id is required")

	// Error markers for categorization
	ErrDatabaseOperationFailed = errors.New("database operation failed")
)

type CreateOrderCommand struct {
	TransactionID     string
	ServiceID         string
	ExternalServiceID string
	ProviderID        *uuid.UUID
	Amount            float64
	Quantity          int32
	TargetUsername    string
	TargetURL         string
	CustomerName      *string
	CustomerEmail     *string
	CustomerPhone     *string
	Metadata          order.Metadata
}

type OrderIntakeUseCase interface {
	CreateOrder(ctx context.Context, cmd CreateOrderCommand) (*readmodel.IntakeResultRM, error)
	SyncOrder(ctx context.Context, cmd CreateOrderCommand) (*readmodel.SyncResultRM, error)
	GetOrder(ctx context.Context, id uuid.UUID) (*order.Order, []*order.Log, error)
}

type orderIntakeUseCaseImpl struct {
	orderRepo OrderRepository
	logRepo   OrderLogRepository
	userRepo  UserRepository
	settings  SettingsUseCase
	db        repository.DB
	clock     clock.Clock
}

func NewOrderIntakeUseCase(
	orderRepo OrderRepository,
	logRepo OrderLogRepository,
	userRepo UserRepository,
	settings SettingsUseCase,
	db repository.DB,
	clock clock.Clock,
) OrderIntakeUseCase {
	return &orderIntakeUseCaseImpl{
		orderRepo: orderRepo,
		logRepo:   logRepo,
		userRepo:  userRepo,
		settings:  settings,
		db:        db,
		clock:     clock,
	}
}

func (s *orderIntakeUseCaseImpl) CreateOrder(ctx context.Context, cmd CreateOrderCommand) (*readmodel.IntakeResultRM, error) {
	if cmd.TransactionID == "" {
		return nil, ErrTransactionIDMissing
	}
	if err := s.checkMaintenance(ctx); err != nil {
		return nil, err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, errs.Mark(err, ErrDatabaseOperationFailed)
	}
	defer func() {
		if rollbackErr := tx.Rollback(ctx); rollbackErr != nil && !errors.Is(rollbackErr, context.Canceled) {
			slog.Debug("intake transaction rollback", "error", rollbackErr)
		}
	}()

	// The advisory locks make dedup-check plus insert one critical section
	// for concurrent deliveries matching any of the same dedup signals.
	keys := dedupKeysFrom(cmd)
	if err := s.orderRepo.LockIntake(ctx, tx, keys); err != nil {
		return nil, errs.Mark(err, ErrDatabaseOperationFailed)
	}

	existing, err := s.orderRepo.FindDuplicate(ctx, tx, keys)
	if err != nil && !infra.IsKind(err, infra.KindNotFound) {
		return nil, errs.Mark(err, ErrDatabaseOperationFailed)
	}
	if existing != nil {
		// Pure read path: a dedup hit writes nothing, not even a log entry.
		return &readmodel.IntakeResultRM{
			OrderID:   existing.ID,
			Duplicate: true,
			Message:   "already processed",
		}, nil
	}

	userID := s.ensureUser(ctx, cmd)

	entity, err := order.NewOrder(order.NewOrderParams{
		TransactionID:     cmd.TransactionID,
		ServiceID:         cmd.ServiceID,
		ExternalServiceID: cmd.ExternalServiceID,
		ProviderID:        cmd.ProviderID,
		Amount:            cmd.Amount,
		Quantity:          cmd.Quantity,
		TargetUsername:    cmd.TargetUsername,
		TargetURL:         cmd.TargetURL,
		CustomerName:      cmd.CustomerName,
		CustomerEmail:     cmd.CustomerEmail,
		UserID:            userID,
		Metadata:          cmd.Metadata,
	})
	if err != nil {
		return nil, errs.Mark(err, ErrOrderInvalid)
	}

	if err := s.orderRepo.Create(ctx, tx, entity); err != nil {
		return nil, errs.Mark(err, ErrDatabaseOperationFailed)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, errs.Mark(err, ErrDatabaseOperationFailed)
	}

	s.logRepo.AppendBestEffort(ctx, entity.ID, order.LogLevelInfo, "Pedido recebido", order.Metadata{
		"transaction_id": entity.TransactionID,
		"quantity":       entity.Quantity,
		"source":         entity.Metadata.GetString("source"),
		"new_status":     entity.Status.String(),
	})

	return &readmodel.IntakeResultRM{
		OrderID: entity.ID,
		Message: "order created",
	}, nil
}

// SyncOrder upserts by transaction id for the privileged reconciliation
// feed: updates the mutable fields when the order exists, creates a pending
// order otherwise.
func (s *orderIntakeUseCaseImpl) SyncOrder(ctx context.Context, cmd CreateOrderCommand) (*readmodel.SyncResultRM, error) {
	if cmd.TransactionID == "" {
		return nil, ErrTransactionIDMissing
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, errs.Mark(err, ErrDatabaseOperationFailed)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := s.orderRepo.LockIntake(ctx, tx, repository.DedupKeys{TransactionID: cmd.TransactionID}); err != nil {
		return nil, errs.Mark(err, ErrDatabaseOperationFailed)
	}

	existing, err := s.orderRepo.FindByTransactionID(ctx, cmd.TransactionID)
	if err != nil && !infra.IsKind(err, infra.KindNotFound) {
		return nil, errs.Mark(err, ErrDatabaseOperationFailed)
	}

	if existing != nil {
		for k, v := range cmd.Metadata {
			existing.Metadata = existing.Metadata.Set(k, v)
		}
		if cmd.ProviderID != nil {
			existing.ProviderID = cmd.ProviderID
		}
		if err := s.orderRepo.Update(ctx, tx, existing); err != nil {
			return nil, errs.Mark(err, ErrDatabaseOperationFailed)
		}
		if err := tx.Commit(ctx); err != nil {
			return nil, errs.Mark(err, ErrDatabaseOperationFailed)
		}
		s.logRepo.AppendBestEffort(ctx, existing.ID, order.LogLevelInfo, "Pedido sincronizado", nil)
		return &readmodel.SyncResultRM{OrderID: existing.ID}, nil
	}

	entity, err := order.NewOrder(order.NewOrderParams{
		TransactionID:     cmd.TransactionID,
		ServiceID:         cmd.ServiceID,
		ExternalServiceID: cmd.ExternalServiceID,
		ProviderID:        cmd.ProviderID,
		Amount:            cmd.Amount,
		Quantity:          cmd.Quantity,
		TargetUsername:    cmd.TargetUsername,
		TargetURL:         cmd.TargetURL,
		CustomerName:      cmd.CustomerName,
		CustomerEmail:     cmd.CustomerEmail,
		UserID:            s.ensureUser(ctx, cmd),
		Metadata:          cmd.Metadata,
	})
	if err != nil {
		return nil, errs.Mark(err, ErrOrderInvalid)
	}
	if err := s.orderRepo.Create(ctx, tx, entity); err != nil {
		return nil, errs.Mark(err, ErrDatabaseOperationFailed)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, errs.Mark(err, ErrDatabaseOperationFailed)
	}
	s.logRepo.AppendBestEffort(ctx, entity.ID, order.LogLevelInfo, "Pedido criado via sincronização", nil)

	return &readmodel.SyncResultRM{OrderID: entity.ID, Created: true}, nil
}

func (s *orderIntakeUseCaseImpl) GetOrder(ctx context.Context, id uuid.UUID) (*order.Order, []*order.Log, error) {
	o, err := s.orderRepo.FindByID(ctx, id)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, nil, ErrOrderNotFound
		}
		return nil, nil, errs.Wrap(err, "failed to load order")
	}

	logs, err := s.logRepo.FindByOrderID(ctx, id, 50)
	if err != nil {
		slog.Warn("failed to load order logs", "order_id", id, "error", err)
		logs = nil
	}
	return o, logs, nil
}

func (s *orderIntakeUseCaseImpl) checkMaintenance(ctx context.Context) error {
	current, err := s.settings.Get(ctx)
	if err != nil {
		// Settings trouble must not take intake down.
		slog.Warn("failed to consult settings, assuming no maintenance", "error", err)
		return nil
	}
	if current.MaintenanceMode {
		return ErrMaintenanceMode
	}
	return nil
}

// ensureUser resolves or lazily creates the customer identity. Failure is
// logged and swallowed: an order must never be lost to a user-table hiccup.
func (s *orderIntakeUseCaseImpl) ensureUser(ctx context.Context, cmd CreateOrderCommand) *uuid.UUID {
	if cmd.CustomerEmail == nil || *cmd.CustomerEmail == "" {
		return nil
	}

	existing, err := s.userRepo.FindByEmail(ctx, *cmd.CustomerEmail)
	if err == nil {
		return &existing.ID
	}
	if !infra.IsKind(err, infra.KindNotFound) {
		slog.Warn("user lookup failed during intake", "email", *cmd.CustomerEmail, "error", err)
		return nil
	}

	name := ""
	if cmd.CustomerName != nil {
		name = *cmd.CustomerName
	}
	created := user.NewCustomer(*cmd.CustomerEmail, name, cmd.CustomerPhone)
	if err := s.userRepo.Create(ctx, created); err != nil {
		if infra.IsKind(err, infra.KindDuplicateKey) {
			// Lost a race with a concurrent intake for the same customer.
			if winner, findErr := s.userRepo.FindByEmail(ctx, *cmd.CustomerEmail); findErr == nil {
				return &winner.ID
			}
		}
		slog.Warn("lazy user creation failed", "email", *cmd.CustomerEmail, "error", err)
		return nil
	}
	return &created.ID
}

func dedupKeysFrom(cmd CreateOrderCommand) repository.DedupKeys {
	return repository.DedupKeys{
		TransactionID: cmd.TransactionID,
		PostID:        cmd.Metadata.GetString("post_id"),
		PostCode:      cmd.Metadata.GetString("post_code"),
		PostURL:       cmd.Metadata.GetString("post_url"),
		PaymentID:     cmd.Metadata.GetString("payment_id"),
	}
}
