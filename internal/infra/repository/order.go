package repository

import (
	"context"
	"fmt"
	"strings"

	"orderflow/internal/domain/order"
	"orderflow/internal/infra"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const orderColumns = `
	id, transaction_id, service_id, external_service_id, provider_id,
	external_order_id, status, amount, quantity, target_username, target_url,
	customer_name, customer_email, user_id, metadata, provider_response,
	created_at, updated_at, completed_at`

// DedupKeys are the signals the deduplication engine matches on. The
// transaction id is always present; the finer signals widen the match when
// they exist because the upstream payment queue retries deliveries with
// varying payloads.
type DedupKeys struct {
	TransactionID string
	PostID        string
	PostCode      string
	PostURL       string
	PaymentID     string
}

type OrderRepository struct {
	db DBTX
}

func NewOrderRepository(db DBTX) *OrderRepository {
	return &OrderRepository{db: db}
}

// LockIntake serializes intake across every dedup signal of the incoming
// order, so the duplicate check and the insert behave as one critical
// section. Locking the transaction id alone is not enough: two deliveries
// with different transaction ids can still match on post identity, and each
// would slip past the other's lock. Keys are acquired in a fixed field order
// to keep concurrent lockers deadlock-free.
func (r *OrderRepository) LockIntake(ctx context.Context, tx DBTX, keys DedupKeys) error {
	ids := []string{"intake:tx:" + keys.TransactionID}
	if keys.PostID != "" {
		ids = append(ids, "intake:post:"+keys.PostID)
	}
	if keys.PostCode != "" {
		ids = append(ids, "intake:code:"+keys.PostCode)
	}
	if keys.PostURL != "" {
		ids = append(ids, "intake:url:"+keys.PostURL)
	}
	if keys.PaymentID != "" {
		ids = append(ids, "intake:payment:"+keys.PaymentID)
	}
	for _, id := range ids {
		if err := AcquireAdvisoryLock(ctx, tx, AdvisoryLockKey(id)); err != nil {
			return infra.WrapRepoErr("failed to acquire intake lock", err)
		}
	}
	return nil
}

func (r *OrderRepository) Create(ctx context.Context, tx DBTX, o *order.Order) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO orders (
			id, transaction_id, service_id, external_service_id, provider_id,
			external_order_id, status, amount, quantity, target_username,
			target_url, customer_name, customer_email, user_id, metadata,
			provider_response, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, now(), now())`,
		o.ID, o.TransactionID, o.ServiceID, o.ExternalServiceID, o.ProviderID,
		o.ExternalOrderID, o.Status.String(), o.Amount, o.Quantity, o.TargetUsername,
		o.TargetURL, o.CustomerName, o.CustomerEmail, o.UserID, o.Metadata,
		o.ProviderResponse,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return infra.WrapRepoErr("order already exists", err, infra.KindDuplicateKey)
		}
		return infra.WrapRepoErr("failed to create order", err)
	}
	return nil
}

func (r *OrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	o, err := scanOrder(row)
	if err != nil {
		if isNoRows(err) {
			return nil, infra.WrapRepoErr("order not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to find order by id", err)
	}
	return o, nil
}

func (r *OrderRepository) FindByTransactionID(ctx context.Context, transactionID string) (*order.Order, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE transaction_id = $1 ORDER BY created_at ASC LIMIT 1`,
		transactionID)
	o, err := scanOrder(row)
	if err != nil {
		if isNoRows(err) {
			return nil, infra.WrapRepoErr("order not found for transaction", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to find order by transaction id", err)
	}
	return o, nil
}

// FindDuplicate applies the dedup matching policy: post identity signals
// when present, else the external payment id, else the bare transaction id.
// Any single matching signal counts; the oldest match wins.
func (r *OrderRepository) FindDuplicate(ctx context.Context, tx DBTX, keys DedupKeys) (*order.Order, error) {
	conds := []string{"transaction_id = $1"}
	args := []any{keys.TransactionID}

	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	switch {
	case keys.PostID != "" || keys.PostCode != "":
		if keys.PostID != "" {
			conds = append(conds, "metadata->>'post_id' = "+arg(keys.PostID))
		}
		if keys.PostCode != "" {
			conds = append(conds, "metadata->>'post_code' = "+arg(keys.PostCode))
		}
		if keys.PostURL != "" {
			conds = append(conds, "target_url = "+arg(keys.PostURL))
		}
	case keys.PaymentID != "":
		conds = append(conds, "metadata->>'payment_id' = "+arg(keys.PaymentID))
	}

	query := `SELECT ` + orderColumns + ` FROM orders WHERE ` +
		strings.Join(conds, " OR ") + ` ORDER BY created_at ASC LIMIT 1`

	row := tx.QueryRow(ctx, query, args...)
	o, err := scanOrder(row)
	if err != nil {
		if isNoRows(err) {
			return nil, infra.WrapRepoErr("no duplicate order", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to run dedup query", err)
	}
	return o, nil
}

// FindPending claims up to limit pending orders in created_at order; FIFO
// fairness is a queue-admission guarantee, not a completion guarantee.
func (r *OrderRepository) FindPending(ctx context.Context, limit int) ([]*order.Order, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE status = $1 ORDER BY created_at ASC LIMIT $2`,
		order.StatusPending.String(), limit)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to find pending orders", err)
	}
	return scanOrders(rows)
}

func (r *OrderRepository) FindProcessing(ctx context.Context, limit int) ([]*order.Order, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE status = $1 ORDER BY updated_at ASC LIMIT $2`,
		order.StatusProcessing.String(), limit)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to find processing orders", err)
	}
	return scanOrders(rows)
}

// Update persists the mutable order fields with last-write-wins semantics;
// jobs re-check freshness before acting instead of relying on versions.
func (r *OrderRepository) Update(ctx context.Context, tx DBTX, o *order.Order) error {
	tag, err := tx.Exec(ctx, `
		UPDATE orders SET
			status = $2,
			provider_id = $3,
			external_order_id = $4,
			provider_response = $5,
			metadata = $6,
			completed_at = $7,
			updated_at = now()
		WHERE id = $1`,
		o.ID, o.Status.String(), o.ProviderID, o.ExternalOrderID,
		o.ProviderResponse, o.Metadata, o.CompletedAt,
	)
	if err != nil {
		return infra.WrapRepoErr("failed to update order", err)
	}
	if tag.RowsAffected() == 0 {
		return infra.WrapRepoErr("order not found for update", nil, infra.KindNotFound)
	}
	return nil
}

// CountByStatus backs the queue status admin view.
func (r *OrderRepository) CountByStatus(ctx context.Context) (map[order.Status]int64, error) {
	rows, err := r.db.Query(ctx, `SELECT status, count(*) FROM orders GROUP BY status`)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to count orders by status", err)
	}
	defer rows.Close()

	counts := make(map[order.Status]int64)
	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, infra.WrapRepoErr("failed to scan status count row", err)
		}
		if s, ok := order.ParseStatus(status); ok {
			counts[s] = count
		}
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to iterate status count rows", err)
	}
	return counts, nil
}

func scanOrder(row pgx.Row) (*order.Order, error) {
	var o order.Order
	err := row.Scan(
		&o.ID, &o.TransactionID, &o.ServiceID, &o.ExternalServiceID, &o.ProviderID,
		&o.ExternalOrderID, &o.Status, &o.Amount, &o.Quantity, &o.TargetUsername,
		&o.TargetURL, &o.CustomerName, &o.CustomerEmail, &o.UserID, &o.Metadata,
		&o.ProviderResponse, &o.CreatedAt, &o.UpdatedAt, &o.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func scanOrders(rows pgx.Rows) ([]*order.Order, error) {
	defer rows.Close()

	var result []*order.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, infra.WrapRepoErr("failed to scan order row", err)
		}
		result = append(result, o)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to iterate order rows", err)
	}
	return result, nil
}
