package repository

import (
	"context"

	"orderflow/internal/domain/replacement"
	"orderflow/internal/infra"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const replacementColumns = `
	id, order_id, user_id, status, motivo, observacoes, resposta,
	data_solicitacao, data_limite, data_processamento, tentativas,
	processado_por, metadata`

type ReplacementRepository struct {
	db DBTX
}

func NewReplacementRepository(db DBTX) *ReplacementRepository {
	return &ReplacementRepository{db: db}
}

// LockOrder serializes replacement creation per order so the single-active
// check and the insert behave as one critical section.
func (r *ReplacementRepository) LockOrder(ctx context.Context, tx DBTX, orderID uuid.UUID) error {
	if err := AcquireAdvisoryLock(ctx, tx, AdvisoryLockKey("replacement:"+orderID.String())); err != nil {
		return infra.WrapRepoErr("failed to acquire replacement lock", err)
	}
	return nil
}

func (r *ReplacementRepository) Create(ctx context.Context, tx DBTX, rep *replacement.Replacement) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO reposicoes (
			id, order_id, user_id, status, motivo, observacoes, resposta,
			data_solicitacao, data_limite, data_processamento, tentativas,
			processado_por, metadata
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		rep.ID, rep.OrderID, rep.UserID, rep.Status.String(), rep.Motivo,
		rep.Observacoes, rep.Resposta, rep.DataSolicitacao, rep.DataLimite,
		rep.DataProcessamento, rep.Tentativas, rep.ProcessadoPor, rep.Metadata,
	)
	if err != nil {
		return infra.WrapRepoErr("failed to create replacement request", err)
	}
	return nil
}

func (r *ReplacementRepository) FindByID(ctx context.Context, id uuid.UUID) (*replacement.Replacement, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+replacementColumns+` FROM reposicoes WHERE id = $1`, id)
	rep, err := scanReplacement(row)
	if err != nil {
		if isNoRows(err) {
			return nil, infra.WrapRepoErr("replacement not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to find replacement by id", err)
	}
	return rep, nil
}

// FindActiveByOrderID returns the pending or processing replacement for an
// order, if any. At most one can exist; the creation path enforces that
// under an advisory lock.
func (r *ReplacementRepository) FindActiveByOrderID(ctx context.Context, tx DBTX, orderID uuid.UUID) (*replacement.Replacement, error) {
	row := tx.QueryRow(ctx,
		`SELECT `+replacementColumns+` FROM reposicoes
		 WHERE order_id = $1 AND status IN ('pending', 'processing')
		 ORDER BY data_solicitacao ASC LIMIT 1`, orderID)
	rep, err := scanReplacement(row)
	if err != nil {
		if isNoRows(err) {
			return nil, infra.WrapRepoErr("no active replacement", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to find active replacement", err)
	}
	return rep, nil
}

// FindOldestPendingByOrderID serves the process-now path when only the order
// id is known.
func (r *ReplacementRepository) FindOldestPendingByOrderID(ctx context.Context, orderID uuid.UUID) (*replacement.Replacement, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+replacementColumns+` FROM reposicoes
		 WHERE order_id = $1 AND status = 'pending'
		 ORDER BY data_solicitacao ASC LIMIT 1`, orderID)
	rep, err := scanReplacement(row)
	if err != nil {
		if isNoRows(err) {
			return nil, infra.WrapRepoErr("no pending replacement for order", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to find pending replacement", err)
	}
	return rep, nil
}

// CountByOrderID counts all prior replacement rows for an order, feeding the
// tentativas attempt ordinal.
func (r *ReplacementRepository) CountByOrderID(ctx context.Context, tx DBTX, orderID uuid.UUID) (int32, error) {
	var count int32
	err := tx.QueryRow(ctx,
		`SELECT count(*) FROM reposicoes WHERE order_id = $1`, orderID).Scan(&count)
	if err != nil {
		return 0, infra.WrapRepoErr("failed to count replacements", err)
	}
	return count, nil
}

func (r *ReplacementRepository) Update(ctx context.Context, tx DBTX, rep *replacement.Replacement) error {
	tag, err := tx.Exec(ctx, `
		UPDATE reposicoes SET
			status = $2,
			resposta = $3,
			data_processamento = $4,
			processado_por = $5,
			metadata = $6
		WHERE id = $1`,
		rep.ID, rep.Status.String(), rep.Resposta, rep.DataProcessamento,
		rep.ProcessadoPor, rep.Metadata,
	)
	if err != nil {
		return infra.WrapRepoErr("failed to update replacement", err)
	}
	if tag.RowsAffected() == 0 {
		return infra.WrapRepoErr("replacement not found for update", nil, infra.KindNotFound)
	}
	return nil
}

// CountByStatus backs the replacement stats read model.
func (r *ReplacementRepository) CountByStatus(ctx context.Context) (map[replacement.Status]int64, error) {
	rows, err := r.db.Query(ctx,
		`SELECT status, count(*) FROM reposicoes GROUP BY status`)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to count replacements by status", err)
	}
	defer rows.Close()

	counts := make(map[replacement.Status]int64)
	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, infra.WrapRepoErr("failed to scan status count row", err)
		}
		if s, ok := replacement.ParseStatus(status); ok {
			counts[s] = count
		}
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to iterate status count rows", err)
	}
	return counts, nil
}

func scanReplacement(row pgx.Row) (*replacement.Replacement, error) {
	var rep replacement.Replacement
	err := row.Scan(
		&rep.ID, &rep.OrderID, &rep.UserID, &rep.Status, &rep.Motivo,
		&rep.Observacoes, &rep.Resposta, &rep.DataSolicitacao, &rep.DataLimite,
		&rep.DataProcessamento, &rep.Tentativas, &rep.ProcessadoPor, &rep.Metadata,
	)
	if err != nil {
		return nil, err
	}
	return &rep, nil
}
