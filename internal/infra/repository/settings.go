package repository

import (
	"context"

	"orderflow/internal/domain/order"
	"orderflow/internal/infra"
)

// SettingsRepository persists runtime-tunable configuration as a single jsonb
// document. The row is seeded by migration; Get never has to handle an empty
// table in a healthy deployment but reports KindNotFound if it does.
type SettingsRepository struct {
	db DBTX
}

func NewSettingsRepository(db DBTX) *SettingsRepository {
	return &SettingsRepository{db: db}
}

func (r *SettingsRepository) Get(ctx context.Context) (order.Metadata, error) {
	var doc order.Metadata
	err := r.db.QueryRow(ctx,
		`SELECT data FROM system_settings WHERE id = 1`).Scan(&doc)
	if err != nil {
		if isNoRows(err) {
			return nil, infra.WrapRepoErr("settings row missing", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to load settings", err)
	}
	return doc, nil
}

func (r *SettingsRepository) Update(ctx context.Context, doc order.Metadata) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE system_settings SET data = $1, updated_at = now() WHERE id = 1`, doc)
	if err != nil {
		return infra.WrapRepoErr("failed to update settings", err)
	}
	if tag.RowsAffected() == 0 {
		return infra.WrapRepoErr("settings row missing", nil, infra.KindNotFound)
	}
	return nil
}
