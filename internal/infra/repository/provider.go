package repository

import (
	"context"

	"orderflow/internal/domain/provider"
	"orderflow/internal/infra"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const providerColumns = `
	id, name, slug, api_key, api_url, active, metadata, created_at, updated_at`

type ProviderRepository struct {
	db DBTX
}

func NewProviderRepository(db DBTX) *ProviderRepository {
	return &ProviderRepository{db: db}
}

func (r *ProviderRepository) FindByID(ctx context.Context, id uuid.UUID) (*provider.Provider, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+providerColumns+` FROM providers WHERE id = $1`, id)
	p, err := scanProvider(row)
	if err != nil {
		if isNoRows(err) {
			return nil, infra.WrapRepoErr("provider not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to find provider by id", err)
	}
	return p, nil
}

func (r *ProviderRepository) FindActive(ctx context.Context) ([]*provider.Provider, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+providerColumns+` FROM providers WHERE active ORDER BY (metadata->>'priority')::int NULLS LAST, created_at ASC`)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to find active providers", err)
	}
	defer rows.Close()

	var result []*provider.Provider
	for rows.Next() {
		p, err := scanProvider(rows)
		if err != nil {
			return nil, infra.WrapRepoErr("failed to scan provider row", err)
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to iterate provider rows", err)
	}
	return result, nil
}

// Upsert covers admin imports and the lazy path where an order references a
// provider id this system has not seen yet.
func (r *ProviderRepository) Upsert(ctx context.Context, p *provider.Provider) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO providers (id, name, slug, api_key, api_url, active, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			slug = EXCLUDED.slug,
			api_key = EXCLUDED.api_key,
			api_url = EXCLUDED.api_url,
			active = EXCLUDED.active,
			metadata = EXCLUDED.metadata,
			updated_at = now()`,
		p.ID, p.Name, p.Slug, p.APIKey, p.APIURL, p.Active, p.Metadata,
	)
	if err != nil {
		return infra.WrapRepoErr("failed to upsert provider", err)
	}
	return nil
}

func scanProvider(row pgx.Row) (*provider.Provider, error) {
	var p provider.Provider
	err := row.Scan(
		&p.ID, &p.Name, &p.Slug, &p.APIKey, &p.APIURL, &p.Active, &p.Metadata,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
