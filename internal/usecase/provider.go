package usecase

import (
	"context"
	"errors"

	"orderflow/internal/domain/order"
	"orderflow/internal/domain/provider"
	"orderflow/internal/pkg/errs"

	"github.com/google/uuid"
)

var (
	ErrProviderInvalid         = errors.New("invalid provider payload")
	ErrProviderSlugUnsupported = errors.New("no dispatch client registered for slug")
)

type UpsertProviderCommand struct {
	ID       *uuid.UUID
	Name     string
	Slug     string
	APIKey   string
	APIURL   string
	Active   bool
	Metadata order.Metadata
}

// ProviderAdminUseCase manages the provider catalog. Registering a slug with
// no dispatch client is rejected up front; orders routed there could never
// be dispatched.
type ProviderAdminUseCase interface {
	Upsert(ctx context.Context, cmd UpsertProviderCommand) (*provider.Provider, error)
	List(ctx context.Context) ([]*provider.Provider, error)
}

type providerAdminUseCaseImpl struct {
	providerRepo ProviderRepository
	registry     DispatchRegistry
}

func NewProviderAdminUseCase(providerRepo ProviderRepository, registry DispatchRegistry) ProviderAdminUseCase {
	return &providerAdminUseCaseImpl{
		providerRepo: providerRepo,
		registry:     registry,
	}
}

func (s *providerAdminUseCaseImpl) Upsert(ctx context.Context, cmd UpsertProviderCommand) (*provider.Provider, error) {
	if cmd.Name == "" || cmd.Slug == "" || cmd.APIKey == "" {
		return nil, ErrProviderInvalid
	}
	if !s.registry.Supports(cmd.Slug) {
		return nil, ErrProviderSlugUnsupported
	}

	id := uuid.New()
	if cmd.ID != nil {
		id = *cmd.ID
	}
	p := &provider.Provider{
		ID:       id,
		Name:     cmd.Name,
		Slug:     cmd.Slug,
		APIKey:   cmd.APIKey,
		APIURL:   cmd.APIURL,
		Active:   cmd.Active,
		Metadata: cmd.Metadata,
	}
	if err := s.providerRepo.Upsert(ctx, p); err != nil {
		return nil, errs.Mark(err, ErrDatabaseOperationFailed)
	}
	return p, nil
}

func (s *providerAdminUseCaseImpl) List(ctx context.Context) ([]*provider.Provider, error) {
	providers, err := s.providerRepo.FindActive(ctx)
	if err != nil {
		return nil, errs.Mark(err, ErrDatabaseOperationFailed)
	}
	return providers, nil
}
