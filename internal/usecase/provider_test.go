//go:build unit

package usecase_test

import (
	"context"
	"testing"

	"orderflow/internal/usecase"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProviderUpsert(t *testing.T) {
	t.Run("success: stores a provider with a dispatchable slug", func(t *testing.T) {
		repo := newFakeProviderRepo()
		uc := usecase.NewProviderAdminUseCase(repo, &fakeRegistry{})

		p, err := uc.Upsert(context.Background(), usecase.UpsertProviderCommand{
			Name:   "Panel",
			Slug:   "panel-v2",
			APIKey: "secret",
			Active: true,
		})

		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, p.ID)
		require.Len(t, repo.upserted, 1)
		assert.Equal(t, "panel-v2", repo.upserted[0].Slug)
	})

	t.Run("error: missing required fields", func(t *testing.T) {
		uc := usecase.NewProviderAdminUseCase(newFakeProviderRepo(), &fakeRegistry{})

		_, err := uc.Upsert(context.Background(), usecase.UpsertProviderCommand{Name: "Panel"})

		assert.ErrorIs(t, err, usecase.ErrProviderInvalid)
	})

	t.Run("error: slug without a dispatch client", func(t *testing.T) {
		uc := usecase.NewProviderAdminUseCase(newFakeProviderRepo(), &fakeRegistry{unsupported: true})

		_, err := uc.Upsert(context.Background(), usecase.UpsertProviderCommand{
			Name:   "Panel",
			Slug:   "mystery-panel",
			APIKey: "secret",
		})

		assert.ErrorIs(t, err, usecase.ErrProviderSlugUnsupported)
	})
}

func TestProviderList(t *testing.T) {
	t.Run("success: returns the active catalog", func(t *testing.T) {
		repo := newFakeProviderRepo()
		repo.add(activeProvider("panel-v2"))
		repo.add(activeProvider("socialboost"))
		uc := usecase.NewProviderAdminUseCase(repo, &fakeRegistry{})

		providers, err := uc.List(context.Background())

		require.NoError(t, err)
		assert.Len(t, providers, 2)
	})
}
