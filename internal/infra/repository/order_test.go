//go:build unit

package repository_test

import (
	"context"
	"testing"

	"orderflow/internal/infra/repository"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingDBTX captures every statement so lock acquisition can be
// asserted without a live database.
type recordingDBTX struct {
	statements []string
	args       [][]any
}

func (r *recordingDBTX) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	r.statements = append(r.statements, sql)
	r.args = append(r.args, args)
	return pgconn.CommandTag{}, nil
}

func (r *recordingDBTX) Query(context.Context, string, ...any) (pgx.Rows, error) { return nil, nil }

func (r *recordingDBTX) QueryRow(context.Context, string, ...any) pgx.Row { return nil }

func TestLockIntake(t *testing.T) {
	t.Run("success: locks every present dedup signal", func(t *testing.T) {
		repo := repository.NewOrderRepository(nil)
		tx := &recordingDBTX{}

		err := repo.LockIntake(context.Background(), tx, repository.DedupKeys{
			TransactionID: "tx-1",
			PostID:        "post-9",
			PostCode:      "Cx1",
			PostURL:       "https://instagram.com/p/Cx1",
			PaymentID:     "pay-7",
		})

		require.NoError(t, err)
		require.Len(t, tx.args, 5)
		want := []int64{
			repository.AdvisoryLockKey("intake:tx:tx-1"),
			repository.AdvisoryLockKey("intake:post:post-9"),
			repository.AdvisoryLockKey("intake:code:Cx1"),
			repository.AdvisoryLockKey("intake:url:https://instagram.com/p/Cx1"),
			repository.AdvisoryLockKey("intake:payment:pay-7"),
		}
		for i, key := range want {
			assert.Equal(t, "SELECT pg_advisory_xact_lock($1)", tx.statements[i])
			assert.Equal(t, key, tx.args[i][0])
		}
	})

	t.Run("success: bare transaction id takes a single lock", func(t *testing.T) {
		repo := repository.NewOrderRepository(nil)
		tx := &recordingDBTX{}

		err := repo.LockIntake(context.Background(), tx, repository.DedupKeys{TransactionID: "tx-1"})

		require.NoError(t, err)
		require.Len(t, tx.args, 1)
		assert.Equal(t, repository.AdvisoryLockKey("intake:tx:tx-1"), tx.args[0][0])
	})

	t.Run("success: namespaces keep equal signal values apart", func(t *testing.T) {
		// A post id and a post code with the same literal value must still
		// map to distinct lock keys.
		assert.NotEqual(t,
			repository.AdvisoryLockKey("intake:post:abc"),
			repository.AdvisoryLockKey("intake:code:abc"),
		)
	})
}
