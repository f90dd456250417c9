package components

import (
	"orderflow/internal/infra/queue"
	repo_impl "orderflow/internal/infra/repository"
	"orderflow/internal/usecase"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/fx"
)

var RepositoryModule = fx.Module("repository",
	fx.Provide(
		NewDBTX,
		repo_impl.NewDB,
		fx.Annotate(
			repo_impl.NewOrderRepository,
			fx.As(new(usecase.OrderRepository)),
		),
		fx.Annotate(
			repo_impl.NewOrderLogRepository,
			fx.As(new(usecase.OrderLogRepository)),
		),
		fx.Annotate(
			repo_impl.NewReplacementRepository,
			fx.As(new(usecase.ReplacementRepository)),
		),
		fx.Annotate(
			repo_impl.NewProviderRepository,
			fx.As(new(usecase.ProviderRepository)),
		),
		fx.Annotate(
			repo_impl.NewUserRepository,
			fx.As(new(usecase.UserRepository)),
		),
		fx.Annotate(
			repo_impl.NewSettingsRepository,
			fx.As(new(usecase.SettingsRepository)),
		),
		fx.Annotate(
			repo_impl.NewBatchLogRepository,
			fx.As(new(usecase.BatchLogRepository)),
		),
		fx.Annotate(
			queue.NewReplacementQueue,
			fx.As(new(usecase.ReplacementQueue)),
		),
	),
)

func NewDBTX(pool *pgxpool.Pool) repo_impl.DBTX {
	return pool
}
