package components

import (
	"orderflow/internal/pkg/clock"
	"orderflow/internal/usecase"

	"go.uber.org/fx"
)

var UseCaseModule = fx.Module("usecase",
	fx.Provide(
		clock.NewRealClock,
		usecase.NewSettingsUseCase,
		usecase.NewOrderIntakeUseCase,
		usecase.NewOrderProcessingUseCase,
		usecase.NewReplacementUseCase,
		usecase.NewSchedulerAdminUseCase,
		usecase.NewProviderAdminUseCase,
	),
)
