package bootstrap

import (
	"orderflow/internal/dispatch"
	"orderflow/internal/usecase"

	"go.uber.org/fx"
)

var DispatchModule = fx.Module("dispatch",
	fx.Provide(
		fx.Annotate(
			dispatch.NewRegistry,
			fx.As(new(usecase.DispatchRegistry)),
		),
	),
)
