package bootstrap

import (
	"log/slog"

	"orderflow/internal/handler/middleware"
	"orderflow/internal/pkg/config"

	"go.uber.org/fx"
)

var LoggerModule = fx.Module("logger",
	fx.Provide(
		NewLogger,
		func(l *middleware.Logger) *slog.Logger { return l.GetSlogLogger() },
		// The LevelVar lets the settings use case retune log verbosity at
		// runtime without rebuilding the handler chain.
		func(l *middleware.Logger) *slog.LevelVar { return l.GetLevelVar() },
	),
)

func NewLogger(cfg config.Config) *middleware.Logger {
	return middleware.NewLogger(cfg.Log)
}
