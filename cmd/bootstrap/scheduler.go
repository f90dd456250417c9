package bootstrap

import (
	"orderflow/internal/pkg/clock"
	"orderflow/internal/pkg/config"
	"orderflow/internal/scheduler"
	"orderflow/internal/usecase"

	"go.uber.org/fx"
)

var SchedulerModule = fx.Module("scheduler",
	fx.Provide(
		NewScheduler,
		func(s *scheduler.Scheduler) usecase.SweepTrigger { return s },
	),
)

func NewScheduler(
	lc fx.Lifecycle,
	processing usecase.OrderProcessingUseCase,
	replacements usecase.ReplacementUseCase,
	queue usecase.ReplacementQueue,
	settings usecase.SettingsUseCase,
	cfg config.Config,
	clk clock.Clock,
) *scheduler.Scheduler {
	s := scheduler.New(processing, replacements, queue, settings, cfg.Scheduler, clk)

	lc.Append(fx.Hook{
		OnStart: s.Start,
		OnStop:  s.Stop,
	})

	return s
}
