package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"orderflow/internal/domain/order"
	"orderflow/internal/infra"
	"orderflow/internal/pkg/errs"
)

var ErrInvalidSettings = errors.New("invalid settings payload")

// Settings are the runtime-tunable knobs persisted as one jsonb document.
// Everything else is environment configuration and immutable per process.
type Settings struct {
	// AutoRetryEnabled keeps orders pending after a failed submission until
	// MaxRetryAttempts is reached, instead of failing them terminally.
	AutoRetryEnabled   bool   `json:"auto_retry_enabled"`
	MaxRetryAttempts   int    `json:"max_retry_attempts"`
	MaintenanceMode    bool   `json:"maintenance_mode"`
	LogLevel           string `json:"log_level"`
	ProviderAPIBaseURL string `json:"provider_api_base_url"`
}

func DefaultSettings() Settings {
	return Settings{
		AutoRetryEnabled:   false,
		MaxRetryAttempts:   3,
		MaintenanceMode:    false,
		LogLevel:           "info",
		ProviderAPIBaseURL: "",
	}
}

type SettingsUseCase interface {
	Get(ctx context.Context) (Settings, error)
	Update(ctx context.Context, s Settings) (Settings, error)
}

type settingsUseCaseImpl struct {
	repo     SettingsRepository
	logLevel *slog.LevelVar

	mu     sync.RWMutex
	cache  Settings
	loaded bool
}

// NewSettingsUseCase builds the settings service. logLevel may be nil when
// the process does not expose dynamic log level switching (tests).
func NewSettingsUseCase(repo SettingsRepository, logLevel *slog.LevelVar) SettingsUseCase {
	return &settingsUseCaseImpl{
		repo:     repo,
		logLevel: logLevel,
	}
}

func (s *settingsUseCaseImpl) Get(ctx context.Context) (Settings, error) {
	s.mu.RLock()
	if s.loaded {
		cached := s.cache
		s.mu.RUnlock()
		return cached, nil
	}
	s.mu.RUnlock()

	doc, err := s.repo.Get(ctx)
	if err != nil {
		// A missing row degrades to defaults rather than blocking every
		// caller that consults a toggle.
		if infra.IsKind(err, infra.KindNotFound) {
			return DefaultSettings(), nil
		}
		return Settings{}, errs.Wrap(err, "failed to load settings")
	}

	current, err := decodeSettings(doc)
	if err != nil {
		return Settings{}, err
	}

	s.mu.Lock()
	s.cache = current
	s.loaded = true
	s.mu.Unlock()
	s.applyLogLevel(current.LogLevel)

	return current, nil
}

func (s *settingsUseCaseImpl) Update(ctx context.Context, next Settings) (Settings, error) {
	if _, ok := parseLogLevel(next.LogLevel); !ok {
		return Settings{}, ErrInvalidSettings
	}
	if next.MaxRetryAttempts < 0 || next.MaxRetryAttempts > 10 {
		return Settings{}, ErrInvalidSettings
	}

	doc, err := encodeSettings(next)
	if err != nil {
		return Settings{}, err
	}
	if err := s.repo.Update(ctx, doc); err != nil {
		return Settings{}, errs.Wrap(err, "failed to persist settings")
	}

	s.mu.Lock()
	s.cache = next
	s.loaded = true
	s.mu.Unlock()
	s.applyLogLevel(next.LogLevel)

	slog.Info("settings updated",
		"maintenance_mode", next.MaintenanceMode,
		"auto_retry", next.AutoRetryEnabled,
		"log_level", next.LogLevel,
	)
	return next, nil
}

func (s *settingsUseCaseImpl) applyLogLevel(level string) {
	if s.logLevel == nil {
		return
	}
	if l, ok := parseLogLevel(level); ok {
		s.logLevel.Set(l)
	}
}

func parseLogLevel(level string) (slog.Level, bool) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, true
	case "info", "":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	}
	return 0, false
}

func decodeSettings(doc order.Metadata) (Settings, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return Settings{}, errs.Wrap(err, "failed to encode settings document")
	}
	current := DefaultSettings()
	if err := json.Unmarshal(raw, &current); err != nil {
		return Settings{}, errs.Wrap(err, "failed to decode settings document")
	}
	return current, nil
}

func encodeSettings(s Settings) (order.Metadata, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, errs.Wrap(err, "failed to encode settings")
	}
	var doc order.Metadata
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, errs.Wrap(err, "failed to rebuild settings document")
	}
	return doc, nil
}
