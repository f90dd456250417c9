package request

import (
	"orderflow/internal/domain/order"
	"orderflow/internal/usecase"

	"github.com/google/uuid"
)

type SchedulerActionRequest struct {
	Action string `json:"action" binding:"required,oneof=status run_now clean"`
	Queue  string `json:"queue"`
}

type UpdateSettingsRequest struct {
	AutoRetryEnabled   bool   `json:"auto_retry_enabled"`
	MaxRetryAttempts   int    `json:"max_retry_attempts"`
	MaintenanceMode    bool   `json:"maintenance_mode"`
	LogLevel           string `json:"log_level"`
	ProviderAPIBaseURL string `json:"provider_api_base_url"`
}

func (r UpdateSettingsRequest) ToSettings() usecase.Settings {
	return usecase.Settings{
		AutoRetryEnabled:   r.AutoRetryEnabled,
		MaxRetryAttempts:   r.MaxRetryAttempts,
		MaintenanceMode:    r.MaintenanceMode,
		LogLevel:           r.LogLevel,
		ProviderAPIBaseURL: r.ProviderAPIBaseURL,
	}
}

type UpsertProviderRequest struct {
	ID       *uuid.UUID     `json:"id,omitempty"`
	Name     string         `json:"name" binding:"required"`
	Slug     string         `json:"slug" binding:"required"`
	APIKey   string         `json:"api_key" binding:"required"`
	APIURL   string         `json:"api_url"`
	Active   bool           `json:"active"`
	Metadata map[string]any `json:"metadata"`
}

func (r UpsertProviderRequest) ToCommand() usecase.UpsertProviderCommand {
	return usecase.UpsertProviderCommand{
		ID:       r.ID,
		Name:     r.Name,
		Slug:     r.Slug,
		APIKey:   r.APIKey,
		APIURL:   r.APIURL,
		Active:   r.Active,
		Metadata: order.Metadata(r.Metadata),
	}
}
