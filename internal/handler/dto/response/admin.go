package response

import (
	"time"

	"orderflow/internal/domain/provider"
	"orderflow/internal/usecase"
	"orderflow/internal/usecase/readmodel"

	"github.com/google/uuid"
)

type QueueInfoResponse struct {
	Name     string `json:"name"`
	Waiting  int64  `json:"waiting"`
	Interval string `json:"interval"`
}

type BatchSummaryResponse struct {
	Kind       string    `json:"kind"`
	Total      int       `json:"total"`
	Succeeded  int       `json:"succeeded"`
	Failed     int       `json:"failed"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

type QueueStatusResponse struct {
	Queues        []QueueInfoResponse    `json:"queues"`
	Workers       int                    `json:"workers"`
	RecentBatches []BatchSummaryResponse `json:"recent_batches"`
}

func FromQueueStatusRM(rm *readmodel.QueueStatusRM) QueueStatusResponse {
	resp := QueueStatusResponse{Workers: rm.Workers}
	for _, q := range rm.Queues {
		resp.Queues = append(resp.Queues, QueueInfoResponse{
			Name:     q.Name,
			Waiting:  q.Waiting,
			Interval: q.Interval.String(),
		})
	}
	for _, b := range rm.RecentBatches {
		resp.RecentBatches = append(resp.RecentBatches, BatchSummaryResponse{
			Kind:       b.Kind,
			Total:      b.Total,
			Succeeded:  b.Succeeded,
			Failed:     b.Failed,
			StartedAt:  b.StartedAt,
			FinishedAt: b.FinishedAt,
		})
	}
	return resp
}

type QueueActionResponse struct {
	Success bool     `json:"success"`
	Action  string   `json:"action"`
	Queues  []string `json:"queues"`
	JobID   string   `json:"job_id,omitempty"`
	Removed int64    `json:"removed,omitempty"`
}

func FromQueueActionRM(rm *readmodel.QueueActionRM) QueueActionResponse {
	return QueueActionResponse{
		Success: true,
		Action:  rm.Action,
		Queues:  rm.Queues,
		JobID:   rm.JobID,
		Removed: rm.Removed,
	}
}

type SettingsResponse struct {
	AutoRetryEnabled   bool   `json:"auto_retry_enabled"`
	MaxRetryAttempts   int    `json:"max_retry_attempts"`
	MaintenanceMode    bool   `json:"maintenance_mode"`
	LogLevel           string `json:"log_level"`
	ProviderAPIBaseURL string `json:"provider_api_base_url"`
}

func FromSettings(s usecase.Settings) SettingsResponse {
	return SettingsResponse{
		AutoRetryEnabled:   s.AutoRetryEnabled,
		MaxRetryAttempts:   s.MaxRetryAttempts,
		MaintenanceMode:    s.MaintenanceMode,
		LogLevel:           s.LogLevel,
		ProviderAPIBaseURL: s.ProviderAPIBaseURL,
	}
}

type ProviderResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	APIURL    string    `json:"api_url,omitempty"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// FromProvider never echoes the API key.
func FromProvider(p *provider.Provider) ProviderResponse {
	return ProviderResponse{
		ID:        p.ID,
		Name:      p.Name,
		Slug:      p.Slug,
		APIURL:    p.APIURL,
		Active:    p.Active,
		CreatedAt: p.CreatedAt,
	}
}
