package response

import (
	"time"

	"orderflow/internal/domain/order"
	"orderflow/internal/usecase/readmodel"

	"github.com/google/uuid"
)

type IntakeResponse struct {
	Success   bool      `json:"success"`
	OrderID   uuid.UUID `json:"order_id"`
	Duplicate bool      `json:"duplicate,omitempty"`
	Message   string    `json:"message"`
}

func FromIntakeRM(rm *readmodel.IntakeResultRM) IntakeResponse {
	return IntakeResponse{
		Success:   true,
		OrderID:   rm.OrderID,
		Duplicate: rm.Duplicate,
		Message:   rm.Message,
	}
}

type SyncResponse struct {
	Success bool      `json:"success"`
	OrderID uuid.UUID `json:"order_id"`
	Created bool      `json:"created"`
}

func FromSyncRM(rm *readmodel.SyncResultRM) SyncResponse {
	return SyncResponse{
		Success: true,
		OrderID: rm.OrderID,
		Created: rm.Created,
	}
}

type ProcessResponse struct {
	Success         bool      `json:"success"`
	OrderID         uuid.UUID `json:"order_id"`
	Status          string    `json:"status"`
	ExternalOrderID *string   `json:"external_order_id,omitempty"`
	Message         string    `json:"message,omitempty"`
}

func FromProcessRM(rm *readmodel.ProcessResultRM) ProcessResponse {
	return ProcessResponse{
		Success:         rm.Status != order.StatusFailed,
		OrderID:         rm.OrderID,
		Status:          rm.Status.String(),
		ExternalOrderID: rm.ExternalOrderID,
		Message:         rm.Message,
	}
}

type OrderLogResponse struct {
	Level     string         `json:"level"`
	Message   string         `json:"message"`
	Data      map[string]any `json:"data,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

type OrderResponse struct {
	ID              uuid.UUID          `json:"id"`
	TransactionID   string             `json:"transaction_id"`
	ServiceID       string             `json:"service_id,omitempty"`
	ProviderID      *uuid.UUID         `json:"provider_id,omitempty"`
	ExternalOrderID *string            `json:"external_order_id,omitempty"`
	Status          string             `json:"status"`
	Amount          float64            `json:"amount"`
	Quantity        int32              `json:"quantity"`
	TargetUsername  string             `json:"target_username"`
	TargetURL       string             `json:"target_url"`
	CustomerEmail   *string            `json:"customer_email,omitempty"`
	Metadata        map[string]any     `json:"metadata,omitempty"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`
	CompletedAt     *time.Time         `json:"completed_at,omitempty"`
	Logs            []OrderLogResponse `json:"logs,omitempty"`
}

func FromOrder(o *order.Order, logs []*order.Log) OrderResponse {
	resp := OrderResponse{
		ID:              o.ID,
		TransactionID:   o.TransactionID,
		ServiceID:       o.ServiceID,
		ProviderID:      o.ProviderID,
		ExternalOrderID: o.ExternalOrderID,
		Status:          o.Status.String(),
		Amount:          o.Amount,
		Quantity:        o.Quantity,
		TargetUsername:  o.TargetUsername,
		TargetURL:       o.TargetURL,
		CustomerEmail:   o.CustomerEmail,
		Metadata:        o.Metadata,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
		CompletedAt:     o.CompletedAt,
	}
	for _, l := range logs {
		resp.Logs = append(resp.Logs, OrderLogResponse{
			Level:     string(l.Level),
			Message:   l.Message,
			Data:      l.Data,
			CreatedAt: l.CreatedAt,
		})
	}
	return resp
}
