package request

import (
	"orderflow/internal/domain/order"
	"orderflow/internal/usecase"

	"github.com/google/uuid"
)

// CreateOrderRequest is the intake payload delivered by the payments system.
// Metadata carries the dedup signals (post_id, post_code, post_url,
// payment_id) plus free-form provenance.
type CreateOrderRequest struct {
	TransactionID     string         `json:"transaction_id" binding:"required"`
	ServiceID         string         `json:"service_id"`
	ExternalServiceID string         `json:"external_service_id"`
	ProviderID        *uuid.UUID     `json:"provider_id,omitempty"`
	Amount            float64        `json:"amount"`
	Quantity          int32          `json:"quantity"`
	TargetUsername    string         `json:"target_username" binding:"required"`
	TargetURL         string         `json:"target_url"`
	CustomerName      *string        `json:"customer_name,omitempty"`
	CustomerEmail     *string        `json:"customer_email,omitempty"`
	CustomerPhone     *string        `json:"customer_phone,omitempty"`
	Metadata          map[string]any `json:"metadata"`
}

func (r CreateOrderRequest) ToCommand() usecase.CreateOrderCommand {
	return usecase.CreateOrderCommand{
		TransactionID:     r.TransactionID,
		ServiceID:         r.ServiceID,
		ExternalServiceID: r.ExternalServiceID,
		ProviderID:        r.ProviderID,
		Amount:            r.Amount,
		Quantity:          r.Quantity,
		TargetUsername:    r.TargetUsername,
		TargetURL:         r.TargetURL,
		CustomerName:      r.CustomerName,
		CustomerEmail:     r.CustomerEmail,
		CustomerPhone:     r.CustomerPhone,
		Metadata:          order.Metadata(r.Metadata),
	}
}

type ProcessOrderRequest struct {
	OrderID uuid.UUID `json:"order_id" binding:"required"`
}
