package request

import (
	"orderflow/internal/usecase"

	"github.com/google/uuid"
)

// CreateReplacementRequest accepts either the internal order id or the
// upstream transaction id, which is what customer-facing flows hold.
type CreateReplacementRequest struct {
	OrderID       *uuid.UUID `json:"order_id,omitempty"`
	TransactionID string     `json:"transaction_id,omitempty"`
	Motivo        string     `json:"motivo"`
	Observacoes   *string    `json:"observacoes,omitempty"`
}

func (r CreateReplacementRequest) ToCommand() usecase.CreateReplacementCommand {
	return usecase.CreateReplacementCommand{
		OrderID:       r.OrderID,
		TransactionID: r.TransactionID,
		Motivo:        r.Motivo,
		Observacoes:   r.Observacoes,
	}
}

// ProcessReplacementRequest targets the order whose oldest pending
// reposição should be dispatched immediately.
type ProcessReplacementRequest struct {
	OrderID       *uuid.UUID `json:"order_id,omitempty"`
	TransactionID string     `json:"transaction_id,omitempty"`
}

func (r ProcessReplacementRequest) ToCommand() usecase.ProcessReplacementCommand {
	return usecase.ProcessReplacementCommand{
		OrderID:       r.OrderID,
		TransactionID: r.TransactionID,
	}
}

type RejectReplacementRequest struct {
	Resposta *string `json:"resposta,omitempty"`
}
