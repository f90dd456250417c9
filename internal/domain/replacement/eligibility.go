package replacement

import (
	"errors"
	"time"

	"orderflow/internal/domain/order"
)

const (
	// MinRequestAge guards against premature requests: providers rarely
	// finish delivering before this window has passed.
	MinRequestAge = 12 * time.Hour
	// MaxRequestAge is the stale-request guard; it is also persisted on the
	// replacement as data_limite for downstream reporting.
	MaxRequestAge = 30 * 24 * time.Hour
)

// Eligibility violations, one distinguishable reason per rule.
var (
	ErrOrderNotFound       = errors.New("pedido não encontrado")
	ErrOrderNotCompleted   = errors.New("apenas pedidos concluídos podem ter reposição")
	ErrRequestTooEarly     = errors.New("só é possível solicitar reposição 12 horas após a compra")
	ErrRequestWindowClosed = errors.New("o prazo para solicitar reposição (30 dias) foi excedido")
	ErrAlreadyActive       = errors.New("já existe uma solicitação de reposição pendente para este pedido")
)

// CheckEligibility evaluates the replacement rules in order, short-circuiting
// on the first violation. hasActive must reflect whether any replacement for
// the order is currently pending or processing.
func CheckEligibility(o *order.Order, hasActive bool, now time.Time) error {
	if o == nil {
		return ErrOrderNotFound
	}
	if o.Status != order.StatusCompleted {
		return ErrOrderNotCompleted
	}

	age := now.Sub(o.CreatedAt)
	if age < MinRequestAge {
		return ErrRequestTooEarly
	}
	if age > MaxRequestAge {
		return ErrRequestWindowClosed
	}

	if hasActive {
		return ErrAlreadyActive
	}
	return nil
}

// Deadline returns the persisted eligibility deadline for an order.
func Deadline(o *order.Order) time.Time {
	return o.CreatedAt.Add(MaxRequestAge)
}
