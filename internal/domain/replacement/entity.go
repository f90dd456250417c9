package replacement

import (
	"errors"
	"fmt"
	"time"

	"orderflow/internal/domain/order"

	"github.com/google/uuid"
)

var ErrIllegalTransition = errors.New("illegal replacement status transition")

// Replacement (reposição) is one refill attempt against a completed order.
// It is created pending, approved or rejected by a privileged actor, and
// driven to completed/failed by the provider dispatch outcome.
type Replacement struct {
	ID                uuid.UUID
	OrderID           uuid.UUID
	UserID            *uuid.UUID
	Status            Status
	Motivo            string
	Observacoes       *string
	Resposta          *string
	DataSolicitacao   time.Time
	DataLimite        time.Time
	DataProcessamento *time.Time
	Tentativas        int32
	ProcessadoPor     *string
	Metadata          order.Metadata
}

type NewReplacementParams struct {
	OrderID     uuid.UUID
	UserID      *uuid.UUID
	Motivo      string
	Observacoes *string
	// DataLimite is the persisted 30-day eligibility deadline, derived from
	// the order's creation time.
	DataLimite time.Time
	// Tentativas is the attempt ordinal: prior replacement count + 1.
	Tentativas int32
	Metadata   order.Metadata
}

func NewReplacement(p NewReplacementParams, now time.Time) *Replacement {
	motivo := p.Motivo
	if motivo == "" {
		motivo = "Solicitação de reposição pelo cliente"
	}
	return &Replacement{
		ID:              uuid.New(),
		OrderID:         p.OrderID,
		UserID:          p.UserID,
		Status:          StatusPending,
		Motivo:          motivo,
		Observacoes:     p.Observacoes,
		DataSolicitacao: now,
		DataLimite:      p.DataLimite,
		Tentativas:      p.Tentativas,
		Metadata:        p.Metadata,
	}
}

func (r *Replacement) transition(next Status) error {
	if !r.Status.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, r.Status, next)
	}
	r.Status = next
	return nil
}

// Approve moves pending → processing, recording who approved and when.
func (r *Replacement) Approve(actor string, now time.Time) error {
	if r.Status != StatusPending {
		return fmt.Errorf("%w: only pending replacements can be approved (status: %s)", ErrIllegalTransition, r.Status)
	}
	if err := r.transition(StatusProcessing); err != nil {
		return err
	}
	r.ProcessadoPor = &actor
	r.DataProcessamento = &now
	return nil
}

// Reject moves pending → failed, recording the resolution note.
func (r *Replacement) Reject(actor string, resposta *string, now time.Time) error {
	if r.Status != StatusPending {
		return fmt.Errorf("%w: only pending replacements can be rejected (status: %s)", ErrIllegalTransition, r.Status)
	}
	if err := r.transition(StatusFailed); err != nil {
		return err
	}
	r.ProcessadoPor = &actor
	r.Resposta = resposta
	r.DataProcessamento = &now
	return nil
}

// CompleteDispatch records a successful provider refill, keeping the
// provider's refill identifier in metadata for audit.
func (r *Replacement) CompleteDispatch(refillID string, now time.Time) error {
	if err := r.transition(StatusCompleted); err != nil {
		return err
	}
	resposta := "Reposição criada com sucesso"
	r.Resposta = &resposta
	r.DataProcessamento = &now
	r.Metadata = r.Metadata.Set("refill_id", refillID)
	return nil
}

// FailDispatch is terminal for this attempt; the customer may still file a
// new request later if eligibility holds.
func (r *Replacement) FailDispatch(reason string, now time.Time) error {
	if err := r.transition(StatusFailed); err != nil {
		return err
	}
	r.Resposta = &reason
	r.DataProcessamento = &now
	r.Metadata = r.Metadata.Set("error", reason)
	return nil
}
