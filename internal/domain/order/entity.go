package order

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	ErrIllegalTransition = errors.New("illegal order status transition")
	ErrMissingTarget     = errors.New("target username is required")
	ErrMissingService    = errors.New("service id is required")
)

// Order is one purchase of a social-engagement service, tracked from intake
// to delivery completion. transaction_id comes from the upstream payments
// system and is deliberately not unique on its own; the dedup engine decides
// equality with finer signals when they exist.
type Order struct {
	ID                uuid.UUID
	TransactionID     string
	ServiceID         string
	ExternalServiceID string
	ProviderID        *uuid.UUID
	ExternalOrderID   *string
	Status            Status
	Amount            float64
	Quantity          int32
	TargetUsername    string
	TargetURL         string
	CustomerName      *string
	CustomerEmail     *string
	UserID            *uuid.UUID
	Metadata          Metadata
	ProviderResponse  Metadata
	CreatedAt         time.Time
	UpdatedAt         time.Time
	CompletedAt       *time.Time
}

type NewOrderParams struct {
	TransactionID     string
	ServiceID         string
	ExternalServiceID string
	ProviderID        *uuid.UUID
	ExternalOrderID   *string
	Amount            float64
	Quantity          int32
	TargetUsername    string
	TargetURL         string
	CustomerName      *string
	CustomerEmail     *string
	UserID            *uuid.UUID
	Metadata          Metadata
}

// NewOrder builds a pending order from an accepted intake request.
func NewOrder(p NewOrderParams) (*Order, error) {
	if p.TargetUsername == "" {
		return nil, ErrMissingTarget
	}
	if p.ServiceID == "" && p.ExternalServiceID == "" {
		return nil, ErrMissingService
	}

	quantity := p.Quantity
	if quantity <= 0 {
		quantity = 100
	}
	targetURL := p.TargetURL
	if targetURL == "" {
		targetURL = fmt.Sprintf("https://instagram.com/%s", p.TargetUsername)
	}

	return &Order{
		ID:                uuid.New(),
		TransactionID:     p.TransactionID,
		ServiceID:         p.ServiceID,
		ExternalServiceID: p.ExternalServiceID,
		ProviderID:        p.ProviderID,
		ExternalOrderID:   p.ExternalOrderID,
		Status:            StatusPending,
		Amount:            p.Amount,
		Quantity:          quantity,
		TargetUsername:    p.TargetUsername,
		TargetURL:         targetURL,
		CustomerName:      p.CustomerName,
		CustomerEmail:     p.CustomerEmail,
		UserID:            p.UserID,
		Metadata:          p.Metadata,
	}, nil
}

// ServiceIDForProvider resolves the id the provider's catalog knows this
// service by. The provider must never receive our internal service id when
// an external one exists.
func (o *Order) ServiceIDForProvider() string {
	if o.ExternalServiceID != "" {
		return o.ExternalServiceID
	}
	if ext := o.Metadata.GetString("external_service_id"); ext != "" {
		return ext
	}
	return o.ServiceID
}

func (o *Order) transition(next Status) error {
	if !o.Status.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, o.Status, next)
	}
	o.Status = next
	return nil
}

// MarkProcessing records a successful submission to the provider.
func (o *Order) MarkProcessing(externalOrderID string) error {
	if err := o.transition(StatusProcessing); err != nil {
		return err
	}
	if externalOrderID != "" {
		o.ExternalOrderID = &externalOrderID
	}
	return nil
}

// MarkCompleted fires only once; CompletedAt is stamped on the first
// transition and left untouched by repeated completion notifications.
func (o *Order) MarkCompleted(now time.Time) error {
	if o.Status == StatusCompleted {
		return nil
	}
	if err := o.transition(StatusCompleted); err != nil {
		return err
	}
	if o.CompletedAt == nil {
		o.CompletedAt = &now
	}
	return nil
}

// MarkFailed is terminal; reattempting a failed order is a scheduler policy,
// not a state-machine capability.
func (o *Order) MarkFailed() error {
	return o.transition(StatusFailed)
}

// Log is one append-only audit entry owned by an order. Entries are written
// on every state transition, dedup hit and error, and are never mutated.
type Log struct {
	ID        uuid.UUID
	OrderID   uuid.UUID
	Level     LogLevel
	Message   string
	Data      Metadata
	CreatedAt time.Time
}
