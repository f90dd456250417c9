package dispatch

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"orderflow/internal/domain/order"
	"orderflow/internal/domain/provider"
	"orderflow/internal/pkg/config"
	"orderflow/internal/pkg/errs"
)

// ErrUnsupportedProvider marks a provider whose slug has no registered
// client. Dispatch fails closed: the order is never sent to a guessed API
// shape.
var ErrUnsupportedProvider = errs.New("no dispatch client for provider")

type SubmitRequest struct {
	Service  string
	Link     string
	Quantity int
}

type SubmitResult struct {
	ExternalOrderID string
	Raw             order.Metadata
}

type RefillRequest struct {
	ExternalOrderID string
}

type RefillResult struct {
	RefillID string
	Raw      order.Metadata
}

type StatusRequest struct {
	ExternalOrderID string
}

type StatusResult struct {
	State   State
	Remains int
	Raw     order.Metadata
}

// State is the normalized view of a provider-reported order status.
type State string

const (
	StateProcessing State = "processing"
	StateCompleted  State = "completed"
	StateFailed     State = "failed"
)

// MapStatus folds the status vocabulary seen across panel APIs into the
// three states the order lifecycle understands. Anything unrecognized is
// treated as still processing so the status-check sweep keeps polling.
func MapStatus(raw string) State {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "completed", "done", "finished":
		return StateCompleted
	case "failed", "error", "cancelled", "canceled":
		return StateFailed
	default:
		return StateProcessing
	}
}

// Client is the capability a provider integration must offer. One
// implementation exists per API shape, not per provider row; many provider
// rows can share a slug.
type Client interface {
	Submit(ctx context.Context, req SubmitRequest) (SubmitResult, error)
	Refill(ctx context.Context, req RefillRequest) (RefillResult, error)
	Status(ctx context.Context, req StatusRequest) (StatusResult, error)
}

// Factory builds a client bound to one provider's credentials.
type Factory func(p *provider.Provider, httpClient *http.Client) Client

// Registry resolves a provider row to a ready-to-call client by slug.
type Registry struct {
	factories  map[string]Factory
	httpClient *http.Client
}

func NewRegistry(cfg config.DispatchConfig) *Registry {
	r := &Registry{
		factories: make(map[string]Factory),
		httpClient: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
	}
	r.Register(SlugPanelV2, NewPanelV2Client)
	r.Register(SlugSocialBoost, NewSocialBoostClient)
	return r
}

func (r *Registry) Register(slug string, f Factory) {
	r.factories[strings.ToLower(slug)] = f
}

// Supports reports whether a slug has a registered client.
func (r *Registry) Supports(slug string) bool {
	_, ok := r.factories[strings.ToLower(slug)]
	return ok
}

func (r *Registry) ClientFor(p *provider.Provider) (Client, error) {
	f, ok := r.factories[strings.ToLower(p.Slug)]
	if !ok {
		return nil, errs.Mark(errs.New(fmt.Sprintf("provider %q has unsupported slug %q", p.Name, p.Slug)), ErrUnsupportedProvider)
	}
	return f(p, r.httpClient), nil
}
