package provider

import (
	"time"

	"orderflow/internal/domain/order"

	"github.com/google/uuid"
)

// Provider is a third-party fulfillment partner. The slug selects the
// dispatch client variant; metadata carries balance/currency/health data
// maintained by background checks outside the orchestrator.
type Provider struct {
	ID        uuid.UUID
	Name      string
	Slug      string
	APIKey    string
	APIURL    string
	Active    bool
	Metadata  order.Metadata
	CreatedAt time.Time
	UpdatedAt time.Time
}

// MatchesService reports whether the provider advertises support for the
// given platform or service type in its metadata catalog.
func (p *Provider) MatchesService(platform, serviceType string) bool {
	if p.Metadata == nil {
		return false
	}
	if primary := p.Metadata.GetString("primary_service"); primary != "" && primary == platform {
		return true
	}
	for _, key := range []string{"services", "service_types"} {
		raw, ok := p.Metadata[key]
		if !ok {
			continue
		}
		list, ok := raw.([]any)
		if !ok {
			continue
		}
		for _, v := range list {
			s, ok := v.(string)
			if !ok {
				continue
			}
			if (platform != "" && s == platform) || (serviceType != "" && s == serviceType) {
				return true
			}
		}
	}
	return false
}
