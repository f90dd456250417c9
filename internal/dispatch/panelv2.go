package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"orderflow/internal/domain/order"
	"orderflow/internal/domain/provider"
	"orderflow/internal/pkg/errs"
)

const SlugPanelV2 = "panel-v2"

// panelV2Client speaks the classic SMM panel protocol: a single endpoint,
// the API key and an action discriminator in every request body.
//
//	add:    {key, action, service, link, quantity} -> {"order": 12345}
//	refill: {key, action, order}                   -> {"refill": 678}
//	status: {key, action, order}                   -> {"status": "...", "remains": n}
//
// Errors arrive as {"error": "..."} with HTTP 200 on most panels, so the
// body is inspected before the status code is trusted.
type panelV2Client struct {
	apiURL     string
	apiKey     string
	httpClient *http.Client
}

func NewPanelV2Client(p *provider.Provider, httpClient *http.Client) Client {
	return &panelV2Client{
		apiURL:     p.APIURL,
		apiKey:     p.APIKey,
		httpClient: httpClient,
	}
}

func (c *panelV2Client) Submit(ctx context.Context, req SubmitRequest) (SubmitResult, error) {
	body, err := c.post(ctx, map[string]any{
		"key":      c.apiKey,
		"action":   "add",
		"service":  req.Service,
		"link":     req.Link,
		"quantity": req.Quantity,
	})
	if err != nil {
		return SubmitResult{}, err
	}
	id := stringifyField(body, "order")
	if id == "" {
		return SubmitResult{}, errs.New("panel response carried no order id")
	}
	return SubmitResult{ExternalOrderID: id, Raw: body}, nil
}

func (c *panelV2Client) Refill(ctx context.Context, req RefillRequest) (RefillResult, error) {
	body, err := c.post(ctx, map[string]any{
		"key":    c.apiKey,
		"action": "refill",
		"order":  req.ExternalOrderID,
	})
	if err != nil {
		return RefillResult{}, err
	}
	id := stringifyField(body, "refill")
	if id == "" {
		return RefillResult{}, errs.New("panel response carried no refill id")
	}
	return RefillResult{RefillID: id, Raw: body}, nil
}

func (c *panelV2Client) Status(ctx context.Context, req StatusRequest) (StatusResult, error) {
	body, err := c.post(ctx, map[string]any{
		"key":    c.apiKey,
		"action": "status",
		"order":  req.ExternalOrderID,
	})
	if err != nil {
		return StatusResult{}, err
	}
	remains := 0
	if v, ok := body["remains"].(float64); ok {
		remains = int(v)
	}
	return StatusResult{
		State:   MapStatus(body.GetString("status")),
		Remains: remains,
		Raw:     body,
	}, nil
}

func (c *panelV2Client) post(ctx context.Context, payload map[string]any) (order.Metadata, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, errs.Wrap(err, "failed to encode panel request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(raw))
	if err != nil {
		return nil, errs.Wrap(err, "failed to build panel request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, errs.Wrap(err, "panel request failed")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, errs.Wrap(err, "failed to read panel response")
	}

	var body order.Metadata
	if err := json.Unmarshal(data, &body); err != nil {
		return nil, errs.Wrapf(err, "panel returned a non-JSON response (status %d)", resp.StatusCode)
	}
	if msg := body.GetString("error"); msg != "" {
		return nil, errs.New("panel error: " + msg)
	}
	if resp.StatusCode >= 400 {
		return nil, errs.New(fmt.Sprintf("panel returned status %d", resp.StatusCode))
	}
	return body, nil
}

// stringifyField tolerates panels returning ids as numbers or strings.
func stringifyField(m order.Metadata, key string) string {
	switch v := m[key].(type) {
	case string:
		return v
	case float64:
		return fmt.Sprintf("%.0f", v)
	default:
		return ""
	}
}
