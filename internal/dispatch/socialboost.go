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

const SlugSocialBoost = "socialboost"

// socialBoostClient speaks the envelope variant some panels expose:
// per-action paths under the base URL, the key as a bearer header, and a
// {"success": bool, "data": {...}, "error": "..."} wrapper on every reply.
type socialBoostClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewSocialBoostClient(p *provider.Provider, httpClient *http.Client) Client {
	return &socialBoostClient{
		baseURL:    p.APIURL,
		apiKey:     p.APIKey,
		httpClient: httpClient,
	}
}

type sbEnvelope struct {
	Success bool           `json:"success"`
	Data    order.Metadata `json:"data"`
	Error   string         `json:"error"`
}

func (c *socialBoostClient) Submit(ctx context.Context, req SubmitRequest) (SubmitResult, error) {
	data, err := c.post(ctx, "/orders", map[string]any{
		"service":  req.Service,
		"link":     req.Link,
		"quantity": req.Quantity,
	})
	if err != nil {
		return SubmitResult{}, err
	}
	id := stringifyField(data, "order_id")
	if id == "" {
		return SubmitResult{}, errs.New("socialboost response carried no order id")
	}
	return SubmitResult{ExternalOrderID: id, Raw: data}, nil
}

func (c *socialBoostClient) Refill(ctx context.Context, req RefillRequest) (RefillResult, error) {
	data, err := c.post(ctx, "/refills", map[string]any{
		"order_id": req.ExternalOrderID,
	})
	if err != nil {
		return RefillResult{}, err
	}
	id := stringifyField(data, "refill_id")
	if id == "" {
		return RefillResult{}, errs.New("socialboost response carried no refill id")
	}
	return RefillResult{RefillID: id, Raw: data}, nil
}

func (c *socialBoostClient) Status(ctx context.Context, req StatusRequest) (StatusResult, error) {
	data, err := c.post(ctx, "/orders/status", map[string]any{
		"order_id": req.ExternalOrderID,
	})
	if err != nil {
		return StatusResult{}, err
	}
	remains := 0
	if v, ok := data["remains"].(float64); ok {
		remains = int(v)
	}
	return StatusResult{
		State:   MapStatus(data.GetString("status")),
		Remains: remains,
		Raw:     data,
	}, nil
}

func (c *socialBoostClient) post(ctx context.Context, path string, payload map[string]any) (order.Metadata, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, errs.Wrap(err, "failed to encode socialboost request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return nil, errs.Wrap(err, "failed to build socialboost request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, errs.Wrap(err, "socialboost request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, errs.Wrap(err, "failed to read socialboost response")
	}

	var env sbEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, errs.Wrapf(err, "socialboost returned a non-JSON response (status %d)", resp.StatusCode)
	}
	if !env.Success {
		msg := env.Error
		if msg == "" {
			msg = fmt.Sprintf("request rejected with status %d", resp.StatusCode)
		}
		return nil, errs.New("socialboost error: " + msg)
	}
	if env.Data == nil {
		env.Data = order.Metadata{}
	}
	return env.Data, nil
}
