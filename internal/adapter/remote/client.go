package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Temutjin2k/delivery-tracking/internal/domain/models"
	"github.com/Temutjin2k/delivery-tracking/internal/domain/types"
	wrap "github.com/Temutjin2k/delivery-tracking/pkg/logger/wrapper"
)

const defaultTimeout = 10 * time.Second

// Client talks to the delivery service on behalf of one authenticated session.
// It is safe for concurrent use.
type Client struct {
	baseURL string
	creds   models.Credentials
	session *http.Client
}

type Option func(*Client)

// WithHTTPClient replaces the default client, which times out after 10 seconds.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.session = c
	}
}

func New(baseURL string, creds models.Credentials, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		creds:   creds,
		session: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type locationPayload struct {
	Location models.Position `json:"location"`
}

// PushLocation sends one driver position. A rejected token yields types.ErrSessionExpired.
func (c *Client) PushLocation(ctx context.Context, deliveryID string, pos models.Position) error {
	const op = "RemoteClient.PushLocation"
	ctx = wrap.WithDeliveryID(wrap.WithAction(ctx, types.ActionPublishLocation), deliveryID)

	if err := c.call(ctx, http.MethodPost, deliveryPath(deliveryID, "update-location"), locationPayload{Location: pos}, nil); err != nil {
		return wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}
	return nil
}

// UpdateStatus requests a status transition and returns the resulting projection.
func (c *Client) UpdateStatus(ctx context.Context, deliveryID string, status types.DeliveryStatus) (*models.DeliveryProjection, error) {
	const op = "RemoteClient.UpdateStatus"
	ctx = wrap.WithDeliveryID(wrap.WithAction(ctx, "remote_update_status"), deliveryID)

	var out models.DeliveryProjection
	body := map[string]string{"status": status.String()}
	if err := c.call(ctx, http.MethodPost, deliveryPath(deliveryID, "update-status"), body, &out); err != nil {
		return nil, wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}
	return &out, nil
}

// GetDelivery fetches the current projection of a delivery.
func (c *Client) GetDelivery(ctx context.Context, deliveryID string) (*models.DeliveryProjection, error) {
	const op = "RemoteClient.GetDelivery"
	ctx = wrap.WithDeliveryID(wrap.WithAction(ctx, "remote_get_delivery"), deliveryID)

	var out models.DeliveryProjection
	if err := c.call(ctx, http.MethodGet, deliveryPath(deliveryID, ""), nil, &out); err != nil {
		return nil, wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}
	return &out, nil
}

func deliveryPath(deliveryID, action string) string {
	p := "/deliveries/" + url.PathEscape(deliveryID)
	if action != "" {
		p += "/" + action
	}
	return p
}

func (c *Client) call(ctx context.Context, method, path string, in, out any) error {
	if c.creds.Empty() {
		return types.ErrSessionExpired
	}

	var body io.Reader
	if in != nil {
		js, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(js)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.creds.Token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if id := wrap.GetRequestID(ctx); id != "" {
		req.Header.Set("X-Request-ID", id)
	}

	resp, err := c.session.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return statusError(resp)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
