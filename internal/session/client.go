// internal/session/client.go
package session

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	json "github.com/json-iterator/go"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/scrolllab/api/schemas"
)

// maxErrorBody caps how much of an error response is kept for the message.
const maxErrorBody = 4 << 10

// Config configures a Client.
type Config struct {
	APIBase        string
	RequestTimeout time.Duration
	RateLimit      float64
	RateBurst      int
}

// Client talks to the study session service.
type Client struct {
	base    string
	http    *http.Client
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewClient validates the base URL and builds a client. A non-positive rate
// limit disables throttling.
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.APIBase), "/")
	if base == "" {
		return nil, fmt.Errorf("session API base URL is not configured")
	}
	if _, err := url.ParseRequestURI(base); err != nil {
		return nil, fmt.Errorf("invalid session API base URL %q: %w", cfg.APIBase, err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	burst := cfg.RateBurst
	if burst < 1 {
		burst = 1
	}

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		base:    base,
		http:    &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(limit, burst),
		logger:  logger.Named("session"),
	}, nil
}

// StartAtomic creates a session and assigns its orders in one call.
func (c *Client) StartAtomic(ctx context.Context) (*schemas.StartSessionResponse, error) {
	raw, err := c.post(ctx, "/sessions/start", nil)
	if err != nil {
		return nil, err
	}
	fields, err := decodeFields(raw)
	if err != nil {
		return nil, err
	}
	for _, name := range []string{"code", "partIOrder", "partIIPattern"} {
		if !isString(fields[name]) {
			return nil, invalid(name)
		}
	}
	var out schemas.StartSessionResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	c.logger.Debug("Session started.", zap.String("code", out.Code), zap.String("order", out.PartIOrder))
	return &out, nil
}

// Create registers a session without assigning orders.
func (c *Client) Create(ctx context.Context) (*schemas.CreateSessionResponse, error) {
	raw, err := c.post(ctx, "/sessions", nil)
	if err != nil {
		return nil, err
	}
	fields, err := decodeFields(raw)
	if err != nil {
		return nil, err
	}
	for _, name := range []string{"sessionCode", "createdAt"} {
		if !isString(fields[name]) {
			return nil, invalid(name)
		}
	}
	var out schemas.CreateSessionResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return &out, nil
}

// AssignOrders asks the service to assign orders to an existing session.
// A null order is accepted; any other value must be a permutation of ABC.
func (c *Client) AssignOrders(ctx context.Context, code string) (*schemas.Session, error) {
	raw, err := c.post(ctx, "/sessions/"+url.PathEscape(code)+"/assign-orders", nil)
	if err != nil {
		return nil, err
	}
	fields, err := decodeFields(raw)
	if err != nil {
		return nil, err
	}
	if !isString(fields["sessionCode"]) {
		return nil, invalid("sessionCode")
	}
	if order, present := fields["partIOrder"]; present && order != nil {
		s, ok := order.(string)
		if !ok || !schemas.PartIOrder(s).IsValid() {
			return nil, invalid("partIOrder")
		}
	}
	var out schemas.Session
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return &out, nil
}

// Heartbeat tells the service the participant is still present.
func (c *Client) Heartbeat(ctx context.Context, code string) error {
	_, err := c.post(ctx, "/sessions/"+url.PathEscape(code)+"/heartbeat", []byte("{}"))
	return err
}

func (c *Client) post(ctx context.Context, path string, body []byte) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %s: %w", path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("POST %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &HTTPError{
			StatusCode: resp.StatusCode,
			Status:     http.StatusText(resp.StatusCode),
			Body:       string(errBody),
		}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response from %s: %w", path, err)
	}
	return data, nil
}

func decodeFields(raw []byte) (map[string]interface{}, error) {
	var fields map[string]interface{}
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return nil, fmt.Errorf("%w: body is not a JSON object", ErrInvalidResponse)
	}
	return fields, nil
}

func isString(v interface{}) bool {
	_, ok := v.(string)
	return ok
}
