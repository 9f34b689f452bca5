// Package planapi reads the user's profile and fitness plans from the FitPal
// REST backend. Requests are authenticated with a bearer token and paced by a
// token bucket limiter.
package planapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/hcissey0/fitpal-notify/internal/domain"
)

// ErrUnauthorized is returned when the backend rejects the token.
var ErrUnauthorized = errors.New("fitpal api: unauthorized")

// Client is the FitPal backend client.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	limiter    *rate.Limiter
	log        *zap.Logger
}

// NewClient creates a rate-limited client. requestsPerMinute <= 0 disables pacing.
func NewClient(baseURL, token string, requestsPerMinute int, log *zap.Logger) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		log:        log,
	}
	if requestsPerMinute > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(float64(requestsPerMinute)/60.0), 2)
	}
	return c
}

// Profile fetches /users/me/profile/.
func (c *Client) Profile(ctx context.Context) (domain.Profile, error) {
	var p domain.Profile
	err := c.get(ctx, "/users/me/profile/", &p)
	return p, err
}

// Plans fetches /users/me/plans/.
func (c *Client) Plans(ctx context.Context) ([]domain.FitnessPlan, error) {
	var plans []domain.FitnessPlan
	err := c.get(ctx, "/users/me/plans/", &plans)
	return plans, err
}

// Status reports whether the backend answers /status/.
func (c *Client) Status(ctx context.Context) error {
	return c.get(ctx, "/status/", nil)
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limit wait: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}
	c.log.Debug("fitpal api request",
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("took", time.Since(start)),
	)

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return ErrUnauthorized
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("fitpal api %s returned %d: %s", path, resp.StatusCode, truncate(body, 200))
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
