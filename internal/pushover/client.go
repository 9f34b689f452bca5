package pushover

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hcissey0/fitpal-notify/internal/scheduler"
)

const defaultEndpoint = "https://api.pushover.net/1/messages.json"

type Client struct {
	Token    string
	User     string
	Endpoint string
	HTTP     *http.Client
}

func NewClient(token, user string) *Client {
	return &Client{
		Token:    token,
		User:     user,
		Endpoint: defaultEndpoint,
		HTTP:     &http.Client{Timeout: 15 * time.Second},
	}
}

// Deliver sends a fired reminder as a Pushover message.
func (c *Client) Deliver(ctx context.Context, p scheduler.Payload) error {
	return c.SendMessage(ctx, p.Title, p.Body)
}

func (c *Client) SendMessage(ctx context.Context, title, message string) error {
	params := url.Values{}
	params.Set("token", c.Token)
	params.Set("user", c.User)
	params.Set("title", title)
	params.Set("message", message)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, strings.NewReader(params.Encode()))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("pushover api error: status %s, body %s", resp.Status, string(body))
	}
	return nil
}
