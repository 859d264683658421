// Package oanda streams prices from the OANDA v20 pricing stream.
package oanda

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const (
	// PracticeURL is the streaming host for OANDA's practice/demo environment
	PracticeURL = "https://stream-fxpractice.oanda.com"
	// LiveURL is the streaming host for OANDA's live environment
	LiveURL = "https://stream-fxtrade.oanda.com"
)

// BaseURL maps an environment name to its streaming host.
func BaseURL(env string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "practice", "demo":
		return PracticeURL, nil
	case "live", "trade":
		return LiveURL, nil
	default:
		return "", fmt.Errorf("unknown OANDA env %q (want practice|live)", env)
	}
}

// Client is a minimal v20 REST client.
type Client struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
}

// NewClient returns a client for env ("practice" or "live").
func NewClient(env, token string) (*Client, error) {
	base, err := BaseURL(env)
	if err != nil {
		return nil, err
	}
	return &Client{BaseURL: base, Token: token}, nil
}

// Get issues an authorized GET and returns the response body. Any status
// other than 200 is an error carrying the start of the body.
func (c *Client) Get(ctx context.Context, path string, opts map[string]string) (io.ReadCloser, error) {
	if c.Token == "" {
		return nil, fmt.Errorf("oanda: missing token")
	}

	httpClient := c.HTTP
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return nil, err
	}
	u.Path = path

	q := u.Query()
	for k, v := range opts {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.Token)
	req.Header.Set("Accept-Datetime-Format", "RFC3339")

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		return nil, fmt.Errorf("oanda http %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	return resp.Body, nil
}
