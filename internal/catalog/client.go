// Package catalog pulls seller records from a commerce catalog export
// endpoint. The endpoint returns one seller object or an array of them in the
// same JSON shape `seller import --file` reads.
package catalog

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/example/storehours/internal/sellers"
)

const maxBody = 32 << 20

type Client struct {
	hc    *http.Client
	token string
}

// New returns a client that sends token as a bearer credential when set.
func New(token string) *Client {
	return &Client{
		hc:    &http.Client{Timeout: 10 * time.Second},
		token: token,
	}
}

// Sellers fetches and decodes the export at rawURL.
func (c *Client) Sellers(ctx context.Context, rawURL string) ([]sellers.Seller, error) {
	status, body, err := c.do(ctx, http.MethodGet, rawURL)
	if err != nil {
		return nil, err
	}
	if status >= 400 {
		var r struct {
			Message string `json:"message"`
			Error   string `json:"error"`
		}
		_ = json.Unmarshal(body, &r)
		if msg := firstNonEmpty(r.Message, r.Error); msg != "" {
			return nil, fmt.Errorf("catalog fetch failed: %s (status=%d)", msg, status)
		}
		return nil, fmt.Errorf("catalog fetch failed (status=%d)", status)
	}
	return sellers.ParseJSON(body)
}

func (c *Client) do(ctx context.Context, method, rawURL string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("accept", "application/json")
	req.Header.Set("user-agent", "storehours")
	if c.token != "" {
		req.Header.Set("authorization", "Bearer "+c.token)
	}

	res, err := c.hc.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer res.Body.Close()

	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(res.Body, maxBody+1))
	if err != nil {
		return res.StatusCode, nil, err
	}
	if n > maxBody {
		return res.StatusCode, nil, fmt.Errorf("catalog response exceeds %d bytes", maxBody)
	}
	return res.StatusCode, buf.Bytes(), nil
}

func firstNonEmpty(ss ...string) string {
	for _, s := range ss {
		if s != "" {
			return s
		}
	}
	return ""
}
