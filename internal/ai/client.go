// Package ai talks to the external natural-language service that turns
// free-form text into structured expense drafts and answers spending
// questions. Every response from it is treated as untrusted input.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
)

const defaultTimeout = 30 * time.Second

// Client is the HTTP transport shared by the parser and the advisor. The
// retry policy is: transport failures, timeouts and 5xx answers get exactly
// one retry; everything else fails immediately.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// postJSON sends the payload and decodes the response body into out. A
// retryable failure is attempted twice in total; a malformed body or a 4xx
// answer is returned on the first attempt.
func (c *Client) postJSON(ctx context.Context, op, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%s: marshal request: %w", op, err)
	}

	backoff := retry.WithMaxRetries(1, retry.NewConstant(250*time.Millisecond))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost,
			c.baseURL+path, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("%s: build request: %w", op, err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return retry.RetryableError(&UpstreamError{Op: op, Err: err})
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 {
			io.Copy(io.Discard, resp.Body)
			return retry.RetryableError(&UpstreamError{Op: op, Status: resp.StatusCode})
		}
		if resp.StatusCode != http.StatusOK {
			return &UpstreamError{Op: op, Status: resp.StatusCode}
		}

		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return &MalformedError{Op: op, Reason: "invalid JSON body"}
		}
		return nil
	})
}
