package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"cuidarmed_chat_client/internal/chat/domain"
)

// restClient is the shared HTTP plumbing for the collaborator microservices.
// Every request carries the session bearer token and a bounded timeout; a
// timeout or connection failure surfaces as domain.ErrTransientNetwork so
// read paths can recover locally.
type restClient struct {
	base   string
	bearer string
	http   *http.Client
}

func newRESTClient(baseURL, bearer string, timeout time.Duration) *restClient {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &restClient{
		base:   strings.TrimRight(baseURL, "/"),
		bearer: bearer,
		http:   &http.Client{Timeout: timeout},
	}
}

func (c *restClient) getJSON(ctx context.Context, path string, query url.Values, out interface{}) error {
	u := c.base + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *restClient) postJSON(ctx context.Context, path string, body interface{}, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *restClient) do(req *http.Request, out interface{}) error {
	if c.bearer != "" {
		req.Header.Set("Authorization", "Bearer "+c.bearer)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		// timeouts and connectivity failures are recoverable
		return fmt.Errorf("%w: %v", domain.ErrTransientNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return fmt.Errorf("%w: %s returned %d", domain.ErrTransientNetwork, req.URL.Path, resp.StatusCode)
	}
	if resp.StatusCode == http.StatusNotFound {
		return domain.ErrRoomNotFound
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("request %s rejected with %d", req.URL.Path, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s: %v", domain.ErrTransientNetwork, req.URL.Path, err)
	}
	return nil
}
