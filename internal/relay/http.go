package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"smartsession/internal/domain"
)

// maxErrorBody caps how much of a failed response is read for its message.
const maxErrorBody = 4 << 10

// APIError is a non-2xx relay response.
type APIError struct {
	Method  string
	Path    string
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("relay %s %s: %d %s", e.Method, e.Path, e.Status, http.StatusText(e.Status))
	}
	return e.Message
}

// Unwrap lets errors.Is match domain.ErrExternalCallFailed.
func (e *APIError) Unwrap() error { return domain.ErrExternalCallFailed }

func (c *Client) post(ctx context.Context, path string, in, out any, hdr http.Header) error {
	buf := new(bytes.Buffer)
	if err := json.NewEncoder(buf).Encode(in); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Base+path, buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range hdr {
		req.Header[k] = v
	}
	return c.do(req, path, out)
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.Base+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, path, out)
}

func (c *Client) do(req *http.Request, path string, out any) error {
	reqID := uuid.NewString()
	req.Header.Set(HeaderRequestID, reqID)
	req.Header.Set("Accept", "application/json")
	if c.APIKey != "" {
		req.Header.Set(HeaderAPIKey, c.APIKey)
	}

	c.logger().Trace("Relay request", "method", req.Method, "path", path, "id", reqID)
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("%w: relay %s %s: %w", domain.ErrExternalCallFailed, req.Method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		apiErr := &APIError{Method: req.Method, Path: path, Status: resp.StatusCode}
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		var er ErrorResponse
		if json.Unmarshal(body, &er) == nil && er.Error != "" {
			apiErr.Message = er.Error
		} else if s := strings.TrimSpace(string(body)); s != "" {
			apiErr.Message = s
		}
		c.logger().Debug("Relay request failed", "path", path, "status", resp.StatusCode, "id", reqID, "err", apiErr)
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: relay %s %s: bad response: %v", domain.ErrExternalCallFailed, req.Method, path, err)
	}
	return nil
}
