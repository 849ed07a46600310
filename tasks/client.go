package tasks

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

	"github.com/google/uuid"
	"go.uber.org/zap"

	"receipt-e2e/types"
)

// Client calls tasks on a task server from the browser-driving side
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a bridge client. timeout bounds one task round-trip.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Invoke calls the named task with arg and waits for it to settle
func (c *Client) Invoke(ctx context.Context, name, arg string) (string, error) {
	reqID := uuid.NewString()
	logger := zap.L().With(zap.String("task", name), zap.String("request_id", reqID))

	body, err := json.Marshal(types.TaskRequest{ID: reqID, Arg: arg})
	if err != nil {
		return "", fmt.Errorf("marshaling task request: %w", err)
	}

	endpoint := c.baseURL + "/task/" + url.PathEscape(name)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	logger.Debug("calling task", zap.String("arg", arg))
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("task %s: %w", name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", fmt.Errorf("%s: %w", name, ErrTaskNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("task %s failed: %s", name, errorMessage(resp))
	}

	var result types.TaskResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("task %s: decoding response: %w", name, err)
	}
	return result.Value, nil
}

// Health checks that the task server is reachable
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("task server unreachable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("task server unhealthy: status %d", resp.StatusCode)
	}
	return nil
}

// errorMessage reads the task error out of a failed response, falling back to
// the HTTP status when the body is not a task response
func errorMessage(resp *http.Response) string {
	var result types.TaskResponse
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(body, &result); err == nil && result.Error != "" {
		return result.Error
	}
	return resp.Status
}
