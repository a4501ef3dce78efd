package wan

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

// DefaultBaseURL is the international DashScope API root.
const DefaultBaseURL = "https://dashscope-intl.aliyuncs.com/api/v1"

const (
	synthesisPath = "/services/aigc/video-generation/video-synthesis"
	tasksPath     = "/tasks/"
	asyncHeader   = "X-DashScope-Async"
)

// Client defines the interface for interacting with the Wan video-synthesis API.
type Client interface {
	// Submit creates an asynchronous synthesis task and returns its handle.
	Submit(ctx context.Context, payload Payload) (TaskHandle, error)

	// Poll performs one status check for a task.
	Poll(ctx context.Context, handle TaskHandle) (PollResult, error)
}

// HTTPClient is the HTTP implementation of the Wan Client interface.
type HTTPClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// ClientOption is a function that configures an HTTPClient.
type ClientOption func(*HTTPClient)

// WithAPIKey sets the API key for authentication.
func WithAPIKey(key string) ClientOption {
	return func(hc *HTTPClient) {
		hc.apiKey = strings.TrimSpace(key)
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(hc *HTTPClient) {
		if c != nil {
			hc.httpClient = c
		}
	}
}

// WithBaseURL sets a custom base URL for the DashScope API.
func WithBaseURL(u string) ClientOption {
	return func(hc *HTTPClient) {
		if u = strings.TrimRight(strings.TrimSpace(u), "/"); u != "" {
			hc.baseURL = u
		}
	}
}

// NewClient creates a new Wan HTTP client.
// The API key can be set via the WithAPIKey option. If not provided, it is read
// from DASHSCOPE_API_KEY, then ALI_MODEL_STUDIO_API_KEY. A missing key is not
// an error here; every call reports ErrConfiguration before touching the network.
func NewClient(opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.apiKey == "" {
		c.apiKey = strings.TrimSpace(os.Getenv("DASHSCOPE_API_KEY"))
	}
	if c.apiKey == "" {
		c.apiKey = strings.TrimSpace(os.Getenv("ALI_MODEL_STUDIO_API_KEY"))
	}

	return c
}

// HasCredentials reports whether the client can perform remote calls.
func (c *HTTPClient) HasCredentials() bool {
	return c.apiKey != ""
}

// Submit creates an asynchronous synthesis task.
// Transport failures, non-2xx responses and provider error codes all surface as
// ErrSubmission. A success response without a task id or result URL is ErrContract.
func (c *HTTPClient) Submit(ctx context.Context, payload Payload) (TaskHandle, error) {
	if !c.HasCredentials() {
		return TaskHandle{}, ErrConfiguration
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return TaskHandle{}, fmt.Errorf("wan: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+synthesisPath, bytes.NewReader(body))
	if err != nil {
		return TaskHandle{}, fmt.Errorf("wan: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(asyncHeader, "enable")

	status, raw, err := c.do(req)
	if err != nil {
		return TaskHandle{}, &ProviderError{Kind: ErrSubmission, Err: err}
	}
	if status < 200 || status >= 300 {
		return TaskHandle{}, &ProviderError{Kind: ErrSubmission, StatusCode: status, Body: strings.TrimSpace(string(raw))}
	}

	var resp createTaskResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return TaskHandle{}, &ProviderError{Kind: ErrContract, StatusCode: status, Body: strings.TrimSpace(string(raw)), Err: err}
	}
	if resp.Code != "" {
		return TaskHandle{}, &ProviderError{Kind: ErrSubmission, StatusCode: status, Body: fmt.Sprintf("%s: %s", resp.Code, resp.Message)}
	}

	handle := TaskHandle{
		TaskID:  strings.TrimSpace(resp.Output.TaskID),
		PollURL: strings.TrimSpace(resp.Output.ResultURL),
	}
	if handle.IsZero() {
		return TaskHandle{}, &ProviderError{Kind: ErrContract, StatusCode: status, Body: strings.TrimSpace(string(raw))}
	}

	return handle, nil
}

// Poll performs one status check. The direct poll URL wins over the task id but
// must share the scheme and host of the base URL, since the request carries the
// API key. Any failure to obtain a decodable status body is reported as ErrTransient.
func (c *HTTPClient) Poll(ctx context.Context, handle TaskHandle) (PollResult, error) {
	if !c.HasCredentials() {
		return PollResult{}, ErrConfiguration
	}
	if handle.IsZero() {
		return PollResult{}, fmt.Errorf("%w: task ID or poll URL required", ErrValidation)
	}

	target := handle.PollURL
	if target == "" {
		target = c.baseURL + tasksPath + url.PathEscape(handle.TaskID)
	} else if !c.sameOrigin(target) {
		return PollResult{}, fmt.Errorf("%w: poll URL host not allowed", ErrValidation)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return PollResult{}, fmt.Errorf("%w: create request: %v", ErrValidation, err)
	}

	status, raw, err := c.do(req)
	if err != nil {
		return PollResult{}, &ProviderError{Kind: ErrTransient, Err: err}
	}
	if status < 200 || status >= 300 {
		return PollResult{}, &ProviderError{Kind: ErrTransient, StatusCode: status, Body: strings.TrimSpace(string(raw))}
	}

	var resp taskStatusResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return PollResult{}, &ProviderError{Kind: ErrTransient, StatusCode: status, Body: strings.TrimSpace(string(raw)), Err: err}
	}

	taskID := resp.Output.TaskID
	if taskID == "" {
		taskID = handle.TaskID
	}

	return PollResult{
		TaskID:   taskID,
		Status:   TaskStatus(strings.ToUpper(strings.TrimSpace(resp.Output.TaskStatus))),
		VideoURL: strings.TrimSpace(resp.Output.VideoURL),
		Message:  coalesce(resp.Output.Message, resp.Message),
	}, nil
}

// do performs a single authenticated request and returns the status code and body.
func (c *HTTPClient) do(req *http.Request) (int, []byte, error) {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, raw, nil
}

// sameOrigin reports whether target points at the API host.
func (c *HTTPClient) sameOrigin(target string) bool {
	u, err := url.Parse(target)
	if err != nil {
		return false
	}
	base, err := url.Parse(c.baseURL)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Scheme, base.Scheme) && strings.EqualFold(u.Host, base.Host)
}

func coalesce(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// Compile-time check that HTTPClient implements Client.
var _ Client = (*HTTPClient)(nil)
