// Package httpclient provides an HTTP client for REST APIs that answer
// failures with RFC 7807 problem documents. Problem responses are returned as
// *problem.Problem errors; other failures as *HTTPError.
package httpclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/tansive/problemadvice/pkg/problem"
)

const acceptHeader = problem.MediaType + ", application/json;q=0.9"

// HTTPError represents a non-problem error response from the server.
type HTTPError struct {
	Status  int    // HTTP status code of the error
	Message string // Response body
}

// Error implements the error interface for HTTPError.
func (e *HTTPError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.Status, http.StatusText(e.Status), e.Message)
}

// StatusCode returns the HTTP status of the response.
func (e *HTTPError) StatusCode() int {
	return e.Status
}

// HTTPClient represents a client for making HTTP requests to a REST API server.
type HTTPClient struct {
	serverURL  string
	httpClient *http.Client
}

// ClientOptions contains options for configuring the HTTP client.
type ClientOptions struct {
	Timeout time.Duration // Zero means no timeout
}

// NewClient creates a new HTTP client for the server at serverURL.
func NewClient(serverURL string, opts ...ClientOptions) *HTTPClient {
	clientOpts := ClientOptions{}
	if len(opts) > 0 {
		clientOpts = opts[0]
	}
	return &HTTPClient{
		serverURL:  serverURL,
		httpClient: &http.Client{Timeout: clientOpts.Timeout},
	}
}

// RequestOptions contains options for making HTTP requests.
type RequestOptions struct {
	Method      string            // HTTP method (GET, POST, PUT, DELETE)
	Path        string            // API endpoint path
	QueryParams map[string]string // Optional query parameters
	Body        []byte            // Optional request body
}

// DoRequest makes an HTTP request with the given options.
// Returns the response body, Location header (if present), and any error that occurred.
func (c *HTTPClient) DoRequest(ctx context.Context, opts RequestOptions) ([]byte, string, error) {
	u, err := url.Parse(c.serverURL)
	if err != nil {
		return nil, "", fmt.Errorf("invalid server URL: %v", err)
	}
	u.Path = path.Join(u.Path, opts.Path)

	q := u.Query()
	for k, v := range opts.QueryParams {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, opts.Method, u.String(), bytes.NewReader(opts.Body))
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %v", err)
	}
	req.Header.Set("Accept", acceptHeader)
	if len(opts.Body) > 0 {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read response body: %v", err)
	}

	if resp.StatusCode >= 400 {
		return nil, "", responseError(resp, body)
	}
	return body, resp.Header.Get("Location"), nil
}

// responseError decodes a problem response, falling back to an HTTPError when
// the body is not a problem document.
func responseError(resp *http.Response, body []byte) error {
	if isProblem(resp.Header.Get("Content-Type")) {
		if p, err := problem.Parse(body); err == nil {
			return p
		}
	}
	return &HTTPError{
		Status:  resp.StatusCode,
		Message: strings.TrimSpace(string(body)),
	}
}

func isProblem(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mt == problem.MediaType || mt == problem.XMediaType
}

// CreateResource posts data to resourceType.
// Returns the response body, Location header, and any error that occurred.
func (c *HTTPClient) CreateResource(ctx context.Context, resourceType string, data []byte) ([]byte, string, error) {
	return c.DoRequest(ctx, RequestOptions{
		Method: http.MethodPost,
		Path:   resourceType,
		Body:   data,
	})
}

// GetResource retrieves the resource at resourcePath.
func (c *HTTPClient) GetResource(ctx context.Context, resourcePath string, queryParams map[string]string) ([]byte, error) {
	body, _, err := c.DoRequest(ctx, RequestOptions{
		Method:      http.MethodGet,
		Path:        resourcePath,
		QueryParams: queryParams,
	})
	return body, err
}
