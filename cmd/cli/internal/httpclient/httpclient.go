package httpclient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/telehostca/chatbot-backend/cmd/cli/internal/config"
)

type HTTPClient struct {
	client *http.Client
}

// APIError is the error document returned by the admin API.
type APIError struct {
	Status   int      `json:"-"`
	ErrorMsg string   `json:"error"`
	Message  string   `json:"message"`
	Fields   []string `json:"fields"`
}

func (e APIError) Error() string {
	message := e.ErrorMsg
	if e.Message != "" && e.Message != message {
		if message != "" {
			message += ": "
		}
		message += e.Message
	}
	if message == "" {
		message = fmt.Sprintf("HTTP %d error", e.Status)
	}
	if len(e.Fields) > 0 {
		message += "\n  - " + strings.Join(e.Fields, "\n  - ")
	}
	return message
}

// NewClient creates a new HTTP client with configuration
func NewClient() *HTTPClient {
	cfg := config.GetConfig()
	return &HTTPClient{
		client: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
	}
}

func (c *HTTPClient) do(method, url string, body, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %v", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to perform request: %v", err)
	}
	return handleResponse(resp, result)
}

// handleResponse processes the HTTP response and handles errors
func handleResponse(resp *http.Response, result interface{}) error {
	defer func(Body io.ReadCloser) {
		_ = Body.Close()
	}(resp.Body)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %v", err)
	}

	if resp.StatusCode >= 400 {
		var apiErr APIError
		if err := json.Unmarshal(body, &apiErr); err != nil {
			return fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
		}
		apiErr.Status = resp.StatusCode
		return apiErr
	}

	if result != nil && len(body) > 0 {
		dec := json.NewDecoder(bytes.NewReader(body))
		dec.UseNumber()
		if err := dec.Decode(result); err != nil {
			return fmt.Errorf("failed to unmarshal response: %v", err)
		}
	}
	return nil
}

// Get performs a GET request
func (c *HTTPClient) Get(url string, result interface{}) error {
	return c.do(http.MethodGet, url, nil, result)
}

// Post performs a POST request
func (c *HTTPClient) Post(url string, body, result interface{}) error {
	return c.do(http.MethodPost, url, body, result)
}

// Put performs a PUT request
func (c *HTTPClient) Put(url string, body, result interface{}) error {
	return c.do(http.MethodPut, url, body, result)
}

// Patch performs a PATCH request
func (c *HTTPClient) Patch(url string, body, result interface{}) error {
	return c.do(http.MethodPatch, url, body, result)
}

// Delete performs a DELETE request
func (c *HTTPClient) Delete(url string, result interface{}) error {
	return c.do(http.MethodDelete, url, nil, result)
}

var client *HTTPClient

// GetClient returns a singleton HTTP client
func GetClient() *HTTPClient {
	if client == nil {
		client = NewClient()
	}
	return client
}
