// File: internal/services/ai/edge_function.go
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// EdgeFunctionClient invokes functions hosted by the backend at {BackendURL}/functions/v1/{name}.
type EdgeFunctionClient struct {
	config *Config
	client *http.Client
}

func NewEdgeFunctionClient(config *Config, client *http.Client) *EdgeFunctionClient {
	if client == nil {
		// Deadlines come from the timeout guard via the request context.
		client = &http.Client{}
	}
	return &EdgeFunctionClient{config: config, client: client}
}

func (c *EdgeFunctionClient) InvokeFunction(ctx context.Context, name string, payload json.RawMessage) (json.RawMessage, error) {
	if name == "" {
		return nil, NewValidationError("function name is required")
	}
	if len(payload) == 0 {
		payload = json.RawMessage("{}")
	}

	endpoint := strings.TrimRight(c.config.BackendURL, "/") + "/functions/v1/" + url.PathEscape(name)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, NewRemoteError(name, "failed to create request", 0, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	req.Header.Set("apikey", c.config.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, NewRemoteError(name, "request failed", 0, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewRemoteError(name, "failed to read response", resp.StatusCode, err)
	}
	return c.handleResponse(name, resp.StatusCode, body)
}

func (c *EdgeFunctionClient) handleResponse(name string, status int, body []byte) (json.RawMessage, error) {
	msg := errorField(body)

	if status < 200 || status >= 300 {
		if msg == "" {
			msg = strings.TrimSpace(string(body))
		}
		if msg == "" {
			msg = fmt.Sprintf("function returned status %d", status)
		}
		return nil, NewRemoteError(name, msg, status, nil)
	}
	if msg != "" {
		return nil, NewRemoteError(name, msg, status, nil)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return json.RawMessage("null"), nil
	}
	if !json.Valid(body) {
		return nil, NewRemoteError(name, "function returned invalid JSON", status, nil)
	}
	return json.RawMessage(body), nil
}

// errorField extracts a top-level {"error": ...} message from a function response.
func errorField(body []byte) string {
	var envelope struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Error) == 0 {
		return ""
	}
	var text string
	if err := json.Unmarshal(envelope.Error, &text); err == nil {
		return text
	}
	var obj struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(envelope.Error, &obj); err == nil {
		return obj.Message
	}
	return ""
}
