// Package client is a typed Go client for the chat gateway. It reads the API
// key from a CredentialStore on every call and forgets it when the gateway
// rejects it.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"gatewaychat/service"
)

// ErrUnauthorized matches any APIError with status 401.
var ErrUnauthorized = errors.New("unauthorized")

// APIError is a non-2xx gateway answer.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gateway returned %d: %s", e.Status, e.Message)
}

func (e *APIError) Is(target error) bool {
	return target == ErrUnauthorized && e.Status == http.StatusUnauthorized
}

type Client struct {
	baseURL    string
	store      CredentialStore
	HTTPClient *http.Client
}

func New(baseURL string, store CredentialStore) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		store:      store,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type SaveRequest struct {
	ChatID           string `json:"chatId,omitempty"`
	Title            string `json:"title,omitempty"`
	UserMessage      string `json:"userMessage"`
	AssistantMessage string `json:"assistantMessage,omitempty"`
	SaveChatHistory  *bool  `json:"saveChatHistory,omitempty"`
}

type SaveResponse struct {
	Success bool   `json:"success"`
	Saved   bool   `json:"saved"`
	ChatID  string `json:"chatId,omitempty"`
}

func (c *Client) SaveChat(ctx context.Context, req SaveRequest) (*SaveResponse, error) {
	var out SaveResponse
	if err := c.do(ctx, http.MethodPost, "/v1/chat/save", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) History(ctx context.Context) ([]service.ChatSummary, error) {
	var out struct {
		Chats []service.ChatSummary `json:"chats"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/chat/history", nil, &out); err != nil {
		return nil, err
	}
	return out.Chats, nil
}

func (c *Client) LoadChat(ctx context.Context, chatID string) (*service.ChatTranscript, error) {
	var out service.ChatTranscript
	if err := c.do(ctx, http.MethodPost, "/v1/chat/load", chatRef(chatID), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteChat(ctx context.Context, chatID string) error {
	return c.do(ctx, http.MethodPost, "/v1/chat/delete", chatRef(chatID), nil)
}

func (c *Client) ArchiveChat(ctx context.Context, chatID string) error {
	return c.do(ctx, http.MethodPost, "/v1/chat/archive", chatRef(chatID), nil)
}

// ExportChat returns the transcript rendered as "markdown" or "html".
func (c *Client) ExportChat(ctx context.Context, chatID, format string) ([]byte, error) {
	q := url.Values{"chatId": {chatID}}
	if format != "" {
		q.Set("format", format)
	}
	resp, err := c.send(ctx, http.MethodGet, "/v1/chat/export?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

func (c *Client) Automation(ctx context.Context) (*service.AutomationSettings, error) {
	var out service.AutomationSettings
	if err := c.do(ctx, http.MethodGet, "/v1/automation/settings", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateAutomation(ctx context.Context, settings service.AutomationSettings) (*service.AutomationSettings, error) {
	var out service.AutomationSettings
	if err := c.do(ctx, http.MethodPut, "/v1/automation/settings", settings, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func chatRef(chatID string) map[string]string {
	return map[string]string{"chatId": chatID}
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	resp, err := c.send(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

// send issues the request with the stored key. Non-2xx answers are returned
// as *APIError; a 401 also clears the store.
func (c *Client) send(ctx context.Context, method, path string, body interface{}) (*http.Response, error) {
	key, err := c.store.Load()
	if err != nil {
		return nil, err
	}

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", key)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}

	defer resp.Body.Close()
	var payload struct {
		Error string `json:"error"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&payload)
	if payload.Error == "" {
		payload.Error = http.StatusText(resp.StatusCode)
	}
	if resp.StatusCode == http.StatusUnauthorized {
		if err := c.store.Clear(); err != nil {
			return nil, fmt.Errorf("clear rejected credential: %w", err)
		}
	}
	return nil, &APIError{Status: resp.StatusCode, Message: payload.Error}
}
