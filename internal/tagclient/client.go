package tagclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/pbaille/kbtags/internal/domain"
	"github.com/pbaille/kbtags/internal/store"
)

// APIError is a non-2xx response from the kb API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error (status %d): %s", e.Status, e.Message)
}

// Is maps well-known statuses onto store sentinels.
func (e *APIError) Is(target error) bool {
	switch target {
	case store.ErrNotFound:
		return e.Status == http.StatusNotFound
	case store.ErrNameTaken:
		return e.Status == http.StatusConflict
	case store.ErrInvalidName:
		return e.Status == http.StatusBadRequest
	}
	return false
}

// Client talks to a running `kb serve`.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a Client for the server at baseURL. A nil httpClient uses
// http.DefaultClient.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{baseURL: baseURL, http: httpClient}
}

// ListTags returns the flat tag list with binding counts.
func (c *Client) ListTags(ctx context.Context) ([]domain.Tag, error) {
	var resp struct {
		Flat []domain.Tag `json:"flat"`
	}
	if err := c.do(ctx, http.MethodGet, "/tags", nil, &resp); err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	return resp.Flat, nil
}

// GetTag fetches a single tag.
func (c *Client) GetTag(ctx context.Context, id string) (*domain.Tag, error) {
	var tag domain.Tag
	if err := c.do(ctx, http.MethodGet, "/tags/"+url.PathEscape(id), nil, &tag); err != nil {
		return nil, fmt.Errorf("get tag: %w", err)
	}
	return &tag, nil
}

// RenameTag renames tag id to name.
func (c *Client) RenameTag(ctx context.Context, id, name string) error {
	body := renameRequest{Name: name}
	if err := c.do(ctx, http.MethodPatch, "/tags/"+url.PathEscape(id), body, nil); err != nil {
		return fmt.Errorf("rename tag: %w", err)
	}
	return nil
}

// DeleteTag deletes tag id.
func (c *Client) DeleteTag(ctx context.Context, id string) error {
	if err := c.do(ctx, http.MethodDelete, "/tags/"+url.PathEscape(id), nil, nil); err != nil {
		return fmt.Errorf("delete tag: %w", err)
	}
	return nil
}

type renameRequest struct {
	Name string `json:"name"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var reqBody io.Reader
	if in != nil {
		jsonBody, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode, Message: string(body)}
		var er errorResponse
		if json.Unmarshal(body, &er) == nil && er.Error != "" {
			apiErr.Message = er.Error
		}
		return apiErr
	}

	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}
