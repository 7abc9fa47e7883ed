// Package client talks to the TaskMaster HTTP API. It backs the taskctl
// command and the live dashboard view.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"

	"github.com/yukikurage/taskmaster/internal/constants"
	"github.com/yukikurage/taskmaster/internal/dto"
	apierrors "github.com/yukikurage/taskmaster/internal/errors"
	"github.com/yukikurage/taskmaster/internal/models"
	"github.com/yukikurage/taskmaster/internal/services"
)

// Error is a non-2xx response from the API.
type Error struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("request failed with status %d", e.StatusCode)
	}
	return e.Message
}

// Client is an API client holding the session cookie in its jar.
type Client struct {
	baseURL *url.URL
	apiKey  string
	http    *http.Client
}

// New creates a client for baseURL. A nil jar gets a fresh in-memory one.
func New(baseURL, apiKey string, jar http.CookieJar) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if jar == nil {
		jar, err = cookiejar.New(nil)
		if err != nil {
			return nil, err
		}
	}

	return &Client{
		baseURL: u,
		apiKey:  apiKey,
		http:    &http.Client{Jar: jar},
	}, nil
}

// BaseURL returns the API root.
func (c *Client) BaseURL() *url.URL {
	u := *c.baseURL
	return &u
}

// Jar returns the cookie jar holding the session.
func (c *Client) Jar() http.CookieJar {
	return c.http.Jar
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.String()+path, body)
	if err != nil {
		return nil, err
	}
	if c.apiKey != "" {
		req.Header.Set(constants.APIKeyHeader, c.apiKey)
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, out)
}

func decodeError(resp *http.Response) error {
	apiErr := &Error{StatusCode: resp.StatusCode}
	var body apierrors.APIError
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil {
		apiErr.Code = body.Code
		apiErr.Message = body.Message
	}
	return apiErr
}

// Signup registers an identity.
func (c *Client) Signup(ctx context.Context, email, password, fullName string) (*dto.SignupResponse, error) {
	var out dto.SignupResponse
	err := c.doJSON(ctx, http.MethodPost, "/api/auth/signup", map[string]string{
		"email":     email,
		"password":  password,
		"full_name": fullName,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Login starts a session.
func (c *Client) Login(ctx context.Context, email, password string) (*dto.UserDTO, error) {
	var out dto.UserDTO
	err := c.doJSON(ctx, http.MethodPost, "/api/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout ends the session.
func (c *Client) Logout(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodPost, "/api/auth/logout", nil, nil)
}

// Refresh renews the session cookie.
func (c *Client) Refresh(ctx context.Context) (*dto.UserDTO, error) {
	var out dto.UserDTO
	if err := c.doJSON(ctx, http.MethodPost, "/api/auth/refresh", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Session returns the signed-in user, or nil.
func (c *Client) Session(ctx context.Context) (*dto.UserDTO, error) {
	var out dto.SessionResponse
	if err := c.doJSON(ctx, http.MethodGet, "/api/auth/session", nil, &out); err != nil {
		return nil, err
	}
	return out.User, nil
}

// Confirm follows an email confirmation link's parameters.
func (c *Client) Confirm(ctx context.Context, tokenHash, typ string) (*dto.ConfirmResponse, error) {
	q := url.Values{}
	q.Set("token_hash", tokenHash)
	q.Set("type", typ)

	var out dto.ConfirmResponse
	if err := c.doJSON(ctx, http.MethodGet, "/api/auth/confirm?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ResendConfirmation asks for a new confirmation email.
func (c *Client) ResendConfirmation(ctx context.Context, email string) error {
	return c.doJSON(ctx, http.MethodPost, "/api/auth/resend", map[string]string{"email": email}, nil)
}

// ListTasks returns every task of the signed-in user, newest first.
func (c *Client) ListTasks(ctx context.Context) (*dto.TaskListResponse, error) {
	var out dto.TaskListResponse
	if err := c.doJSON(ctx, http.MethodGet, "/api/tasks", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// TaskInput is the task form. Empty fields are omitted.
type TaskInput struct {
	Title       string              `json:"title,omitempty"`
	Description string              `json:"description,omitempty"`
	Priority    models.TaskPriority `json:"priority,omitempty"`
}

// CreateTask adds a task.
func (c *Client) CreateTask(ctx context.Context, in TaskInput) (*dto.TaskDTO, error) {
	var out dto.TaskDTO
	if err := c.doJSON(ctx, http.MethodPost, "/api/tasks", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// TaskPatch holds the fields to change. Nil fields are left alone.
type TaskPatch struct {
	Title       *string              `json:"title,omitempty"`
	Description *string              `json:"description,omitempty"`
	Priority    *models.TaskPriority `json:"priority,omitempty"`
	IsComplete  *bool                `json:"is_complete,omitempty"`
}

// UpdateTask changes a task.
func (c *Client) UpdateTask(ctx context.Context, id string, patch TaskPatch) (*dto.TaskDTO, error) {
	var out dto.TaskDTO
	if err := c.doJSON(ctx, http.MethodPatch, "/api/tasks/"+url.PathEscape(id), patch, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ToggleTask flips a task's completion.
func (c *Client) ToggleTask(ctx context.Context, id string) (*dto.TaskDTO, error) {
	var out dto.TaskDTO
	if err := c.doJSON(ctx, http.MethodPost, "/api/tasks/"+url.PathEscape(id)+"/toggle", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteTask removes a task.
func (c *Client) DeleteTask(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/api/tasks/"+url.PathEscape(id), nil, nil)
}

// SuggestTasks asks the server to extract task candidates from text.
func (c *Client) SuggestTasks(ctx context.Context, text string) ([]services.SuggestedTask, error) {
	var out struct {
		Tasks []services.SuggestedTask `json:"tasks"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/api/tasks/suggest", map[string]string{"text": text}, &out); err != nil {
		return nil, err
	}
	return out.Tasks, nil
}

// GetProfile returns the signed-in user's profile.
func (c *Client) GetProfile(ctx context.Context) (*dto.ProfileDTO, error) {
	var out dto.ProfileDTO
	if err := c.doJSON(ctx, http.MethodGet, "/api/profile", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SaveProfile writes username and full name.
func (c *Client) SaveProfile(ctx context.Context, username, fullName string) (*dto.ProfileDTO, error) {
	var out dto.ProfileDTO
	err := c.doJSON(ctx, http.MethodPut, "/api/profile", map[string]string{
		"username":  username,
		"full_name": fullName,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// UploadAvatar sends an image as the "avatar" form file.
func (c *Client) UploadAvatar(ctx context.Context, filename string, r io.Reader) (*dto.ProfileDTO, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("avatar", filename)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/api/profile/avatar", &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var out dto.ProfileDTO
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
