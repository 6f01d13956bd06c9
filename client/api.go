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
	"strconv"
	"strings"
	"time"

	"civicreport-be/models"
)

// ErrRateLimited is returned when the server refuses a new issue because
// the caller exhausted their daily allowance.
var ErrRateLimited = errors.New("rate limit exceeded")

// APIError is a failure response that maps to no sentinel.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error (%d): %s", e.Status, e.Message)
}

// APIClient talks to the issue REST API on behalf of a Session.
type APIClient struct {
	httpClient *http.Client
	baseURL    string
	session    *Session
}

// NewAPIClient returns a client for the server at baseURL. A nil httpClient
// uses one with a 20 second timeout.
func NewAPIClient(baseURL string, session *Session, httpClient *http.Client) *APIClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 20 * time.Second}
	}
	if session == nil {
		session = NewSession()
	}
	return &APIClient{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		session:    session,
	}
}

func (c *APIClient) Session() *Session { return c.session }

func (c *APIClient) ListIssues(ctx context.Context, filter models.IssueFilter) ([]models.Issue, error) {
	q := url.Values{}
	if filter.Status != "" {
		q.Set("status", filter.Status)
	}
	if filter.Category != "" {
		q.Set("category", filter.Category)
	}
	if !filter.ReportedBy.IsZero() {
		q.Set("reportedBy", filter.ReportedBy.Hex())
	}
	if filter.Search != "" {
		q.Set("search", filter.Search)
	}
	if filter.Sort != "" {
		q.Set("sort", filter.Sort)
	}
	path := "/api/issues"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var out []models.Issue
	if err := c.request(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *APIClient) GetIssue(ctx context.Context, id string) (*models.Issue, error) {
	var out models.Issue
	if err := c.request(ctx, http.MethodGet, "/api/issues/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *APIClient) Stats(ctx context.Context) (*models.IssueStats, error) {
	var out models.IssueStats
	if err := c.request(ctx, http.MethodGet, "/api/issues/stats", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *APIClient) CreateIssue(ctx context.Context, in models.CreateIssueInput) (*models.Issue, error) {
	var out models.Issue
	if err := c.request(ctx, http.MethodPost, "/api/issues", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *APIClient) UpdateIssue(ctx context.Context, id string, patch models.IssuePatch) (*models.Issue, error) {
	var out models.Issue
	if err := c.request(ctx, http.MethodPatch, "/api/issues/"+url.PathEscape(id), patch, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *APIClient) DeleteIssue(ctx context.Context, id string) error {
	return c.request(ctx, http.MethodDelete, "/api/issues/"+url.PathEscape(id), nil, nil)
}

func (c *APIClient) AddComment(ctx context.Context, issueID, content string) (*models.Comment, error) {
	var out models.Comment
	body := map[string]string{"content": content}
	if err := c.request(ctx, http.MethodPost, "/api/issues/"+url.PathEscape(issueID)+"/comments", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ToggleUpvote reports whether the caller's vote is now cast and the new total.
func (c *APIClient) ToggleUpvote(ctx context.Context, issueID string) (bool, int64, error) {
	var out struct {
		Voted   bool  `json:"voted"`
		Upvotes int64 `json:"upvotes"`
	}
	if err := c.request(ctx, http.MethodPost, "/api/issues/"+url.PathEscape(issueID)+"/upvote", nil, &out); err != nil {
		return false, 0, err
	}
	return out.Voted, out.Upvotes, nil
}

type authResponse struct {
	User  models.User `json:"user"`
	Token string      `json:"token"`
}

// Register creates an account and authenticates the session with it.
func (c *APIClient) Register(ctx context.Context, name, email, password string) (*models.User, error) {
	body := map[string]string{"name": name, "email": email, "password": password}
	return c.authenticate(ctx, "/api/auth/register", body)
}

// Login authenticates the session.
func (c *APIClient) Login(ctx context.Context, email, password string) (*models.User, error) {
	body := map[string]string{"email": email, "password": password}
	return c.authenticate(ctx, "/api/auth/login", body)
}

func (c *APIClient) authenticate(ctx context.Context, path string, body any) (*models.User, error) {
	var out authResponse
	if err := c.request(ctx, http.MethodPost, path, body, &out); err != nil {
		return nil, err
	}
	if err := c.session.Authenticate(out.Token, out.User); err != nil {
		return nil, err
	}
	return &out.User, nil
}

// Logout clears the session even when the server cannot be reached.
func (c *APIClient) Logout(ctx context.Context) error {
	err := c.request(ctx, http.MethodPost, "/api/auth/logout", nil, nil)
	c.session.Clear()
	return err
}

func (c *APIClient) Me(ctx context.Context) (*models.User, error) {
	var out models.User
	if err := c.request(ctx, http.MethodGet, "/api/auth/me", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *APIClient) request(ctx context.Context, method, path string, in any, out any) error {
	var body io.Reader
	if in != nil {
		buf := &bytes.Buffer{}
		if err := json.NewEncoder(buf).Encode(in); err != nil {
			return err
		}
		body = buf
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.session.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%s %s: %w: %w", method, path, models.ErrStorageUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

type errorBody struct {
	Error      string              `json:"error"`
	Fields     []models.FieldError `json:"fields"`
	RetryAfter int64               `json:"retry_after"`
}

// decodeError maps a failure response back onto the models sentinels.
func decodeError(resp *http.Response) error {
	payload, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var body errorBody
	if err := json.Unmarshal(payload, &body); err != nil || body.Error == "" {
		body.Error = strings.TrimSpace(string(payload))
	}

	switch resp.StatusCode {
	case http.StatusBadRequest:
		if len(body.Fields) > 0 {
			return &models.ValidationError{Errors: body.Fields}
		}
		return fmt.Errorf("%w: %s", models.ErrValidation, body.Error)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s", models.ErrUnauthorized, body.Error)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", models.ErrNotFound, body.Error)
	case http.StatusConflict:
		if body.Error == "conflict" {
			return fmt.Errorf("%w: %s", models.ErrConflict, body.Error)
		}
		return fmt.Errorf("%w: %s", models.ErrAlreadyExists, body.Error)
	case http.StatusTooManyRequests:
		retry := time.Duration(body.RetryAfter) * time.Second
		if h := resp.Header.Get("Retry-After"); retry == 0 && h != "" {
			if s, err := strconv.Atoi(h); err == nil {
				retry = time.Duration(s) * time.Second
			}
		}
		return fmt.Errorf("%w: retry after %s", ErrRateLimited, retry)
	case http.StatusServiceUnavailable, http.StatusBadGateway, http.StatusGatewayTimeout:
		return fmt.Errorf("%w: %s", models.ErrStorageUnavailable, body.Error)
	}
	return &APIError{Status: resp.StatusCode, Message: body.Error}
}
