// Package client is an HTTP client for the catalog API.
package client

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/mrlokans/catalog/internal/courses"
	"github.com/mrlokans/catalog/internal/entities"
)

// APIError is a non-2xx response from the API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api error: status %d", e.Status)
	}
	return fmt.Sprintf("api error: status %d: %s", e.Status, e.Message)
}

type errorBody struct {
	Error string `json:"error"`
}

// TokenResponse is the body of a successful password grant.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

type courseEnvelope struct {
	Message string          `json:"message"`
	Course  entities.Course `json:"course"`
}

type deleteEnvelope struct {
	Message string          `json:"message"`
	Deleted entities.Course `json:"deleted"`
}

// Client talks to one catalog server.
type Client struct {
	http *resty.Client
}

// New creates a client for baseURL, e.g. "http://localhost:8188".
func New(baseURL string, timeout time.Duration) *Client {
	r := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetError(&errorBody{})
	return &Client{http: r}
}

// SetToken authenticates subsequent requests with a bearer token.
func (c *Client) SetToken(token string) {
	c.http.SetAuthToken(token)
}

// Login exchanges credentials for an access token and keeps it.
func (c *Client) Login(ctx context.Context, email, password string) (*TokenResponse, error) {
	var out TokenResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]string{"email": email, "password": password}).
		SetResult(&out).
		Post("/api/auth/token")
	if err := check(resp, err); err != nil {
		return nil, err
	}
	c.SetToken(out.AccessToken)
	return &out, nil
}

// ListCourses returns all courses, optionally filtered by query.
func (c *Client) ListCourses(ctx context.Context, query string) ([]entities.Course, error) {
	var out []entities.Course
	req := c.http.R().SetContext(ctx).SetResult(&out)
	if query != "" {
		req.SetQueryParam("q", query)
	}
	resp, err := req.Get("/api/courses")
	if err := check(resp, err); err != nil {
		return nil, err
	}
	return out, nil
}

// GetCourse returns the detail view of one course.
func (c *Client) GetCourse(ctx context.Context, id string) (*courses.Detail, error) {
	var out courses.Detail
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("id", id).
		SetResult(&out).
		Get("/api/courses/{id}")
	if err := check(resp, err); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateCourse adds a course. It needs an admin token.
func (c *Client) CreateCourse(ctx context.Context, req courses.CreateRequest) (*entities.Course, error) {
	var out courseEnvelope
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&out).
		Post("/api/courses")
	if err := check(resp, err); err != nil {
		return nil, err
	}
	return &out.Course, nil
}

// DeleteCourse removes a course and returns it. It needs an admin token.
func (c *Client) DeleteCourse(ctx context.Context, id string) (*entities.Course, error) {
	var out deleteEnvelope
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("id", id).
		SetResult(&out).
		Delete("/api/courses")
	if err := check(resp, err); err != nil {
		return nil, err
	}
	return &out.Deleted, nil
}

func check(resp *resty.Response, err error) error {
	if err != nil {
		return err
	}
	if resp.IsSuccess() {
		return nil
	}
	apiErr := &APIError{Status: resp.StatusCode()}
	if body, ok := resp.Error().(*errorBody); ok && body != nil {
		apiErr.Message = body.Error
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode())
	}
	return apiErr
}
