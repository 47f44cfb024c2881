package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	"wedding-site/internal/models"
)

// maxErrorBody bounds how much of an error response is read looking for a message
const maxErrorBody = 64 << 10

// Client talks JSON to the wedding site API
type Client struct {
	baseURL string
	http    *http.Client
	log     zerolog.Logger
}

// NewClient creates a client for the API rooted at baseURL. A nil httpClient
// means http.DefaultClient.
func NewClient(baseURL string, httpClient *http.Client, logger zerolog.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		log:     logger.With().Str("component", "API").Logger(),
	}
}

// Register creates a guest account
func (c *Client) Register(ctx context.Context, name, email, password string) (models.AuthResponse, error) {
	var resp models.AuthResponse
	body := map[string]string{"name": name, "email": email, "password": password}
	err := c.do(ctx, "register", http.MethodPost, "/auth/register", "", body, &resp)
	return resp, err
}

// Login verifies the credentials of an existing guest account
func (c *Client) Login(ctx context.Context, email, password string) (models.AuthResponse, error) {
	var resp models.AuthResponse
	body := map[string]string{"email": email, "password": password}
	err := c.do(ctx, "login", http.MethodPost, "/auth/login", "", body, &resp)
	return resp, err
}

// AdminLogin exchanges the couple's code for an admin token
func (c *Client) AdminLogin(ctx context.Context, code string) (string, error) {
	var resp models.AdminTokenResponse
	err := c.do(ctx, "admin login", http.MethodPost, "/admin/login", "", map[string]string{"code": code}, &resp)
	return resp.Token, err
}

// CreateRSVP submits a new RSVP. No token is sent.
func (c *Client) CreateRSVP(ctx context.Context, req models.RSVPRequest) (models.RSVP, error) {
	var created models.RSVP
	err := c.do(ctx, "create rsvp", http.MethodPost, "/rsvps", "", req, &created)
	return created, err
}

// GetRSVP fetches a single RSVP by id
func (c *Client) GetRSVP(ctx context.Context, id string) (models.RSVP, error) {
	var rsvp models.RSVP
	err := c.do(ctx, "get rsvp", http.MethodGet, "/rsvps/"+url.PathEscape(id), "", nil, &rsvp)
	return rsvp, err
}

// ListRSVPs fetches every RSVP; requires an admin token
func (c *Client) ListRSVPs(ctx context.Context, adminToken string) ([]models.RSVP, error) {
	var list []models.RSVP
	if err := c.do(ctx, "list rsvps", http.MethodGet, "/admin/rsvps", adminToken, nil, &list); err != nil {
		return nil, err
	}
	if list == nil {
		list = []models.RSVP{}
	}
	return list, nil
}

// UpdateRSVPStatus changes the status of an RSVP; requires an admin token
func (c *Client) UpdateRSVPStatus(ctx context.Context, adminToken, id string, status models.RSVPStatus) (models.RSVP, error) {
	var updated models.RSVP
	path := "/admin/rsvps/" + url.PathEscape(id) + "/status"
	err := c.do(ctx, "update rsvp status", http.MethodPatch, path, adminToken, models.StatusUpdate{Status: status}, &updated)
	return updated, err
}

// do performs one request. Transport failures come back as
// *models.NetworkError, non-2xx responses as *models.ServerRejection and
// undecodable 2xx bodies as *models.MalformedResponseError.
func (c *Client) do(ctx context.Context, op, method, path, token string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: failed to marshal request: %w", op, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("%s: failed to build request: %w", op, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	c.log.Debug().Str("method", method).Str("path", path).Msg("Sending request")

	resp, err := c.http.Do(req)
	if err != nil {
		return &models.NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		rejection := &models.ServerRejection{Op: op, Status: resp.StatusCode}
		var errBody struct {
			Message string `json:"message"`
		}
		if data, readErr := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody)); readErr == nil {
			if json.Unmarshal(data, &errBody) == nil {
				rejection.Message = errBody.Message
			}
		}
		return rejection
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &models.MalformedResponseError{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	return nil
}
