// Package graphapi is a client for the Microsoft Graph external
// connections API, covering the small surface the connector needs:
// connection provisioning, asynchronous schema registration, and
// idempotent item upsert.
package graphapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/coder/retry"
	"golang.org/x/oauth2/clientcredentials"
)

const defaultBaseURL = "https://graph.microsoft.com/v1.0"

// ErrNotFound signals that a connection or schema does not exist yet.
// It drives provisioning and is not a failure.
var ErrNotFound = errors.New("not found")

// ConsentRequiredError is returned when the destination rejects our
// credentials with 401/403. It is terminal for a bootstrap: an admin
// must grant consent before anything can proceed.
type ConsentRequiredError struct {
	ClientID string
	TenantID string
}

func (e *ConsentRequiredError) Error() string {
	return fmt.Sprintf(
		"admin consent required; have a tenant administrator visit "+
			"https://login.microsoftonline.com/%s/adminconsent?client_id=%s",
		e.TenantID, e.ClientID,
	)
}

// Config holds the destination credentials and the connection this
// client manages.
type Config struct {
	TenantID     string
	ClientID     string
	ClientSecret string
	ConnectionID string

	// BaseURL overrides the production endpoint in tests.
	BaseURL string

	// HTTPClient overrides the client-credentials client in tests.
	HTTPClient *http.Client
}

// Client talks to the destination connector API for one connection.
// Construct once at process start and inject into collaborators.
type Client struct {
	log    *slog.Logger
	base   string
	connID string
	cfg    Config
	http   *http.Client
}

func NewClient(ctx context.Context, log *slog.Logger, cfg Config) (*Client, error) {
	if cfg.ConnectionID == "" {
		return nil, fmt.Errorf("connection id is required")
	}
	base := cfg.BaseURL
	if base == "" {
		base = defaultBaseURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		if cfg.TenantID == "" || cfg.ClientID == "" || cfg.ClientSecret == "" {
			return nil, fmt.Errorf("tenant id, client id, and client secret are required")
		}
		cc := clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     "https://login.microsoftonline.com/" + cfg.TenantID + "/oauth2/v2.0/token",
			Scopes:       []string{"https://graph.microsoft.com/.default"},
		}
		httpClient = cc.Client(ctx)
	}
	return &Client{
		log:    log,
		base:   base,
		connID: cfg.ConnectionID,
		cfg:    cfg,
		http:   httpClient,
	}, nil
}

// ConnectionID returns the configured connection identifier.
func (c *Client) ConnectionID() string {
	return c.connID
}

type odataError struct {
	Err struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// apiError maps a non-success response to the error taxonomy:
// not-found drives provisioning, 401/403 is a consent failure, and
// everything else carries the server's code and message.
func (c *Client) apiError(resp *http.Response, body []byte) error {
	var oerr odataError
	_ = json.Unmarshal(body, &oerr)

	if resp.StatusCode == http.StatusNotFound ||
		strings.EqualFold(oerr.Err.Code, "ItemNotFound") {
		return ErrNotFound
	}
	if resp.StatusCode == http.StatusUnauthorized ||
		resp.StatusCode == http.StatusForbidden {
		return &ConsentRequiredError{
			ClientID: c.cfg.ClientID,
			TenantID: c.cfg.TenantID,
		}
	}
	if oerr.Err.Code != "" {
		return fmt.Errorf("graph api: %s %s: %s: %s",
			resp.Request.Method, resp.Request.URL.Path, oerr.Err.Code, oerr.Err.Message)
	}
	return fmt.Errorf("graph api: %s %s: unexpected status %d",
		resp.Request.Method, resp.Request.URL.Path, resp.StatusCode)
}

// do issues one request. url may be a path relative to the base URL or
// an absolute URL (the schema poll URI is absolute). The response body
// is decoded into out when out is non-nil.
func (c *Client) do(ctx context.Context, method, url string, in, out any) (*http.Response, error) {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(buf)
	}
	if !strings.HasPrefix(url, "https://") && !strings.HasPrefix(url, "http://") {
		url = c.base + url
	}
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return resp, c.apiError(resp, raw)
	}
	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return resp, fmt.Errorf("decode response: %w", err)
		}
	}
	return resp, nil
}

// GetConnection fetches the connection, returning ErrNotFound if it
// has not been created yet.
func (c *Client) GetConnection(ctx context.Context) (*Connection, error) {
	var conn Connection
	if _, err := c.do(ctx, http.MethodGet, "/external/connections/"+c.connID, nil, &conn); err != nil {
		return nil, err
	}
	return &conn, nil
}

// CreateConnection creates the connection.
func (c *Client) CreateConnection(ctx context.Context, conn *Connection) (*Connection, error) {
	var created Connection
	if _, err := c.do(ctx, http.MethodPost, "/external/connections", conn, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// DeleteConnection removes the connection. A missing connection is
// not an error.
func (c *Client) DeleteConnection(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodDelete, "/external/connections/"+c.connID, nil, nil)
	if errors.Is(err, ErrNotFound) {
		c.log.Info("connection was not found")
		return nil
	}
	return err
}

// GetSchema fetches the registered schema, returning ErrNotFound if
// none has been registered on the connection.
func (c *Client) GetSchema(ctx context.Context) (*Schema, error) {
	var schema Schema
	if _, err := c.do(ctx, http.MethodGet, "/external/connections/"+c.connID+"/schema", nil, &schema); err != nil {
		return nil, err
	}
	return &schema, nil
}

// RegisterSchema submits the schema. Registration completes
// asynchronously; the returned URL is polled until the operation
// reports completion.
func (c *Client) RegisterSchema(ctx context.Context, schema *Schema) (string, error) {
	resp, err := c.do(ctx, http.MethodPatch, "/external/connections/"+c.connID+"/schema", schema, nil)
	if err != nil {
		return "", err
	}
	location := resp.Header.Get("Location")
	if location == "" {
		return "", fmt.Errorf("schema registration response did not include an operation location")
	}
	return location, nil
}

// OperationComplete makes one poll of the schema registration
// operation. The caller owns the wait between polls.
func (c *Client) OperationComplete(ctx context.Context, pollURL string) (bool, error) {
	var op connectionOperation
	if _, err := c.do(ctx, http.MethodGet, pollURL, nil, &op); err != nil {
		return false, err
	}
	if strings.EqualFold(op.Status, "failed") {
		msg := "unknown error"
		if op.Error != nil {
			msg = op.Error.Message
		}
		return false, fmt.Errorf("schema registration failed: %s", msg)
	}
	return strings.EqualFold(op.Status, "completed"), nil
}

// UpsertItem puts an item by its ID. The same ID always lands on the
// same document, so replays and duplicate deliveries are harmless.
// Transient server errors are retried with backoff.
func (c *Client) UpsertItem(ctx context.Context, item *Item) error {
	r := retry.New(time.Second, 10*time.Second)
retryPut:
	resp, err := c.do(ctx, http.MethodPut, "/external/connections/"+c.connID+"/items/"+item.ID, item, nil)
	if err != nil {
		if resp != nil && resp.StatusCode >= 500 && r.Wait(ctx) {
			c.log.Warn("retrying item upsert", "item", item.ID, "error", err)
			goto retryPut
		}
		return fmt.Errorf("upsert item %s: %w", item.ID, err)
	}
	return nil
}
