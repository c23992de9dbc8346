// Package client talks to the task manager HTTP API on behalf of the console
// client.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"
)

// DefaultBaseURL is where the server listens by default.
const DefaultBaseURL = "http://127.0.0.1:5000"

// Response is a raw API reply.
type Response struct {
	StatusCode int
	Body       string
}

// Client issues API requests. The session cookie set by Login is kept in a
// cookie jar and sent on later requests.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a Client for the server at baseURL.
func New(baseURL string) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Jar:     jar,
			Timeout: 10 * time.Second,
		},
	}, nil
}

type credentials struct {
	Usuario    string `json:"usuario"`
	Contrasena string `json:"contraseña"`
}

// Register calls POST /registro.
func (c *Client) Register(ctx context.Context, username, password string) (*Response, error) {
	return c.postCredentials(ctx, "/registro", username, password)
}

// Login calls POST /login.
func (c *Client) Login(ctx context.Context, username, password string) (*Response, error) {
	return c.postCredentials(ctx, "/login", username, password)
}

// Logout calls POST /logout.
func (c *Client) Logout(ctx context.Context) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/logout", http.NoBody)
	if err != nil {
		return nil, err
	}
	return c.do(req)
}

// Tasks fetches the /tareas page.
func (c *Client) Tasks(ctx context.Context) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/tareas", http.NoBody)
	if err != nil {
		return nil, err
	}
	return c.do(req)
}

func (c *Client) postCredentials(ctx context.Context, path, username, password string) (*Response, error) {
	payload, err := json.Marshal(credentials{Usuario: username, Contrasena: password})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

func (c *Client) do(req *http.Request) (*Response, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return &Response{StatusCode: resp.StatusCode, Body: string(body)}, nil
}
