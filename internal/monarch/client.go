package monarch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pquerna/otp/totp"
)

const (
	// DefaultBaseURL is the Monarch Money API host.
	DefaultBaseURL = "https://api.monarch.com"
	// DefaultTimeout bounds every request to the API.
	DefaultTimeout = 60 * time.Second

	loginPath   = "/auth/login/"
	graphqlPath = "/graphql"
	userAgent   = "zwickfi-monarch-sync"
)

var (
	// ErrAuthentication is returned when login is rejected or a request is
	// made without a session.
	ErrAuthentication = errors.New("monarch: authentication failed")
	// ErrMFARequired is returned when the account needs a one-time code and
	// no MFA secret was supplied.
	ErrMFARequired = errors.New("monarch: multi-factor authentication required")
)

// Credentials are the values needed to open a session.
type Credentials struct {
	Email     string
	Password  string
	MFASecret string
}

// Client talks to the Monarch Money GraphQL API. Sessions live only in
// memory and are never persisted.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	now        func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at a different API host.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithToken reuses an existing session token instead of logging in.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// NewClient creates a new Monarch API client
func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		baseURL:    DefaultBaseURL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Login authenticates with email, password and a TOTP code derived from the
// MFA secret, and keeps the session token on the client.
func (c *Client) Login(ctx context.Context, creds Credentials) error {
	payload := map[string]any{
		"username":       creds.Email,
		"password":       creds.Password,
		"supports_mfa":   true,
		"trusted_device": false,
	}
	if creds.MFASecret != "" {
		code, err := totp.GenerateCode(normalizeSecret(creds.MFASecret), c.now())
		if err != nil {
			return fmt.Errorf("Login: generating one-time code: %w", err)
		}
		payload["totp"] = code
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("Login: encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+loginPath, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("Login: building request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("Login: sending request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("Login: reading response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusForbidden && creds.MFASecret == "":
		return ErrMFARequired
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("%w: status %d: %s", ErrAuthentication, resp.StatusCode, truncate(string(respBody), 200))
	}

	var out struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(respBody, &out); err != nil {
		return fmt.Errorf("Login: decoding response: %w", err)
	}
	if out.Token == "" {
		return fmt.Errorf("%w: no token in response", ErrAuthentication)
	}

	c.token = out.Token
	return nil
}

// Authenticated reports whether the client holds a session token.
func (c *Client) Authenticated() bool {
	return c.token != ""
}

type graphqlRequest struct {
	OperationName string         `json:"operationName"`
	Query         string         `json:"query"`
	Variables     map[string]any `json:"variables"`
}

type graphqlError struct {
	Message string `json:"message"`
}

// GraphQLError is returned when the API answers with a non-empty errors list.
type GraphQLError struct {
	Operation string
	Messages  []string
}

func (e *GraphQLError) Error() string {
	return fmt.Sprintf("monarch: %s: %s", e.Operation, strings.Join(e.Messages, "; "))
}

// query runs a GraphQL operation and returns its decoded data object.
// Numbers are kept as json.Number.
func (c *Client) query(ctx context.Context, operation, query string, variables map[string]any) (map[string]any, error) {
	if c.token == "" {
		return nil, fmt.Errorf("%s: %w: not logged in", operation, ErrAuthentication)
	}
	if variables == nil {
		variables = map[string]any{}
	}

	body, err := json.Marshal(graphqlRequest{OperationName: operation, Query: query, Variables: variables})
	if err != nil {
		return nil, fmt.Errorf("%s: encoding request: %w", operation, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+graphqlPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%s: building request: %w", operation, err)
	}
	c.setHeaders(req)
	req.Header.Set("Authorization", "Token "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: sending request: %w", operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, fmt.Errorf("%s: %w: status %d", operation, ErrAuthentication, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%s: unexpected status %d: %s", operation, resp.StatusCode, string(b))
	}

	var out struct {
		Data   map[string]any `json:"data"`
		Errors []graphqlError `json:"errors"`
	}
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("%s: decoding response: %w", operation, err)
	}

	if len(out.Errors) > 0 {
		gqlErr := &GraphQLError{Operation: operation}
		for _, e := range out.Errors {
			gqlErr.Messages = append(gqlErr.Messages, e.Message)
		}
		return nil, gqlErr
	}
	if out.Data == nil {
		return nil, fmt.Errorf("%s: empty data in response", operation)
	}

	return out.Data, nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Client-Platform", "web")
	req.Header.Set("User-Agent", userAgent)
}

// normalizeSecret strips the spaces authenticator apps show in secrets.
func normalizeSecret(s string) string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), " ", ""))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
