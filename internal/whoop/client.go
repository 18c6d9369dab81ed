package whoop

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
)

const (
	// DefaultAuthURL is the base URL for credential-grant requests.
	DefaultAuthURL = "https://api-7.whoop.com"
	// DefaultAPIURL is the base URL for authenticated API requests.
	DefaultAPIURL = "https://api.prod.whoop.com/developer"

	// defaultWindow is the trailing span fetched when no explicit range is given.
	defaultWindow = 7 * 24 * time.Hour
)

var collectionEndpoints = map[Category]string{
	CategorySleep:    "/v1/activity/sleep",
	CategoryRecovery: "/v1/recovery",
	CategoryCycle:    "/v1/cycle",
	CategoryWorkout:  "/v1/activity/workout",
}

// ClientConfig bundles credentials, endpoint overrides and the HTTP client
// used for outbound calls.
type ClientConfig struct {
	Username string
	Password string

	// AuthURL/APIURL default to the production vendor endpoints when empty.
	AuthURL string
	APIURL  string

	// HTTPClient should carry a bounded Timeout so a stalled vendor endpoint
	// cannot stall a fetch cycle indefinitely.
	HTTPClient *http.Client
}

// Client manages one authenticated session to the vendor API. It caches the
// bearer token from the last credential exchange and transparently
// re-authenticates once when a request comes back 401.
//
// A Client is not safe for concurrent use; open one per fetch cycle.
type Client struct {
	httpClient *http.Client
	authURL    string
	apiURL     string
	username   string
	password   string

	token        string
	tokenType    string
	tokenExpires time.Time

	circuit *gobreaker.CircuitBreaker
}

// NewClient creates a Client. The returned client holds no token until
// Authenticate is called.
func NewClient(cfg ClientConfig) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	authURL := cfg.AuthURL
	if authURL == "" {
		authURL = DefaultAuthURL
	}
	apiURL := cfg.APIURL
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "whoop-api",
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})

	return &Client{
		httpClient: httpClient,
		authURL:    authURL,
		apiURL:     apiURL,
		username:   cfg.Username,
		password:   cfg.Password,
		circuit:    cb,
	}
}

// Authenticate exchanges the configured credentials for an access token via a
// password-grant POST. On success the token is cached and used as the bearer
// credential for all subsequent requests from this client.
func (c *Client) Authenticate(ctx context.Context) error {
	body, err := json.Marshal(map[string]string{
		"grant_type": "password",
		"username":   c.username,
		"password":   c.password,
	})
	if err != nil {
		return fmt.Errorf("whoop: encode credential grant: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.authURL+"/oauth/token", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("whoop: build auth request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.do(req)
	if err != nil {
		var se *serverStatusError
		if errors.As(err, &se) {
			return &AuthError{Status: se.status}
		}
		return fmt.Errorf("whoop: auth request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &AuthError{Status: resp.StatusCode, Body: string(raw)}
	}

	var token struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return fmt.Errorf("whoop: decode token response: %w", err)
	}

	c.token = token.AccessToken
	c.tokenType = token.TokenType
	if c.tokenType == "" {
		c.tokenType = "Bearer"
	}
	if token.ExpiresIn > 0 {
		c.tokenExpires = time.Now().Add(time.Duration(token.ExpiresIn) * time.Second)
	} else {
		c.tokenExpires = time.Time{}
	}

	log.Info().Str("auth_url", c.authURL).Msg("authenticated with WHOOP API")
	return nil
}

// GetCollection fetches one category's collection over [start, end]. When both
// bounds are zero the trailing 7-day window ending now is used. The raw JSON
// body is returned unparsed.
func (c *Client) GetCollection(ctx context.Context, category Category, start, end time.Time) (json.RawMessage, error) {
	endpoint, ok := collectionEndpoints[category]
	if !ok {
		return nil, fmt.Errorf("whoop: unknown category %q", category)
	}

	if start.IsZero() && end.IsZero() {
		end = time.Now().UTC()
		start = end.Add(-defaultWindow)
	}

	params := url.Values{}
	if !start.IsZero() {
		params.Set("start", start.UTC().Format(time.RFC3339))
	}
	if !end.IsZero() {
		params.Set("end", end.UTC().Format(time.RFC3339))
	}

	return c.get(ctx, endpoint, params)
}

// GetUserProfile fetches the authenticated user's basic profile.
func (c *Client) GetUserProfile(ctx context.Context) (json.RawMessage, error) {
	return c.get(ctx, "/v1/user/profile/basic", nil)
}

// Close releases the underlying transport's idle connections. The client must
// not be used after Close.
func (c *Client) Close() {
	c.token = ""
	c.httpClient.CloseIdleConnections()
}

// shouldReauthenticate is the retry decision for authenticated requests:
// re-authenticate and retry only for the first 401 seen on a given request.
func shouldReauthenticate(status, attempt int) bool {
	return status == http.StatusUnauthorized && attempt == 0
}

func (c *Client) get(ctx context.Context, endpoint string, params url.Values) (json.RawMessage, error) {
	for attempt := 0; ; attempt++ {
		u := c.apiURL + endpoint
		if len(params) > 0 {
			u += "?" + params.Encode()
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, fmt.Errorf("whoop: build request for %s: %w", endpoint, err)
		}
		req.Header.Set("Authorization", c.tokenType+" "+c.token)

		resp, err := c.do(req)
		if err != nil {
			var se *serverStatusError
			if errors.As(err, &se) {
				return nil, &RequestError{Status: se.status, Endpoint: endpoint}
			}
			return nil, fmt.Errorf("whoop: request %s: %w", endpoint, err)
		}

		if shouldReauthenticate(resp.StatusCode, attempt) {
			drain(resp)
			log.Warn().Str("endpoint", endpoint).Msg("token rejected, re-authenticating")
			if err := c.Authenticate(ctx); err != nil {
				return nil, err
			}
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			drain(resp)
			return nil, &RequestError{Status: resp.StatusCode, Endpoint: endpoint}
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("whoop: read response from %s: %w", endpoint, err)
		}
		return json.RawMessage(body), nil
	}
}

// serverStatusError marks 5xx responses so they count as circuit failures
// while still carrying the status out to the caller.
type serverStatusError struct {
	status int
}

func (e *serverStatusError) Error() string {
	return fmt.Sprintf("server error status %d", e.status)
}

// do executes the request through the circuit breaker. Transport errors and
// 5xx statuses trip the breaker; every other response passes through for the
// caller's status handling.
func (c *Client) do(req *http.Request) (*http.Response, error) {
	result, err := c.circuit.Execute(func() (interface{}, error) {
		resp, execErr := c.httpClient.Do(req)
		if execErr != nil {
			return nil, execErr
		}
		if resp.StatusCode >= 500 {
			drain(resp)
			return nil, &serverStatusError{status: resp.StatusCode}
		}
		return resp, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("circuit breaker open: %w", err)
		}
		return nil, err
	}

	resp, ok := result.(*http.Response)
	if !ok {
		return nil, fmt.Errorf("unexpected result type from circuit breaker")
	}
	return resp, nil
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	resp.Body.Close()
}
