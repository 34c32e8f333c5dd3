package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/opencounter/posauth/internal/util"
)

const (
	defaultTimeout   = 30 * time.Second
	defaultUserAgent = "posauth-client/1"
	maxErrorBodySize = 64 * 1024
)

// Client implements RemoteAuth over JSON/HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
	userAgent  string
}

var _ RemoteAuth = (*Client)(nil)

// ClientOption configures the HTTP client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying *http.Client (timeouts, proxies,
// test transports).
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithUserAgent overrides the User-Agent header sent on every request.
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// NewClient creates a RemoteAuth client for the API at baseURL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
		userAgent:  defaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type activateRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	DeviceName string `json:"device_name"`
}

type loginRequest struct {
	Pin        string `json:"pin"`
	LocationID string `json:"location_id,omitempty"`
}

type refreshRequest struct {
	SessionToken string `json:"session_token"`
}

type switchLocationRequest struct {
	LocationID string `json:"location_id"`
}

type switchLocationResponse struct {
	CurrentLocation Location `json:"current_location"`
}

// errorEnvelope is the backend's uniform failure shape.
type errorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) ActivateDevice(ctx context.Context, email, password, deviceName string) (*ActivateResult, error) {
	// Normalize human-typed credentials so composed/decomposed input derives
	// the same bytes on every terminal keyboard.
	req := activateRequest{
		Email:      util.Normalize(strings.TrimSpace(email)),
		Password:   util.Normalize(password),
		DeviceName: strings.TrimSpace(deviceName),
	}
	var res ActivateResult
	if err := c.do(ctx, http.MethodPost, "/v1/devices/activations", "", req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) LoginWithPin(ctx context.Context, pin, deviceToken, locationID string) (*LoginResult, error) {
	req := loginRequest{Pin: util.Normalize(pin), LocationID: locationID}
	var res LoginResult
	if err := c.do(ctx, http.MethodPost, "/v1/sessions", deviceToken, req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) RefreshSession(ctx context.Context, sessionToken string) (*RefreshResult, error) {
	var res RefreshResult
	if err := c.do(ctx, http.MethodPost, "/v1/sessions/refresh", sessionToken, refreshRequest{SessionToken: sessionToken}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) SwitchLocation(ctx context.Context, sessionToken, locationID string) (*Location, error) {
	var res switchLocationResponse
	if err := c.do(ctx, http.MethodPost, "/v1/sessions/location", sessionToken, switchLocationRequest{LocationID: locationID}, &res); err != nil {
		return nil, err
	}
	return &res.CurrentLocation, nil
}

func (c *Client) Logout(ctx context.Context, sessionToken string) error {
	return c.do(ctx, http.MethodDelete, "/v1/sessions", sessionToken, nil, nil)
}

// do performs one JSON round trip. A non-2xx response is decoded through the
// error envelope into the package taxonomy; transport-level failures are
// returned wrapped so errors.Is still distinguishes them from auth failures.
func (c *Client) do(ctx context.Context, method, path, bearer string, reqBody, resBody any) error {
	var body io.Reader
	if reqBody != nil {
		data, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("calling %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.decodeError(resp)
	}

	if resBody == nil {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBodySize))
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(resBody); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func (c *Client) decodeError(resp *http.Response) error {
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
	if err != nil {
		return &ServerError{Status: resp.StatusCode}
	}
	var env errorEnvelope
	if err := json.Unmarshal(data, &env); err != nil || env.Error.Code == "" {
		return &ServerError{Status: resp.StatusCode, Message: strings.TrimSpace(string(data))}
	}
	return errorFromCode(resp.StatusCode, env.Error.Code, env.Error.Message)
}
