// Package client talks to the Splay REST API: accounts, scan uploads,
// polling and history.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"splay/domain"
)

const (
	DefaultBaseURL = "http://localhost:8000"
	MinPasswordLen = 8
)

var (
	ErrMissingFields    = errors.New("please fill in all fields")
	ErrPasswordMismatch = errors.New("passwords do not match")
	ErrPasswordTooShort = errors.New("password must be at least 8 characters")
	ErrNotLoggedIn      = errors.New("not logged in")
)

// APIError is a non-2xx answer from the API.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s (%d %s)", e.Message, e.Status, e.Code)
	}
	return fmt.Sprintf("%s (%d)", e.Message, e.Status)
}

// Temporary reports whether retrying the request may succeed.
func (e *APIError) Temporary() bool {
	return e.Status >= http.StatusInternalServerError
}

// Tokens is the credential pair returned by register, login and refresh.
type Tokens struct {
	AccessToken  string
	RefreshToken string
}

// Client is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client

	mu     sync.RWMutex
	tokens Tokens
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithTokens(t Tokens) Option {
	return func(c *Client) { c.tokens = t }
}

func New(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Tokens() Tokens {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tokens
}

func (c *Client) SetTokens(t Tokens) {
	c.mu.Lock()
	c.tokens = t
	c.mu.Unlock()
}

type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Code    string          `json:"code"`
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader, contentType string, auth bool) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if auth {
		token := c.Tokens().AccessToken
		if token == "" {
			return nil, ErrNotLoggedIn
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

// do sends req and decodes the data field of the envelope into out.
func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		var env envelope
		if json.Unmarshal(raw, &env) == nil {
			apiErr.Code = env.Code
			switch {
			case env.Error != "":
				apiErr.Message = env.Error
			case env.Message != "":
				apiErr.Message = env.Message
			}
		}
		return apiErr
	}

	if out == nil || len(raw) == 0 {
		return nil
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decoding response data: %w", err)
	}
	return nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, in any, auth bool, out any) error {
	var body io.Reader
	contentType := ""
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
		contentType = "application/json"
	}
	req, err := c.newRequest(ctx, method, path, body, contentType, auth)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

// RegisterInput mirrors the sign-up form.
type RegisterInput struct {
	Name            string
	Email           string
	Password        string
	ConfirmPassword string
}

// Validate applies the form rules before anything is sent.
func (in RegisterInput) Validate() error {
	if strings.TrimSpace(in.Name) == "" || strings.TrimSpace(in.Email) == "" ||
		in.Password == "" || in.ConfirmPassword == "" {
		return ErrMissingFields
	}
	if in.Password != in.ConfirmPassword {
		return ErrPasswordMismatch
	}
	if len(in.Password) < MinPasswordLen {
		return ErrPasswordTooShort
	}
	return nil
}

func (c *Client) authenticate(ctx context.Context, path string, in any) (*domain.AuthResponse, error) {
	var res domain.AuthResponse
	if err := c.doJSON(ctx, http.MethodPost, path, in, false, &res); err != nil {
		return nil, err
	}
	c.SetTokens(Tokens{AccessToken: res.Tokens.AccessToken, RefreshToken: res.Tokens.RefreshToken})
	return &res, nil
}

// Register creates the account and keeps the returned tokens.
func (c *Client) Register(ctx context.Context, in RegisterInput) (*domain.AuthResponse, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	return c.authenticate(ctx, "/api/v1/auth/register", domain.RegisterRequest{
		Email:    strings.TrimSpace(in.Email),
		Password: in.Password,
		Name:     strings.TrimSpace(in.Name),
	})
}

// Login keeps the returned tokens on success.
func (c *Client) Login(ctx context.Context, email, password string) (*domain.AuthResponse, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil, ErrMissingFields
	}
	return c.authenticate(ctx, "/api/v1/auth/login", domain.LoginRequest{
		Email:    strings.TrimSpace(email),
		Password: password,
	})
}

// Refresh exchanges the refresh token for a new pair.
func (c *Client) Refresh(ctx context.Context) (Tokens, error) {
	refresh := c.Tokens().RefreshToken
	if refresh == "" {
		return Tokens{}, ErrNotLoggedIn
	}
	var res domain.TokenResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/auth/refresh", domain.RefreshTokenRequest{RefreshToken: refresh}, false, &res); err != nil {
		return Tokens{}, err
	}
	t := Tokens{AccessToken: res.AccessToken, RefreshToken: res.RefreshToken}
	c.SetTokens(t)
	return t, nil
}

func (c *Client) Me(ctx context.Context) (*domain.UserResponse, error) {
	var res domain.UserResponse
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/auth/me", nil, true, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// CreateScan uploads an image and returns the id of the new scan.
func (c *Client) CreateScan(ctx context.Context, filename string, image io.Reader) (string, error) {
	if filename == "" {
		return "", ErrMissingFields
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, escapeQuotes(filepath.Base(filename))))
	h.Set("Content-Type", contentTypeFor(filename))
	part, err := w.CreatePart(h)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, image); err != nil {
		return "", fmt.Errorf("reading image: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", err
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/api/v1/scans", &buf, w.FormDataContentType(), true)
	if err != nil {
		return "", err
	}
	var res domain.ScanResponse
	if err := c.do(req, &res); err != nil {
		return "", err
	}
	return res.ID, nil
}

func (c *Client) GetScan(ctx context.Context, id string) (*domain.ScanResponse, error) {
	var res domain.ScanResponse
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/scans/"+url.PathEscape(id), nil, true, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) ListScans(ctx context.Context, skip, limit int) (*domain.ScanListResponse, error) {
	q := url.Values{}
	q.Set("skip", strconv.Itoa(skip))
	q.Set("limit", strconv.Itoa(limit))
	var res domain.ScanListResponse
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/scans?"+q.Encode(), nil, true, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) DeleteScan(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/api/v1/scans/"+url.PathEscape(id), nil, true, nil)
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}

func contentTypeFor(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	case ".heic":
		return "image/heic"
	case ".heif":
		return "image/heif"
	default:
		return "image/jpeg"
	}
}
