package alist

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"time"

	"strmhook/internal/config"
	"strmhook/internal/logging"
	"strmhook/internal/services"
)

const (
	listEndpoint = "/api/fs/list"
	getEndpoint  = "/api/fs/get"
	codeOK       = 200
)

// HTTPDoer describes the HTTP client used by the AList client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Entry is one object reported by AList.
type Entry struct {
	Name     string `json:"name"`
	IsDir    bool   `json:"is_dir"`
	Path     string `json:"path"`
	Size     int64  `json:"size"`
	Modified string `json:"modified"`
}

// Client talks to the AList file-system API.
type Client struct {
	baseURL string
	token   string
	client  HTTPDoer
	logger  *slog.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(doer HTTPDoer) Option {
	return func(c *Client) {
		if doer != nil {
			c.client = doer
		}
	}
}

// WithLogger attaches a logger for request tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logging.NewComponentLogger(logger, "alist")
	}
}

// NewClient constructs a client for the AList instance at baseURL. The token,
// when set, is sent verbatim in the Authorization header.
func NewClient(baseURL, token string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		token:   strings.TrimSpace(token),
		client:  &http.Client{Timeout: timeout},
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewFromConfig builds a client from the [alist] configuration section.
func NewFromConfig(cfg *config.Config, logger *slog.Logger) *Client {
	return NewClient(cfg.AList.URL, cfg.AList.Token, cfg.AListTimeout(), WithLogger(logger))
}

type listRequest struct {
	Path     string `json:"path"`
	Password string `json:"password"`
	Page     int    `json:"page"`
	PerPage  int    `json:"per_page"`
	Refresh  bool   `json:"refresh"`
}

type getRequest struct {
	Path     string `json:"path"`
	Password string `json:"password"`
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type listData struct {
	Content []Entry `json:"content"`
	Total   int     `json:"total"`
}

// List returns the direct children of dir. Entry paths are absolute.
func (c *Client) List(ctx context.Context, dir string, refresh bool) ([]Entry, error) {
	dir = cleanPath(dir)
	var data listData
	// per_page 0 asks AList for the whole directory in one page.
	req := listRequest{Path: dir, Page: 1, PerPage: 0, Refresh: refresh}
	if err := c.call(ctx, "list", listEndpoint, req, &data); err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(data.Content))
	for _, entry := range data.Content {
		entry.Path = path.Join(dir, entry.Name)
		entries = append(entries, entry)
	}
	c.logger.Debug("alist directory listed",
		logging.String(logging.FieldPath, dir),
		logging.Int("entries", len(entries)),
		logging.Bool("refresh", refresh),
	)
	return entries, nil
}

// Stat returns the object at p.
func (c *Client) Stat(ctx context.Context, p string) (Entry, error) {
	p = cleanPath(p)
	var entry Entry
	if err := c.call(ctx, "get", getEndpoint, getRequest{Path: p}, &entry); err != nil {
		return Entry{}, err
	}
	entry.Path = p
	if entry.Name == "" {
		entry.Name = path.Base(p)
	}
	return entry, nil
}

func (c *Client) call(ctx context.Context, operation, endpoint string, payload, out any) error {
	target, _ := payloadPath(payload)
	detail := "path=" + target

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode alist %s request: %w", operation, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(body))
	if err != nil {
		return services.Wrap(services.ErrRemoteUnavailable, "alist", operation, "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return services.Wrap(services.ErrRemoteUnavailable, "alist", operation, detail, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		_, _ = io.Copy(io.Discard, resp.Body)
		return services.Wrap(services.ErrRemoteUnavailable, "alist", operation,
			fmt.Sprintf("%s: http status %d", detail, resp.StatusCode), nil)
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return services.Wrap(services.ErrRemoteUnavailable, "alist", operation, detail+": decode response", err)
	}
	if env.Code != codeOK {
		marker := services.ErrRemoteUnavailable
		if isNotFound(env.Message) {
			marker = services.ErrNotFound
		}
		return services.Wrap(marker, "alist", operation,
			fmt.Sprintf("%s: code %d: %s", detail, env.Code, strings.TrimSpace(env.Message)), nil)
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return services.Wrap(services.ErrRemoteUnavailable, "alist", operation, detail+": decode data", err)
	}
	return nil
}

func payloadPath(payload any) (string, bool) {
	switch p := payload.(type) {
	case listRequest:
		return p.Path, true
	case getRequest:
		return p.Path, true
	default:
		return "", false
	}
}

// AList reports missing objects and storages with messages such as
// "object not found" or "storage not found; please add a storage first".
func isNotFound(message string) bool {
	return strings.Contains(strings.ToLower(message), "not found")
}

func cleanPath(p string) string {
	return path.Clean("/" + strings.TrimSpace(p))
}
