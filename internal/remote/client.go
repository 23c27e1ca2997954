package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/kmnkit/vietnamese-word-cards/internal/logger"
	"github.com/kmnkit/vietnamese-word-cards/internal/models"
)

// UserHeader carries the caller's identity to the collaborator.
const UserHeader = "X-User-ID"

// Client talks to the remote progress collaborator.
type Client struct {
	baseURL    string
	userID     string
	httpClient *http.Client
	limiter    *rate.Limiter
	log        *logger.Logger
}

type Option func(*Client)

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpClient = h }
}

// WithUserID attaches userID to every request.
func WithUserID(userID string) Option {
	return func(c *Client) { c.userID = userID }
}

// WithPushRate throttles the per-mutation push calls. perSecond <= 0
// disables throttling.
func WithPushRate(perSecond float64, burst int) Option {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = nil
			return
		}
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		userID:     models.DefaultUserID,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		log:        logger.Default().WithPrefix("remote"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// StatusError is returned when the collaborator answers with a non-2xx status.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s status %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// PushProgress upserts the aggregate progress and uploads the session log.
func (c *Client) PushProgress(ctx context.Context, upload models.SyncUpload) error {
	return c.do(ctx, http.MethodPost, "/api/progress/sync", upload, nil)
}

// FetchProgress pulls the canonical remote state.
func (c *Client) FetchProgress(ctx context.Context) (*models.SyncSnapshot, error) {
	var out models.SyncSnapshot
	if err := c.do(ctx, http.MethodGet, "/api/progress/sync", nil, &out); err != nil {
		return nil, err
	}
	if out.Progress.LearnedWords == nil {
		out.Progress.LearnedWords = []string{}
	}
	return &out, nil
}

// PatchWord reports a learned-word toggle.
func (c *Client) PatchWord(ctx context.Context, patch models.WordPatch) (*models.WordPatchResult, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	var out models.WordPatchResult
	if err := c.do(ctx, http.MethodPatch, "/api/progress/words", patch, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PatchXP reports an experience-point delta.
func (c *Client) PatchXP(ctx context.Context, points int) (*models.XPResult, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	var out models.XPResult
	if err := c.do(ctx, http.MethodPatch, "/api/progress/xp", models.XPPatch{Points: points}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PostSession uploads one session. The collaborator ignores duplicates.
func (c *Client) PostSession(ctx context.Context, session models.SessionUpload) error {
	if err := c.wait(ctx); err != nil {
		return err
	}
	return c.do(ctx, http.MethodPost, "/api/sessions", session, nil)
}

// ListSessions pages through the remote session log, newest first.
func (c *Client) ListSessions(ctx context.Context, limit, offset int) (*models.SessionPage, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))

	var out models.SessionPage
	if err := c.do(ctx, http.MethodGet, "/api/sessions?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	log := logger.FromContext(ctx).WithPrefix("remote").WithField("path", path)
	start := time.Now()

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		log.Error("failed to create request: %v", err)
		return err
	}
	req.Header.Set(UserHeader, c.userID)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Warn("%s request failed: %v", method, err)
		return err
	}
	defer resp.Body.Close()

	log.Debug("%s response received in %v, status=%d", method, time.Since(start), resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &StatusError{Method: method, Path: path, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		log.Error("failed to decode %s response: %v", method, err)
		return err
	}
	return nil
}
