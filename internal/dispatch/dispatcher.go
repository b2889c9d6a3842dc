package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"dymgr/internal/logging"
	"dymgr/internal/services"
)

const (
	// DefaultBaseURL is the backend address used when none is configured.
	DefaultBaseURL = "http://localhost:8001/api/v1"
	// DefaultTimeout bounds every request.
	DefaultTimeout   = 10 * time.Second
	defaultUserAgent = "dymgr/0.1.0"

	// RequestIDHeader carries the correlation identifier to the backend.
	RequestIDHeader = "X-Request-ID"
)

// HTTPDoer abstracts http.Client.Do for testing.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// TokenSource reports the bearer token to attach. ok=false means no credential.
type TokenSource interface {
	Token() (token string, ok bool)
}

// TokenFunc adapts a function to TokenSource.
type TokenFunc func() (string, bool)

func (f TokenFunc) Token() (string, bool) { return f() }

// Option customises Dispatcher construction.
type Option func(*Dispatcher)

// WithHTTPClient overrides the HTTP client used for backend calls.
func WithHTTPClient(client HTTPDoer) Option {
	return func(d *Dispatcher) {
		d.client = client
	}
}

// WithTimeout overrides the per-request bound. Non-positive values keep the default.
func WithTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.timeout = timeout
		}
	}
}

// WithTokenSource sets where the bearer credential is read from.
func WithTokenSource(source TokenSource) Option {
	return func(d *Dispatcher) {
		d.tokens = source
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(agent string) Option {
	return func(d *Dispatcher) {
		if agent = strings.TrimSpace(agent); agent != "" {
			d.userAgent = agent
		}
	}
}

// WithLogger attaches a logger for request tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = logging.NewComponentLogger(logger, "dispatch")
	}
}

// WithUnauthorizedHook registers a callback run after any 401 response.
// No hook is installed by default: a 401 is returned to the caller and the
// session is left untouched.
func WithUnauthorizedHook(hook func()) Option {
	return func(d *Dispatcher) {
		d.onUnauthorized = hook
	}
}

// Dispatcher issues backend requests and attaches the bearer credential.
type Dispatcher struct {
	baseURL   string
	client    HTTPDoer
	timeout   time.Duration
	userAgent string
	logger    *slog.Logger

	mu             sync.RWMutex
	tokens         TokenSource
	onUnauthorized func()
}

// New builds a Dispatcher rooted at baseURL.
func New(baseURL string, opts ...Option) *Dispatcher {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	d := &Dispatcher{
		baseURL:   baseURL,
		timeout:   DefaultTimeout,
		userAgent: defaultUserAgent,
		logger:    logging.NewComponentLogger(nil, "dispatch"),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.client == nil {
		d.client = &http.Client{}
	}
	return d
}

// BaseURL reports the resolved base address.
func (d *Dispatcher) BaseURL() string {
	return d.baseURL
}

// Timeout reports the per-request bound.
func (d *Dispatcher) Timeout() time.Duration {
	return d.timeout
}

// SetTokenSource swaps the credential source. It exists because the session
// store is usually constructed after the dispatcher it sends requests through.
func (d *Dispatcher) SetTokenSource(source TokenSource) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.tokens = source
}

// SetUnauthorizedHook replaces the 401 callback; nil removes it.
func (d *Dispatcher) SetUnauthorizedHook(hook func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onUnauthorized = hook
}

// Do sends req and decodes a JSON response into out (ignored when nil).
func (d *Dispatcher) Do(ctx context.Context, req Request, out any) error {
	if ctx == nil {
		ctx = context.Background()
	}
	method := strings.ToUpper(strings.TrimSpace(req.Method))
	if method == "" {
		method = http.MethodGet
	}
	label := method + " " + req.Path

	target, err := req.resolveURL(d.baseURL)
	if err != nil {
		return services.Wrap(services.ErrValidation, "dispatch", label, "invalid request", err)
	}
	body, contentType, err := req.body()
	if err != nil {
		return services.Wrap(services.ErrValidation, "dispatch", label, "encode body", err)
	}

	requestID, ok := services.RequestIDFromContext(ctx)
	if !ok {
		requestID = uuid.NewString()
		ctx = services.WithRequestID(ctx, requestID)
	}

	callCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(callCtx, method, target, body)
	if err != nil {
		// Unblocks the multipart writer goroutine feeding the pipe.
		if closer, ok := body.(io.Closer); ok {
			_ = closer.Close()
		}
		return services.Wrap(services.ErrValidation, "dispatch", label, "build request", err)
	}
	for key, values := range req.Header {
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}
	if contentType != "" && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	httpReq.Header.Set("Accept", contentTypeJSON)
	httpReq.Header.Set("User-Agent", d.userAgent)
	httpReq.Header.Set(RequestIDHeader, requestID)
	d.authorize(httpReq)

	logger := logging.WithContext(ctx, d.logger)
	started := time.Now()
	resp, err := d.client.Do(httpReq)
	if err != nil {
		classified := d.classifyTransportError(ctx, callCtx, label, err)
		logger.Debug("request failed",
			logging.String("method", method),
			logging.String("path", req.Path),
			logging.Duration("elapsed", time.Since(started)),
			logging.String(logging.FieldErrorKind, services.Kind(classified)),
			logging.Error(err),
		)
		return classified
	}
	defer resp.Body.Close()

	logger.Debug("request completed",
		logging.String("method", method),
		logging.String("path", req.Path),
		logging.Int("status", resp.StatusCode),
		logging.Duration("elapsed", time.Since(started)),
	)

	if resp.StatusCode >= http.StatusBadRequest {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		httpErr := &HTTPError{
			Method:     method,
			Path:       req.Path,
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Detail:     extractDetail(raw),
			Body:       strings.TrimSpace(string(raw)),
		}
		if resp.StatusCode == http.StatusUnauthorized {
			d.notifyUnauthorized()
		}
		return httpErr
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if isDeadline(callCtx, err) {
			return services.Wrap(services.ErrTimeout, "dispatch", label, fmt.Sprintf("no response within %s", d.timeout), err)
		}
		return services.Wrap(services.ErrNetwork, "dispatch", label, "decode response", err)
	}
	return nil
}

// authorize is the single interception point that attaches the bearer credential.
func (d *Dispatcher) authorize(req *http.Request) {
	d.mu.RLock()
	source := d.tokens
	d.mu.RUnlock()
	if source == nil {
		return
	}
	token, ok := source.Token()
	token = strings.TrimSpace(token)
	if !ok || token == "" {
		return
	}
	req.Header.Set("Authorization", "Bearer "+token)
}

func (d *Dispatcher) notifyUnauthorized() {
	d.mu.RLock()
	hook := d.onUnauthorized
	d.mu.RUnlock()
	if hook != nil {
		hook()
	}
}

func (d *Dispatcher) classifyTransportError(parent, callCtx context.Context, label string, err error) error {
	if parentErr := parent.Err(); parentErr != nil && !errors.Is(parentErr, context.DeadlineExceeded) {
		return parentErr
	}
	if isDeadline(callCtx, err) {
		return services.Wrap(services.ErrTimeout, "dispatch", label, fmt.Sprintf("no response within %s", d.timeout), err)
	}
	return services.Wrap(services.ErrNetwork, "dispatch", label, "no response received", err)
}

func isDeadline(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// Get issues a GET with optional query parameters.
func (d *Dispatcher) Get(ctx context.Context, path string, query url.Values, out any) error {
	return d.Do(ctx, Request{Method: http.MethodGet, Path: path, Query: query}, out)
}

// PostJSON issues a POST with a JSON body.
func (d *Dispatcher) PostJSON(ctx context.Context, path string, body, out any) error {
	return d.Do(ctx, Request{Method: http.MethodPost, Path: path, JSON: body}, out)
}

// PostForm issues a POST with an URL-encoded body.
func (d *Dispatcher) PostForm(ctx context.Context, path string, form url.Values, out any) error {
	return d.Do(ctx, Request{Method: http.MethodPost, Path: path, Form: form}, out)
}

// PutJSON issues a PUT with a JSON body.
func (d *Dispatcher) PutJSON(ctx context.Context, path string, body, out any) error {
	return d.Do(ctx, Request{Method: http.MethodPut, Path: path, JSON: body}, out)
}

// PutForm issues a PUT with an URL-encoded body.
func (d *Dispatcher) PutForm(ctx context.Context, path string, form url.Values, out any) error {
	return d.Do(ctx, Request{Method: http.MethodPut, Path: path, Form: form}, out)
}

// Delete issues a DELETE.
func (d *Dispatcher) Delete(ctx context.Context, path string, out any) error {
	return d.Do(ctx, Request{Method: http.MethodDelete, Path: path}, out)
}

// PostMultipart issues a POST with a streamed multipart/form-data body.
func (d *Dispatcher) PostMultipart(ctx context.Context, path string, payload *Multipart, out any) error {
	return d.Do(ctx, Request{Method: http.MethodPost, Path: path, Multipart: payload}, out)
}
