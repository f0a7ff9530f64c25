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

	"go.uber.org/zap"

	"github.com/stevemurr/collection-sync/entity"
)

// DefaultTimeout bounds a single HTTP exchange when no client is supplied.
const DefaultTimeout = 10 * time.Second

// maxErrorBody caps how much of an error response is read for the detail message.
const maxErrorBody = 4 << 10

type options struct {
	client *http.Client
	logger *zap.Logger
	header http.Header
}

// Option configures an HTTPSource.
type Option func(*options)

// WithHTTPClient replaces the default client.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.client = c }
}

// WithLogger sets the logger used for per-call debug output.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithHeader adds a header sent on every request.
func WithHeader(key, value string) Option {
	return func(o *options) { o.header.Add(key, value) }
}

// HTTPSource is a Source backed by a JSON REST endpoint:
//
//	GET  {base}/{collection}       -> [E]
//	POST {base}/{collection}       D -> E
//	PUT  {base}/{collection}/{id}  E -> E
type HTTPSource[E entity.Entity, D any] struct {
	client   *http.Client
	logger   *zap.Logger
	header   http.Header
	endpoint string
}

var _ Source[entity.User, entity.UserDraft] = (*HTTPSource[entity.User, entity.UserDraft])(nil)

// NewHTTPSource returns a source for the collection of E rooted at baseURL.
func NewHTTPSource[E entity.Entity, D any](baseURL string, opts ...Option) (*HTTPSource[E, D], error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base url %q: scheme must be http or https", baseURL)
	}
	o := options{header: http.Header{}}
	for _, opt := range opts {
		opt(&o)
	}
	if o.client == nil {
		o.client = &http.Client{Timeout: DefaultTimeout}
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/" + entity.CollectionOf[E]()
	return &HTTPSource[E, D]{
		client:   o.client,
		logger:   o.logger,
		header:   o.header,
		endpoint: u.String(),
	}, nil
}

// Endpoint returns the collection URL.
func (s *HTTPSource[E, D]) Endpoint() string {
	return s.endpoint
}

func (s *HTTPSource[E, D]) List(ctx context.Context) ([]E, error) {
	var items []E
	if err := s.do(ctx, http.MethodGet, s.endpoint, nil, &items); err != nil {
		return nil, err
	}
	if items == nil {
		items = []E{}
	}
	return items, nil
}

func (s *HTTPSource[E, D]) Create(ctx context.Context, draft D) (E, error) {
	var created E
	err := s.do(ctx, http.MethodPost, s.endpoint, draft, &created)
	return created, err
}

func (s *HTTPSource[E, D]) Replace(ctx context.Context, e E) (E, error) {
	var updated E
	target := s.endpoint + "/" + strconv.FormatInt(e.GetID(), 10)
	err := s.do(ctx, http.MethodPut, target, e, &updated)
	return updated, err
}

func (s *HTTPSource[E, D]) do(ctx context.Context, method, target string, body, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	for k, vs := range s.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Debug("remote call failed",
			zap.String("method", method), zap.String("url", target), zap.Error(err))
		return fmt.Errorf("%s %s: %w", method, target, err)
	}
	defer resp.Body.Close()
	s.logger.Debug("remote call",
		zap.String("method", method),
		zap.String("url", target),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{
			Method: method,
			URL:    target,
			Code:   resp.StatusCode,
			Detail: readDetail(resp.Body),
		}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s %s: decode response: %w", method, target, err)
	}
	return nil
}

// readDetail extracts the {"detail": ...} message the server writes on errors,
// falling back to the raw body.
func readDetail(r io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(r, maxErrorBody))
	if err != nil || len(raw) == 0 {
		return ""
	}
	var body struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(raw, &body) == nil && body.Detail != "" {
		return body.Detail
	}
	return strings.TrimSpace(string(raw))
}
