// Package retriever fetches source files over HTTP or from disk.
//
// Successful HTTP bodies are kept in a fallback cache. When an origin
// later fails, the cached body is served instead and a warning is logged.
package retriever

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/agentstation/rirstats/pkg/errors"
	"github.com/agentstation/rirstats/pkg/logging"
)

// Default settings.
const (
	DefaultTimeout     = 60 * time.Second
	DefaultConcurrency = 4
	DefaultCacheTTL    = 7 * 24 * time.Hour
)

// Fetch results reported to an Observer.
const (
	ResultOK     = "ok"
	ResultCached = "cached"
	ResultError  = "error"
)

// Observer is told the outcome of every fetch.
type Observer interface {
	ObserveFetch(source, result string)
}

// Content is a fetched source body.
type Content struct {
	Name      string
	URI       string
	Body      []byte
	FromCache bool
}

// Retriever fetches sources. It is safe for concurrent use.
type Retriever struct {
	client      *http.Client
	cache       *Cache
	concurrency int
	observer    Observer
	group       singleflight.Group
}

// Option configures a Retriever.
type Option func(*Retriever)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(r *Retriever) { r.client = c }
}

// WithTimeout sets the timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(r *Retriever) { r.client = &http.Client{Timeout: d} }
}

// WithCache sets the fallback cache.
func WithCache(c *Cache) Option {
	return func(r *Retriever) { r.cache = c }
}

// WithConcurrency bounds the number of parallel fetches in FetchAll.
func WithConcurrency(n int) Option {
	return func(r *Retriever) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// WithObserver reports fetch outcomes to o.
func WithObserver(o Observer) Option {
	return func(r *Retriever) { r.observer = o }
}

// New creates a Retriever.
func New(opts ...Option) *Retriever {
	r := &Retriever{
		client:      &http.Client{Timeout: DefaultTimeout},
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.cache == nil {
		r.cache = NewCache(DefaultCacheTTL)
	}
	return r
}

// Cache returns the fallback cache.
func (r *Retriever) Cache() *Cache {
	return r.cache
}

// Fetch reads uri, which may be an http(s) URL, a file URL or a plain path.
// Concurrent fetches of the same uri share one request.
func (r *Retriever) Fetch(ctx context.Context, name, uri string) (*Content, error) {
	type shared struct {
		body   []byte
		cached bool
	}
	v, err, _ := r.group.Do(uri, func() (any, error) {
		body, cached, err := r.fetch(ctx, name, uri)
		return shared{body, cached}, err
	})
	if err != nil {
		r.observe(name, ResultError)
		return nil, err
	}
	s := v.(shared)
	if s.cached {
		r.observe(name, ResultCached)
	} else {
		r.observe(name, ResultOK)
	}
	return &Content{Name: name, URI: uri, Body: s.body, FromCache: s.cached}, nil
}

func (r *Retriever) fetch(ctx context.Context, name, uri string) ([]byte, bool, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return nil, false, errors.NewValidationError("uri", uri, err.Error())
	}
	switch u.Scheme {
	case "http", "https":
		return r.fetchHTTP(ctx, name, uri)
	case "file":
		body, err := os.ReadFile(u.Path)
		return body, false, errors.WrapIO("read", u.Path, err)
	case "":
		body, err := os.ReadFile(uri)
		return body, false, errors.WrapIO("read", uri, err)
	}
	return nil, false, errors.NewValidationError("uri", uri, "unsupported scheme "+u.Scheme)
}

func (r *Retriever) fetchHTTP(ctx context.Context, name, uri string) ([]byte, bool, error) {
	logger := logging.FromContext(ctx)

	body, status, err := r.get(ctx, uri)
	if err == nil {
		r.cache.Set(uri, body)
		logger.Debug().Str("source", name).Str("uri", uri).Int("bytes", len(body)).Msg("Fetched source")
		return body, false, nil
	}

	fetchErr := errors.NewFetchError(name, uri, status, err)
	if cached, ok := r.cache.Get(uri); ok {
		logger.Warn().Err(fetchErr).Str("source", name).Msg("Serving cached copy")
		return cached, true, nil
	}
	return nil, false, fetchErr
}

func (r *Retriever) get(ctx context.Context, uri string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, 0, err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, resp.StatusCode, fmt.Errorf("unexpected status %s", resp.Status)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return body, resp.StatusCode, nil
}

// FetchAll fetches every named source and returns them sorted by name.
// The first failure cancels the remaining fetches.
func (r *Retriever) FetchAll(ctx context.Context, sources map[string]string) ([]*Content, error) {
	names := make([]string, 0, len(sources))
	for name := range sources {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]*Content, len(names))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i, name := range names {
		g.Go(func() error {
			c, err := r.Fetch(gctx, name, sources[name])
			if err != nil {
				return err
			}
			out[i] = c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Retriever) observe(source, result string) {
	if r.observer != nil {
		r.observer.ObserveFetch(source, result)
	}
}
