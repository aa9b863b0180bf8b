package website

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/tamil-acog/aganitha-chatbot/internal/core/domain"
	"github.com/tamil-acog/aganitha-chatbot/internal/core/ports/driven"
	"github.com/tamil-acog/aganitha-chatbot/internal/logger"
	"github.com/tamil-acog/aganitha-chatbot/internal/normalisers/html"
)

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// Name is the stage name reported in failures and logs.
const Name = "website"

const (
	// DefaultConcurrency is the number of pages fetched at once.
	DefaultConcurrency = 4
	// DefaultRequestsPerSecond is the sustained request rate per host.
	DefaultRequestsPerSecond = 4.0
	// DefaultTimeout bounds a single page fetch.
	DefaultTimeout = 30 * time.Second
	// DefaultUserAgent identifies the crawler to web servers.
	DefaultUserAgent = "aganitha-chatbot/1.0 (Knowledge Base Ingestion)"
	// maxBodyBytes caps the size of a fetched page.
	maxBodyBytes = 10 << 20
)

// Config holds website extractor settings.
type Config struct {
	// URLFile is a text file with one URL per line.
	// Blank lines and lines starting with # are ignored.
	URLFile string

	// Concurrency is the worker count. Zero means DefaultConcurrency.
	Concurrency int

	// RequestsPerSecond is the per-host rate. Zero means the default.
	RequestsPerSecond float64
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithHTTPClient sets the HTTP client used for fetching.
func WithHTTPClient(c *http.Client) Option {
	return func(e *Extractor) {
		e.client = c
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(e *Extractor) {
		e.userAgent = ua
	}
}

// Extractor fetches web pages listed in a URL file.
type Extractor struct {
	cfg       Config
	client    *http.Client
	userAgent string

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	failures []domain.Failure
}

// New creates a website extractor. The URL file must be configured.
func New(cfg Config, opts ...Option) (*Extractor, error) {
	if strings.TrimSpace(cfg.URLFile) == "" {
		return nil, domain.ConfigError("website: url file is required")
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = DefaultRequestsPerSecond
	}

	e := &Extractor{
		cfg:       cfg,
		client:    &http.Client{Timeout: DefaultTimeout},
		userAgent: DefaultUserAgent,
		limiters:  make(map[string]*rate.Limiter),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Name returns the extractor name.
func (e *Extractor) Name() string {
	return Name
}

// Failures returns the per-URL failures of the last Extract call.
func (e *Extractor) Failures() []domain.Failure {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]domain.Failure(nil), e.failures...)
}

// Extract fetches every listed URL and returns one Document per page
// that was fetched and parsed, in URL-file order.
func (e *Extractor) Extract(ctx context.Context) ([]domain.Document, error) {
	urls, err := ReadURLs(e.cfg.URLFile)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.failures = nil
	e.mu.Unlock()

	logger.Info("website: fetching %d urls with %d workers", len(urls), e.cfg.Concurrency)

	results := make([]*domain.Document, len(urls))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < min(e.cfg.Concurrency, len(urls)); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				doc, err := e.fetch(ctx, urls[i])
				if err != nil {
					e.recordFailure(urls[i], err)
					continue
				}
				results[i] = doc
			}
		}()
	}

feed:
	for i := range urls {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	docs := make([]domain.Document, 0, len(urls))
	for _, doc := range results {
		if doc != nil {
			docs = append(docs, *doc)
		}
	}

	logger.Info("website: extracted %d documents, %d failures", len(docs), len(e.Failures()))
	return docs, nil
}

func (e *Extractor) fetch(ctx context.Context, rawURL string) (*domain.Document, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid url %q", rawURL)
	}

	if err := e.limiter(u.Host).Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", e.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("http status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	raw := &domain.RawDocument{URI: rawURL, MIMEType: contentType(resp.Header.Get("Content-Type"), body)}

	switch {
	case raw.MIMEType == "text/html" || raw.MIMEType == "application/xhtml+xml":
		title, text, err := html.Extract(body)
		if err != nil {
			return nil, fmt.Errorf("parse html: %w", err)
		}
		doc := raw.NewDocument(text)
		if title != "" {
			doc.Metadata[domain.MetaTitle] = title
		}
		return &doc, nil
	case strings.HasPrefix(raw.MIMEType, "text/"):
		doc := raw.NewDocument(string(body))
		return &doc, nil
	default:
		return nil, fmt.Errorf("content type %s: %w", raw.MIMEType, domain.ErrUnsupportedType)
	}
}

// limiter returns the rate limiter for host, creating it on first use.
func (e *Extractor) limiter(host string) *rate.Limiter {
	e.mu.Lock()
	defer e.mu.Unlock()
	l, ok := e.limiters[host]
	if !ok {
		burst := max(int(e.cfg.RequestsPerSecond), 1)
		l = rate.NewLimiter(rate.Limit(e.cfg.RequestsPerSecond), burst)
		e.limiters[host] = l
	}
	return l
}

func (e *Extractor) recordFailure(rawURL string, err error) {
	logger.Warn("website: skipping %s: %v", rawURL, err)
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failures = append(e.failures, domain.Failure{Stage: Name, Item: rawURL, Err: err})
}

// contentType returns the media type from the header, sniffing the body
// when the server does not send one.
func contentType(header string, body []byte) string {
	if header == "" {
		header = http.DetectContentType(body)
	}
	mt, _, err := mime.ParseMediaType(header)
	if err != nil {
		return "application/octet-stream"
	}
	return mt
}

// ReadURLs reads a URL list file. A missing or unreadable file is a
// configuration error.
func ReadURLs(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, domain.ConfigError("website: open url file: %v", err)
	}
	defer f.Close()

	var urls []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, domain.ConfigError("website: read url file: %v", err)
	}
	return urls, nil
}
