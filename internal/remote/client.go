package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/browserpike/backend/internal/infrastructure/config"
	"github.com/browserpike/backend/internal/infrastructure/logging"
	"github.com/browserpike/backend/internal/infrastructure/monitoring"
	"github.com/browserpike/backend/internal/infrastructure/resilience"
	"github.com/browserpike/backend/internal/infrastructure/tracing"
	"github.com/browserpike/backend/internal/shared/faults"
	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const userAgent = "BrowserPike/1.0"

// Kind labels a request for timeouts and metrics
type Kind string

const (
	KindListing Kind = "listing"
	KindText    Kind = "text"
	KindArchive Kind = "archive"
	KindFile    Kind = "file"
)

// StatusError reports a non-2xx answer from the repository
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: HTTP %d", e.URL, e.Code)
}

// Object is a fully read response body
type Object struct {
	URL          string
	Body         []byte
	ContentType  string
	LastModified time.Time
}

// Size returns the body length in bytes
func (o *Object) Size() int64 {
	return int64(len(o.Body))
}

// Stream is an open response body; the caller must Close it
type Stream struct {
	Body          io.ReadCloser
	ContentType   string
	ContentLength int64
	LastModified  time.Time
}

// Options configures a Client
type Options struct {
	BaseURL        string
	ListingTimeout time.Duration
	ArchiveTimeout time.Duration
	MaxBody        int64
	RPS            float64
	Retries        int
	Logger         *logging.Logger
	Metrics        *monitoring.Metrics
}

// Client reads the content repository: listings, sentinel text files and
// archive bytes. Every call is paced by a limiter, guarded by a circuit
// breaker and bounded by a per-kind deadline.
type Client struct {
	baseURL string
	resty   *resty.Client
	limiter *rate.Limiter
	breaker *resilience.Breaker
	logger  *logging.Logger
	metrics *monitoring.Metrics

	listingTimeout time.Duration
	archiveTimeout time.Duration
	maxBody        int64
}

// New creates a client for the repository rooted at opts.BaseURL
func New(opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("remote: base URL is required")
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}
	if opts.ListingTimeout <= 0 {
		opts.ListingTimeout = 15 * time.Second
	}
	if opts.ArchiveTimeout <= 0 {
		opts.ArchiveTimeout = 20 * time.Second
	}
	if opts.MaxBody <= 0 {
		opts.MaxBody = 256 << 20
	}

	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = opts.Retries
	retryClient.RetryWaitMin = 200 * time.Millisecond
	retryClient.RetryWaitMax = 2 * time.Second
	retryClient.Logger = opts.Logger.Named("upstream").Leveled()
	// Hand the last response back instead of a "giving up" error
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler

	restyClient := resty.NewWithClient(retryClient.StandardClient())
	restyClient.
		SetRetryCount(0).
		SetHeader("User-Agent", userAgent)

	c := &Client{
		baseURL:        ensureSlash(opts.BaseURL),
		resty:          restyClient,
		limiter:        newLimiter(opts.RPS),
		logger:         opts.Logger.Named("remote"),
		metrics:        opts.Metrics,
		listingTimeout: opts.ListingTimeout,
		archiveTimeout: opts.ArchiveTimeout,
		maxBody:        opts.MaxBody,
	}

	c.breaker = resilience.New("content-repository", resilience.Settings{
		Probes:    2,
		Window:    time.Minute,
		Cooldown:  15 * time.Second,
		Threshold: 8,
		Counts:    countsAgainstUpstream,
		OnStateChange: func(name string, from, to resilience.State) {
			c.logger.Warn("circuit breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			if c.metrics != nil {
				c.metrics.SetBreakerState(int(to))
			}
		},
	})

	return c, nil
}

// NewFromConfig creates a client from the content section of the config
func NewFromConfig(cfg config.ContentConfig, logger *logging.Logger, metrics *monitoring.Metrics) (*Client, error) {
	return New(Options{
		BaseURL:        cfg.BaseURL,
		ListingTimeout: cfg.ListingTimeout,
		ArchiveTimeout: cfg.ArchiveTimeout,
		MaxBody:        cfg.MaxArchiveBytes(),
		RPS:            cfg.UpstreamRPS,
		Retries:        cfg.Retries,
		Logger:         logger,
		Metrics:        metrics,
	})
}

// BaseURL returns the repository root, always ending in a slash
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Resolve turns a repository-relative path into an absolute URL. Paths are
// concatenated raw; listing segments are already URL-encoded.
func (c *Client) Resolve(path string) string {
	return c.baseURL + strings.TrimPrefix(path, "/")
}

// BreakerState returns the current circuit breaker state
func (c *Client) BreakerState() resilience.State {
	return c.breaker.State()
}

// Listing fetches a directory listing page as text
func (c *Client) Listing(ctx context.Context, url string) (string, error) {
	obj, err := c.Fetch(ctx, url, KindListing)
	if err != nil {
		return "", err
	}
	return string(obj.Body), nil
}

// Text fetches a small text file such as _password.txt
func (c *Client) Text(ctx context.Context, url string) (string, error) {
	obj, err := c.Fetch(ctx, url, KindText)
	if err != nil {
		return "", err
	}
	return string(obj.Body), nil
}

// Archive fetches archive bytes under the archive deadline and size cap
func (c *Client) Archive(ctx context.Context, url string) (*Object, error) {
	return c.Fetch(ctx, url, KindArchive)
}

// Fetch reads a whole response body
func (c *Client) Fetch(ctx context.Context, url string, kind Kind) (*Object, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout(kind))
	defer cancel()

	resp, err := c.do(ctx, url, kind)
	if err != nil {
		return nil, err
	}
	body := resp.RawBody()
	defer body.Close()

	data, err := io.ReadAll(io.LimitReader(body, c.maxBody+1))
	if err != nil {
		return nil, c.classify(ctx, url, err)
	}
	if int64(len(data)) > c.maxBody {
		return nil, fmt.Errorf("GET %s: body exceeds %d bytes", url, c.maxBody)
	}

	return &Object{
		URL:          url,
		Body:         data,
		ContentType:  resp.Header().Get("Content-Type"),
		LastModified: lastModified(resp.Header()),
	}, nil
}

// Open starts a streamed GET. The deadline covers the whole transfer and is
// released when the stream is closed.
func (c *Client) Open(ctx context.Context, url string) (*Stream, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout(KindFile))

	resp, err := c.do(ctx, url, KindFile)
	if err != nil {
		cancel()
		return nil, err
	}

	return &Stream{
		Body:          &cancelOnClose{ReadCloser: resp.RawBody(), cancel: cancel},
		ContentType:   resp.Header().Get("Content-Type"),
		ContentLength: resp.RawResponse.ContentLength,
		LastModified:  lastModified(resp.Header()),
	}, nil
}

// do issues the request and returns a 2xx response with an unread body
func (c *Client) do(ctx context.Context, url string, kind Kind) (*resty.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, c.classify(ctx, url, fmt.Errorf("rate limit: %w", err))
	}

	resp, err := resilience.Do(ctx, c.breaker, func(ctx context.Context) (*resty.Response, error) {
		req := c.resty.R().
			SetContext(ctx).
			SetDoNotParseResponse(true)
		tracing.Inject(ctx, func(k, v string) { req.SetHeader(k, v) })

		resp, err := req.Get(url)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
			resp.RawBody().Close()
			return nil, &StatusError{URL: url, Code: resp.StatusCode()}
		}
		return resp, nil
	})

	status := 0
	if resp != nil {
		status = resp.StatusCode()
	}
	var se *StatusError
	if errors.As(err, &se) {
		status = se.Code
	}
	if c.metrics != nil {
		c.metrics.RecordUpstream(string(kind), status)
	}

	if err != nil {
		c.logger.Debug("upstream request failed",
			zap.String("url", url),
			zap.String("kind", string(kind)),
			zap.Error(err),
		)
		return nil, c.classify(ctx, url, err)
	}
	return resp, nil
}

func (c *Client) timeout(kind Kind) time.Duration {
	switch kind {
	case KindArchive, KindFile:
		return c.archiveTimeout
	default:
		return c.listingTimeout
	}
}

// classify marks deadline expiry as a timeout; other errors pass through
func (c *Client) classify(ctx context.Context, url string, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return faults.New(faults.KindTimeout, "remote.get", url, err)
	}
	return err
}

// countsAgainstUpstream keeps 4xx answers (a missing sibling or password
// file) from tripping the breaker
func countsAgainstUpstream(err error) bool {
	if err == nil {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code >= 500
	}
	return true
}

func newLimiter(rps float64) *rate.Limiter {
	if rps <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}

func lastModified(h http.Header) time.Time {
	v := h.Get("Last-Modified")
	if v == "" {
		return time.Time{}
	}
	t, err := http.ParseTime(v)
	if err != nil {
		return time.Time{}
	}
	return t
}

func ensureSlash(u string) string {
	if strings.HasSuffix(u, "/") {
		return u
	}
	return u + "/"
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}
