package checker

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"LinkScanner/internal/domain"
)

const (
	DefaultConnectTimeout = 5 * time.Second
	DefaultReadTimeout    = 10 * time.Second
	DefaultUserAgent      = "broken-link-checker"
)

// Options is the per-probe configuration. It holds no connections, so every
// probe can build its own client from it.
type Options struct {
	ConnectTimeout       time.Duration
	ReadTimeout          time.Duration
	UserAgent            string
	FollowRedirects      bool
	MaxRequestsPerSecond float64

	// Transport replaces the dialer-based transport when set.
	Transport http.RoundTripper
}

// DefaultOptions returns the 5s connect / 10s read probe settings.
func DefaultOptions() Options {
	return Options{
		ConnectTimeout: DefaultConnectTimeout,
		ReadTimeout:    DefaultReadTimeout,
		UserAgent:      DefaultUserAgent,
	}
}

func (o Options) withDefaults() Options {
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = DefaultConnectTimeout
	}
	if o.ReadTimeout <= 0 {
		o.ReadTimeout = DefaultReadTimeout
	}
	if o.UserAgent == "" {
		o.UserAgent = DefaultUserAgent
	}
	return o
}

// Client builds a fresh HTTP client bounded by connect + read timeouts.
func (o Options) Client() *http.Client {
	transport := o.Transport
	if transport == nil {
		dialer := &net.Dialer{Timeout: o.ConnectTimeout}
		transport = &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			DialContext:           dialer.DialContext,
			TLSHandshakeTimeout:   o.ConnectTimeout,
			ResponseHeaderTimeout: o.ReadTimeout,
			DisableKeepAlives:     true,
		}
	}

	client := &http.Client{
		Transport: transport,
		Timeout:   o.ConnectTimeout + o.ReadTimeout,
	}
	if !o.FollowRedirects {
		client.CheckRedirect = func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}
	return client
}

// Checker issues one HEAD probe per URL group.
type Checker struct {
	opts    Options
	limiter *rate.Limiter
	flight  singleflight.Group
	logger  *slog.Logger
}

// New builds a checker; zero option fields take the defaults.
func New(opts Options, log *slog.Logger) *Checker {
	opts = opts.withDefaults()

	var limiter *rate.Limiter
	if opts.MaxRequestsPerSecond > 0 {
		burst := int(opts.MaxRequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.MaxRequestsPerSecond), burst)
	}

	return &Checker{opts: opts, limiter: limiter, logger: log}
}

// Options returns the effective probe settings.
func (c *Checker) Options() Options {
	return c.opts
}

type outcome struct {
	status  *int
	kind    *domain.ErrorKind
	detail  *string
	elapsed *float64
}

// Check probes the group's URL and records the outcome. Concurrent calls for
// the same URL share one probe; later calls probe again. Failures are folded
// into the result; Check never returns an error.
func (c *Checker) Check(ctx context.Context, group domain.URLGroup) domain.CheckResult {
	v, _, _ := c.flight.Do(group.URL, func() (any, error) {
		return c.probe(ctx, group.URL), nil
	})
	out := v.(outcome)

	return domain.CheckResult{
		URL:            group.URL,
		References:     group.References,
		Status:         out.status,
		ErrorKind:      out.kind,
		ErrorDetail:    out.detail,
		ElapsedSeconds: out.elapsed,
	}
}

func (c *Checker) probe(ctx context.Context, rawURL string) outcome {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return c.failed(rawURL, Classify(err), err.Error())
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
	if err != nil {
		return c.failed(rawURL, domain.KindInvalidURL, err.Error())
	}
	if req.URL.Scheme != "http" && req.URL.Scheme != "https" {
		return c.failed(rawURL, domain.KindInvalidURL, fmt.Sprintf("unsupported url scheme %q: %s", req.URL.Scheme, rawURL))
	}
	if req.URL.Host == "" {
		return c.failed(rawURL, domain.KindInvalidURL, fmt.Sprintf("no host in url: %s", rawURL))
	}
	req.Header.Set("User-Agent", c.opts.UserAgent)

	c.debug("head request", "url", rawURL)

	start := time.Now()
	resp, err := c.opts.Client().Do(req)
	if err != nil {
		return c.failed(rawURL, Classify(err), err.Error())
	}
	defer resp.Body.Close()
	elapsed := time.Since(start).Seconds()

	status := resp.StatusCode
	out := outcome{status: &status, elapsed: &elapsed}
	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		kind := domain.KindHTTPStatus
		detail := StatusDetail(status, rawURL)
		out.kind = &kind
		out.detail = &detail
		c.info("bad status", "url", rawURL, "status", status)
	}
	return out
}

func (c *Checker) failed(rawURL string, kind domain.ErrorKind, detail string) outcome {
	c.info("probe failed", "url", rawURL, "kind", kind, "error", detail)
	return outcome{kind: &kind, detail: &detail}
}

// StatusDetail describes a non-2xx response the way an HTTP client raising on
// bad status would.
func StatusDetail(status int, rawURL string) string {
	class := "Unknown"
	switch {
	case status >= 500:
		class = "Server"
	case status >= 400:
		class = "Client"
	case status >= 300:
		class = "Redirect"
	case status >= 100 && status < 200:
		class = "Informational"
	}

	reason := http.StatusText(status)
	if reason == "" {
		reason = "Unknown Status"
	}
	return fmt.Sprintf("%d %s Error: %s for url: %s", status, class, reason, rawURL)
}

func (c *Checker) debug(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Debug(msg, args...)
	}
}

func (c *Checker) info(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Info(msg, args...)
	}
}
