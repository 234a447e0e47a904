// Package culler finds invalid and unreachable bookmarks.
package culler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/nikbrunner/bmlens/internal/model"
)

// Reason classifies why a bookmark was reported.
type Reason string

const (
	InvalidURLFormat Reason = "InvalidUrlFormat"
	EmptyTitle       Reason = "EmptyTitle"
	HTTPError        Reason = "HttpError"
	Timeout          Reason = "Timeout"
	NetworkError     Reason = "NetworkError"
)

// InvalidBookmark is a bookmark that failed validation or probing.
type InvalidBookmark struct {
	model.Bookmark
	Reason     Reason `json:"reason"`
	StatusCode int    `json:"statusCode,omitempty"` // HTTP status code, 0 if no response
	Detail     string `json:"detail,omitempty"`
}

// skipSchemes cannot be validated over HTTP and are always treated as valid.
var skipSchemes = map[string]bool{
	"file":             true,
	"chrome":           true,
	"chrome-extension": true,
	"about":            true,
	"data":             true,
	"javascript":       true,
	"edge":             true,
	"moz-extension":    true,
}

// ProgressFunc is called after each batch.
// processed is the number of bookmarks checked so far, total is the total count.
type ProgressFunc func(processed, total int)

// Recorder receives the outcome of every probe; outcome is "ok", "skipped" or a Reason.
type Recorder interface {
	LinkChecked(outcome string, elapsed time.Duration)
}

// Options configure a Checker. Zero values fall back to defaults.
type Options struct {
	BatchSize      int           // concurrent probes per batch, default 10
	Timeout        time.Duration // per request, default 10s
	BatchDelay     time.Duration // pause after each batch before the next one starts, 0 disables pacing
	UserAgent      string
	ExcludeDomains []string // 401/403/404/410 on these domains count as private, not broken
	Client         *http.Client
	Progress       ProgressFunc
	Recorder       Recorder
}

const (
	DefaultBatchSize  = 10
	DefaultTimeout    = 10 * time.Second
	DefaultBatchDelay = 500 * time.Millisecond
)

// Checker validates bookmarks and probes their reachability in batches.
type Checker struct {
	opts    Options
	client  *http.Client
	exclude map[string]bool
}

// New creates a Checker.
func New(opts Options) *Checker {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}

	client := opts.Client
	if client == nil {
		client = &http.Client{
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				// Follow redirects but limit to 10
				if len(via) >= 10 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		}
	}

	exclude := make(map[string]bool, len(opts.ExcludeDomains))
	for _, d := range opts.ExcludeDomains {
		exclude[strings.ToLower(strings.TrimSpace(d))] = true
	}

	return &Checker{opts: opts, client: client, exclude: exclude}
}

// Check runs all bookmarks through validation and probing. Batches run one
// after another, bookmarks inside a batch concurrently. On cancellation the
// results gathered so far are returned together with the context error.
// Results keep input order.
func (c *Checker) Check(ctx context.Context, bookmarks []model.Bookmark) ([]InvalidBookmark, error) {
	total := len(bookmarks)
	if total == 0 {
		return nil, nil
	}

	var invalid []InvalidBookmark
	for start := 0; start < total; start += c.opts.BatchSize {
		pause := c.pause
		if start == 0 {
			pause = func(ctx context.Context) error { return ctx.Err() }
		}
		if err := pause(ctx); err != nil {
			return invalid, err
		}

		end := min(start+c.opts.BatchSize, total)
		batch := bookmarks[start:end]
		found := make([]*InvalidBookmark, len(batch))

		var g errgroup.Group
		for i := range batch {
			g.Go(func() error {
				if res, bad := c.CheckOne(ctx, batch[i]); bad {
					found[i] = &res
				}
				return nil
			})
		}
		_ = g.Wait()

		if err := ctx.Err(); err != nil {
			log.Printf("[INFO] link check cancelled after %d/%d", start, total)
			return invalid, err
		}

		for _, res := range found {
			if res != nil {
				invalid = append(invalid, *res)
			}
		}

		log.Printf("[DEBUG] checked %d/%d bookmarks, %d invalid so far", end, total, len(invalid))
		if c.opts.Progress != nil {
			c.opts.Progress(end, total)
		}
	}

	return invalid, nil
}

// pause waits BatchDelay after a completed batch. The limiter starts drained,
// so the wait is measured from the end of the batch.
func (c *Checker) pause(ctx context.Context) error {
	if c.opts.BatchDelay <= 0 {
		return ctx.Err()
	}
	gap := rate.NewLimiter(rate.Every(c.opts.BatchDelay), 1)
	gap.Allow()
	if err := gap.Wait(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		// deadline falls inside the pause
		return fmt.Errorf("batch pause: %w", context.DeadlineExceeded)
	}
	return nil
}

// CheckOne validates and probes a single bookmark. The bool result is true
// when the bookmark is invalid.
func (c *Checker) CheckOne(ctx context.Context, b model.Bookmark) (InvalidBookmark, bool) {
	started := time.Now()
	res, bad, outcome := c.check(ctx, b)
	if c.opts.Recorder != nil && ctx.Err() == nil {
		c.opts.Recorder.LinkChecked(outcome, time.Since(started))
	}
	return res, bad
}

func (c *Checker) check(ctx context.Context, b model.Bookmark) (InvalidBookmark, bool, string) {
	res := InvalidBookmark{Bookmark: b}

	u, ok := parseURL(b.URL)
	if !ok {
		res.Reason = InvalidURLFormat
		return res, true, string(res.Reason)
	}
	if skipSchemes[u.Scheme] {
		return res, false, "skipped"
	}
	if strings.TrimSpace(b.Title) == "" {
		res.Reason = EmptyTitle
		return res, true, string(res.Reason)
	}

	status, err := c.probe(ctx, u.String())
	if err != nil {
		res.Reason, res.Detail = classifyError(err)
		return res, true, string(res.Reason)
	}

	if status >= 400 {
		if c.isExcluded(u.Hostname()) && isAuthLike(status) {
			log.Printf("[DEBUG] %s answered %d, possibly private", b.URL, status)
			return res, false, "ok"
		}
		res.Reason = HTTPError
		res.StatusCode = status
		res.Detail = http.StatusText(status)
		return res, true, string(res.Reason)
	}

	return res, false, "ok"
}

// probe sends HEAD, falling back to GET when the server rejects HEAD.
func (c *Checker) probe(ctx context.Context, target string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	status, err := c.do(ctx, http.MethodHead, target)
	if err != nil {
		return 0, err
	}
	if status == http.StatusMethodNotAllowed || status == http.StatusNotImplemented {
		return c.do(ctx, http.MethodGet, target)
	}
	return status, nil
}

func (c *Checker) do(ctx context.Context, method, target string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, http.NoBody)
	if err != nil {
		return 0, err
	}
	if c.opts.UserAgent != "" {
		req.Header.Set("User-Agent", c.opts.UserAgent)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, err
	}
	_ = resp.Body.Close()
	return resp.StatusCode, nil
}

// parseURL accepts absolute URLs; http(s) URLs also need a host.
func parseURL(raw string) (*url.URL, bool) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Scheme == "" {
		return nil, false
	}
	if (u.Scheme == "http" || u.Scheme == "https") && u.Host == "" {
		return nil, false
	}
	return u, true
}

func classifyError(err error) (Reason, string) {
	if errors.Is(err, context.DeadlineExceeded) {
		return Timeout, "Timeout"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return Timeout, "Timeout"
	}
	return NetworkError, normalizeError(err.Error())
}

func isAuthLike(status int) bool {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound, http.StatusGone:
		return true
	}
	return false
}

// isExcluded checks the host and its parent domains against the exclude list.
func (c *Checker) isExcluded(host string) bool {
	host = strings.ToLower(host)
	for domain := range c.exclude {
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return true
		}
	}
	return false
}

// normalizeError simplifies verbose error messages into readable categories.
func normalizeError(errStr string) string {
	lower := strings.ToLower(errStr)

	switch {
	case strings.Contains(lower, "no such host"):
		return "DNS failure"
	case strings.Contains(lower, "connection refused"):
		return "Connection refused"
	case strings.Contains(lower, "certificate"):
		return "TLS/certificate error"
	case strings.Contains(lower, "network is unreachable"):
		return "Network unreachable"
	case strings.Contains(lower, "tls:"):
		return "TLS error"
	case strings.Contains(lower, "unsupported protocol scheme"):
		return "Unsupported protocol"
	default:
		return errStr
	}
}
