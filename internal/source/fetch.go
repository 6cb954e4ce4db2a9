package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"math/rand"
	"mime"
	"net"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// MaxBodyBytes caps a single payload.
const MaxBodyBytes int64 = 64 << 20

// Payload is one fetched source file.
type Payload struct {
	// Name is a file name hint for format detection.
	Name        string
	URL         string
	ContentType string
	Data        []byte
	FetchedAt   time.Time
}

// Fetcher downloads sources with a bounded timeout and retries.
type Fetcher struct {
	httpClient       *http.Client
	timeout          time.Duration
	retryMaxAttempts int
	retryBaseDelay   time.Duration
	retryMaxDelay    time.Duration
	userAgent        string
	maxBody          int64
	logger           *slog.Logger

	// sleep waits between attempts; replaced in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// Options customizes a Fetcher. Zero values take defaults.
type Options struct {
	Timeout          time.Duration
	RetryMaxAttempts int
	RetryBaseDelay   time.Duration
	RetryMaxDelay    time.Duration
	UserAgent        string
	Logger           *slog.Logger
}

// NewFetcher returns a fetcher with default timeouts and retry strategy
// where opts leaves them unset.
func NewFetcher(opts Options) *Fetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = 45 * time.Second
	}
	if opts.RetryMaxAttempts <= 0 {
		opts.RetryMaxAttempts = 3
	}
	if opts.RetryBaseDelay <= 0 {
		opts.RetryBaseDelay = 500 * time.Millisecond
	}
	if opts.RetryMaxDelay <= 0 {
		opts.RetryMaxDelay = 4 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "iw58-dashboard"
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Fetcher{
		httpClient:       &http.Client{},
		timeout:          opts.Timeout,
		retryMaxAttempts: opts.RetryMaxAttempts,
		retryBaseDelay:   opts.RetryBaseDelay,
		retryMaxDelay:    opts.RetryMaxDelay,
		userAgent:        opts.UserAgent,
		maxBody:          MaxBodyBytes,
		logger:           opts.Logger,
		sleep:            sleepCtx,
	}
}

// Fetch reads src, which is either an HTTP(S) URL (share links are
// normalized first) or a local file path.
func (f *Fetcher) Fetch(ctx context.Context, src string) (*Payload, error) {
	src = NormalizeURL(src)
	if src == "" {
		return nil, errors.New("source is empty")
	}
	if !IsRemote(src) {
		return f.readFile(src)
	}
	return f.get(ctx, src)
}

func (f *Fetcher) readFile(p string) (*Payload, error) {
	st, err := os.Stat(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &NotFoundError{Path: p, Err: err}
		}
		return nil, fmt.Errorf("stat source: %w", err)
	}
	if st.Size() > f.maxBody {
		return nil, fmt.Errorf("read %s: %w", p, ErrBodyTooLarge)
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("read source: %w", err)
	}
	return &Payload{Name: filepath.Base(p), URL: p, Data: data, FetchedAt: time.Now()}, nil
}

func (f *Fetcher) get(ctx context.Context, u string) (*Payload, error) {
	backoff := f.retryBaseDelay
	var lastErr *TransportError
	for attempt := 1; attempt <= f.retryMaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, &TransportError{URL: u, Attempts: attempt - 1, Err: err}
		}
		p, terr := f.attempt(ctx, u)
		if terr == nil {
			return p, nil
		}
		terr.Attempts = attempt
		lastErr = terr
		retry := terr.Retryable() || (terr.StatusCode == 0 && isRetryableNetErr(terr.Err) && ctx.Err() == nil)
		if !retry || attempt == f.retryMaxAttempts {
			break
		}
		wait := terr.RetryAfter
		if wait <= 0 {
			wait = withJitter(backoff)
			if wait > f.retryMaxDelay {
				wait = f.retryMaxDelay
			}
			backoff *= 2
		}
		f.logger.Warn("fetch failed, retrying", "url", u, "attempt", attempt, "status", terr.StatusCode, "wait", wait, "err", terr.Err)
		if err := f.sleep(ctx, wait); err != nil {
			return nil, &TransportError{URL: u, Attempts: attempt, Err: err}
		}
	}
	return nil, lastErr
}

func (f *Fetcher) attempt(ctx context.Context, u string) (*Payload, *TransportError) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, &TransportError{URL: u, Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("User-Agent", f.userAgent)
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{URL: u, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 8<<10))
		terr := &TransportError{URL: u, StatusCode: resp.StatusCode, Err: errors.New(http.StatusText(resp.StatusCode))}
		if ra := resp.Header.Get("Retry-After"); ra != "" {
			if secs, err := parseRetryAfterSeconds(ra); err == nil && secs > 0 {
				terr.RetryAfter = time.Duration(secs) * time.Second
			}
		}
		return nil, terr
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBody+1))
	if err != nil {
		return nil, &TransportError{URL: u, StatusCode: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}
	if int64(len(data)) > f.maxBody {
		return nil, &TransportError{URL: u, StatusCode: resp.StatusCode, Err: ErrBodyTooLarge}
	}
	return &Payload{
		Name:        payloadName(resp, u),
		URL:         u,
		ContentType: resp.Header.Get("Content-Type"),
		Data:        data,
		FetchedAt:   time.Now(),
	}, nil
}

// payloadName prefers the Content-Disposition file name, then the URL path.
// Sheets exports carry no extension in the path, so CSV is assumed for them.
func payloadName(resp *http.Response, u string) string {
	if cd := resp.Header.Get("Content-Disposition"); cd != "" {
		if _, params, err := mime.ParseMediaType(cd); err == nil && params["filename"] != "" {
			return params["filename"]
		}
	}
	ct := strings.ToLower(resp.Header.Get("Content-Type"))
	switch {
	case strings.Contains(ct, "spreadsheetml"):
		return "source.xlsx"
	case strings.Contains(ct, "text/csv"):
		return "source.csv"
	}
	if resp.Request != nil && resp.Request.URL != nil {
		if base := path.Base(resp.Request.URL.Path); base != "." && base != "/" && strings.Contains(base, ".") {
			return base
		}
	}
	if strings.Contains(u, "format=csv") {
		return "source.csv"
	}
	return "source"
}

func isRetryableNetErr(err error) bool {
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return true
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	return errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED)
}

// parseRetryAfterSeconds interprets a Retry-After header as seconds or an HTTP date.
func parseRetryAfterSeconds(v string) (int, error) {
	if s, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
		return s, nil
	}
	if t, err := http.ParseTime(v); err == nil {
		d := time.Until(t)
		if d < 0 {
			d = 0
		}
		return int(d.Seconds()), nil
	}
	return 0, fmt.Errorf("invalid Retry-After: %q", v)
}

// withJitter spreads d by up to ±20%.
func withJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return d
	}
	delta := int64(d) / 5
	if delta == 0 {
		return d
	}
	return d + time.Duration(rand.Int63n(2*delta+1)-delta)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
