package source

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ipv4Server struct {
	URL string
	srv *http.Server
	ln  net.Listener
}

func (s *ipv4Server) Close() {
	_ = s.srv.Close()
	_ = s.ln.Close()
}

func newIPv4Server(t *testing.T, handler http.Handler) *ipv4Server {
	t.Helper()
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		if errors.Is(err, syscall.EACCES) || errors.Is(err, syscall.EPERM) {
			t.Skipf("skipping test: cannot open local listener (%v)", err)
		}
		t.Fatalf("listen tcp4: %v", err)
	}
	srv := &http.Server{Handler: handler}
	s := &ipv4Server{URL: "http://" + ln.Addr().String(), srv: srv, ln: ln}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			panic(fmt.Sprintf("test server serve: %v", err))
		}
	}()
	t.Cleanup(s.Close)
	return s
}

// statusSequence replies with statuses[i] on the i-th request, repeating the last.
func statusSequence(statuses []int, headers []http.Header, body string) (http.Handler, *int32) {
	var idx int32
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		i := int(atomic.AddInt32(&idx, 1)) - 1
		if i >= len(statuses) {
			i = len(statuses) - 1
		}
		if headers != nil && i < len(headers) {
			for k, vals := range headers[i] {
				for _, v := range vals {
					w.Header().Add(k, v)
				}
			}
		}
		w.WriteHeader(statuses[i])
		if statuses[i] == http.StatusOK {
			_, _ = w.Write([]byte(body))
		}
	}), &idx
}

func testFetcher(waits *[]time.Duration) *Fetcher {
	f := NewFetcher(Options{Timeout: 2 * time.Second, RetryMaxAttempts: 3, RetryBaseDelay: 10 * time.Millisecond, RetryMaxDelay: 40 * time.Millisecond})
	f.sleep = func(_ context.Context, d time.Duration) error {
		if waits != nil {
			*waits = append(*waits, d)
		}
		return nil
	}
	return f
}

func TestFetchSuccess(t *testing.T) {
	h, _ := statusSequence([]int{200}, []http.Header{{"Content-Type": {"text/csv; charset=utf-8"}}}, "UF,DATA\nSP,01/01/2024\n")
	srv := newIPv4Server(t, h)
	p, err := testFetcher(nil).Fetch(context.Background(), srv.URL+"/export")
	require.NoError(t, err)
	assert.Equal(t, "UF,DATA\nSP,01/01/2024\n", string(p.Data))
	assert.Equal(t, "source.csv", p.Name)
	assert.False(t, p.FetchedAt.IsZero())
}

func TestFetchRetriesServerErrors(t *testing.T) {
	h, calls := statusSequence([]int{503, 502, 200}, nil, "ok")
	srv := newIPv4Server(t, h)
	var waits []time.Duration
	p, err := testFetcher(&waits).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(p.Data))
	assert.EqualValues(t, 3, atomic.LoadInt32(calls))
	require.Len(t, waits, 2)
	for _, w := range waits {
		assert.LessOrEqual(t, w, 40*time.Millisecond)
	}
}

func TestFetchHonoursRetryAfter(t *testing.T) {
	h, _ := statusSequence([]int{429, 200}, []http.Header{{"Retry-After": {"2"}}}, "ok")
	srv := newIPv4Server(t, h)
	var waits []time.Duration
	_, err := testFetcher(&waits).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{2 * time.Second}, waits)
}

func TestFetchGivesUpAfterMaxAttempts(t *testing.T) {
	h, calls := statusSequence([]int{500}, nil, "")
	srv := newIPv4Server(t, h)
	_, err := testFetcher(nil).Fetch(context.Background(), srv.URL)
	var te *TransportError
	require.True(t, errors.As(err, &te), "err = %v", err)
	assert.Equal(t, 500, te.StatusCode)
	assert.Equal(t, 3, te.Attempts)
	assert.EqualValues(t, 3, atomic.LoadInt32(calls))
}

func TestFetchDoesNotRetryClientErrors(t *testing.T) {
	h, calls := statusSequence([]int{404}, nil, "")
	srv := newIPv4Server(t, h)
	_, err := testFetcher(nil).Fetch(context.Background(), srv.URL)
	var te *TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, 404, te.StatusCode)
	assert.EqualValues(t, 1, atomic.LoadInt32(calls))
}

func TestFetchTimeoutWrapsDeadline(t *testing.T) {
	release := make(chan struct{})
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer close(release)
	f := testFetcher(nil)
	f.timeout = 50 * time.Millisecond
	f.retryMaxAttempts = 1
	_, err := f.Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestFetchBodyCap(t *testing.T) {
	h, _ := statusSequence([]int{200}, nil, strings.Repeat("x", 64))
	srv := newIPv4Server(t, h)
	f := testFetcher(nil)
	f.maxBody = 16
	_, err := f.Fetch(context.Background(), srv.URL)
	assert.ErrorIs(t, err, ErrBodyTooLarge)
}

func TestFetchCancelledContext(t *testing.T) {
	h, calls := statusSequence([]int{200}, nil, "ok")
	srv := newIPv4Server(t, h)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := testFetcher(nil).Fetch(ctx, srv.URL)
	assert.ErrorIs(t, err, context.Canceled)
	assert.EqualValues(t, 0, atomic.LoadInt32(calls))
}

func TestFetchLocalFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "iw58.csv")
	require.NoError(t, os.WriteFile(p, []byte("UF\nSP\n"), 0o644))
	got, err := testFetcher(nil).Fetch(context.Background(), "file://"+p)
	require.NoError(t, err)
	assert.Equal(t, "iw58.csv", got.Name)
	assert.Equal(t, "UF\nSP\n", string(got.Data))

	_, err = testFetcher(nil).Fetch(context.Background(), filepath.Join(t.TempDir(), "nope.csv"))
	var nf *NotFoundError
	assert.True(t, errors.As(err, &nf))
}

func TestPayloadNameFromContentDisposition(t *testing.T) {
	h, _ := statusSequence([]int{200}, []http.Header{{"Content-Disposition": {`attachment; filename="IW58 base.xlsx"`}}}, "PK")
	srv := newIPv4Server(t, h)
	p, err := testFetcher(nil).Fetch(context.Background(), srv.URL+"/uc")
	require.NoError(t, err)
	assert.Equal(t, "IW58 base.xlsx", p.Name)
}

func TestParseRetryAfterSeconds(t *testing.T) {
	s, err := parseRetryAfterSeconds("3")
	require.NoError(t, err)
	assert.Equal(t, 3, s)
	_, err = parseRetryAfterSeconds("soon")
	assert.Error(t, err)
}
