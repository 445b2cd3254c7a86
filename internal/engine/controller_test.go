package engine

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"
)

func testConfig(t *testing.T, srv *httptest.Server, sink Sink, opts ...Option) DownloaderConfig {
	t.Helper()
	base := []Option{
		WithClient(srv.Client()),
		WithSink(sink),
		WithWriteBufferSize(4096),
		WithRetryBackoff(func(int) time.Duration { return time.Millisecond }),
	}
	return NewConfig(srv.URL, append(base, opts...)...)
}

func randomContent(n int) []byte {
	b := make([]byte, n)
	r := rand.New(rand.NewSource(1))
	r.Read(b)
	return b
}

// rangeServer serves content with full Range support via manual
// Content-Range responses, so tests can intercept individual attempts.
type rangeServer struct {
	mu       sync.Mutex
	content  []byte
	override func(w http.ResponseWriter, r *http.Request, from, to int64) bool // true if it fully handled the request
}

func (s *rangeServer) handler(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodHead {
		w.Header().Set("Accept-Ranges", "bytes")
		w.Header().Set("Content-Length", strconv.Itoa(len(s.content)))
		w.WriteHeader(http.StatusOK)
		return
	}
	rangeHeader := r.Header.Get("Range")
	from, to := int64(0), int64(len(s.content)-1)
	if rangeHeader != "" {
		var err error
		from, to, err = parseRangeHeader(rangeHeader)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}
	if s.override != nil {
		s.mu.Lock()
		handled := s.override(w, r, from, to)
		s.mu.Unlock()
		if handled {
			return
		}
	}
	w.Header().Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", from, to, len(s.content)))
	w.Header().Set("Content-Length", strconv.Itoa(int(to-from+1)))
	if rangeHeader != "" {
		w.WriteHeader(http.StatusPartialContent)
	} else {
		w.WriteHeader(http.StatusOK)
	}
	w.Write(s.content[from : to+1])
}

func parseRangeHeader(h string) (int64, int64, error) {
	h = strings.TrimPrefix(h, "bytes=")
	parts := strings.SplitN(h, "-", 2)
	from, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return 0, 0, err
	}
	to, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return 0, 0, err
	}
	return from, to, nil
}

// S1: happy path, range-capable server.
func TestControllerHappyPathRangeCapable(t *testing.T) {
	content := randomContent(100_000)
	rs := &rangeServer{content: content}
	srv := httptest.NewServer(http.HandlerFunc(rs.handler))
	defer srv.Close()

	sink := &memSink{}
	cfg := testConfig(t, srv, sink, WithPartSize(40_000), WithMaxPartCount(4))
	ctrl, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := ctrl.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if ctrl.State() != StateFinished {
		t.Fatalf("State = %v, want Finished", ctrl.State())
	}
	if len(sink.buf) != len(content) || string(sink.buf) != string(content) {
		t.Fatalf("sink content mismatch")
	}
	ranges := ctrl.DownloadedRanges()
	if len(ranges) != 3 {
		t.Fatalf("got %d ranges, want 3", len(ranges))
	}
	for _, r := range ranges {
		if !r.IsDone {
			t.Fatalf("range [%d,%d] not marked done", r.From, r.To)
		}
	}
}

// S2: non-range server falls back to a single non-resumable range.
func TestControllerNonRangeServer(t *testing.T) {
	content := randomContent(50_000)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.Header().Set("Content-Length", strconv.Itoa(len(content)))
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write(content)
	}))
	defer srv.Close()

	sink := &memSink{}
	cfg := testConfig(t, srv, sink, WithPartSize(10_000), WithMaxPartCount(4))
	ctrl, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := ctrl.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if ctrl.IsResumingSupported() {
		t.Fatalf("IsResumingSupported = true, want false")
	}
	ranges := ctrl.DownloadedRanges()
	if len(ranges) != 1 {
		t.Fatalf("got %d ranges, want 1", len(ranges))
	}
	if string(sink.buf) != string(content) {
		t.Fatalf("sink content mismatch")
	}
}

// S3: resuming with a preloaded range set only re-fetches incomplete ranges.
func TestControllerResume(t *testing.T) {
	content := randomContent(100_000)
	var requestedFroms []int64
	rs := &rangeServer{content: content}
	rs.override = func(w http.ResponseWriter, r *http.Request, from, to int64) bool {
		requestedFroms = append(requestedFroms, from)
		return false
	}
	srv := httptest.NewServer(http.HandlerFunc(rs.handler))
	defer srv.Close()

	sink := &memSink{}
	sink.Write(make([]byte, 100_000))
	copy(sink.buf[0:40_000], content[0:40_000])

	preload := []*DownloadRange{
		{From: 0, To: 39_999, CurrentOffset: 40_000, IsDone: true},
		{From: 40_000, To: 79_999},
		{From: 80_000, To: 99_999},
	}
	cfg := testConfig(t, srv, sink, WithPartSize(40_000), WithMaxPartCount(4), WithDownloadedRanges(preload))
	ctrl, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := ctrl.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	for _, from := range requestedFroms {
		if from == 0 {
			t.Fatalf("range 0 was refetched despite being marked done")
		}
	}
	if string(sink.buf) != string(content) {
		t.Fatalf("sink content mismatch after resume")
	}
}

// S4: a truncated first attempt is retried from the partial offset.
func TestControllerRetryAfterTruncation(t *testing.T) {
	content := randomContent(100_000)
	var truncatedOnce bool
	rs := &rangeServer{content: content}
	rs.override = func(w http.ResponseWriter, r *http.Request, from, to int64) bool {
		if from == 40_000 && !truncatedOnce {
			truncatedOnce = true
			w.Header().Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", from, to, len(content)))
			w.Header().Set("Content-Length", "10")
			w.WriteHeader(http.StatusPartialContent)
			w.Write(content[from : from+10])
			return true
		}
		return false
	}
	srv := httptest.NewServer(http.HandlerFunc(rs.handler))
	defer srv.Close()

	sink := &memSink{}
	cfg := testConfig(t, srv, sink, WithPartSize(40_000), WithMaxPartCount(4), WithMaxRetryCount(1))
	ctrl, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := ctrl.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !truncatedOnce {
		t.Fatalf("truncation path never exercised")
	}
	if string(sink.buf) != string(content) {
		t.Fatalf("sink content mismatch after retry")
	}
}

// S5: a range that fails on every attempt surfaces as Error, and the
// scheduler cancels siblings.
func TestControllerFatalFailure(t *testing.T) {
	content := randomContent(100_000)
	rs := &rangeServer{content: content}
	rs.override = func(w http.ResponseWriter, r *http.Request, from, to int64) bool {
		if from == 80_000 {
			http.Error(w, "boom", http.StatusInternalServerError)
			return true
		}
		return false
	}
	srv := httptest.NewServer(http.HandlerFunc(rs.handler))
	defer srv.Close()

	sink := &memSink{}
	cfg := testConfig(t, srv, sink, WithPartSize(40_000), WithMaxPartCount(4), WithMaxRetryCount(0))
	ctrl, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := ctrl.Start(context.Background()); err == nil {
		t.Fatalf("Start: want error, got nil")
	}
	if ctrl.State() != StateError {
		t.Fatalf("State = %v, want Error", ctrl.State())
	}
	if ctrl.LastException() == nil {
		t.Fatalf("LastException is nil, want the range 500 failure")
	}
}

// S6: Stop mid-flight settles at Stopped with no LastException.
func TestControllerStopMidFlight(t *testing.T) {
	content := randomContent(200_000)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.Header().Set("Content-Length", strconv.Itoa(len(content)))
			w.WriteHeader(http.StatusOK)
			return
		}
		flusher, _ := w.(http.Flusher)
		w.WriteHeader(http.StatusOK)
		chunk := 2000
		for i := 0; i < len(content); i += chunk {
			end := min(i+chunk, len(content))
			w.Write(content[i:end])
			if flusher != nil {
				flusher.Flush()
			}
			time.Sleep(2 * time.Millisecond)
		}
	}))
	defer srv.Close()

	sink := &memSink{}
	var gotData bool
	var firstData sync.Once
	stopCh := make(chan struct{})
	cfg := testConfig(t, srv, sink, WithPartSize(200_000), WithMaxPartCount(1),
		WithEvents(Events{
			OnDataReceived: func(n int) {
				gotData = true
				firstData.Do(func() { close(stopCh) })
			},
		}))
	ctrl, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	go func() {
		<-stopCh
		ctrl.Stop(context.Background())
	}()

	err = ctrl.Start(context.Background())
	if !gotData {
		t.Fatalf("never observed DataReceived before stopping")
	}
	if ctrl.State() != StateStopped {
		t.Fatalf("State = %v, want Stopped (err=%v)", ctrl.State(), err)
	}
	if ctrl.LastException() != nil {
		t.Fatalf("LastException = %v, want nil", ctrl.LastException())
	}
}

// Re-driving a downloader after Stop (idle state) must not immediately
// cancel: the Controller's cancellation signal has to be renewed.
func TestControllerRestartAfterStop(t *testing.T) {
	content := randomContent(20_000)
	rs := &rangeServer{content: content}
	srv := httptest.NewServer(http.HandlerFunc(rs.handler))
	defer srv.Close()

	sink := &memSink{}
	cfg := testConfig(t, srv, sink, WithPartSize(20_000), WithMaxPartCount(1))
	ctrl, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := ctrl.Stop(context.Background()); err != nil {
		t.Fatalf("Stop on idle: %v", err)
	}
	if ctrl.State() != StateStopped {
		t.Fatalf("State after idle Stop = %v, want Stopped", ctrl.State())
	}
	if err := ctrl.Start(context.Background()); err != nil {
		t.Fatalf("Start after Stop: %v", err)
	}
	if ctrl.State() != StateFinished {
		t.Fatalf("State = %v, want Finished", ctrl.State())
	}
}
