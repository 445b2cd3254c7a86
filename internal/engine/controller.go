package engine

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// future is a minimal single-completion promise used to let Init,
// Start and Stop await each other's in-flight work without holding
// the lifecycle mutex across a blocking call.
type future struct {
	done chan struct{}
	err  error
}

func newFuture() *future {
	return &future{done: make(chan struct{})}
}

func (f *future) complete(err error) {
	f.err = err
	close(f.done)
}

func (f *future) wait() error {
	<-f.done
	return f.err
}

// mergeContexts derives a context cancelled when either a or b is
// cancelled, so request-scoped deadlines and the Controller's own
// cancellation signal both abort in-flight work.
func mergeContexts(a, b context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(a)
	go func() {
		select {
		case <-b.Done():
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

// Controller is the lifecycle state machine coordinating Init, Start,
// Stop and Dispose for a single download. It exclusively owns the
// range array, the cancellation signal and the speed meter; the sink
// is shared with RangeFetchers only through SinkWriter's mutex.
type Controller struct {
	ID uuid.UUID

	cfg    DownloaderConfig
	events Events
	hooks  Hooks

	mu                sync.Mutex
	state             DownloadState
	totalSize         int64
	resumingSupported bool
	ranges            []*DownloadRange
	lastErr           error

	cancel context.CancelFunc
	ctx    context.Context

	initFuture  *future
	startFuture *future
	stopFuture  *future

	speed  *SpeedMeter
	writer *SinkWriter
}

// New constructs a Controller in state None (or Stopped, if
// cfg.IsStopped is set), validating cfg per DownloaderConfig.Validate.
func New(cfg DownloaderConfig) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	initial := StateNone
	if cfg.IsStopped {
		initial = StateStopped
	}
	if cfg.Client == nil {
		cfg.Client = http.DefaultClient
	}

	c := &Controller{
		ID:     uuid.New(),
		cfg:    cfg,
		events: cfg.Events,
		hooks: Hooks{
			OpenSink:       cfg.OpenSink,
			OnBeforeFinish: cfg.OnBeforeFinish,
		},
		state: initial,
		speed: NewSpeedMeter(),
	}
	c.ctx, c.cancel = context.WithCancel(context.Background())
	if len(cfg.DownloadedRanges) > 0 {
		c.ranges = cfg.DownloadedRanges
		c.totalSize = RangesTotalSize(c.ranges)
	}
	c.writer = NewSinkWriter(cfg.Sink, c.hooks.OpenSink, cfg.AutoDisposeSink, c.onDataReceived)
	return c, nil
}

// renewCancelLocked replaces the Controller's cancellation signal with
// a fresh one. Called whenever a new Init session begins, so that a
// prior Stop's permanently-cancelled context never leaks into a
// re-drive from an idle state (Stopped, Error). Callers must hold mu.
func (c *Controller) renewCancelLocked() {
	c.ctx, c.cancel = context.WithCancel(context.Background())
}

func (c *Controller) onDataReceived(n int) {
	c.speed.Record(n)
	c.events.fireDataReceived(n)
}

// State returns the current lifecycle state.
func (c *Controller) State() DownloadState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// LastException returns the error recorded the last time the
// Controller transitioned to Error, or nil.
func (c *Controller) LastException() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// TotalSize returns the resource size discovered at Init. Before Init
// has completed it is the combined width of any caller-supplied
// DownloadedRanges, or 0 if none were supplied.
func (c *Controller) TotalSize() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.totalSize
}

// IsResumingSupported reports whether the server advertised byte
// ranges and AllowResuming was set.
func (c *Controller) IsResumingSupported() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resumingSupported
}

// CurrentSize sums CurrentOffset across ranges. Reads are
// intentionally unsynchronized with respect to individual range
// mutation: a torn read on a single int64 field is harmless for
// progress reporting.
func (c *Controller) CurrentSize() int64 {
	c.mu.Lock()
	ranges := c.ranges
	c.mu.Unlock()
	var total int64
	for _, r := range ranges {
		total += r.CurrentOffset
	}
	return total
}

// BytesPerSecond reports the current transfer rate over the trailing
// 5-second window.
func (c *Controller) BytesPerSecond() float64 {
	return c.speed.BytesPerSecond()
}

// DownloadedRanges returns an immutable snapshot of every range's
// current progress.
func (c *Controller) DownloadedRanges() []RangeSnapshot {
	c.mu.Lock()
	ranges := c.ranges
	c.mu.Unlock()
	out := make([]RangeSnapshot, len(ranges))
	for i, r := range ranges {
		out[i] = snapshotRange(r)
	}
	return out
}

// setState transitions state and fires DownloadStateChanged outside
// the lock, so the event observed always matches the value that
// triggered it without ever holding the lifecycle mutex during
// dispatch.
func (c *Controller) setState(s DownloadState) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
	c.events.fireStateChanged(s)
}

// setLastError finalizes the sink and converts e into either Stopped
// (cancellation) or Error (everything else), recording LastException
// before the Error transition so an observer reading State on the
// resulting event also sees a non-nil LastException.
func (c *Controller) setLastError(e error) {
	c.writer.Finalize()

	if errors.Is(e, context.Canceled) || errors.Is(e, ErrCancelled) {
		c.mu.Lock()
		c.state = StateStopped
		c.mu.Unlock()
		c.events.fireStateChanged(StateStopped)
		return
	}

	c.mu.Lock()
	c.lastErr = e
	c.state = StateError
	c.mu.Unlock()
	c.events.fireStateChanged(StateError)
}

// Init issues the HEAD probe, determines total size and range
// support, and (re)builds the range set. It is idempotent: calling it
// again while initialization is already in flight or complete simply
// awaits/returns the existing outcome.
func (c *Controller) Init(ctx context.Context) error {
	c.mu.Lock()
	for c.state == StateStopping {
		stopFuture := c.stopFuture
		c.mu.Unlock()
		if stopFuture != nil {
			stopFuture.wait()
		}
		c.mu.Lock()
	}

	switch c.state {
	case StateInitializing:
		fut := c.initFuture
		c.mu.Unlock()
		return fut.wait()
	case StateInitialized, StateDownloading, StateFinished:
		c.mu.Unlock()
		return nil
	}

	fut := newFuture()
	c.initFuture = fut
	c.state = StateInitializing
	c.renewCancelLocked()
	c.mu.Unlock()
	c.events.fireStateChanged(StateInitializing)

	mergedCtx, cancel := mergeContexts(ctx, c.ctx)
	defer cancel()
	err := c.doInit(mergedCtx)
	if err != nil {
		c.setLastError(err)
		fut.complete(err)
		return err
	}

	c.mu.Lock()
	c.state = StateInitialized
	c.mu.Unlock()
	c.events.fireStateChanged(StateInitialized)
	fut.complete(nil)
	return nil
}

func (c *Controller) doInit(ctx context.Context) error {
	log := getLogger("controller")
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.cfg.URI, nil)
	if err != nil {
		return &HeaderUnavailableError{Err: err}
	}
	resp, err := c.cfg.Client.Do(req)
	if err != nil {
		return &HeaderUnavailableError{Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return &HeaderUnavailableError{Err: fmt.Errorf("HEAD returned status %d", resp.StatusCode)}
	}

	totalSize, err := contentLength(resp)
	if err != nil {
		return &HeaderUnavailableError{Err: err}
	}

	serverSupportsRanges := strings.Contains(resp.Header.Get("Accept-Ranges"), "bytes")
	resumingSupported := c.cfg.AllowResuming && serverSupportsRanges

	c.mu.Lock()
	c.totalSize = totalSize
	c.resumingSupported = resumingSupported
	ranges := c.ranges
	c.mu.Unlock()

	if len(ranges) == 0 || RangesTotalSize(ranges) != totalSize {
		ranges = PlanRanges(totalSize, c.cfg.PartSize, resumingSupported)
		c.mu.Lock()
		c.ranges = ranges
		c.mu.Unlock()
	}

	log.Debug().Str("uri", c.cfg.URI).Int64("totalSize", totalSize).Bool("resumable", resumingSupported).Int("ranges", len(ranges)).Msg("initialized")
	return nil
}

func contentLength(resp *http.Response) (int64, error) {
	if resp.ContentLength >= 0 {
		return resp.ContentLength, nil
	}
	header := resp.Header.Get("Content-Length")
	if header == "" {
		return 0, errors.New("missing Content-Length header")
	}
	return strconv.ParseInt(header, 10, 64)
}

// Start drives the download to completion: it calls Init if needed,
// runs the RangeScheduler across every incomplete range, finalizes
// the sink, and transitions to Finished, Stopped or Error depending
// on the outcome. It is idempotent the same way Init is.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	for c.state == StateStopping {
		stopFuture := c.stopFuture
		c.mu.Unlock()
		if stopFuture != nil {
			stopFuture.wait()
		}
		c.mu.Lock()
	}

	switch c.state {
	case StateDownloading:
		fut := c.startFuture
		c.mu.Unlock()
		return fut.wait()
	case StateFinished:
		c.mu.Unlock()
		return nil
	}

	fut := newFuture()
	c.startFuture = fut
	c.mu.Unlock()

	if err := c.Init(ctx); err != nil {
		fut.complete(err)
		return err
	}

	c.mu.Lock()
	if c.state != StateInitialized {
		// An error was already recorded by Init (or a concurrent
		// caller moved state elsewhere); nothing more to do here.
		state := c.state
		c.mu.Unlock()
		fut.complete(nil)
		_ = state
		return nil
	}
	c.state = StateDownloading
	c.mu.Unlock()
	c.events.fireStateChanged(StateDownloading)

	err := c.runTransfer(ctx)

	if err != nil {
		c.setLastError(err)
		fut.complete(err)
		return err
	}

	if ferr := c.writer.Finalize(); ferr != nil {
		c.setLastError(ferr)
		fut.complete(ferr)
		return ferr
	}
	if c.hooks.OnBeforeFinish != nil {
		c.hooks.OnBeforeFinish()
	}

	c.mu.Lock()
	c.state = StateFinished
	c.mu.Unlock()
	c.events.fireStateChanged(StateFinished)
	fut.complete(nil)
	return nil
}

func (c *Controller) runTransfer(ctx context.Context) error {
	c.mu.Lock()
	ranges := c.ranges
	resumingSupported := c.resumingSupported
	c.mu.Unlock()

	scheduler := &RangeScheduler{MaxParallel: c.cfg.MaxPartCount}
	fetcher := &RangeFetcher{
		Client:            c.cfg.Client,
		URI:               c.cfg.URI,
		Writer:            c.writer,
		WriteBufferSize:   c.cfg.WriteBufferSize,
		MaxRetryCount:     c.cfg.MaxRetryCount,
		ResumingSupported: resumingSupported,
		Backoff:           c.cfg.RetryBackoff,
	}

	childCtx, cancel := mergeContexts(ctx, c.ctx)
	defer cancel()

	return scheduler.Run(childCtx, ranges, fetcher.Fetch, func(idx int) {
		c.events.fireRangeDownloaded(idx)
	})
}

// Stop is a no-op in Finished, Stopped and Error. From any other
// state (including None and Initialized) it snapshots the in-flight Init/Start futures, transitions
// to Stopping, fires the shared cancellation signal, awaits both
// futures, and settles at Stopped.
func (c *Controller) Stop(ctx context.Context) error {
	c.mu.Lock()
	switch c.state {
	case StateFinished, StateStopped, StateError:
		c.mu.Unlock()
		return nil
	}
	initFuture := c.initFuture
	startFuture := c.startFuture
	fut := newFuture()
	c.stopFuture = fut
	c.state = StateStopping
	c.mu.Unlock()
	c.events.fireStateChanged(StateStopping)

	c.cancel()

	if initFuture != nil {
		initFuture.wait()
	}
	if startFuture != nil {
		startFuture.wait()
	}

	c.mu.Lock()
	c.state = StateStopped
	c.mu.Unlock()
	c.events.fireStateChanged(StateStopped)
	fut.complete(nil)
	return nil
}

// Flush synchronously flushes the sink.
func (c *Controller) Flush() error {
	return c.writer.Flush()
}

// Dispose cancels any in-flight work and, if AutoDisposeSink is set,
// releases the sink. It does not change State beyond what Stop would;
// callers that want a clean terminal state should call Stop first.
func (c *Controller) Dispose(ctx context.Context) error {
	c.cancel()
	return c.writer.Finalize()
}
