package engine

import (
	"net/http"
	"time"
)

// minPartSize is the smallest part size the planner will accept, per
// spec: construction rejects anything smaller.
const minPartSize = 10_000

// HTTPDoer is the opaque HTTP transport the engine depends on. Any
// *http.Client, or a wrapper adding proxy/auth/UA handling (see
// internal/httpclient), satisfies it.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// DownloaderConfig holds the values fixed at Controller construction.
type DownloaderConfig struct {
	URI    string
	Client HTTPDoer

	Sink     Sink
	OpenSink func() (Sink, error)

	PartSize        int64
	MaxPartCount    int
	MaxRetryCount   int
	WriteBufferSize int

	AllowResuming   bool
	AutoDisposeSink bool

	DownloadedRanges []*DownloadRange
	IsStopped        bool

	OnBeforeFinish func()
	Events         Events

	RetryBackoff func(attempt int) time.Duration
}

// DefaultConfig returns a DownloaderConfig with the same ambient
// defaults the CLI layer falls back to when a flag is left unset.
func DefaultConfig() DownloaderConfig {
	return DownloaderConfig{
		PartSize:        8 * 1024 * 1024,
		MaxPartCount:    4,
		MaxRetryCount:   3,
		WriteBufferSize: 32 * 1024,
		AllowResuming:   true,
		AutoDisposeSink: true,
		RetryBackoff: func(attempt int) time.Duration {
			return time.Duration(attempt) * 500 * time.Millisecond
		},
	}
}

// Validate checks construction-time invariants, returning
// *InvalidConfigError on the first violation found.
func (c DownloaderConfig) Validate() error {
	if c.URI == "" {
		return &InvalidConfigError{Field: "URI", Reason: "must not be empty"}
	}
	if c.PartSize < minPartSize {
		return &InvalidConfigError{Field: "PartSize", Reason: "must be >= 10000 bytes"}
	}
	if c.MaxPartCount < 1 {
		return &InvalidConfigError{Field: "MaxPartCount", Reason: "must be >= 1"}
	}
	if c.MaxRetryCount < 0 {
		return &InvalidConfigError{Field: "MaxRetryCount", Reason: "must be >= 0"}
	}
	if c.WriteBufferSize <= 0 {
		return &InvalidConfigError{Field: "WriteBufferSize", Reason: "must be > 0"}
	}
	return nil
}
