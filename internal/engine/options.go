package engine

import "time"

// Option mutates a DownloaderConfig built by NewConfig. The zero-value
// struct literal works just as well; Option exists for CLI-style
// callers that assemble a config from optional flags one at a time.
type Option func(*DownloaderConfig)

// NewConfig builds a DownloaderConfig for uri starting from
// DefaultConfig and applying opts in order.
func NewConfig(uri string, opts ...Option) DownloaderConfig {
	cfg := DefaultConfig()
	cfg.URI = uri
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

func WithClient(c HTTPDoer) Option {
	return func(cfg *DownloaderConfig) { cfg.Client = c }
}

func WithSink(s Sink) Option {
	return func(cfg *DownloaderConfig) { cfg.Sink = s }
}

func WithOpenSink(f func() (Sink, error)) Option {
	return func(cfg *DownloaderConfig) { cfg.OpenSink = f }
}

func WithPartSize(n int64) Option {
	return func(cfg *DownloaderConfig) { cfg.PartSize = n }
}

func WithMaxPartCount(n int) Option {
	return func(cfg *DownloaderConfig) { cfg.MaxPartCount = n }
}

func WithMaxRetryCount(n int) Option {
	return func(cfg *DownloaderConfig) { cfg.MaxRetryCount = n }
}

func WithWriteBufferSize(n int) Option {
	return func(cfg *DownloaderConfig) { cfg.WriteBufferSize = n }
}

func WithAllowResuming(allow bool) Option {
	return func(cfg *DownloaderConfig) { cfg.AllowResuming = allow }
}

func WithAutoDisposeSink(auto bool) Option {
	return func(cfg *DownloaderConfig) { cfg.AutoDisposeSink = auto }
}

func WithDownloadedRanges(ranges []*DownloadRange) Option {
	return func(cfg *DownloaderConfig) { cfg.DownloadedRanges = ranges }
}

func WithIsStopped(stopped bool) Option {
	return func(cfg *DownloaderConfig) { cfg.IsStopped = stopped }
}

func WithEvents(e Events) Option {
	return func(cfg *DownloaderConfig) { cfg.Events = e }
}

func WithOnBeforeFinish(f func()) Option {
	return func(cfg *DownloaderConfig) { cfg.OnBeforeFinish = f }
}

func WithRetryBackoff(f func(attempt int) time.Duration) Option {
	return func(cfg *DownloaderConfig) { cfg.RetryBackoff = f }
}
