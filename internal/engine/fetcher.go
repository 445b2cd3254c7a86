package engine

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// RangeFetcher downloads one DownloadRange via HTTP, streaming bytes
// into a shared SinkWriter and retrying transient failures.
type RangeFetcher struct {
	Client            HTTPDoer
	URI               string
	Writer            *SinkWriter
	WriteBufferSize   int
	MaxRetryCount     int
	ResumingSupported bool
	Backoff           func(attempt int) time.Duration
}

// Fetch drives rng to completion, retrying up to MaxRetryCount
// additional times on any non-cancellation failure and wrapping the
// last one in *TransferError once attempts run out. Each attempt
// re-reads rng.CurrentOffset so bytes already committed by a prior
// attempt are never re-fetched. Cancellation aborts retries
// immediately.
func (f *RangeFetcher) Fetch(ctx context.Context, rng *DownloadRange) error {
	log := getLogger("fetcher")
	attempts := f.MaxRetryCount + 1
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if attempt > 0 {
			backoff := f.Backoff
			if backoff == nil {
				backoff = func(n int) time.Duration { return time.Duration(n) * 500 * time.Millisecond }
			}
			select {
			case <-time.After(backoff(attempt)):
			case <-ctx.Done():
				return ctx.Err()
			}
			log.Debug().Int("attempt", attempt+1).Int("maxAttempts", attempts).Int64("from", rng.From).Msg("retrying range")
		}

		err := f.attempt(ctx, rng)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		lastErr = err
		log.Error().Err(err).Int("attempt", attempt+1).Int64("from", rng.From).Msg("range attempt failed")
	}
	return &TransferError{RangeFrom: rng.From, RangeTo: rng.To, Attempts: attempts, Err: lastErr}
}

func (f *RangeFetcher) attempt(ctx context.Context, rng *DownloadRange) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.URI, nil)
	if err != nil {
		return err
	}

	if f.ResumingSupported {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", rng.From+rng.CurrentOffset, rng.To))
	} else if rng.From != 0 || rng.CurrentOffset != 0 {
		return &ResumeUnsupportedError{RangeFrom: rng.From}
	}

	resp, err := f.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		return fmt.Errorf("unexpected status code %d", resp.StatusCode)
	}

	buf := make([]byte, f.WriteBufferSize)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, rerr := resp.Body.Read(buf)
		if n > 0 {
			if werr := f.Writer.WriteAt(rng, buf[:n]); werr != nil {
				return werr
			}
		}
		if rerr != nil {
			if rerr == io.EOF {
				break
			}
			return rerr
		}
	}

	if rng.CurrentOffset != rng.Width() {
		return fmt.Errorf("short read: got %d of %d bytes", rng.CurrentOffset, rng.Width())
	}
	f.Writer.MarkDone(rng)
	return nil
}
