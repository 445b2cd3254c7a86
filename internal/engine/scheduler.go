package engine

import (
	"context"
	"sync"
)

// RangeScheduler runs a bounded pool of RangeFetchers concurrently,
// with first-error-wins semantics: the first worker to exhaust its
// retry budget cancels every sibling and is the only error the caller
// sees, no matter how many siblings subsequently fail on
// cancellation.
type RangeScheduler struct {
	MaxParallel int
}

type rangeJob struct {
	index int
	rng   *DownloadRange
}

// Run fetches every incomplete range in ranges using fetch, bounded
// to MaxParallel concurrent workers, and reports each successful
// completion through onDone (index into ranges, not into the
// incomplete subset). It returns the first non-cancellation error
// observed, or nil if every range completed.
func (s *RangeScheduler) Run(ctx context.Context, ranges []*DownloadRange, fetch func(context.Context, *DownloadRange) error, onDone func(index int)) error {
	var jobs []rangeJob
	for i, r := range ranges {
		if !r.IsDone {
			jobs = append(jobs, rangeJob{index: i, rng: r})
		}
	}
	if len(jobs) == 0 {
		return nil
	}

	childCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	maxParallel := s.MaxParallel
	if maxParallel < 1 {
		maxParallel = 1
	}
	sem := make(chan struct{}, maxParallel)

	var wg sync.WaitGroup
	var mu sync.Mutex
	var rootErr error

	for _, job := range jobs {
		wg.Add(1)
		go func(job rangeJob) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
			case <-childCtx.Done():
				return
			}
			defer func() { <-sem }()

			err := fetch(childCtx, job.rng)
			if err != nil {
				if childCtx.Err() == nil {
					mu.Lock()
					if rootErr == nil {
						rootErr = err
					}
					mu.Unlock()
					cancel()
				}
				return
			}
			if onDone != nil {
				onDone(job.index)
			}
		}(job)
	}

	wg.Wait()

	mu.Lock()
	err := rootErr
	mu.Unlock()
	if err == nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}
