package engine

// Hooks are the small, stable extensibility points spec'd for
// subclasses/collaborators. All fields are optional; a nil hook is
// simply skipped.
type Hooks struct {
	// OpenSink is invoked lazily by SinkWriter when no sink was
	// supplied at construction. An error it returns is passed back
	// to the writer unchanged; returning (nil, nil) fails with
	// ErrSinkUnavailable.
	OpenSink func() (Sink, error)

	// OnBeforeFinish runs once, after the scheduler reports success
	// and the sink has been finalized, just before the state
	// transitions to Finished.
	OnBeforeFinish func()
}

// Events are the three observable signals a Controller emits.
// Handlers are invoked outside the lifecycle/sink mutex and must not
// block; they run fire-and-forget on their own goroutine.
type Events struct {
	// OnStateChanged fires whenever State changes value. The State
	// observed by the handler equals the value that triggered it.
	OnStateChanged func(DownloadState)

	// OnDataReceived fires after each write committed to the sink,
	// with the number of bytes in that write.
	OnDataReceived func(n int)

	// OnRangeDownloaded fires exactly once per range, on that range's
	// successful completion.
	OnRangeDownloaded func(rangeIndex int)
}

func (e Events) fireStateChanged(s DownloadState) {
	if e.OnStateChanged == nil {
		return
	}
	go e.OnStateChanged(s)
}

func (e Events) fireDataReceived(n int) {
	if e.OnDataReceived == nil {
		return
	}
	go e.OnDataReceived(n)
}

func (e Events) fireRangeDownloaded(idx int) {
	if e.OnRangeDownloaded == nil {
		return
	}
	go e.OnRangeDownloaded(idx)
}
