package engine

import (
	"io"
	"sync"
)

// Sink is the random-access writable byte stream the engine
// materializes a resource into. The engine treats it as opaque: any
// caller-supplied or *OpenSink*-produced implementation (a local
// file, an S3-staged upload, ...) that satisfies this interface
// works. Flush and Close must both be safe to call more than once.
type Sink interface {
	io.Writer
	io.Seeker
	Flush() error
	Close() error
}

// SinkWriter serializes positioned writes from concurrent
// RangeFetchers into a single shared Sink and keeps each range's
// CurrentOffset coherent with the bytes actually committed.
type SinkWriter struct {
	mu             sync.Mutex
	sink           Sink
	openSink       func() (Sink, error)
	autoDispose    bool
	onDataReceived func(n int)
}

func NewSinkWriter(sink Sink, openSink func() (Sink, error), autoDispose bool, onDataReceived func(n int)) *SinkWriter {
	return &SinkWriter{
		sink:           sink,
		openSink:       openSink,
		autoDispose:    autoDispose,
		onDataReceived: onDataReceived,
	}
}

// getOrOpenLocked returns the current sink, lazily opening it via
// openSink if absent. Callers must hold w.mu.
func (w *SinkWriter) getOrOpenLocked() (Sink, error) {
	if w.sink != nil {
		return w.sink, nil
	}
	if w.openSink == nil {
		return nil, ErrSinkUnavailable
	}
	s, err := w.openSink()
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, ErrSinkUnavailable
	}
	w.sink = s
	return s, nil
}

// WriteAt seeks the sink to the absolute offset implied by rng's
// current progress, writes buf in full, and atomically (under the
// same critical section as the physical write) advances
// rng.CurrentOffset and notifies onDataReceived. The mutex is what
// guarantees the persisted offset never outruns the bytes on disk.
func (w *SinkWriter) WriteAt(rng *DownloadRange, buf []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	sink, err := w.getOrOpenLocked()
	if err != nil {
		return err
	}
	offset := rng.From + rng.CurrentOffset
	if _, err := sink.Seek(offset, io.SeekStart); err != nil {
		return err
	}
	written := 0
	for written < len(buf) {
		n, err := sink.Write(buf[written:])
		written += n
		if err != nil {
			rng.CurrentOffset = offset + int64(written) - rng.From
			return err
		}
	}
	pos, err := sink.Seek(0, io.SeekCurrent)
	if err != nil {
		return err
	}
	rng.CurrentOffset = pos - rng.From

	if w.onDataReceived != nil {
		w.onDataReceived(len(buf))
	}
	return nil
}

// MarkDone marks rng complete under the same mutex that guards
// writes, so a reader never observes IsDone before the last byte is
// actually committed.
func (w *SinkWriter) MarkDone(rng *DownloadRange) {
	w.mu.Lock()
	defer w.mu.Unlock()
	rng.IsDone = true
}

// Flush flushes the sink if one is open. Idempotent on an absent sink.
func (w *SinkWriter) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.sink == nil {
		return nil
	}
	return w.sink.Flush()
}

// Finalize flushes and, if autoDispose is set, closes and releases
// the sink. Safe to call more than once, including after the sink has
// already been released.
func (w *SinkWriter) Finalize() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.sink == nil {
		return nil
	}
	err := w.sink.Flush()
	if w.autoDispose {
		if cerr := w.sink.Close(); cerr != nil && err == nil {
			err = cerr
		}
		w.sink = nil
	}
	return err
}

// SetSink installs a sink that was supplied directly at construction,
// bypassing the lazy OpenSink path.
func (w *SinkWriter) SetSink(sink Sink) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.sink = sink
}
