// Package filesink is the default engine.Sink: a plain random-access
// local file, created or reopened for resume by the caller.
package filesink

import "os"

// Sink wraps *os.File to satisfy engine.Sink.
type Sink struct {
	f *os.File
}

// Open creates path if it does not exist, or reopens it for
// read/write in place if it does -- never truncating -- so a caller
// resuming a prior download gets the same file back without losing
// already-written bytes.
func Open(path string) (*Sink, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, err
	}
	return &Sink{f: f}, nil
}

func (s *Sink) Write(p []byte) (int, error) { return s.f.Write(p) }

func (s *Sink) Seek(offset int64, whence int) (int64, error) { return s.f.Seek(offset, whence) }

func (s *Sink) Flush() error { return s.f.Sync() }

// Close is idempotent: the first call closes and releases the file
// handle, and every later call returns nil.
func (s *Sink) Close() error {
	if s.f == nil {
		return nil
	}
	err := s.f.Close()
	s.f = nil
	return err
}

// Path returns the file's name, for callers that need it after Open
// (e.g. the S3 sink's local staging path).
func (s *Sink) Path() string { return s.f.Name() }
