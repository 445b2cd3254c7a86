// Package catalog is the persistent download-list manager spec.md
// scopes out of the engine: it records the URL, destination and
// range progress for each download the CLI knows about, keyed by a
// stable uuid, so a later process can discover and resume them. The
// engine package never imports this one.
package catalog

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/tanq16/fetchctl/internal/engine"
)

// Entry is one catalogued download and its last-known range progress.
type Entry struct {
	ID         uuid.UUID             `yaml:"id"`
	URL        string                `yaml:"url"`
	OutputPath string                `yaml:"output"`
	State      string                `yaml:"state"`
	TotalSize  int64                 `yaml:"total_size"`
	Ranges     []engine.RangeSnapshot `yaml:"ranges"`
	UpdatedAt  time.Time             `yaml:"updated_at"`
}

// Store is a YAML-backed catalog file, one Entry per download,
// mirroring the teacher's DownloadEntry YAML batch format (spec.md's
// own non-goal excludes JSON state formats, not YAML ones).
type Store struct {
	path    string
	entries map[uuid.UUID]Entry
}

// Open loads path if it exists, or starts an empty store if it does
// not -- a catalog file is created lazily on first Save.
func Open(path string) (*Store, error) {
	s := &Store{path: path, entries: make(map[uuid.UUID]Entry)}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("catalog: reading %s: %w", path, err)
	}
	var list []Entry
	if err := yaml.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("catalog: parsing %s: %w", path, err)
	}
	for _, e := range list {
		s.entries[e.ID] = e
	}
	return s, nil
}

// Record upserts an entry for id, capturing the engine's current
// range snapshot for later resume.
func (s *Store) Record(id uuid.UUID, url, outputPath, state string, totalSize int64, ranges []engine.RangeSnapshot) {
	s.entries[id] = Entry{
		ID:         id,
		URL:        url,
		OutputPath: outputPath,
		State:      state,
		TotalSize:  totalSize,
		Ranges:     ranges,
		UpdatedAt:  time.Now(),
	}
}

// Load returns the entry for id, or ok=false if none is catalogued.
func (s *Store) Load(id uuid.UUID) (Entry, bool) {
	e, ok := s.entries[id]
	return e, ok
}

// List returns every catalogued entry, most recently updated first.
func (s *Store) List() []Entry {
	out := make([]Entry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].UpdatedAt.After(out[j-1].UpdatedAt); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

// Save persists the catalog to its backing YAML file.
func (s *Store) Save() error {
	list := make([]Entry, 0, len(s.entries))
	for _, e := range s.entries {
		list = append(list, e)
	}
	data, err := yaml.Marshal(list)
	if err != nil {
		return fmt.Errorf("catalog: encoding: %w", err)
	}
	return os.WriteFile(s.path, data, 0o644)
}

// ToDownloadedRanges converts a catalogued entry's snapshot back into
// the []*engine.DownloadRange shape DownloaderConfig.DownloadedRanges
// expects, for resuming a download that was catalogued mid-transfer.
func (e Entry) ToDownloadedRanges() []*engine.DownloadRange {
	out := make([]*engine.DownloadRange, len(e.Ranges))
	for i, r := range e.Ranges {
		out[i] = &engine.DownloadRange{
			From:          r.From,
			To:            r.To,
			CurrentOffset: r.CurrentOffset,
			IsDone:        r.IsDone,
		}
	}
	return out
}
