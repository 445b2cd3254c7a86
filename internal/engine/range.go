package engine

// DownloadRange is a contiguous absolute-offset window of the remote
// resource being reconstructed locally. from/to are inclusive. Fields
// are mutated only by the owning RangeFetcher, always under the
// SinkWriter's mutex, and frozen once IsDone is set.
type DownloadRange struct {
	From          int64
	To            int64
	CurrentOffset int64
	IsDone        bool
}

// Width is the number of bytes the range covers.
func (r *DownloadRange) Width() int64 {
	return r.To - r.From + 1
}

// Remaining is the number of bytes not yet committed to the sink.
func (r *DownloadRange) Remaining() int64 {
	return r.Width() - r.CurrentOffset
}

// RangeSnapshot is an immutable, exported copy of a DownloadRange for
// callers outside the engine package (progress reporting, catalog
// persistence) that must not be able to mutate live state.
type RangeSnapshot struct {
	From          int64
	To            int64
	CurrentOffset int64
	IsDone        bool
}

func snapshotRange(r *DownloadRange) RangeSnapshot {
	return RangeSnapshot{From: r.From, To: r.To, CurrentOffset: r.CurrentOffset, IsDone: r.IsDone}
}

// RangesTotalSize sums the width of a range set, used to validate a
// caller-supplied resume set against a newly discovered total size.
func RangesTotalSize(ranges []*DownloadRange) int64 {
	var total int64
	for _, r := range ranges {
		total += r.Width()
	}
	return total
}
