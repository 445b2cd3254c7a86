package engine

import "testing"

func TestPlanRangesCoverage(t *testing.T) {
	ranges := PlanRanges(100_000, 40_000, true)
	want := []*DownloadRange{
		{From: 0, To: 39_999},
		{From: 40_000, To: 79_999},
		{From: 80_000, To: 99_999},
	}
	if len(ranges) != len(want) {
		t.Fatalf("got %d ranges, want %d", len(ranges), len(want))
	}
	for i, r := range ranges {
		if r.From != want[i].From || r.To != want[i].To {
			t.Fatalf("range %d = [%d,%d], want [%d,%d]", i, r.From, r.To, want[i].From, want[i].To)
		}
	}
	if RangesTotalSize(ranges) != 100_000 {
		t.Fatalf("total size = %d, want 100000", RangesTotalSize(ranges))
	}
	for i := 1; i < len(ranges); i++ {
		if ranges[i].From != ranges[i-1].To+1 {
			t.Fatalf("ranges not contiguous at %d: prev.To=%d this.From=%d", i, ranges[i-1].To, ranges[i].From)
		}
	}
}

func TestPlanRangesNonResumable(t *testing.T) {
	ranges := PlanRanges(100_000, 40_000, false)
	if len(ranges) != 1 {
		t.Fatalf("got %d ranges, want 1", len(ranges))
	}
	if ranges[0].From != 0 || ranges[0].To != 99_999 {
		t.Fatalf("range = [%d,%d], want [0,99999]", ranges[0].From, ranges[0].To)
	}
}

func TestPlanRangesZeroSize(t *testing.T) {
	ranges := PlanRanges(0, 40_000, true)
	if len(ranges) != 0 {
		t.Fatalf("got %d ranges, want 0", len(ranges))
	}
}

func TestPlanRangesExactMultiple(t *testing.T) {
	ranges := PlanRanges(80_000, 40_000, true)
	if len(ranges) != 2 {
		t.Fatalf("got %d ranges, want 2", len(ranges))
	}
	if ranges[1].To != 79_999 {
		t.Fatalf("last range ends at %d, want 79999", ranges[1].To)
	}
}
