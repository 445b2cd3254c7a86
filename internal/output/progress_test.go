package output

import (
	"strings"
	"testing"
)

func TestFormatBytes(t *testing.T) {
	cases := []struct {
		n    int64
		want string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1024, "1.00 KB"},
		{1536, "1.50 KB"},
		{1024 * 1024, "1.00 MB"},
		{1024 * 1024 * 1024, "1.00 GB"},
	}
	for _, c := range cases {
		if got := FormatBytes(c.n); got != c.want {
			t.Errorf("FormatBytes(%d) = %q, want %q", c.n, got, c.want)
		}
	}
}

func TestProgressBarZeroTotal(t *testing.T) {
	bar := ProgressBar(0, 0, 10)
	if bar == "" {
		t.Fatalf("ProgressBar with zero total returned empty string")
	}
}

func TestProgressBarClampsOverflow(t *testing.T) {
	// current > total must not panic or produce a percentage over 100.
	bar := ProgressBar(200, 100, 10)
	if bar == "" {
		t.Fatalf("ProgressBar returned empty string")
	}
	if !strings.Contains(bar, "100.0%") {
		t.Fatalf("ProgressBar(200, 100, 10) = %q, want it clamped to 100.0%%", bar)
	}
}

func TestReporterUpdateAndDoneDoNotPanic(t *testing.T) {
	r := NewReporter("test-download", 0)
	r.Update(0, 1000, 0)
	r.Update(500, 1000, 2048)
	r.Done(nil)

	r2 := NewReporter("failed-download", 1000)
	r2.Update(10, 1000, 0)
	r2.Done(errTest)
}

var errTest = &testError{"boom"}

type testError struct{ msg string }

func (e *testError) Error() string { return e.msg }
