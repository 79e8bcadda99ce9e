package report

import (
	"strings"
	"testing"
	"time"
)

func TestFilename(t *testing.T) {
	at := time.Date(2024, 1, 15, 10, 23, 1, 0, time.UTC)
	got := Filename(at)
	want := "chargescope_report_20240115_102301.txt"
	if got != want {
		t.Errorf("Filename() = %q, want %q", got, want)
	}
}

func TestHighlight(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "timestamp and date",
			in:   "At 2024-01-15 10:23:01 the session started.",
			want: "At `2024-01-15` `10:23:01` the session started.",
		},
		{
			name: "transaction id",
			in:   "StopTransaction for transactionId=42 arrived late.",
			want: "StopTransaction for `transactionId=42` arrived late.",
		},
		{
			name: "error keyword bolded",
			in:   "The charger reported a GroundFailure fault.",
			want: "The charger reported a **GroundFailure** **fault**.",
		},
		{
			name: "plain text untouched",
			in:   "Charging proceeded normally throughout.",
			want: "Charging proceeded normally throughout.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Highlight(tt.in); got != tt.want {
				t.Errorf("Highlight() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestHighlightSkipsFencedBlocks(t *testing.T) {
	in := "Outside 10:23:01.\n```\nInside 10:23:01 error\n```\nAfter error."
	got := Highlight(in)

	if !strings.Contains(got, "Outside `10:23:01`.") {
		t.Errorf("text outside fences was not highlighted: %q", got)
	}
	if !strings.Contains(got, "Inside 10:23:01 error\n") {
		t.Errorf("fenced block was modified: %q", got)
	}
	if !strings.Contains(got, "After **error**.") {
		t.Errorf("text after fences was not highlighted: %q", got)
	}
}
