package collect

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func feedAll(t *testing.T, r *Reconciler, frags, marks []string) []string {
	t.Helper()
	rows, err := r.Feed(frags, marks)
	if err != nil {
		t.Fatalf("Feed: %v", err)
	}
	if last, ok := r.Flush(); ok {
		rows = append(rows, last)
	}
	return rows
}

func TestReconcileTerminates(t *testing.T) {
	tests := []struct {
		name  string
		frags []string
		marks []string
		want  []string
	}{
		{
			name:  "wrapped first row",
			frags: []string{"Row1-part-a", "Row1-part-b", "Row2"},
			marks: []string{"", "true", "true"},
			want:  []string{"Row1-part-aRow1-part-b", "Row2"},
		},
		{
			name:  "wrapped middle row",
			frags: []string{"Header", "L1a", "L1b", "L2"},
			marks: []string{"true", "", "true", "true"},
			want:  []string{"Header", "L1aL1b", "L2"},
		},
		{
			name:  "no wraps",
			frags: []string{"a", "b", "c"},
			marks: []string{"1", "2", "3"},
			want:  []string{"a", "b", "c"},
		},
		{
			name:  "blank rows dropped",
			frags: []string{"", "a", "b"},
			marks: []string{"1", "2", "3"},
			want:  []string{"a", "b"},
		},
		{
			name:  "nbsp normalized",
			frags: []string{"a\u00a0b"},
			marks: []string{"1"},
			want:  []string{"a b"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := feedAll(t, NewReconciler(""), tt.frags, tt.marks)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("rows (-want +got):\n%s", diff)
			}
		})
	}
}

func TestReconcileStarts(t *testing.T) {
	// Gutter numbers only the first visual line of a logical line.
	frags := []string{"a", "b1", "b2", "c"}
	marks := []string{"1", "2", "", "3"}
	got := feedAll(t, NewReconciler(MarkStarts), frags, marks)
	want := []string{"a", "b1b2", "c"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("rows (-want +got):\n%s", diff)
	}
}

func TestReconcileBootstrapDeferred(t *testing.T) {
	r := NewReconciler(MarkTerminates)
	rows, err := r.Feed([]string{"only"}, []string{"true"})
	if err != nil {
		t.Fatalf("Feed: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("first cycle: got %v, want nothing emitted", rows)
	}
	if p, ok := r.Pending(); !ok || p != "only" {
		t.Fatalf("pending: got %q, %v", p, ok)
	}

	rows, _ = r.Feed([]string{"next"}, []string{"true"})
	if diff := cmp.Diff([]string{"only"}, rows); diff != "" {
		t.Errorf("second cycle (-want +got):\n%s", diff)
	}
}

func TestReconcileFlushOnce(t *testing.T) {
	r := NewReconciler("")
	r.Feed([]string{"tail"}, []string{""})

	row, ok := r.Flush()
	if !ok || row != "tail" {
		t.Fatalf("flush: got %q, %v", row, ok)
	}
	if _, ok := r.Flush(); ok {
		t.Error("second flush emitted a row")
	}
}

func TestReconcileLengthMismatch(t *testing.T) {
	if _, err := NewReconciler("").Feed([]string{"a", "b"}, []string{"1"}); err == nil {
		t.Fatal("expected error for unequal lengths")
	}
}

func TestReconcileUnknownMode(t *testing.T) {
	if _, err := NewReconciler("Starts").Feed([]string{"a"}, []string{"1"}); err == nil {
		t.Fatal("unnormalized mode accepted")
	}
}

func TestParseMarkerMode(t *testing.T) {
	for in, want := range map[string]MarkerMode{"": MarkTerminates, "Terminates": MarkTerminates, " starts ": MarkStarts} {
		got, err := ParseMarkerMode(in)
		if err != nil || got != want {
			t.Errorf("ParseMarkerMode(%q): got %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseMarkerMode("gutter"); err == nil {
		t.Error("expected error for unknown mode")
	}
}
