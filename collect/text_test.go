package collect

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDeduperKeepsFirstOccurrence(t *testing.T) {
	d := NewDeduper()
	for _, k := range []string{"a", "b", "a", "c", "b"} {
		d.Add(k, []string{k})
	}
	want := [][]string{{"a"}, {"b"}, {"c"}}
	if diff := cmp.Diff(want, d.Rows()); diff != "" {
		t.Errorf("rows (-want +got):\n%s", diff)
	}
	if d.Len() != 3 {
		t.Errorf("Len: got %d, want 3", d.Len())
	}
	if d.Add("a", nil) {
		t.Error("Add of a seen key reported true")
	}
}

func TestTrimAffix(t *testing.T) {
	tests := []struct{ in, affix, want string }{
		{"Select RowA Select Row", "Select Row", "A "},
		{"plain", "Select Row", "plain"},
		{"xx", "", "xx"},
		{"Select Row", "Select Row", ""},
	}
	for _, tt := range tests {
		if got := TrimAffix(tt.in, tt.affix); got != tt.want {
			t.Errorf("TrimAffix(%q, %q): got %q, want %q", tt.in, tt.affix, got, tt.want)
		}
	}
}

func TestSplitFields(t *testing.T) {
	if diff := cmp.Diff([]string{"a", "", "b"}, SplitFields("a;;b", ";")); diff != "" {
		t.Errorf("split (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"a;b"}, SplitFields("a;b", "")); diff != "" {
		t.Errorf("no separator (-want +got):\n%s", diff)
	}
}

func TestNormalize(t *testing.T) {
	if got := Normalize("\uff11\uff12 \uff71"); got != "12 \u30a2" {
		t.Errorf("Normalize: got %q", got)
	}
	cases := map[string]string{
		"a \t\u00a0 b":  "a b",
		"a  \n  1":      "a \n 1",
		"x\r\ny\rz":     "x\ny\nz",
		"  lead trail ": " lead trail ",
	}
	for in, want := range cases {
		if got := Normalize(in); got != want {
			t.Errorf("Normalize(%q): got %q, want %q", in, got, want)
		}
	}
}

func TestSplitLines(t *testing.T) {
	if got := splitLines(""); got != nil {
		t.Errorf("empty: got %v, want nil", got)
	}
	if diff := cmp.Diff([]string{"a", "b"}, splitLines("a\nb")); diff != "" {
		t.Errorf("lines (-want +got):\n%s", diff)
	}
}
