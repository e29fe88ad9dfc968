package assemble

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestAssemblePromotesHeader(t *testing.T) {
	tbl, err := Assemble([][]string{{"Header"}, {"L1aL1b"}, {"L2"}})
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if diff := cmp.Diff([]string{"Header"}, tbl.Header); diff != "" {
		t.Errorf("header (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([][]string{{"L1aL1b"}, {"L2"}}, tbl.Records); diff != "" {
		t.Errorf("records (-want +got):\n%s", diff)
	}
}

func TestAssembleEmpty(t *testing.T) {
	if _, err := Assemble(nil); !errors.Is(err, ErrNoHeader) {
		t.Fatalf("got %v, want ErrNoHeader", err)
	}
	tbl, err := Assemble([][]string{{"a", "b"}})
	if err != nil || len(tbl.Records) != 0 {
		t.Errorf("header only: got %+v, %v", tbl, err)
	}
}

func ragged() *Table {
	return &Table{
		Header:  []string{"name", "amount", "ccy"},
		Records: [][]string{{"a", "1", "EUR"}, {"b", "2"}, {"c", "3", "USD", "x"}},
	}
}

func TestMismatches(t *testing.T) {
	want := []Mismatch{{Record: 1, Got: 2, Want: 3}, {Record: 2, Got: 4, Want: 3}}
	if diff := cmp.Diff(want, ragged().Mismatches()); diff != "" {
		t.Errorf("mismatches (-want +got):\n%s", diff)
	}
}

func TestApplyPass(t *testing.T) {
	tbl := ragged()
	got, err := tbl.Apply(PolicyPass)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if diff := cmp.Diff(tbl, got); diff != "" {
		t.Errorf("pass changed the table (-want +got):\n%s", diff)
	}
}

func TestApplyReject(t *testing.T) {
	_, err := ragged().Apply(PolicyReject)
	var sme *StructuralMismatchError
	if !errors.As(err, &sme) {
		t.Fatalf("got %v, want StructuralMismatchError", err)
	}
	if len(sme.Mismatches) != 2 {
		t.Errorf("mismatches: got %d, want 2", len(sme.Mismatches))
	}
}

func TestApplyPad(t *testing.T) {
	tbl := ragged()
	if _, err := tbl.Apply(PolicyPad); err == nil {
		t.Fatal("pad accepted a long record")
	}

	tbl.Records = tbl.Records[:2]
	got, err := tbl.Apply(PolicyPad)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	want := [][]string{{"a", "1", "EUR"}, {"b", "2", ""}}
	if diff := cmp.Diff(want, got.Records); diff != "" {
		t.Errorf("records (-want +got):\n%s", diff)
	}
	if len(tbl.Records[1]) != 2 {
		t.Error("pad modified the source table")
	}
}

func TestMapsAndColumn(t *testing.T) {
	tbl := ragged()
	maps := tbl.Maps()
	want := map[string]string{"name": "b", "amount": "2"}
	if diff := cmp.Diff(want, maps[1]); diff != "" {
		t.Errorf("map (-want +got):\n%s", diff)
	}

	ccy, ok := tbl.Column("ccy")
	if !ok {
		t.Fatal("ccy column not found")
	}
	if diff := cmp.Diff([]string{"EUR", "", "USD"}, ccy); diff != "" {
		t.Errorf("column (-want +got):\n%s", diff)
	}
	if _, ok := tbl.Column("nope"); ok {
		t.Error("unknown column found")
	}
}

func TestParsePolicy(t *testing.T) {
	for in, want := range map[string]Policy{"": PolicyPass, "PAD": PolicyPad, "reject": PolicyReject} {
		if got, err := ParsePolicy(in); err != nil || got != want {
			t.Errorf("ParsePolicy(%q): got %q, %v", in, got, err)
		}
	}
	if _, err := ParsePolicy("truncate"); err == nil {
		t.Error("expected error")
	}
}
