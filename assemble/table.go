// Package assemble turns reconstructed rows into a header-keyed table.
package assemble

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoHeader is returned when there is no row to promote to the header.
var ErrNoHeader = errors.New("assemble: no header row")

// Policy controls how records whose field count differs from the header are
// handled.
type Policy string

const (
	// PolicyPass keeps every record unchanged.
	PolicyPass Policy = "pass"
	// PolicyPad pads short records with empty fields. Long records are
	// still rejected.
	PolicyPad Policy = "pad"
	// PolicyReject fails on any mismatch.
	PolicyReject Policy = "reject"
)

// ParsePolicy validates a configured policy name. Empty means PolicyPass.
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PolicyPass, nil
	case PolicyPass, PolicyPad, PolicyReject:
		return p, nil
	}
	return "", fmt.Errorf("assemble: unknown ragged policy %q", s)
}

// Table is a header plus positional records.
type Table struct {
	Header  []string
	Records [][]string
}

// Mismatch describes one record whose width differs from the header.
type Mismatch struct {
	Record int // 0-based index into Records
	Got    int
	Want   int
}

// StructuralMismatchError lists the records rejected by a policy.
type StructuralMismatchError struct {
	Policy     Policy
	Mismatches []Mismatch
}

func (e *StructuralMismatchError) Error() string {
	first := e.Mismatches[0]
	return fmt.Sprintf("assemble: %d records do not match the %d-field header (first: record %d has %d fields, policy %s)",
		len(e.Mismatches), first.Want, first.Record, first.Got, e.Policy)
}

// Assemble promotes rows[0] to the header. The remaining rows become the
// records, unchanged.
func Assemble(rows [][]string) (*Table, error) {
	if len(rows) == 0 {
		return nil, ErrNoHeader
	}
	return &Table{Header: rows[0], Records: rows[1:]}, nil
}

// Mismatches returns every record whose width differs from the header.
func (t *Table) Mismatches() []Mismatch {
	var out []Mismatch
	for i, r := range t.Records {
		if len(r) != len(t.Header) {
			out = append(out, Mismatch{Record: i, Got: len(r), Want: len(t.Header)})
		}
	}
	return out
}

// Apply enforces policy. It returns the table unchanged under PolicyPass
// and a padded copy under PolicyPad.
func (t *Table) Apply(policy Policy) (*Table, error) {
	mm := t.Mismatches()
	if len(mm) == 0 {
		return t, nil
	}

	switch policy {
	case "", PolicyPass:
		return t, nil
	case PolicyReject:
		return nil, &StructuralMismatchError{Policy: policy, Mismatches: mm}
	case PolicyPad:
		var long []Mismatch
		for _, m := range mm {
			if m.Got > m.Want {
				long = append(long, m)
			}
		}
		if len(long) > 0 {
			return nil, &StructuralMismatchError{Policy: policy, Mismatches: long}
		}
		out := &Table{Header: t.Header, Records: make([][]string, len(t.Records))}
		for i, r := range t.Records {
			if len(r) < len(t.Header) {
				padded := make([]string, len(t.Header))
				copy(padded, r)
				r = padded
			}
			out.Records[i] = r
		}
		return out, nil
	}
	return nil, fmt.Errorf("assemble: unknown ragged policy %q", policy)
}

// Maps returns the records keyed by header name. Fields beyond the header
// are dropped from the map view; missing fields are absent.
func (t *Table) Maps() []map[string]string {
	out := make([]map[string]string, 0, len(t.Records))
	for _, r := range t.Records {
		m := make(map[string]string, len(t.Header))
		for i, name := range t.Header {
			if i < len(r) {
				m[name] = r[i]
			}
		}
		out = append(out, m)
	}
	return out
}

// Column returns the values of the named column, with "" where a record is
// too short. ok is false when the header has no such column.
func (t *Table) Column(name string) (values []string, ok bool) {
	idx := -1
	for i, h := range t.Header {
		if h == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, false
	}
	values = make([]string, len(t.Records))
	for i, r := range t.Records {
		if idx < len(r) {
			values[i] = r[idx]
		}
	}
	return values, true
}
