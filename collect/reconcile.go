package collect

import (
	"fmt"
	"strings"
)

// MarkerMode selects how the completion channel is read.
type MarkerMode string

const (
	// MarkTerminates: a truthy marker says its fragment ends a logical row.
	// The marker is applied when the next fragment arrives, so a complete
	// row is emitted one fragment late.
	MarkTerminates MarkerMode = "terminates"
	// MarkStarts: a truthy marker says its fragment opens a new logical
	// row (a line-number gutter only numbers the first visual line).
	MarkStarts MarkerMode = "starts"
)

// Reconciler merges wrapped fragments into logical rows. It holds at most
// one pending row; an empty pending row counts as no pending row, so blank
// lines are never emitted.
type Reconciler struct {
	mode     MarkerMode
	pending  string
	complete bool
}

// NewReconciler returns a Reconciler for mode. An empty mode means
// MarkTerminates.
func NewReconciler(mode MarkerMode) *Reconciler {
	if mode == "" {
		mode = MarkTerminates
	}
	return &Reconciler{mode: mode}
}

// Feed merges one drained cycle of (fragment, marker) pairs and returns the
// rows finalized by it, in order. fragments and markers must have the same
// length.
func (r *Reconciler) Feed(fragments, markers []string) ([]string, error) {
	if len(fragments) != len(markers) {
		return nil, fmt.Errorf("collect: reconcile: %d fragments for %d markers", len(fragments), len(markers))
	}
	if r.mode != MarkTerminates && r.mode != MarkStarts {
		return nil, fmt.Errorf("collect: reconcile: unknown marker mode %q", r.mode)
	}

	var rows []string
	for i, raw := range fragments {
		frag := Normalize(raw)
		marked := markers[i] != ""

		if r.pending == "" {
			// Bootstrap: completeness of the first fragment is deferred.
			r.pending = frag
			r.complete = marked
			continue
		}

		var boundary bool
		switch r.mode {
		case MarkStarts:
			boundary = marked
		case MarkTerminates:
			boundary = r.complete
		}

		if boundary {
			rows = append(rows, r.pending)
			r.pending = frag
		} else {
			r.pending += frag
		}
		r.complete = marked
	}
	return rows, nil
}

// Pending returns the unfinished row, if any.
func (r *Reconciler) Pending() (string, bool) {
	return r.pending, r.pending != ""
}

// Flush emits the pending row, if any, and resets the Reconciler.
func (r *Reconciler) Flush() (string, bool) {
	row, ok := r.Pending()
	r.pending = ""
	r.complete = false
	return row, ok
}

// ParseMarkerMode validates a configured mode name.
func ParseMarkerMode(s string) (MarkerMode, error) {
	switch MarkerMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", MarkTerminates:
		return MarkTerminates, nil
	case MarkStarts:
		return MarkStarts, nil
	}
	return "", fmt.Errorf("collect: unknown marker mode %q", s)
}
