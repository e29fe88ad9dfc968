// Package readout defines the structured types emitted by panelread.
// These are the public API contract: sinks, HTTP clients and MCP callers
// all receive one of these per read session.
package readout

// Kind is the panel family a read was performed on.
type Kind string

const (
	KindGrid   Kind = "grid"   // index-addressable virtualized grid
	KindEditor Kind = "editor" // virtualized text editor with a line gutter
)

// ErrorKind classifies a failed read.
type ErrorKind string

const (
	ErrRenderTimeout      ErrorKind = "render_timeout"
	ErrBufferParity       ErrorKind = "buffer_parity"
	ErrStructuralMismatch ErrorKind = "structural_mismatch"
	ErrOther              ErrorKind = "error"
)

// Result is one successful read session: the reconciled table of a panel.
type Result struct {
	ID        string              `json:"id"` // session ID
	Panel     string              `json:"panel"`
	Kind      Kind                `json:"kind"`
	PageURL   string              `json:"page_url,omitempty"`
	Header    []string            `json:"header"`
	Records   [][]string          `json:"records"`
	Rows      []map[string]string `json:"rows,omitempty"` // header-keyed view of Records
	Hash      string              `json:"hash"`           // SHA-256 hex of header + records
	Ragged    int                 `json:"ragged"`         // records whose width differs from the header
	Unchanged bool                `json:"unchanged"`      // same hash as the panel's previous successful read
	StartedAt int64               `json:"started_at"`     // epoch milliseconds
	Duration  int64               `json:"duration_ms"`
}

// Failure is one failed read session. No partial table is ever emitted.
type Failure struct {
	ID        string    `json:"id"`
	Panel     string    `json:"panel"`
	Kind      Kind      `json:"kind"`
	PageURL   string    `json:"page_url,omitempty"`
	ErrorKind ErrorKind `json:"error_kind"`
	Error     string    `json:"error"`
	StartedAt int64     `json:"started_at"`
	Duration  int64     `json:"duration_ms"`
}
