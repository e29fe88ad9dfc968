package domport

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestExpand(t *testing.T) {
	tests := []struct {
		name     string
		template string
		params   map[string]string
		want     string
	}{
		{"index", ".row[row-index='{index}']", map[string]string{"index": "12"}, ".row[row-index='12']"},
		{"no placeholders", ".view-line", nil, ".view-line"},
		{"repeated", "[a='{v}'] [b='{v}']", map[string]string{"v": "x"}, "[a='x'] [b='x']"},
		{"escaped quote", "[title='{t}']", map[string]string{"t": "O'Brien"}, `[title='O\'Brien']`},
		{"escaped backslash", "[title='{t}']", map[string]string{"t": `a\b`}, `[title='a\\b']`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Expand(tt.template, tt.params)
			if err != nil {
				t.Fatalf("Expand: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExpand_Errors(t *testing.T) {
	tests := []struct {
		name     string
		template string
		params   map[string]string
		wantMsg  string
	}{
		{"missing", "[a='{index}']", nil, "missing parameter"},
		{"unused", ".row", map[string]string{"index": "1"}, "unused parameter"},
		{"unterminated", "[a='{index']", map[string]string{"index": "1"}, "unterminated"},
		{"empty name", "[a='{}']", nil, "invalid placeholder"},
		{"stray close", "[a='}']", nil, "unmatched"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Expand(tt.template, tt.params)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error %q does not mention %q", err, tt.wantMsg)
			}
		})
	}
}

func TestRenderTimeoutError_Is(t *testing.T) {
	cause := errors.New("no match")
	err := error(&RenderTimeoutError{
		Locator: Locator{Selector: ".row", Index: -1},
		Timeout: 30 * time.Second,
		Err:     cause,
	})
	if !errors.Is(err, ErrRenderTimeout) {
		t.Error("errors.Is(err, ErrRenderTimeout) = false")
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is(err, cause) = false")
	}
	if !strings.Contains(err.Error(), ".row [-1]") {
		t.Errorf("message %q should describe the locator", err)
	}
}
