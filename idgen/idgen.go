// Package idgen generates identifiers for read sessions.
package idgen

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

// Generator produces unique string identifiers.
type Generator func() string

// UUIDv7 returns a Generator that produces RFC 9562 UUID v7 strings.
// Time-sortable, so session listings order by creation.
func UUIDv7() Generator {
	return func() string {
		return uuid.Must(uuid.NewV7()).String()
	}
}

// Prefixed wraps a Generator and prepends a fixed prefix to every ID.
func Prefixed(prefix string, gen Generator) Generator {
	return func() string {
		return prefix + gen()
	}
}

// Counter returns a deterministic Generator: prefix followed by a
// zero-padded sequence starting at 1. Lexical order matches issue order.
func Counter(prefix string) Generator {
	var n atomic.Int64
	return func() string {
		return fmt.Sprintf("%s%06d", prefix, n.Add(1))
	}
}

// Session is the generator for read session IDs ("rd_<uuidv7>").
var Session Generator = Prefixed("rd_", UUIDv7())
