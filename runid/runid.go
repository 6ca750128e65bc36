// Package runid generates and validates run identifiers.
//
// A run ID is "run_" followed by an RFC 9562 UUID v7. The v7 timestamp bits
// make lexicographic order match creation order, so run listings sort
// correctly without a secondary key.
package runid

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Prefix is prepended to every run identifier.
const Prefix = "run_"

// Generator produces unique string identifiers. Stores accept a Generator so
// the ID strategy stays a startup-time decision.
type Generator func() string

// UUIDv7 returns a Generator producing bare RFC 9562 UUID v7 strings.
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

// Default produces run-scoped IDs: "run_" + UUIDv7.
var Default Generator = Prefixed(Prefix, UUIDv7())

// New produces a run ID using the Default generator.
func New() string {
	return Default()
}

// Parse validates a run ID and returns it, or an error when the prefix is
// missing or the remainder is not a valid UUID.
func Parse(s string) (string, error) {
	rest, ok := strings.CutPrefix(s, Prefix)
	if !ok {
		return "", fmt.Errorf("runid: missing %q prefix in %q", Prefix, s)
	}
	if _, err := uuid.Parse(rest); err != nil {
		return "", fmt.Errorf("runid: invalid UUID in %q: %w", s, err)
	}
	return s, nil
}
