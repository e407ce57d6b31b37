// Package core is the orchestration layer.  It composes a transport,
// a session, and the chat capability into a complete runnable client
// and provides a builder that assembles one from a Config.
//
// Architecture layers (bottom → top):
//
//	transport  →  capability  →  session  →  core  →  cmd (CLI)
package core

import "context"

// Mode represents a complete operational mode of goicb.  A mode owns
// its full lifecycle from connection establishment to teardown.
type Mode interface {
	Run(ctx context.Context) error
}
