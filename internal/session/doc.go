// Package session remembers who the operator appears to be logged in as
// between CLI invocations.
//
// The Store interface is injected into the CLI root; FileStore persists a
// small JSON record with owner-only permissions and serializes writers
// across processes with an advisory file lock.
package session
