// Package catalog holds the fixed choice tables offered to operators: the
// target languages the backend translates into (plus the ALL22 batch
// pseudo-target) and the scopes that can be attached to an API key.
//
// Tables are static and built once at init; lookups are case-insensitive and
// safe for concurrent use.
package catalog
