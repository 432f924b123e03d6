// Package services holds shared helpers for lingo's external integrations.
//
// The context helpers stamp job IDs, CLI command paths, and correlation
// identifiers so the backend client and logging package can tag requests and
// log lines consistently. Service clients live in subpackages (for example
// services/backend for the translation API).
package services
