// Package preflight provides readiness checks for the translation backend
// and the local state directory that lingo depends on.
//
// The CLI "lingo doctor" command runs RunAll and renders each Result; the
// individual checks are also usable on their own.
package preflight
