// Package history is the operator's local ledger: submitted jobs and their
// last observed status, the glossary of preferred term translations, and
// feedback notes.
//
// The ledger is a convenience cache. Job truth always comes from the backend;
// rows here are written as poll events arrive and are never consulted to
// decide whether a job is finished.
package history
