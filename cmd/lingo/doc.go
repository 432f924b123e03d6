// Package main hosts the lingo CLI entrypoint and command graph.
//
// The Cobra command tree turns terminal invocations into calls against the
// translation backend: text and media translation, job status polling, API
// key management and health checks. Local conveniences (session, job ledger,
// glossary, feedback) live in internal packages and are surfaced here.
//
// Commands resolve configuration once through commandContext and build the
// backend client, poller and stores from it, so each subcommand only deals
// with flags and output.
package main
