// Package jobs observes server-side translation jobs until they finish.
//
// A Poller fetches job status immediately and then once per interval, one
// fetch per attempt, until the backend reports a terminal status (DONE or
// ERROR), a fetch fails, the attempt ceiling is reached, or the caller
// cancels. Every outcome is an explicit Event; exhausting the budget yields
// EventGaveUp rather than silently stopping.
//
// Three shapes are offered over the same loop: Start runs an independent
// goroutine per job with a cancellable Task, Watch returns a lazy iter.Seq
// that restarts polling from attempt one each time it is ranged over, and
// Run blocks and reports the outcome as an error.
package jobs
