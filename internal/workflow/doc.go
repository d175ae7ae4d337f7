// Package workflow implements the Temporal workflow for durable claim submission.
//
// The workflow owns only control flow: it validates the assembled claim, runs
// the ticket activity under a bounded retry policy and then attempts the
// notification once. All I/O happens in activities.
//
// Workflows in this package must stay deterministic:
//
//   - no wall-clock time, randomness or goroutines outside the workflow API
//   - behavior changes go behind workflow.GetVersion
package workflow
