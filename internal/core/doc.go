// Package core provides the data-intake engine: it collects teachers,
// subjects and teacher-subject mappings from several input channels, checks
// them, and hands a confirmed dataset to the timetable generation service.
//
// The package has no knowledge of HTTP or of any particular store. It can be
// driven by web handlers, the intakectl CLI, or tests without modification.
//
// # Architecture
//
//   - Records: canonical shapes and the identity rules in records.go.
//   - Aggregation: [Merge] folds a channel [Batch] into a [Snapshot] with
//     first-write-wins deduplication.
//   - Validation: [Validate] is pure and returns a [Report] of errors and
//     warnings. Errors block confirmation; warnings never do.
//   - Workflow: [Controller] is the stage machine
//     idle -> extracted -> editing/confirmed -> added.
//   - Persistence: [Drafts] mirrors state through the [Store] port and
//     [AutoSaver] saves drafts on an interval.
//   - Service: [Service] owns sessions, runs commits in the background and
//     publishes [CommitProgress] to subscribers.
//
// # Concurrency
//
// Every session has one mutex and each engine event runs to completion under
// it. The commit's remote call runs outside the lock: [Controller.BeginCommit]
// marks the commit in flight and [Controller.FinishCommit] settles it.
//
// # Error Handling
//
// Data problems are reported as [Finding] values, never as Go errors.
// Technical errors are mapped to operator-facing messages by [MapError]:
//
//   - WF001-WF009: Workflow guards
//   - GEN001-GEN004: Generation service
//   - SES001-SES003: Sessions and branches
//   - STO001-STO003: Draft store
//   - REQ001-REQ005: Request problems
package core
