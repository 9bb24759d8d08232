// Package maint holds the domain types of the maintenance scheduling engine
// and the single Store contract its components run against.
//
// Subpackages:
//   - due: pure due-date math and the NoScheduleDate sentinel
//   - workorder: work-order status guard and guarded transitions
//   - store: SQLite implementation of Store
//   - calendar: visit-slot lifecycle
//   - completion: the completion toggle
//   - series: recurring series expansion and materialization
//   - backlog: needs-scheduling views over the three-month window
//   - refresh: today-anchored nextDue recompute and its periodic runner
//   - engine: the facade handed to callers
package maint
