// Package service contains the application-level use cases that sit between
// the generation orchestrator and the persistence layer (internal/store).
//
// Key components:
//
//   - PointsLedger: balance reads, conditional debits, account seeding and
//     administrative credits.
//   - HistoryService: the append-only record of completed generations.
//
// Services receive their stores through constructor injection and never
// depend on a specific storage implementation. When a *sql.DB is supplied,
// multi-step operations run inside store.RunInTransaction.
package service
