// Package store defines the persistence ports of the application: accounts
// with their point balances, and the append-only generation history.
// Implementations live in internal/platform/postgres and
// internal/platform/memory.
package store
