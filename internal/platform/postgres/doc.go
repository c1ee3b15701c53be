// Package postgres provides PostgreSQL implementations of the store
// interfaces (accounts and generation history) together with the embedded
// goose migrations that create their schema.
package postgres
