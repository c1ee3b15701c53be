// Package memory provides process-local implementations of the store
// interfaces. They back the server when no database URL is configured and
// serve as fakes in service and orchestrator tests.
package memory
