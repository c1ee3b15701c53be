// Package mocks provides testify-based mocks of the store and provider
// interfaces for use in service and orchestrator tests.
package mocks
