// Package domain contains the core entities of the content generation
// workflow: users and their point balances, the content variants a user can
// request, generation requests and results, history entries and
// notifications. It has no knowledge of providers, storage or transport.
package domain
