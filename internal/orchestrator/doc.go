// Package orchestrator drives one generation cycle per request for a user
// session: precondition checks, provider dispatch, normalization, display,
// and settlement against the points ledger and the history store.
//
// A Session never returns errors from Generate. Every cycle ends in an
// Outcome and exactly one notification on the session's notify.Channel.
package orchestrator
