// Package api exposes generation sessions over HTTP. Handlers translate
// requests into orchestrator.Session operations and stream notifications
// and display events to websocket clients.
package api
