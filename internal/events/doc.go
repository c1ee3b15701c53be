// Package events carries presentation events out of the generation
// orchestrator without coupling it to its listeners.
//
// The orchestrator emits content.displayed as soon as normalized content
// becomes the displayed result, and generation.finished when a cycle reaches
// a terminal state. Metrics and the WebSocket hub register as handlers.
package events
