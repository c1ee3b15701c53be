// Package gemini adapts Google's Gemini API to the generation provider ports.
//
// TextProvider sends an instruction plus optional inline images to a text
// model and returns the concatenated text parts. ImageProvider asks an
// image-capable model for TEXT and IMAGE modalities and returns the first
// inline image part of the response. Both make exactly one request per call;
// failures are reported as generation.ErrProviderFailure so the orchestrator
// can surface them without knowing the Gemini schema.
package gemini
