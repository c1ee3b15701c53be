// Package generation defines the boundary between the orchestrator and the
// external AI services that produce content. It holds the provider ports
// (text and image), the request builder that turns user input into a
// provider-neutral request, and the normalizer that turns raw provider text
// into displayable segments. Concrete backends live under internal/platform.
package generation
