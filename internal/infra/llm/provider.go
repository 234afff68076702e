// StreamingProvider interface; adapters (Ollama, Gemini, fakes) implement this
// so the generation pipeline is never coupled to a specific LLM vendor.
package llm

import "context"

// StreamingProvider is the model-agnostic interface for streaming completions.
type StreamingProvider interface {
	// ChatStream starts a streaming chat completion and returns a channel of
	// deltas. The channel is closed after the final delta. A mid-stream
	// failure is delivered as a delta with Err set; the returned error covers
	// only failures to start the stream.
	ChatStream(ctx context.Context, req ChatRequest) (<-chan StreamDelta, error)

	// ModelInfo returns static metadata about the provider/model.
	ModelInfo() ModelMeta

	// HealthCheck returns nil if the provider is reachable and operational.
	HealthCheck(ctx context.Context) error
}
