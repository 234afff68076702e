// Package llm defines the model-agnostic streaming LLM provider abstraction.
// All types here are shared between the provider interface and adapters.
package llm

// Message represents a single turn in a conversation (role + content).
type Message struct {
	Role    string // "system" | "user" | "assistant"
	Content string
}

// ChatRequest is the input for a streaming chat completion.
type ChatRequest struct {
	// Model overrides the provider default when non-empty.
	Model       string
	Messages    []Message
	Temperature float32
	MaxTokens   int
}

// StreamDelta is one increment of a streaming completion.
// Exactly one of Text/Err is meaningful; Done marks the final delta.
type StreamDelta struct {
	Text string
	Done bool
	Err  error
}

// ModelMeta describes the model / provider identity.
type ModelMeta struct {
	ID        string // e.g. "llama3.2:3b", "gemini-2.0-flash"
	Provider  string // e.g. "ollama", "gemini"
	Version   string
	MaxTokens int // Maximum context window size.
}
