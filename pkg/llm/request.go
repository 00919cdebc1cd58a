package llm

// ChatRequest is the chat completion request body posted to the gateway.
type ChatRequest struct {
	// Model name (e.g., "google/gemini-3-flash-preview")
	Model string `json:"model,omitempty"`

	// Conversation messages, oldest first
	Messages []Message `json:"messages"`

	// Whether to stream the response as server-sent events
	Stream bool `json:"stream,omitempty"`
}
