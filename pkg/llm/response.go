package llm

import "encoding/json"

// ErrorResponse is the JSON error body returned by haven and by the gateway on
// non-success responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

// StreamChunk is one streamed completion record, carried as the payload of a
// `data: ` line. Only the fields haven reads or writes are modeled; others
// are ignored on decode.
type StreamChunk struct {
	ID      string         `json:"id,omitempty"`
	Model   string         `json:"model,omitempty"`
	Choices []StreamChoice `json:"choices,omitempty"`

	// Error is set when the gateway reports a failure mid-stream. It is either a
	// JSON string or an object with a "message" field.
	Error json.RawMessage `json:"error,omitempty"`
}

// StreamChoice is a single choice within a StreamChunk.
type StreamChoice struct {
	Index        int         `json:"index"`
	Delta        StreamDelta `json:"delta"`
	FinishReason string      `json:"finish_reason,omitempty"`
}

// StreamDelta is the incremental message fragment of a StreamChoice.
type StreamDelta struct {
	Role    string  `json:"role,omitempty"`
	Content *string `json:"content,omitempty"`
}

// NewDeltaChunk builds a StreamChunk carrying a single content fragment.
func NewDeltaChunk(text string) StreamChunk {
	return StreamChunk{
		Choices: []StreamChoice{{Delta: StreamDelta{Content: &text}}},
	}
}

// ContentDelta returns the first choice's delta content, if any.
func (c *StreamChunk) ContentDelta() (string, bool) {
	if len(c.Choices) == 0 || c.Choices[0].Delta.Content == nil {
		return "", false
	}
	return *c.Choices[0].Delta.Content, true
}

// ErrorMessage extracts a human readable message from an error field that is
// either a JSON string or an object with a "message" field. It returns false
// when raw carries no usable message.
func ErrorMessage(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", false
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, s != ""
	}

	var obj struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil && obj.Message != "" {
		return obj.Message, true
	}

	return "", false
}
