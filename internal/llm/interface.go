package llm

import "context"

// Provider abstracts a chat-completion backend used for spec generation
// and correction.
type Provider interface {
	Name() string
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

// ChatRequest holds one completion request. JSONMode asks the backend
// for a JSON-constrained response where the API supports it; providers
// without native support ignore it and rely on prompt discipline.
type ChatRequest struct {
	SystemPrompt string
	Messages     []Message
	MaxTokens    int
	Temperature  float64
	JSONMode     bool
}

// Message is one turn of the conversation. Role is "user" or
// "assistant".
type Message struct {
	Role    string
	Content string
}

// ChatResponse holds the completion text plus accounting.
type ChatResponse struct {
	Content      string
	Usage        Usage
	FinishReason string
}

// Usage tracks token consumption for metrics.
type Usage struct {
	InputTokens  int
	OutputTokens int
}
