package domain

import "context"

// CompletionProvider is the language-model API boundary. Given a message
// list and tool schemas it returns either a final text reply or a set of
// requested tool invocations.
type CompletionProvider interface {
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
	Name() string
}
