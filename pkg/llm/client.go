// Package llm defines the single-method "ask" contract spec.md §6 calls out
// as an external collaborator: the language model client itself is out of
// scope, consumed only through this interface. Deliberately simpler than a
// streaming chunk-based client, since the Assessment Parser consumes one
// complete structured reply per call, never a mid-response token stream.
package llm

import "context"

// Client is the Go-side interface for asking an LM a single question and
// getting back one complete textual reply.
type Client interface {
	// Ask sends prompt to modelID and returns the model's full text reply.
	Ask(ctx context.Context, prompt string, modelID string) (string, error)
}

// NullClient always returns Reply, regardless of prompt or modelID. Useful
// as a zero-configuration test double.
type NullClient struct {
	Reply string
	Err   error
}

// Ask implements Client.
func (c NullClient) Ask(ctx context.Context, prompt string, modelID string) (string, error) {
	return c.Reply, c.Err
}

// FuncClient adapts a plain func to Client, for table-driven tests that
// need the reply to vary by prompt or call count.
type FuncClient func(ctx context.Context, prompt string, modelID string) (string, error)

// Ask implements Client.
func (f FuncClient) Ask(ctx context.Context, prompt string, modelID string) (string, error) {
	return f(ctx, prompt, modelID)
}

var (
	_ Client = NullClient{}
	_ Client = FuncClient(nil)
)
