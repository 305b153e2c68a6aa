package llm

import (
	"context"
	"strings"
)

// Request is a single-turn generation call. ImageJPEG, when set, is sent
// inline next to Prompt. JSON asks the model for a JSON object response.
type Request struct {
	System      string
	Prompt      string
	ImageJPEG   []byte
	JSON        bool
	Temperature float32
}

type Provider interface {
	// Generate returns the complete response text.
	Generate(ctx context.Context, req Request) (string, error)
	// StreamAnswer returns a stream of text chunks (incremental).
	StreamAnswer(ctx context.Context, prompt string) (chunks <-chan string, errs <-chan error)
	Close() error
}

// Collect drains a StreamAnswer call into one string.
func Collect(ctx context.Context, p Provider, prompt string) (string, error) {
	chunks, errs := p.StreamAnswer(ctx, prompt)

	var b strings.Builder
	for chunk := range chunks {
		b.WriteString(chunk)
	}
	if err := <-errs; err != nil {
		return "", err
	}
	return b.String(), nil
}
