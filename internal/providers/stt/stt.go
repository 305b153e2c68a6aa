package stt

import (
	"context"
	"strings"
)

type Provider interface {
	Transcribe(ctx context.Context, audio []byte, language string) (text string, confidence float64, err error)
	Close() error
}

// Clips binds a provider to one language for short screen-audio clips.
type Clips struct {
	Provider Provider
	Language string
}

func (c Clips) TranscribeAudio(ctx context.Context, wav []byte) (string, error) {
	text, _, err := c.Provider.Transcribe(ctx, wav, c.Language)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}
