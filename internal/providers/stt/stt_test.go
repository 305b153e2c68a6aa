package stt

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	text     string
	err      error
	language string
}

func (f *fakeProvider) Transcribe(_ context.Context, _ []byte, language string) (string, float64, error) {
	f.language = language
	return f.text, 0.9, f.err
}

func (f *fakeProvider) Close() error { return nil }

func TestClipsTrimsAndBindsLanguage(t *testing.T) {
	t.Parallel()

	p := &fakeProvider{text: "  hello there \n"}
	got, err := Clips{Provider: p, Language: "id-ID"}.TranscribeAudio(context.Background(), []byte("wav"))
	require.NoError(t, err)
	assert.Equal(t, "hello there", got)
	assert.Equal(t, "id-ID", p.language)
}

func TestClipsPropagatesErrors(t *testing.T) {
	t.Parallel()

	_, err := Clips{Provider: &fakeProvider{err: errors.New("quota")}}.TranscribeAudio(context.Background(), nil)
	assert.EqualError(t, err, "quota")
}
