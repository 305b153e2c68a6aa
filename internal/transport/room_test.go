package transport

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTopicLayout(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "room:demo:to_worker", ToWorkerTopic("demo"))
	assert.Equal(t, "room:demo:to_client", ToClientTopic("demo"))
	assert.Equal(t, "room:demo:audio", AudioStream("demo"))
}

func TestDecodeAudio(t *testing.T) {
	t.Parallel()

	f, eof := decodeAudio(map[string]any{"source": "screen_share_audio", "name": "tab", "pcm": "\x01\x02"})
	assert.False(t, eof)
	assert.Equal(t, "screen_share_audio", f.Source)
	assert.Equal(t, "tab", f.Name)
	assert.Equal(t, []byte{1, 2}, f.PCM)

	f, eof = decodeAudio(map[string]any{"source": "microphone", "eof": "1"})
	assert.True(t, eof)
	assert.Equal(t, "microphone", f.Source)
	assert.Empty(t, f.PCM)

	f, eof = decodeAudio(map[string]any{"pcm": 42})
	assert.False(t, eof)
	assert.Empty(t, f.Source)
	assert.Empty(t, f.PCM)
}
