package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDigestIsStableAndShort(t *testing.T) {
	t.Parallel()

	a := DigestString("frame-bytes")
	b := Digest([]byte("frame-bytes"))

	assert.Equal(t, a, b)
	assert.Len(t, a, 32)
	assert.NotEqual(t, a, DigestString("frame-bytes!"))
}
