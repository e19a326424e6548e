package streaming

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChunkText_SplitsIntoWordGroups(t *testing.T) {
	chunks := ChunkText("um dois tres quatro cinco seis sete", 3)

	assert.Equal(t, []string{"um dois tres", "quatro cinco seis", "sete"}, chunks)
}

func TestChunkText_EmptyInputReturnsNil(t *testing.T) {
	assert.Nil(t, ChunkText("", 3))
	assert.Nil(t, ChunkText("   ", 3))
}

func TestChunkText_NonPositiveSizeFallsBackToDefault(t *testing.T) {
	chunks := ChunkText("a b c d e f", 0)
	assert.Len(t, chunks, 2)
}

func TestChunkAudio_SplitsIntoByteGroups(t *testing.T) {
	audio := make([]byte, 10)
	chunks := ChunkAudio(audio, 4)

	assert.Len(t, chunks, 3)
	assert.Len(t, chunks[0], 4)
	assert.Len(t, chunks[2], 2)
}

func TestChunkAudio_EmptyInputReturnsNil(t *testing.T) {
	assert.Nil(t, ChunkAudio(nil, 4))
}
