package streaming

import (
	"encoding/base64"
	"strings"
)

func encodeAudio(chunk []byte) string {
	return base64.StdEncoding.EncodeToString(chunk)
}

// ChunkText splits text into ~wordsPerChunk-word groups, bounding
// per-chunk overhead on the wire.
func ChunkText(text string, wordsPerChunk int) []string {
	if wordsPerChunk <= 0 {
		wordsPerChunk = 5
	}
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	var chunks []string
	for i := 0; i < len(words); i += wordsPerChunk {
		end := i + wordsPerChunk
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, strings.Join(words[i:end], " "))
	}
	return chunks
}

// ChunkAudio splits raw audio bytes into ~chunkBytes pieces, the last of
// which the caller marks final:true via NewAudio.
func ChunkAudio(audio []byte, chunkBytes int) [][]byte {
	if chunkBytes <= 0 {
		chunkBytes = 4096
	}
	var chunks [][]byte
	for i := 0; i < len(audio); i += chunkBytes {
		end := i + chunkBytes
		if end > len(audio) {
			end = len(audio)
		}
		chunks = append(chunks, audio[i:end])
	}
	return chunks
}
