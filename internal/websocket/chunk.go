package websocket

import "strings"

// SplitChunks cuts text into word groups of at most wordsPerChunk, preserving
// single spaces between words. Whitespace-only text yields no chunks.
func SplitChunks(text string, wordsPerChunk int) []string {
	if wordsPerChunk < 1 {
		wordsPerChunk = 1
	}
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	chunks := make([]string, 0, (len(words)+wordsPerChunk-1)/wordsPerChunk)
	for i := 0; i < len(words); i += wordsPerChunk {
		end := i + wordsPerChunk
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, strings.Join(words[i:end], " "))
	}
	return chunks
}
