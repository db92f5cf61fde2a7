package splitter

import (
	"strings"

	"notes-rag/internal/models"
)

const (
	defaultChunkSize    = 500
	defaultChunkOverlap = 100
)

// Splitter cuts document text into overlapping fixed-size chunks. Cut
// points prefer paragraph breaks, then sentence ends, then line breaks,
// then word boundaries. A run of text with no separator at all is emitted
// as a single oversized chunk rather than cut mid-token.
type Splitter struct {
	chunkSize    int
	chunkOverlap int
}

func New(chunkSize, chunkOverlap int) Splitter {
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}
	if chunkOverlap < 0 {
		chunkOverlap = 0
	}
	if chunkOverlap >= chunkSize {
		chunkOverlap = chunkSize / 2
	}
	return Splitter{chunkSize: chunkSize, chunkOverlap: chunkOverlap}
}

// Split is pure and deterministic; empty input yields no chunks.
func (s Splitter) Split(docs []models.Document) []models.Chunk {
	var chunks []models.Chunk
	for _, doc := range docs {
		ordinal := 1
		for _, text := range s.splitText(doc.Text) {
			chunks = append(chunks, models.Chunk{
				Text:    text,
				Source:  doc.Source,
				Page:    doc.Page,
				Ordinal: ordinal,
			})
			ordinal++
		}
	}
	return chunks
}

func (s Splitter) splitText(text string) []string {
	runes := []rune(strings.TrimSpace(text))
	n := len(runes)
	if n == 0 {
		return nil
	}

	var out []string
	start := 0
	for start < n {
		end := start + s.chunkSize
		if end >= n {
			emit(&out, runes[start:n])
			break
		}

		cut := bestCut(runes, start, end)
		if cut < 0 {
			// Atomic run with no separator inside the window: emit it
			// whole up to the next separator or end of text.
			end = nextSeparator(runes, end)
			emit(&out, runes[start:end])
			if end >= n {
				break
			}
			start = end
			continue
		}

		emit(&out, runes[start:cut])
		next := cut - s.chunkOverlap
		if next <= start {
			next = cut
		}
		start = next
	}
	return out
}

// bestCut finds the preferred cut position in (start, end], or -1 when the
// window contains no separator at all.
func bestCut(runes []rune, start, end int) int {
	// paragraph break
	for j := end - 1; j > start; j-- {
		if runes[j] == '\n' && runes[j-1] == '\n' {
			return j + 1
		}
	}
	// sentence end
	for j := end - 1; j > start; j-- {
		if isSentenceEnd(runes[j]) && (j+1 >= len(runes) || isSpace(runes[j+1])) {
			return j + 1
		}
	}
	// line break
	for j := end - 1; j > start; j-- {
		if runes[j] == '\n' {
			return j + 1
		}
	}
	// word boundary
	for j := end - 1; j > start; j-- {
		if runes[j] == ' ' || runes[j] == '\t' {
			return j + 1
		}
	}
	return -1
}

func nextSeparator(runes []rune, from int) int {
	for j := from; j < len(runes); j++ {
		if isSpace(runes[j]) {
			return j
		}
	}
	return len(runes)
}

func emit(out *[]string, runes []rune) {
	text := strings.TrimSpace(string(runes))
	if text != "" {
		*out = append(*out, text)
	}
}

func isSentenceEnd(r rune) bool {
	switch r {
	case '.', '!', '?', '。', '！', '？':
		return true
	}
	return false
}

func isSpace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\r':
		return true
	}
	return false
}
