package document

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// DefaultChunkSize is the window length in runes for plain-text documents.
	DefaultChunkSize = 512

	// DefaultChunkOverlap is how many runes consecutive windows share.
	DefaultChunkOverlap = 64
)

// TextSplitter cuts plain text into overlapping windows of runes.
// Windows end at the last whitespace in their second half when there is one,
// so words are rarely split.
type TextSplitter struct {
	size    int
	overlap int
}

// NewTextSplitter creates a splitter. Non-positive size falls back to
// DefaultChunkSize; an overlap outside [0, size) falls back to size/8.
func NewTextSplitter(size, overlap int) *TextSplitter {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 || overlap >= size {
		overlap = size / 8
	}
	return &TextSplitter{size: size, overlap: overlap}
}

// Split returns the chunks of doc in document order.
func (s *TextSplitter) Split(doc *Document) ([]Chunk, error) {
	content := doc.Content

	// offs[i] is the byte offset of rune i; offs[n] is len(content).
	offs := make([]int, 0, len(content)+1)
	for i := range content {
		offs = append(offs, i)
	}
	offs = append(offs, len(content))
	n := len(offs) - 1

	var chunks []Chunk
	for start := 0; start < n; {
		end := min(start+s.size, n)
		if end < n {
			end = s.cutAtSpace(content, offs, start, end)
		}

		if text, lead := trimSpan(content[offs[start]:offs[end]]); text != "" {
			chunks = append(chunks, Chunk{
				Offset:  offs[start] + lead,
				Content: text,
			})
		}

		if end == n {
			break
		}
		next := end - s.overlap
		if next <= start {
			next = end
		}
		start = next
	}

	return Finalize(doc.Source, chunks), nil
}

// cutAtSpace moves end back to the last whitespace rune in the second half of the window.
func (s *TextSplitter) cutAtSpace(content string, offs []int, start, end int) int {
	floor := max(start+1, start+s.size/2)
	for k := end; k > floor; k-- {
		r, _ := utf8.DecodeRuneInString(content[offs[k]:])
		if unicode.IsSpace(r) {
			return k
		}
	}
	return end
}

// trimSpan trims surrounding whitespace and reports how many leading bytes were dropped.
func trimSpan(span string) (string, int) {
	left := strings.TrimLeftFunc(span, unicode.IsSpace)
	return strings.TrimRightFunc(left, unicode.IsSpace), len(span) - len(left)
}

// Finalize numbers chunks in document order and assigns their IDs.
func Finalize(source string, chunks []Chunk) []Chunk {
	for i := range chunks {
		chunks[i].Index = i
		chunks[i].ID = ChunkID(source, i)
	}
	return chunks
}
