package document

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileSource_Load(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bio.txt")
	require.NoError(t, os.WriteFile(path, []byte("Jane Doe is a backend engineer."), 0o644))

	doc, err := NewFileSource(path).Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, path, doc.Source)
	assert.Equal(t, "bio.txt", doc.Name)
	assert.Equal(t, "Jane Doe is a backend engineer.", doc.Content)
	assert.False(t, doc.LoadedAt.IsZero())
	assert.False(t, doc.IsMarkdown())
}

func TestFileSource_Missing(t *testing.T) {
	_, err := NewFileSource(filepath.Join(t.TempDir(), "nope.txt")).Load(context.Background())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileSource_Directory(t *testing.T) {
	_, err := NewFileSource(t.TempDir()).Load(context.Background())
	assert.ErrorIs(t, err, ErrUnreadable)
}

func TestFileSource_Empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bio.md")
	require.NoError(t, os.WriteFile(path, []byte(" \n\t\n"), 0o644))

	_, err := NewFileSource(path).Load(context.Background())
	assert.ErrorIs(t, err, ErrEmptyDocument)
}

func TestIsMarkdown(t *testing.T) {
	for name, want := range map[string]bool{
		"bio.md":       true,
		"BIO.MD":       true,
		"bio.markdown": true,
		"bio.txt":      false,
		"bio":          false,
	} {
		doc := &Document{Name: name}
		assert.Equal(t, want, doc.IsMarkdown(), name)
	}
}

func TestTextSplitter_SingleChunk(t *testing.T) {
	doc, err := New("bio.txt", "Jane Doe is a backend engineer with 5 years of experience in distributed systems.")
	require.NoError(t, err)

	chunks, err := NewTextSplitter(0, 0).Split(doc)
	require.NoError(t, err)

	require.Len(t, chunks, 1)
	assert.Equal(t, 0, chunks[0].Index)
	assert.Equal(t, doc.Content, chunks[0].Content)
	assert.Equal(t, 0, chunks[0].Offset)
	assert.NotEmpty(t, chunks[0].ID)
}

// TestTextSplitter_ChunksAreDocumentSlices checks every chunk points back into the document.
func TestTextSplitter_ChunksAreDocumentSlices(t *testing.T) {
	content := strings.Repeat("Jane builds reliable services. Ünïcödé words travel too.\n\n", 40)
	doc, err := New("bio.txt", content)
	require.NoError(t, err)

	chunks, err := NewTextSplitter(120, 20).Split(doc)
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)

	for i, c := range chunks {
		assert.Equal(t, i, c.Index)
		assert.Equal(t, c.Content, doc.Content[c.Offset:c.Offset+len(c.Content)], "chunk %d", i)
		assert.Equal(t, strings.TrimSpace(c.Content), c.Content)
		assert.LessOrEqual(t, len([]rune(c.Content)), 120)
	}

	// The last chunk reaches the end of the document.
	last := chunks[len(chunks)-1]
	assert.Equal(t, strings.TrimRight(content, "\n"), content[:last.Offset+len(last.Content)])
}

func TestTextSplitter_CutsAtWhitespace(t *testing.T) {
	doc, err := New("bio.txt", "alpha beta gamma delta epsilon zeta eta theta")
	require.NoError(t, err)

	chunks, err := NewTextSplitter(16, 0).Split(doc)
	require.NoError(t, err)

	words := make(map[string]bool)
	for _, w := range strings.Fields(doc.Content) {
		words[w] = true
	}

	require.Len(t, chunks, 3)
	assert.Equal(t, "alpha beta gamma", chunks[0].Content)
	for _, c := range chunks {
		for _, word := range strings.Fields(c.Content) {
			assert.True(t, words[word], "word %q was split", word)
		}
	}
}

func TestTextSplitter_Deterministic(t *testing.T) {
	doc, err := New("bio.txt", strings.Repeat("The quick brown fox jumps over the lazy dog. ", 100))
	require.NoError(t, err)

	splitter := NewTextSplitter(200, 40)
	first, err := splitter.Split(doc)
	require.NoError(t, err)
	second, err := splitter.Split(doc)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestNewTextSplitter_Defaults(t *testing.T) {
	s := NewTextSplitter(-1, -1)
	assert.Equal(t, DefaultChunkSize, s.size)
	assert.Equal(t, DefaultChunkSize/8, s.overlap)

	s = NewTextSplitter(100, 100)
	assert.Equal(t, 12, s.overlap)
}

func TestChunkID_Stable(t *testing.T) {
	assert.Equal(t, ChunkID("bio.md", 3), ChunkID("bio.md", 3))
	assert.NotEqual(t, ChunkID("bio.md", 3), ChunkID("bio.md", 4))
	assert.NotEqual(t, ChunkID("bio.md", 3), ChunkID("cv.md", 3))
}

func TestChunk_EmbeddingText(t *testing.T) {
	assert.Equal(t, "body", Chunk{Content: "body"}.EmbeddingText())
	assert.Equal(t, "# About\n\nbody", Chunk{HeaderPath: "# About", Content: "body"}.EmbeddingText())
}
