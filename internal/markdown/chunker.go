// Package markdown splits markdown documents at header boundaries.
package markdown

import (
	"fmt"
	"slices"
	"strings"
	"unicode"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"go.abhg.dev/goldmark/toc"

	"github.com/bull/portfolio-buddy/internal/document"
)

// DefaultMaxDepth splits at H1 and H2; deeper headers stay inside their section.
const DefaultMaxDepth = 2

// Chunker splits markdown documents at header boundaries while preserving context.
type Chunker struct {
	parser   goldmark.Markdown
	maxDepth int
}

// NewChunker creates a new markdown chunker configured with goldmark parser.
func NewChunker() *Chunker {
	md := goldmark.New(
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
	)
	return &Chunker{
		parser:   md,
		maxDepth: DefaultMaxDepth,
	}
}

// section marks where a chunk begins in the source.
type section struct {
	start      int
	headerPath string
}

// Split cuts the document at every top-level H1/H2. Text before the first
// header becomes its own chunk; a document with no headers is a single chunk.
func (c *Chunker) Split(doc *document.Document) ([]document.Chunk, error) {
	source := []byte(doc.Content)
	root := c.parser.Parser().Parse(text.NewReader(source))

	tree, err := toc.Inspect(root, source,
		toc.MinDepth(1),
		toc.MaxDepth(c.maxDepth),
		toc.Compact(true),
	)
	if err != nil {
		return nil, fmt.Errorf("inspect TOC: %w", err)
	}
	paths := headerPaths(tree.Items, nil, make(map[string]string))

	sections := []section{{start: 0}}
	for n := root.FirstChild(); n != nil; n = n.NextSibling() {
		heading, ok := n.(*ast.Heading)
		if !ok || heading.Level > c.maxDepth || heading.Lines().Len() == 0 {
			continue
		}
		seg := heading.Lines().At(0)

		path, ok := paths[headingID(heading)]
		if !ok {
			path = strings.Repeat("#", heading.Level) + " " + strings.TrimSpace(string(seg.Value(source)))
		}
		sections = append(sections, section{
			start:      lineStart(source, seg.Start),
			headerPath: path,
		})
	}

	var chunks []document.Chunk
	for i, s := range sections {
		end := len(source)
		if i+1 < len(sections) {
			end = sections[i+1].start
		}

		span := doc.Content[s.start:end]
		trimmed := strings.TrimLeftFunc(span, unicode.IsSpace)
		content := strings.TrimRightFunc(trimmed, unicode.IsSpace)
		if content == "" {
			continue
		}
		chunks = append(chunks, document.Chunk{
			Offset:     s.start + len(span) - len(trimmed),
			HeaderPath: s.headerPath,
			Content:    content,
		})
	}

	return document.Finalize(doc.Source, chunks), nil
}

// headerPaths maps every heading ID in the TOC to its formatted ancestry.
func headerPaths(items toc.Items, ancestors []string, out map[string]string) map[string]string {
	for _, item := range items {
		path := append(slices.Clone(ancestors), string(item.Title))
		if len(item.ID) > 0 {
			out[string(item.ID)] = formatHeaderPath(path)
		}
		headerPaths(item.Items, path, out)
	}
	return out
}

// formatHeaderPath builds a header hierarchy string.
// Example: ["Experience", "Acme"] -> "# Experience > ## Acme"
func formatHeaderPath(path []string) string {
	parts := make([]string, 0, len(path))
	for i, segment := range path {
		if segment == "" {
			continue
		}
		parts = append(parts, strings.Repeat("#", i+1)+" "+segment)
	}
	return strings.Join(parts, " > ")
}

func headingID(heading *ast.Heading) string {
	v, ok := heading.AttributeString("id")
	if !ok {
		return ""
	}
	id, _ := v.([]byte)
	return string(id)
}

// lineStart returns the offset of the first byte of the line containing pos.
func lineStart(source []byte, pos int) int {
	for pos > 0 && source[pos-1] != '\n' {
		pos--
	}
	return pos
}
