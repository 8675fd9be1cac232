// Package markdown splits knowledge documents into header-scoped chunks for
// embedding.
package markdown

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"go.abhg.dev/goldmark/toc"
)

// DefaultMaxRunes bounds a chunk before it is split on paragraph breaks.
const DefaultMaxRunes = 2000

// Chunk represents a section of a document with header context.
type Chunk struct {
	Index      int    // Position in document (0, 1, 2...)
	HeaderPath string // Hierarchy: "# Doc Title > ## Section Name"
	Content    string // Chunk content WITH header path prepended
	RawContent string // Original content without header prefix
}

// Chunker splits markdown at H1/H2 boundaries while preserving context.
type Chunker struct {
	parser   goldmark.Markdown
	maxRunes int
}

// NewChunker creates a chunker. maxRunes <= 0 selects DefaultMaxRunes.
func NewChunker(maxRunes int) *Chunker {
	if maxRunes <= 0 {
		maxRunes = DefaultMaxRunes
	}
	return &Chunker{
		parser: goldmark.New(
			goldmark.WithParserOptions(parser.WithAutoHeadingID()),
		),
		maxRunes: maxRunes,
	}
}

// ChunkDocument chunks a knowledge document. The title becomes the H1 so
// every chunk carries it in its header path.
func (c *Chunker) ChunkDocument(title, body string) ([]Chunk, error) {
	source := fmt.Sprintf("# %s\n\n%s", strings.TrimSpace(title), body)
	chunks, err := c.ChunkMarkdown([]byte(source))
	if err != nil {
		return nil, err
	}
	return c.splitOversized(chunks), nil
}

// ChunkMarkdown splits raw markdown at H1 and H2 boundaries.
// Without headers the whole source is one chunk.
func (c *Chunker) ChunkMarkdown(source []byte) ([]Chunk, error) {
	doc := c.parser.Parser().Parse(text.NewReader(source))

	tree, err := toc.Inspect(doc, source,
		toc.MinDepth(1),
		toc.MaxDepth(2),
		toc.Compact(true),
	)
	if err != nil {
		return nil, fmt.Errorf("inspect TOC: %w", err)
	}

	if len(tree.Items) == 0 {
		content := strings.TrimSpace(string(source))
		return []Chunk{{Index: 0, Content: content, RawContent: content}}, nil
	}

	headings := collectHeadings(doc, source)
	var chunks []Chunk
	walkItems(source, headings, tree.Items, nil, &chunks)
	return chunks, nil
}

// heading is an H1/H2 node with its byte offset in the source.
type heading struct {
	id    string
	level int
	start int
}

func collectHeadings(doc ast.Node, source []byte) []heading {
	var out []heading
	ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering || n.Kind() != ast.KindHeading {
			return ast.WalkContinue, nil
		}
		h := n.(*ast.Heading)
		if h.Level > 2 || h.Lines().Len() == 0 {
			return ast.WalkSkipChildren, nil
		}
		id, _ := h.AttributeString("id")
		idBytes, _ := id.([]byte)
		out = append(out, heading{
			id:    string(idBytes),
			level: h.Level,
			start: lineStart(source, h.Lines().At(0).Start),
		})
		return ast.WalkSkipChildren, nil
	})
	return out
}

// lineStart backs up over the "#" markers to the start of the line.
func lineStart(source []byte, pos int) int {
	for pos > 0 && source[pos-1] != '\n' {
		pos--
	}
	return pos
}

func walkItems(source []byte, headings []heading, items toc.Items, ancestors []string, chunks *[]Chunk) {
	for _, item := range items {
		path := append(append([]string(nil), ancestors...), string(item.Title))
		idx := indexOf(headings, string(item.ID))
		if idx >= 0 {
			content := sectionContent(source, headings, idx)
			headerPath := formatHeaderPath(path)
			*chunks = append(*chunks, Chunk{
				Index:      len(*chunks),
				HeaderPath: headerPath,
				RawContent: content,
				Content:    headerPath + "\n\n" + content,
			})
		}
		if len(item.Items) > 0 {
			walkItems(source, headings, item.Items, path, chunks)
		}
	}
}

func indexOf(headings []heading, id string) int {
	for i, h := range headings {
		if h.id == id {
			return i
		}
	}
	return -1
}

// sectionContent runs from a heading to the next H1/H2, so an H1 chunk
// holds only its lead text and each H2 its own body.
func sectionContent(source []byte, headings []heading, idx int) string {
	start := headings[idx].start
	end := len(source)
	if idx+1 < len(headings) {
		end = headings[idx+1].start
	}
	body := string(source[start:end])
	// Drop the heading line itself; the header path already names it.
	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		body = body[nl+1:]
	} else {
		body = ""
	}
	return strings.TrimSpace(body)
}

// formatHeaderPath builds "# A > ## B" from ["A", "B"].
func formatHeaderPath(path []string) string {
	parts := make([]string, 0, len(path))
	for i, segment := range path {
		parts = append(parts, strings.Repeat("#", i+1)+" "+segment)
	}
	return strings.Join(parts, " > ")
}

// splitOversized breaks chunks longer than maxRunes on blank lines and
// drops chunks with no body.
func (c *Chunker) splitOversized(chunks []Chunk) []Chunk {
	var out []Chunk
	for _, ch := range chunks {
		if strings.TrimSpace(ch.RawContent) == "" {
			continue
		}
		for _, part := range splitParagraphs(ch.RawContent, c.maxRunes) {
			content := part
			if ch.HeaderPath != "" {
				content = ch.HeaderPath + "\n\n" + part
			}
			out = append(out, Chunk{
				Index:      len(out),
				HeaderPath: ch.HeaderPath,
				Content:    content,
				RawContent: part,
			})
		}
	}
	return out
}

func splitParagraphs(s string, maxRunes int) []string {
	if utf8.RuneCountInString(s) <= maxRunes {
		return []string{s}
	}
	var parts []string
	var cur strings.Builder
	for _, para := range strings.Split(s, "\n\n") {
		if cur.Len() > 0 && utf8.RuneCountInString(cur.String())+utf8.RuneCountInString(para)+2 > maxRunes {
			parts = append(parts, strings.TrimSpace(cur.String()))
			cur.Reset()
		}
		if cur.Len() > 0 {
			cur.WriteString("\n\n")
		}
		cur.WriteString(para)
	}
	if strings.TrimSpace(cur.String()) != "" {
		parts = append(parts, strings.TrimSpace(cur.String()))
	}
	return parts
}
