// Package parser implements the Markdown parser for the Obsidian-flavored
// dialect this module validates and extracts from. Extraction is two
// phase: a goldmark AST walk handles everything CommonMark-compliant
// (standard [text](path) links, headings), and a second pass of targeted
// regexes picks up the Obsidian-only syntax goldmark has no notion of
// (wiki links, caret block refs, citation-form references).
package parser

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/yuin/goldmark/ast"
	gmparser "github.com/yuin/goldmark/parser"
	gmtext "github.com/yuin/goldmark/text"

	"github.com/eoinhurrell/citelink/internal/linkmodel"
)

var mdParser = gmparser.NewParser(
	gmparser.WithBlockParsers(gmparser.DefaultBlockParsers()...),
	gmparser.WithInlineParsers(gmparser.DefaultInlineParsers()...),
	gmparser.WithParagraphTransformers(gmparser.DefaultParagraphTransformers()...),
)

// Document is the ParsedDocument data contract: filePath, content, the
// retained lexer output, and the extracted links/anchors/headings.
type Document struct {
	FilePath string
	Content  string
	Tokens   ast.Node

	links        []*linkmodel.Link
	anchors      []linkmodel.Anchor
	headings     []linkmodel.Heading
	headingLines []int
	lines        []string
}

// Parser produces a Document for one source file.
type Parser struct{}

// New returns a Parser. It holds no state; every call to ParseFile is
// independent, which is what lets ParsedFileCache memoize per path safely.
func New() *Parser { return &Parser{} }

// ParseFile reads path and parses it. A missing or unreadable file is a
// fail-fast error; a malformed heading or anchor inside an otherwise
// readable file is simply omitted, never a parse failure.
func (p *Parser) ParseFile(path string) (*Document, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return p.Parse(path, content)
}

// Parse runs the two-phase extraction over content, which is treated as
// already read from path (path is used only to resolve relative link
// targets and to stamp the resulting Document).
func (p *Parser) Parse(path string, content []byte) (*Document, error) {
	contentStr := string(content)
	lines := splitLines(contentStr)
	fenced := fencedLines(lines)

	root := mdParser.Parse(gmtext.NewReader(content))

	factory := newLinkFactory(path)

	headings, headingLines := walkHeadings(root, content)
	for i, n := range headingLines {
		if n > 0 && n <= len(lines) {
			headings[i].Raw = lines[n-1]
		}
	}
	phaseALinks := walkLinks(root, content, lines, fenced, factory)
	phaseBLinks := extractRegexFallback(lines, fenced, factory, phaseALinks)

	all := append(phaseALinks, phaseBLinks...)
	sort.SliceStable(all, func(i, j int) bool {
		if all[i].Line != all[j].Line {
			return all[i].Line < all[j].Line
		}
		return all[i].Column < all[j].Column
	})

	anchors := extractAnchors(lines, fenced, headings, headingLines)

	return &Document{
		FilePath:     path,
		Content:      contentStr,
		Tokens:       root,
		links:        all,
		anchors:      anchors,
		headings:     headings,
		headingLines: headingLines,
		lines:        lines,
	}, nil
}

// splitLines splits on '\n' without dropping a trailing empty line, so line
// numbers (1-indexed) line up with what an editor would show.
func splitLines(s string) []string {
	return strings.Split(s, "\n")
}

// walkHeadings collects every ast.Heading in document order along with the
// 1-indexed source line each one starts on.
func walkHeadings(root ast.Node, content []byte) ([]linkmodel.Heading, []int) {
	var headings []linkmodel.Heading
	var lineNumbers []int

	ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		h, ok := n.(*ast.Heading)
		if !ok {
			return ast.WalkContinue, nil
		}
		text := headingText(h, content)
		lineNo := blockStartLine(n, content)
		headings = append(headings, linkmodel.Heading{
			Level: h.Level,
			Text:  text,
			Raw:   text,
		})
		lineNumbers = append(lineNumbers, lineNo)
		return ast.WalkSkipChildren, nil
	})

	return headings, lineNumbers
}

// headingText concatenates the text-node contents of a heading, which
// strips inline markdown emphasis the way Obsidian's own renderer would
// before using the text as an anchor id.
func headingText(h *ast.Heading, content []byte) string {
	var b strings.Builder
	ast.Walk(h, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if t, ok := n.(*ast.Text); ok {
			b.Write(t.Text(content))
		}
		return ast.WalkContinue, nil
	})
	return b.String()
}

// blockStartLine converts a block node's byte offset (via its Lines
// segments) into a 1-indexed source line number. Non-block nodes walk up
// to their nearest block ancestor first.
func blockStartLine(n ast.Node, content []byte) int {
	for n != nil && n.Type() != ast.TypeBlock {
		n = n.Parent()
	}
	if n == nil {
		return 0
	}
	lines := n.Lines()
	if lines == nil || lines.Len() == 0 {
		return 0
	}
	start := lines.At(0).Start
	return 1 + countNewlines(content[:start])
}

func countNewlines(b []byte) int {
	n := 0
	for _, c := range b {
		if c == '\n' {
			n++
		}
	}
	return n
}

// walkLinks collects every ast.Link not destined for an http(s) URL, in
// document order, locating each one's line/column by searching for its
// raw text within the block of lines its containing paragraph spans.
func walkLinks(root ast.Node, content []byte, lines []string, fenced map[int]bool, factory *linkFactory) []*linkmodel.Link {
	var out []*linkmodel.Link

	ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		link, ok := n.(*ast.Link)
		if !ok {
			return ast.WalkContinue, nil
		}
		dest := string(link.Destination)
		if strings.HasPrefix(dest, "http://") || strings.HasPrefix(dest, "https://") {
			return ast.WalkContinue, nil
		}
		visibleText := inlineText(link, content)
		rawPath, anchor := splitPathAnchor(dest)

		startLine := blockStartLine(n, content)
		lineNo, col, full, ok := locateInLines(lines, startLine, visibleText, dest)
		if !ok {
			return ast.WalkContinue, nil
		}

		l := factory.build(linkmodel.LinkTypeMarkdown, rawPath, anchor, visibleText, full, lineNo, col)
		attachExtractionMarker(l, lines[lineNo-1], col+len(full))
		out = append(out, l)
		return ast.WalkContinue, nil
	})

	return out
}

// inlineText concatenates the text content of a link's children (its
// visible link text).
func inlineText(link *ast.Link, content []byte) string {
	var b strings.Builder
	ast.Walk(link, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if t, ok := n.(*ast.Text); ok {
			b.Write(t.Text(content))
		}
		return ast.WalkContinue, nil
	})
	return b.String()
}

// locateInLines finds the "[text](dest)" occurrence within a small window
// of lines starting at startLine, returning its line, column, and exact
// matched substring. goldmark does not expose byte offsets for inline
// nodes directly, so this mirrors the parser's own documented approach of
// searching the raw match string within content split into lines.
func locateInLines(lines []string, startLine int, visibleText, dest string) (line, col int, full string, ok bool) {
	if startLine <= 0 {
		startLine = 1
	}
	needle := "[" + visibleText + "](" + dest
	window := 4
	for i := startLine - 1; i < len(lines) && i < startLine-1+window; i++ {
		if idx := strings.Index(lines[i], needle); idx >= 0 {
			end := strings.IndexByte(lines[i][idx:], ')')
			if end < 0 {
				continue
			}
			full = lines[i][idx : idx+end+1]
			return i + 1, idx, full, true
		}
	}
	return 0, 0, "", false
}

// Links returns every link extracted from the document, in source order.
func (d *Document) Links() []*linkmodel.Link { return d.links }

// Anchors returns every anchor (header and block) in the document.
func (d *Document) Anchors() []linkmodel.Anchor { return d.anchors }

// Headings returns every heading in the document, in source order.
func (d *Document) Headings() []linkmodel.Heading { return d.headings }
