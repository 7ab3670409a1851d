package parser

import (
	"regexp"
	"strings"

	"github.com/eoinhurrell/citelink/internal/linkmodel"
)

// Obsidian-only regex families, applied per line in the order they are
// declared here. Each pattern captures just enough to hand raw
// path/anchor/text fields to the link factory; none of them need to
// understand CommonMark proper since goldmark's AST walk (phase A) already
// covers that ground.
var (
	mdLinkWithAnchorRe = regexp.MustCompile(`\[([^\]]*)\]\(([^\s()]+\.md)#((?:[^()]|\([^()]*\))*)\)`)
	mdInternalAnchorRe = regexp.MustCompile(`\[([^\]]*)\]\(#([^)]+)\)`)
	mdExtensionlessRe  = regexp.MustCompile(`\[([^\]]*)\]\(([\w./-]*/[\w.-]+)\)`)
	citationFormRe     = regexp.MustCompile(`\[cite:\s*([^\]]+)\]`)
	wikiCrossDocRe     = regexp.MustCompile(`\[\[([^\]#|]+\.md)(?:#([^\]|]*))?(?:\|([^\]]*))?\]\]`)
	wikiInternalRe     = regexp.MustCompile(`\[\[#([^\]|]+)(?:\|([^\]]*))?\]\]`)
	caretBlockRe       = regexp.MustCompile(`\^[A-Za-z0-9][A-Za-z0-9_-]*`)
)

type linkPos struct{ line, column int }

// extractRegexFallback runs the Obsidian-only regex families over the
// non-fenced lines of content, skipping any (line, column) already found by
// the goldmark walk or an earlier regex family in this same pass.
func extractRegexFallback(lines []string, fenced map[int]bool, factory *linkFactory, seed []*linkmodel.Link) []*linkmodel.Link {
	seen := make(map[linkPos]bool, len(seed))
	for _, l := range seed {
		seen[linkPos{l.Line, l.Column}] = true
	}

	var out []*linkmodel.Link
	add := func(l *linkmodel.Link) {
		seen[linkPos{l.Line, l.Column}] = true
		out = append(out, l)
	}

	for i, line := range lines {
		if fenced[lineNumber(i)] {
			continue
		}
		lineNo := lineNumber(i)

		scanMatches(line, mdLinkWithAnchorRe, func(m []int) {
			col := m[0]
			if seen[linkPos{lineNo, col}] || backtickParity(line, col) {
				return
			}
			text := line[m[2]:m[3]]
			rawPath := line[m[4]:m[5]]
			anchor := line[m[6]:m[7]]
			full := line[m[0]:m[1]]
			l := factory.build(linkmodel.LinkTypeMarkdown, rawPath, anchor, text, full, lineNo, col)
			attachExtractionMarker(l, line, m[1])
			add(l)
		})

		scanMatches(line, mdInternalAnchorRe, func(m []int) {
			col := m[0]
			if seen[linkPos{lineNo, col}] || backtickParity(line, col) {
				return
			}
			text := line[m[2]:m[3]]
			anchor := line[m[4]:m[5]]
			full := line[m[0]:m[1]]
			l := factory.build(linkmodel.LinkTypeMarkdown, "", anchor, text, full, lineNo, col)
			attachExtractionMarker(l, line, m[1])
			add(l)
		})

		scanMatches(line, mdExtensionlessRe, func(m []int) {
			col := m[0]
			if seen[linkPos{lineNo, col}] || backtickParity(line, col) {
				return
			}
			rawPath := line[m[4]:m[5]]
			if strings.Contains(rawPath, "://") {
				return
			}
			text := line[m[2]:m[3]]
			full := line[m[0]:m[1]]
			l := factory.build(linkmodel.LinkTypeMarkdown, rawPath, "", text, full, lineNo, col)
			attachExtractionMarker(l, line, m[1])
			add(l)
		})

		scanMatches(line, citationFormRe, func(m []int) {
			col := m[0]
			if seen[linkPos{lineNo, col}] || backtickParity(line, col) {
				return
			}
			raw := strings.TrimSpace(line[m[2]:m[3]])
			rawPath, anchor := splitPathAnchor(raw)
			full := line[m[0]:m[1]]
			l := factory.build(linkmodel.LinkTypeMarkdown, rawPath, anchor, "", full, lineNo, col)
			attachExtractionMarker(l, line, m[1])
			add(l)
		})

		scanMatches(line, wikiCrossDocRe, func(m []int) {
			col := m[0]
			if seen[linkPos{lineNo, col}] {
				return
			}
			if backtickParity(line, col) {
				return
			}
			rawPath := line[m[2]:m[3]]
			anchor := groupOrEmpty(line, m, 4, 5)
			text := groupOrEmpty(line, m, 6, 7)
			full := line[m[0]:m[1]]
			l := factory.build(linkmodel.LinkTypeWiki, rawPath, anchor, text, full, lineNo, col)
			attachExtractionMarker(l, line, m[1])
			add(l)
		})

		scanMatches(line, wikiInternalRe, func(m []int) {
			col := m[0]
			if seen[linkPos{lineNo, col}] {
				return
			}
			if backtickParity(line, col) {
				return
			}
			anchor := line[m[2]:m[3]]
			text := groupOrEmpty(line, m, 4, 5)
			full := line[m[0]:m[1]]
			l := factory.build(linkmodel.LinkTypeWiki, "", anchor, text, full, lineNo, col)
			attachExtractionMarker(l, line, m[1])
			add(l)
		})

		scanCaretRefs(line, lineNo, seen, factory, add)
	}

	return out
}

// scanMatches applies re to line, invoking fn with the submatch index slice
// for every non-overlapping match.
func scanMatches(line string, re *regexp.Regexp, fn func(m []int)) {
	for _, m := range re.FindAllStringSubmatchIndex(line, -1) {
		fn(m)
	}
}

// groupOrEmpty returns line[lo:hi] if the optional capture group matched
// (lo >= 0), or "" otherwise.
func groupOrEmpty(line string, m []int, lo, hi int) string {
	if lo >= len(m) || m[lo] < 0 {
		return ""
	}
	return line[m[lo]:m[hi]]
}

func splitPathAnchor(raw string) (string, string) {
	if idx := strings.IndexByte(raw, '#'); idx >= 0 {
		return raw[:idx], raw[idx+1:]
	}
	return raw, ""
}

// scanCaretRefs finds standalone ^block-id tokens, rejecting semver-looking
// occurrences like ^14.0.1 and anything already claimed by another pattern.
func scanCaretRefs(line string, lineNo int, seen map[linkPos]bool, factory *linkFactory, add func(*linkmodel.Link)) {
	for _, m := range caretBlockRe.FindAllStringIndex(line, -1) {
		start, end := m[0], m[1]
		if end < len(line) && line[end] == '.' && end+1 < len(line) && isDigit(line[end+1]) {
			continue
		}
		if start > 0 && line[start-1] != ' ' && line[start-1] != '\t' {
			continue
		}
		if seen[linkPos{lineNo, start}] || backtickParity(line, start) {
			continue
		}
		token := line[start:end]
		l := factory.build(linkmodel.LinkTypeMarkdown, "", token, "", token, lineNo, start)
		attachExtractionMarker(l, line, end)
		seen[linkPos{lineNo, start}] = true
		add(l)
	}
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

var (
	emphasisAnchorRe   = regexp.MustCompile(`==\*\*([^*]+)\*\*==`)
	headingLineRe      = regexp.MustCompile(`^(#+)\s+(.+?)\s*$`)
	headingCustomIDRe  = regexp.MustCompile(`\{#([A-Za-z0-9_-]+)\}\s*$`)
	anchorInvalidChars = ":|#^[]\\"
)

// extractAnchors produces every AnchorObject in the document: block anchors
// from caret tokens and ==**emphasis**== markers, and header anchors
// derived from the already-extracted headings slice.
func extractAnchors(lines []string, fenced map[int]bool, headings []linkmodel.Heading, headingLines []int) []linkmodel.Anchor {
	var anchors []linkmodel.Anchor

	for i, line := range lines {
		if fenced[lineNumber(i)] {
			continue
		}
		lineNo := lineNumber(i)

		for _, m := range caretBlockRe.FindAllStringIndex(line, -1) {
			start, end := m[0], m[1]
			if end < len(line) && line[end] == '.' && end+1 < len(line) && isDigit(line[end+1]) {
				continue
			}
			anchors = append(anchors, linkmodel.Anchor{
				AnchorType: linkmodel.AnchorTypeBlock,
				ID:         line[start+1 : end],
				RawText:    line[start:end],
				FullMatch:  line[start:end],
				Line:       lineNo,
				Column:     start,
			})
		}

		for _, m := range emphasisAnchorRe.FindAllStringSubmatchIndex(line, -1) {
			anchors = append(anchors, linkmodel.Anchor{
				AnchorType: linkmodel.AnchorTypeBlock,
				ID:         line[m[2]:m[3]],
				RawText:    line[m[0]:m[1]],
				FullMatch:  line[m[0]:m[1]],
				Line:       lineNo,
				Column:     m[0],
			})
		}
	}

	for idx, h := range headings {
		lineNo := 0
		if idx < len(headingLines) {
			lineNo = headingLines[idx]
		}
		id := h.Text
		raw := h.Raw
		if lineNo > 0 && lineNo <= len(lines) {
			raw = lines[lineNo-1]
			if hm := headingLineRe.FindStringSubmatch(raw); hm != nil {
				text := hm[2]
				if cm := headingCustomIDRe.FindStringSubmatch(text); cm != nil {
					id = cm[1]
					text = strings.TrimSpace(headingCustomIDRe.ReplaceAllString(text, ""))
				} else {
					id = text
				}
				_ = text
			}
		}
		anchors = append(anchors, linkmodel.Anchor{
			AnchorType:   linkmodel.AnchorTypeHeader,
			ID:           id,
			URLEncodedID: urlEncodeAnchorID(id),
			RawText:      h.Text,
			FullMatch:    raw,
			Line:         lineNo,
			Column:       0,
		})
	}

	return anchors
}

// urlEncodeAnchorID builds the Obsidian-compatible heading fragment: colons
// stripped, runs of whitespace collapsed to a single %20.
func urlEncodeAnchorID(text string) string {
	stripped := strings.ReplaceAll(text, ":", "")
	fields := strings.Fields(stripped)
	return strings.Join(fields, "%20")
}

// stripObsidianInvalidChars removes characters Obsidian treats as invalid
// inside an anchor when normalizing heading text for comparison.
func stripObsidianInvalidChars(s string) string {
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(anchorInvalidChars, r) {
			return -1
		}
		return r
	}, s)
}
