package parser

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/eoinhurrell/citelink/internal/linkmodel"
)

// linkFactory is the single place that assembles a linkmodel.Link from raw
// extraction inputs. Every extraction path (the goldmark walk in phase A,
// each regex family in phase B) calls through here so that anchor
// classification and path resolution never drift between call sites.
type linkFactory struct {
	sourceAbs string
	sourceDir string
}

func newLinkFactory(sourceAbs string) *linkFactory {
	return &linkFactory{sourceAbs: sourceAbs, sourceDir: filepath.Dir(sourceAbs)}
}

// classifyAnchor implements the rule from the parser's anchor-type
// classification: any anchor starting with a caret is a block anchor, any
// other non-empty anchor is a header anchor, and an
// empty anchor means no anchor at all (a full-file link).
func classifyAnchor(anchor string) linkmodel.AnchorType {
	if anchor == "" {
		return ""
	}
	if strings.HasPrefix(anchor, "^") {
		return linkmodel.AnchorTypeBlock
	}
	return linkmodel.AnchorTypeHeader
}

// build assembles a Link from raw path/anchor/text captured by either
// extraction phase. rawPath is "" for an internal (same-document) link.
func (f *linkFactory) build(linkType linkmodel.LinkType, rawPath, anchor, text, fullMatch string, line, column int) *linkmodel.Link {
	l := &linkmodel.Link{
		LinkType:  linkType,
		Text:      text,
		FullMatch: fullMatch,
		Line:      line,
		Column:    column,
	}
	l.Source.Absolute = f.sourceAbs
	l.Target.Path.Raw = rawPath
	l.Target.Anchor = anchor
	l.AnchorType = classifyAnchor(anchor)

	if rawPath == "" {
		l.Scope = linkmodel.ScopeInternal
		return l
	}
	l.Scope = linkmodel.ScopeCrossDocument

	abs := rawPath
	if !filepath.IsAbs(abs) {
		abs = filepath.Clean(filepath.Join(f.sourceDir, rawPath))
	} else {
		abs = filepath.Clean(abs)
	}
	l.Target.Path.Absolute = abs
	if rel, err := filepath.Rel(f.sourceDir, abs); err == nil {
		l.Target.Path.Relative = rel
	}
	return l
}

var extractionMarkerRe = regexp.MustCompile(`^\s*(?:%%(.+?)%%|<!--\s*(.+?)\s*-->)`)

// attachExtractionMarker scans the line immediately following a link's
// full match for a %%…%% or <!-- … --> instruction comment and attaches it
// to the link, or leaves ExtractionMarker nil.
func attachExtractionMarker(l *linkmodel.Link, line string, afterCol int) {
	if afterCol > len(line) {
		return
	}
	rest := line[afterCol:]
	m := extractionMarkerRe.FindStringSubmatch(rest)
	if m == nil {
		return
	}
	inner := m[1]
	if inner == "" {
		inner = m[2]
	}
	l.ExtractionMarker = &linkmodel.ExtractionMarker{
		FullMatch: strings.TrimLeft(m[0], " \t"),
		InnerText: strings.TrimSpace(inner),
	}
}
