package parser

import (
	"net/url"
	"regexp"
	"sort"
	"strings"
)

// HasAnchor implements the four-level anchor match: exact id, then (for
// headers) urlEncodedId, then both sides URL-decoded, then an
// Obsidian-normalized comparison that strips invalid anchor characters.
func (d *Document) HasAnchor(search string) bool {
	for _, a := range d.anchors {
		if a.ID == search {
			return true
		}
		if a.AnchorType == "header" && a.URLEncodedID == search {
			return true
		}
	}

	decodedSearch, _ := url.QueryUnescape(strings.ReplaceAll(search, "%20", " "))
	for _, a := range d.anchors {
		candidate := a.ID
		if a.AnchorType == "header" {
			if decoded, err := url.QueryUnescape(strings.ReplaceAll(a.URLEncodedID, "%20", " ")); err == nil && decoded == decodedSearch {
				return true
			}
		}
		if decoded, err := url.QueryUnescape(strings.ReplaceAll(candidate, "%20", " ")); err == nil && decoded == decodedSearch {
			return true
		}
	}

	normalizedSearch := stripObsidianInvalidChars(decodedSearch)
	for _, a := range d.anchors {
		if a.AnchorType != "header" {
			continue
		}
		if stripObsidianInvalidChars(a.RawText) == normalizedSearch {
			return true
		}
	}
	return false
}

// FindSimilarAnchors ranks anchor ids and raw text by a case-insensitive
// substring match first, then edit distance, returning at most limit
// suggestions.
func (d *Document) FindSimilarAnchors(search string, limit int) []string {
	if limit <= 0 {
		limit = 5
	}
	type scored struct {
		text  string
		score int
	}
	lowerSearch := strings.ToLower(search)
	seen := make(map[string]bool)
	var candidates []scored

	for _, a := range d.anchors {
		text := a.RawText
		if text == "" {
			text = a.ID
		}
		if seen[text] {
			continue
		}
		seen[text] = true

		lower := strings.ToLower(text)
		score := levenshtein(lowerSearch, lower)
		if strings.Contains(lower, lowerSearch) || strings.Contains(lowerSearch, lower) {
			score -= 1000 // substring matches rank above pure edit-distance matches
		}
		candidates = append(candidates, scored{text: text, score: score})
	}

	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].score < candidates[j].score })

	var out []string
	for i := 0; i < len(candidates) && i < limit; i++ {
		out = append(out, candidates[i].text)
	}
	return out
}

func levenshtein(a, b string) int {
	if a == b {
		return 0
	}
	la, lb := len(a), len(b)
	prev := make([]int, lb+1)
	curr := make([]int, lb+1)
	for j := 0; j <= lb; j++ {
		prev[j] = j
	}
	for i := 1; i <= la; i++ {
		curr[0] = i
		for j := 1; j <= lb; j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min3(curr[j-1]+1, prev[j]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[lb]
}

func min3(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}

// ExtractSection locates headingText (matched exactly, then via the same
// Obsidian-normalization HasAnchor uses) and returns everything from that
// heading up to, but excluding, the next heading of equal or higher level.
func (d *Document) ExtractSection(headingText string) (string, bool) {
	idx := d.findHeadingIndex(headingText)
	if idx < 0 {
		return "", false
	}
	startLine := d.headingLines[idx]
	if startLine <= 0 {
		return "", false
	}
	level := d.headings[idx].Level

	endLine := len(d.lines)
	for j := idx + 1; j < len(d.headings); j++ {
		if d.headings[j].Level <= level && d.headingLines[j] > 0 {
			endLine = d.headingLines[j] - 1
			break
		}
	}

	section := strings.Join(d.lines[startLine-1:endLine], "\n")
	if !strings.HasSuffix(section, "\n") {
		section += "\n"
	}
	return section, true
}

func (d *Document) findHeadingIndex(headingText string) int {
	for i, h := range d.headings {
		if h.Text == headingText {
			return i
		}
	}
	normalized := stripObsidianInvalidChars(headingText)
	for i, h := range d.headings {
		if stripObsidianInvalidChars(h.Text) == normalized {
			return i
		}
	}
	decoded, err := url.QueryUnescape(strings.ReplaceAll(headingText, "%20", " "))
	if err == nil {
		for i, h := range d.headings {
			if h.Text == decoded {
				return i
			}
		}
	}
	return -1
}

var blockParagraphBreakRe = regexp.MustCompile(`^\s*$`)

// ExtractBlock returns the smallest paragraph/list-item block containing
// the block anchor blockID (accepting either "^id" or "id").
func (d *Document) ExtractBlock(blockID string) (string, bool) {
	id := strings.TrimPrefix(blockID, "^")
	var anchorLine int
	found := false
	for _, a := range d.anchors {
		if a.AnchorType == "block" && a.ID == id {
			anchorLine = a.Line
			found = true
			break
		}
	}
	if !found || anchorLine <= 0 {
		return "", false
	}

	start := anchorLine - 1
	for start > 0 && !blockParagraphBreakRe.MatchString(d.lines[start-1]) {
		start--
	}
	end := anchorLine - 1
	for end < len(d.lines)-1 && !blockParagraphBreakRe.MatchString(d.lines[end+1]) {
		end++
	}
	return strings.Join(d.lines[start:end+1], "\n"), true
}

// ExtractFullContent returns the document's raw content unchanged.
func (d *Document) ExtractFullContent() string { return d.Content }
