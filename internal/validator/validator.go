// Package validator classifies, resolves, and verifies every link a
// document contains, enriching each linkmodel.Link in place with a
// ValidationMetadata and producing a per-file summary.
package validator

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/eoinhurrell/citelink/internal/errors"
	"github.com/eoinhurrell/citelink/internal/filecache"
	"github.com/eoinhurrell/citelink/internal/linkmodel"
	"github.com/eoinhurrell/citelink/internal/parser"
	"github.com/eoinhurrell/citelink/internal/parsedcache"
	"github.com/eoinhurrell/citelink/internal/progress"
	"github.com/eoinhurrell/citelink/internal/workerpool"
)

// Summary is the per-file validation tally.
type Summary struct {
	Total    int
	Valid    int
	Warnings int
	Errors   int
}

// Pattern is the classification a link is dispatched under.
type Pattern string

const (
	PatternCaretSyntax    Pattern = "caret_syntax"
	PatternEmphasisMarked Pattern = "emphasis_marked"
	PatternCrossDocument  Pattern = "cross_document"
	PatternWikiStyle      Pattern = "wiki_style"
	PatternUnknown        Pattern = "unknown"
)

var (
	caretAllowlistRe    = regexp.MustCompile(`^(FR\d+|US[\w-]+|NFR\d+|MVP-P\d+|[a-z0-9]+(-[a-z0-9]+)*)$`)
	emphasisMarkedRe    = regexp.MustCompile(`^==\*\*[^*]+\*\*==$`)
	obsidianAbsoluteRe  = regexp.MustCompile(`^[A-Za-z0-9_-]+/`)
	markdownDecorations = regexp.MustCompile("[`*]|==|\\[|\\]|\\(|\\)")
)

// classify implements the precedence-ordered dispatch over link shape.
func classify(l *linkmodel.Link) Pattern {
	if l.Scope == linkmodel.ScopeInternal && l.AnchorType == linkmodel.AnchorTypeBlock {
		return PatternCaretSyntax
	}
	if l.Scope == linkmodel.ScopeCrossDocument && emphasisMarkedRe.MatchString(l.Target.Anchor) {
		return PatternEmphasisMarked
	}
	if l.Scope == linkmodel.ScopeCrossDocument && strings.HasSuffix(strings.ToLower(l.Target.Path.Raw), ".md") {
		return PatternCrossDocument
	}
	if l.LinkType == linkmodel.LinkTypeWiki && l.Scope == linkmodel.ScopeInternal {
		return PatternWikiStyle
	}
	return PatternUnknown
}

// Validator validates links using a parsed-file cache for target lookups
// and a file cache for basename-only resolution.
type Validator struct {
	parsed   *parsedcache.Cache
	files    *filecache.Cache
	reporter progress.Reporter
}

// New returns a Validator backed by parsed and files. files may be nil if
// the caller never needs basename-fallback resolution (e.g. single-file
// checks with no scope folder configured). Progress reporting defaults to
// Silent; use WithReporter to drive a terminal bar or JSON event stream.
func New(parsed *parsedcache.Cache, files *filecache.Cache) *Validator {
	return &Validator{parsed: parsed, files: files, reporter: progress.NewSilent()}
}

// WithReporter overrides the progress reporter driven by ValidateFile's
// per-link worker-pool dispatch.
func (v *Validator) WithReporter(reporter progress.Reporter) *Validator {
	v.reporter = reporter
	return v
}

// ValidateFile parses filePath via the parsed-file cache, validates every
// link it contains, enriches each link's Validation field in place, and
// returns the per-file summary alongside the same link slice the parser
// produced.
func (v *Validator) ValidateFile(ctx context.Context, filePath string) (*Summary, []*linkmodel.Link, error) {
	doc, err := v.parsed.ResolveParsedFile(ctx, filePath)
	if err != nil {
		return nil, nil, fmt.Errorf("reading source %s: %w", filePath, err)
	}

	links := doc.Links()
	if len(links) == 0 {
		return &Summary{}, links, nil
	}

	v.reporter.Start(len(links))

	var (
		done     int64
		reportMu sync.Mutex
	)
	pool := workerpool.NewWorkerPool(workerpool.Config{
		MaxWorkers:  workerpool.DefaultConfig().MaxWorkers,
		QueueSize:   len(links),
		TaskTimeout: workerpool.DefaultConfig().TaskTimeout,
	})
	for i := range links {
		link := links[i]
		_ = pool.Submit(func(taskCtx context.Context) error {
			link.Validation = v.validateOne(taskCtx, link, doc)
			n := atomic.AddInt64(&done, 1)
			reportMu.Lock()
			v.reporter.Update(int(n), fmt.Sprintf("validated %s", link.FullMatch))
			reportMu.Unlock()
			return nil
		})
	}
	_ = pool.Shutdown(2 * time.Minute)
	v.reporter.Finish()

	return summarize(links), links, nil
}

// ValidateSingleCitation runs the same classification/resolution/anchor
// pipeline over one link, given its containing document.
func (v *Validator) ValidateSingleCitation(ctx context.Context, link *linkmodel.Link, sourceDoc *parser.Document) *linkmodel.ValidationMetadata {
	return v.validateOne(ctx, link, sourceDoc)
}

func summarize(links []*linkmodel.Link) *Summary {
	s := &Summary{Total: len(links)}
	for _, l := range links {
		if l.Validation == nil {
			continue
		}
		switch l.Validation.Status {
		case linkmodel.StatusValid:
			s.Valid++
		case linkmodel.StatusWarning:
			s.Warnings++
		case linkmodel.StatusError:
			s.Errors++
		}
	}
	return s
}

func (v *Validator) validateOne(ctx context.Context, link *linkmodel.Link, sourceDoc *parser.Document) *linkmodel.ValidationMetadata {
	pattern := classify(link)
	if pattern == PatternUnknown {
		ue := errors.NewPatternUnknownError(sourceDoc.FilePath, link.FullMatch)
		return &linkmodel.ValidationMetadata{
			Status:     linkmodel.StatusError,
			Error:      ue.Err.Error(),
			Suggestion: ue.Suggestion,
		}
	}

	if pattern == PatternCaretSyntax {
		id := strings.TrimPrefix(link.Target.Anchor, "^")
		if !caretAllowlistRe.MatchString(id) {
			return &linkmodel.ValidationMetadata{
				Status:     linkmodel.StatusError,
				Error:      fmt.Sprintf("block reference %q does not match the allowed requirement/AC/task or kebab-case shapes", id),
				Suggestion: "use a requirement id (FR1, NFR2, US1-4bT1-1, MVP-P1) or a kebab-case block name",
			}
		}
	}

	if link.Scope == linkmodel.ScopeInternal {
		return v.validateAnchor(link, sourceDoc, false)
	}

	resolved, crossDir, pathConv, err := v.resolveCrossDocument(ctx, link)
	if err != nil {
		return &linkmodel.ValidationMetadata{Status: linkmodel.StatusError, Error: err.Error()}
	}

	targetDoc, err := v.parsed.ResolveParsedFile(ctx, resolved)
	if err != nil {
		return &linkmodel.ValidationMetadata{
			Status: linkmodel.StatusError,
			Error:  fmt.Sprintf("target file unreadable: %v", err),
		}
	}

	meta := v.validateAnchor(link, targetDoc, crossDir)
	if pathConv != nil {
		if meta.Status == linkmodel.StatusValid {
			meta.Status = linkmodel.StatusWarning
			meta.Error = ""
		}
		meta.PathConversion = pathConv
	}
	return meta
}

// resolveCrossDocument implements the ordered resolution pipeline: decoded
// relative path, then undecoded, then an Obsidian-absolute ancestor walk,
// then realpath of the source, then FileCache by basename.
func (v *Validator) resolveCrossDocument(ctx context.Context, link *linkmodel.Link) (resolved string, crossDir bool, conv *linkmodel.PathConversion, err error) {
	sourceDir := filepath.Dir(link.Source.Absolute)
	raw := link.Target.Path.Raw

	if decoded, derr := url.QueryUnescape(raw); derr == nil && decoded != raw {
		candidate := filepath.Clean(filepath.Join(sourceDir, decoded))
		if fileExists(candidate) {
			return candidate, false, nil, nil
		}
	}

	candidate := filepath.Clean(filepath.Join(sourceDir, raw))
	if fileExists(candidate) {
		return candidate, false, nil, nil
	}

	if obsidianAbsoluteRe.MatchString(raw) {
		dir := sourceDir
		for {
			attempt := filepath.Clean(filepath.Join(dir, raw))
			if fileExists(attempt) {
				return attempt, true, nil, nil
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
	}

	if realSource, rerr := filepath.EvalSymlinks(link.Source.Absolute); rerr == nil {
		realDir := filepath.Dir(realSource)
		attempt := filepath.Clean(filepath.Join(realDir, raw))
		if fileExists(attempt) {
			return attempt, realDir != sourceDir, nil, nil
		}
	}

	if v.files != nil {
		res := v.files.ResolveFile(filepath.Base(raw))
		if res.Found {
			writtenDir := filepath.Dir(filepath.Join(sourceDir, raw))
			actualDir := filepath.Dir(res.Path)
			cd := writtenDir != actualDir
			var pc *linkmodel.PathConversion
			if cd {
				rel, relErr := filepath.Rel(sourceDir, res.Path)
				if relErr == nil {
					pc = &linkmodel.PathConversion{
						Type:        "path-conversion",
						Original:    raw,
						Recommended: filepath.ToSlash(rel),
					}
				}
			}
			return res.Path, cd, pc, nil
		}
	}

	return "", false, nil, fmt.Errorf("target not found: %s", raw)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// validateAnchor runs anchor verification on targetDoc and builds the
// resulting ValidationMetadata. crossDir selects whether an anchor-miss
// becomes an error (same-directory) or a warning (cross-directory).
func (v *Validator) validateAnchor(link *linkmodel.Link, targetDoc *parser.Document, crossDir bool) *linkmodel.ValidationMetadata {
	anchor := link.Target.Anchor
	if anchor == "" {
		return &linkmodel.ValidationMetadata{Status: linkmodel.StatusValid}
	}

	if targetDoc.HasAnchor(anchor) {
		return &linkmodel.ValidationMetadata{Status: linkmodel.StatusValid}
	}

	if decoded, err := url.QueryUnescape(strings.ReplaceAll(anchor, "%20", " ")); err == nil && targetDoc.HasAnchor(decoded) {
		return &linkmodel.ValidationMetadata{Status: linkmodel.StatusValid}
	}
	if strings.HasPrefix(anchor, "^") && targetDoc.HasAnchor(strings.TrimPrefix(anchor, "^")) {
		return &linkmodel.ValidationMetadata{Status: linkmodel.StatusValid}
	}
	stripped := markdownDecorations.ReplaceAllString(anchor, "")
	for _, a := range targetDoc.Anchors() {
		if markdownDecorations.ReplaceAllString(a.RawText, "") == stripped {
			return &linkmodel.ValidationMetadata{Status: linkmodel.StatusValid}
		}
	}

	if kb := kebabBetterSuggestion(anchor, targetDoc); kb != nil {
		return kb
	}

	status := linkmodel.StatusError
	if crossDir {
		status = linkmodel.StatusWarning
	}
	ue := errors.NewAnchorNotFoundError(targetDoc.FilePath, anchor, anchorSuggestion(anchor, targetDoc))
	return &linkmodel.ValidationMetadata{
		Status:     status,
		Error:      ue.Err.Error(),
		Suggestion: ue.Suggestion,
	}
}

func kebabBetterSuggestion(anchor string, targetDoc *parser.Document) *linkmodel.ValidationMetadata {
	for _, h := range targetDoc.Headings() {
		if kebabCase(h.Text) == anchor {
			return &linkmodel.ValidationMetadata{
				Status:     linkmodel.StatusWarning,
				Suggestion: fmt.Sprintf("use %s (URL-encoded raw header text) instead of the kebab-case form", urlEncodeSpaces(h.Text)),
			}
		}
	}
	return nil
}

// kebabCase lowercases and joins whitespace-separated words with hyphens,
// the loose transform Obsidian users commonly apply to header text by
// hand; it deliberately leaves punctuation like '.' untouched so
// "Story 1.5" kebabs to "story-1.5", matching what people actually type.
func kebabCase(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), "-")
}

func urlEncodeSpaces(s string) string {
	s = strings.ReplaceAll(s, ":", "")
	return strings.Join(strings.Fields(s), "%20")
}

func anchorSuggestion(anchor string, targetDoc *parser.Document) string {
	similar := targetDoc.FindSimilarAnchors(anchor, 3)
	var b strings.Builder
	if len(similar) > 0 {
		b.WriteString("similar anchors: ")
		b.WriteString(strings.Join(similar, ", "))
	}
	headers := headersPreview(targetDoc, 5)
	if len(headers) > 0 {
		if b.Len() > 0 {
			b.WriteString("; ")
		}
		b.WriteString("known headers: ")
		b.WriteString(strings.Join(headers, ", "))
	}
	var blocks []string
	for _, a := range targetDoc.Anchors() {
		if a.AnchorType == linkmodel.AnchorTypeBlock && len(blocks) < 5 {
			blocks = append(blocks, a.RawText)
		}
	}
	if len(blocks) > 0 {
		if b.Len() > 0 {
			b.WriteString("; ")
		}
		b.WriteString("known block refs: ")
		b.WriteString(strings.Join(blocks, ", "))
	}
	return b.String()
}

func headersPreview(targetDoc *parser.Document, limit int) []string {
	var out []string
	for _, a := range targetDoc.Anchors() {
		if a.AnchorType != linkmodel.AnchorTypeHeader {
			continue
		}
		out = append(out, fmt.Sprintf("%s -> %s", a.RawText, a.ID))
		if len(out) >= limit {
			break
		}
	}
	return out
}
