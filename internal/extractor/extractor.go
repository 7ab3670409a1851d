// Package extractor turns a set of validated links into retrieved
// content, deduplicated by a SHA-256 content hash and reported with
// per-run stats.
package extractor

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/eoinhurrell/citelink/internal/errors"
	"github.com/eoinhurrell/citelink/internal/linkmodel"
	"github.com/eoinhurrell/citelink/internal/parser"
	"github.com/eoinhurrell/citelink/internal/parsedcache"
	"github.com/eoinhurrell/citelink/internal/progress"
)

// SourceLinkRef identifies one occurrence of a link that resolved to a
// ContentBlock: the written link text and the source line it appeared on.
type SourceLinkRef struct {
	RawSourceLink string `json:"rawSourceLink"`
	SourceLine    int    `json:"sourceLine"`
}

// ContentBlock is one deduplicated piece of extracted content.
type ContentBlock struct {
	Content       string          `json:"content"`
	ContentLength int             `json:"contentLength"`
	SourceLinks   []SourceLinkRef `json:"sourceLinks,omitempty"`
}

// ProcessedLinkEntry records the outcome for one link, in enriched-link
// order.
type ProcessedLinkEntry struct {
	Status    string `json:"status"` // "extracted", "skipped", or "failed"
	ContentID string `json:"contentId,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

// OutgoingLinksReport wraps the per-link processing outcomes under the
// outgoingLinksReport key the contract specifies, rather than emitting
// processedLinks flat on Result.
type OutgoingLinksReport struct {
	ProcessedLinks []ProcessedLinkEntry `json:"processedLinks"`
}

// Stats summarizes one extraction run.
type Stats struct {
	TotalLinks               int     `json:"totalLinks"`
	UniqueContent            int     `json:"uniqueContent"`
	DuplicateContentDetected int     `json:"duplicateContentDetected"`
	TokensSaved              int     `json:"tokensSaved"`
	Skipped                  int     `json:"skipped"`
	Failed                   int     `json:"failed"`
	CompressionRatio         float64 `json:"compressionRatio"`
}

// Result is the OutgoingLinksExtractedContent structure.
type Result struct {
	RunID                       string                   `json:"runId"`
	TotalContentCharacterLength int                      `json:"_totalContentCharacterLength"`
	ExtractedContentBlocks      map[string]*ContentBlock `json:"extractedContentBlocks"`
	OutgoingLinksReport         OutgoingLinksReport      `json:"outgoingLinksReport"`
	Stats                       Stats                    `json:"stats"`
}

// Extractor resolves target content for eligible links.
type Extractor struct {
	parsed   *parsedcache.Cache
	chain    []Strategy
	reporter progress.Reporter
}

// New returns an Extractor backed by parsed, using the default strategy
// chain. Use WithChain to substitute a different ordering (e.g. in tests).
// Progress reporting defaults to Silent; use WithReporter to drive a
// terminal bar or JSON event stream across many links.
func New(parsed *parsedcache.Cache) *Extractor {
	return &Extractor{parsed: parsed, chain: DefaultChain, reporter: progress.NewSilent()}
}

// WithChain overrides the eligibility chain.
func (e *Extractor) WithChain(chain []Strategy) *Extractor {
	e.chain = chain
	return e
}

// WithReporter overrides the progress reporter driven by ExtractContent's
// per-link loop.
func (e *Extractor) WithReporter(reporter progress.Reporter) *Extractor {
	e.reporter = reporter
	return e
}

// ExtractContent runs the extraction pipeline over enrichedLinks: internal
// links are dropped outright, failed-validation links are skipped, the
// remaining links are evaluated against the eligibility chain, and
// eligible links have their target content retrieved, hashed, and
// deduplicated.
func (e *Extractor) ExtractContent(ctx context.Context, enrichedLinks []*linkmodel.Link, flags Flags) (*Result, error) {
	result := &Result{
		RunID:                  uuid.New().String(),
		ExtractedContentBlocks: make(map[string]*ContentBlock),
	}

	e.reporter.Start(len(enrichedLinks))
	defer e.reporter.Finish()

	for i, link := range enrichedLinks {
		e.reporter.Update(i+1, fmt.Sprintf("processing %s", link.FullMatch))
		if link.Scope == linkmodel.ScopeInternal {
			continue
		}
		result.Stats.TotalLinks++

		if link.Validation == nil || link.Validation.Status == linkmodel.StatusError {
			reason := "Link failed validation"
			if link.Validation != nil && link.Validation.Error != "" {
				reason = fmt.Sprintf("Link failed validation: %s", link.Validation.Error)
			}
			result.OutgoingLinksReport.ProcessedLinks = append(result.OutgoingLinksReport.ProcessedLinks, ProcessedLinkEntry{Status: "skipped", Reason: reason})
			result.Stats.Skipped++
			continue
		}

		decision := Evaluate(e.chain, link, flags)
		if !decision.Eligible {
			result.OutgoingLinksReport.ProcessedLinks = append(result.OutgoingLinksReport.ProcessedLinks, ProcessedLinkEntry{Status: "skipped", Reason: decision.Reason})
			result.Stats.Skipped++
			continue
		}

		content, failReason := e.retrieve(ctx, link)
		if failReason != "" {
			result.OutgoingLinksReport.ProcessedLinks = append(result.OutgoingLinksReport.ProcessedLinks, ProcessedLinkEntry{Status: "failed", Reason: failReason})
			result.Stats.Failed++
			continue
		}

		contentID := contentHash(content)
		sourceRef := SourceLinkRef{RawSourceLink: link.FullMatch, SourceLine: link.Line}
		if block, exists := result.ExtractedContentBlocks[contentID]; exists {
			result.Stats.DuplicateContentDetected++
			result.Stats.TokensSaved += len(content)
			block.SourceLinks = append(block.SourceLinks, sourceRef)
		} else {
			result.ExtractedContentBlocks[contentID] = &ContentBlock{
				Content:       content,
				ContentLength: len(content),
				SourceLinks:   []SourceLinkRef{sourceRef},
			}
			result.Stats.UniqueContent++
		}
		result.OutgoingLinksReport.ProcessedLinks = append(result.OutgoingLinksReport.ProcessedLinks, ProcessedLinkEntry{Status: "extracted", ContentID: contentID})
	}

	result.Stats.CompressionRatio = compressionRatio(result)
	result.TotalContentCharacterLength = blocksCharacterLength(result.ExtractedContentBlocks)
	return result, nil
}

// retrieve resolves link's target document and fetches the content for
// its anchor type, returning a non-empty failReason on any fatal error.
func (e *Extractor) retrieve(ctx context.Context, link *linkmodel.Link) (content string, failReason string) {
	doc, err := e.parsed.ResolveParsedFile(ctx, link.Target.Path.Absolute)
	if err != nil {
		ue := errors.NewExtractionFailureError(link.Target.Path.Absolute, link.FullMatch, err.Error())
		return "", ue.Err.Error()
	}

	switch link.AnchorType {
	case linkmodel.AnchorTypeHeader:
		heading, decErr := url.QueryUnescape(strings.ReplaceAll(link.Target.Anchor, "%20", " "))
		if decErr != nil {
			heading = link.Target.Anchor
		}
		section, ok := doc.ExtractSection(heading)
		if !ok {
			ue := errors.NewAnchorNotFoundError(doc.FilePath, heading, "Verify the heading still exists in the target file.")
			return "", ue.Err.Error()
		}
		return section, ""
	case linkmodel.AnchorTypeBlock:
		id := strings.TrimPrefix(link.Target.Anchor, "^")
		block, ok := doc.ExtractBlock(id)
		if !ok {
			ue := errors.NewAnchorNotFoundError(doc.FilePath, "^"+id, "Verify the block reference still exists in the target file.")
			return "", ue.Err.Error()
		}
		return block, ""
	default:
		return extractFullContent(doc), ""
	}
}

func extractFullContent(doc *parser.Document) string {
	return doc.ExtractFullContent()
}

// contentHash returns the first 16 hex characters of the SHA-256 digest
// of content, the module's contentId format.
func contentHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])[:16]
}

func compressionRatio(result *Result) float64 {
	if result.Stats.TotalLinks == 0 {
		return 0
	}
	extracted := result.Stats.UniqueContent + result.Stats.DuplicateContentDetected
	if extracted == 0 {
		return 0
	}
	return float64(result.Stats.UniqueContent) / float64(extracted)
}

func blocksCharacterLength(blocks map[string]*ContentBlock) int {
	b, err := json.Marshal(blocks)
	if err != nil {
		return 0
	}
	return len(b)
}
