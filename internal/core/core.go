// Package core wires FileCache, the parser, ParsedFileCache, CitationValidator,
// and ContentExtractor into the two top-level entry points the CLI shell
// drives: Validate and Extract.
package core

import (
	"context"
	"fmt"

	"github.com/eoinhurrell/citelink/internal/extractor"
	"github.com/eoinhurrell/citelink/internal/filecache"
	"github.com/eoinhurrell/citelink/internal/linkmodel"
	"github.com/eoinhurrell/citelink/internal/parser"
	"github.com/eoinhurrell/citelink/internal/parsedcache"
	"github.com/eoinhurrell/citelink/internal/progress"
	"github.com/eoinhurrell/citelink/internal/validator"
)

// Options are the core-level options recognized by Validate and Extract.
// The CLI layer recognizes additional options (Format, Lines, Fix) that do
// not affect core semantics and are handled entirely in cmd/.
type Options struct {
	Scope     string
	FullFiles bool

	// Reporter drives per-link progress across ValidateFile/ExtractContent.
	// A nil Reporter defaults to progress.Silent.
	Reporter progress.Reporter
}

// ValidationResult is the enriched result of validating one source file.
type ValidationResult struct {
	Summary *validator.Summary
	Links   []*linkmodel.Link
}

// Pipeline bundles the shared caches so a long-lived process (watch mode)
// can reuse a single FileCache/ParsedFileCache across many runs.
type Pipeline struct {
	Files  *filecache.Cache
	Parsed *parsedcache.Cache
	v      *validator.Validator
	x      *extractor.Extractor
}

// New builds a Pipeline. If scope is non-empty, FileCache.BuildCache is run
// eagerly so basename-only link resolution works from the first Validate
// call.
func New(scope string) (*Pipeline, error) {
	p := parser.New()
	parsed := parsedcache.New(p)

	var files *filecache.Cache
	if scope != "" {
		files = filecache.New()
		if _, err := files.BuildCache(scope); err != nil {
			return nil, fmt.Errorf("building file cache for scope %q: %w", scope, err)
		}
	}

	return &Pipeline{
		Files:  files,
		Parsed: parsed,
		v:      validator.New(parsed, files),
		x:      extractor.New(parsed),
	}, nil
}

// reporterOrSilent returns r, defaulting to progress.NewSilent() if r is nil.
func reporterOrSilent(r progress.Reporter) progress.Reporter {
	if r == nil {
		return progress.NewSilent()
	}
	return r
}

// Validate runs CitationValidator.ValidateFile over source, driving
// opts.Reporter (or a silent no-op) across the per-link worker-pool
// dispatch.
func (p *Pipeline) Validate(ctx context.Context, source string, opts Options) (*ValidationResult, error) {
	p.v.WithReporter(reporterOrSilent(opts.Reporter))
	summary, links, err := p.v.ValidateFile(ctx, source)
	if err != nil {
		return nil, err
	}
	return &ValidationResult{Summary: summary, Links: links}, nil
}

// Extract validates source and then runs ContentExtractor over the
// resulting enriched links, driving opts.Reporter across both stages.
func (p *Pipeline) Extract(ctx context.Context, source string, opts Options) (*extractor.Result, error) {
	result, err := p.Validate(ctx, source, opts)
	if err != nil {
		return nil, err
	}
	p.x.WithReporter(reporterOrSilent(opts.Reporter))
	return p.x.ExtractContent(ctx, result.Links, extractor.Flags{FullFiles: opts.FullFiles})
}

// Validate is a convenience one-shot entry point that builds a fresh
// Pipeline for opts.Scope before validating source.
func Validate(ctx context.Context, source string, opts Options) (*ValidationResult, error) {
	p, err := New(opts.Scope)
	if err != nil {
		return nil, err
	}
	return p.Validate(ctx, source, opts)
}

// Extract is a convenience one-shot entry point mirroring Validate.
func Extract(ctx context.Context, source string, opts Options) (*extractor.Result, error) {
	p, err := New(opts.Scope)
	if err != nil {
		return nil, err
	}
	return p.Extract(ctx, source, opts)
}
