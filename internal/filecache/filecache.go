// Package filecache builds and queries a filename-to-absolute-path index
// over a developer-chosen scope directory, so that links written with
// only a basename (an Obsidian habit) can still be resolved.
package filecache

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sahilm/fuzzy"
)

// BuildResult summarizes a completed BuildCache call.
type BuildResult struct {
	TotalFiles      int
	Duplicates      []string
	ScopeFolder     string
	RealScopeFolder string
}

// ResolveReason explains why ResolveFile could not return a single match.
type ResolveReason string

const (
	ReasonNotFound       ResolveReason = "not_found"
	ReasonDuplicate      ResolveReason = "duplicate"
	ReasonDuplicateFuzzy ResolveReason = "duplicate_fuzzy"
)

// ResolveResult is the outcome of a FileCache.ResolveFile lookup.
type ResolveResult struct {
	Found             bool
	Path              string
	FuzzyMatch        bool
	CorrectedFilename string
	Message           string
	Reason            ResolveReason
}

// defaultIgnorePatterns mirrors the module's vault scanner: version control
// and Obsidian's own config directory are never candidate link targets.
var defaultIgnorePatterns = []string{".git", ".obsidian"}

// Cache is a filename index over a single scope directory, built once per
// run and read-only thereafter.
type Cache struct {
	scopeFolder     string
	realScopeFolder string
	ignorePatterns  []string

	byBasename    map[string]string   // basename -> absolute path, first-wins
	duplicates    map[string][]string // basename -> every absolute path sharing it
	basenamesStem []string            // basename-minus-extension index, for fuzzy matching
	stemToBase    map[string]string
}

// Option configures a Cache at construction time.
type Option func(*Cache)

// WithIgnorePatterns adds directory names to skip entirely, on top of the
// default ignore list (.git, .obsidian). A name matches at any depth below
// the scope root.
func WithIgnorePatterns(patterns ...string) Option {
	return func(c *Cache) { c.ignorePatterns = append(c.ignorePatterns, patterns...) }
}

// New returns an empty, unbuilt Cache.
func New(opts ...Option) *Cache {
	c := &Cache{
		byBasename:     make(map[string]string),
		duplicates:     make(map[string][]string),
		stemToBase:     make(map[string]string),
		ignorePatterns: append([]string{}, defaultIgnorePatterns...),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Cache) shouldIgnoreDir(name string) bool {
	for _, p := range c.ignorePatterns {
		if name == p {
			return true
		}
	}
	return false
}

// BuildCache recursively walks scopeFolder, indexing every regular file by
// basename. Inaccessible subdirectories are logged and skipped, never
// fatal. Only the scope root is resolved through symlinks (realpath'd
// once); below it the walk does not descend into symlinked directories, so
// a symlink cycle cannot loop, and a symlink entry is indexed under its
// own name like a file.
func (c *Cache) BuildCache(scopeFolder string) (*BuildResult, error) {
	real, err := filepath.EvalSymlinks(scopeFolder)
	if err != nil {
		return nil, fmt.Errorf("resolving scope folder %s: %w", scopeFolder, err)
	}
	c.scopeFolder = scopeFolder
	c.realScopeFolder = real

	total := 0
	err = filepath.WalkDir(real, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			// Inaccessible subdirectory or file: log-and-skip, never fatal.
			log.Printf("filecache: skipping %s: %v", path, walkErr)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if path != real && c.shouldIgnoreDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil
		}
		base := filepath.Base(abs)
		if existing, ok := c.byBasename[base]; ok {
			if existing != abs {
				c.duplicates[base] = append(c.duplicates[base], abs)
			}
		} else {
			c.byBasename[base] = abs
			stem := strings.TrimSuffix(base, filepath.Ext(base))
			c.basenamesStem = append(c.basenamesStem, stem)
			c.stemToBase[stem] = base
		}
		total++
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking scope folder %s: %w", scopeFolder, err)
	}

	dupNames := make([]string, 0, len(c.duplicates))
	for base := range c.duplicates {
		dupNames = append(dupNames, base)
	}
	sort.Strings(dupNames)

	return &BuildResult{
		TotalFiles:      total,
		Duplicates:      dupNames,
		ScopeFolder:     scopeFolder,
		RealScopeFolder: real,
	}, nil
}

// ResolveFile looks up filename: an exact basename match first (failing
// with ReasonDuplicate if the basename is ambiguous), then a
// case-insensitive fuzzy match on basename-minus-extension.
func (c *Cache) ResolveFile(filename string) ResolveResult {
	base := filepath.Base(filename)

	if _, dup := c.duplicates[base]; dup {
		return ResolveResult{
			Found:   false,
			Reason:  ReasonDuplicate,
			Message: fmt.Sprintf("basename %q is ambiguous in scope %s", base, c.scopeFolder),
		}
	}
	if path, ok := c.byBasename[base]; ok {
		return ResolveResult{Found: true, Path: path}
	}

	stem := strings.TrimSuffix(base, filepath.Ext(base))
	matches := fuzzy.Find(strings.ToLower(stem), lowerAll(c.basenamesStem))
	if len(matches) == 0 {
		return ResolveResult{
			Found:   false,
			Reason:  ReasonNotFound,
			Message: fmt.Sprintf("%q not found in scope %s", filename, c.scopeFolder),
		}
	}
	if len(matches) > 1 && matches[0].Score == matches[1].Score {
		return ResolveResult{
			Found:   false,
			Reason:  ReasonDuplicateFuzzy,
			Message: fmt.Sprintf("%q matches more than one file by fuzzy basename in scope %s", filename, c.scopeFolder),
		}
	}
	matchedStem := c.basenamesStem[matches[0].Index]
	matchedBase := c.stemToBase[matchedStem]
	return ResolveResult{
		Found:             true,
		Path:              c.byBasename[matchedBase],
		FuzzyMatch:        true,
		CorrectedFilename: matchedBase,
		Message:           fmt.Sprintf("resolved %q to %q by fuzzy basename match", filename, matchedBase),
	}
}

func lowerAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(s)
	}
	return out
}

// ScopeFolder returns the folder BuildCache was called with.
func (c *Cache) ScopeFolder() string { return c.scopeFolder }

// RealScopeFolder returns the symlink-resolved scope folder.
func (c *Cache) RealScopeFolder() string { return c.realScopeFolder }
