// Package parsedcache memoizes parsed documents by absolute file path.
// A second concurrent request for a path already being parsed waits on
// the first instead of re-reading and re-parsing the file, collapsing
// duplicate work the way the module's single in-flight-parse guarantee
// requires under real goroutine concurrency.
package parsedcache

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/eoinhurrell/citelink/internal/parser"
)

// Cache memoizes Document results per file path. The zero value is not
// usable; construct with New.
type Cache struct {
	p  *parser.Parser
	sf singleflight.Group

	mu   sync.RWMutex
	done map[string]*entry
}

type entry struct {
	doc *parser.Document
	err error
}

// New returns an empty Cache backed by p.
func New(p *parser.Parser) *Cache {
	return &Cache{p: p, done: make(map[string]*entry)}
}

// ResolveParsedFile returns the cached Document for path, parsing it if
// this is the first request for that path. Concurrent callers requesting
// the same path during an in-flight parse share the single parse's result
// rather than each triggering their own. The returned error is never
// retried from cache: a failed parse is remembered so repeated requests
// for a permanently unreadable file don't keep re-reading it.
func (c *Cache) ResolveParsedFile(ctx context.Context, path string) (*parser.Document, error) {
	if e := c.lookup(path); e != nil {
		return e.doc, e.err
	}

	v, err, _ := c.sf.Do(path, func() (interface{}, error) {
		if e := c.lookup(path); e != nil {
			return e.doc, e.err
		}
		doc, parseErr := c.p.ParseFile(path)
		c.store(path, doc, parseErr)
		return doc, parseErr
	})

	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if v == nil {
		return nil, err
	}
	return v.(*parser.Document), err
}

// Invalidate drops path's cached result, so the next ResolveParsedFile
// call re-reads and re-parses it. Used by watch mode after a file change.
func (c *Cache) Invalidate(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.done, path)
}

// Reset drops every cached result.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.done = make(map[string]*entry)
}

func (c *Cache) lookup(path string) *entry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.done[path]
}

func (c *Cache) store(path string, doc *parser.Document, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.done[path] = &entry{doc: doc, err: err}
}
