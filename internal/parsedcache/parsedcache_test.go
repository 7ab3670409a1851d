package parsedcache

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eoinhurrell/citelink/internal/parser"
)

func TestResolveParsedFile_CachesAcrossCalls(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.md")
	require.NoError(t, os.WriteFile(path, []byte("# Title\n"), 0o644))

	c := New(parser.New())
	doc1, err := c.ResolveParsedFile(context.Background(), path)
	require.NoError(t, err)
	doc2, err := c.ResolveParsedFile(context.Background(), path)
	require.NoError(t, err)
	assert.Same(t, doc1, doc2)
}

func TestResolveParsedFile_ConcurrentCallsShareOneParse(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.md")
	require.NoError(t, os.WriteFile(path, []byte("# Title\n"), 0o644))

	c := New(parser.New())
	var wg sync.WaitGroup
	docs := make([]*parser.Document, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			doc, err := c.ResolveParsedFile(context.Background(), path)
			assert.NoError(t, err)
			docs[idx] = doc
		}(i)
	}
	wg.Wait()
	for i := 1; i < 16; i++ {
		assert.Same(t, docs[0], docs[i])
	}
}

func TestResolveParsedFile_MissingFileErrorIsRemembered(t *testing.T) {
	c := New(parser.New())
	_, err1 := c.ResolveParsedFile(context.Background(), "/nonexistent/path.md")
	require.Error(t, err1)
	_, err2 := c.ResolveParsedFile(context.Background(), "/nonexistent/path.md")
	require.Error(t, err2)
}

func TestInvalidate_ForcesReparse(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.md")
	require.NoError(t, os.WriteFile(path, []byte("# Title\n"), 0o644))

	c := New(parser.New())
	doc1, err := c.ResolveParsedFile(context.Background(), path)
	require.NoError(t, err)

	c.Invalidate(path)
	require.NoError(t, os.WriteFile(path, []byte("# Changed\n"), 0o644))

	doc2, err := c.ResolveParsedFile(context.Background(), path)
	require.NoError(t, err)
	assert.NotSame(t, doc1, doc2)
	assert.Equal(t, "Changed", doc2.Headings()[0].Text)
}
