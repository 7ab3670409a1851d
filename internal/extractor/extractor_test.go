package extractor

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eoinhurrell/citelink/internal/parser"
	"github.com/eoinhurrell/citelink/internal/parsedcache"
	"github.com/eoinhurrell/citelink/internal/validator"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestExtractContent_S1_HeaderSectionExtraction(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.md"), "[Intro](./b.md#Introduction)\n")
	writeFile(t, filepath.Join(dir, "b.md"), "## Introduction\n\nbody\n\n## Next\n")

	p := parser.New()
	pc := parsedcache.New(p)
	v := validator.New(pc, nil)
	_, links, err := v.ValidateFile(context.Background(), filepath.Join(dir, "a.md"))
	require.NoError(t, err)

	ex := New(pc)
	result, err := ex.ExtractContent(context.Background(), links, Flags{})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Stats.UniqueContent)
	assert.Equal(t, 0, result.Stats.DuplicateContentDetected)
	require.Len(t, result.ExtractedContentBlocks, 1)

	for _, block := range result.ExtractedContentBlocks {
		assert.Equal(t, "## Introduction\n\nbody\n", block.Content)
	}
}

func TestExtractContent_S3_DuplicateContentDeduplication(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.md"),
		"[One](./b.md#Intro)\n[Two](./b.md#Intro)\n[Three](./b.md#Intro)\n")
	writeFile(t, filepath.Join(dir, "b.md"), "## Intro\n\nbody\n")

	p := parser.New()
	pc := parsedcache.New(p)
	v := validator.New(pc, nil)
	_, links, err := v.ValidateFile(context.Background(), filepath.Join(dir, "a.md"))
	require.NoError(t, err)
	require.Len(t, links, 3)

	ex := New(pc)
	result, err := ex.ExtractContent(context.Background(), links, Flags{})
	require.NoError(t, err)
	assert.Equal(t, 3, result.Stats.TotalLinks)
	assert.Equal(t, 1, result.Stats.UniqueContent)
	assert.Equal(t, 2, result.Stats.DuplicateContentDetected)
	require.Len(t, result.ExtractedContentBlocks, 1)
	for _, block := range result.ExtractedContentBlocks {
		assert.Len(t, block.SourceLinks, 3)
	}
}

func TestExtractContent_FullFileRequiresFlag(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.md"), "[B](./b.md)\n")
	writeFile(t, filepath.Join(dir, "b.md"), "content\n")

	p := parser.New()
	pc := parsedcache.New(p)
	v := validator.New(pc, nil)
	_, links, err := v.ValidateFile(context.Background(), filepath.Join(dir, "a.md"))
	require.NoError(t, err)

	ex := New(pc)
	result, err := ex.ExtractContent(context.Background(), links, Flags{FullFiles: false})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Stats.Skipped)
	require.Len(t, result.OutgoingLinksReport.ProcessedLinks, 1)
	assert.Equal(t, "skipped", result.OutgoingLinksReport.ProcessedLinks[0].Status)

	result2, err := ex.ExtractContent(context.Background(), links, Flags{FullFiles: true})
	require.NoError(t, err)
	assert.Equal(t, 1, result2.Stats.UniqueContent)
}

func TestExtractContent_ForceExtractOverridesFullFilesGate(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.md"), "[B](./b.md) %%force-extract%%\n")
	writeFile(t, filepath.Join(dir, "b.md"), "content\n")

	p := parser.New()
	pc := parsedcache.New(p)
	v := validator.New(pc, nil)
	_, links, err := v.ValidateFile(context.Background(), filepath.Join(dir, "a.md"))
	require.NoError(t, err)

	ex := New(pc)
	result, err := ex.ExtractContent(context.Background(), links, Flags{FullFiles: false})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Stats.UniqueContent)
}

func TestExtractContent_FailedValidationIsSkippedNotFailed(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.md"), "[X](./b.md#NoSuchHeading)\n")
	writeFile(t, filepath.Join(dir, "b.md"), "## Real\n\nbody\n")

	p := parser.New()
	pc := parsedcache.New(p)
	v := validator.New(pc, nil)
	_, links, err := v.ValidateFile(context.Background(), filepath.Join(dir, "a.md"))
	require.NoError(t, err)

	ex := New(pc)
	result, err := ex.ExtractContent(context.Background(), links, Flags{})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Stats.Skipped)
	assert.Contains(t, result.OutgoingLinksReport.ProcessedLinks[0].Reason, "Link failed validation")
}

func TestExtractContent_InternalLinksAreDroppedOutright(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.md"), "## Heading\n\nSome text. ^my-ref\n")

	p := parser.New()
	pc := parsedcache.New(p)
	v := validator.New(pc, nil)
	_, links, err := v.ValidateFile(context.Background(), filepath.Join(dir, "a.md"))
	require.NoError(t, err)

	ex := New(pc)
	result, err := ex.ExtractContent(context.Background(), links, Flags{})
	require.NoError(t, err)
	assert.Equal(t, 0, result.Stats.TotalLinks)
	assert.Empty(t, result.OutgoingLinksReport.ProcessedLinks)
}
