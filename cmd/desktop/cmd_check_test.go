package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ndi_desktop/internal/catalog"
)

func writeDocs(t *testing.T, dir string, keys []string) {
	t.Helper()
	for _, key := range keys {
		doc := `{"pending": {"title": "t", "description": "d"}}`
		require.NoError(t, os.WriteFile(filepath.Join(dir, key), []byte(doc), 0o644))
	}
}

func TestCheckShippedDialogs(t *testing.T) {
	report := runCheck(context.Background(), catalog.Default(), filepath.Join("..", "..", "assets", "dialogs"))
	assert.True(t, report.Valid, report.Errors)
	assert.Empty(t, report.Warnings)
	assert.Empty(t, report.Unreferenced)
}

func TestCheckReportsMissingAndExtraDocuments(t *testing.T) {
	cat := catalog.Default()
	dir := t.TempDir()
	keys := cat.ContentKeys()
	writeDocs(t, dir, keys[1:])
	writeDocs(t, dir, []string{"stale.json"})

	report := runCheck(context.Background(), cat, dir)
	assert.False(t, report.Valid)
	require.Len(t, report.Errors, 1)
	assert.Contains(t, report.Errors[0], keys[0])
	assert.Equal(t, []string{"stale.json"}, report.Unreferenced)
}

func TestCheckMissingDirectory(t *testing.T) {
	report := runCheck(context.Background(), catalog.Default(), filepath.Join(t.TempDir(), "nope"))
	assert.False(t, report.Valid)
	assert.NotEmpty(t, report.Errors)
}
