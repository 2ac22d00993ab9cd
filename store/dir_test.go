package store

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bcampbell/cxscrape/extract"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitiseFilename(t *testing.T) {
	tests := []struct{ in, out string }{
		{"1932.01.15_许广平", "1932.01.15_许广平"},
		{`a\b/c:d*e?f"g<h>i|j`, "a_b_c_d_e_f_g_h_i_j"},
		{`<<>>`, "____"},
		{`"quoted"`, "_quoted_"},
		{"1912.12", "1912.12"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.out, SanitiseFilename(tt.in), "SanitiseFilename(%q)", tt.in)
	}
}

func TestSanitiseFilenameRemovesAllUnsafe(t *testing.T) {
	unsafe := `\/:*?"<>|`
	got := SanitiseFilename("x" + unsafe + "y")
	assert.False(t, strings.ContainsAny(got, unsafe))
	assert.Equal(t, len(unsafe)+2, len(got))
}

func TestSave(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out", "shuxin")

	full, err := Save(dir, "1932.01.15_许广平", "乖姑：\n今天已到上海")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "1932.01.15_许广平.txt"), full)

	data, err := os.ReadFile(full)
	require.NoError(t, err)
	assert.Equal(t, "乖姑：\n今天已到上海", string(data))
}

func TestSaveOverwrites(t *testing.T) {
	dir := t.TempDir()

	_, err := Save(dir, "1912.05", "a much longer first version of the entry")
	require.NoError(t, err)
	full, err := Save(dir, "1912.05", "short")
	require.NoError(t, err)

	data, err := os.ReadFile(full)
	require.NoError(t, err)
	assert.Equal(t, "short", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestSaveUnsafeTitle(t *testing.T) {
	dir := t.TempDir()
	full, err := Save(dir, `致某君/残简?`, "body")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "致某君_残简_.txt"), full)
	assert.FileExists(t, full)
}

func TestSaveBadDir(t *testing.T) {
	// a regular file where the directory should be
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	_, err := Save(filepath.Join(blocker, "sub"), "1912.05", "body")
	assert.Error(t, err)
}

func TestDirStash(t *testing.T) {
	d := &Dir{Path: t.TempDir()}
	rec := &extract.Record{
		ID:    4395,
		Title: extract.Title{Text: "1912.12", Parsed: true},
		Body:  "一日　晴。",
	}
	full, err := d.Stash(rec)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(d.Path, "1912.12.txt"), full)

	data, err := os.ReadFile(full)
	require.NoError(t, err)
	assert.Equal(t, "一日　晴。", string(data))
}
