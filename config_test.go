package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bcampbell/cxscrape/fetch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	filename := filepath.Join(t.TempDir(), "cxscrape.cfg")
	require.NoError(t, os.WriteFile(filename, []byte(content), 0644))
	return filename
}

func TestDefaultConfig(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, []string{"letters", "diary"}, cfg.CategoryNames())

	letters := cfg.Category["letters"]
	assert.Equal(t, KindLetters, letters.Kind)
	assert.Equal(t, 2913, letters.FirstID)
	assert.Equal(t, 4355, letters.EndID)
	assert.Equal(t, filepath.Join(".", "shuxin"), cfg.OutputDir(letters))

	diary := cfg.Category["diary"]
	assert.Equal(t, KindDiary, diary.Kind)
	assert.Equal(t, 3, diary.TID)
	assert.Equal(t, 4395, diary.FirstID)
	assert.Equal(t, 4677, diary.EndID)
	assert.Equal(t, 1912, diary.StartYear)
	assert.Equal(t, "riji", diary.SubDir)

	assert.Equal(t, fetch.DefaultPolicy(), cfg.Fetch.Policy())
	assert.Contains(t, cfg.Fetch.Headers().Get("User-Agent"), "Firefox/128.0")
}

func TestPageURL(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "http://www.luxunmuseum.com.cn/cx/content.php?id=2913",
		cfg.Category["letters"].PageURL(2913))
	assert.Equal(t, "http://www.luxunmuseum.com.cn/cx/content.php?id=4395&tid=3",
		cfg.Category["diary"].PageURL(4395))
}

func TestPageURLNormalised(t *testing.T) {
	filename := writeConfig(t, `
[category "letters"]
kind = letters
url = HTTP://Example.COM:80/cx/content.php
firstid = 1
endid = 2
`)
	cfg, err := LoadConfig(filename)
	require.NoError(t, err)
	assert.Equal(t, "http://example.com/cx/content.php?id=1", cfg.Category["letters"].PageURL(1))
}

func TestLoadConfigFile(t *testing.T) {
	filename := writeConfig(t, `
[fetch]
useragent = "cxscrape/1.0 (test; bot)"
header = Accept-Language: zh-CN
header = Referer: http://example.com/
attempts = 5
maxdelay = 100ms
timeout = 2s
politedelay = 1s

[output]
dir = /tmp/out
archivedir = /tmp/warc

[category "diary"]
kind = diary
url = http://example.com/cx/content.php
tid = 3
firstid = 10
endid = 20
startyear = 1920

[category "letters"]
kind = letters
url = http://example.com/cx/content.php
firstid = 1
endid = 10
`)
	cfg, err := LoadConfig(filename)
	require.NoError(t, err)

	assert.Equal(t, []string{"letters", "diary"}, cfg.CategoryNames())
	assert.Equal(t, fetch.Policy{Attempts: 5, MaxDelay: 100 * time.Millisecond, Timeout: 2 * time.Second}, cfg.Fetch.Policy())

	h := cfg.Fetch.Headers()
	assert.Equal(t, "cxscrape/1.0 (test; bot)", h.Get("User-Agent"))
	assert.Equal(t, "zh-CN", h.Get("Accept-Language"))
	assert.Equal(t, "http://example.com/", h.Get("Referer"))

	co := cfg.Fetch.ClientOptions("http://example.com/")
	assert.Equal(t, 2*time.Second, co.Timeout)
	assert.Equal(t, time.Second, co.PerHostDelay)

	assert.Equal(t, "/tmp/warc", cfg.Output.ArchiveDir)
	// subdir defaults to the category name
	assert.Equal(t, filepath.Join("/tmp/out", "letters"), cfg.OutputDir(cfg.Category["letters"]))
	assert.Equal(t, 1920, cfg.Category["diary"].StartYear)
}

func TestLoadConfigErrors(t *testing.T) {
	tests := map[string]string{
		"no categories": `
[fetch]
attempts = 2
`,
		"bad kind": `
[category "x"]
kind = poems
url = http://example.com/
`,
		"missing url": `
[category "x"]
kind = letters
`,
		"bad range": `
[category "x"]
kind = letters
url = http://example.com/
firstid = 10
endid = 5
`,
		"bad duration": `
[fetch]
maxdelay = soon
[category "x"]
kind = letters
url = http://example.com/
`,
		"bad header": `
[fetch]
header = nocolon
[category "x"]
kind = letters
url = http://example.com/
`,
		"unknown variable": `
[category "x"]
kind = letters
url = http://example.com/
colour = blue
`,
	}

	for name, content := range tests {
		_, err := LoadConfig(writeConfig(t, content))
		assert.Error(t, err, name)
	}

	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.cfg"))
	assert.Error(t, err)
}
