// Package store writes extracted records out as plain text files.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bcampbell/cxscrape/extract"
)

// characters which can't appear in filenames on at least one common filesystem
var unsafeChars = strings.NewReplacer(
	`\`, "_",
	"/", "_",
	":", "_",
	"*", "_",
	"?", "_",
	`"`, "_",
	"<", "_",
	">", "_",
	"|", "_",
)

// SanitiseFilename replaces each filesystem-unsafe character in name with an underscore.
func SanitiseFilename(name string) string {
	return unsafeChars.Replace(name)
}

// Save writes content to dir/<filename>.txt, creating dir if needed and
// replacing any existing file. Returns the path written.
func Save(dir, filename, content string) (string, error) {
	err := os.MkdirAll(dir, 0755)
	if err != nil {
		return "", err
	}
	full := filepath.Join(dir, SanitiseFilename(filename)+".txt")
	err = os.WriteFile(full, []byte(content), 0644)
	if err != nil {
		return "", err
	}
	return full, nil
}

// Dir is a directory of record files, one per title.
type Dir struct {
	Path string
}

// Stash writes a record into the directory, named after its title.
func (d *Dir) Stash(rec *extract.Record) (string, error) {
	full, err := Save(d.Path, rec.Title.Text, rec.Body)
	if err != nil {
		return "", fmt.Errorf("stash %d (%s): %w", rec.ID, rec.Title, err)
	}
	return full, nil
}
