// Package extract pulls letter and diary records out of archive pages.
package extract

import (
	"errors"
	"strings"
)

var (
	ErrNoTitle   = errors.New("no title found")
	ErrNoContent = errors.New("no content block found")
)

// Title is a derived record title.
// Parsed is false if the source text didn't match the expected form and was
// passed through verbatim.
type Title struct {
	Text   string
	Parsed bool
}

func (t Title) String() string {
	return t.Text
}

// Record is a single extracted letter or diary entry.
type Record struct {
	ID    int
	Title Title
	Body  string
}

// squash removes all whitespace from s.
func squash(s string) string {
	return strings.Join(strings.Fields(s), "")
}
