package extract

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/andybalholm/cascadia"
	"github.com/bcampbell/htmlutil"
	"golang.org/x/net/html"
)

var (
	letterTitleSel = cascadia.MustCompile("p[align]")
	letterBodySel  = cascadia.MustCompile("blockquote")
)

// eg "19320115致许广平"
var letterTitlePat = regexp.MustCompile(`^(\d{4})(\d{2})(\d{2})致(.+)$`)

// LetterTitle reformats a raw letter title from "YYYYMMDD致NAME" into
// "YYYY.MM.DD_NAME". Titles in any other form come back verbatim (minus
// whitespace), with Parsed unset.
func LetterTitle(raw string) Title {
	s := squash(raw)
	m := letterTitlePat.FindStringSubmatch(s)
	if m == nil {
		return Title{Text: s}
	}
	return Title{Text: fmt.Sprintf("%s.%s.%s_%s", m[1], m[2], m[3], m[4]), Parsed: true}
}

// Letter extracts a letter record from a parsed page.
// The title comes from the first centred paragraph, the body from the
// blockquotes, one line per quote.
func Letter(id int, root *html.Node) (*Record, error) {
	var titleNode *html.Node
	for _, p := range letterTitleSel.MatchAll(root) {
		if strings.EqualFold(GetAttr(p, "align"), "center") {
			titleNode = p
			break
		}
	}
	if titleNode == nil {
		return nil, ErrNoTitle
	}
	title := LetterTitle(htmlutil.TextContent(titleNode))
	if title.Text == "" {
		return nil, ErrNoTitle
	}

	quotes := letterBodySel.MatchAll(root)
	paras := make([]string, 0, len(quotes))
	for _, q := range quotes {
		txt := strings.Join(textChunks(q), "")
		paras = append(paras, strings.ReplaceAll(txt, "　", ""))
	}

	return &Record{
		ID:    id,
		Title: title,
		Body:  strings.Join(paras, "\n"),
	}, nil
}
