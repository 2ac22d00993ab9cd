package extract

import (
	"fmt"
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

var diaryContentSel = cascadia.MustCompile("div.ctcontent")

// the diary labels entries by (lunar) month name only
var monthNums = map[string]string{
	"正月":  "01",
	"一月":  "01",
	"二月":  "02",
	"三月":  "03",
	"四月":  "04",
	"五月":  "05",
	"六月":  "06",
	"七月":  "07",
	"八月":  "08",
	"九月":  "09",
	"十月":  "10",
	"十一月": "11",
	"十二月": "12",
}

func isFirstMonth(label string) bool { return label == "正月" || label == "一月" }
func isLastMonth(label string) bool  { return label == "十二月" }

// DiaryPage is the raw content of a diary page, before a year is assigned.
type DiaryPage struct {
	Label string   // month label, whitespace removed
	Lines []string // body lines, in page order
}

// Diary extracts the month label and body lines from a parsed diary page.
func Diary(root *html.Node) (*DiaryPage, error) {
	div := diaryContentSel.MatchFirst(root)
	if div == nil {
		return nil, ErrNoContent
	}
	lines := textLines(div)
	if len(lines) == 0 {
		return nil, fmt.Errorf("%w (empty)", ErrNoContent)
	}
	return &DiaryPage{
		Label: squash(lines[0]),
		Lines: lines[1:],
	}, nil
}

// Record builds the diary record for this page, dated in the given year.
func (page *DiaryPage) Record(id int, year int) *Record {
	return &Record{
		ID:    id,
		Title: DiaryTitle(year, page.Label),
		Body:  strings.Join(page.Lines, "\n"),
	}
}

// DiaryTitle gives "YYYY.MM" for a month label.
// Unknown labels are used in place of the month number, with Parsed unset.
func DiaryTitle(year int, label string) Title {
	num, ok := monthNums[label]
	if !ok {
		return Title{Text: fmt.Sprintf("%d.%s", year, label)}
	}
	return Title{Text: fmt.Sprintf("%d.%s", year, num), Parsed: true}
}

// YearState tracks the calendar year across a run of diary entries.
// The source only gives month names, so the year is bumped whenever a
// first-month entry follows a twelfth-month one.
type YearState struct {
	Year         int
	SeenDecember bool
}

// NewYearState starts tracking at the given year.
func NewYearState(year int) YearState {
	return YearState{Year: year}
}

// Advance returns the state after an entry with the given month label.
// Entries must be fed in ascending ID order.
func (s YearState) Advance(label string) YearState {
	if isFirstMonth(label) && s.SeenDecember {
		s.Year++
		s.SeenDecember = false
	}
	if isLastMonth(label) {
		s.SeenDecember = true
	}
	return s
}

// YearsFor returns the year assigned to each label in sequence, starting at start.
func YearsFor(start int, labels []string) []int {
	years := make([]int, len(labels))
	state := NewYearState(start)
	for i, label := range labels {
		state = state.Advance(label)
		years[i] = state.Year
	}
	return years
}
