package blog

import (
	"strconv"
	"strings"
)

// Page is a window over an ordered result set. It only carries offsets, the
// caller runs the query for the window it needs.
type Page struct {
	Number   int
	NumPages int
	Count    int
	PerPage  int
	Offset   int
	Limit    int
}

// Paginate picks the window for the raw page parameter. Missing, malformed
// and non-positive values select page 1. A page past the end is empty.
func Paginate(count, perPage int, rawPage string) Page {
	if perPage < 1 {
		perPage = 1
	}
	if count < 0 {
		count = 0
	}

	numPages := (count + perPage - 1) / perPage
	if numPages == 0 {
		numPages = 1
	}

	number, err := strconv.Atoi(strings.TrimSpace(rawPage))
	if err != nil || number < 1 {
		number = 1
	}

	p := Page{
		Number:   number,
		NumPages: numPages,
		Count:    count,
		PerPage:  perPage,
	}
	if number > numPages {
		return p
	}

	p.Offset = (number - 1) * perPage
	p.Limit = min(perPage, count-p.Offset)
	return p
}

func (p Page) Empty() bool { return p.Limit == 0 }

func (p Page) HasPrevious() bool { return p.Number > 1 }

func (p Page) HasNext() bool { return p.Number < p.NumPages }

// PreviousNumber points at the last real page when Number is past the end.
func (p Page) PreviousNumber() int { return min(p.Number-1, p.NumPages) }

func (p Page) NextNumber() int { return p.Number + 1 }

// StartIndex is the 1-based position of the first item on the page, 0 when
// the page is empty.
func (p Page) StartIndex() int {
	if p.Empty() {
		return 0
	}
	return p.Offset + 1
}

func (p Page) EndIndex() int {
	return p.Offset + p.Limit
}

// Slice applies the page window to an in-memory ordered sequence.
func Slice[T any](seq []T, p Page) []T {
	if p.Empty() || p.Offset >= len(seq) {
		return nil
	}
	end := min(p.Offset+p.Limit, len(seq))
	return seq[p.Offset:end]
}
