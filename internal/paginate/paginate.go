// Package paginate slices ordered listings into fixed size pages.
package paginate

import (
	"strconv"
	"strings"
)

// DefaultSize is the page size used by every listing unless configured otherwise.
const DefaultSize = 10

// Page is one page of an ordered listing.
//
// An empty listing still has one (empty) page: NumPages is 1 and Count is 0.
// NextNumber and PreviousNumber are 0 when there is no such page.
type Page[T any] struct {
	Items          []T  `json:"items"`
	Number         int  `json:"number"`
	NumPages       int  `json:"num_pages"`
	Count          int  `json:"count"`
	Size           int  `json:"size"`
	HasNext        bool `json:"has_next"`
	HasPrevious    bool `json:"has_previous"`
	NextNumber     int  `json:"next_number,omitempty"`
	PreviousNumber int  `json:"previous_number,omitempty"`
}

// Paginate returns the page named by pageToken. The token is 1-indexed;
// empty or non-numeric tokens and numbers below 1 give the first page, numbers
// past the end give the last page.
func Paginate[T any](items []T, pageToken string, size int) Page[T] {
	if size <= 0 {
		size = DefaultSize
	}
	count := len(items)
	numPages := (count + size - 1) / size
	if numPages == 0 {
		numPages = 1
	}

	number := ParseNumber(pageToken)
	if number > numPages {
		number = numPages
	}

	start := (number - 1) * size
	end := start + size
	if end > count {
		end = count
	}

	page := Page[T]{
		Items:       make([]T, 0, end-start),
		Number:      number,
		NumPages:    numPages,
		Count:       count,
		Size:        size,
		HasNext:     number < numPages,
		HasPrevious: number > 1,
	}
	page.Items = append(page.Items, items[start:end]...)
	if page.HasNext {
		page.NextNumber = number + 1
	}
	if page.HasPrevious {
		page.PreviousNumber = number - 1
	}
	return page
}

// ParseNumber reads a page token, falling back to 1 for anything that is not
// a positive integer.
func ParseNumber(token string) int {
	n, err := strconv.Atoi(strings.TrimSpace(token))
	if err != nil || n < 1 {
		return 1
	}
	return n
}
