package categories

import (
	"fmt"
	"sort"
	"strings"
)

// Tag is a category and how many times it appears across all rows.
type Tag struct {
	Name  string
	Count int
}

// CellError wraps the ParseError of a specific data row (0-based).
type CellError struct {
	Row int
	Err error
}

func (e *CellError) Error() string { return fmt.Sprintf("row %d: %v", e.Row, e.Err) }

func (e *CellError) Unwrap() error { return e.Err }

// Count parses every non-empty cell, flattens the lists and ranks tags by count
// descending, ties kept in first-seen order. The first unparsable cell aborts with a
// *CellError.
func Count(cells []string) ([]Tag, error) {
	counts := map[string]int{}
	var order []string
	for i, cell := range cells {
		if strings.TrimSpace(cell) == "" {
			continue
		}
		items, err := ParseList(cell)
		if err != nil {
			return nil, &CellError{Row: i, Err: err}
		}
		for _, it := range items {
			if _, seen := counts[it]; !seen {
				order = append(order, it)
			}
			counts[it]++
		}
	}
	tags := make([]Tag, len(order))
	for i, name := range order {
		tags[i] = Tag{Name: name, Count: counts[name]}
	}
	sort.SliceStable(tags, func(i, j int) bool { return tags[i].Count > tags[j].Count })
	return tags, nil
}

// Top returns at most n leading tags.
func Top(tags []Tag, n int) []Tag {
	if n >= 0 && len(tags) > n {
		return tags[:n]
	}
	return tags
}
