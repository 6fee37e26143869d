package views

import (
	"strconv"
	"strings"
)

const DefaultPageSize = 10

// Filter keeps the rows where any field contains query, ignoring case. An
// empty query keeps everything.
func Filter[T any](rows []T, query string, fields func(T) []string) []T {
	needle := strings.ToLower(strings.TrimSpace(query))
	if needle == "" {
		return cloneRows(rows)
	}
	out := make([]T, 0, len(rows))
	for _, row := range rows {
		for _, field := range fields(row) {
			if strings.Contains(strings.ToLower(field), needle) {
				out = append(out, row)
				break
			}
		}
	}
	return out
}

// Page is one page of an already filtered list. Numbers are 1-based.
type Page[T any] struct {
	Rows     []T
	Number   int
	Count    int
	Size     int
	Start    int
	End      int
	Total    int
	HasPrev  bool
	HasNext  bool
	PrevPage int
	NextPage int
}

// Paginate clamps number into range and slices out that page. Total is the
// filtered count, before paging.
func Paginate[T any](rows []T, number, size int) Page[T] {
	if size <= 0 {
		size = DefaultPageSize
	}
	total := len(rows)
	count := (total + size - 1) / size
	if count == 0 {
		count = 1
	}
	if number < 1 {
		number = 1
	}
	if number > count {
		number = count
	}

	start := (number - 1) * size
	end := start + size
	if end > total {
		end = total
	}

	p := Page[T]{
		Rows:     cloneRows(rows[start:end]),
		Number:   number,
		Count:    count,
		Size:     size,
		Total:    total,
		End:      end,
		HasPrev:  number > 1,
		HasNext:  number < count,
		PrevPage: number - 1,
		NextPage: number + 1,
	}
	if total > 0 {
		p.Start = start + 1
	}
	if p.PrevPage < 1 {
		p.PrevPage = 1
	}
	if p.NextPage > count {
		p.NextPage = count
	}
	return p
}

func (p Page[T]) Caption() string {
	return "Showing " + strconv.Itoa(p.Start) + " to " + strconv.Itoa(p.End) + " of " + strconv.Itoa(p.Total)
}

// Pages returns every page in order, for exports and tests.
func Pages[T any](rows []T, size int) []Page[T] {
	first := Paginate(rows, 1, size)
	out := []Page[T]{first}
	for n := 2; n <= first.Count; n++ {
		out = append(out, Paginate(rows, n, size))
	}
	return out
}
