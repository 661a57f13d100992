package services

import "math"

const (
	DefaultPageSize = 5
	MaxPageSize     = 100
)

// Page selects a 1-based page of a listing.
type Page struct {
	Number int
	Size   int
}

// NewPage clamps user-supplied paging values into range.
func NewPage(number, size int) Page {
	if number < 1 {
		number = 1
	}
	if size < 1 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	// keep Offset from overflowing; such a page is past any real listing
	if number > MaxPageNumber(size) {
		number = MaxPageNumber(size)
	}
	return Page{Number: number, Size: size}
}

// MaxPageNumber is the largest page number whose offset fits in an int.
func MaxPageNumber(size int) int { return (math.MaxInt-size)/size + 1 }

func (p Page) Offset() int { return (p.Number - 1) * p.Size }

type PageResult[T any] struct {
	Count int64
	Items []T
}

// HasNext reports whether another page follows p.
func (r PageResult[T]) HasNext(p Page) bool {
	return int64(p.Offset()+len(r.Items)) < r.Count
}
