package lookup

import (
	"errors"
	"fmt"
)

// Default pagination values
const (
	DefaultPage    = 1   // Default to first page
	DefaultPerPage = 50  // Default pagination size
	MaxPerPage     = 100 // Maximum items per page
)

// Page represents a page number for pagination
type Page uint64

// PerPage represents items per page for pagination
type PerPage uint64

var (
	ErrPerPageTooLarge = errors.New("per_page exceeds maximum limit")
	ErrPageTooLarge    = errors.New("page is beyond the addressable range")
)

// ParsePageFromUint64 creates a Page, mapping zero to the first page
func ParsePageFromUint64(page uint64) Page {
	if page == 0 {
		return Page(DefaultPage)
	}
	return Page(page)
}

// ParsePerPageFromUint64 creates a PerPage, mapping zero to the default size
func ParsePerPageFromUint64(perPage uint64) (PerPage, error) {
	if perPage == 0 {
		return PerPage(DefaultPerPage), nil
	}
	if perPage > MaxPerPage {
		return 0, fmt.Errorf("%w: must be between 1 and %d", ErrPerPageTooLarge, MaxPerPage)
	}
	return PerPage(perPage), nil
}

func (p Page) Uint64() uint64 {
	return uint64(p)
}

func (pp PerPage) Uint64() uint64 {
	return uint64(pp)
}

// ResultPage is one page of a history with navigation metadata
type ResultPage[T any] struct {
	Items   []T
	HasMore bool // True if there are more pages after this one
	Number  Page
	Size    PerPage
}

func (p *ResultPage[T]) HasNext() bool     { return p.HasMore }
func (p *ResultPage[T]) HasPrevious() bool { return p.Number > 1 }

// NewResultPage trims a result fetched with LIMIT n+1 and records whether more pages exist
func NewResultPage[T any](items []T, criteria HistoryCriteria) *ResultPage[T] {
	hasMore := uint64(len(items)) > criteria.ItemsPerPage()
	if hasMore {
		items = items[:criteria.ItemsPerPage()]
	}
	return &ResultPage[T]{
		Items:   items,
		HasMore: hasMore,
		Number:  criteria.Page,
		Size:    criteria.Size,
	}
}
