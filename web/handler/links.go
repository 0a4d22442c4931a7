package handler

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/screwyprof/atlas/web/lookup"
)

// buildPaginationLinks creates a GitHub-style Link header for a history page.
// Only prev and next are emitted; last would need a count query.
func buildPaginationLinks[T any](page *lookup.ResultPage[T], baseURL *url.URL) string {
	var links []string

	u := *baseURL
	query := u.Query()

	if page.HasPrevious() {
		query.Set("page", fmt.Sprintf("%d", page.Number-1))
		query.Set("per_page", fmt.Sprintf("%d", page.Size))
		u.RawQuery = query.Encode()
		links = append(links, fmt.Sprintf(`<%s>; rel="prev"`, u.String()))
	}

	if page.HasNext() {
		query.Set("page", fmt.Sprintf("%d", page.Number+1))
		query.Set("per_page", fmt.Sprintf("%d", page.Size))
		u.RawQuery = query.Encode()
		links = append(links, fmt.Sprintf(`<%s>; rel="next"`, u.String()))
	}

	return strings.Join(links, ", ")
}
