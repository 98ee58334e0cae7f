package humastar

import "fmt"

// Pager is implemented by response bodies that carry pagination metadata.
// The link transformer turns them into first/prev/next/last Link headers.
type Pager interface {
	PaginationLinks(basePath string) []string
}

// PageBody is a generic offset/limit page of items.
type PageBody[T any] struct {
	Total  int `json:"total" doc:"Total number of items"`
	Offset int `json:"offset" doc:"Current offset"`
	Limit  int `json:"limit" doc:"Page size"`
	Data   []T `json:"data" doc:"Items"`
}

// PaginationLinks returns RFC 8288 Link header values for pagination rels.
func (p PageBody[T]) PaginationLinks(basePath string) []string {
	if p.Limit <= 0 {
		return nil
	}
	link := func(offset int, rel string) string {
		return fmt.Sprintf(`<%s?offset=%d&limit=%d>; rel="%s"`, basePath, offset, p.Limit, rel)
	}

	links := []string{link(0, "first")}
	if p.Offset > 0 {
		links = append(links, link(max(p.Offset-p.Limit, 0), "prev"))
	}
	if p.Offset+p.Limit < p.Total {
		links = append(links, link(p.Offset+p.Limit, "next"))
	}
	last := 0
	if p.Total > 0 {
		last = ((p.Total - 1) / p.Limit) * p.Limit
	}
	return append(links, link(last, "last"))
}
