package humastar

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/danielgtaylor/huma/v2"
)

// Links holds generated RFC 8288 Link header values keyed by operation path.
type Links struct {
	byPath map[string][]string
}

// NewLinks creates an empty link table. Install its Transformer in the Huma
// config, then call Discover once the routes exist.
func NewLinks() *Links {
	return &Links{byPath: map[string][]string{}}
}

// Discover walks the OpenAPI paths and derives hypermedia links between
// collections, items and the /health entry point. Paths tagged with one of
// skipTags (for example the Datastar viewer endpoints) are left out. Call
// after all routes are registered and before serving.
func (l *Links) Discover(api huma.API, skipTags ...string) {
	oapi := api.OpenAPI()

	var collections, items []string
	for p, pi := range oapi.Paths {
		if hasAnyTag(primaryTags(pi), skipTags) {
			continue
		}
		if strings.Contains(p, "{") {
			items = append(items, p)
		} else {
			collections = append(collections, p)
		}
	}
	sort.Strings(collections)
	sort.Strings(items)

	for _, item := range items {
		parent := path.Dir(item)
		if _, ok := oapi.Paths[parent]; ok {
			l.add(item, parent, "collection")
		}
	}
	for _, coll := range collections {
		for _, item := range items {
			if path.Dir(item) == coll {
				l.add(coll, item, "item")
			}
		}
		if coll != "/health" {
			l.add(coll, "/health", "up")
		}
	}

	if _, ok := oapi.Paths["/health"]; ok {
		for _, coll := range collections {
			if coll != "/health" {
				l.add("/health", coll, lastSegment(coll))
			}
		}
		l.add("/health", "/openapi.json", "service-desc")
		l.add("/health", "/docs", "service-doc")
	}

	for p, pi := range oapi.Paths {
		headers, ok := l.byPath[p]
		if !ok {
			continue
		}
		for _, op := range operationsOf(pi) {
			if op != nil {
				injectResponseLinks(op, headers)
			}
		}
	}
}

// For returns the links registered for an operation path.
func (l *Links) For(opPath string) []string {
	if l == nil {
		return nil
	}
	return l.byPath[opPath]
}

// Transformer returns a Huma Transformer that writes the links at runtime,
// plus self, pagination and action links taken from the response.
func (l *Links) Transformer() huma.Transformer {
	return func(ctx huma.Context, status string, v any) (any, error) {
		op := ctx.Operation()
		if op == nil {
			return v, nil
		}

		for _, link := range l.For(op.Path) {
			ctx.AppendHeader("Link", link)
		}

		if strings.Contains(op.Path, "{") {
			ctx.AppendHeader("Link", fmt.Sprintf(`<%s>; rel="self"`, ctx.URL().Path))
		}

		if p, ok := v.(Pager); ok {
			for _, link := range p.PaginationLinks(ctx.URL().Path) {
				ctx.AppendHeader("Link", link)
			}
		}

		if a, ok := v.(Actor); ok {
			for _, action := range a.Actions() {
				ctx.AppendHeader("Link", action.LinkHeader())
			}
		}

		return v, nil
	}
}

// --- helpers ---

func (l *Links) add(from, to, rel string) {
	val := fmt.Sprintf(`<%s>; rel="%s"`, to, rel)
	for _, existing := range l.byPath[from] {
		if existing == val {
			return
		}
	}
	l.byPath[from] = append(l.byPath[from], val)
}

func primaryTags(pi *huma.PathItem) []string {
	for _, op := range operationsOf(pi) {
		if op != nil && len(op.Tags) > 0 {
			return op.Tags
		}
	}
	return nil
}

func operationsOf(pi *huma.PathItem) []*huma.Operation {
	return []*huma.Operation{pi.Get, pi.Post, pi.Put, pi.Patch, pi.Delete}
}

func hasAnyTag(tags, want []string) bool {
	for _, t := range tags {
		for _, w := range want {
			if t == w {
				return true
			}
		}
	}
	return false
}

func lastSegment(p string) string {
	parts := strings.Split(strings.TrimRight(p, "/"), "/")
	return parts[len(parts)-1]
}

// injectResponseLinks documents the links on the operation's success
// response in the OpenAPI document.
func injectResponseLinks(op *huma.Operation, headers []string) {
	if op.Responses == nil {
		return
	}
	var resp *huma.Response
	for code, r := range op.Responses {
		if strings.HasPrefix(code, "2") {
			resp = r
			break
		}
	}
	if resp == nil {
		return
	}
	if resp.Links == nil {
		resp.Links = map[string]*huma.Link{}
	}
	for _, h := range headers {
		rel, href := parseLinkHeader(h)
		if rel == "" {
			continue
		}
		resp.Links[rel] = &huma.Link{
			OperationRef: href,
			Description:  fmt.Sprintf("Related: %s", rel),
		}
	}
}

func parseLinkHeader(h string) (rel, href string) {
	parts := strings.SplitN(h, ";", 2)
	if len(parts) < 2 {
		return "", ""
	}
	href = strings.Trim(strings.TrimSpace(parts[0]), "<>")
	relPart := strings.TrimSpace(parts[1])
	if strings.HasPrefix(relPart, `rel="`) {
		rel = strings.Trim(relPart[4:], `"`)
	}
	return rel, href
}
