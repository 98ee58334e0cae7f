package humastar

import "fmt"

// Action is a state-dependent hypermedia action link, written as an RFC 8288
// Link header with method and title extension parameters:
//
//	</api/v1/view/layers/Road?enabled=false>; rel="disable"; method="POST"; title="Hide Road"
type Action struct {
	Rel    string
	Href   string
	Method string
	Title  string
	Schema string // optional JSON Schema URL for the request body
}

// Actor is implemented by response bodies that provide actions.
type Actor interface {
	Actions() []Action
}

// LinkHeader formats the action as a Link header value.
func (a Action) LinkHeader() string {
	h := fmt.Sprintf(`<%s>; rel="%s"`, a.Href, a.Rel)
	if a.Method != "" {
		h += fmt.Sprintf(`; method="%s"`, a.Method)
	}
	if a.Title != "" {
		h += fmt.Sprintf(`; title="%s"`, a.Title)
	}
	if a.Schema != "" {
		h += fmt.Sprintf(`; schema="%s"`, a.Schema)
	}
	return h
}
