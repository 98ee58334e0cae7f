package humastar

import (
	"fmt"
	"strings"
)

// ActionDef is a reusable action template. Pattern holds a single %s verb
// for the resource id, e.g. "/api/v1/view/layers/%s?enabled=true".
type ActionDef struct {
	Rel     string
	Pattern string
	Method  string
	Title   string // may also contain a %s verb for the id
	Schema  string
}

// ActionsFor expands action templates for one resource id.
func ActionsFor(id string, defs []ActionDef) []Action {
	actions := make([]Action, len(defs))
	for i, d := range defs {
		title := d.Title
		if strings.Contains(title, "%s") {
			title = fmt.Sprintf(title, id)
		}
		actions[i] = Action{
			Rel:    d.Rel,
			Href:   fmt.Sprintf(d.Pattern, id),
			Method: d.Method,
			Title:  title,
			Schema: d.Schema,
		}
	}
	return actions
}
