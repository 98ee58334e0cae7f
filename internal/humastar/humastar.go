// Package humastar bridges Huma (REST/OpenAPI) with Datastar (SSE/hypermedia).
//
// It provides:
//   - SSE: Huma streaming → Datastar SSE protocol via [SSE] and [NewSSE]
//   - Signals: Datastar signal decoding via [DecodeSignals]
//   - Handler: embeddable base for SSE handlers via [Handler]
//   - Links: RFC 8288 Link headers via [Links]
//
// Usage:
//
//	type MyHandler struct {
//	    humastar.Handler
//	}
//
//	func (h *MyHandler) Show(ctx context.Context, input *struct{}) (*huma.StreamResponse, error) {
//	    return h.Stream(func(sse humastar.SSE) {
//	        html, _ := h.Renderer.Render("card", data)
//	        sse.Patch(html, "#target")
//	    }), nil
//	}
package humastar

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/starfederation/datastar-go/datastar"

	"github.com/joeblew999/plat-wms/internal/templates"
)

// ---------------------------------------------------------------------------
// Handler: embeddable base for Datastar SSE handlers
// ---------------------------------------------------------------------------

// Handler is an embeddable base for Huma handlers that produce Datastar SSE
// responses.
type Handler struct {
	Renderer *templates.Renderer
}

// Stream returns a Huma StreamResponse that calls fn with a ready SSE helper.
func (h *Handler) Stream(fn func(sse SSE)) *huma.StreamResponse {
	return &huma.StreamResponse{
		Body: func(humaCtx huma.Context) {
			fn(NewSSE(humaCtx))
		},
	}
}

// ---------------------------------------------------------------------------
// SSE: Huma to Datastar bridge
// ---------------------------------------------------------------------------

// SSE wraps a Datastar SSE generator with the patch shapes the viewer uses.
type SSE struct {
	*datastar.ServerSentEventGenerator
}

// NewSSE creates a Datastar SSE helper from a Huma streaming context.
func NewSSE(ctx huma.Context) SSE {
	r, w := humago.Unwrap(ctx)
	return SSE{datastar.NewSSE(w, r)}
}

// Patch sends HTML to replace inner content at a CSS selector.
func (s SSE) Patch(html, selector string) {
	s.PatchElements(html,
		datastar.WithSelector(selector),
		datastar.WithModeInner(),
	)
}

// Append adds HTML as the last child of a CSS selector.
func (s SSE) Append(html, selector string) {
	s.PatchElements(html,
		datastar.WithSelector(selector),
		datastar.WithModeAppend(),
	)
}

// Remove deletes the element with the given id, if any.
func (s SSE) Remove(id string) {
	s.RemoveElementByID(id)
}

// Error sends an error signal to the UI.
func (s SSE) Error(msg string) {
	s.MarshalAndPatchSignals(map[string]any{"error": msg})
}

// Call runs fn(args...) in the page. Arguments are JSON encoded, which
// also makes them safe inside a script element.
func (s SSE) Call(fn string, args ...any) error {
	js, err := CallScript(fn, args...)
	if err != nil {
		return err
	}
	return s.ExecuteScript(js)
}

// CallScript formats a JavaScript call with JSON-encoded arguments.
func CallScript(fn string, args ...any) (string, error) {
	parts := make([]string, len(args))
	for i, a := range args {
		b, err := json.Marshal(a)
		if err != nil {
			return "", fmt.Errorf("encode argument %d of %s: %w", i, fn, err)
		}
		parts[i] = string(b)
	}
	return fn + "(" + strings.Join(parts, ", ") + ")", nil
}

// ---------------------------------------------------------------------------
// Signals
// ---------------------------------------------------------------------------

// DecodeSignals unmarshals a Datastar signals body into v or returns a Huma
// 400 error.
func DecodeSignals(body []byte, v any) error {
	if len(body) == 0 {
		return huma.Error400BadRequest("Missing signals")
	}
	if err := json.Unmarshal(body, v); err != nil {
		return huma.Error400BadRequest("Invalid request data: " + err.Error())
	}
	return nil
}
