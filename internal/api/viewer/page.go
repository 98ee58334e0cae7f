package viewer

import (
	"io"
	"net/http"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/joeblew999/plat-wms/internal/service"
)

// PageData is what the viewer page template renders.
type PageData struct {
	Title     string
	Workspace string
	MapPanel  string
	Panels    []Panel
	Layers    []service.LayerInfo
	Signals   map[string]any
	Routes    Routes
}

// Panel is one tab.
type Panel struct {
	ID    string
	Label string
}

// Page serves the viewer page. Every page load starts a fresh session, since
// a reloaded page has lost its map; the previous session of the browser is
// ended.
func (h *Handler) Page(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(CookieName); err == nil {
		h.sessions.Delete(c.Value)
	}
	vs := h.sessions.Create()

	html, err := h.Renderer.Render("viewer", h.pageData(vs))
	if err != nil {
		h.sessions.Delete(vs.ID())
		h.log.Error().Err(err).Msg("failed to render viewer page")
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    vs.ID(),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	io.WriteString(w, html)
}

func (h *Handler) pageData(vs *service.ViewState) PageData {
	cat := vs.Catalog()
	panels := make([]Panel, len(cat.Panels))
	for i, id := range cat.Panels {
		panels[i] = Panel{ID: id, Label: panelLabel(id)}
	}
	return PageData{
		Title:     h.cfg.Title,
		Workspace: h.cfg.Workspace,
		MapPanel:  cat.MapPanel,
		Panels:    panels,
		Layers:    cat.Layers,
		Signals: map[string]any{
			"activePanel":       vs.ActivePanel(),
			"attributesVisible": false,
			"flowOffset":        vs.Offset(),
			"click":             nil,
			"error":             "",
		},
		Routes: DefaultRoutes,
	}
}

func panelLabel(id string) string {
	r, size := utf8.DecodeRuneInString(id)
	if r == utf8.RuneError {
		return id
	}
	return string(unicode.ToUpper(r)) + strings.ReplaceAll(id[size:], "-", " ")
}
