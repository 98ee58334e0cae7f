package templates

import (
	"io/fs"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type legend struct {
	ID       string
	Label    string
	ImageURL string
}

type table struct {
	Columns []string
	Values  []string
}

func TestLegendItem(t *testing.T) {
	r, err := Default()
	require.NoError(t, err)

	html, err := r.Render("legend-item", legend{
		ID:       "GCP",
		Label:    "Ground <Control> Points",
		ImageURL: "http://geo.example/wms?request=GetLegendGraphic&layer=Narmada%3AGCP",
	})
	require.NoError(t, err)
	assert.Contains(t, html, `id="legend-GCP"`)
	assert.Contains(t, html, `<span class="legend-text">Ground &lt;Control&gt; Points:</span>`)
	assert.Contains(t, html, `src="http://geo.example/wms?request=GetLegendGraphic&amp;layer=Narmada%3AGCP"`)
}

func TestAttributeTable(t *testing.T) {
	r, err := Default()
	require.NoError(t, err)

	html, err := r.Render("attr-table", map[string]any{
		"Layer": "Road",
		"Table": table{Columns: []string{"NAME", "NOTE"}, Values: []string{"NH-12", `<img src=x onerror=alert(1)>`}},
	})
	require.NoError(t, err)
	assert.Contains(t, html, `<div class="attr-layer">Road</div>`)
	assert.Contains(t, html, "<th>NAME</th><th>NOTE</th>")
	assert.Contains(t, html, "<td>NH-12</td>")
	assert.NotContains(t, html, "<img")
	assert.Contains(t, html, "&lt;img src=x onerror=alert(1)&gt;")
}

func TestViewerPage(t *testing.T) {
	r, err := Default()
	require.NoError(t, err)

	html, err := r.Render("viewer", map[string]any{
		"Title":     "WMS Viewer",
		"Workspace": "Narmada",
		"MapPanel":  "data",
		"Panels": []map[string]string{
			{"ID": "home", "Label": "Home"},
			{"ID": "data", "Label": "Data"},
		},
		"Layers": []map[string]string{
			{"ID": "Road", "Label": "Road"},
		},
		"Signals": map[string]any{"activePanel": "home", "flowOffset": 0},
		"Routes": map[string]string{
			"Tabs": "/api/v1/view/tabs", "Layers": "/api/v1/view/layers", "Click": "/api/v1/view/click",
			"Flow": "/api/v1/view/flow", "Events": "/api/v1/view/events",
		},
	})
	require.NoError(t, err)
	assert.Contains(t, html, "<title>WMS Viewer</title>")
	assert.Contains(t, html, `id="tab-home"`)
	assert.Contains(t, html, `id="tab-data"`)
	assert.Contains(t, html, `id="layer-Road"`)
	assert.Contains(t, html, `id="map"`)
	assert.Contains(t, html, `id="legend-container"`)
	assert.Contains(t, html, "No feature selected")
	assert.Contains(t, html, "wmsview.revealAttributes(el, $attributesVisible)")
	assert.Contains(t, html, "&#34;activePanel&#34;:&#34;home&#34;")
	assert.Contains(t, html, "browse the Narmada layers")
}

func TestStatic(t *testing.T) {
	for _, name := range []string{"viewer.js", "viewer.css"} {
		b, err := fs.ReadFile(Static(), name)
		require.NoError(t, err, name)
		assert.NotEmpty(t, b)
	}
	js, _ := fs.ReadFile(Static(), "viewer.js")
	assert.Contains(t, string(js), "setDashOffset")
	assert.Contains(t, string(js), "scrollIntoView({ behavior: 'smooth', block: 'nearest' })")
}

func TestNewFromFS(t *testing.T) {
	fsys := fstest.MapFS{
		"fragments/hello.html": {Data: []byte(`{{define "hello"}}Hello {{.}}{{end}}`)},
	}
	r, err := New(fsys, "fragments/*.html")
	require.NoError(t, err)

	out, err := r.Render("hello", "<world>")
	require.NoError(t, err)
	assert.Equal(t, "Hello &lt;world&gt;", out)

	_, err = r.Render("missing", nil)
	assert.Error(t, err)

	_, err = New(fsys, "pages/*.html")
	assert.Error(t, err)
}
