package humastar

import (
	"net/http"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCallScript(t *testing.T) {
	js, err := CallScript("wmsview.addWMS", "Road", map[string]any{"layers": "Narmada:Road"})
	require.NoError(t, err)
	assert.Equal(t, `wmsview.addWMS("Road", {"layers":"Narmada:Road"})`, js)

	js, err = CallScript("wmsview.invalidateSize")
	require.NoError(t, err)
	assert.Equal(t, "wmsview.invalidateSize()", js)

	// JSON encoding keeps a closing script tag out of the page.
	js, err = CallScript("f", "</script>")
	require.NoError(t, err)
	assert.NotContains(t, js, "</script>")

	_, err = CallScript("f", make(chan int))
	assert.Error(t, err)
}

func TestDecodeSignals(t *testing.T) {
	var v struct {
		ActivePanel string `json:"activePanel"`
	}
	require.NoError(t, DecodeSignals([]byte(`{"activePanel":"data"}`), &v))
	assert.Equal(t, "data", v.ActivePanel)

	for _, body := range []string{"", "{"} {
		err := DecodeSignals([]byte(body), &v)
		var se huma.StatusError
		require.ErrorAs(t, err, &se, "body %q", body)
		assert.Equal(t, http.StatusBadRequest, se.GetStatus())
	}
}

func TestPaginationLinks(t *testing.T) {
	p := PageBody[int]{Total: 25, Offset: 10, Limit: 10}
	assert.Equal(t, []string{
		`</items?offset=0&limit=10>; rel="first"`,
		`</items?offset=0&limit=10>; rel="prev"`,
		`</items?offset=20&limit=10>; rel="next"`,
		`</items?offset=20&limit=10>; rel="last"`,
	}, p.PaginationLinks("/items"))

	p = PageBody[int]{Total: 0, Offset: 0, Limit: 10}
	assert.Equal(t, []string{
		`</items?offset=0&limit=10>; rel="first"`,
		`</items?offset=0&limit=10>; rel="last"`,
	}, p.PaginationLinks("/items"))

	assert.Nil(t, PageBody[int]{Total: 3}.PaginationLinks("/items"))
}

func TestActionsFor(t *testing.T) {
	actions := ActionsFor("Road", []ActionDef{
		{Rel: "enable", Pattern: "/layers/%s?enabled=true", Method: http.MethodPost, Title: "Show %s"},
		{Rel: "legend", Pattern: "/legend/%s", Method: http.MethodGet, Title: "Legend"},
	})
	require.Len(t, actions, 2)
	assert.Equal(t, `</layers/Road?enabled=true>; rel="enable"; method="POST"; title="Show Road"`, actions[0].LinkHeader())
	assert.Equal(t, `</legend/Road>; rel="legend"; method="GET"; title="Legend"`, actions[1].LinkHeader())

	assert.Equal(t, `</x>; rel="r"; schema="/s.json"`, Action{Rel: "r", Href: "/x", Schema: "/s.json"}.LinkHeader())
}

func TestParseLinkHeader(t *testing.T) {
	rel, href := parseLinkHeader(`</api/v1/layers>; rel="collection"`)
	assert.Equal(t, "collection", rel)
	assert.Equal(t, "/api/v1/layers", href)

	rel, _ = parseLinkHeader("garbage")
	assert.Empty(t, rel)
	assert.Equal(t, "layers", lastSegment("/api/v1/layers/"))
}
