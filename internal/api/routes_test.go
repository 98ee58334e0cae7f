package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/plat-wms/internal/db"
	"github.com/joeblew999/plat-wms/internal/humastar"
	"github.com/joeblew999/plat-wms/internal/service"
	"github.com/joeblew999/plat-wms/internal/wms"
)

type fakeFetcher struct {
	body string
	err  error
	req  wms.FeatureInfoRequest
}

func (f *fakeFetcher) FeatureInfo(ctx context.Context, req wms.FeatureInfoRequest) (*wms.FeatureInfo, error) {
	f.req = req
	if f.err != nil {
		return nil, f.err
	}
	return wms.ParseFeatureInfo([]byte(f.body))
}

type fakeHistory struct {
	lookups []service.Lookup
	stats   []db.LayerStats
}

func (h *fakeHistory) Count(ctx context.Context) (int, error) {
	return len(h.lookups), nil
}

func (h *fakeHistory) Recent(ctx context.Context, offset, limit int) ([]service.Lookup, error) {
	if offset >= len(h.lookups) {
		return nil, nil
	}
	return h.lookups[offset:min(offset+limit, len(h.lookups))], nil
}

func (h *fakeHistory) LayerStats(ctx context.Context) ([]db.LayerStats, error) {
	return h.stats, nil
}

func newTestAPI(t *testing.T, svc *Services) humatest.TestAPI {
	t.Helper()
	links := humastar.NewLinks()
	cfg := huma.DefaultConfig("plat-wms test", Version)
	cfg.CreateHooks = []func(huma.Config) huma.Config{}
	cfg.Transformers = append(cfg.Transformers, links.Transformer())
	_, api := humatest.New(t, cfg)

	huma.AutoRegister(api, NewAPIHandler(svc))
	NewInfoHandler(wms.DefaultBaseURL, wms.DefaultWorkspace, svc.History != nil).RegisterRoutes(api)
	NewHistoryHandler(svc.History).RegisterRoutes(api)
	links.Discover(api)
	return api
}

func decode[T any](t *testing.T, body []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(body, &v))
	return v
}

func TestHealth(t *testing.T) {
	api := newTestAPI(t, &Services{})

	resp := api.Get("/health")
	require.Equal(t, http.StatusOK, resp.Code)
	body := decode[HealthBody](t, resp.Body.Bytes())
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, Version, body.Version)

	links := strings.Join(resp.Result().Header.Values("Link"), ",")
	assert.Contains(t, links, `</api/v1/layers>; rel="layers"`)
	assert.Contains(t, links, `</openapi.json>; rel="service-desc"`)
}

func TestLayers(t *testing.T) {
	api := newTestAPI(t, &Services{})

	resp := api.Get("/api/v1/layers")
	require.Equal(t, http.StatusOK, resp.Code)
	layers := decode[[]LayerBody](t, resp.Body.Bytes())
	require.Len(t, layers, 9)
	assert.Equal(t, "Buildings", layers[0].ID)
	assert.Equal(t, "Narmada:Buildings", layers[0].Name)
	assert.True(t, layers[0].Queryable)
	assert.False(t, layers[7].Queryable, "Contour is display only")
	assert.Contains(t, layers[0].LegendURL, "request=GetLegendGraphic")

	resp = api.Get("/api/v1/layers/GCP")
	require.Equal(t, http.StatusOK, resp.Code)
	layer := decode[LayerBody](t, resp.Body.Bytes())
	assert.Equal(t, "Ground Control Points", layer.Label)

	links := strings.Join(resp.Result().Header.Values("Link"), ",")
	assert.Contains(t, links, `</api/v1/layers/GCP>; rel="self"`)
	assert.Contains(t, links, `</api/v1/layers>; rel="collection"`)
	assert.Contains(t, links, `</api/v1/view/layers/GCP?enabled=true>; rel="enable"; method="POST"; title="Show GCP"`)
	assert.Contains(t, links, `</api/v1/legend/GCP>; rel="legend"; method="GET"`)

	resp = api.Get("/api/v1/layers/Railway")
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestLegendRedirect(t *testing.T) {
	api := newTestAPI(t, &Services{WMS: wms.New(wms.Config{BaseURL: "http://geo.example/wms"})})

	resp := api.Get("/api/v1/legend/Road")
	require.Equal(t, http.StatusFound, resp.Code)
	loc := resp.Result().Header.Get("Location")
	assert.True(t, strings.HasPrefix(loc, "http://geo.example/wms?"))
	assert.Contains(t, loc, "layer=Narmada%3ARoad")

	resp = api.Get("/api/v1/legend/Railway")
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestFlow(t *testing.T) {
	api := newTestAPI(t, &Services{})

	resp := api.Get("/api/v1/flow")
	require.Equal(t, http.StatusOK, resp.Code)

	var f struct {
		Type     string `json:"type"`
		ID       string `json:"id"`
		Geometry struct {
			Type        string       `json:"type"`
			Coordinates [][2]float64 `json:"coordinates"`
		} `json:"geometry"`
		Properties map[string]any `json:"properties"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &f))
	assert.Equal(t, "Feature", f.Type)
	assert.Equal(t, "flow", f.ID)
	assert.Equal(t, "LineString", f.Geometry.Type)
	require.Len(t, f.Geometry.Coordinates, 6)
	assert.InDelta(t, 79.84314717412799, f.Geometry.Coordinates[0][0], 1e-12)
	assert.Equal(t, "15, 30", f.Properties["dash_array"])

	// The path runs roughly 4.3 km east along the river.
	assert.InDelta(t, 4300, f.Properties["length_m"], 400)
}

func TestFeatureInfo(t *testing.T) {
	fetcher := &fakeFetcher{body: `{"type":"FeatureCollection","features":[{"type":"Feature","id":"Road.7","geometry":{"type":"Point","coordinates":[79.9,23.12]},"properties":{"NAME":"NH-12","LANES":4,"tags":{"a":1}}}]}`}
	api := newTestAPI(t, &Services{Fetcher: fetcher})

	resp := api.Get("/api/v1/featureinfo?layer=Road&bbox=79.85,23.10,79.97,23.14&width=800&height=600&x=400&y=300")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	body := decode[struct {
		Layer    string             `json:"layer"`
		Count    int                `json:"count"`
		Table    wms.AttributeTable `json:"table"`
		Features struct {
			Features []struct {
				ID string `json:"id"`
			} `json:"features"`
		} `json:"features"`
	}](t, resp.Body.Bytes())

	assert.Equal(t, "Road", body.Layer)
	assert.Equal(t, 1, body.Count)
	assert.Equal(t, []string{"NAME", "LANES"}, body.Table.Columns)
	assert.Equal(t, []string{"NH-12", "4"}, body.Table.Values)
	require.Len(t, body.Features.Features, 1)
	assert.Equal(t, "Road.7", body.Features.Features[0].ID)

	assert.Equal(t, 400, fetcher.req.X)
	assert.Equal(t, 600, fetcher.req.Height)
	assert.Equal(t, 79.97, fetcher.req.Bound.Max.X())
}

func TestFeatureInfoEmpty(t *testing.T) {
	api := newTestAPI(t, &Services{Fetcher: &fakeFetcher{body: `{"type":"FeatureCollection","features":[]}`}})

	resp := api.Get("/api/v1/featureinfo?layer=GCP&bbox=79.85,23.10,79.97,23.14&width=800&height=600")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.NotContains(t, resp.Body.String(), `"table"`)
	assert.Contains(t, resp.Body.String(), `"count":0`)
}

func TestFeatureInfoErrors(t *testing.T) {
	const query = "&width=800&height=600&x=1&y=1"
	fetcher := &fakeFetcher{}
	api := newTestAPI(t, &Services{Fetcher: fetcher})

	resp := api.Get("/api/v1/featureinfo?layer=Contour&bbox=79.85,23.10,79.97,23.14" + query)
	assert.Equal(t, http.StatusNotFound, resp.Code)

	resp = api.Get("/api/v1/featureinfo?layer=Road&bbox=79.85,23.10" + query)
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = api.Get("/api/v1/featureinfo?layer=Road&bbox=79.97,23.10,79.85,23.14" + query)
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = api.Get("/api/v1/featureinfo?layer=Road&bbox=79.85,23.10,79.97,23.14&width=0&height=600")
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)

	fetcher.err = &wms.StatusError{StatusCode: http.StatusServiceUnavailable}
	resp = api.Get("/api/v1/featureinfo?layer=Road&bbox=79.85,23.10,79.97,23.14" + query)
	assert.Equal(t, http.StatusBadGateway, resp.Code)
	assert.Contains(t, resp.Body.String(), "HTTP 503")

	fetcher.err = errors.New("connection refused")
	resp = api.Get("/api/v1/featureinfo?layer=Road&bbox=79.85,23.10,79.97,23.14" + query)
	assert.Equal(t, http.StatusBadGateway, resp.Code)
}

func TestHistory(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	history := &fakeHistory{
		stats: []db.LayerStats{{Layer: "Road", Lookups: 3, Features: 2, Empty: 1}},
	}
	for i := range 5 {
		history.lookups = append(history.lookups, service.Lookup{
			At: at.Add(time.Duration(-i) * time.Minute), Session: "s1", Layer: "Road", Lon: 79.9, Lat: 23.1, Features: i,
		})
	}
	api := newTestAPI(t, &Services{History: history})

	resp := api.Get("/api/v1/history?offset=2&limit=2")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	page := decode[humastar.PageBody[LookupBody]](t, resp.Body.Bytes())
	assert.Equal(t, 5, page.Total)
	require.Len(t, page.Data, 2)
	assert.Equal(t, 2, page.Data[0].Features)
	assert.True(t, page.Data[0].At.Equal(at.Add(-2*time.Minute)))

	links := strings.Join(resp.Result().Header.Values("Link"), ",")
	assert.Contains(t, links, `</api/v1/history?offset=0&limit=2>; rel="prev"`)
	assert.Contains(t, links, `</api/v1/history?offset=4&limit=2>; rel="next"`)
	assert.Contains(t, links, `</api/v1/history?offset=4&limit=2>; rel="last"`)

	resp = api.Get("/api/v1/history/layers")
	require.Equal(t, http.StatusOK, resp.Code)
	stats := decode[[]LayerStatsBody](t, resp.Body.Bytes())
	assert.Equal(t, []LayerStatsBody{{Layer: "Road", Lookups: 3, Features: 2, Empty: 1}}, stats)

	resp = api.Get("/api/v1/info")
	require.Equal(t, http.StatusOK, resp.Code)
	info := decode[InfoBody](t, resp.Body.Bytes())
	assert.True(t, info.History)
	assert.Contains(t, info.Features, "duckdb")
}

func TestHistoryDisabled(t *testing.T) {
	api := newTestAPI(t, &Services{})

	assert.Equal(t, http.StatusServiceUnavailable, api.Get("/api/v1/history").Code)
	assert.Equal(t, http.StatusServiceUnavailable, api.Get("/api/v1/history/layers").Code)

	resp := api.Get("/api/v1/info")
	require.Equal(t, http.StatusOK, resp.Code)
	info := decode[InfoBody](t, resp.Body.Bytes())
	assert.Equal(t, "plat-wms", info.Name)
	assert.Equal(t, wms.DefaultWorkspace, info.Workspace)
	assert.False(t, info.History)
	assert.NotContains(t, info.Features, "duckdb")
}
