// Package api defines the Huma REST routes and handlers.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/plat-wms/internal/humastar"
	"github.com/joeblew999/plat-wms/internal/service"
	"github.com/joeblew999/plat-wms/internal/wms"
)

// Services holds the dependencies of the REST handlers.
type Services struct {
	Catalog *service.Catalog
	WMS     *wms.Client
	// Fetcher performs lookups; defaults to WMS.
	Fetcher service.FeatureInfoFetcher
	// History may be nil when lookup history is disabled.
	History History
}

// Types

type IDInput struct {
	ID string `path:"id" doc:"Layer id" example:"Road"`
}

// LayerBody is a catalog layer as served over REST.
type LayerBody struct {
	ID        string `json:"id" doc:"Layer name within the workspace" example:"Road"`
	Label     string `json:"label" doc:"Display label" example:"Road"`
	Name      string `json:"name" doc:"Workspace-qualified WMS layer name" example:"Narmada:Road"`
	Queryable bool   `json:"queryable" doc:"Whether map clicks query its attributes"`
	LegendURL string `json:"legend_url" doc:"GetLegendGraphic image URL"`
}

var layerActions = []humastar.ActionDef{
	{Rel: "enable", Pattern: "/api/v1/view/layers/%s?enabled=true", Method: http.MethodPost, Title: "Show %s"},
	{Rel: "disable", Pattern: "/api/v1/view/layers/%s?enabled=false", Method: http.MethodPost, Title: "Hide %s"},
	{Rel: "legend", Pattern: "/api/v1/legend/%s", Method: http.MethodGet},
}

// Actions links a layer to its viewer toggles and legend.
func (l LayerBody) Actions() []humastar.Action {
	return humastar.ActionsFor(l.ID, layerActions)
}

type LayerOutput struct {
	Body LayerBody
}

type LayersOutput struct {
	Body []LayerBody
}

type HealthBody struct {
	Status  string `json:"status" doc:"Health status" example:"ok"`
	Version string `json:"version" doc:"API version" example:"1.0.0"`
}

type FeatureInfoInput struct {
	Layer  string `query:"layer" required:"true" doc:"Layer id" example:"Road"`
	BBox   string `query:"bbox" required:"true" doc:"minLon,minLat,maxLon,maxLat" example:"79.85,23.10,79.97,23.14"`
	Width  int    `query:"width" required:"true" minimum:"1" doc:"Viewport width in pixels" example:"800"`
	Height int    `query:"height" required:"true" minimum:"1" doc:"Viewport height in pixels" example:"600"`
	X      int    `query:"x" minimum:"0" doc:"Click pixel column" example:"400"`
	Y      int    `query:"y" minimum:"0" doc:"Click pixel row" example:"300"`
}

// FeatureInfoBody is a proxied GetFeatureInfo answer.
type FeatureInfoBody struct {
	Layer    string                     `json:"layer" doc:"Queried layer id"`
	Count    int                        `json:"count" doc:"Number of features"`
	Table    *wms.AttributeTable        `json:"table,omitempty" doc:"Scalar attributes of the first feature"`
	Features *geojson.FeatureCollection `json:"features" doc:"Features as GeoJSON"`
}

type LegendOutput struct {
	Status   int
	Location string `header:"Location"`
}

// APIHandler holds the REST handlers. Methods named Register* are
// auto-discovered by huma.AutoRegister.
type APIHandler struct {
	svc *Services
}

func NewAPIHandler(svc *Services) *APIHandler {
	if svc.Catalog == nil {
		svc.Catalog = service.DefaultCatalog()
	}
	if svc.WMS == nil {
		svc.WMS = wms.New(wms.Config{})
	}
	if svc.Fetcher == nil {
		svc.Fetcher = svc.WMS
	}
	return &APIHandler{svc: svc}
}

// RegisterHealth registers health check routes.
func (h *APIHandler) RegisterHealth(api huma.API) {
	huma.Get(api, "/health", h.GetHealth, huma.OperationTags("health"))
}

// RegisterLayers registers catalog routes.
func (h *APIHandler) RegisterLayers(api huma.API) {
	huma.Get(api, "/api/v1/layers", h.GetLayers, huma.OperationTags("layers"))
	huma.Get(api, "/api/v1/layers/{id}", h.GetLayer, huma.OperationTags("layers"))
	huma.Get(api, "/api/v1/legend/{id}", h.GetLegend, huma.OperationTags("layers"))
}

// RegisterFlow registers the flow path route.
func (h *APIHandler) RegisterFlow(api huma.API) {
	huma.Get(api, "/api/v1/flow", h.GetFlow, huma.OperationTags("flow"))
}

// RegisterFeatureInfo registers the attribute lookup route.
func (h *APIHandler) RegisterFeatureInfo(api huma.API) {
	huma.Get(api, "/api/v1/featureinfo", h.GetFeatureInfo, huma.OperationTags("featureinfo"))
}

// Handlers

func (h *APIHandler) GetHealth(ctx context.Context, input *struct{}) (*struct{ Body HealthBody }, error) {
	return &struct{ Body HealthBody }{Body: HealthBody{Status: "ok", Version: Version}}, nil
}

func (h *APIHandler) GetLayers(ctx context.Context, input *struct{}) (*LayersOutput, error) {
	out := make([]LayerBody, len(h.svc.Catalog.Layers))
	for i, l := range h.svc.Catalog.Layers {
		out[i] = h.layerBody(l)
	}
	return &LayersOutput{Body: out}, nil
}

func (h *APIHandler) GetLayer(ctx context.Context, input *IDInput) (*LayerOutput, error) {
	l, ok := h.svc.Catalog.Layer(input.ID)
	if !ok {
		return nil, huma.Error404NotFound("layer not found")
	}
	return &LayerOutput{Body: h.layerBody(l)}, nil
}

func (h *APIHandler) GetLegend(ctx context.Context, input *IDInput) (*LegendOutput, error) {
	if _, ok := h.svc.Catalog.Layer(input.ID); !ok {
		return nil, huma.Error404NotFound("layer not found")
	}
	return &LegendOutput{Status: http.StatusFound, Location: h.svc.WMS.LegendURL(input.ID)}, nil
}

// GetFlow returns the flow path as a GeoJSON feature with its geodesic
// length in meters.
func (h *APIHandler) GetFlow(ctx context.Context, input *struct{}) (*struct{ Body *geojson.Feature }, error) {
	flow := h.svc.Catalog.Flow
	ls := flow.LineString()

	f := geojson.NewFeature(ls)
	f.ID = service.FlowOverlayID
	f.Properties["length_m"] = geo.Length(ls)
	f.Properties["color"] = flow.Color
	f.Properties["weight"] = flow.Weight
	f.Properties["opacity"] = flow.Opacity
	f.Properties["dash_array"] = flow.Dash
	return &struct{ Body *geojson.Feature }{Body: f}, nil
}

func (h *APIHandler) GetFeatureInfo(ctx context.Context, input *FeatureInfoInput) (*struct{ Body FeatureInfoBody }, error) {
	if !h.svc.Catalog.Queryable(input.Layer) {
		return nil, huma.Error404NotFound("layer is not queryable")
	}
	bound, err := wms.ParseBBox(input.BBox)
	if err != nil {
		return nil, huma.Error400BadRequest(err.Error())
	}
	req := wms.FeatureInfoRequest{
		Layer:  input.Layer,
		Bound:  bound,
		Width:  input.Width,
		Height: input.Height,
		X:      input.X,
		Y:      input.Y,
	}
	if err := req.Validate(); err != nil {
		return nil, huma.Error400BadRequest(err.Error())
	}

	info, err := h.svc.Fetcher.FeatureInfo(ctx, req)
	if err != nil {
		var se *wms.StatusError
		if errors.As(err, &se) {
			return nil, huma.Error502BadGateway(fmt.Sprintf("GeoServer returned HTTP %d", se.StatusCode))
		}
		return nil, huma.Error502BadGateway("GeoServer query failed", err)
	}

	body := FeatureInfoBody{
		Layer:    input.Layer,
		Count:    len(info.Features),
		Features: info.Collection(),
	}
	if !info.Empty() {
		body.Table = info.Table()
	}
	return &struct{ Body FeatureInfoBody }{Body: body}, nil
}

func (h *APIHandler) layerBody(l service.LayerInfo) LayerBody {
	return LayerBody{
		ID:        l.ID,
		Label:     l.Label,
		Name:      h.svc.WMS.QualifiedName(l.ID),
		Queryable: l.Queryable,
		LegendURL: h.svc.WMS.LegendURL(l.ID),
	}
}
