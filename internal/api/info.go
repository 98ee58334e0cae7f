package api

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
)

// Version is the service version reported by /health and /api/v1/info.
const Version = "0.1.0"

type InfoHandler struct {
	geoserver string
	workspace string
	history   bool
}

func NewInfoHandler(geoserver, workspace string, history bool) *InfoHandler {
	return &InfoHandler{geoserver: geoserver, workspace: workspace, history: history}
}

func (h *InfoHandler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/info", h.GetInfo, huma.OperationTags("health"))
}

type InfoBody struct {
	Name      string   `json:"name" doc:"Service name"`
	Version   string   `json:"version" doc:"Service version"`
	GeoServer string   `json:"geoserver" doc:"WMS endpoint overlays and lookups go to"`
	Workspace string   `json:"workspace" doc:"GeoServer workspace"`
	History   bool     `json:"history" doc:"Whether lookup history is recorded"`
	Features  []string `json:"features" doc:"Available features"`
}

func (h *InfoHandler) GetInfo(ctx context.Context, input *struct{}) (*struct{ Body InfoBody }, error) {
	features := []string{"wms", "featureinfo", "legend", "flow", "viewer"}
	if h.history {
		features = append(features, "duckdb")
	}
	return &struct{ Body InfoBody }{Body: InfoBody{
		Name:      "plat-wms",
		Version:   Version,
		GeoServer: h.geoserver,
		Workspace: h.workspace,
		History:   h.history,
		Features:  features,
	}}, nil
}
