package api

import (
	"context"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-wms/internal/db"
	"github.com/joeblew999/plat-wms/internal/humastar"
	"github.com/joeblew999/plat-wms/internal/service"
)

// History is the read side of the lookup history store.
type History interface {
	Count(ctx context.Context) (int, error)
	Recent(ctx context.Context, offset, limit int) ([]service.Lookup, error)
	LayerStats(ctx context.Context) ([]db.LayerStats, error)
}

// HistoryHandler serves the lookup history.
type HistoryHandler struct {
	history History
}

// NewHistoryHandler creates a history handler. A nil store answers 503.
func NewHistoryHandler(history History) *HistoryHandler {
	return &HistoryHandler{history: history}
}

// RegisterRoutes registers history routes with Huma.
func (h *HistoryHandler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/history", h.List, huma.OperationTags("history"))
	huma.Get(api, "/api/v1/history/layers", h.Layers, huma.OperationTags("history"))
}

// LookupBody is one recorded attribute lookup.
type LookupBody struct {
	At       time.Time `json:"at" doc:"When the lookup was applied"`
	Session  string    `json:"session" doc:"Viewer session id"`
	Layer    string    `json:"layer" doc:"Queried layer" example:"Road"`
	Lon      float64   `json:"lon" doc:"Clicked longitude"`
	Lat      float64   `json:"lat" doc:"Clicked latitude"`
	Features int       `json:"features" doc:"Number of features returned"`
}

type HistoryInput struct {
	Offset int `query:"offset" minimum:"0" default:"0" doc:"Number of lookups to skip"`
	Limit  int `query:"limit" minimum:"1" maximum:"500" default:"50" doc:"Page size"`
}

type HistoryOutput struct {
	Body humastar.PageBody[LookupBody]
}

type LayerStatsBody struct {
	Layer    string `json:"layer" doc:"Layer id"`
	Lookups  int    `json:"lookups" doc:"Applied lookups"`
	Features int    `json:"features" doc:"Features returned in total"`
	Empty    int    `json:"empty" doc:"Lookups that found nothing"`
}

// List returns recorded lookups, newest first.
func (h *HistoryHandler) List(ctx context.Context, input *HistoryInput) (*HistoryOutput, error) {
	if h.history == nil {
		return nil, huma.Error503ServiceUnavailable("Lookup history not available")
	}
	total, err := h.history.Count(ctx)
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to count lookups", err)
	}
	lookups, err := h.history.Recent(ctx, input.Offset, input.Limit)
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to read lookups", err)
	}

	data := make([]LookupBody, len(lookups))
	for i, l := range lookups {
		data[i] = LookupBody(l)
	}
	return &HistoryOutput{Body: humastar.PageBody[LookupBody]{
		Total:  total,
		Offset: input.Offset,
		Limit:  input.Limit,
		Data:   data,
	}}, nil
}

// Layers returns per-layer lookup counts.
func (h *HistoryHandler) Layers(ctx context.Context, input *struct{}) (*struct{ Body []LayerStatsBody }, error) {
	if h.history == nil {
		return nil, huma.Error503ServiceUnavailable("Lookup history not available")
	}
	stats, err := h.history.LayerStats(ctx)
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to aggregate lookups", err)
	}
	out := make([]LayerStatsBody, len(stats))
	for i, s := range stats {
		out[i] = LayerStatsBody(s)
	}
	return &struct{ Body []LayerStatsBody }{Body: out}, nil
}
