// Package viewer contains the Datastar SSE handlers that drive the map
// viewer page. Each request mutates the caller's ViewState and streams back
// the resulting effects.
package viewer

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/paulmach/orb"
	"github.com/rs/zerolog"

	"github.com/joeblew999/plat-wms/internal/humastar"
	"github.com/joeblew999/plat-wms/internal/service"
	"github.com/joeblew999/plat-wms/internal/templates"
)

// CookieName carries the viewer session id.
const CookieName = "wmsview_session"

// Tag groups the viewer operations in the OpenAPI document.
const Tag = "viewer"

// Routes are the endpoints the viewer page calls.
type Routes struct {
	Tabs   string
	Layers string
	Click  string
	Flow   string
	Events string
}

// DefaultRoutes are the registered viewer endpoints.
var DefaultRoutes = Routes{
	Tabs:   "/api/v1/view/tabs",
	Layers: "/api/v1/view/layers",
	Click:  "/api/v1/view/click",
	Flow:   "/api/v1/view/flow",
	Events: "/api/v1/view/events",
}

// Config holds the viewer handler settings.
type Config struct {
	Title     string
	Workspace string
	// Heartbeat is how often an open events stream refreshes its session.
	Heartbeat time.Duration
}

// Handler serves the viewer page and endpoints.
type Handler struct {
	humastar.Handler
	cfg      Config
	sessions *service.Sessions
	log      zerolog.Logger
}

// NewHandler creates a viewer handler.
func NewHandler(cfg Config, sessions *service.Sessions, renderer *templates.Renderer, log zerolog.Logger) *Handler {
	if cfg.Title == "" {
		cfg.Title = "WMS Viewer"
	}
	if cfg.Heartbeat <= 0 {
		cfg.Heartbeat = 15 * time.Second
	}
	return &Handler{
		Handler:  humastar.Handler{Renderer: renderer},
		cfg:      cfg,
		sessions: sessions,
		log:      log.With().Str("component", "viewer").Logger(),
	}
}

func (h *Handler) RegisterRoutes(api huma.API) {
	r := DefaultRoutes
	huma.Post(api, r.Tabs+"/{panel}", h.Activate, huma.OperationTags(Tag))
	huma.Post(api, r.Layers+"/{id}", h.SetLayer, huma.OperationTags(Tag))
	huma.Post(api, r.Click, h.Click, huma.OperationTags(Tag))
	huma.Post(api, r.Flow, h.SetFlow, huma.OperationTags(Tag))
	huma.Get(api, r.Events, h.Events, huma.OperationTags(Tag))
}

// SessionInput identifies the caller's session.
type SessionInput struct {
	Session string `cookie:"wmsview_session" doc:"Viewer session id"`
}

type TabInput struct {
	SessionInput
	Panel string `path:"panel" doc:"Panel id" example:"data"`
}

type LayerInput struct {
	SessionInput
	ID      string `path:"id" doc:"Layer id" example:"Road"`
	Enabled bool   `query:"enabled" doc:"Attach (true) or detach (false) the overlay"`
}

type FlowInput struct {
	SessionInput
	Enabled bool `query:"enabled" doc:"Start (true) or stop (false) the flow animation"`
}

type ClickInput struct {
	SessionInput
	RawBody []byte
}

// ClickSignal is the map click as sent by the page glue.
type ClickSignal struct {
	Lat    float64  `json:"lat"`
	Lng    float64  `json:"lng"`
	X      *float64 `json:"x,omitempty"`
	Y      *float64 `json:"y,omitempty"`
	Width  float64  `json:"width"`
	Height float64  `json:"height"`
	South  float64  `json:"south"`
	West   float64  `json:"west"`
	North  float64  `json:"north"`
	East   float64  `json:"east"`
}

// Click converts the signal to a service click.
func (c ClickSignal) Click() service.Click {
	click := service.Click{
		Lat:    c.Lat,
		Lng:    c.Lng,
		Width:  int(math.Round(c.Width)),
		Height: int(math.Round(c.Height)),
		Bound: orb.Bound{
			Min: orb.Point{c.West, c.South},
			Max: orb.Point{c.East, c.North},
		},
	}
	if c.X != nil && c.Y != nil {
		x, y := int(math.Round(*c.X)), int(math.Round(*c.Y))
		click.X, click.Y = &x, &y
	}
	return click
}

type clickSignals struct {
	Click *ClickSignal `json:"click"`
}

func (h *Handler) Activate(ctx context.Context, input *TabInput) (*huma.StreamResponse, error) {
	vs, err := h.session(input.Session)
	if err != nil {
		return nil, err
	}
	effects, err := vs.Activate(input.Panel)
	if err != nil {
		return nil, httpError(err)
	}
	return h.respond(effects), nil
}

func (h *Handler) SetLayer(ctx context.Context, input *LayerInput) (*huma.StreamResponse, error) {
	vs, err := h.session(input.Session)
	if err != nil {
		return nil, err
	}
	effects, err := vs.SetLayer(input.ID, input.Enabled)
	if err != nil {
		return nil, httpError(err)
	}
	return h.respond(effects), nil
}

func (h *Handler) SetFlow(ctx context.Context, input *FlowInput) (*huma.StreamResponse, error) {
	vs, err := h.session(input.Session)
	if err != nil {
		return nil, err
	}
	effects, err := vs.SetAnimating(input.Enabled)
	if err != nil {
		return nil, httpError(err)
	}
	return h.respond(effects), nil
}

func (h *Handler) Click(ctx context.Context, input *ClickInput) (*huma.StreamResponse, error) {
	vs, err := h.session(input.Session)
	if err != nil {
		return nil, err
	}
	var signals clickSignals
	if err := humastar.DecodeSignals(input.RawBody, &signals); err != nil {
		return nil, err
	}
	if signals.Click == nil {
		return nil, huma.Error400BadRequest("Missing click signal")
	}
	return h.respond(vs.Click(ctx, signals.Click.Click())), nil
}

// Events streams effects produced outside a request, such as animation
// frames, until the client goes away or the session ends.
func (h *Handler) Events(ctx context.Context, input *SessionInput) (*huma.StreamResponse, error) {
	vs, err := h.session(input.Session)
	if err != nil {
		return nil, err
	}
	return h.Stream(func(sse humastar.SSE) {
		ch := vs.Bus().Subscribe()
		defer vs.Bus().Unsubscribe(ch)

		heartbeat := time.NewTicker(h.cfg.Heartbeat)
		defer heartbeat.Stop()

		done := ctx.Done()
		for {
			select {
			case <-done:
				return
			case <-heartbeat.C:
				// An open stream keeps its session alive.
				if _, ok := h.sessions.Get(vs.ID()); !ok {
					return
				}
			case e, ok := <-ch:
				if !ok {
					return
				}
				h.render(sse, []service.Effect{e})
			}
		}
	}), nil
}

func (h *Handler) respond(effects []service.Effect) *huma.StreamResponse {
	return h.Stream(func(sse humastar.SSE) {
		h.render(sse, effects)
	})
}

func (h *Handler) session(id string) (*service.ViewState, error) {
	vs, ok := h.sessions.Get(id)
	if !ok {
		return nil, httpError(service.ErrNoSession)
	}
	return vs, nil
}

// httpError maps domain errors to Huma status errors.
func httpError(err error) error {
	switch {
	case errors.Is(err, service.ErrUnknownLayer), errors.Is(err, service.ErrUnknownPanel):
		return huma.Error404NotFound(err.Error())
	case errors.Is(err, service.ErrMapNotReady):
		return huma.Error409Conflict(err.Error())
	case errors.Is(err, service.ErrNoSession):
		return huma.Error401Unauthorized(err.Error())
	}
	return huma.Error500InternalServerError("view update failed", err)
}
