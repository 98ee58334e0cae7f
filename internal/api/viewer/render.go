package viewer

import (
	"fmt"

	"github.com/paulmach/orb"

	"github.com/joeblew999/plat-wms/internal/humastar"
	"github.com/joeblew999/plat-wms/internal/service"
)

// Page glue entry points (static/viewer.js).
const (
	jsInitMap        = "wmsview.initMap"
	jsInvalidateSize = "wmsview.invalidateSize"
	jsAddWMS         = "wmsview.addWMS"
	jsAddPolyline    = "wmsview.addPolyline"
	jsRemoveOverlay  = "wmsview.removeOverlay"
)

// DOM targets.
const (
	legendContainer = "#legend-container"
	attributeInfo   = "#attribute-info"
)

type mapOptions struct {
	Center   service.LatLng    `json:"center"`
	Zoom     int               `json:"zoom"`
	Basemaps []service.Basemap `json:"basemaps"`
}

func (h *Handler) render(sse humastar.SSE, effects []service.Effect) {
	for _, e := range effects {
		if err := h.renderEffect(sse, e); err != nil {
			h.log.Warn().Err(err).Str("effect", fmt.Sprintf("%T", e)).Msg("failed to render effect")
			sse.Error("Display update failed")
		}
	}
}

func (h *Handler) renderEffect(sse humastar.SSE, e service.Effect) error {
	switch e := e.(type) {
	case service.PanelActivated:
		return sse.MarshalAndPatchSignals(map[string]any{"activePanel": e.Panel})

	case service.MapInitialized:
		return sse.Call(jsInitMap, mapOptions{Center: e.Center, Zoom: e.Zoom, Basemaps: e.Basemaps})

	case service.SizeInvalidated:
		return sse.Call(jsInvalidateSize, e.Delay.Milliseconds())

	case service.OverlayAdded:
		return sse.Call(jsAddWMS, e.ID, e.URL, e.Params)

	case service.OverlayRemoved:
		return sse.Call(jsRemoveOverlay, e.ID)

	case service.PolylineAdded:
		return sse.Call(jsAddPolyline, e.ID, latLngs(e.Path), e.Style)

	case service.DashOffsetChanged:
		return sse.MarshalAndPatchSignals(map[string]any{"flowOffset": e.Offset})

	case service.LegendShown:
		html, err := h.Renderer.Render("legend-item", e)
		if err != nil {
			return err
		}
		sse.Append(html, legendContainer)

	case service.LegendHidden:
		sse.Remove("legend-" + e.ID)

	case service.AttributesShown:
		html, err := h.Renderer.Render("attr-table", e)
		if err != nil {
			return err
		}
		sse.Patch(html, attributeInfo)
		return sse.MarshalAndPatchSignals(map[string]any{"attributesVisible": true})

	case service.AttributesHidden:
		return sse.MarshalAndPatchSignals(map[string]any{"attributesVisible": false})

	default:
		return fmt.Errorf("unhandled effect %T", e)
	}
	return nil
}

// latLngs converts a line string to the [lat, lng] pairs Leaflet expects.
func latLngs(ls orb.LineString) [][2]float64 {
	out := make([][2]float64, len(ls))
	for i, p := range ls {
		out[i] = [2]float64{p.Lat(), p.Lon()}
	}
	return out
}
