package service

import (
	"time"

	"github.com/paulmach/orb"

	"github.com/joeblew999/plat-wms/internal/wms"
)

// Effect is a change the browser must apply to stay in sync with a
// ViewState. Controllers return effects; the viewer handlers render them.
type Effect interface {
	effect()
}

// PanelActivated shows one panel and marks its tab active.
type PanelActivated struct {
	Panel string
}

// MapInitialized creates the map on the map panel.
type MapInitialized struct {
	Center   LatLng
	Zoom     int
	Basemaps []Basemap
}

// SizeInvalidated asks the map to recompute its size after a delay.
type SizeInvalidated struct {
	Delay time.Duration
}

// OverlayAdded attaches a WMS overlay.
type OverlayAdded struct {
	ID     string
	URL    string
	Params wms.OverlayParams
}

// OverlayRemoved detaches an overlay (WMS or polyline).
type OverlayRemoved struct {
	ID string
}

// PolylineAdded attaches a vector polyline.
type PolylineAdded struct {
	ID    string
	Path  orb.LineString
	Style PolylineStyle
}

// DashOffsetChanged moves the dash pattern of a polyline.
type DashOffsetChanged struct {
	ID     string
	Offset int
}

// LegendShown adds a legend item.
type LegendShown struct {
	ID       string
	Label    string
	ImageURL string
}

// LegendHidden removes a legend item.
type LegendHidden struct {
	ID string
}

// AttributesShown fills and shows the attribute panel.
type AttributesShown struct {
	Layer string
	Table *wms.AttributeTable
}

// AttributesHidden hides the attribute panel.
type AttributesHidden struct{}

func (PanelActivated) effect()    {}
func (MapInitialized) effect()    {}
func (SizeInvalidated) effect()   {}
func (OverlayAdded) effect()      {}
func (OverlayRemoved) effect()    {}
func (PolylineAdded) effect()     {}
func (DashOffsetChanged) effect() {}
func (LegendShown) effect()       {}
func (LegendHidden) effect()      {}
func (AttributesShown) effect()   {}
func (AttributesHidden) effect()  {}

// Delays before the map recomputes its size: the panel switch needs the
// layout to settle longer than an attribute panel toggle.
const (
	PanelSettleDelay     = 300 * time.Millisecond
	AttributeSettleDelay = 100 * time.Millisecond
)
