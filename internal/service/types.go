// Package service contains the view logic of the map viewer: the per-session
// ViewState and the controllers that mutate it.
package service

import "github.com/paulmach/orb"

// Catalog is the static configuration of the viewer: which layers can be
// toggled, which of them answer attribute queries, the basemaps and the
// decorative flow path. It is immutable after startup.
type Catalog struct {
	Center   LatLng      `yaml:"center" json:"center" doc:"Initial map center"`
	Zoom     int         `yaml:"zoom" json:"zoom" doc:"Initial zoom level" example:"14"`
	Panels   []string    `yaml:"panels" json:"panels" doc:"Panel ids in tab order"`
	MapPanel string      `yaml:"map_panel" json:"mapPanel" doc:"Panel that hosts the map" example:"data"`
	Basemaps []Basemap   `yaml:"basemaps" json:"basemaps" doc:"Base tile layers"`
	Layers   []LayerInfo `yaml:"layers" json:"layers" doc:"Toggleable WMS layers"`
	Flow     FlowConfig  `yaml:"flow" json:"flow" doc:"Animated flow overlay"`
}

// LatLng is a [lat, lng] pair as the mapping library expects it.
type LatLng [2]float64

// Point converts to an orb point (lng, lat).
func (ll LatLng) Point() orb.Point {
	return orb.Point{ll[1], ll[0]}
}

// Basemap is an XYZ tile template.
type Basemap struct {
	Name        string `yaml:"name" json:"name" doc:"Display name" example:"Satellite"`
	URL         string `yaml:"url" json:"url" doc:"XYZ tile URL template"`
	Attribution string `yaml:"attribution,omitempty" json:"attribution,omitempty" doc:"Attribution text"`
	Default     bool   `yaml:"default,omitempty" json:"default,omitempty" doc:"Shown on map creation"`
}

// LayerInfo describes one toggleable WMS layer.
type LayerInfo struct {
	ID        string `yaml:"id" json:"id" doc:"Layer name within the workspace" example:"Road"`
	Label     string `yaml:"label,omitempty" json:"label" doc:"Display label" example:"Road"`
	Queryable bool   `yaml:"queryable,omitempty" json:"queryable" doc:"Whether clicks query its attributes"`
}

// FlowConfig is the decorative flow polyline and its dashed stroke.
type FlowConfig struct {
	Path    [][2]float64 `yaml:"path" json:"path" doc:"Coordinates as [lng, lat]"`
	Color   string       `yaml:"color" json:"color" example:"#00f5ff"`
	Weight  int          `yaml:"weight" json:"weight" example:"8"`
	Opacity float64      `yaml:"opacity" json:"opacity" example:"0.8"`
	Dash    string       `yaml:"dash" json:"dash" example:"15, 30"`
}

// LineString returns the flow path as an orb line string.
func (f FlowConfig) LineString() orb.LineString {
	ls := make(orb.LineString, len(f.Path))
	for i, p := range f.Path {
		ls[i] = orb.Point{p[0], p[1]}
	}
	return ls
}

// PolylineStyle is the stroke style of a vector overlay.
type PolylineStyle struct {
	Color      string  `json:"color"`
	Weight     int     `json:"weight"`
	Opacity    float64 `json:"opacity"`
	DashArray  string  `json:"dashArray"`
	DashOffset int     `json:"dashOffset"`
}

// Style returns the polyline style for the flow overlay.
func (f FlowConfig) Style() PolylineStyle {
	return PolylineStyle{
		Color:     f.Color,
		Weight:    f.Weight,
		Opacity:   f.Opacity,
		DashArray: f.Dash,
	}
}

// Click is a map click in viewport terms.
type Click struct {
	Lat    float64
	Lng    float64
	X      *int
	Y      *int
	Width  int
	Height int
	Bound  orb.Bound
}
