package service

import (
	"fmt"

	"github.com/joeblew999/plat-wms/internal/metrics"
	"github.com/joeblew999/plat-wms/internal/wms"
)

// Overlay is a WMS overlay attached to the map.
type Overlay struct {
	ID     string
	URL    string
	Params wms.OverlayParams
}

// LayerSet is the layer mapping: layer id to attached overlay, in insertion
// order. An id is present iff its overlay is on the map.
type LayerSet struct {
	order    []string
	overlays map[string]*Overlay
}

// NewLayerSet creates an empty layer set.
func NewLayerSet() *LayerSet {
	return &LayerSet{overlays: make(map[string]*Overlay)}
}

// Has reports whether a layer is attached.
func (s *LayerSet) Has(id string) bool {
	_, ok := s.overlays[id]
	return ok
}

// Get returns the overlay for a layer.
func (s *LayerSet) Get(id string) (*Overlay, bool) {
	o, ok := s.overlays[id]
	return o, ok
}

// Add records an overlay as the most recently inserted.
func (s *LayerSet) Add(o *Overlay) {
	if s.Has(o.ID) {
		s.Remove(o.ID)
	}
	s.overlays[o.ID] = o
	s.order = append(s.order, o.ID)
}

// Remove deletes a layer from the set.
func (s *LayerSet) Remove(id string) {
	if !s.Has(id) {
		return
	}
	delete(s.overlays, id)
	for i, o := range s.order {
		if o == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// IDs returns attached layer ids in insertion order.
func (s *LayerSet) IDs() []string {
	return append([]string(nil), s.order...)
}

// Len returns the number of attached layers.
func (s *LayerSet) Len() int {
	return len(s.order)
}

// Topmost returns the last-inserted layer accepted by keep.
func (s *LayerSet) Topmost(keep func(id string) bool) (string, bool) {
	for i := len(s.order) - 1; i >= 0; i-- {
		if keep(s.order[i]) {
			return s.order[i], true
		}
	}
	return "", false
}

// SetLayer attaches or detaches a layer's WMS overlay. Requests that match
// the current state are no-ops.
func (v *ViewState) SetLayer(id string, enabled bool) ([]Effect, error) {
	info, ok := v.opts.Catalog.Layer(id)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownLayer, id)
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.tabs.mapInitialized {
		return nil, ErrMapNotReady
	}

	if enabled {
		if v.layers.Has(id) {
			return nil, nil
		}
		o := &Overlay{ID: id, URL: v.opts.WMS.BaseURL(), Params: v.opts.WMS.Overlay(id)}
		v.layers.Add(o)
		metrics.LayerToggles.WithLabelValues(id, "add").Inc()
		v.log.Debug().Str("layer", id).Msg("layer added")

		effects := []Effect{OverlayAdded{ID: o.ID, URL: o.URL, Params: o.Params}}
		return append(effects, v.legend.Show(id, info.Label)...), nil
	}

	if !v.layers.Has(id) {
		return nil, nil
	}
	v.layers.Remove(id)
	metrics.LayerToggles.WithLabelValues(id, "remove").Inc()
	v.log.Debug().Str("layer", id).Msg("layer removed")

	// The shown attributes may belong to this layer, and so may a lookup
	// still in flight.
	v.abandonQueryLocked()

	effects := []Effect{OverlayRemoved{ID: id}}
	effects = append(effects, v.legend.Hide(id)...)
	return append(effects,
		v.hideAttributesLocked(),
		SizeInvalidated{Delay: AttributeSettleDelay},
	), nil
}

// ActiveLayers returns attached layer ids in insertion order.
func (v *ViewState) ActiveLayers() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.layers.IDs()
}
