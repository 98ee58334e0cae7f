package service

// LegendRegistry tracks which layers have a legend item on screen.
type LegendRegistry struct {
	urlFor func(layer string) string
	order  []string
	shown  map[string]bool
}

// NewLegendRegistry creates a registry that points legend images at urlFor.
func NewLegendRegistry(urlFor func(layer string) string) *LegendRegistry {
	return &LegendRegistry{urlFor: urlFor, shown: make(map[string]bool)}
}

// Show adds a legend item for a layer. Showing twice is a no-op.
func (r *LegendRegistry) Show(id, label string) []Effect {
	if r.shown[id] {
		return nil
	}
	r.shown[id] = true
	r.order = append(r.order, id)
	if label == "" {
		label = id
	}
	return []Effect{LegendShown{ID: id, Label: label, ImageURL: r.urlFor(id)}}
}

// Hide removes a layer's legend item if present.
func (r *LegendRegistry) Hide(id string) []Effect {
	if !r.shown[id] {
		return nil
	}
	delete(r.shown, id)
	for i, o := range r.order {
		if o == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return []Effect{LegendHidden{ID: id}}
}

// Shown reports whether a layer's legend is displayed.
func (r *LegendRegistry) Shown(id string) bool {
	return r.shown[id]
}

// IDs returns the displayed legends in display order.
func (r *LegendRegistry) IDs() []string {
	return append([]string(nil), r.order...)
}
