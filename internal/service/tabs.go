package service

import "fmt"

// tabState is the panel state machine: one active panel out of the
// catalog's panels, plus the one-time map initialization flag.
type tabState struct {
	active         string
	mapInitialized bool
}

// Activate switches to a panel. Entering the map panel creates the map the
// first time and always asks it to recompute its size once the layout has
// settled.
func (v *ViewState) Activate(panel string) ([]Effect, error) {
	cat := v.opts.Catalog
	if !cat.HasPanel(panel) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPanel, panel)
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	v.tabs.active = panel
	effects := []Effect{PanelActivated{Panel: panel}}
	if panel != cat.MapPanel {
		return effects, nil
	}

	if !v.tabs.mapInitialized {
		v.tabs.mapInitialized = true
		v.log.Debug().Msg("map initialized")
		effects = append(effects, MapInitialized{
			Center:   cat.Center,
			Zoom:     cat.Zoom,
			Basemaps: cat.Basemaps,
		})
	}
	return append(effects, SizeInvalidated{Delay: PanelSettleDelay}), nil
}

// ActivePanel returns the active panel id.
func (v *ViewState) ActivePanel() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.tabs.active
}
