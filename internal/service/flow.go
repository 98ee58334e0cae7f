package service

import (
	"time"

	"github.com/joeblew999/plat-wms/internal/metrics"
)

// FlowOverlayID is the overlay id of the flow polyline.
const FlowOverlayID = "flow"

// flowState is the animation loop state. token changes on every start so a
// frame callback from an earlier run can tell it is obsolete.
type flowState struct {
	running bool
	frame   FrameID
	token   uint64
	offset  int
}

// SetAnimating starts or stops the flow animation. Starting needs the map;
// stopping cancels the pending frame and no offset change happens after it
// returns.
func (v *ViewState) SetAnimating(enabled bool) ([]Effect, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if enabled {
		if v.flow.running || v.closed {
			return nil, nil
		}
		if !v.tabs.mapInitialized {
			return nil, ErrMapNotReady
		}
		flow := v.opts.Catalog.Flow
		style := flow.Style()
		style.DashOffset = v.flow.offset

		v.flow.running = true
		v.flow.token++
		v.requestFrameLocked()
		v.log.Debug().Msg("flow animation started")
		return []Effect{PolylineAdded{ID: FlowOverlayID, Path: flow.LineString(), Style: style}}, nil
	}

	if !v.flow.running {
		return nil, nil
	}
	v.stopFlowLocked()
	v.log.Debug().Int("offset", v.flow.offset).Msg("flow animation stopped")
	return []Effect{OverlayRemoved{ID: FlowOverlayID}}, nil
}

// Offset returns the current dash offset.
func (v *ViewState) Offset() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.flow.offset
}

func (v *ViewState) stopFlowLocked() {
	if !v.flow.running {
		return
	}
	v.flow.running = false
	v.opts.Frames.CancelFrame(v.flow.frame)
}

func (v *ViewState) requestFrameLocked() {
	token := v.flow.token
	v.flow.frame = v.opts.Frames.RequestFrame(func(time.Time) {
		v.animateFrame(token)
	})
}

func (v *ViewState) animateFrame(token uint64) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.flow.running || v.flow.token != token {
		return
	}
	v.flow.offset--
	v.bus.Publish(DashOffsetChanged{ID: FlowOverlayID, Offset: v.flow.offset})
	metrics.FlowFrames.Inc()
	v.requestFrameLocked()
}
