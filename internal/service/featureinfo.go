package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/paulmach/orb"

	"github.com/joeblew999/plat-wms/internal/metrics"
	"github.com/joeblew999/plat-wms/internal/wms"
)

// Pixel returns the clicked pixel inside the viewport. Client supplied
// coordinates win; otherwise the lat/lng is placed linearly in the bbox.
func (c Click) Pixel() (x, y int) {
	if c.X != nil && c.Y != nil {
		return *c.X, *c.Y
	}
	w := c.Bound.Max.X() - c.Bound.Min.X()
	h := c.Bound.Max.Y() - c.Bound.Min.Y()
	x = int(math.Round((c.Lng - c.Bound.Min.X()) / w * float64(c.Width)))
	y = int(math.Round((c.Bound.Max.Y() - c.Lat) / h * float64(c.Height)))
	return x, y
}

// Request builds the GetFeatureInfo request for a target layer.
func (c Click) Request(layer string) (wms.FeatureInfoRequest, error) {
	req := wms.FeatureInfoRequest{
		Layer:  layer,
		Bound:  c.Bound,
		Width:  c.Width,
		Height: c.Height,
	}
	if err := req.Validate(); err != nil {
		return req, err
	}
	req.X, req.Y = c.Pixel()
	return req, nil
}

// Point returns the clicked location.
func (c Click) Point() orb.Point {
	return orb.Point{c.Lng, c.Lat}
}

// QueryTarget returns the layer a click would query: the last inserted
// attached layer that is queryable.
func (v *ViewState) QueryTarget() (string, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.layers.Topmost(v.opts.Catalog.Queryable)
}

// Click looks up the attributes under a map click and returns the effects
// for the attribute panel. It returns no effects when no queryable layer is
// attached, when the lookup fails, or when a newer click superseded it.
func (v *ViewState) Click(ctx context.Context, c Click) []Effect {
	v.mu.Lock()
	target, ok := v.layers.Topmost(v.opts.Catalog.Queryable)
	if !ok {
		v.mu.Unlock()
		return nil
	}
	req, err := c.Request(target)
	if err != nil {
		v.mu.Unlock()
		v.log.Warn().Err(err).Str("layer", target).Msg("ignoring click")
		return nil
	}

	v.abandonQueryLocked()
	gen := v.query.generation
	qctx, cancel := context.WithCancel(ctx)
	v.query.cancel = cancel
	v.mu.Unlock()
	defer cancel()

	start := time.Now()
	info, err := v.opts.Fetcher.FeatureInfo(qctx, req)
	metrics.FeatureInfoDuration.WithLabelValues(target).Observe(time.Since(start).Seconds())

	v.mu.Lock()
	if gen != v.query.generation {
		v.mu.Unlock()
		metrics.FeatureInfoLookups.WithLabelValues(target, metrics.OutcomeStale).Inc()
		v.log.Debug().Str("layer", target).Uint64("generation", gen).Msg("discarding stale feature info")
		return nil
	}
	v.query.cancel = nil
	if err != nil {
		v.mu.Unlock()
		metrics.FeatureInfoLookups.WithLabelValues(target, metrics.OutcomeError).Inc()
		v.log.Error().Err(err).Str("layer", target).Msg("GeoServer query error")
		return nil
	}

	var effects []Effect
	if info.Empty() {
		effects = []Effect{v.hideAttributesLocked()}
		metrics.FeatureInfoLookups.WithLabelValues(target, metrics.OutcomeEmpty).Inc()
	} else {
		table := info.Table()
		v.attributes = attributeState{visible: true, layer: target, table: table}
		effects = []Effect{AttributesShown{Layer: target, Table: table}}
		metrics.FeatureInfoLookups.WithLabelValues(target, metrics.OutcomeFeatures).Inc()
	}
	effects = append(effects, SizeInvalidated{Delay: AttributeSettleDelay})
	v.mu.Unlock()

	v.record(ctx, target, c.Point(), len(info.Features))
	return effects
}

// abandonQueryLocked supersedes any lookup in flight.
func (v *ViewState) abandonQueryLocked() {
	v.query.generation++
	if v.query.cancel != nil {
		v.query.cancel()
		v.query.cancel = nil
	}
}

func (v *ViewState) record(ctx context.Context, layer string, p orb.Point, features int) {
	if v.opts.Recorder == nil {
		return
	}
	err := v.opts.Recorder.RecordLookup(context.WithoutCancel(ctx), Lookup{
		At:       time.Now().UTC(),
		Session:  v.id,
		Layer:    layer,
		Lon:      p.Lon(),
		Lat:      p.Lat(),
		Features: features,
	})
	if err != nil {
		v.log.Warn().Err(fmt.Errorf("record lookup: %w", err)).Msg("lookup history unavailable")
	}
}
