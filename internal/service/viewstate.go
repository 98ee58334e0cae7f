package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/joeblew999/plat-wms/internal/wms"
)

// Domain errors returned by the controllers.
var (
	ErrUnknownLayer = errors.New("unknown layer")
	ErrUnknownPanel = errors.New("unknown panel")
	ErrMapNotReady  = errors.New("map is not initialized")
	ErrNoSession    = errors.New("no viewer session")
)

// FeatureInfoFetcher performs GetFeatureInfo lookups. *wms.Client
// implements it.
type FeatureInfoFetcher interface {
	FeatureInfo(ctx context.Context, req wms.FeatureInfoRequest) (*wms.FeatureInfo, error)
}

// Lookup is an applied attribute lookup.
type Lookup struct {
	At       time.Time
	Session  string
	Layer    string
	Lon      float64
	Lat      float64
	Features int
}

// LookupRecorder keeps a log of attribute lookups.
type LookupRecorder interface {
	RecordLookup(ctx context.Context, l Lookup) error
}

// Options are the dependencies shared by every ViewState.
type Options struct {
	Catalog  *Catalog
	WMS      *wms.Client
	Fetcher  FeatureInfoFetcher
	Frames   FrameScheduler
	Recorder LookupRecorder
	Logger   zerolog.Logger
}

// ViewState owns all mutable state of one viewer session. Every controller
// method takes the lock, so handlers may call them from any goroutine.
type ViewState struct {
	id   string
	opts Options
	log  zerolog.Logger
	bus  *EventBus

	mu         sync.Mutex
	tabs       tabState
	layers     *LayerSet
	legend     *LegendRegistry
	attributes attributeState
	query      queryState
	flow       flowState
	closed     bool
}

type attributeState struct {
	visible bool
	layer   string
	table   *wms.AttributeTable
}

type queryState struct {
	generation uint64
	cancel     context.CancelFunc
}

// NewViewState creates the state for a session.
func NewViewState(id string, opts Options) *ViewState {
	if opts.Catalog == nil {
		opts.Catalog = DefaultCatalog()
	}
	if opts.WMS == nil {
		opts.WMS = wms.New(wms.Config{})
	}
	if opts.Fetcher == nil {
		opts.Fetcher = opts.WMS
	}
	if opts.Frames == nil {
		opts.Frames = NewTickerScheduler(0)
	}
	v := &ViewState{
		id:     id,
		opts:   opts,
		log:    opts.Logger.With().Str("session", id).Logger(),
		bus:    NewEventBus(),
		layers: NewLayerSet(),
		legend: NewLegendRegistry(opts.WMS.LegendURL),
	}
	if len(opts.Catalog.Panels) > 0 {
		v.tabs.active = opts.Catalog.Panels[0]
	}
	return v
}

// ID returns the session id.
func (v *ViewState) ID() string {
	return v.id
}

// Catalog returns the catalog the state was created with.
func (v *ViewState) Catalog() *Catalog {
	return v.opts.Catalog
}

// Bus returns the session's event bus.
func (v *ViewState) Bus() *EventBus {
	return v.bus
}

// Snapshot is a read-only copy of a ViewState.
type Snapshot struct {
	ActivePanel       string
	MapInitialized    bool
	Layers            []string
	Legends           []string
	AttributesVisible bool
	AttributesLayer   string
	Attributes        *wms.AttributeTable
	Animating         bool
	Offset            int
	Generation        uint64
}

// Snapshot returns the current state.
func (v *ViewState) Snapshot() Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	return Snapshot{
		ActivePanel:       v.tabs.active,
		MapInitialized:    v.tabs.mapInitialized,
		Layers:            v.layers.IDs(),
		Legends:           v.legend.IDs(),
		AttributesVisible: v.attributes.visible,
		AttributesLayer:   v.attributes.layer,
		Attributes:        v.attributes.table,
		Animating:         v.flow.running,
		Offset:            v.flow.offset,
		Generation:        v.query.generation,
	}
}

// Close stops the animation, abandons any in-flight lookup and drops the
// event subscribers. The state must not be used afterwards.
func (v *ViewState) Close() {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	v.closed = true
	v.stopFlowLocked()
	v.query.generation++
	if v.query.cancel != nil {
		v.query.cancel()
		v.query.cancel = nil
	}
	v.mu.Unlock()
	v.bus.Close()
}

// Closed reports whether Close has been called.
func (v *ViewState) Closed() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.closed
}

func (v *ViewState) hideAttributesLocked() Effect {
	v.attributes = attributeState{}
	return AttributesHidden{}
}
