package wms

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// FeatureInfoRequest describes a GetFeatureInfo lookup: the viewport in
// pixels and degrees, and the clicked pixel inside it.
type FeatureInfoRequest struct {
	Layer  string
	Bound  orb.Bound
	Width  int
	Height int
	X      int
	Y      int
}

// Validate checks the request is well formed.
func (r FeatureInfoRequest) Validate() error {
	if r.Layer == "" {
		return fmt.Errorf("wms: layer is required")
	}
	if r.Width <= 0 || r.Height <= 0 {
		return fmt.Errorf("wms: viewport size %dx%d is not positive", r.Width, r.Height)
	}
	if r.Bound.Max.X() <= r.Bound.Min.X() || r.Bound.Max.Y() <= r.Bound.Min.Y() {
		return fmt.Errorf("wms: bbox %v is empty", r.Bound)
	}
	return nil
}

// FeatureInfoURL builds the GetFeatureInfo URL for a request.
func (c *Client) FeatureInfoURL(req FeatureInfoRequest) string {
	name := c.QualifiedName(req.Layer)
	q := url.Values{}
	q.Set("SERVICE", "WMS")
	q.Set("VERSION", Version)
	q.Set("REQUEST", "GetFeatureInfo")
	q.Set("QUERY_LAYERS", name)
	q.Set("LAYERS", name)
	q.Set("INFO_FORMAT", InfoFormat)
	q.Set("X", strconv.Itoa(req.X))
	q.Set("Y", strconv.Itoa(req.Y))
	q.Set("SRS", SRS)
	q.Set("WIDTH", strconv.Itoa(req.Width))
	q.Set("HEIGHT", strconv.Itoa(req.Height))
	q.Set("BBOX", FormatBBox(req.Bound))
	return c.baseURL + "?" + q.Encode()
}

// FormatBBox renders a bound as "minx,miny,maxx,maxy".
func FormatBBox(b orb.Bound) string {
	parts := []float64{b.Min.X(), b.Min.Y(), b.Max.X(), b.Max.Y()}
	out := make([]string, len(parts))
	for i, f := range parts {
		out[i] = strconv.FormatFloat(f, 'f', -1, 64)
	}
	return strings.Join(out, ",")
}

// ParseBBox parses "minx,miny,maxx,maxy".
func ParseBBox(s string) (orb.Bound, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return orb.Bound{}, fmt.Errorf("wms: bbox %q: want 4 values", s)
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return orb.Bound{}, fmt.Errorf("wms: bbox %q: %w", s, err)
		}
		v[i] = f
	}
	return orb.Bound{Min: orb.Point{v[0], v[1]}, Max: orb.Point{v[2], v[3]}}, nil
}

// StatusError is returned when the service answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("wms: unexpected status %d: %s", e.StatusCode, e.Body)
}

// FeatureInfo fetches and decodes a GetFeatureInfo response.
func (c *Client) FeatureInfo(ctx context.Context, req FeatureInfoRequest) (*FeatureInfo, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.FeatureInfoURL(req), nil)
	if err != nil {
		return nil, fmt.Errorf("wms: build request: %w", err)
	}
	httpReq.Header.Set("Accept", InfoFormat)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("wms: get feature info: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("wms: read feature info: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet := string(body)
		if len(snippet) > 200 {
			snippet = snippet[:200]
		}
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: snippet}
	}

	return ParseFeatureInfo(body)
}

// FeatureInfo is a decoded GetFeatureInfo JSON response.
type FeatureInfo struct {
	Features []Feature `json:"features"`
}

// Feature is one returned feature. Geometry is kept raw; GeoServer may omit
// it or return it in the layer's native CRS.
type Feature struct {
	ID         any             `json:"id,omitempty"`
	Geometry   json.RawMessage `json:"geometry,omitempty"`
	Properties Properties      `json:"properties"`
}

// ParseFeatureInfo decodes a GetFeatureInfo JSON body.
func ParseFeatureInfo(body []byte) (*FeatureInfo, error) {
	var info FeatureInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("wms: decode feature info: %w", err)
	}
	return &info, nil
}

// Empty reports whether no feature was returned.
func (fi *FeatureInfo) Empty() bool {
	return fi == nil || len(fi.Features) == 0
}

// Table returns the attribute table of the first feature, or nil when the
// response holds no features.
func (fi *FeatureInfo) Table() *AttributeTable {
	if fi.Empty() {
		return nil
	}
	return NewAttributeTable(fi.Features[0].Properties)
}

// Collection converts the response to a GeoJSON feature collection.
// Features whose geometry cannot be decoded are kept without geometry.
func (fi *FeatureInfo) Collection() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	if fi == nil {
		return fc
	}
	for _, f := range fi.Features {
		var geom orb.Geometry
		if len(f.Geometry) > 0 && string(f.Geometry) != "null" {
			if g, err := geojson.UnmarshalGeometry(f.Geometry); err == nil {
				geom = g.Geometry()
			}
		}
		gf := geojson.NewFeature(geom)
		gf.ID = f.ID
		gf.Properties = f.Properties.Map()
		fc.Append(gf)
	}
	return fc
}

// AttributeTable is a single-row table of scalar feature attributes.
type AttributeTable struct {
	Columns []string `json:"columns" doc:"Attribute names in document order"`
	Values  []string `json:"values" doc:"Attribute values, one per column"`
}

// NewAttributeTable keeps every non-null, non-nested property in order.
func NewAttributeTable(props Properties) *AttributeTable {
	t := &AttributeTable{Columns: []string{}, Values: []string{}}
	for _, p := range props {
		if !p.Scalar() {
			continue
		}
		t.Columns = append(t.Columns, p.Key)
		t.Values = append(t.Values, p.Text())
	}
	return t
}

// Cells pairs columns with values for templates.
func (t *AttributeTable) Cells() []Cell {
	cells := make([]Cell, len(t.Columns))
	for i := range t.Columns {
		cells[i] = Cell{Column: t.Columns[i], Value: t.Values[i]}
	}
	return cells
}

// Cell is one column/value pair.
type Cell struct {
	Column string
	Value  string
}
