// Package wms talks to an OGC Web Map Service (GeoServer) on behalf of the
// viewer: overlay parameters for GetMap, GetFeatureInfo lookups and
// GetLegendGraphic URLs.
package wms

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Defaults for the Narmada GeoServer deployment.
const (
	DefaultBaseURL   = "http://143.110.254.16:8080/geoserver/Narmada/wms"
	DefaultWorkspace = "Narmada"
	Version          = "1.1.1"
	SRS              = "EPSG:4326"
	ImageFormat      = "image/png"
	InfoFormat       = "application/json"
)

// Config holds the WMS client configuration.
type Config struct {
	BaseURL   string
	Workspace string
	Timeout   time.Duration
}

// Client builds WMS requests against a single service endpoint.
type Client struct {
	baseURL   string
	workspace string
	http      *http.Client
}

// New creates a WMS client. Zero fields fall back to the package defaults.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Workspace == "" {
		cfg.Workspace = DefaultWorkspace
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "?"),
		workspace: cfg.Workspace,
		http:      &http.Client{Timeout: cfg.Timeout},
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.http = hc
	return c
}

// BaseURL returns the service endpoint.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Workspace returns the GeoServer workspace layer names are qualified with.
func (c *Client) Workspace() string {
	return c.workspace
}

// QualifiedName returns "<workspace>:<layer>".
func (c *Client) QualifiedName(layer string) string {
	return c.workspace + ":" + layer
}

// OverlayParams are the options a tiled WMS overlay is created with on the
// map. Field names follow the mapping library's WMS layer options.
type OverlayParams struct {
	Layers      string `json:"layers"`
	Transparent bool   `json:"transparent"`
	Format      string `json:"format"`
	Version     string `json:"version"`
	SRS         string `json:"srs"`
}

// Overlay returns the GetMap overlay parameters for a layer.
func (c *Client) Overlay(layer string) OverlayParams {
	return OverlayParams{
		Layers:      c.QualifiedName(layer),
		Transparent: true,
		Format:      ImageFormat,
		Version:     Version,
		SRS:         SRS,
	}
}

// Legend sizing and options for GetLegendGraphic.
const (
	LegendWidth   = 24
	LegendHeight  = 24
	LegendOptions = "fontSize:12;fontAntiAliasing:true;hideLayerName:true"
)

// LegendURL returns the GetLegendGraphic image URL for a layer.
func (c *Client) LegendURL(layer string) string {
	q := url.Values{}
	q.Set("service", "WMS")
	q.Set("request", "GetLegendGraphic")
	q.Set("format", ImageFormat)
	q.Set("layer", c.QualifiedName(layer))
	q.Set("width", fmt.Sprint(LegendWidth))
	q.Set("height", fmt.Sprint(LegendHeight))
	q.Set("LEGEND_OPTIONS", LegendOptions)
	return c.baseURL + "?" + q.Encode()
}
