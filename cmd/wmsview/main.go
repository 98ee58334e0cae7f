package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync/atomic"
	"text/tabwriter"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/joeblew999/plat-wms/internal/server"
	"github.com/joeblew999/plat-wms/internal/service"
	"github.com/joeblew999/plat-wms/internal/wms"
)

// Options defines all CLI flags and env vars for the viewer server.
// Flags: --host, --port, --geoserver-url, --workspace, ...
// Env vars: SERVICE_HOST, SERVICE_PORT, SERVICE_GEOSERVER_URL, ...
type Options struct {
	Host          string `doc:"Host to bind to" default:"0.0.0.0"`
	Port          int    `doc:"Port to listen on" short:"p" default:"8086"`
	GeoserverURL  string `doc:"GeoServer WMS endpoint" default:"http://143.110.254.16:8080/geoserver/Narmada/wms"`
	Workspace     string `doc:"GeoServer workspace layer names are qualified with" default:"Narmada"`
	Catalog       string `doc:"Layer catalog YAML file (built-in catalog when empty)"`
	FrameInterval string `doc:"Flow animation frame interval" default:"33ms"`
	SessionTTL    string `doc:"Idle viewer session lifetime" default:"30m"`
	QueryTimeout  string `doc:"GeoServer request timeout" default:"10s"`
	HistoryDB     string `doc:"DuckDB file for lookup history (in memory when empty, 'off' to disable)"`
	RateLimit     int    `doc:"Max API requests per client IP per minute (0 disables)" default:"0"`
	LogLevel      string `doc:"Log level (debug, info, warn, error)" default:"info"`
	LogFormat     string `doc:"Log format (console, json)" default:"console"`
}

func newLogger(opts *Options) zerolog.Logger {
	level, err := zerolog.ParseLevel(opts.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	var logger zerolog.Logger
	if opts.LogFormat == "json" {
		logger = zerolog.New(os.Stderr)
	} else {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
	return logger.Level(level).With().Timestamp().Logger()
}

func duration(name, value string) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("--%s: %w", name, err)
	}
	return d, nil
}

func wmsConfig(opts *Options) (wms.Config, error) {
	timeout, err := duration("query-timeout", opts.QueryTimeout)
	if err != nil {
		return wms.Config{}, err
	}
	return wms.Config{BaseURL: opts.GeoserverURL, Workspace: opts.Workspace, Timeout: timeout}, nil
}

func newServer(opts *Options, logger zerolog.Logger) (*server.Server, error) {
	wcfg, err := wmsConfig(opts)
	if err != nil {
		return nil, err
	}
	frame, err := duration("frame-interval", opts.FrameInterval)
	if err != nil {
		return nil, err
	}
	ttl, err := duration("session-ttl", opts.SessionTTL)
	if err != nil {
		return nil, err
	}
	return server.New(server.Config{
		Host:          opts.Host,
		Port:          fmt.Sprintf("%d", opts.Port),
		WMS:           wcfg,
		CatalogPath:   opts.Catalog,
		FrameInterval: frame,
		SessionTTL:    ttl,
		HistoryDB:     opts.HistoryDB,
		RateLimit:     opts.RateLimit,
		Logger:        logger,
	})
}

func fatal(logger zerolog.Logger, err error, msg string) {
	logger.Error().Err(err).Msg(msg)
	os.Exit(1)
}

func main() {
	cli := humacli.New(func(hooks humacli.Hooks, opts *Options) {
		logger := newLogger(opts)
		// OnStart and OnStop run on different goroutines.
		var running atomic.Pointer[http.Server]

		hooks.OnStart(func() {
			if err := serve(opts, logger, &running); err != nil {
				fatal(logger, err, "server error")
			}
		})

		hooks.OnStop(func() {
			shutdown(&running, logger)
		})
	})

	cli.Root().Use = "wmsview"
	cli.Root().Short = "Map viewer for GeoServer WMS layers"
	cli.Root().Version = "0.1.0"

	// spec subcommand: export OpenAPI spec
	specCmd := &cobra.Command{
		Use:   "spec",
		Short: "Export OpenAPI spec (JSON by default, --yaml for YAML)",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			logger := newLogger(opts)
			useYAML, _ := cmd.Flags().GetBool("yaml")
			output, err := exportSpec(opts, logger, useYAML)
			if err != nil {
				fatal(logger, err, "failed to export spec")
			}
			fmt.Println(string(output))
		}),
	}
	specCmd.Flags().BoolP("yaml", "y", false, "Output as YAML instead of JSON")
	cli.Root().AddCommand(specCmd)

	// catalog subcommand: print the effective layer catalog
	cli.Root().AddCommand(&cobra.Command{
		Use:   "catalog",
		Short: "Print the layer catalog as YAML",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			logger := newLogger(opts)
			cat, err := service.LoadCatalog(opts.Catalog)
			if err != nil {
				fatal(logger, err, "failed to load catalog")
			}
			out, err := cat.YAML()
			if err != nil {
				fatal(logger, err, "failed to encode catalog")
			}
			os.Stdout.Write(out)
		}),
	})

	// featureinfo subcommand: one attribute lookup around a point
	infoCmd := &cobra.Command{
		Use:   "featureinfo",
		Short: "Query a layer's attributes at a point",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			logger := newLogger(opts)
			layer, _ := cmd.Flags().GetString("layer")
			lat, _ := cmd.Flags().GetFloat64("lat")
			lng, _ := cmd.Flags().GetFloat64("lng")
			radius, _ := cmd.Flags().GetFloat64("radius")

			if err := lookup(cmd.Context(), opts, layer, orb.Point{lng, lat}, radius); err != nil {
				fatal(logger, err, "lookup failed")
			}
		}),
	}
	infoCmd.Flags().String("layer", "Road", "Layer id")
	infoCmd.Flags().Float64("lat", 23.12, "Latitude")
	infoCmd.Flags().Float64("lng", 79.91, "Longitude")
	infoCmd.Flags().Float64("radius", 50, "Search radius in meters")
	cli.Root().AddCommand(infoCmd)

	cli.Run()
}

// serve runs the viewer until the HTTP server is shut down. The server's
// resources are released on every return path.
func serve(opts *Options, logger zerolog.Logger, running *atomic.Pointer[http.Server]) error {
	srv, err := newServer(opts, logger)
	if err != nil {
		return err
	}
	defer srv.Close()

	addr := fmt.Sprintf("%s:%d", opts.Host, opts.Port)
	displayHost := opts.Host
	if displayHost == "0.0.0.0" {
		displayHost = "localhost"
	}
	baseURL := fmt.Sprintf("http://%s:%d", displayHost, opts.Port)

	fmt.Println()
	fmt.Printf("plat-wms viewer starting...\n")
	fmt.Printf("  Server:    %s\n", baseURL)
	fmt.Printf("  GeoServer: %s\n", opts.GeoserverURL)
	fmt.Println()
	fmt.Printf("  Viewer:    %s/viewer\n", baseURL)
	fmt.Printf("  Docs:      %s/docs\n", baseURL)
	fmt.Printf("  OpenAPI:   %s/openapi.json\n", baseURL)
	fmt.Printf("  Metrics:   %s/metrics\n", baseURL)
	fmt.Println()

	httpServer := &http.Server{Addr: addr, Handler: srv}
	running.Store(httpServer)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// shutdown gracefully stops the server started by serve, if any.
func shutdown(running *atomic.Pointer[http.Server], logger zerolog.Logger) {
	httpServer := running.Load()
	if httpServer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Warn().Err(err).Msg("shutdown")
	}
}

func exportSpec(opts *Options, logger zerolog.Logger, useYAML bool) ([]byte, error) {
	opts.HistoryDB = server.HistoryOff
	srv, err := newServer(opts, logger)
	if err != nil {
		return nil, err
	}
	defer srv.Close()

	if useYAML {
		return yaml.Marshal(srv.OpenAPI())
	}
	return json.MarshalIndent(srv.OpenAPI(), "", "  ")
}

// lookupSize is the pixel size of the synthetic viewport a CLI lookup is
// made in; the point sits at its center.
const lookupSize = 101

func lookup(ctx context.Context, opts *Options, layer string, p orb.Point, radius float64) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := wmsConfig(opts)
	if err != nil {
		return err
	}
	client := wms.New(cfg)

	info, err := client.FeatureInfo(ctx, wms.FeatureInfoRequest{
		Layer:  layer,
		Bound:  geo.NewBoundAroundPoint(p, radius),
		Width:  lookupSize,
		Height: lookupSize,
		X:      lookupSize / 2,
		Y:      lookupSize / 2,
	})
	if err != nil {
		return err
	}
	if info.Empty() {
		fmt.Println("No features found.")
		return nil
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	for _, c := range info.Table().Cells() {
		fmt.Fprintf(tw, "%s\t%s\n", c.Column, strings.ReplaceAll(c.Value, "\n", " "))
	}
	fmt.Fprintf(tw, "\n%d feature(s)\n", len(info.Features))
	return tw.Flush()
}
