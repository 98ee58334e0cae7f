package main

import (
	"encoding/json"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDuration(t *testing.T) {
	d, err := duration("frame-interval", "33ms")
	require.NoError(t, err)
	assert.Equal(t, 33*time.Millisecond, d)

	d, err = duration("frame-interval", "")
	require.NoError(t, err)
	assert.Zero(t, d)

	_, err = duration("session-ttl", "soon")
	assert.ErrorContains(t, err, "--session-ttl")
}

func TestNewLogger(t *testing.T) {
	logger := newLogger(&Options{LogLevel: "debug", LogFormat: "json"})
	assert.Equal(t, zerolog.DebugLevel, logger.GetLevel())

	logger = newLogger(&Options{LogLevel: "loud"})
	assert.Equal(t, zerolog.InfoLevel, logger.GetLevel())
}

func TestWMSConfig(t *testing.T) {
	cfg, err := wmsConfig(&Options{GeoserverURL: "http://geo.example/wms", Workspace: "Narmada", QueryTimeout: "2s"})
	require.NoError(t, err)
	assert.Equal(t, "http://geo.example/wms", cfg.BaseURL)
	assert.Equal(t, 2*time.Second, cfg.Timeout)

	_, err = wmsConfig(&Options{QueryTimeout: "x"})
	assert.Error(t, err)
}

func testOptions() *Options {
	return &Options{
		Host:          "127.0.0.1",
		Port:          0,
		GeoserverURL:  "http://geo.example/wms",
		Workspace:     "Narmada",
		FrameInterval: "33ms",
		SessionTTL:    "1m",
		QueryTimeout:  "1s",
		HistoryDB:     "off",
	}
}

func TestServeShutsDown(t *testing.T) {
	var running atomic.Pointer[http.Server]
	done := make(chan error, 1)
	go func() { done <- serve(testOptions(), zerolog.Nop(), &running) }()

	require.Eventually(t, func() bool { return running.Load() != nil }, 5*time.Second, 10*time.Millisecond)
	shutdown(&running, zerolog.Nop())

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestServeReportsBadOptions(t *testing.T) {
	opts := testOptions()
	opts.FrameInterval = "often"
	var running atomic.Pointer[http.Server]

	err := serve(opts, zerolog.Nop(), &running)
	assert.ErrorContains(t, err, "--frame-interval")
	assert.Nil(t, running.Load())

	// Stopping before anything started is harmless.
	shutdown(&running, zerolog.Nop())
}

func TestExportSpec(t *testing.T) {
	out, err := exportSpec(testOptions(), zerolog.Nop(), false)
	require.NoError(t, err)

	var doc struct {
		Paths map[string]any `json:"paths"`
	}
	require.NoError(t, json.Unmarshal(out, &doc))
	assert.Contains(t, doc.Paths, "/api/v1/view/flow")

	out, err = exportSpec(testOptions(), zerolog.Nop(), true)
	require.NoError(t, err)
	assert.Contains(t, string(out), "/api/v1/featureinfo")
}
