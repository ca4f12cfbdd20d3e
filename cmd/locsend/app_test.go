package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benmeehan/location-sender/internal/utils"
	"github.com/benmeehan/location-sender/pkg/transport"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sentence = "$GPRMC,123519,A,3401.320,N,11817.100,W,022.4,084.4,230394,003.1,W*72"

// telemetryServer counts posts and keeps the last request it saw.
type telemetryServer struct {
	*httptest.Server
	hits   atomic.Int32
	status int

	mu       sync.Mutex
	last     map[string]any
	lastPath string
}

func (ts *telemetryServer) lastBody() map[string]any {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.last
}

func newTelemetryServer(t *testing.T, status int) *telemetryServer {
	t.Helper()
	ts := &telemetryServer{status: status}
	ts.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ts.hits.Add(1)
		body, _ := io.ReadAll(r.Body)
		ts.mu.Lock()
		ts.last = nil
		_ = json.Unmarshal(body, &ts.last)
		ts.lastPath = r.URL.Path
		ts.mu.Unlock()
		w.WriteHeader(ts.status)
		if ts.status >= 300 {
			_, _ = w.Write([]byte("rejected"))
		}
	}))
	t.Cleanup(ts.Close)
	return ts
}

// testApp returns an app whose transport factory counts how often it is used.
func testApp(stdout, stderr *bytes.Buffer, opened *int) *app {
	a := newApp(stdout, stderr)
	inner := a.newTransport
	a.newTransport = func(config *utils.Config, logger zerolog.Logger) (transport.Transport, error) {
		*opened++
		return inner(config, logger)
	}
	return a
}

func TestRun_MissingPosition_IsUsageError(t *testing.T) {
	var stdout, stderr bytes.Buffer
	opened := 0

	code := testApp(&stdout, &stderr, &opened).run(context.Background(), []string{"--token", "T"})

	assert.Equal(t, exitUsage, code)
	assert.Equal(t, 0, opened)
	assert.Contains(t, stderr.String(), "--lat and --lon are required")
	assert.Contains(t, stderr.String(), "Usage:")
	assert.Empty(t, stdout.String())
}

func TestRun_OnlyLatitude_IsUsageError(t *testing.T) {
	var stdout, stderr bytes.Buffer
	opened := 0

	code := testApp(&stdout, &stderr, &opened).run(context.Background(), []string{"--token", "T", "--lat", "34.0"})

	assert.Equal(t, exitUsage, code)
	assert.Equal(t, 0, opened)
}

func TestRun_SimulateWithoutPosition_IsUsageError(t *testing.T) {
	var stdout, stderr bytes.Buffer
	opened := 0

	code := testApp(&stdout, &stderr, &opened).run(context.Background(), []string{"--token", "T", "--simulate"})

	assert.Equal(t, exitUsage, code)
	assert.Equal(t, 0, opened)
	assert.Contains(t, stderr.String(), "--simulate requires --lat and --lon for starting position")
}

func TestRun_MissingToken_IsUsageError(t *testing.T) {
	var stdout, stderr bytes.Buffer
	opened := 0

	code := testApp(&stdout, &stderr, &opened).run(context.Background(), []string{"--lat", "1", "--lon", "2"})

	assert.Equal(t, exitUsage, code)
	assert.Equal(t, 0, opened)
	assert.Contains(t, stderr.String(), "--token")
}

func TestRun_InvalidCombinations(t *testing.T) {
	cases := map[string][]string{
		"bad float":         {"--token", "T", "--lat", "north", "--lon", "2"},
		"unknown transport": {"--token", "T", "--lat", "1", "--lon", "2", "--transport", "coap"},
		"mqtt no broker":    {"--token", "T", "--lat", "1", "--lon", "2", "--transport", "mqtt"},
		"two positions":     {"--token", "T", "--lat", "1", "--lon", "2", "--nmea", sentence},
		"zero interval":     {"--token", "T", "--lat", "1", "--lon", "2", "--simulate", "--interval", "0"},
		"stray argument":    {"--token", "T", "--lat", "1", "--lon", "2", "extra"},
		"broker with http":  {"--token", "T", "--lat", "1", "--lon", "2", "--broker", "tcp://localhost:1883"},
		"huge interval":     {"--token", "T", "--lat", "1", "--lon", "2", "--simulate", "--duration", "1", "--interval", "10000000000"},
		"huge duration":     {"--token", "T", "--lat", "1", "--lon", "2", "--simulate", "--duration", "10000000000"},
	}

	for name, args := range cases {
		t.Run(name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			opened := 0

			assert.Equal(t, exitUsage, testApp(&stdout, &stderr, &opened).run(context.Background(), args))
			assert.Equal(t, 0, opened)
		})
	}
}

func TestRun_Help(t *testing.T) {
	var stdout, stderr bytes.Buffer
	opened := 0

	assert.Equal(t, exitOK, testApp(&stdout, &stderr, &opened).run(context.Background(), []string{"-h"}))
	assert.Contains(t, stderr.String(), "-simulate")
}

func TestRun_SingleSend_Success(t *testing.T) {
	server := newTelemetryServer(t, http.StatusOK)
	var stdout, stderr bytes.Buffer
	opened := 0

	code := testApp(&stdout, &stderr, &opened).run(context.Background(),
		[]string{"--token", "T", "--lat", "34.0", "--lon", "-118.0", "--server", server.URL})

	assert.Equal(t, exitOK, code)
	assert.Equal(t, int32(1), server.hits.Load())
	out := stdout.String()
	assert.Contains(t, out, "Sending location data to "+server.URL+"...")
	assert.Contains(t, out, "✓ Success! Location data sent successfully.")
	assert.Contains(t, out, "  Latitude: 34.0\n")
	assert.Contains(t, out, "  Longitude: -118.0\n")
	assert.NotContains(t, out, "Battery")
	assert.NotContains(t, out, "Accuracy")
	assert.NotContains(t, out, "Altitude")
	assert.NotContains(t, server.lastBody(), "batt")
}

func TestRun_SingleSend_OptionalFields(t *testing.T) {
	server := newTelemetryServer(t, http.StatusOK)
	var stdout, stderr bytes.Buffer
	opened := 0

	code := testApp(&stdout, &stderr, &opened).run(context.Background(), []string{
		"--token", "T", "--lat", "34.022", "--lon", "-118.285", "--server", server.URL,
		"--batt", "80", "--acc", "5", "--alt", "120",
	})

	assert.Equal(t, exitOK, code)
	assert.Contains(t, stdout.String(), "  Battery: 80%\n")
	assert.Contains(t, stdout.String(), "  Accuracy: 5m\n")
	assert.Contains(t, stdout.String(), "  Altitude: 120m\n")
	assert.Equal(t, float64(80), server.lastBody()["batt"])
	assert.Equal(t, "location", server.lastBody()["_type"])
}

func TestRun_SingleSend_ServerRejects(t *testing.T) {
	server := newTelemetryServer(t, http.StatusUnauthorized)
	var stdout, stderr bytes.Buffer
	opened := 0

	code := testApp(&stdout, &stderr, &opened).run(context.Background(),
		[]string{"--token", "T", "--lat", "1", "--lon", "2", "--server", server.URL})

	assert.Equal(t, exitOK, code)
	assert.Contains(t, stdout.String(), "✗ Failed to send location data")
	assert.Contains(t, stdout.String(), "  Status code: 401\n")
	assert.Contains(t, stdout.String(), "  Response: rejected\n")
	assert.Contains(t, stderr.String(), "Error sending telemetry")
}

func TestRun_SingleSend_Unreachable(t *testing.T) {
	server := newTelemetryServer(t, http.StatusOK)
	url := server.URL
	server.Close()
	var stdout, stderr bytes.Buffer
	opened := 0

	code := testApp(&stdout, &stderr, &opened).run(context.Background(),
		[]string{"--token", "T", "--lat", "1", "--lon", "2", "--server", url})

	assert.Equal(t, exitOK, code)
	assert.Contains(t, stdout.String(), "✗ Failed to send location data")
	assert.NotContains(t, stdout.String(), "Status code")
}

func TestRun_SingleSend_PositionFromNMEA(t *testing.T) {
	server := newTelemetryServer(t, http.StatusOK)
	var stdout, stderr bytes.Buffer
	opened := 0

	code := testApp(&stdout, &stderr, &opened).run(context.Background(),
		[]string{"--token", "T", "--nmea", sentence, "--server", server.URL})

	assert.Equal(t, exitOK, code)
	assert.InDelta(t, 34.022, server.lastBody()["lat"], 1e-6)
	assert.InDelta(t, -118.285, server.lastBody()["lon"], 1e-6)
}

func TestRun_BadNMEA_FailsBeforeSending(t *testing.T) {
	var stdout, stderr bytes.Buffer
	opened := 0

	code := testApp(&stdout, &stderr, &opened).run(context.Background(), []string{"--token", "T", "--nmea", "$GPRMC,broken*00"})

	assert.Equal(t, exitError, code)
	assert.Equal(t, 0, opened)
	assert.Contains(t, stderr.String(), "Failed to determine position")
}

func TestRun_ConfigFile(t *testing.T) {
	server := newTelemetryServer(t, http.StatusOK)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: "+server.URL+"\ntoken: from-config\n"), 0600))

	var stdout, stderr bytes.Buffer
	opened := 0
	code := testApp(&stdout, &stderr, &opened).run(context.Background(),
		[]string{"--config", path, "--lat", "1", "--lon", "2"})

	assert.Equal(t, exitOK, code)
	server.mu.Lock()
	defer server.mu.Unlock()
	assert.Equal(t, "/api/v1/from-config/telemetry", server.lastPath)
}

func TestRun_MissingConfigFile_IsUsageError(t *testing.T) {
	var stdout, stderr bytes.Buffer
	opened := 0

	code := testApp(&stdout, &stderr, &opened).run(context.Background(),
		[]string{"--config", filepath.Join(t.TempDir(), "absent.yaml"), "--token", "T", "--lat", "1", "--lon", "2"})

	assert.Equal(t, exitUsage, code)
	assert.Contains(t, stderr.String(), "failed to load config")
	assert.Contains(t, stderr.String(), "does not exist")
}

func TestRun_Simulate_TickCount(t *testing.T) {
	server := newTelemetryServer(t, http.StatusOK)
	var stdout, stderr bytes.Buffer
	opened := 0

	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	a := testApp(&stdout, &stderr, &opened)
	a.clock = func() time.Time { return now }
	a.sleep = func(ctx context.Context, d time.Duration) error {
		now = now.Add(d)
		return nil
	}

	code := a.run(context.Background(), []string{
		"--simulate", "--token", "T", "--lat", "34.0", "--lon", "-118.0",
		"--duration", "12", "--interval", "5", "--seed", "42", "--server", server.URL,
	})

	assert.Equal(t, exitOK, code)
	assert.Equal(t, 1, opened)
	assert.Equal(t, int32(3), server.hits.Load())
	out := stdout.String()
	assert.Contains(t, out, "Starting location simulation...")
	assert.Contains(t, out, "Initial position: (34.0, -118.0)")
	assert.Contains(t, out, "Duration: 12s, Interval: 5s")
	assert.Contains(t, out, "Update #3:")
	assert.Contains(t, out, "Simulation complete. Sent 3 updates.")
}

func TestRun_Simulate_AllFailing(t *testing.T) {
	server := newTelemetryServer(t, http.StatusInternalServerError)
	var stdout, stderr bytes.Buffer
	opened := 0

	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	a := testApp(&stdout, &stderr, &opened)
	a.clock = func() time.Time { return now }
	a.sleep = func(ctx context.Context, d time.Duration) error {
		now = now.Add(d)
		return nil
	}

	code := a.run(context.Background(), []string{
		"--simulate", "--token", "T", "--lat", "1", "--lon", "2",
		"--duration", "10", "--interval", "5", "--server", server.URL,
	})

	assert.Equal(t, exitOK, code)
	assert.Equal(t, int32(2), server.hits.Load())
	assert.Contains(t, stdout.String(), "Failed to send update #1")
	assert.Contains(t, stdout.String(), "Simulation complete. Sent 0 updates.")
}

func TestNewLogger_LevelFallback(t *testing.T) {
	var buf bytes.Buffer

	logger := newLogger(&buf, "not-a-level")
	assert.Equal(t, zerolog.InfoLevel, logger.GetLevel())

	logger = newLogger(&buf, "debug")
	assert.Equal(t, zerolog.DebugLevel, logger.GetLevel())
}
