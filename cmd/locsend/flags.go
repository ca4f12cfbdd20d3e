package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"math"
	"strconv"
	"time"

	"github.com/benmeehan/location-sender/internal/constants"
	"github.com/benmeehan/location-sender/internal/models"
	"github.com/benmeehan/location-sender/internal/utils"
	"github.com/benmeehan/location-sender/pkg/file"
)

// maxSeconds is the largest second count that still fits in a time.Duration.
const maxSeconds = math.MaxInt64 / int64(time.Second)

// errUsage marks a bad flag combination. It maps to exit code 2.
var errUsage = errors.New("usage error")

// optionalInt is an int flag that remembers whether it was given.
type optionalInt struct {
	value *int
}

func (o *optionalInt) String() string {
	if o == nil || o.value == nil {
		return ""
	}
	return strconv.Itoa(*o.value)
}

func (o *optionalInt) Set(s string) error {
	v, err := strconv.Atoi(s)
	if err != nil {
		return errors.New("parse error")
	}
	o.value = &v
	return nil
}

// optionalFloat is a float64 flag that remembers whether it was given.
type optionalFloat struct {
	value *float64
}

func (o *optionalFloat) String() string {
	if o == nil || o.value == nil {
		return ""
	}
	return strconv.FormatFloat(*o.value, 'f', -1, 64)
}

func (o *optionalFloat) Set(s string) error {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return errors.New("parse error")
	}
	o.value = &v
	return nil
}

// cliFlags holds the raw flag values before they are merged with the config file.
type cliFlags struct {
	configPath string
	token      string
	server     string
	transport  string
	broker     string
	timeout    time.Duration
	logLevel   string

	lat, lon       optionalFloat
	batt, acc, alt optionalInt

	simulate bool
	duration int
	interval int
	seed     int64

	nmea    string
	gpsPort string
	gpsBaud int
}

// settings is the validated outcome of parsing.
type settings struct {
	config   *utils.Config
	simulate bool

	// position is nil when the position comes from --nmea or --gps-port.
	position *models.Position
	nmea     string
	opts     models.OptionalFields
}

func newFlagSet(stderr io.Writer, f *cliFlags) *flag.FlagSet {
	fs := flag.NewFlagSet("locsend", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVar(&f.configPath, "config", "", "Optional YAML configuration file")
	fs.StringVar(&f.token, "token", "", "ThingsBoard device access token (required)")
	fs.StringVar(&f.server, "server", constants.DefaultServer, "ThingsBoard server URL")
	fs.StringVar(&f.transport, "transport", "http", "Delivery transport: http or mqtt")
	fs.StringVar(&f.broker, "broker", "", "MQTT broker URL, e.g. tcp://host:1883 (mqtt transport)")
	fs.DurationVar(&f.timeout, "timeout", 10*time.Second, "Request timeout")
	fs.StringVar(&f.logLevel, "log-level", "info", "Diagnostic log level")

	fs.Var(&f.lat, "lat", "Latitude")
	fs.Var(&f.lon, "lon", "Longitude")
	fs.Var(&f.batt, "batt", "Battery percentage (0-100)")
	fs.Var(&f.acc, "acc", "Accuracy in meters")
	fs.Var(&f.alt, "alt", "Altitude in meters")

	fs.BoolVar(&f.simulate, "simulate", false, "Simulate movement (requires --lat and --lon for starting position)")
	fs.IntVar(&f.duration, "duration", constants.DefaultDuration, "Simulation duration in seconds")
	fs.IntVar(&f.interval, "interval", constants.DefaultInterval, "Update interval in seconds")
	fs.Int64Var(&f.seed, "seed", 0, "Random seed for the simulation, 0 picks one")

	fs.StringVar(&f.nmea, "nmea", "", "NMEA GGA or RMC sentence to take the position from instead of --lat/--lon")
	fs.StringVar(&f.gpsPort, "gps-port", "", "Serial port of a GPS receiver to take the position from instead of --lat/--lon")
	fs.IntVar(&f.gpsBaud, "gps-baud", constants.DefaultGPSBaud, "Baud rate of the GPS receiver")

	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "Send location telemetry to ThingsBoard")
		fmt.Fprintln(fs.Output())
		fmt.Fprintln(fs.Output(), "Usage:")
		fmt.Fprintln(fs.Output(), "  locsend --token TOKEN --lat 34.022 --lon -118.285")
		fmt.Fprintln(fs.Output(), "  locsend --token TOKEN --lat 34.022 --lon -118.285 --simulate")
		fmt.Fprintln(fs.Output())
		fs.PrintDefaults()
	}
	return fs
}

// parseArgs parses and validates args. Problems with the flags themselves are
// reported on stderr and returned wrapped in errUsage; flag.ErrHelp is passed through.
func parseArgs(args []string, stderr io.Writer, fileClient file.FileOperations) (*settings, error) {
	var f cliFlags
	fs := newFlagSet(stderr, &f)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", errUsage, err)
	}
	if fs.NArg() > 0 {
		return nil, usageError(fs, "unexpected arguments: %v", fs.Args())
	}

	config := utils.DefaultConfig()
	if f.configPath != "" {
		loaded, err := utils.LoadConfig(f.configPath, fileClient)
		if err != nil {
			return nil, usageError(fs, "failed to load config: %v", err)
		}
		config = loaded
	}

	given := map[string]bool{}
	fs.Visit(func(fl *flag.Flag) { given[fl.Name] = true })
	applyFlags(config, &f, given)

	if config.Token == "" {
		return nil, usageError(fs, "the following arguments are required: --token")
	}

	switch config.Transport {
	case "http":
		if given["broker"] {
			return nil, usageError(fs, "--broker requires --transport mqtt")
		}
	case "mqtt":
		if config.MQTT.Broker == "" {
			return nil, usageError(fs, "--transport mqtt requires --broker")
		}
	default:
		return nil, usageError(fs, "--transport must be http or mqtt, got %q", config.Transport)
	}

	s := &settings{
		config:   config,
		simulate: f.simulate,
		nmea:     f.nmea,
		opts: models.OptionalFields{
			Battery:  f.batt.value,
			Accuracy: f.acc.value,
			Altitude: f.alt.value,
		},
	}

	hasLatLon := f.lat.value != nil && f.lon.value != nil
	sources := 0
	for _, present := range []bool{hasLatLon, f.nmea != "", given["gps-port"] && f.gpsPort != ""} {
		if present {
			sources++
		}
	}
	switch {
	case sources > 1:
		return nil, usageError(fs, "use only one of --lat/--lon, --nmea or --gps-port")
	case sources == 0 && config.GPS.DevicePort == "" && f.simulate:
		return nil, usageError(fs, "--simulate requires --lat and --lon for starting position")
	case sources == 0 && config.GPS.DevicePort == "":
		return nil, usageError(fs, "--lat and --lon are required (unless using --nmea or --gps-port)")
	case sources == 1 && !given["gps-port"]:
		// an explicit position wins over a receiver named in the config file
		config.GPS.DevicePort = ""
	}
	if hasLatLon {
		s.position = &models.Position{Latitude: *f.lat.value, Longitude: *f.lon.value}
	}

	if f.simulate && config.Simulation.Interval <= 0 {
		return nil, usageError(fs, "--interval must be positive")
	}
	if f.simulate && int64(config.Simulation.Interval) > maxSeconds {
		return nil, usageError(fs, "--interval must be at most %d seconds", maxSeconds)
	}
	if f.simulate && int64(config.Simulation.Duration) > maxSeconds {
		return nil, usageError(fs, "--duration must be at most %d seconds", maxSeconds)
	}

	return s, nil
}

// applyFlags copies explicitly given flags over the config file values.
func applyFlags(config *utils.Config, f *cliFlags, given map[string]bool) {
	if given["token"] {
		config.Token = f.token
	}
	if given["server"] {
		config.Server = f.server
	}
	if given["transport"] {
		config.Transport = f.transport
	}
	if given["broker"] {
		config.MQTT.Broker = f.broker
	}
	if given["timeout"] {
		config.Timeout = f.timeout
	}
	if given["log-level"] {
		config.LogLevel = f.logLevel
	}
	if given["duration"] {
		config.Simulation.Duration = f.duration
	}
	if given["interval"] {
		config.Simulation.Interval = f.interval
	}
	if given["seed"] {
		config.Simulation.Seed = f.seed
	}
	if given["gps-port"] {
		config.GPS.DevicePort = f.gpsPort
	}
	if given["gps-baud"] {
		config.GPS.BaudRate = f.gpsBaud
	}
}

func usageError(fs *flag.FlagSet, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	fs.Usage()
	fmt.Fprintf(fs.Output(), "locsend: error: %s\n", msg)
	return fmt.Errorf("%w: %s", errUsage, msg)
}
