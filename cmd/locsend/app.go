package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"math/rand/v2"
	"time"

	"github.com/benmeehan/location-sender/internal/models"
	"github.com/benmeehan/location-sender/internal/report"
	"github.com/benmeehan/location-sender/internal/services"
	"github.com/benmeehan/location-sender/internal/utils"
	"github.com/benmeehan/location-sender/pkg/file"
	"github.com/benmeehan/location-sender/pkg/location"
	"github.com/benmeehan/location-sender/pkg/mqtt"
	"github.com/benmeehan/location-sender/pkg/transport"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Exit codes.
const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

// TransportFactory opens the delivery transport described by config.
type TransportFactory func(config *utils.Config, logger zerolog.Logger) (transport.Transport, error)

// app wires the CLI to its collaborators so tests can replace the outside world.
type app struct {
	stdout       io.Writer
	stderr       io.Writer
	fileClient   file.FileOperations
	newTransport TransportFactory
	newProvider  func(s *settings) location.Provider
	clock        func() time.Time
	sleep        services.Sleeper
}

func newApp(stdout, stderr io.Writer) *app {
	fileClient := file.NewFileService()
	return &app{
		stdout:       stdout,
		stderr:       stderr,
		fileClient:   fileClient,
		newTransport: defaultTransportFactory(fileClient),
		newProvider:  defaultProvider,
		clock:        time.Now,
		sleep:        services.SleepContext,
	}
}

// run executes one invocation and returns the process exit code.
func (a *app) run(ctx context.Context, args []string) int {
	s, err := parseArgs(args, a.stderr, a.fileClient)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}

	logger := newLogger(a.stderr, s.config.LogLevel)

	pos, err := a.resolvePosition(s)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to determine position")
		return exitError
	}

	tr, err := a.newTransport(s.config, logger)
	if err != nil {
		logger.Error().Err(err).Str("transport", s.config.Transport).Msg("Failed to open transport")
		return exitError
	}
	defer func() {
		if err := tr.Close(); err != nil {
			logger.Warn().Err(err).Msg("Failed to close transport")
		}
	}()

	printer := report.NewPrinter(a.stdout)

	if s.simulate {
		return a.simulate(ctx, s, pos, tr, printer, logger)
	}
	return a.sendOnce(ctx, s, pos, tr, printer, logger)
}

func (a *app) resolvePosition(s *settings) (models.Position, error) {
	if s.position != nil {
		return *s.position, nil
	}

	loc, err := a.newProvider(s).GetLocation()
	if err != nil {
		return models.Position{}, err
	}
	return models.Position{Latitude: loc.Latitude, Longitude: loc.Longitude}, nil
}

func (a *app) sendOnce(ctx context.Context, s *settings, pos models.Position, tr transport.Transport,
	printer *report.Printer, logger zerolog.Logger) int {
	printer.Sending(target(s.config))

	sender := services.NewSenderService(tr, a.clock, logger)
	if _, err := sender.Send(ctx, pos, s.opts); err != nil {
		var statusErr *transport.StatusError
		if errors.As(err, &statusErr) {
			printer.SendFailed(statusErr.StatusCode, statusErr.Body)
		} else {
			printer.SendFailed(0, "")
		}
		return exitOK
	}

	printer.SendSucceeded(pos, s.opts)
	return exitOK
}

func (a *app) simulate(ctx context.Context, s *settings, pos models.Position, tr transport.Transport,
	printer *report.Printer, logger zerolog.Logger) int {
	logger = logger.With().Str("run_id", uuid.NewString()).Logger()

	seed := s.config.Simulation.Seed
	if seed == 0 {
		seed = a.clock().UnixNano()
	}
	logger.Debug().Int64("seed", seed).Msg("Seeded random walk")
	rng := rand.New(rand.NewPCG(uint64(seed), uint64(seed)^0x9e3779b97f4a7c15))

	sender := services.NewSenderService(tr, a.clock, logger)
	simulator := services.NewSimulatorService(
		pos,
		time.Duration(s.config.Simulation.Duration)*time.Second,
		time.Duration(s.config.Simulation.Interval)*time.Second,
		sender,
		rng,
		printer,
		logger,
	)
	simulator.SetClock(a.clock, a.sleep)

	// an interrupted run has already printed its summary
	_, _ = simulator.Run(ctx)
	return exitOK
}

func target(config *utils.Config) string {
	if config.Transport == "mqtt" {
		return config.MQTT.Broker
	}
	return config.Server
}

func defaultProvider(s *settings) location.Provider {
	if s.nmea != "" {
		return location.NewNMEAProvider(s.nmea)
	}
	return location.NewDeviceSensorProvider(s.config.GPS.DevicePort, s.config.GPS.BaudRate)
}

func defaultTransportFactory(fileClient file.FileOperations) TransportFactory {
	return func(config *utils.Config, logger zerolog.Logger) (transport.Transport, error) {
		if config.Transport != "mqtt" {
			return transport.NewHTTPTransport(config.Server, config.Token, config.Timeout), nil
		}

		// Generate a unique MQTT Client ID by appending a UUID
		clientID := config.MQTT.ClientID + "-" + uuid.New().String()
		mqttClient := mqtt.NewMqttService(fileClient)
		if err := mqttClient.Initialize(config.MQTT.Broker, clientID, config.Token, config.MQTT.CACertificate, config.Timeout); err != nil {
			return nil, fmt.Errorf("failed to initialize MQTT connection: %w", err)
		}
		logger.Info().Str("broker", config.MQTT.Broker).Str("client_id", clientID).Msg("Connected to MQTT broker")

		return transport.NewMQTTTransport(mqttClient, config.MQTT.QOS), nil
	}
}

// newLogger writes human-readable diagnostics to w. Unknown levels fall back to info.
func newLogger(w io.Writer, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly}).
		Level(lvl).
		With().
		Timestamp().
		Logger()
}
