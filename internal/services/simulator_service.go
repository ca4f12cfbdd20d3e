package services

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"github.com/benmeehan/location-sender/internal/constants"
	"github.com/benmeehan/location-sender/internal/models"
	"github.com/benmeehan/location-sender/internal/report"
	"github.com/rs/zerolog"
)

// Sleeper blocks for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// SimulationState is the in-memory state of one simulation run.
type SimulationState struct {
	Latitude    float64
	Longitude   float64
	Battery     float64
	UpdateCount int
}

// SimulatorService replays a random walk around a starting position, sending
// one reading per interval until the duration has elapsed.
type SimulatorService struct {
	// Configuration fields
	start    models.Position
	duration time.Duration
	interval time.Duration

	// Dependencies
	sender  TelemetrySender
	rng     *rand.Rand
	printer *report.Printer
	logger  zerolog.Logger
	clock   func() time.Time
	sleep   Sleeper

	state SimulationState
}

// NewSimulatorService creates a simulator starting at start with a full battery.
func NewSimulatorService(start models.Position, duration, interval time.Duration, sender TelemetrySender,
	rng *rand.Rand, printer *report.Printer, logger zerolog.Logger) *SimulatorService {
	return &SimulatorService{
		start:    start,
		duration: duration,
		interval: interval,
		sender:   sender,
		rng:      rng,
		printer:  printer,
		logger:   logger,
		clock:    time.Now,
		sleep:    SleepContext,
		state: SimulationState{
			Latitude:  start.Latitude,
			Longitude: start.Longitude,
			Battery:   constants.StartBattery,
		},
	}
}

// SetClock replaces the wall clock and the sleeper.
func (s *SimulatorService) SetClock(clock func() time.Time, sleep Sleeper) {
	s.clock = clock
	s.sleep = sleep
}

// State returns a copy of the current simulation state.
func (s *SimulatorService) State() SimulationState {
	return s.state
}

// Run executes ticks until the duration has elapsed and returns the number of
// confirmed updates. The elapsed-time check happens before every tick, so the
// last tick may start up to one interval before the duration ends. A failed
// send never stops the run; only ctx ending does, in which case ctx.Err() is
// returned alongside the count.
func (s *SimulatorService) Run(ctx context.Context) (int, error) {
	s.printer.SimulationStarted(s.start, s.duration, s.interval)
	s.logger.Info().
		Float64("lat", s.start.Latitude).
		Float64("lon", s.start.Longitude).
		Dur("duration", s.duration).
		Dur("interval", s.interval).
		Msg("Simulation started")

	started := s.clock()
	var runErr error
	for s.clock().Sub(started) < s.duration {
		s.tick(ctx)

		if err := s.sleep(ctx, s.interval); err != nil {
			runErr = err
			break
		}
	}

	s.printer.SimulationComplete(s.state.UpdateCount)
	if runErr != nil {
		s.logger.Warn().Err(runErr).Int("updates", s.state.UpdateCount).Msg("Simulation interrupted")
	} else {
		s.logger.Info().Int("updates", s.state.UpdateCount).Msg("Simulation finished")
	}
	return s.state.UpdateCount, runErr
}

// tick moves the device, drains the battery and sends one reading.
func (s *SimulatorService) tick(ctx context.Context) {
	s.state.Latitude += s.uniform(-constants.MaxCoordDelta, constants.MaxCoordDelta)
	s.state.Longitude += s.uniform(-constants.MaxCoordDelta, constants.MaxCoordDelta)
	s.state.Battery = math.Max(0, s.state.Battery-s.uniform(constants.MinBatteryDrain, constants.MaxBatteryDrain))

	accuracy := s.intBetween(constants.MinAccuracy, constants.MaxAccuracy)
	altitude := s.intBetween(constants.MinAltitude, constants.MaxAltitude)
	battery := int(s.state.Battery)

	pos := models.Position{
		Latitude:  roundTo6(s.state.Latitude),
		Longitude: roundTo6(s.state.Longitude),
	}
	opts := models.OptionalFields{
		Battery:  &battery,
		Accuracy: &accuracy,
		Altitude: &altitude,
	}

	if _, err := s.sender.Send(ctx, pos, opts); err != nil {
		s.printer.UpdateFailed(s.state.UpdateCount + 1)
		return
	}

	s.state.UpdateCount++
	s.printer.Update(s.clock(), s.state.UpdateCount, s.state.Latitude, s.state.Longitude, battery, accuracy)
}

// uniform returns a value in [lo, hi).
func (s *SimulatorService) uniform(lo, hi float64) float64 {
	return lo + s.rng.Float64()*(hi-lo)
}

// intBetween returns a value in [lo, hi].
func (s *SimulatorService) intBetween(lo, hi int) int {
	return lo + s.rng.IntN(hi-lo+1)
}

func roundTo6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}

// SleepContext waits for d, returning early with ctx.Err() if ctx ends first.
func SleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
