package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/benmeehan/location-sender/internal/models"
	"github.com/benmeehan/location-sender/pkg/transport"
	"github.com/rs/zerolog"
)

// TelemetrySender delivers one location reading per call.
type TelemetrySender interface {
	Send(ctx context.Context, pos models.Position, opts models.OptionalFields) (*transport.Response, error)
}

// SenderService builds telemetry readings and hands them to a transport.
type SenderService struct {
	transport transport.Transport
	clock     func() time.Time
	logger    zerolog.Logger
}

// NewSenderService creates a SenderService. A nil clock defaults to time.Now.
func NewSenderService(tr transport.Transport, clock func() time.Time, logger zerolog.Logger) *SenderService {
	if clock == nil {
		clock = time.Now
	}
	return &SenderService{
		transport: tr,
		clock:     clock,
		logger:    logger,
	}
}

// Send stamps, serializes and delivers a single reading. It makes exactly one
// attempt; a nil response with a non-nil error means the reading was not accepted.
func (s *SenderService) Send(ctx context.Context, pos models.Position, opts models.OptionalFields) (*transport.Response, error) {
	reading := models.NewTelemetryReading(pos, opts, s.clock().Unix())

	payload, err := json.Marshal(reading)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to serialize telemetry reading")
		return nil, fmt.Errorf("failed to serialize telemetry reading: %w", err)
	}

	resp, err := s.transport.Deliver(ctx, payload)
	if err != nil {
		event := s.logger.Error().Err(err).RawJSON("payload", payload)
		var statusErr *transport.StatusError
		if errors.As(err, &statusErr) {
			event = event.Int("status_code", statusErr.StatusCode)
		}
		event.Msg("Error sending telemetry")
		return nil, err
	}

	s.logger.Debug().
		RawJSON("payload", payload).
		Int("status_code", resp.StatusCode).
		Msg("Telemetry sent successfully")
	return resp, nil
}
