package location

import (
	"errors"
	"fmt"

	"github.com/adrianmo/go-nmea"
)

// ErrNoFix is returned when a sentence parses but carries no usable fix.
var ErrNoFix = errors.New("sentence carries no valid GPS fix")

// NMEAProvider takes its location from a single NMEA sentence.
type NMEAProvider struct {
	sentence string
}

// NewNMEAProvider creates a provider for a raw GGA or RMC sentence.
func NewNMEAProvider(sentence string) *NMEAProvider {
	return &NMEAProvider{sentence: sentence}
}

// GetLocation parses the sentence and returns its position.
func (n *NMEAProvider) GetLocation() (Location, error) {
	return ParseSentence(n.sentence)
}

// ParseSentence extracts a position from a GGA or RMC sentence.
func ParseSentence(raw string) (Location, error) {
	sentence, err := nmea.Parse(raw)
	if err != nil {
		return Location{}, fmt.Errorf("failed to parse NMEA sentence: %w", err)
	}

	switch s := sentence.(type) {
	case nmea.GGA:
		if s.FixQuality == nmea.Invalid {
			return Location{}, ErrNoFix
		}
		return Location{Latitude: s.Latitude, Longitude: s.Longitude}, nil
	case nmea.RMC:
		if s.Validity != nmea.ValidRMC {
			return Location{}, ErrNoFix
		}
		return Location{Latitude: s.Latitude, Longitude: s.Longitude}, nil
	default:
		return Location{}, fmt.Errorf("unsupported NMEA sentence type %s", sentence.DataType())
	}
}
