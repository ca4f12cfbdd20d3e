package models

import (
	"github.com/benmeehan/location-sender/internal/constants"
)

// Position is a latitude/longitude pair in decimal degrees.
type Position struct {
	Latitude  float64
	Longitude float64
}

// OptionalFields carries the device-status values a caller may attach to a reading.
// A nil pointer means the field was not supplied.
type OptionalFields struct {
	Battery  *int
	Accuracy *int
	Altitude *int
}

// TelemetryReading is a single location sample as it goes over the wire.
type TelemetryReading struct {
	Type      constants.ReadingType `json:"_type"`
	Latitude  float64               `json:"lat"`
	Longitude float64               `json:"lon"`
	Timestamp int64                 `json:"tst"`
	Battery   *int                  `json:"batt,omitempty"`
	Accuracy  *int                  `json:"acc,omitempty"`
	Altitude  *int                  `json:"alt,omitempty"`
}

// NewTelemetryReading builds a location reading stamped with the given Unix time.
func NewTelemetryReading(pos Position, opts OptionalFields, unixSeconds int64) TelemetryReading {
	return TelemetryReading{
		Type:      constants.ReadingTypeLocation,
		Latitude:  pos.Latitude,
		Longitude: pos.Longitude,
		Timestamp: unixSeconds,
		Battery:   opts.Battery,
		Accuracy:  opts.Accuracy,
		Altitude:  opts.Altitude,
	}
}
