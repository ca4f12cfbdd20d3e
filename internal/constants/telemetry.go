package constants

// ReadingType tags the kind of payload carried by a telemetry message.
type ReadingType string

const (
	ReadingTypeLocation ReadingType = "location"
)

const (
	DefaultServer   = "http://52.42.86.26:8081"
	TelemetryPath   = "/api/v1/%s/telemetry"
	TelemetryTopic  = "v1/devices/me/telemetry"
	DefaultDuration = 60
	DefaultInterval = 5
	DefaultMQTTQOS  = 1
	DefaultGPSBaud  = 9600
)

// Simulation bounds for the random walk.
const (
	StartBattery    = 100.0
	MaxCoordDelta   = 0.001
	MinBatteryDrain = 0.1
	MaxBatteryDrain = 0.5
	MinAccuracy     = 5
	MaxAccuracy     = 20
	MinAltitude     = 50
	MaxAltitude     = 100
)
