package location

import (
	"bufio"
	"errors"
	"io"
	"strings"

	"github.com/tarm/serial"
)

// DeviceSensorProvider is responsible for retrieving location data from a GPS device connected via serial port.
type DeviceSensorProvider struct {
	port     string // Serial port to which the GPS device is connected
	baudRate int    // Baud rate for the serial communication
	open     func(*serial.Config) (io.ReadCloser, error)
}

// NewDeviceSensorProvider creates a new instance of DeviceSensorProvider with the specified port and baud rate.
func NewDeviceSensorProvider(port string, baudRate int) *DeviceSensorProvider {
	return &DeviceSensorProvider{
		port:     port,
		baudRate: baudRate,
		open: func(c *serial.Config) (io.ReadCloser, error) {
			return serial.OpenPort(c)
		},
	}
}

// GetLocation reads sentences from the device until one carries a valid fix.
func (d *DeviceSensorProvider) GetLocation() (Location, error) {
	s, err := d.open(&serial.Config{Name: d.port, Baud: d.baudRate})
	if err != nil {
		return Location{}, err
	}
	defer s.Close()

	return scanForFix(s)
}

// scanForFix returns the first valid GGA or RMC fix found in r.
func scanForFix(r io.Reader) (Location, error) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !isPositionSentence(line) {
			continue
		}
		loc, err := ParseSentence(line)
		if err != nil {
			// receivers emit void fixes and checksum noise while warming up
			continue
		}
		return loc, nil
	}

	if err := scanner.Err(); err != nil {
		return Location{}, err
	}

	return Location{}, errors.New("no valid GPS data found")
}

func isPositionSentence(line string) bool {
	if len(line) < 6 || line[0] != '$' {
		return false
	}
	kind := line[3:6]
	return kind == "GGA" || kind == "RMC"
}
