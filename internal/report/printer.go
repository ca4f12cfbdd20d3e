// Package report writes the human-readable status lines a developer watches
// while sending telemetry. Diagnostics go through zerolog instead.
package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/benmeehan/location-sender/internal/models"
)

const separator = "--------------------------------------------------"

// Printer formats status output onto w.
type Printer struct {
	w io.Writer
}

// NewPrinter creates a Printer writing to w.
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

// FormatDegrees renders a coordinate the way it was typed, keeping a trailing
// ".0" on whole numbers.
func FormatDegrees(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eEnN") {
		s += ".0"
	}
	return s
}

// Sending announces a single send.
func (p *Printer) Sending(target string) {
	fmt.Fprintf(p.w, "Sending location data to %s...\n", target)
}

// SendSucceeded prints the success block including each supplied optional field.
func (p *Printer) SendSucceeded(pos models.Position, opts models.OptionalFields) {
	fmt.Fprintln(p.w, "✓ Success! Location data sent successfully.")
	fmt.Fprintf(p.w, "  Latitude: %s\n", FormatDegrees(pos.Latitude))
	fmt.Fprintf(p.w, "  Longitude: %s\n", FormatDegrees(pos.Longitude))
	if opts.Battery != nil {
		fmt.Fprintf(p.w, "  Battery: %d%%\n", *opts.Battery)
	}
	if opts.Accuracy != nil {
		fmt.Fprintf(p.w, "  Accuracy: %dm\n", *opts.Accuracy)
	}
	if opts.Altitude != nil {
		fmt.Fprintf(p.w, "  Altitude: %dm\n", *opts.Altitude)
	}
}

// SendFailed prints the failure block. statusCode is 0 when the server never answered.
func (p *Printer) SendFailed(statusCode int, body string) {
	fmt.Fprintln(p.w, "✗ Failed to send location data")
	if statusCode != 0 {
		fmt.Fprintf(p.w, "  Status code: %d\n", statusCode)
		fmt.Fprintf(p.w, "  Response: %s\n", body)
	}
}

// SimulationStarted prints the run header.
func (p *Printer) SimulationStarted(start models.Position, duration, interval time.Duration) {
	fmt.Fprintln(p.w, "Starting location simulation...")
	fmt.Fprintf(p.w, "Initial position: (%s, %s)\n", FormatDegrees(start.Latitude), FormatDegrees(start.Longitude))
	fmt.Fprintf(p.w, "Duration: %ds, Interval: %ds\n", int(duration.Seconds()), int(interval.Seconds()))
	fmt.Fprintln(p.w, separator)
}

// Update prints one confirmed tick.
func (p *Printer) Update(at time.Time, count int, lat, lon float64, battery, accuracy int) {
	fmt.Fprintf(p.w, "[%s] Update #%d: Lat=%.6f, Lon=%.6f, Batt=%d%%, Acc=%dm\n",
		at.Format("15:04:05"), count, lat, lon, battery, accuracy)
}

// UpdateFailed prints a failed tick. attempt is the update number it would have had.
func (p *Printer) UpdateFailed(attempt int) {
	fmt.Fprintf(p.w, "Failed to send update #%d\n", attempt)
}

// SimulationComplete prints the run summary.
func (p *Printer) SimulationComplete(count int) {
	fmt.Fprintln(p.w, separator)
	fmt.Fprintf(p.w, "Simulation complete. Sent %d updates.\n", count)
}
