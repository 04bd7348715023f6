// Package labelprint renders JSON label templates and prints them on a
// serial thermal label printer that speaks a small proprietary raster
// protocol.  The wire side lives in this package (framing, split and packet
// handling, pacing); the raster side is provided by the render subpackage
// through the [Renderer] interface.
package labelprint

import (
	"errors"
	"image"
	"time"

	"github.com/rusq/labelprint/template"
)

const (
	// RowDepth is the number of raster rows represented by one unit of
	// [Dimensions.Height].  One packed byte carries one column-slice of
	// RowDepth pixels.
	RowDepth = 8

	// MaxSplitWidth is the maximum number of columns the device accepts in
	// a single raster command.  Wider images are sent as several splits.
	MaxSplitWidth = 255
)

// Defaults for [PrinterConfig].  The packet size and delays match the
// ingestion rate observed on the device.
const (
	DefaultBaudRate        = 9600
	DefaultPacketSize      = 122
	DefaultPacketDelay     = 0
	DefaultExitDelay       = 2500 * time.Millisecond
	DefaultFirmwareTimeout = 5 * time.Second
)

var (
	// ErrDeviceUnresponsive is returned when the printer does not answer
	// the firmware version request within the configured timeout.
	ErrDeviceUnresponsive = errors.New("device unresponsive")
	// ErrShortWrite is returned when the serial layer accepts fewer bytes
	// than a packet contains.
	ErrShortWrite = errors.New("short write")
)

// Dimensions describes the label raster in device units.  Width is in
// printer dots (columns), Height is a module count: the pixel height of the
// rendered surface is Height*[RowDepth].
type Dimensions struct {
	Width  int
	Height int
	DPI    int
}

// PixelHeight returns the height of the render surface in pixels.
func (d Dimensions) PixelHeight() int {
	return d.Height * RowDepth
}

// PrinterConfig carries the validated transport settings for one printer.
// The zero value of any field falls back to the package default.
type PrinterConfig struct {
	PortPath        string        // serial device, e.g. /dev/ttyUSB0
	BaudRate        int           // serial speed, 8N1 framing
	PacketSize      int           // maximum bytes per serial write
	PacketDelay     time.Duration // pause between packets
	ExitDelay       time.Duration // wait before closing the port
	FirmwareTimeout time.Duration // handshake response deadline
}

func (c PrinterConfig) withDefaults() PrinterConfig {
	if c.BaudRate <= 0 {
		c.BaudRate = DefaultBaudRate
	}
	if c.PacketSize <= 0 {
		c.PacketSize = DefaultPacketSize
	}
	if c.PacketDelay < 0 {
		c.PacketDelay = DefaultPacketDelay
	}
	if c.ExitDelay <= 0 {
		c.ExitDelay = DefaultExitDelay
	}
	if c.FirmwareTimeout <= 0 {
		c.FirmwareTimeout = DefaultFirmwareTimeout
	}
	return c
}

// Renderer produces the pixel surface for a template.  Implementations must
// be deterministic: identical inputs produce pixel-identical output.
type Renderer interface {
	Render(t *template.Template, vars map[string]any, d Dimensions) (image.Image, error)
}
