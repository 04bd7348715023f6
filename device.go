package labelprint

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"time"

	"go.bug.st/serial"
)

// Port is the serial channel the transmitter writes to.  It is satisfied by
// go.bug.st/serial ports and by in-memory fakes in tests.
type Port interface {
	io.ReadWriteCloser
}

// OpenSerial opens the serial device at path with 8N1 framing.  The path is
// checked against the enumerated system ports first, so that a typo fails
// with a clear error instead of a driver-specific one.
func OpenSerial(path string, baudRate int) (Port, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}
	if !slices.Contains(ports, path) {
		return nil, fmt.Errorf("serial port %s not found (have: %v)", path, ports)
	}

	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", path, err)
	}
	slog.Debug("serial port open", "path", path, "baud", baudRate)
	return port, nil
}

// requestFirmware writes the firmware version request and blocks until the
// device answers with one inbound read, the timeout expires, or ctx is
// cancelled.  A silent device yields [ErrDeviceUnresponsive] rather than
// hanging the run.
func requestFirmware(ctx context.Context, port Port, request []byte, timeout time.Duration) (string, error) {
	if _, err := port.Write(request); err != nil {
		return "", fmt.Errorf("firmware request: %w", err)
	}

	type readResult struct {
		data []byte
		err  error
	}
	resCh := make(chan readResult, 1)
	go func() {
		buf := make([]byte, 64)
		n, err := port.Read(buf)
		resCh <- readResult{data: buf[:n], err: err}
	}()

	select {
	case res := <-resCh:
		if res.err != nil {
			return "", fmt.Errorf("firmware response: %w", res.err)
		}
		fw := firmwareString(res.data)
		slog.Debug("firmware version received", "version", fw)
		return fw, nil
	case <-time.After(timeout):
		return "", fmt.Errorf("%w: no firmware response within %s", ErrDeviceUnresponsive, timeout)
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// firmwareString renders the firmware response for humans.  Devices answer
// with an ASCII version string padded with NULs; anything else is shown as
// hex.
func firmwareString(data []byte) string {
	s := strings.TrimRight(string(data), "\x00\r\n")
	for _, r := range s {
		if r < 0x20 || r > 0x7e {
			return fmt.Sprintf("% x", data)
		}
	}
	return s
}
