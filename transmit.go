package labelprint

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/rusq/labelprint/template"
)

// Job is one print request: a validated template, the variable bindings for
// its text elements, and the base raster dimensions.
type Job struct {
	Template   *template.Template
	Variables  map[string]any
	Dimensions Dimensions
}

// Report is the completion record of a successful run.  The transmitter
// never terminates the process; the caller decides what to do with the
// report or the error.
type Report struct {
	RunID    uuid.UUID
	Firmware string
	Splits   int
	Packets  int
	Bytes    int
	Elapsed  time.Duration
}

// ProgressFunc is called after every written packet with the number of
// packets sent so far and the total for the run.
type ProgressFunc func(sent, total int)

// Transmitter owns the serial channel for the duration of one run and
// sequences the device interaction: handshake, splits, postfix, exit delay.
// It is not safe for concurrent use; the serial link is a single stateful
// resource and all writes are strictly sequential.
type Transmitter struct {
	cfg      PrinterConfig
	renderer Renderer
	port     Port // when nil, Run opens cfg.PortPath
	progress ProgressFunc
}

type Option func(*Transmitter)

// WithPort makes the transmitter use an already open channel instead of
// opening cfg.PortPath.  The channel is still closed at the end of the run.
func WithPort(p Port) Option {
	return func(t *Transmitter) {
		t.port = p
	}
}

// WithProgress installs a per-packet progress callback.
func WithProgress(fn ProgressFunc) Option {
	return func(t *Transmitter) {
		t.progress = fn
	}
}

// New creates a transmitter for one printer.  Zero config fields fall back
// to package defaults.
func New(cfg PrinterConfig, r Renderer, opt ...Option) *Transmitter {
	t := &Transmitter{
		cfg:      cfg.withDefaults(),
		renderer: r,
	}
	for _, o := range opt {
		o(t)
	}
	return t
}

// Run executes the full print sequence for the job and returns a completion
// report.  Any failure aborts the sequence, closes the port and surfaces a
// wrapped error; context cancellation takes the same path.
func (t *Transmitter) Run(ctx context.Context, job Job) (*Report, error) {
	start := time.Now()
	runID := uuid.New()
	lg := slog.With("run_id", runID, "template", job.Template.Name)
	sm := newRunFSM() // per run, so a Transmitter can be reused

	fail := func(stage string, err error) (*Report, error) {
		// the fsm event only fails when the run is already terminal.
		_ = sm.Event(ctx, evFail)
		lg.ErrorContext(ctx, "transmission failed", "stage", stage, "error", err)
		return nil, fmt.Errorf("%s: %w", stage, err)
	}

	if err := sm.Event(ctx, evConnect); err != nil {
		return nil, err
	}
	port := t.port
	if port == nil {
		p, err := OpenSerial(t.cfg.PortPath, t.cfg.BaudRate)
		if err != nil {
			return fail("connect", err)
		}
		port = p
	}
	defer func() {
		if err := port.Close(); err != nil {
			lg.Warn("error closing port", "error", err)
		}
	}()

	_ = sm.Event(ctx, evHandshake)
	firmware, err := requestFirmware(ctx, port, cmdFirmwareVersion, t.cfg.FirmwareTimeout)
	if err != nil {
		return fail("handshake", err)
	}
	lg.InfoContext(ctx, "device ready", "firmware", firmware)

	_ = sm.Event(ctx, evRender)
	img, err := t.renderer.Render(job.Template, job.Variables, job.Dimensions)
	if err != nil {
		return fail("render", err)
	}
	packed := PackImage(img)
	splits := SplitPacked(packed)
	// the frame height comes from the packed surface, not from the job:
	// a template dimension override changes what the renderer produced.
	height := packed.Rows * RowDepth
	lg.DebugContext(ctx, "image packed",
		"columns", packed.Width, "rows", packed.Rows, "bytes", len(packed.Data), "splits", len(splits))

	_ = sm.Event(ctx, evSend)
	var sent, total int
	for _, sp := range splits {
		total += packetCount(len(Frame(sp.Width, height).Prefix)+len(sp.Data), t.cfg.PacketSize)
	}
	for _, sp := range splits {
		proto := Frame(sp.Width, height)
		msg := make([]byte, 0, len(proto.Prefix)+len(sp.Data))
		msg = append(msg, proto.Prefix...)
		msg = append(msg, sp.Data...)
		lg.DebugContext(ctx, "sending split",
			"split", sp.Index+1, "of", sp.Total, "width", sp.Width, "bytes", len(msg))
		if err := t.sendPacketized(ctx, port, msg, &sent, total); err != nil {
			return fail(fmt.Sprintf("split %d/%d", sp.Index+1, sp.Total), err)
		}
	}

	_ = sm.Event(ctx, evFinalize)
	if err := writeAll(port, cmdFinish); err != nil {
		return fail("finalize", err)
	}
	if err := sleepCtx(ctx, t.cfg.ExitDelay); err != nil {
		return fail("finalize", err)
	}

	_ = sm.Event(ctx, evComplete)
	rep := &Report{
		RunID:    runID,
		Firmware: firmware,
		Splits:   len(splits),
		Packets:  sent,
		Bytes:    len(packed.Data),
		Elapsed:  time.Since(start),
	}
	lg.InfoContext(ctx, "print completed",
		"splits", rep.Splits, "packets", rep.Packets, "bytes", rep.Bytes, "elapsed", rep.Elapsed)
	return rep, nil
}

// sendPacketized writes msg as a series of cfg.PacketSize slices, awaiting
// each write and pausing cfg.PacketDelay between packets.  There is no
// concurrent work to overlap with: the delay purely respects the device
// ingestion rate.
func (t *Transmitter) sendPacketized(ctx context.Context, port Port, msg []byte, sent *int, total int) error {
	for _, pkt := range packetize(msg, t.cfg.PacketSize) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := writeAll(port, pkt); err != nil {
			return err
		}
		*sent++
		if t.progress != nil {
			t.progress(*sent, total)
		}
		if t.cfg.PacketDelay > 0 {
			if err := sleepCtx(ctx, t.cfg.PacketDelay); err != nil {
				return err
			}
		}
	}
	return nil
}

// packetize slices msg into size-bounded packets; the last packet may be
// shorter.  Packets alias msg, they are not copied.
func packetize(msg []byte, size int) [][]byte {
	packets := make([][]byte, 0, packetCount(len(msg), size))
	for off := 0; off < len(msg); off += size {
		packets = append(packets, msg[off:min(off+size, len(msg))])
	}
	return packets
}

func packetCount(length, size int) int {
	return (length + size - 1) / size
}

func writeAll(port Port, data []byte) error {
	n, err := port.Write(data)
	if err != nil {
		return fmt.Errorf("write failed: %w", err)
	}
	if n != len(data) {
		return fmt.Errorf("%w: %d of %d bytes", ErrShortWrite, n, len(data))
	}
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
