package labelprint_test

import (
	"bytes"
	"context"
	"encoding/binary"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rusq/labelprint"
	"github.com/rusq/labelprint/render"
	"github.com/rusq/labelprint/template"
)

// loopPort answers the firmware handshake and swallows everything else.
type loopPort struct {
	mu     sync.Mutex
	stream []byte
	respCh chan []byte
	closed bool
}

func newLoopPort() *loopPort {
	return &loopPort{respCh: make(chan []byte, 1)}
}

func (p *loopPort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stream = append(p.stream, b...)
	if bytes.Equal(b, labelprint.Frame(0, 0).FirmwareRequest) {
		p.respCh <- []byte("v1.0")
	}
	return len(b), nil
}

func (p *loopPort) Read(b []byte) (int, error) {
	data, ok := <-p.respCh
	if !ok {
		return 0, io.EOF
	}
	return copy(b, data), nil
}

func (p *loopPort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		p.closed = true
		close(p.respCh)
	}
	return nil
}

// TestEndToEnd drives a text template through the real renderer, the packer
// and the transmitter, and checks the byte accounting of the wire stream.
func TestEndToEnd(t *testing.T) {
	const tmplJSON = `{
		"name": "simple-text",
		"elements": [
			{"type": "text", "content": "${text}", "position": {"x": 10, "y": 20}}
		]
	}`
	tmpl, err := template.Parse(strings.NewReader(tmplJSON))
	require.NoError(t, err)

	job := labelprint.Job{
		Template:   tmpl,
		Variables:  map[string]any{"text": "Hello World"},
		Dimensions: labelprint.Dimensions{Width: 384, Height: 25, DPI: 203},
	}

	port := newLoopPort()
	cfg := labelprint.PrinterConfig{
		PacketSize:      122,
		ExitDelay:       time.Millisecond,
		FirmwareTimeout: time.Second,
	}
	tx := labelprint.New(cfg, render.New(), labelprint.WithPort(port))

	rep, err := tx.Run(context.Background(), job)
	require.NoError(t, err)

	// 384 columns at 25 rows of 8 dots pack into 9600 bytes, split 255+129.
	assert.Equal(t, "v1.0", rep.Firmware)
	assert.Equal(t, 9600, rep.Bytes)
	assert.Equal(t, 2, rep.Splits)

	proto := labelprint.Frame(0, 0)
	wire := port.stream
	want := len(proto.FirmwareRequest) + 2*len(proto.Prefix) + 9600 + len(proto.Postfix)
	assert.Equal(t, want, len(wire))
	assert.True(t, bytes.HasPrefix(wire, proto.FirmwareRequest))
	assert.True(t, bytes.HasSuffix(wire, proto.Postfix))

	// the run paints something: the first split's raster data carries set
	// bits where the text lands.
	start := len(proto.FirmwareRequest) + len(proto.Prefix)
	data := wire[start : start+255*25]
	assert.NotEqual(t, bytes.Repeat([]byte{0}, len(data)), data)
}

// TestEndToEnd_dimensionOverride checks that a template dimensions block
// wins over the base label size all the way down to the wire: the prefix
// must carry the overridden geometry, not the job's.
func TestEndToEnd_dimensionOverride(t *testing.T) {
	const tmplJSON = `{
		"name": "small",
		"dimensions": {"width": 100, "height": 4},
		"elements": [
			{"type": "rectangle", "position": {"x": 2, "y": 2}, "width": 20, "height": 10, "filled": true}
		]
	}`
	tmpl, err := template.Parse(strings.NewReader(tmplJSON))
	require.NoError(t, err)

	port := newLoopPort()
	cfg := labelprint.PrinterConfig{
		PacketSize:      122,
		ExitDelay:       time.Millisecond,
		FirmwareTimeout: time.Second,
	}
	tx := labelprint.New(cfg, render.New(), labelprint.WithPort(port))

	rep, err := tx.Run(context.Background(), labelprint.Job{
		Template:   tmpl,
		Dimensions: labelprint.Dimensions{Width: 384, Height: 25, DPI: 96},
	})
	require.NoError(t, err)
	assert.Equal(t, 100*4, rep.Bytes)
	assert.Equal(t, 1, rep.Splits)

	// prefix layout: 11-byte header, height BE16, width BE16, NUL
	proto := labelprint.Frame(0, 0)
	prefix := port.stream[len(proto.FirmwareRequest) : len(proto.FirmwareRequest)+len(proto.Prefix)]
	height := binary.BigEndian.Uint16(prefix[len(prefix)-5:])
	width := binary.BigEndian.Uint16(prefix[len(prefix)-3:])
	assert.EqualValues(t, 32, height, "4 modules of 8 dots")
	assert.EqualValues(t, 100, width)
}
