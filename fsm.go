package labelprint

import (
	"context"
	"log/slog"

	"github.com/looplab/fsm"
)

// Transmission run states.  Transitions are strictly forward; failed is
// reachable from every non-terminal state and, like completed, is terminal.
const (
	stateIdle             = "idle"
	stateConnecting       = "connecting"
	stateAwaitingFirmware = "awaiting_firmware"
	stateRendering        = "rendering"
	stateSending          = "sending"
	stateFinalizing       = "finalizing"
	stateCompleted        = "completed"
	stateFailed           = "failed"
)

const (
	evConnect   = "connect"
	evHandshake = "handshake"
	evRender    = "render"
	evSend      = "send"
	evFinalize  = "finalize"
	evComplete  = "complete"
	evFail      = "fail"
)

var runFsmEvts = []fsm.EventDesc{
	{Name: evConnect, Src: []string{stateIdle}, Dst: stateConnecting},
	{Name: evHandshake, Src: []string{stateConnecting}, Dst: stateAwaitingFirmware},
	{Name: evRender, Src: []string{stateAwaitingFirmware}, Dst: stateRendering},
	{Name: evSend, Src: []string{stateRendering}, Dst: stateSending},
	{Name: evFinalize, Src: []string{stateSending}, Dst: stateFinalizing},
	{Name: evComplete, Src: []string{stateFinalizing}, Dst: stateCompleted},
	{
		Name: evFail,
		Src: []string{
			stateIdle,
			stateConnecting,
			stateAwaitingFirmware,
			stateRendering,
			stateSending,
			stateFinalizing,
		},
		Dst: stateFailed,
	},
}

func newRunFSM() *fsm.FSM {
	return fsm.NewFSM(
		stateIdle,
		runFsmEvts,
		fsm.Callbacks{
			"enter_state": func(ctx context.Context, e *fsm.Event) {
				slog.DebugContext(ctx, "transmission state", "from", e.Src, "to", e.Dst)
			},
		},
	)
}
