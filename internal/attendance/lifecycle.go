package attendance

import (
	"context"
	"log"

	"github.com/looplab/fsm"
)

const (
	stateIdle   = "idle"
	stateActive = "active"

	eventCreate = "create"
	eventEnd    = "end"
)

// newLifecycle builds the per-teacher state machine: idle -> active -> idle.
// QR generation and marking keep the machine in "active" and are not events.
func newLifecycle(teacherID string) *fsm.FSM {
	return fsm.NewFSM(
		stateIdle,
		fsm.Events{
			{Name: eventCreate, Src: []string{stateIdle}, Dst: stateActive},
			{Name: eventEnd, Src: []string{stateActive}, Dst: stateIdle},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				log.Printf("attendance %s: %s -> %s", teacherID, e.Src, e.Dst)
			},
		},
	)
}
