package mqtt

import "time"

// TimerKind identifies one of the four timer kinds an Endpoint arms
// (§4.D); each has at most one active instance.
type TimerKind uint8

const (
	TimerPingreqSend TimerKind = iota
	TimerPingrespRecv
	TimerConnectionEstablish
	TimerShutdown
)

func (k TimerKind) String() string {
	switch k {
	case TimerPingreqSend:
		return "pingreq_send"
	case TimerPingrespRecv:
		return "pingresp_recv"
	case TimerConnectionEstablish:
		return "connection_establish"
	case TimerShutdown:
		return "shutdown"
	default:
		return "unknown"
	}
}

// timerSet owns the four timers. Arm/Cancel are idempotent: arming an
// already-armed timer replaces it, and firings are delivered with a
// generation counter so a timer cancelled-then-rearmed never delivers a
// stale fire (a late delivery after Cancel must be ignored, per §4.D).
type timerSet struct {
	timers [4]*time.Timer
	gen    [4]uint64
	fire   chan timerFire
}

type timerFire struct {
	kind TimerKind
	gen  uint64
}

func newTimerSet() *timerSet {
	return &timerSet{fire: make(chan timerFire, 4)}
}

func (t *timerSet) Arm(kind TimerKind, d time.Duration) {
	t.Cancel(kind)
	t.gen[kind]++
	gen := t.gen[kind]
	t.timers[kind] = time.AfterFunc(d, func() {
		t.fire <- timerFire{kind: kind, gen: gen}
	})
}

func (t *timerSet) Cancel(kind TimerKind) {
	if tm := t.timers[kind]; tm != nil {
		tm.Stop()
		t.timers[kind] = nil
	}
}

func (t *timerSet) CancelAll() {
	for k := range t.timers {
		t.Cancel(TimerKind(k))
	}
}

// valid reports whether a delivered fire event still corresponds to the
// currently-armed instance of its kind (not superseded by a later
// Arm/Cancel).
func (t *timerSet) valid(f timerFire) bool {
	return t.gen[f.kind] == f.gen && t.timers[f.kind] != nil
}
