package reach

// watchdog is the sole timeout primitive in the engine (spec §5): a
// period in milliseconds measured against the tick counter the host
// feeds into Engine.Process. A zero period disables it.
type watchdog struct {
	active       bool
	periodMs     uint32
	deadlineTick uint32
}

func (w *watchdog) start(periodMs uint32, now uint32) {
	if periodMs == 0 {
		w.active = false
		return
	}
	w.periodMs = periodMs
	w.deadlineTick = now + periodMs
	w.active = true
}

func (w *watchdog) stroke(now uint32) {
	if !w.active {
		return
	}
	w.deadlineTick = now + w.periodMs
}

func (w *watchdog) end() {
	w.active = false
}

func (w *watchdog) expired(now uint32) bool {
	if !w.active {
		return false
	}
	return int32(now-w.deadlineTick) >= 0
}
