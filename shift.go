package dash

// shiftBlinkMs is the alert blink half-period.
const shiftBlinkMs = 180

// ShiftSignals is the slice of the presentation surface the shift light
// drives.
type ShiftSignals interface {
	EnterShiftAlert()
	ShiftBlink(on bool)
	ExitShiftAlert()
}

// ShiftLight is the two-state over-rev alert machine. It activates while the
// link is valid and RPM sits at or above the configured threshold, and blinks
// on a wall-clock cadence independent of telemetry arrival. Created at
// startup, mutated each tick, never persisted.
type ShiftLight struct {
	active  bool
	blinkOn bool
	blinkT0 uint32
}

// Active reports whether the alert is currently shown.
func (s *ShiftLight) Active() bool {
	return s.active
}

// Tick evaluates the activation predicate and advances the blink timer.
// Signals are edge-triggered: one enter per activation, one exit per
// deactivation, one blink per phase flip.
func (s *ShiftLight) Tick(now uint32, enabled bool, thresholdRPM int, linkValid bool, rpm int, sig ShiftSignals) {
	if enabled && linkValid && rpm >= thresholdRPM {
		if !s.active {
			s.active = true
			s.blinkT0 = now
			s.blinkOn = true
			sig.EnterShiftAlert()
			sig.ShiftBlink(true)
			return
		}
		if now-s.blinkT0 >= shiftBlinkMs {
			s.blinkT0 = now
			s.blinkOn = !s.blinkOn
			sig.ShiftBlink(s.blinkOn)
		}
		return
	}

	if s.active {
		s.active = false
		sig.ExitShiftAlert()
	}
}

// Reset drops the alert without emitting signals; used when the surface is
// being suspended and exit drawing would be wasted.
func (s *ShiftLight) Reset() {
	s.active = false
	s.blinkOn = false
}
