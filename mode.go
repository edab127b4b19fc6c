package dash

import (
	log "github.com/sirupsen/logrus"
)

// Mode is the operating mode. Exactly one is active; transitions are atomic
// from the arbiter's point of view.
type Mode uint8

const (
	// ModeNormal: live telemetry, presentation updates, recording allowed.
	ModeNormal Mode = iota
	// ModePortal: maintenance access owns the hardware; telemetry stopped.
	ModePortal
)

func (m Mode) String() string {
	if m == ModePortal {
		return "portal"
	}
	return "normal"
}

// ModeArbiter supervises Normal⇄Portal transitions. It is the sole authority
// for acquiring and releasing the serial link, the display surface and the
// storage handle; every transition quiesces one side before handing the
// resources to the other. Transitions are idempotent and synchronous; there
// is no externally observable intermediate state.
type ModeArbiter struct {
	src     ByteSource
	surface Surface
	rec     *Recorder

	// onResume re-arms telemetry after the link restarts: receiver reset,
	// link marked invalid until a fresh frame arrives.
	onResume func(now uint32)

	mode Mode
}

// NewModeArbiter starts in Normal with the data source assumed running.
func NewModeArbiter(src ByteSource, surface Surface, rec *Recorder, onResume func(now uint32)) *ModeArbiter {
	return &ModeArbiter{
		src:      src,
		surface:  surface,
		rec:      rec,
		onResume: onResume,
	}
}

// Mode returns the current operating mode.
func (a *ModeArbiter) Mode() Mode {
	return a.mode
}

// Request moves to the target mode. Repeated requests for the current mode
// are no-ops; concurrent requests coalesce to the latest target.
func (a *ModeArbiter) Request(target Mode, now uint32) {
	if target == a.mode {
		return
	}
	log.WithField("from", a.mode).WithField("to", target).Info("mode transition")

	if target == ModePortal {
		a.enterPortal()
	} else {
		a.enterNormal(now)
	}
	a.mode = target
}

// enterPortal releases the serial link and storage, then parks the display on
// a static maintenance screen. The display stays lit throughout.
func (a *ModeArbiter) enterPortal() {
	if err := a.src.Stop(); err != nil {
		log.WithField("err", err).Warn("unable to stop telemetry source")
	}
	if a.rec.Recording() {
		a.rec.Stop()
	}
	a.surface.Suspend()
	a.surface.ShowMaintenance()
}

// enterNormal restarts the link from a clean state and forces a full redraw.
// Telemetry is invalid until the first fresh frame decodes.
func (a *ModeArbiter) enterNormal(now uint32) {
	if err := a.src.Start(); err != nil {
		log.WithField("err", err).Warn("unable to restart telemetry source")
	}
	a.onResume(now)
	a.surface.Resume()
	a.surface.Redraw()
}
