// Package dash is the realtime core of a Speeduino engine dashboard: frame
// ingestion, decoding, alarm evaluation, shift-light control, recording
// admission and the Normal⇄Portal mode arbiter. All state lives in the Dash
// context object; there are no package globals. Every method is synchronous
// and non-blocking so a single cooperative loop can drive the whole core
// alongside presentation refresh.
package dash

import (
	"github.com/jd3nn1s/dash/speeduino"
	log "github.com/sirupsen/logrus"
)

const (
	// PollIntervalMs is the cadence for requesting a fresh frame while idle.
	PollIntervalMs = 100
	// LinkStaleMs invalidates telemetry when no frame decoded in the window.
	LinkStaleMs = 700
	// ModeSampleMs is the cadence at which callers should sample the
	// maintenance-client signal before calling RequestModeChange; sampling
	// instead of event-driving avoids transition storms from transient
	// associations.
	ModeSampleMs = 250
)

// Dash owns the telemetry pipeline and threads the shared context through
// every component.
type Dash struct {
	src     ByteSource
	cfg     ConfigStore
	surface Surface

	rx      *speeduino.Receiver
	shift   *ShiftLight
	rec     *Recorder
	arbiter *ModeArbiter

	forwarders []Forwarder

	snapshot  Snapshot
	alarms    AlarmFlags
	linkValid bool

	lastPollMs uint32
	polledOnce bool
}

// New wires the core. The source is assumed started; the caller drives Tick.
func New(src ByteSource, cfg ConfigStore, surface Surface, sink LogSink) *Dash {
	d := &Dash{
		src:     src,
		cfg:     cfg,
		surface: surface,
		rx:      &speeduino.Receiver{},
		shift:   &ShiftLight{},
	}
	d.rec = NewRecorder(cfg, sink, d.Mode)
	d.arbiter = NewModeArbiter(src, surface, d.rec, d.onResume)
	return d
}

// AddForwarder registers an out-of-band consumer for changed snapshots.
func (d *Dash) AddForwarder(fwd Forwarder) {
	d.forwarders = append(d.forwarders, fwd)
}

// Recorder exposes the recording gate for the REC control.
func (d *Dash) Recorder() *Recorder {
	return d.rec
}

// Snapshot returns the last decoded reading; check LinkValid before trusting
// it.
func (d *Dash) Snapshot() Snapshot {
	return d.snapshot
}

// Alarms returns the threshold flags for the current snapshot.
func (d *Dash) Alarms() AlarmFlags {
	return d.alarms
}

// Mode returns the current operating mode.
func (d *Dash) Mode() Mode {
	return d.arbiter.Mode()
}

// LinkValid reports whether telemetry is fresh enough to display.
func (d *Dash) LinkValid() bool {
	return d.linkValid
}

// RxStats exposes the receiver counters for diagnostics.
func (d *Dash) RxStats() speeduino.Stats {
	return d.rx.Stats()
}

// FeedByte pushes one raw link byte through the receiver and, on a completed
// frame, replaces the snapshot. Callable per byte or in bursts.
func (d *Dash) FeedByte(b byte, now uint32) {
	frame := d.rx.Feed(b)
	if frame == nil {
		return
	}

	data, err := speeduino.Decode(frame.Payload, d.cfg.Settings().AFRFormat)
	if err != nil {
		// short realtime block: no output, no side effect
		log.WithField("err", err).Debug("discarding undersized payload")
		return
	}
	d.applySnapshot(data, now)
}

// applySnapshot replaces the current reading wholesale and fans out.
func (d *Dash) applySnapshot(data speeduino.Data, now uint32) {
	prev := d.snapshot
	d.snapshot = Snapshot{
		RPM:         data.RPM,
		IATC:        data.IATC,
		CLTC:        data.CLTC,
		VBat:        data.VBat,
		AFR:         data.AFR,
		TPS:         data.TPS,
		Advance:     data.Advance,
		Warmup:      data.Warmup,
		Launch:      data.Launch,
		Degraded:    data.Degraded,
		TimestampMs: now,
	}
	d.alarms = EvaluateAlarms(&d.snapshot, d.cfg.Settings().Warn)
	if !d.linkValid {
		log.Info("telemetry link up")
	}
	d.linkValid = true
	d.surface.UpdateTelemetry(&d.snapshot, d.alarms, true)

	for _, fwd := range d.forwarders {
		if err := fwd.Forward(&prev, &d.snapshot); err != nil {
			log.WithField("err", err).Warn("unable to forward telemetry")
		}
	}
}

// Tick runs one control-loop iteration: drain the link, poll on cadence,
// re-evaluate staleness, drive the shift light and the recorder. Does nothing
// in Portal mode; the arbiter has quiesced the resources this touches.
func (d *Dash) Tick(now uint32) {
	if d.arbiter.Mode() == ModePortal {
		return
	}

	d.drainSource(now)

	if d.rx.Idle() && (!d.polledOnce || now-d.lastPollMs >= PollIntervalMs) {
		d.poll(now)
	}

	if d.linkValid && now-d.snapshot.TimestampMs > LinkStaleMs {
		d.linkValid = false
		log.Warn("telemetry link stale")
		d.surface.UpdateTelemetry(&d.snapshot, d.alarms, false)
	}

	s := d.cfg.Settings()
	d.shift.Tick(now, s.ShiftEnabled, s.ShiftRPM, d.linkValid, d.snapshot.RPM, d.surface)

	d.rec.Tick(now, &d.snapshot)
}

// RequestModeChange samples the maintenance-client signal: any connected
// station forces Portal, none returns to Normal. Idempotent; repeated
// requests for the current target collapse to one transition.
func (d *Dash) RequestModeChange(stationCount int, now uint32) {
	target := ModeNormal
	if stationCount > 0 {
		target = ModePortal
	}
	if target == ModePortal && d.shift.Active() {
		// surface is about to be suspended; no point drawing the exit
		d.shift.Reset()
	}
	d.arbiter.Request(target, now)
}

func (d *Dash) drainSource(now uint32) {
	for d.src.Available() > 0 {
		b, err := d.src.ReadByte()
		if err != nil {
			log.WithField("err", err).Warn("unable to read telemetry byte")
			return
		}
		d.FeedByte(b, now)
	}
}

func (d *Dash) poll(now uint32) {
	if _, err := d.src.Write([]byte{speeduino.PollCommand}); err != nil {
		log.WithField("err", err).Warn("unable to poll ECU")
		return
	}
	d.lastPollMs = now
	d.polledOnce = true
}

// onResume re-arms telemetry after the arbiter restarts the link: partial
// frames are discarded and the snapshot is stale until a fresh decode.
func (d *Dash) onResume(now uint32) {
	d.rx.Reset()
	d.linkValid = false
	d.lastPollMs = now
	d.polledOnce = true
}
