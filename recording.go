package dash

import (
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const (
	logAppendMs = 100
	logFlushMs  = 1000
)

// Reasons a recording cannot start. Returned as-is so callers can show the
// operator why the REC request was refused; never fatal.
var (
	ErrLoggingDisabled    = errors.New("logging disabled by configuration")
	ErrStorageUnavailable = errors.New("log storage unavailable")
	ErrAlreadyRecording   = errors.New("already recording")
	ErrMaintenanceBusy    = errors.New("maintenance mode active")
)

// Recorder is the admission gate between snapshots and the log sink. It owns
// the recording flag and the append/flush cadence; the sink itself is an
// external collaborator.
type Recorder struct {
	cfg  ConfigStore
	sink LogSink
	mode func() Mode

	recording   bool
	lastAppend  uint32
	lastFlush   uint32
	everAppends bool
}

// NewRecorder builds a gate over the given sink. mode is consulted on every
// admission check as defense-in-depth against touching storage in Portal.
func NewRecorder(cfg ConfigStore, sink LogSink, mode func() Mode) *Recorder {
	return &Recorder{
		cfg:  cfg,
		sink: sink,
		mode: mode,
	}
}

// Recording reports whether a session is open.
func (r *Recorder) Recording() bool {
	return r.recording
}

// CanStart checks admission without side effects.
func (r *Recorder) CanStart() error {
	if !r.cfg.Settings().LogEnabled {
		return ErrLoggingDisabled
	}
	if !r.sink.Available() {
		return ErrStorageUnavailable
	}
	if r.recording {
		return ErrAlreadyRecording
	}
	if r.mode() == ModePortal {
		return ErrMaintenanceBusy
	}
	return nil
}

// Start opens a new recording session. The session counter is committed
// durably BEFORE the sink is opened: a crash between commit and open burns a
// number, but a number is never written twice.
func (r *Recorder) Start() error {
	if err := r.CanStart(); err != nil {
		return err
	}

	session := r.cfg.Settings().LogIndex
	pending := r.cfg.Begin()
	pending.LogIndex = session + 1
	if err := r.cfg.Commit(); err != nil {
		return errors.Wrap(err, "unable to advance session counter")
	}

	if err := r.sink.Open(session); err != nil {
		return errors.Wrapf(err, "unable to open log session %v", session)
	}

	log.WithField("session", session).Info("recording started")
	r.recording = true
	r.lastAppend = 0
	r.lastFlush = 0
	r.everAppends = false
	return nil
}

// Stop flushes and closes the current session. Safe to call when idle.
func (r *Recorder) Stop() {
	if !r.recording {
		return
	}
	if err := r.sink.Flush(); err != nil {
		log.WithField("err", err).Warn("unable to flush log sink")
	}
	if err := r.sink.Close(); err != nil {
		log.WithField("err", err).Warn("unable to close log sink")
	}
	r.recording = false
	log.Info("recording stopped")
}

// CanAppend checks admission for a single row.
func (r *Recorder) CanAppend() bool {
	return r.recording && r.sink.Available() && r.mode() != ModePortal
}

// Tick appends the snapshot at the configured cadence and flushes once a
// second. Errors degrade to warnings; the control loop never stops for them.
func (r *Recorder) Tick(now uint32, s *Snapshot) {
	if !r.CanAppend() {
		return
	}
	if r.everAppends && now-r.lastAppend < logAppendMs {
		return
	}
	r.lastAppend = now
	r.everAppends = true

	if err := r.sink.AppendRow(s); err != nil {
		log.WithField("err", err).Warn("unable to append log row")
		return
	}
	if now-r.lastFlush >= logFlushMs {
		r.lastFlush = now
		if err := r.sink.Flush(); err != nil {
			log.WithField("err", err).Warn("unable to flush log sink")
		}
	}
}
