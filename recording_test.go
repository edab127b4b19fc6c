package dash

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRecorder(mode Mode) (*Recorder, *cfgStub, *sinkStub) {
	cfg := newCfgStub()
	sink := &sinkStub{available: true}
	return NewRecorder(cfg, sink, func() Mode { return mode }), cfg, sink
}

func TestCanStartReasons(t *testing.T) {
	r, cfg, sink := newTestRecorder(ModeNormal)

	assert.NoError(t, r.CanStart())

	cfg.settings.LogEnabled = false
	assert.Equal(t, ErrLoggingDisabled, r.CanStart())
	cfg.settings.LogEnabled = true

	sink.available = false
	assert.Equal(t, ErrStorageUnavailable, r.CanStart())
	sink.available = true

	require.NoError(t, r.Start())
	assert.Equal(t, ErrAlreadyRecording, r.CanStart())
}

func TestCanStartMaintenanceBusy(t *testing.T) {
	r, _, _ := newTestRecorder(ModePortal)
	assert.Equal(t, ErrMaintenanceBusy, r.CanStart())
}

func TestStartCommitsCounterBeforeOpen(t *testing.T) {
	r, cfg, sink := newTestRecorder(ModeNormal)

	require.NoError(t, r.Start())
	assert.Equal(t, []uint32{1}, sink.sessions)
	assert.Equal(t, uint32(2), cfg.Settings().LogIndex)
	assert.Equal(t, 1, cfg.commits)
}

func TestStartBurnsSessionOnOpenFailure(t *testing.T) {
	r, cfg, sink := newTestRecorder(ModeNormal)
	sink.openErr = errors.New("no space")

	require.Error(t, r.Start())
	assert.False(t, r.Recording())
	// the counter already advanced: session 1 is burned, never reused
	assert.Equal(t, uint32(2), cfg.Settings().LogIndex)

	sink.openErr = nil
	require.NoError(t, r.Start())
	assert.Equal(t, []uint32{2}, sink.sessions)
}

func TestStartAbortsWhenCommitFails(t *testing.T) {
	r, cfg, sink := newTestRecorder(ModeNormal)
	cfg.commitErr = errors.New("flash write failed")

	require.Error(t, r.Start())
	assert.False(t, r.Recording())
	assert.Empty(t, sink.sessions, "sink must not open without a durable counter")
}

func TestSessionNumbersIncrease(t *testing.T) {
	r, _, sink := newTestRecorder(ModeNormal)

	require.NoError(t, r.Start())
	r.Stop()
	require.NoError(t, r.Start())
	r.Stop()
	assert.Equal(t, []uint32{1, 2}, sink.sessions)
}

func TestAppendCadenceAndFlush(t *testing.T) {
	r, _, sink := newTestRecorder(ModeNormal)
	require.NoError(t, r.Start())

	snap := &Snapshot{RPM: 3000}
	r.Tick(0, snap)
	r.Tick(50, snap) // below cadence
	r.Tick(100, snap)
	r.Tick(150, snap)
	r.Tick(200, snap)
	assert.Len(t, sink.rows, 3)
	assert.Equal(t, 0, sink.flushes, "flush window not reached")

	r.Tick(1000, snap)
	assert.Equal(t, 1, sink.flushes)
}

func TestCanAppendGuards(t *testing.T) {
	mode := ModeNormal
	cfg := newCfgStub()
	sink := &sinkStub{available: true}
	r := NewRecorder(cfg, sink, func() Mode { return mode })

	assert.False(t, r.CanAppend(), "not recording yet")
	require.NoError(t, r.Start())
	assert.True(t, r.CanAppend())

	sink.available = false
	assert.False(t, r.CanAppend())
	sink.available = true

	mode = ModePortal
	assert.False(t, r.CanAppend())
	mode = ModeNormal

	r.Stop()
	assert.False(t, r.CanAppend())
}

func TestStopIdempotent(t *testing.T) {
	r, _, sink := newTestRecorder(ModeNormal)
	require.NoError(t, r.Start())

	r.Stop()
	r.Stop()
	assert.Equal(t, 1, sink.closes)
}
