package dash

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShiftEnterExitOnce(t *testing.T) {
	// rpm 7000 -> 6000 across a 6500 threshold: one enter, one exit
	s := &ShiftLight{}
	sig := &surfaceStub{}

	s.Tick(0, true, 6500, true, 7000, sig)
	s.Tick(10, true, 6500, true, 7000, sig)
	s.Tick(20, true, 6500, true, 6000, sig)
	s.Tick(30, true, 6500, true, 6000, sig)

	assert.Equal(t, 1, sig.enters)
	assert.Equal(t, 1, sig.exits)
}

func TestShiftBlinkCadence(t *testing.T) {
	s := &ShiftLight{}
	sig := &surfaceStub{}

	s.Tick(0, true, 6500, true, 7000, sig)
	require.Equal(t, []bool{true}, sig.blinks, "blink forced on at entry")

	// advance in 10ms ticks for just over two blink periods
	for now := uint32(10); now <= 2*shiftBlinkMs+10; now += 10 {
		s.Tick(now, true, 6500, true, 7000, sig)
	}
	require.Len(t, sig.blinks, 3)
	assert.Equal(t, []bool{true, false, true}, sig.blinks)
}

func TestShiftActivationPredicate(t *testing.T) {
	s := &ShiftLight{}
	sig := &surfaceStub{}

	s.Tick(0, false, 6500, true, 7000, sig) // disabled
	assert.False(t, s.Active())

	s.Tick(10, true, 6500, false, 7000, sig) // link invalid
	assert.False(t, s.Active())

	s.Tick(20, true, 6500, true, 6499, sig) // below threshold
	assert.False(t, s.Active())

	s.Tick(30, true, 6500, true, 6500, sig) // at threshold
	assert.True(t, s.Active())
	assert.Equal(t, 1, sig.enters)
}

func TestShiftExitWhenDisabledMidAlert(t *testing.T) {
	s := &ShiftLight{}
	sig := &surfaceStub{}

	s.Tick(0, true, 6500, true, 7000, sig)
	require.True(t, s.Active())

	s.Tick(10, false, 6500, true, 7000, sig)
	assert.False(t, s.Active())
	assert.Equal(t, 1, sig.exits)
}

func TestShiftResetEmitsNothing(t *testing.T) {
	s := &ShiftLight{}
	sig := &surfaceStub{}

	s.Tick(0, true, 6500, true, 7000, sig)
	s.Reset()
	assert.False(t, s.Active())
	assert.Equal(t, 0, sig.exits)

	// re-arming after reset produces a fresh enter
	s.Tick(10, true, 6500, true, 7000, sig)
	assert.Equal(t, 2, sig.enters)
}
