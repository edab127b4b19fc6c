package speeduino

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mkPayload() []byte {
	return make([]byte, MinPayload)
}

func TestDecodeRejectsShortPayload(t *testing.T) {
	for _, n := range []int{0, 1, MinPayload - 1} {
		_, err := Decode(make([]byte, n), AFRU8Tenths)
		require.Error(t, err)
		assert.Equal(t, ErrShortPayload, errors.Cause(err))
	}
}

func TestDecodeRPM(t *testing.T) {
	p := mkPayload()
	p[idxRPMLow] = 0xE8
	p[idxRPMLow+1] = 0x03

	d, err := Decode(p, AFRU8Tenths)
	require.NoError(t, err)
	assert.Equal(t, 1000, d.RPM)
}

func TestDecodeTemperatures(t *testing.T) {
	p := mkPayload()
	p[idxIAT] = 60 // 20C after offset
	p[idxCLT] = 130

	d, err := Decode(p, AFRU8Tenths)
	require.NoError(t, err)
	assert.Equal(t, 20, d.IATC)
	assert.Equal(t, 90, d.CLTC)
}

func TestDecodeBatteryVoltage(t *testing.T) {
	p := mkPayload()
	p[idxVBat10] = 138

	d, err := Decode(p, AFRU8Tenths)
	require.NoError(t, err)
	assert.Equal(t, float32(13.8), d.VBat)
}

func TestDecodeThrottle(t *testing.T) {
	p := mkPayload()
	p[idxTPS] = 199

	d, err := Decode(p, AFRU8Tenths)
	require.NoError(t, err)
	assert.Equal(t, 100, d.TPS)

	p[idxTPS] = 0
	d, err = Decode(p, AFRU8Tenths)
	require.NoError(t, err)
	assert.Equal(t, 0, d.TPS)
}

func TestDecodeAdvance(t *testing.T) {
	p := mkPayload()
	p[idxAdvance] = 24

	d, err := Decode(p, AFRU8Tenths)
	require.NoError(t, err)
	assert.Equal(t, 24, d.Advance)
}

func TestDecodeStatusBits(t *testing.T) {
	p := mkPayload()

	d, err := Decode(p, AFRU8Tenths)
	require.NoError(t, err)
	assert.False(t, d.Warmup)
	assert.False(t, d.Launch)

	p[idxEngine] = 1 << 3
	p[idxSparkBF] = 1 << 0
	d, err = Decode(p, AFRU8Tenths)
	require.NoError(t, err)
	assert.True(t, d.Warmup)
	assert.True(t, d.Launch)

	p[idxSparkBF] = 1 << 1
	d, err = Decode(p, AFRU8Tenths)
	require.NoError(t, err)
	assert.True(t, d.Launch)

	p[idxSparkBF] = 1 << 2
	d, err = Decode(p, AFRU8Tenths)
	require.NoError(t, err)
	assert.False(t, d.Launch)
}

func TestDecodeAFRFormats(t *testing.T) {
	p := mkPayload()

	p[idxAFR] = 150
	d, err := Decode(p, AFRU8Tenths)
	require.NoError(t, err)
	assert.Equal(t, float32(15.0), d.AFR)

	p[idxAFR] = 0xC0 // 1472 LE
	p[idxAFR+1] = 0x05
	d, err = Decode(p, AFRU16Hundredths)
	require.NoError(t, err)
	assert.Equal(t, float32(14.72), d.AFR)

	p[idxAFR] = 147
	p[idxAFR+1] = 0
	d, err = Decode(p, AFRU16Tenths)
	require.NoError(t, err)
	assert.Equal(t, float32(14.7), d.AFR)
}

func TestDecodeDeterministic(t *testing.T) {
	p := mkPayload()
	for i := range p {
		p[i] = byte(i * 7)
	}
	first, err := Decode(p, AFRU16Hundredths)
	require.NoError(t, err)
	for i := 0; i < 100; i++ {
		d, err := Decode(p, AFRU16Hundredths)
		require.NoError(t, err)
		assert.Equal(t, first, d)
	}
}

func TestAFRDecodeShortField(t *testing.T) {
	// per-format decoders default to zero when the field offset falls outside
	// the payload, instead of failing the whole decode
	short := make([]byte, idxAFR)
	for _, f := range []AFRFormat{AFRU16Hundredths, AFRU16Tenths, AFRU8Tenths} {
		afr, ok := f.decode(short)
		assert.False(t, ok, f.String())
		assert.Equal(t, float32(0), afr, f.String())
	}

	// one byte available: enough for u8, not for u16
	one := make([]byte, idxAFR+1)
	one[idxAFR] = 150
	afr, ok := AFRU8Tenths.decode(one)
	assert.True(t, ok)
	assert.Equal(t, float32(15.0), afr)
	_, ok = AFRU16Tenths.decode(one)
	assert.False(t, ok)
}

func TestAFRFormatValid(t *testing.T) {
	assert.True(t, AFRU16Hundredths.Valid())
	assert.True(t, AFRU16Tenths.Valid())
	assert.True(t, AFRU8Tenths.Valid())
	assert.False(t, AFRFormat(3).Valid())
}
