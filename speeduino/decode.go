package speeduino

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// Payload offsets for the 'n' realtime-data block. The block is at least
// MinPayload bytes on every Speeduino firmware this decoder targets.
const (
	MinPayload = 40

	idxEngine  = 2
	idxIAT     = 6
	idxCLT     = 7
	idxVBat10  = 9
	idxAFR     = 10
	idxRPMLow  = 14
	idxAdvance = 23
	idxTPS     = 24
	idxSparkBF = 31

	tempOffset = 40
)

// ErrShortPayload is returned for payloads below MinPayload bytes.
var ErrShortPayload = errors.New("payload shorter than minimum realtime data block")

// AFRFormat selects how the air/fuel ratio is encoded in the payload. It is
// chosen by configuration, never auto-detected.
type AFRFormat uint8

const (
	// AFRU16Hundredths: little-endian 16-bit value in hundredths (1472 -> 14.72).
	AFRU16Hundredths AFRFormat = 0
	// AFRU16Tenths: little-endian 16-bit value in tenths (147 -> 14.7).
	AFRU16Tenths AFRFormat = 1
	// AFRU8Tenths: single byte in tenths (150 -> 15.0).
	AFRU8Tenths AFRFormat = 2
)

func (f AFRFormat) String() string {
	switch f {
	case AFRU16Hundredths:
		return "u16x100"
	case AFRU16Tenths:
		return "u16x10"
	case AFRU8Tenths:
		return "u8x10"
	}
	return "unknown"
}

// Valid reports whether f is one of the three defined encodings.
func (f AFRFormat) Valid() bool {
	return f <= AFRU8Tenths
}

// decode returns the AFR for this encoding, or ok=false if the payload is too
// short for the field. Each format has its own decode function.
func (f AFRFormat) decode(p []byte) (afr float32, ok bool) {
	switch f {
	case AFRU16Hundredths:
		return afrU16Hundredths(p)
	case AFRU16Tenths:
		return afrU16Tenths(p)
	default:
		return afrU8Tenths(p)
	}
}

func afrU16Hundredths(p []byte) (float32, bool) {
	if idxAFR+1 >= len(p) {
		return 0, false
	}
	return float32(binary.LittleEndian.Uint16(p[idxAFR:idxAFR+2])) / 100.0, true
}

func afrU16Tenths(p []byte) (float32, bool) {
	if idxAFR+1 >= len(p) {
		return 0, false
	}
	return float32(binary.LittleEndian.Uint16(p[idxAFR:idxAFR+2])) / 10.0, true
}

func afrU8Tenths(p []byte) (float32, bool) {
	if idxAFR >= len(p) {
		return 0, false
	}
	return float32(p[idxAFR]) / 10.0, true
}

// engineWarmup is bit 3 of the engine status byte.
func engineWarmup(status byte) bool {
	return status&(1<<3) != 0
}

// launchActive is hard or soft launch: bit 0 or bit 1 of the spark bitfield.
func launchActive(spark byte) bool {
	return spark&0x03 != 0
}

// Data is one decoded realtime reading in engineering units.
type Data struct {
	RPM     int
	IATC    int
	CLTC    int
	VBat    float32
	AFR     float32
	TPS     int
	Advance int
	Warmup  bool
	Launch  bool

	// Degraded is set when a field's offset fell outside the payload and the
	// field was defaulted instead of aborting the decode.
	Degraded bool
}

// Decode converts a validated frame payload to engineering units. Payloads
// shorter than MinPayload are rejected outright; beyond that, a field whose
// offset exceeds the payload defaults to zero and marks the result degraded.
// Deterministic and allocation-free for well-formed payloads.
func Decode(p []byte, afrFormat AFRFormat) (Data, error) {
	if len(p) < MinPayload {
		return Data{}, errors.Wrapf(ErrShortPayload, "got %v bytes", len(p))
	}

	d := Data{
		IATC:    int(p[idxIAT]) - tempOffset,
		CLTC:    int(p[idxCLT]) - tempOffset,
		VBat:    float32(p[idxVBat10]) / 10.0,
		RPM:     int(binary.LittleEndian.Uint16(p[idxRPMLow : idxRPMLow+2])),
		Advance: int(p[idxAdvance]),
		TPS:     (int(p[idxTPS]) + 1) / 2,
		Warmup:  engineWarmup(p[idxEngine]),
		Launch:  launchActive(p[idxSparkBF]),
	}

	afr, ok := afrFormat.decode(p)
	d.AFR = afr
	if !ok {
		d.Degraded = true
	}
	return d, nil
}
