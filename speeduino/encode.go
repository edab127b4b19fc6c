package speeduino

import "encoding/binary"

// EncodePayload builds a minimal realtime-data payload that Decode maps back
// to d. Used by the simulated ECU and by tests; real hardware produces these
// blocks itself.
func EncodePayload(d Data, f AFRFormat) []byte {
	p := make([]byte, MinPayload)

	p[idxIAT] = byte(d.IATC + tempOffset)
	p[idxCLT] = byte(d.CLTC + tempOffset)
	p[idxVBat10] = byte(d.VBat * 10)
	binary.LittleEndian.PutUint16(p[idxRPMLow:idxRPMLow+2], uint16(d.RPM))
	p[idxAdvance] = byte(d.Advance)
	p[idxTPS] = byte(d.TPS * 2)

	switch f {
	case AFRU16Hundredths:
		binary.LittleEndian.PutUint16(p[idxAFR:idxAFR+2], uint16(d.AFR*100))
	case AFRU16Tenths:
		binary.LittleEndian.PutUint16(p[idxAFR:idxAFR+2], uint16(d.AFR*10))
	default:
		p[idxAFR] = byte(d.AFR * 10)
	}

	if d.Warmup {
		p[idxEngine] |= 1 << 3
	}
	if d.Launch {
		p[idxSparkBF] |= 1 << 0
	}
	return p
}

// EncodeFrame wraps a payload in the full wire framing: command, type,
// length, payload.
func EncodeFrame(frameType byte, payload []byte) []byte {
	frame := make([]byte, 0, 3+len(payload))
	frame = append(frame, PollCommand, frameType, byte(len(payload)))
	return append(frame, payload...)
}
