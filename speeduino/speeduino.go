// Package speeduino implements the Speeduino secondary-serial telemetry
// protocol: the 'n' realtime-data frame reader and the fixed-offset payload
// decoder. The receiver is a per-byte state machine that never blocks and
// never fails; malformed input costs at most one frame.
package speeduino

import (
	log "github.com/sirupsen/logrus"
)

const (
	// PollCommand is written to the ECU to request one realtime-data frame.
	PollCommand byte = 'n'

	// MaxPayload is the largest declared payload length accepted. A length
	// byte of exactly MaxPayload is valid; only larger values are rejected.
	MaxPayload = 200
)

type rxState uint8

const (
	waitSync rxState = iota
	waitType
	waitLength
	readPayload
)

// Frame is one length-prefixed realtime-data unit from the ECU.
type Frame struct {
	Type    byte
	Payload []byte
}

// Stats counts receiver activity. Drops are frames abandoned due to a
// malformed length byte; they are counted, never surfaced as errors.
type Stats struct {
	Bytes  uint32
	Frames uint32
	Drops  uint32
}

// Receiver reassembles frames from a raw byte stream. Zero value is ready.
type Receiver struct {
	state     rxState
	frameType byte
	length    int
	count     int
	buf       [MaxPayload]byte
	stats     Stats
}

// Feed advances the state machine by one byte and returns a completed frame,
// or nil. Safe to call per-byte or in bursts; never blocks.
func (r *Receiver) Feed(b byte) *Frame {
	r.stats.Bytes++

	switch r.state {
	case waitSync:
		if b == PollCommand {
			r.state = waitType
		}
	case waitType:
		// type byte is recorded but otherwise uninterpreted
		r.frameType = b
		r.state = waitLength
	case waitLength:
		r.length = int(b)
		r.count = 0
		if r.length == 0 || r.length > MaxPayload {
			r.stats.Drops++
			r.state = waitSync
			log.WithField("length", r.length).Debug("dropping frame with bad length")
			break
		}
		r.state = readPayload
	case readPayload:
		r.buf[r.count] = b
		r.count++
		if r.count >= r.length {
			r.stats.Frames++
			r.state = waitSync
			payload := make([]byte, r.length)
			copy(payload, r.buf[:r.length])
			return &Frame{
				Type:    r.frameType,
				Payload: payload,
			}
		}
	}
	return nil
}

// Idle reports whether the receiver is between frames. The owner must only
// poll the ECU while idle so requests never overlap an outstanding frame.
func (r *Receiver) Idle() bool {
	return r.state == waitSync
}

// Reset discards any partial frame and returns to sync search. Used when the
// serial link is reopened and stale buffered bytes were flushed.
func (r *Receiver) Reset() {
	r.state = waitSync
	r.length = 0
	r.count = 0
}

// Stats returns a copy of the receiver counters.
func (r *Receiver) Stats() Stats {
	return r.stats
}
