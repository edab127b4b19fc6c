package dash

import (
	"github.com/jd3nn1s/dash/speeduino"
	"github.com/pkg/errors"
)

// SimSource is a bench-test ByteSource that behaves like a Speeduino on the
// other end of the wire: every poll command written to it queues one realtime
// frame with ramping values. Lets the full pipeline run with no hardware.
type SimSource struct {
	format speeduino.AFRFormat

	running bool
	buf     []byte

	rpm     int
	rpmDown bool
	clt     int
	cltDown bool
	afr     float32
	afrDown bool
}

// NewSimSource builds a stopped simulator emitting the given AFR encoding.
func NewSimSource(format speeduino.AFRFormat) *SimSource {
	return &SimSource{
		format: format,
		afr:    13.0,
	}
}

func (s *SimSource) Start() error {
	s.running = true
	s.buf = nil
	return nil
}

func (s *SimSource) Stop() error {
	s.running = false
	s.buf = nil
	return nil
}

func (s *SimSource) Available() int {
	return len(s.buf)
}

func (s *SimSource) ReadByte() (byte, error) {
	if len(s.buf) == 0 {
		return 0, errors.New("no data available")
	}
	b := s.buf[0]
	s.buf = s.buf[1:]
	return b, nil
}

// Write answers each poll command with one frame.
func (s *SimSource) Write(p []byte) (int, error) {
	if !s.running {
		return 0, errors.New("source stopped")
	}
	for _, b := range p {
		if b == speeduino.PollCommand {
			s.emitFrame()
			s.advance()
		}
	}
	return len(p), nil
}

func (s *SimSource) emitFrame() {
	payload := speeduino.EncodePayload(speeduino.Data{
		RPM:     s.rpm,
		IATC:    25,
		CLTC:    s.clt,
		VBat:    13.8,
		AFR:     s.afr,
		TPS:     s.rpm * 100 / 8000,
		Advance: 15,
		Warmup:  s.clt < 60,
		Launch:  false,
	}, s.format)
	s.buf = append(s.buf, speeduino.EncodeFrame(0, payload)...)
}

func (s *SimSource) advance() {
	if s.rpmDown {
		s.rpm -= 100
	} else {
		s.rpm += 100
	}
	if s.rpm >= 7200 {
		s.rpmDown = true
	} else if s.rpm <= 0 {
		s.rpmDown = false
	}

	if s.cltDown {
		s.clt -= 1
	} else {
		s.clt += 1
	}
	if s.clt >= 105 {
		s.cltDown = true
	} else if s.clt <= 0 {
		s.cltDown = false
	}

	if s.afrDown {
		s.afr -= 0.1
	} else {
		s.afr += 0.1
	}
	if s.afr >= 16.0 {
		s.afrDown = true
	} else if s.afr <= 11.0 {
		s.afrDown = false
	}
}
