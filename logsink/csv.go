// Package logsink stores recording sessions as CSV files, one file per
// session, named log_00001.csv and so on. The column set matches what the
// dashboard's log viewer expects.
package logsink

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jd3nn1s/dash"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const header = "ms,rpm,iatC,cltC,vbat,afr,tps,advance,warmup,launch\n"

// CSVSink implements dash.LogSink over a directory of session files.
type CSVSink struct {
	dir string
	f   *os.File
	w   *bufio.Writer
}

// New builds a sink writing sessions under dir.
func New(dir string) *CSVSink {
	return &CSVSink{dir: dir}
}

// SessionFilename returns the file name for a session number.
func SessionFilename(session uint32) string {
	return fmt.Sprintf("log_%05d.csv", session)
}

// Available reports whether the session directory is usable, the equivalent
// of the SD card being present.
func (s *CSVSink) Available() bool {
	info, err := os.Stat(s.dir)
	return err == nil && info.IsDir()
}

// Open starts a session file and writes the header row.
func (s *CSVSink) Open(session uint32) error {
	if s.f != nil {
		// a previous session left open; quiesce it first
		if err := s.Close(); err != nil {
			log.WithField("err", err).Warn("unable to close previous log session")
		}
	}

	path := filepath.Join(s.dir, SessionFilename(session))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return errors.Wrapf(err, "unable to create log file %s", path)
	}

	s.f = f
	s.w = bufio.NewWriter(f)
	if _, err := s.w.WriteString(header); err != nil {
		return errors.Wrap(err, "unable to write log header")
	}
	return nil
}

// AppendRow writes one snapshot. Rows stay in the buffer until Flush.
func (s *CSVSink) AppendRow(snap *dash.Snapshot) error {
	if s.w == nil {
		return errors.New("log sink not open")
	}
	_, err := fmt.Fprintf(s.w, "%d,%d,%d,%d,%.2f,%.2f,%d,%d,%d,%d\n",
		snap.TimestampMs,
		snap.RPM,
		snap.IATC,
		snap.CLTC,
		snap.VBat,
		snap.AFR,
		snap.TPS,
		snap.Advance,
		boolToInt(snap.Warmup),
		boolToInt(snap.Launch))
	return errors.Wrap(err, "unable to append log row")
}

// Flush pushes buffered rows to the file and syncs.
func (s *CSVSink) Flush() error {
	if s.w == nil {
		return nil
	}
	if err := s.w.Flush(); err != nil {
		return errors.Wrap(err, "unable to flush log buffer")
	}
	return errors.Wrap(s.f.Sync(), "unable to sync log file")
}

// Close flushes and releases the session file.
func (s *CSVSink) Close() error {
	if s.f == nil {
		return nil
	}
	err := s.Flush()
	if cerr := s.f.Close(); err == nil {
		err = errors.Wrap(cerr, "unable to close log file")
	}
	s.f = nil
	s.w = nil
	return err
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
