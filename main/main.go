package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/jd3nn1s/dash"
	"github.com/jd3nn1s/dash/config"
	"github.com/jd3nn1s/dash/forwarder"
	"github.com/jd3nn1s/dash/logsink"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"go.bug.st/serial"
	"gopkg.in/natefinch/lumberjack.v2"
)

const loopSleep = 5 * time.Millisecond

var retrySleep = time.Second

var configPath = flag.String("config", "settings.yaml", "settings file")
var logDir = flag.String("log-dir", "logs", "recording session directory")
var portName = flag.String("port", "/dev/ttyUSB0", "ECU serial port")
var baudRate = flag.Int("baud", 115200, "ECU serial baud rate")
var forwarderConfig = flag.String("forwarder", "", "MQTT forwarder config file (disabled if empty)")
var testMode = flag.Bool("testmode", false, "generate test data instead of opening the serial port")
var printTelemetry = flag.Bool("print-telemetry", false, "print telemetry to stdout")
var logFile = flag.String("log-file", "", "rotate daemon log to this file (stderr if empty)")
var debug = flag.Bool("debug", false, "debug logging")

// apStationCount is sampled every mode interval; the access point is managed
// by an external service, so the hook is replaceable at link or test time.
var apStationCount = func() int { return 0 }

// serialSource adapts a serial port to dash.ByteSource. Reads are driven by
// short timeouts so Available never blocks the loop; a port error tears the
// handle down and reopens with a fixed backoff.
type serialSource struct {
	portName string
	baud     int

	port        serial.Port
	buf         []byte
	readBuf     [256]byte
	running     bool
	nextAttempt time.Time
}

var serialOpen = func(name string, baud int) (serial.Port, error) {
	port, err := serial.Open(name, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, err
	}
	if err := port.SetReadTimeout(time.Millisecond); err != nil {
		port.Close()
		return nil, err
	}
	return port, nil
}

func (s *serialSource) Start() error {
	s.running = true
	s.buf = nil
	return s.open()
}

func (s *serialSource) open() error {
	port, err := serialOpen(s.portName, s.baud)
	if err != nil {
		s.nextAttempt = time.Now().Add(retrySleep)
		return errors.Wrapf(err, "unable to open %s", s.portName)
	}
	// stale bytes from before the open must not reach the receiver
	if err := port.ResetInputBuffer(); err != nil {
		log.WithField("err", err).Warn("unable to flush serial input")
	}
	s.port = port
	return nil
}

func (s *serialSource) Stop() error {
	s.running = false
	s.buf = nil
	if s.port == nil {
		return nil
	}
	err := s.port.Close()
	s.port = nil
	return err
}

func (s *serialSource) Available() int {
	if !s.running {
		return 0
	}
	if len(s.buf) > 0 {
		return len(s.buf)
	}
	if s.port == nil {
		if time.Now().Before(s.nextAttempt) {
			return 0
		}
		if err := s.open(); err != nil {
			log.WithField("err", err).Error("serial reconnect failed")
			return 0
		}
		log.Info("serial port reopened")
	}
	n, err := s.port.Read(s.readBuf[:])
	if err != nil {
		s.fail(err)
		return 0
	}
	s.buf = append(s.buf, s.readBuf[:n]...)
	return len(s.buf)
}

func (s *serialSource) ReadByte() (byte, error) {
	if len(s.buf) == 0 {
		return 0, errors.New("no data available")
	}
	b := s.buf[0]
	s.buf = s.buf[1:]
	return b, nil
}

func (s *serialSource) Write(p []byte) (int, error) {
	if s.port == nil {
		return 0, errors.New("serial port not open")
	}
	n, err := s.port.Write(p)
	if err != nil {
		s.fail(err)
	}
	return n, err
}

func (s *serialSource) fail(err error) {
	log.WithField("err", err).Error("serial port error, will reconnect")
	if s.port != nil {
		if cerr := s.port.Close(); cerr != nil {
			log.WithField("err", cerr).Warn("unable to close serial port")
		}
		s.port = nil
	}
	s.nextAttempt = time.Now().Add(retrySleep)
}

// consoleSurface is the headless presentation stand-in: the real display
// driver runs out of process and subscribes via the forwarder.
type consoleSurface struct {
	print bool
}

func (c *consoleSurface) UpdateTelemetry(s *dash.Snapshot, alarms dash.AlarmFlags, linkUp bool) {
	if !c.print {
		return
	}
	if !linkUp {
		fmt.Println("link down")
		return
	}
	fmt.Printf("%+v alarms=%+v\n", *s, alarms)
}

func (c *consoleSurface) EnterShiftAlert() { log.Info("shift alert on") }
func (c *consoleSurface) ShiftBlink(bool) {}
func (c *consoleSurface) ExitShiftAlert() { log.Info("shift alert off") }
func (c *consoleSurface) Suspend() { log.Info("presentation suspended") }
func (c *consoleSurface) Resume() { log.Info("presentation resumed") }
func (c *consoleSurface) ShowMaintenance() { log.Info("maintenance screen shown") }
func (c *consoleSurface) Redraw() { log.Info("full redraw forced") }

type wallClock struct {
	start time.Time
}

func (c *wallClock) NowMillis() uint32 {
	return uint32(time.Since(c.start).Milliseconds())
}

func main() {
	flag.Parse()

	log.SetLevel(log.InfoLevel)
	if *debug {
		log.SetLevel(log.DebugLevel)
	}
	if *logFile != "" {
		log.SetOutput(&lumberjack.Logger{
			Filename:   *logFile,
			MaxSize:    10, // MB
			MaxBackups: 3,
		})
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal("unable to load settings: ", err)
	}

	var src dash.ByteSource
	if *testMode {
		src = dash.NewSimSource(cfg.Settings().AFRFormat)
	} else {
		src = &serialSource{
			portName: *portName,
			baud:     *baudRate,
		}
	}
	if err := src.Start(); err != nil {
		log.Error("telemetry source not available yet: ", err)
	}

	d := dash.New(src, cfg, &consoleSurface{print: *printTelemetry}, logsink.New(*logDir))

	ctx := context.Background()
	if *forwarderConfig != "" {
		fwder, err := forwarder.NewMQTTForwarder(*forwarderConfig)
		if err != nil {
			log.Fatal("unable to load MQTT forwarder: ", err)
		}
		go fwder.Start(ctx)
		d.AddForwarder(fwder)
	}

	clock := &wallClock{start: time.Now()}
	var lastModeSample uint32
	for {
		now := clock.NowMillis()
		d.Tick(now)

		if now-lastModeSample >= dash.ModeSampleMs {
			lastModeSample = now
			d.RequestModeChange(apStationCount(), now)
		}

		time.Sleep(loopSleep)
	}
}
