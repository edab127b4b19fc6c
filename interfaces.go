package dash

// ByteSource is the raw telemetry link to the ECU, typically a serial port.
// Write carries the single-byte poll request; reads must never block, which
// is why Available is consulted first. Start and Stop own the underlying
// handle: after Stop the next Start begins from a clean, flushed port.
type ByteSource interface {
	Start() error
	Stop() error
	Available() int
	ReadByte() (byte, error)
	Write(p []byte) (int, error)
}

// Clock supplies monotonic milliseconds. The core compares readings only by
// unsigned subtraction, so uint32 wraparound is tolerated.
type Clock interface {
	NowMillis() uint32
}

// ConfigStore persists the dashboard settings. Mutations are batched: Begin
// returns a pending copy to mutate and Commit writes it durably. Settings
// always returns the last committed state.
type ConfigStore interface {
	Settings() Settings
	Begin() *Settings
	Commit() error
}

// LogSink appends snapshot rows to per-session storage. Available reports
// whether the backing storage is usable at all (e.g. SD card present).
type LogSink interface {
	Available() bool
	Open(session uint32) error
	AppendRow(s *Snapshot) error
	Flush() error
	Close() error
}

// Surface is the presentation layer. The core never draws; it tells the
// surface what happened and the surface decides how to show it. Suspend must
// keep visual output alive; the display never goes blank.
type Surface interface {
	UpdateTelemetry(s *Snapshot, alarms AlarmFlags, linkUp bool)

	EnterShiftAlert()
	ShiftBlink(on bool)
	ExitShiftAlert()

	Suspend()
	Resume()
	ShowMaintenance()
	Redraw()
}

// Forwarder receives every changed snapshot for out-of-band delivery. Must
// not block the control loop.
type Forwarder interface {
	Forward(prevSnapshot *Snapshot, newSnapshot *Snapshot) error
}
