package dash

// Snapshot is one fully decoded telemetry reading in engineering units. It is
// replaced wholesale on each successful decode, never merged.
type Snapshot struct {
	RPM     int
	IATC    int
	CLTC    int
	VBat    float32
	AFR     float32
	TPS     int
	Advance int
	Warmup  bool
	Launch  bool

	// Degraded marks a snapshot where at least one field was defaulted
	// because the payload was too short for its offset.
	Degraded bool

	// TimestampMs is the monotonic clock reading at decode time.
	TimestampMs uint32
}

// AlarmFlags holds the per-field threshold violations for the current
// snapshot. Recomputed on every snapshot; no history is retained.
type AlarmFlags struct {
	AFR     bool
	VBat    bool
	IAT     bool
	CLT     bool
	TPS     bool
	Advance bool
}

// Any reports whether at least one alarm is raised.
func (a AlarmFlags) Any() bool {
	return a.AFR || a.VBat || a.IAT || a.CLT || a.TPS || a.Advance
}

// ViewMode is a presentation hint persisted with the settings; the core only
// stores it and hands it through.
type ViewMode uint8

const (
	ViewRing ViewMode = 0
	ViewBar  ViewMode = 1
)
