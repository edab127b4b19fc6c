package dash

// WarnRange is the inclusive operating band for one monitored field. A value
// outside [Min, Max] raises the field's alarm flag; a disabled range never
// alarms. Plain closed-interval exclusion; boundary flicker is acceptable.
type WarnRange struct {
	Enabled bool    `yaml:"enabled"`
	Min     float32 `yaml:"min"`
	Max     float32 `yaml:"max"`
}

// Check reports whether v violates the range.
func (r WarnRange) Check(v float32) bool {
	if !r.Enabled {
		return false
	}
	return v < r.Min || v > r.Max
}

// WarnSettings holds one range per monitored field.
type WarnSettings struct {
	AFR     WarnRange `yaml:"afr"`
	VBat    WarnRange `yaml:"vbat"`
	IAT     WarnRange `yaml:"iat"`
	CLT     WarnRange `yaml:"clt"`
	TPS     WarnRange `yaml:"tps"`
	Advance WarnRange `yaml:"advance"`
}

// EvaluateAlarms applies the configured ranges to a snapshot. Fields are
// independent; the flags are recomputed from scratch every call.
func EvaluateAlarms(s *Snapshot, w WarnSettings) AlarmFlags {
	return AlarmFlags{
		AFR:     w.AFR.Check(s.AFR),
		VBat:    w.VBat.Check(s.VBat),
		IAT:     w.IAT.Check(float32(s.IATC)),
		CLT:     w.CLT.Check(float32(s.CLTC)),
		TPS:     w.TPS.Check(float32(s.TPS)),
		Advance: w.Advance.Check(float32(s.Advance)),
	}
}
