package dash

import "github.com/jd3nn1s/dash/speeduino"

// Settings is the persisted dashboard configuration. Field defaults mirror
// the values a factory-fresh unit ships with.
type Settings struct {
	LogEnabled bool                `yaml:"logEnabled"`
	AFRFormat  speeduino.AFRFormat `yaml:"afrFormat"`

	// LogIndex is the next recording session number. It is committed before
	// a session's first write so numbers are never reused after power loss.
	LogIndex uint32 `yaml:"logIndex"`

	ShiftEnabled bool `yaml:"shiftEnabled"`
	ShiftRPM     int  `yaml:"shiftRpm"`

	ViewMode ViewMode `yaml:"viewMode"`

	Warn WarnSettings `yaml:"warn"`
}

// DefaultSettings returns the factory configuration.
func DefaultSettings() Settings {
	return Settings{
		LogEnabled:   true,
		AFRFormat:    speeduino.AFRU8Tenths,
		LogIndex:     1,
		ShiftEnabled: true,
		ShiftRPM:     6500,
		ViewMode:     ViewRing,
		Warn: WarnSettings{
			AFR:     WarnRange{Enabled: true, Min: 10.0, Max: 16.5},
			VBat:    WarnRange{Enabled: true, Min: 11.5, Max: 15.2},
			IAT:     WarnRange{Enabled: true, Min: -10.0, Max: 60.0},
			CLT:     WarnRange{Enabled: true, Min: 0.0, Max: 105.0},
			TPS:     WarnRange{Enabled: false, Min: 0.0, Max: 100.0},
			Advance: WarnRange{Enabled: false, Min: -10.0, Max: 50.0},
		},
	}
}
