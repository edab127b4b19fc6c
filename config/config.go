// Package config persists dashboard settings as a YAML file. Writes are
// batched: Begin hands out a pending copy, Commit replaces the file
// atomically and only then publishes the new state. A missing or partially
// unknown file falls back to factory defaults per field.
package config

import (
	"os"

	"github.com/jd3nn1s/dash"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Store implements dash.ConfigStore over a single settings file.
type Store struct {
	path    string
	current dash.Settings
	pending *dash.Settings
}

// Load reads the settings file, layering it over the factory defaults so
// absent keys keep their default values. A missing file is not an error.
func Load(path string) (*Store, error) {
	s := &Store{
		path:    path,
		current: dash.DefaultSettings(),
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		log.WithField("path", path).Info("no settings file, using defaults")
		return s, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "unable to read settings file %s", path)
	}
	if err := yaml.Unmarshal(data, &s.current); err != nil {
		return nil, errors.Wrapf(err, "unable to parse settings file %s", path)
	}

	if !s.current.AFRFormat.Valid() {
		log.WithField("afrFormat", s.current.AFRFormat).
			Warn("unknown AFR format in settings, using default")
		s.current.AFRFormat = dash.DefaultSettings().AFRFormat
	}
	return s, nil
}

// Settings returns the last committed state.
func (s *Store) Settings() dash.Settings {
	return s.current
}

// Begin returns the pending settings to mutate. Repeated calls within one
// batch return the same pending copy.
func (s *Store) Begin() *dash.Settings {
	if s.pending == nil {
		pending := s.current
		s.pending = &pending
	}
	return s.pending
}

// Commit writes the pending batch durably and publishes it. The file is
// replaced via temp-file rename so a power cut never leaves a torn file.
// Commit without a batch is a no-op.
func (s *Store) Commit() error {
	if s.pending == nil {
		return nil
	}

	data, err := yaml.Marshal(s.pending)
	if err != nil {
		return errors.Wrap(err, "unable to marshal settings")
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return errors.Wrapf(err, "unable to write %s", tmp)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return errors.Wrapf(err, "unable to replace %s", s.path)
	}

	s.current = *s.pending
	s.pending = nil
	return nil
}
