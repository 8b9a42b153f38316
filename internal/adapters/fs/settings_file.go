package fs

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/bft-labs/inboxship/internal/ports"
	"github.com/bft-labs/inboxship/pkg/log"
)

// SettingsFile implements ports.Settings. Every Get re-reads the TOML file so
// edits apply on the next run without a restart. Keys absent from the file
// fall back to the values the process started with.
type SettingsFile struct {
	path     string
	fallback map[string]string
	logger   log.Logger
}

var _ ports.Settings = (*SettingsFile)(nil)

// NewSettingsFile creates a settings store. path may be empty, in which case
// only the fallback values are served.
func NewSettingsFile(path string, fallback map[string]string, logger log.Logger) *SettingsFile {
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	fb := make(map[string]string, len(fallback))
	for k, v := range fallback {
		fb[k] = v
	}
	return &SettingsFile{path: path, fallback: fb, logger: logger}
}

// Get returns the value of key, or def when neither the file nor the
// fallback set carries a non-empty value.
func (s *SettingsFile) Get(key, def string) string {
	if v, ok := s.fromFile(key); ok && v != "" {
		return v
	}
	if v, ok := s.fallback[key]; ok && v != "" {
		return v
	}
	return def
}

func (s *SettingsFile) fromFile(key string) (string, bool) {
	if s.path == "" {
		return "", false
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("settings file unreadable", log.String("path", s.path), log.Err(err))
		}
		return "", false
	}
	var values map[string]any
	if err := toml.Unmarshal(data, &values); err != nil {
		s.logger.Warn("settings file invalid", log.String("path", s.path), log.Err(err))
		return "", false
	}
	v, ok := values[key]
	if !ok || v == nil {
		return "", false
	}
	switch t := v.(type) {
	case string:
		return t, true
	default:
		return fmt.Sprint(t), true
	}
}
