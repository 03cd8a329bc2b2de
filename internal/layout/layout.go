// Package layout holds the named grid presets the cycle-layout command
// steps through. The built-in set is embedded; a user layouts.yaml
// replaces it wholesale.
package layout

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// Grid dimensions the panel store accepts.
const (
	minGridDim = 1
	maxGridDim = 4
)

//go:embed presets.yaml
var builtinPresets []byte

// Preset is one named grid shape.
type Preset struct {
	Name string `yaml:"name" json:"name"`
	Rows int    `yaml:"rows" json:"rows"`
	Cols int    `yaml:"cols" json:"cols"`
}

type presetFile struct {
	Presets []Preset `yaml:"presets"`
}

// Service serves the preset list in file order.
type Service struct {
	presets []Preset
	logger  zerolog.Logger
}

// NewService loads the built-in presets and, when userPath names a
// readable file, the user's replacement set. A broken user file is
// logged and ignored so a typo cannot block startup.
func NewService(userPath string, logger zerolog.Logger) (*Service, error) {
	presets, err := parsePresets(builtinPresets)
	if err != nil {
		return nil, fmt.Errorf("parse built-in layout presets: %w", err)
	}

	s := &Service{
		presets: presets,
		logger:  logger.With().Str("component", "layout").Logger(),
	}

	if userPath == "" {
		return s, nil
	}

	data, err := os.ReadFile(userPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn().Err(err).Str("path", userPath).Msg("cannot read layout presets file")
		}
		return s, nil
	}

	user, err := parsePresets(data)
	if err != nil {
		s.logger.Warn().Err(err).Str("path", userPath).Msg("ignoring broken layout presets file")
		return s, nil
	}

	s.presets = user
	s.logger.Info().
		Int("presets", len(user)).
		Str("path", userPath).
		Msg("user layout presets loaded")
	return s, nil
}

// Presets returns the preset list in cycle order.
func (s *Service) Presets() []Preset {
	out := make([]Preset, len(s.presets))
	copy(out, s.presets)
	return out
}

// Next returns the preset after the named one, wrapping at the end.
// An unknown name, including a custom layout applied directly, restarts
// the cycle at the first preset.
func (s *Service) Next(current string) (rows, cols int, name string, err error) {
	if len(s.presets) == 0 {
		return 0, 0, "", errors.New("no layout presets configured")
	}

	for i, p := range s.presets {
		if p.Name == current {
			next := s.presets[(i+1)%len(s.presets)]
			return next.Rows, next.Cols, next.Name, nil
		}
	}

	first := s.presets[0]
	return first.Rows, first.Cols, first.Name, nil
}

func parsePresets(data []byte) ([]Preset, error) {
	var file presetFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse presets: %w", err)
	}
	if len(file.Presets) == 0 {
		return nil, errors.New("no presets defined")
	}

	seen := make(map[string]bool, len(file.Presets))
	for _, p := range file.Presets {
		if p.Name == "" {
			return nil, errors.New("preset without a name")
		}
		if seen[p.Name] {
			return nil, fmt.Errorf("duplicate preset %q", p.Name)
		}
		seen[p.Name] = true
		if p.Rows < minGridDim || p.Rows > maxGridDim || p.Cols < minGridDim || p.Cols > maxGridDim {
			return nil, fmt.Errorf("preset %q: %dx%d is outside the %d..%d grid range",
				p.Name, p.Rows, p.Cols, minGridDim, maxGridDim)
		}
	}

	return file.Presets, nil
}
