package detecs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Preset carries declarative schedule configuration loaded from disk.
// A preset never registers systems; it can only disable registered
// ones and tighten their ordering.
type Preset struct {
	Name     string         `toml:"name" yaml:"name"`
	Disabled []string       `toml:"disabled" yaml:"disabled"`
	Systems  []PresetSystem `toml:"systems" yaml:"systems"`
	Logging  PresetLogging  `toml:"logging" yaml:"logging"`
}

// PresetSystem amends one registered system.
type PresetSystem struct {
	Name    string   `toml:"name" yaml:"name"`
	Enabled *bool    `toml:"enabled" yaml:"enabled"`
	Before  []string `toml:"before" yaml:"before"`
	After   []string `toml:"after" yaml:"after"`
}

// PresetLogging selects the runtime logger configuration.
type PresetLogging struct {
	Level     string `toml:"level" yaml:"level"`
	Structure string `toml:"structure" yaml:"structure"`
}

// LogFormat maps the preset's structure string onto an observation
// format, defaulting to JSON.
func (l PresetLogging) LogFormat() ObservationLogFormat {
	if strings.EqualFold(l.Structure, "keyvalue") {
		return ObservationLogFormatKeyValue
	}
	return ObservationLogFormatJSON
}

// LoadPreset reads a preset from a TOML or YAML file, selecting the
// decoder by extension.
func LoadPreset(path string) (*Preset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("detecs: read preset %s: %w", path, err)
	}

	var preset Preset
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		if err := toml.Unmarshal(data, &preset); err != nil {
			return nil, fmt.Errorf("detecs: decode preset %s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &preset); err != nil {
			return nil, fmt.Errorf("detecs: decode preset %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("detecs: preset %s has unsupported extension %q", path, ext)
	}
	if preset.Name == "" {
		preset.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return &preset, nil
}

// Apply folds the preset into a system set. Entries naming systems
// that were never registered are logged and skipped; a preset is
// best-effort configuration, not a contract.
func (p *Preset) Apply(set *SystemSet, logger Logger) {
	if logger == nil {
		logger = NewNopLogger()
	}
	logger = logger.With("preset", p.Name)

	for _, name := range p.Disabled {
		if !set.Has(name) {
			logger.Warn("preset disables unknown system, skipped", "system", name)
			continue
		}
		set.Disable(name)
	}

	for _, entry := range p.Systems {
		if !set.Has(entry.Name) {
			logger.Warn("preset references unknown system, skipped", "system", entry.Name)
			continue
		}
		if entry.Enabled != nil {
			if *entry.Enabled {
				set.Enable(entry.Name)
			} else {
				set.Disable(entry.Name)
			}
		}
		if len(entry.Before) > 0 || len(entry.After) > 0 {
			if err := set.Constrain(entry.Name, entry.Before, entry.After); err != nil {
				logger.Warn("preset ordering constraint rejected", "system", entry.Name, "err", err)
			}
		}
	}
}
