package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/GoSim-25-26J-441/urban-simulation-core/pkg/models"
)

// Preset is a named parameter set offered to the dashboard
type Preset struct {
	Name        string            `yaml:"name" json:"name"`
	Description string            `yaml:"description,omitempty" json:"description,omitempty"`
	Parameters  models.Parameters `yaml:"-" json:"parameters"`
}

type presetFile struct {
	Presets []presetEntry `yaml:"presets"`
}

type presetEntry struct {
	Name        string       `yaml:"name"`
	Description string       `yaml:"description"`
	Parameters  presetValues `yaml:"parameters"`
}

// presetValues uses pointers so an omitted slider is reported rather than read as 0
type presetValues struct {
	Roads           *float64 `yaml:"roads"`
	Population      *float64 `yaml:"population"`
	Housing         *float64 `yaml:"housing"`
	PublicTransport *float64 `yaml:"public_transport"`
}

func (pv presetValues) toParameters() (models.Parameters, error) {
	fields := []struct {
		name models.ParameterName
		v    *float64
	}{
		{models.ParameterRoads, pv.Roads},
		{models.ParameterPopulation, pv.Population},
		{models.ParameterHousing, pv.Housing},
		{models.ParameterPublicTransport, pv.PublicTransport},
	}

	var p models.Parameters
	for _, f := range fields {
		if f.v == nil {
			return models.Parameters{}, fmt.Errorf("%w: missing %s", models.ErrInvalidParameters, f.name)
		}
		p = p.With(f.name, *f.v)
	}
	return p, p.Validate()
}

// ParsePresetsYAML parses and validates a preset list from YAML bytes
func ParsePresetsYAML(data []byte) ([]Preset, error) {
	var file presetFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse presets yaml: %w", err)
	}

	seen := make(map[string]bool, len(file.Presets))
	presets := make([]Preset, 0, len(file.Presets))
	for i, entry := range file.Presets {
		if entry.Name == "" {
			return nil, fmt.Errorf("preset %d: name cannot be empty", i)
		}
		if seen[entry.Name] {
			return nil, fmt.Errorf("duplicate preset name: %s", entry.Name)
		}
		seen[entry.Name] = true

		params, err := entry.Parameters.toParameters()
		if err != nil {
			return nil, fmt.Errorf("preset %s: %w", entry.Name, err)
		}
		presets = append(presets, Preset{
			Name:        entry.Name,
			Description: entry.Description,
			Parameters:  params,
		})
	}
	return presets, nil
}

// LoadPresets loads and parses a presets file
func LoadPresets(path string) ([]Preset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read presets file %s: %w", path, err)
	}
	presets, err := ParsePresetsYAML(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse presets file %s: %w", path, err)
	}
	return presets, nil
}

// FindPreset returns the preset with the given name
func FindPreset(presets []Preset, name string) (Preset, bool) {
	for _, p := range presets {
		if p.Name == name {
			return p, true
		}
	}
	return Preset{}, false
}
