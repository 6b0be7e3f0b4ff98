// Package presets maps scenario names to pre-built shock template lists, so
// callers can run well-known stress scenarios without assembling templates by
// hand. Presets are plain data; the engine only ever sees template lists.
package presets

import (
	"fmt"
	"os"
	"sort"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/aristath/foresight/internal/simulation"
)

// Preset is a named scenario: which catalog templates to sample, with an
// optional correlation matrix over them.
type Preset struct {
	Name        string      `yaml:"name"`
	Description string      `yaml:"description"`
	TemplateIDs []string    `yaml:"templates"`
	Correlation [][]float64 `yaml:"correlation,omitempty"`
}

// Library resolves preset names against a shock catalog.
type Library struct {
	catalog *simulation.Catalog
	presets map[string]Preset
	log     zerolog.Logger
}

// NewLibrary creates a preset library with the built-in scenarios, resolving
// template IDs against the given catalog.
func NewLibrary(catalog *simulation.Catalog, log zerolog.Logger) *Library {
	l := &Library{
		catalog: catalog,
		presets: make(map[string]Preset),
		log:     log.With().Str("component", "preset_library").Logger(),
	}
	for _, p := range builtinPresets() {
		l.presets[p.Name] = p
	}
	return l
}

// Names lists available preset names in sorted order.
func (l *Library) Names() []string {
	names := make([]string, 0, len(l.presets))
	for name := range l.presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Get returns a preset by name.
func (l *Library) Get(name string) (Preset, bool) {
	p, ok := l.presets[name]
	return p, ok
}

// Resolve turns a preset name into the templates and correlation matrix for
// a scenario run.
func (l *Library) Resolve(name string) ([]simulation.ShockTemplate, [][]float64, error) {
	p, ok := l.presets[name]
	if !ok {
		return nil, nil, fmt.Errorf("unknown preset %q (available: %v)", name, l.Names())
	}
	templates, err := l.catalog.Resolve(p.TemplateIDs)
	if err != nil {
		return nil, nil, fmt.Errorf("preset %q: %w", name, err)
	}
	return templates, p.Correlation, nil
}

// presetFile is the YAML document shape for user-supplied preset files.
type presetFile struct {
	Templates []simulation.ShockTemplate `yaml:"templates,omitempty"`
	Presets   []Preset                   `yaml:"presets"`
}

// LoadFile merges a YAML preset file into the library. New templates are
// registered into the catalog first; file presets override built-ins of the
// same name so operators can tune scenarios without a rebuild.
func (l *Library) LoadFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading preset file: %w", err)
	}

	var file presetFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return fmt.Errorf("parsing preset file %s: %w", path, err)
	}

	for _, tmpl := range file.Templates {
		if err := l.catalog.Register(tmpl); err != nil {
			return fmt.Errorf("preset file %s: %w", path, err)
		}
	}

	for _, p := range file.Presets {
		if p.Name == "" {
			return fmt.Errorf("preset file %s: preset without a name", path)
		}
		// Fail on unknown template IDs at load time, not at run time.
		if _, err := l.catalog.Resolve(p.TemplateIDs); err != nil {
			return fmt.Errorf("preset file %s: preset %q: %w", path, p.Name, err)
		}
		l.presets[p.Name] = p
		l.log.Debug().Str("preset", p.Name).Msg("loaded preset from file")
	}

	l.log.Info().
		Str("path", path).
		Int("templates", len(file.Templates)).
		Int("presets", len(file.Presets)).
		Msg("merged preset file")
	return nil
}

// builtinPresets returns the canonical scenario set. Each preset name matches
// the stress scenario it models; template IDs refer to the default catalog.
func builtinPresets() []Preset {
	return []Preset{
		{
			Name:        "severe_recession",
			Description: "Deep macro downturn with a correlated liquidity squeeze",
			TemplateIDs: []string{"recession", "liquidity_crisis"},
			Correlation: [][]float64{
				{1, 0.7},
				{0.7, 1},
			},
		},
		{
			Name:        "tech_regulation",
			Description: "Regulatory tightening wave across tech markets",
			TemplateIDs: []string{"regulatory_tightening"},
		},
		{
			Name:        "trade_conflict",
			Description: "Tariff escalation and cross-border friction",
			TemplateIDs: []string{"trade_conflict", "recession"},
			Correlation: [][]float64{
				{1, 0.5},
				{0.5, 1},
			},
		},
		{
			Name:        "climate_crisis",
			Description: "Repeated natural disasters with policy response",
			TemplateIDs: []string{"natural_disaster", "regulatory_tightening"},
		},
		{
			Name:        "pandemic_response",
			Description: "Global pandemic with long recovery",
			TemplateIDs: []string{"pandemic", "recession"},
			Correlation: [][]float64{
				{1, 0.6},
				{0.6, 1},
			},
		},
		{
			Name:        "liquidity_crisis",
			Description: "Funding markets freeze, fast but sharp",
			TemplateIDs: []string{"liquidity_crisis"},
		},
		{
			Name:        "black_swan",
			Description: "Low-probability compound tail event",
			TemplateIDs: []string{"black_swan", "recession", "liquidity_crisis"},
			Correlation: [][]float64{
				{1, 0.8, 0.8},
				{0.8, 1, 0.8},
				{0.8, 0.8, 1},
			},
		},
	}
}
