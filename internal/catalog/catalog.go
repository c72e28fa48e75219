// Package catalog narrows the destination catalog before scoring.
package catalog

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spigell/erranza/internal/destination"
)

// Filter represents a single filtering step applied to the catalog.
type Filter interface {
	Name() string
	Disable(reason string)
	IsEnabled() bool

	Validate(cfg *Config) error
	Apply(ctx context.Context, deps Deps, c *destination.Catalog) (*destination.Catalog, Step, error)
}

// Deps aggregates dependencies shared across all filtering steps.
type Deps struct {
	Logger *zap.Logger
}

// Step describes the result of executing a filtering step.
type Step struct {
	Initial int
	Dropped int
	Left    int
}

// Config narrows the catalog. Empty fields leave the catalog untouched.
type Config struct {
	Countries       []string `mapstructure:"countries" json:"countries,omitempty"`
	Regions         []string `mapstructure:"regions" json:"regions,omitempty"`
	MaxFlightHours  float64  `mapstructure:"max-flight-hours" json:"max_flight_hours,omitempty"`
	Exclude         []string `mapstructure:"exclude" json:"exclude,omitempty"`
	ExcludeFile     string   `mapstructure:"exclude-file" json:"-"`
	IncludeInactive bool     `mapstructure:"include-inactive" json:"include_inactive,omitempty"`
}

// Merge returns a copy of c with the non-empty fields of override applied.
func (c Config) Merge(override Config) Config {
	out := c
	if len(override.Countries) > 0 {
		out.Countries = override.Countries
	}
	if len(override.Regions) > 0 {
		out.Regions = override.Regions
	}
	// A negative limit is passed on so Validate can reject it.
	if override.MaxFlightHours != 0 {
		out.MaxFlightHours = override.MaxFlightHours
	}
	if len(override.Exclude) > 0 {
		out.Exclude = append(append([]string{}, c.Exclude...), override.Exclude...)
	}
	if override.ExcludeFile != "" {
		out.ExcludeFile = override.ExcludeFile
	}
	if override.IncludeInactive {
		out.IncludeInactive = true
	}
	return out
}

// Status represents runtime information about a filter.
type Status struct {
	Name    string            `json:"name"`
	Enabled bool              `json:"enabled"`
	Reason  string            `json:"reason,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

// statusProvider is implemented by filters that can supply detailed status information.
type statusProvider interface {
	Status() Status
}

// Default returns a fresh filter pipeline. Filters keep per-run state, so build one per request.
func Default() []Filter {
	return []Filter{
		NewActive(),
		NewCountries(),
		NewRegions(),
		NewMaxFlightHours(),
		NewExcluded(),
		NewExcludeFile(),
	}
}

// DisableByName marks a filter with the provided name as disabled while keeping it in the list.
func DisableByName(steps []Filter, name, reason string) {
	for _, step := range steps {
		if step.Name() == name {
			step.Disable(reason)
		}
	}
}

// Run executes the supplied filters sequentially and returns the narrowed catalog.
// The input catalog is not modified.
func Run(ctx context.Context, cfg *Config, deps Deps, steps []Filter, c *destination.Catalog) (*destination.Catalog, error) {
	for _, step := range steps {
		if !step.IsEnabled() {
			continue
		}
		if err := step.Validate(cfg); err != nil {
			return nil, fmt.Errorf("%s: %w", step.Name(), err)
		}
	}

	current := &destination.Catalog{}
	if c != nil {
		current.Items = append(current.Items, c.Items...)
	}

	for _, step := range steps {
		if !step.IsEnabled() {
			if deps.Logger != nil {
				deps.Logger.Debug("filter disabled", zap.String("name", step.Name()))
			}
			continue
		}

		next, info, err := step.Apply(ctx, deps, current)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", step.Name(), err)
		}

		if deps.Logger != nil {
			deps.Logger.Debug("filter step",
				zap.String("name", step.Name()),
				zap.Int("initial", info.Initial),
				zap.Int("dropped", info.Dropped),
				zap.Int("left", info.Left),
			)
		}

		current = next
	}

	return current, nil
}

// Describe returns status entries for the provided filters.
func Describe(steps []Filter) []Status {
	statuses := make([]Status, 0, len(steps))
	for _, step := range steps {
		if reporter, ok := step.(statusProvider); ok {
			statuses = append(statuses, reporter.Status())
			continue
		}

		statuses = append(statuses, Status{
			Name:    step.Name(),
			Enabled: step.IsEnabled(),
		})
	}
	return statuses
}
