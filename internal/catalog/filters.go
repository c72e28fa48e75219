package catalog

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/erranza/internal/destination"
)

type activeFilter struct {
	disabled bool
	reason   string
}

// NewActive creates a filter that removes destinations flagged as inactive.
func NewActive() Filter {
	return &activeFilter{}
}

func (f *activeFilter) Name() string { return "active" }

func (f *activeFilter) Disable(reason string) {
	f.disabled = true
	f.reason = reason
}

func (f *activeFilter) IsEnabled() bool { return !f.disabled }

func (f *activeFilter) Validate(cfg *Config) error {
	if cfg != nil && cfg.IncludeInactive {
		f.Disable("inactive destinations requested")
	}
	return nil
}

func (f *activeFilter) Apply(_ context.Context, deps Deps, c *destination.Catalog) (*destination.Catalog, Step, error) {
	initial := c.Len()
	dropped := c.Keep((*destination.Record).IsActive)
	if deps.Logger != nil && len(dropped) > 0 {
		deps.Logger.Debug("excluding inactive destinations",
			zap.Strings("excluded_destinations", dropped),
			zap.Int("destinations_left", c.Len()),
		)
	}
	return c, Step{Initial: initial, Dropped: initial - c.Len(), Left: c.Len()}, nil
}

func (f *activeFilter) Status() Status {
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason}
}

// fieldFilter keeps only destinations whose field matches one of the allowed values.
type fieldFilter struct {
	name    string
	field   string
	allowed []string
	pick    func(*Config) []string
}

// NewCountries creates a filter that keeps destinations in the configured countries.
func NewCountries() Filter {
	return &fieldFilter{
		name:  "countries",
		field: destination.CountryField,
		pick:  func(cfg *Config) []string { return cfg.Countries },
	}
}

// NewRegions creates a filter that keeps destinations in the configured regions.
func NewRegions() Filter {
	return &fieldFilter{
		name:  "regions",
		field: destination.RegionField,
		pick:  func(cfg *Config) []string { return cfg.Regions },
	}
}

func (f *fieldFilter) Name() string { return f.name }

func (f *fieldFilter) Disable(string) {}

func (f *fieldFilter) IsEnabled() bool { return true }

func (f *fieldFilter) Validate(cfg *Config) error {
	f.allowed = nil
	if cfg == nil {
		return nil
	}
	for _, v := range f.pick(cfg) {
		if v = strings.TrimSpace(v); v != "" {
			f.allowed = append(f.allowed, strings.ToLower(v))
		}
	}
	return nil
}

func (f *fieldFilter) Apply(_ context.Context, deps Deps, c *destination.Catalog) (*destination.Catalog, Step, error) {
	initial := c.Len()
	if len(f.allowed) == 0 {
		return c, Step{Initial: initial, Dropped: 0, Left: c.Len()}, nil
	}

	set := make(map[string]bool, len(f.allowed))
	for _, v := range f.allowed {
		set[v] = true
	}

	dropped := c.Keep(func(r *destination.Record) bool {
		return set[strings.ToLower(strings.TrimSpace(r.GetStringField(f.field)))]
	})
	if deps.Logger != nil && len(dropped) > 0 {
		deps.Logger.Debug("excluding destinations by "+f.name,
			zap.Strings("allowed", f.allowed),
			zap.Strings("excluded_destinations", dropped),
			zap.Int("destinations_left", c.Len()),
		)
	}

	return c, Step{Initial: initial, Dropped: initial - c.Len(), Left: c.Len()}, nil
}

func (f *fieldFilter) Status() Status {
	details := map[string]string{}
	if len(f.allowed) > 0 {
		details[f.name] = strings.Join(f.allowed, ",")
	}
	return Status{Name: f.Name(), Enabled: true, Details: details}
}

type maxFlightHoursFilter struct {
	limit float64
}

// NewMaxFlightHours creates a filter that removes destinations beyond the flight time limit.
// Destinations without flight data are kept.
func NewMaxFlightHours() Filter {
	return &maxFlightHoursFilter{}
}

func (f *maxFlightHoursFilter) Name() string { return "max_flight_hours" }

func (f *maxFlightHoursFilter) Disable(string) {}

func (f *maxFlightHoursFilter) IsEnabled() bool { return true }

func (f *maxFlightHoursFilter) Validate(cfg *Config) error {
	f.limit = 0
	if cfg == nil {
		return nil
	}
	if cfg.MaxFlightHours < 0 {
		return errors.New("max flight hours must not be negative")
	}
	f.limit = cfg.MaxFlightHours
	return nil
}

func (f *maxFlightHoursFilter) Apply(_ context.Context, deps Deps, c *destination.Catalog) (*destination.Catalog, Step, error) {
	initial := c.Len()
	if f.limit == 0 {
		return c, Step{Initial: initial, Dropped: 0, Left: c.Len()}, nil
	}

	dropped := c.Keep(func(r *destination.Record) bool {
		return r.FlightHours == nil || *r.FlightHours <= f.limit
	})
	if deps.Logger != nil && len(dropped) > 0 {
		deps.Logger.Debug("excluding destinations by flight time",
			zap.Float64("max_flight_hours", f.limit),
			zap.Strings("excluded_destinations", dropped),
			zap.Int("destinations_left", c.Len()),
		)
	}

	return c, Step{Initial: initial, Dropped: initial - c.Len(), Left: c.Len()}, nil
}

func (f *maxFlightHoursFilter) Status() Status {
	details := map[string]string{}
	if f.limit > 0 {
		details["max_flight_hours"] = strconv.FormatFloat(f.limit, 'f', -1, 64)
	}
	return Status{Name: f.Name(), Enabled: true, Details: details}
}

type excludedFilter struct {
	ids []string
}

// NewExcluded creates a filter that removes destinations listed by id in the config.
func NewExcluded() Filter {
	return &excludedFilter{}
}

func (f *excludedFilter) Name() string { return "excluded" }

func (f *excludedFilter) Disable(string) {}

func (f *excludedFilter) IsEnabled() bool { return true }

func (f *excludedFilter) Validate(cfg *Config) error {
	f.ids = nil
	if cfg != nil {
		f.ids = append(f.ids, cfg.Exclude...)
	}
	return nil
}

func (f *excludedFilter) Apply(_ context.Context, deps Deps, c *destination.Catalog) (*destination.Catalog, Step, error) {
	initial := c.Len()
	if len(f.ids) == 0 {
		return c, Step{Initial: initial, Dropped: 0, Left: c.Len()}, nil
	}

	removed := c.Exclude(destination.IDField, f.ids)
	if deps.Logger != nil && len(removed) > 0 {
		deps.Logger.Debug("excluding destinations by id",
			zap.Strings("excluded_destinations", removed),
			zap.Int("destinations_left", c.Len()),
		)
	}

	return c, Step{Initial: initial, Dropped: initial - c.Len(), Left: c.Len()}, nil
}

func (f *excludedFilter) Status() Status {
	details := map[string]string{}
	if len(f.ids) > 0 {
		details["ids"] = strings.Join(f.ids, ",")
	}
	return Status{Name: f.Name(), Enabled: true, Details: details}
}

type excludeFileFilter struct {
	path string
}

// NewExcludeFile creates a filter that removes destinations contained in an exclude file.
func NewExcludeFile() Filter {
	return &excludeFileFilter{}
}

func (f *excludeFileFilter) Name() string { return "exclude_file" }

func (f *excludeFileFilter) Disable(string) {}

func (f *excludeFileFilter) IsEnabled() bool { return true }

func (f *excludeFileFilter) Validate(cfg *Config) error {
	f.path = ""
	if cfg != nil {
		f.path = strings.TrimSpace(cfg.ExcludeFile)
	}
	return nil
}

func (f *excludeFileFilter) Apply(_ context.Context, deps Deps, c *destination.Catalog) (*destination.Catalog, Step, error) {
	initial := c.Len()
	if f.path == "" {
		return c, Step{Initial: initial, Dropped: 0, Left: c.Len()}, nil
	}

	excluded, err := destination.LoadExcluded(f.path)
	if err != nil {
		return c, Step{}, fmt.Errorf("getting excluded destinations from file: %w", err)
	}

	removed := c.Exclude(destination.IDField, excluded.IDs())
	if deps.Logger != nil && len(removed) > 0 {
		deps.Logger.Debug("excluding destinations based on exclude file",
			zap.String("path", f.path),
			zap.Strings("excluded_destinations", removed),
			zap.Int("destinations_left", c.Len()),
		)
	}

	return c, Step{Initial: initial, Dropped: initial - c.Len(), Left: c.Len()}, nil
}

func (f *excludeFileFilter) Status() Status {
	details := map[string]string{}
	if f.path != "" {
		details["path"] = f.path
	}
	return Status{Name: f.Name(), Enabled: true, Details: details}
}
