package catalog

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/erranza/internal/destination"
)

func testCatalog() *destination.Catalog {
	inactive := false
	return &destination.Catalog{Items: []*destination.Record{
		{ID: "lisbon", Country: "Portugal", Region: "Europe", FlightHours: destination.Float(3)},
		{ID: "porto", Country: "portugal", Region: "Europe"},
		{ID: "kyoto", Country: "Japan", Region: "Asia", FlightHours: destination.Float(14)},
		{ID: "bali", Country: "Indonesia", Region: "Asia", FlightHours: destination.Float(16), Active: &inactive},
		{ID: "cusco", Country: "Peru", Region: "South America", FlightHours: destination.Float(12)},
	}}
}

func TestRunFilters(t *testing.T) {
	t.Parallel()

	excludeFile := filepath.Join(t.TempDir(), "exclude.json")
	list := &destination.ExcludedList{}
	list.Add(&destination.Record{ID: "cusco"})
	if err := list.Save(excludeFile); err != nil {
		t.Fatalf("save exclude file: %v", err)
	}

	tests := []struct {
		name string
		cfg  *Config
		want []string
	}{
		{name: "nil config drops inactive only", cfg: nil, want: []string{"lisbon", "porto", "kyoto", "cusco"}},
		{name: "include inactive", cfg: &Config{IncludeInactive: true}, want: []string{"lisbon", "porto", "kyoto", "bali", "cusco"}},
		{name: "country ignores case", cfg: &Config{Countries: []string{" PORTUGAL "}}, want: []string{"lisbon", "porto"}},
		{name: "region", cfg: &Config{Regions: []string{"asia"}}, want: []string{"kyoto"}},
		{name: "flight hours keep unknown", cfg: &Config{MaxFlightHours: 12}, want: []string{"lisbon", "porto", "cusco"}},
		{name: "excluded ids", cfg: &Config{Exclude: []string{"LISBON", "kyoto"}}, want: []string{"porto", "cusco"}},
		{name: "exclude file", cfg: &Config{ExcludeFile: excludeFile}, want: []string{"lisbon", "porto", "kyoto"}},
		{name: "everything filtered", cfg: &Config{Countries: []string{"Chile"}}, want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			in := testCatalog()
			out, err := Run(context.Background(), tt.cfg, Deps{Logger: zap.NewNop()}, Default(), in)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(out.IDs(), tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, out.IDs())
			}
			if in.Len() != 5 {
				t.Fatalf("input catalog must not be modified, has %d items", in.Len())
			}
		})
	}
}

func TestRunRejectsInvalidConfig(t *testing.T) {
	_, err := Run(context.Background(), &Config{MaxFlightHours: -1}, Deps{}, Default(), testCatalog())
	if err == nil {
		t.Fatal("expected validation error")
	}
}

func TestRunFailsOnBrokenExcludeFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "exclude.json")
	if err := os.WriteFile(path, []byte("not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := Run(context.Background(), &Config{ExcludeFile: path}, Deps{}, Default(), testCatalog())
	if err == nil {
		t.Fatal("expected error decoding exclude file")
	}
}

func TestRunLogsSteps(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	steps := Default()
	DisableByName(steps, "active", "test")

	_, err := Run(context.Background(), &Config{Regions: []string{"Europe"}}, Deps{Logger: zap.New(core)}, steps, testCatalog())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if logs.FilterMessage("filter disabled").Len() != 1 {
		t.Fatalf("expected disabled filter to be logged")
	}

	var regions *observer.LoggedEntry
	for _, entry := range logs.FilterMessage("filter step").All() {
		if entry.ContextMap()["name"] == "regions" {
			e := entry
			regions = &e
		}
	}
	if regions == nil {
		t.Fatal("expected regions step entry")
	}
	fields := regions.ContextMap()
	if fields["initial"] != int64(5) || fields["dropped"] != int64(3) || fields["left"] != int64(2) {
		t.Fatalf("unexpected step fields: %v", fields)
	}
}

func TestDescribe(t *testing.T) {
	steps := Default()
	if err := steps[1].Validate(&Config{Countries: []string{"Japan"}}); err != nil {
		t.Fatal(err)
	}
	DisableByName(steps, "active", "inactive destinations requested")

	statuses := Describe(steps)
	if len(statuses) != len(steps) {
		t.Fatalf("expected %d statuses, got %d", len(steps), len(statuses))
	}
	if statuses[0].Enabled || statuses[0].Reason == "" {
		t.Fatalf("expected active filter to be reported disabled: %+v", statuses[0])
	}
	if statuses[1].Details["countries"] != "japan" {
		t.Fatalf("unexpected countries details: %+v", statuses[1])
	}
}

func TestConfigMerge(t *testing.T) {
	base := Config{Countries: []string{"Japan"}, Exclude: []string{"a"}, MaxFlightHours: 10}
	merged := base.Merge(Config{Regions: []string{"Asia"}, Exclude: []string{"b"}})

	if !reflect.DeepEqual(merged.Countries, []string{"Japan"}) || !reflect.DeepEqual(merged.Regions, []string{"Asia"}) {
		t.Fatalf("unexpected geography: %+v", merged)
	}
	if !reflect.DeepEqual(merged.Exclude, []string{"a", "b"}) {
		t.Fatalf("expected excludes to accumulate, got %v", merged.Exclude)
	}
	if merged.MaxFlightHours != 10 {
		t.Fatalf("expected flight limit to be kept, got %v", merged.MaxFlightHours)
	}
	if len(base.Exclude) != 1 {
		t.Fatal("merge must not modify the receiver")
	}

	if got := base.Merge(Config{MaxFlightHours: -3}).MaxFlightHours; got != -3 {
		t.Fatalf("expected negative flight limit to reach validation, got %v", got)
	}
}
