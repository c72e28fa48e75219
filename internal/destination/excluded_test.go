package destination

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestExcludedListRoundTripThroughFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "exclude.json")

	list, err := LoadExcluded(path)
	if err != nil {
		t.Fatalf("missing file should load as empty list: %v", err)
	}
	if len(list.Items) != 0 {
		t.Fatalf("expected empty list, got %d items", len(list.Items))
	}

	added := list.Add(&Record{ID: "a", Name: "Lisbon"}, &Record{ID: "b"}, nil, &Record{ID: "a"})
	if added != 2 {
		t.Fatalf("expected 2 added, got %d", added)
	}
	if err := list.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := LoadExcluded(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !reflect.DeepEqual(loaded.IDs(), []string{"a", "b"}) {
		t.Fatalf("unexpected ids: %v", loaded.IDs())
	}
	if loaded.Add(&Record{ID: "b"}) != 0 {
		t.Fatal("expected duplicate to be ignored")
	}
}

func TestLoadExcludedEmptyAndInvalid(t *testing.T) {
	dir := t.TempDir()

	empty := filepath.Join(dir, "empty.json")
	if err := os.WriteFile(empty, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	list, err := LoadExcluded(empty)
	if err != nil || len(list.IDs()) != 0 {
		t.Fatalf("expected empty list, got %v %v", list, err)
	}

	invalid := filepath.Join(dir, "invalid.json")
	if err := os.WriteFile(invalid, []byte("{"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadExcluded(invalid); err == nil {
		t.Fatal("expected decode error")
	}
}
