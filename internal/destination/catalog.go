package destination

import (
	"encoding/json"
	"os"
	"strings"
)

const (
	IDField      = "ID"
	CountryField = "Country"
	RegionField  = "Region"
)

// Catalog is the candidate list handed from the store to the filters and the scorer.
type Catalog struct {
	Items []*Record
}

func (c *Catalog) Len() int {
	return len(c.Items)
}

func (c *Catalog) FindByID(id string) *Record {
	for _, r := range c.Items {
		if r.ID == id {
			return r
		}
	}
	return nil
}

// IDs returns the identifiers in catalog order.
func (c *Catalog) IDs() []string {
	ids := make([]string, 0, len(c.Items))
	for _, r := range c.Items {
		ids = append(ids, r.ID)
	}
	return ids
}

// Keep retains the records accepted by fn, preserving order, and returns the ids of dropped records.
func (c *Catalog) Keep(fn func(*Record) bool) []string {
	var dropped []string
	kept := make([]*Record, 0, len(c.Items))
	for _, r := range c.Items {
		if r != nil && fn(r) {
			kept = append(kept, r)
			continue
		}
		if r != nil {
			dropped = append(dropped, r.ID)
		}
	}
	c.Items = kept
	return dropped
}

// Exclude drops records whose named field matches one of the targets, ignoring case.
func (c *Catalog) Exclude(name string, targets []string) []string {
	set := make(map[string]bool, len(targets))
	for _, t := range targets {
		set[strings.ToLower(strings.TrimSpace(t))] = true
	}
	return c.Keep(func(r *Record) bool {
		return !set[strings.ToLower(r.GetStringField(name))]
	})
}

func (r *Record) GetStringField(name string) string {
	switch name {
	case IDField:
		return r.ID
	case CountryField:
		return r.Country
	case RegionField:
		return r.Region
	default:
		return ""
	}
}

// DumpToTmpFile writes the catalog to a temporary JSON file and returns its name.
func (c *Catalog) DumpToTmpFile() (string, error) {
	file, err := os.CreateTemp("", "destinations_*.json")
	if err != nil {
		return "", err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(c.Items); err != nil {
		return "", err
	}
	return file.Name(), nil
}
