package destination

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// ExcludedList is the on-disk list of destinations a traveller does not want to see again.
type ExcludedList struct {
	Items []*Excluded `json:"items"`
}

type Excluded struct {
	ID         string    `json:"id"`
	Name       string    `json:"name,omitempty"`
	Country    string    `json:"country,omitempty"`
	ExcludedAt time.Time `json:"excluded_at"`
}

// IDs returns the excluded destination ids.
func (l *ExcludedList) IDs() []string {
	ids := make([]string, 0, len(l.Items))
	for _, item := range l.Items {
		if item != nil {
			ids = append(ids, item.ID)
		}
	}
	return ids
}

// Add appends records that are not yet listed and reports how many were added.
func (l *ExcludedList) Add(records ...*Record) int {
	seen := make(map[string]bool, len(l.Items))
	for _, item := range l.Items {
		if item != nil {
			seen[item.ID] = true
		}
	}

	added := 0
	now := time.Now().UTC()
	for _, r := range records {
		if r == nil || seen[r.ID] {
			continue
		}
		seen[r.ID] = true
		l.Items = append(l.Items, &Excluded{
			ID:         r.ID,
			Name:       r.Name,
			Country:    r.Country,
			ExcludedAt: now,
		})
		added++
	}
	return added
}

// LoadExcluded reads an exclude file. A missing or empty file is an empty list.
func LoadExcluded(path string) (*ExcludedList, error) {
	file, err := os.Open(path)
	if os.IsNotExist(err) {
		return &ExcludedList{}, nil
	}
	if err != nil {
		return nil, err
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return nil, err
	}

	if stat.Size() == 0 {
		return &ExcludedList{}, nil
	}

	var excluded ExcludedList
	if err := json.NewDecoder(file).Decode(&excluded); err != nil {
		return nil, fmt.Errorf("decode exclude file %s: %w", path, err)
	}
	return &excluded, nil
}

// Save writes the list to path, replacing its content.
func (l *ExcludedList) Save(path string) error {
	data, err := json.MarshalIndent(l, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
