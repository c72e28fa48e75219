package traits

import (
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

const (
	minItemsPerTrait = 2
	maxItemsPerTrait = 4
)

// Item maps one Likert question into a trait.
// Reverse marks negatively phrased questions whose answer is read as 100 - value.
type Item struct {
	Question string  `toml:"question"`
	Reverse  bool    `toml:"reverse"`
	Weight   float64 `toml:"weight"`
}

// Table is the fixed question-to-trait configuration.
type Table struct {
	Energy []Item `toml:"energy"`
	Social []Item `toml:"social"`
	Luxury []Item `toml:"luxury"`
	Pace   []Item `toml:"pace"`
}

// DefaultTable returns the mapping used by the production questionnaire.
func DefaultTable() Table {
	return Table{
		Energy: []Item{
			{Question: "Q4", Weight: 1},
			{Question: "Q7", Reverse: true, Weight: 1},
			{Question: "Q28", Weight: 1},
			{Question: "Q30", Reverse: true, Weight: 1},
		},
		Social: []Item{
			{Question: "Q5", Weight: 1},
			{Question: "Q6", Weight: 1},
			{Question: "Q8", Reverse: true, Weight: 1},
			{Question: "Q9", Weight: 1},
		},
		Pace: []Item{
			{Question: "Q12", Weight: 1},
			{Question: "Q13", Weight: 1},
			{Question: "Q14", Reverse: true, Weight: 1},
			{Question: "Q15", Weight: 1},
		},
		Luxury: []Item{
			{Question: "Q16", Weight: 1},
			{Question: "Q17", Reverse: true, Weight: 1},
			{Question: "Q18", Weight: 1},
			{Question: "Q19", Weight: 1},
		},
	}
}

// LoadTable reads a TOML table override. Items without a weight get weight 1.
func LoadTable(path string) (Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Table{}, fmt.Errorf("read trait table '%s': %w", path, err)
	}

	var table Table
	if err := toml.Unmarshal(data, &table); err != nil {
		return Table{}, fmt.Errorf("parse trait table: %w", err)
	}

	for _, items := range table.traits() {
		for i := range *items {
			if (*items)[i].Weight == 0 {
				(*items)[i].Weight = 1
			}
		}
	}

	if err := table.Validate(); err != nil {
		return Table{}, err
	}

	return table, nil
}

// Validate checks that every trait draws from 2-4 questions with positive weights.
func (t Table) Validate() error {
	names := []string{"energy", "social", "luxury", "pace"}
	for i, items := range t.traits() {
		name := names[i]
		if len(*items) < minItemsPerTrait || len(*items) > maxItemsPerTrait {
			return fmt.Errorf("trait %s: expected %d-%d questions, got %d", name, minItemsPerTrait, maxItemsPerTrait, len(*items))
		}
		for _, item := range *items {
			if strings.TrimSpace(item.Question) == "" {
				return fmt.Errorf("trait %s: question id is required", name)
			}
			if item.Weight <= 0 {
				return fmt.Errorf("trait %s: question %s must have a positive weight", name, item.Question)
			}
		}
	}
	return nil
}

func (t *Table) traits() []*[]Item {
	return []*[]Item{&t.Energy, &t.Social, &t.Luxury, &t.Pace}
}
