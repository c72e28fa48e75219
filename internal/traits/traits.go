// Package traits turns questionnaire answers into the normalised trait vector
// the matcher compares against destinations.
package traits

import (
	"sort"

	"github.com/spigell/erranza/internal/questionnaire"
)

const topSensory = 2

// SensoryPriority is one ranked sensory category with its rank-derived weight.
type SensoryPriority struct {
	Category questionnaire.Category `json:"category"`
	Weight   float64                `json:"weight"`
}

// Vector holds the derived traits. Every score is within [0,100].
type Vector struct {
	// Energy runs from restorative (0) to achievement-seeking (100).
	Energy float64 `json:"energy"`
	// Social runs from intimate (0) to communal (100).
	Social float64 `json:"social"`
	// Luxury runs from authentic/rustic (0) to polished/seamless (100).
	Luxury float64 `json:"luxury"`
	// Pace runs from unhurried (0) to densely scheduled (100).
	Pace float64 `json:"pace"`
	// SensoryPriorities ranks every category, highest priority first.
	SensoryPriorities []SensoryPriority `json:"sensory_priorities"`
}

// Top returns up to n leading sensory priorities.
func (v Vector) Top(n int) []SensoryPriority {
	if n > len(v.SensoryPriorities) {
		n = len(v.SensoryPriorities)
	}
	if n < 0 {
		n = 0
	}
	return v.SensoryPriorities[:n]
}

// Extractor computes trait vectors from a fixed question table.
type Extractor struct {
	table Table
}

// NewExtractor creates an extractor. An invalid table is replaced by the default one.
func NewExtractor(table Table) *Extractor {
	if table.Validate() != nil {
		table = DefaultTable()
	}
	return &Extractor{table: table}
}

// CalculateAll extracts traits from raw answers with the default table.
func CalculateAll(raw questionnaire.RawResponse) Vector {
	return NewExtractor(DefaultTable()).Extract(questionnaire.Ingest(raw))
}

// Extract never fails: absent or invalid answers count as neutral.
func (e *Extractor) Extract(resp *questionnaire.Response) Vector {
	if resp == nil {
		resp = questionnaire.Ingest(nil)
	}

	return Vector{
		Energy:            weightedAverage(resp, e.table.Energy),
		Social:            weightedAverage(resp, e.table.Social),
		Luxury:            weightedAverage(resp, e.table.Luxury),
		Pace:              weightedAverage(resp, e.table.Pace),
		SensoryPriorities: sensoryPriorities(resp),
	}
}

func weightedAverage(resp *questionnaire.Response, items []Item) float64 {
	var sum, weights float64
	for _, item := range items {
		value, _ := resp.Number(item.Question)
		if item.Reverse {
			value = 100 - value
		}
		sum += value * item.Weight
		weights += item.Weight
	}
	if weights <= 0 {
		return questionnaire.Neutral
	}
	return questionnaire.Clamp(sum / weights)
}

func sensoryPriorities(resp *questionnaire.Response) []SensoryPriority {
	var ranked []questionnaire.Category
	switch resp.Format {
	case questionnaire.LegacyFormat:
		ranked = completeRanking(resp.Ranking, topSensory)
	default:
		ranked = rankSliders(resp.Sliders)
	}

	// Weights scale over the answered list; categories the respondent left
	// out follow with weight 0.
	step := 100 / float64(len(ranked))
	ranked = completeRanking(ranked, len(questionnaire.Categories()))

	priorities := make([]SensoryPriority, 0, len(ranked))
	for idx, c := range ranked {
		priorities = append(priorities, SensoryPriority{
			Category: c,
			Weight:   questionnaire.Clamp(100 - float64(idx)*step),
		})
	}
	return priorities
}

// completeRanking appends categories missing from ranking in the default
// order until it holds at least n entries.
func completeRanking(ranking []questionnaire.Category, n int) []questionnaire.Category {
	out := append([]questionnaire.Category(nil), ranking...)
	if len(out) >= n {
		return out
	}

	seen := make(map[questionnaire.Category]bool, len(out))
	for _, c := range out {
		seen[c] = true
	}
	for _, c := range questionnaire.Categories() {
		if len(out) >= n {
			break
		}
		if !seen[c] {
			out = append(out, c)
		}
	}
	return out
}

func rankSliders(sliders map[questionnaire.Category]float64) []questionnaire.Category {
	ranked := questionnaire.Categories()
	score := func(c questionnaire.Category) float64 {
		if v, ok := sliders[c]; ok {
			return v
		}
		return questionnaire.Neutral
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return score(ranked[i]) > score(ranked[j])
	})
	return ranked
}
