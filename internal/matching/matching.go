// Package matching scores destinations against a traveller's trait vector.
package matching

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/spigell/erranza/internal/destination"
	"github.com/spigell/erranza/internal/questionnaire"
	"github.com/spigell/erranza/internal/traits"
)

const (
	primarySensoryShare   = 0.6
	secondarySensoryShare = 0.4
	weightsTolerance      = 0.001
)

// Weights are the shares of each component in the composite fit score.
type Weights struct {
	Energy  float64 `mapstructure:"energy" json:"energy"`
	Social  float64 `mapstructure:"social" json:"social"`
	Sensory float64 `mapstructure:"sensory" json:"sensory"`
	Luxury  float64 `mapstructure:"luxury" json:"luxury"`
}

func DefaultWeights() Weights {
	return Weights{Energy: 0.35, Social: 0.25, Sensory: 0.25, Luxury: 0.15}
}

// Validate requires non-negative weights that sum to one.
func (w Weights) Validate() error {
	for name, v := range map[string]float64{"energy": w.Energy, "social": w.Social, "sensory": w.Sensory, "luxury": w.Luxury} {
		if v < 0 || math.IsNaN(v) {
			return fmt.Errorf("%s weight must not be negative", name)
		}
	}
	sum := w.Energy + w.Social + w.Sensory + w.Luxury
	if math.Abs(sum-1) > weightsTolerance {
		return fmt.Errorf("weights must sum to 1, got %.3f", sum)
	}
	return nil
}

// Breakdown holds the four sub-scores combined into the fit score, each within [0,100].
type Breakdown struct {
	Energy  float64 `json:"energy"`
	Social  float64 `json:"social"`
	Sensory float64 `json:"sensory"`
	Luxury  float64 `json:"luxury"`
}

// Result is the fit of one destination.
type Result struct {
	DestinationID string    `json:"destination_id"`
	FitScore      float64   `json:"fit_score"`
	Breakdown     Breakdown `json:"breakdown"`
	// Destination is the scored record, so duplicate ids stay distinguishable.
	Destination *destination.Record `json:"-"`
}

// StoredMatch is the audit row persisted for a computed result.
type StoredMatch struct {
	ID            string    `json:"id"`
	SessionID     string    `json:"session_id"`
	RespondentID  string    `json:"respondent_id"`
	DestinationID string    `json:"destination_id"`
	Rank          int       `json:"rank"`
	FitScore      float64   `json:"fit_score"`
	Breakdown     Breakdown `json:"breakdown"`
	Label         string    `json:"affinity_label"`
	CreatedAt     time.Time `json:"created_at"`
}

// Scorer computes weighted fit scores. It holds no mutable state.
type Scorer struct {
	weights Weights
}

// NewScorer returns a scorer using w, or the default weights when w is invalid.
func NewScorer(w Weights) *Scorer {
	if w.Validate() != nil {
		w = DefaultWeights()
	}
	return &Scorer{weights: w}
}

func (s *Scorer) Weights() Weights {
	return s.weights
}

// Score returns every destination ranked by descending fit.
// Equal scores are ordered by destination id, then by input order.
func (s *Scorer) Score(v traits.Vector, destinations []*destination.Record) []Result {
	results := make([]Result, 0, len(destinations))
	for _, d := range destinations {
		if d == nil {
			continue
		}
		results = append(results, s.ScoreOne(v, d))
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].FitScore != results[j].FitScore {
			return results[i].FitScore > results[j].FitScore
		}
		return results[i].DestinationID < results[j].DestinationID
	})

	return results
}

// ScoreOne computes the fit of a single destination.
func (s *Scorer) ScoreOne(v traits.Vector, d *destination.Record) Result {
	p := d.Profile()

	energy := closeness(v.Energy, p.EnergyLevel())
	social := closeness(v.Social, p.SocialVibe)
	sensory := sensoryMatch(v, p)
	luxury := closeness(v.Luxury, p.LuxuryStyle)

	composite := energy*s.weights.Energy +
		social*s.weights.Social +
		sensory*s.weights.Sensory +
		luxury*s.weights.Luxury

	return Result{
		DestinationID: d.ID,
		Destination:   d,
		FitScore:      Round(questionnaire.Clamp(composite)),
		Breakdown: Breakdown{
			Energy:  Round(energy),
			Social:  Round(social),
			Sensory: Round(sensory),
			Luxury:  Round(luxury),
		},
	}
}

// Top truncates a ranked list. A non-positive n keeps everything.
func Top(results []Result, n int) []Result {
	if n <= 0 || n >= len(results) {
		return results
	}
	return results[:n]
}

// Round rounds to one decimal place.
func Round(v float64) float64 {
	return math.Round(v*10) / 10
}

func closeness(a, b float64) float64 {
	return questionnaire.Clamp(100 - math.Abs(questionnaire.Clamp(a)-questionnaire.Clamp(b)))
}

func sensoryMatch(v traits.Vector, p destination.Profile) float64 {
	top := v.Top(2)
	primary, secondary := questionnaire.Neutral, questionnaire.Neutral
	if len(top) > 0 {
		primary = p.Sensory(top[0].Category)
	}
	if len(top) > 1 {
		secondary = p.Sensory(top[1].Category)
	}
	return questionnaire.Clamp(primary*primarySensoryShare + secondary*secondarySensoryShare)
}
