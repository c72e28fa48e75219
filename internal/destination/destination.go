package destination

import (
	"strings"

	"github.com/spigell/erranza/internal/questionnaire"
)

// Record is a catalog entry. Affinity scores are optional: an unset score
// counts as neutral so every destination stays comparable.
type Record struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Country string `json:"country"`
	Region  string `json:"region"`

	Restorative     *float64 `json:"restorative_score,omitempty"`
	Achievement     *float64 `json:"achievement_score,omitempty"`
	Cultural        *float64 `json:"cultural_score,omitempty"`
	SocialVibe      *float64 `json:"social_vibe_score,omitempty"`
	Visual          *float64 `json:"visual_score,omitempty"`
	Culinary        *float64 `json:"culinary_score,omitempty"`
	Nature          *float64 `json:"nature_score,omitempty"`
	CulturalSensory *float64 `json:"cultural_sensory_score,omitempty"`
	Wellness        *float64 `json:"wellness_score,omitempty"`
	LuxuryStyle     *float64 `json:"luxury_style_score,omitempty"`

	// Logistics are used for display and filtering only, never for scoring.
	CostPerDay  *float64 `json:"cost_per_day,omitempty"`
	FlightHours *float64 `json:"flight_hours,omitempty"`
	BestSeason  string   `json:"best_season,omitempty"`
	Description string   `json:"description,omitempty"`
	Active      *bool    `json:"is_active,omitempty"`
}

// Profile is the resolved scoring view of a record, every score within [0,100].
type Profile struct {
	Restorative     float64 `json:"restorative"`
	Achievement     float64 `json:"achievement"`
	Cultural        float64 `json:"cultural"`
	SocialVibe      float64 `json:"social_vibe"`
	Visual          float64 `json:"visual"`
	Culinary        float64 `json:"culinary"`
	Nature          float64 `json:"nature"`
	CulturalSensory float64 `json:"cultural_sensory"`
	Wellness        float64 `json:"wellness"`
	LuxuryStyle     float64 `json:"luxury_style"`
}

// Profile resolves missing scores to neutral.
func (r *Record) Profile() Profile {
	if r == nil {
		r = &Record{}
	}
	return Profile{
		Restorative:     score(r.Restorative),
		Achievement:     score(r.Achievement),
		Cultural:        score(r.Cultural),
		SocialVibe:      score(r.SocialVibe),
		Visual:          score(r.Visual),
		Culinary:        score(r.Culinary),
		Nature:          score(r.Nature),
		CulturalSensory: score(r.CulturalSensory),
		Wellness:        score(r.Wellness),
		LuxuryStyle:     score(r.LuxuryStyle),
	}
}

// EnergyLevel puts the destination on the traveller energy scale:
// 100 is maximally stimulating, i.e. the inverse of its restorative score.
func (p Profile) EnergyLevel() float64 {
	return 100 - p.Restorative
}

// Sensory returns the destination score for a sensory category.
func (p Profile) Sensory(c questionnaire.Category) float64 {
	switch c {
	case questionnaire.Visual:
		return p.Visual
	case questionnaire.Culinary:
		return p.Culinary
	case questionnaire.Nature:
		return p.Nature
	case questionnaire.Cultural:
		return p.CulturalSensory
	case questionnaire.Wellness:
		return p.Wellness
	default:
		return questionnaire.Neutral
	}
}

// IsActive treats records without an explicit flag as active.
func (r *Record) IsActive() bool {
	return r.Active == nil || *r.Active
}

// DisplayName falls back to the identifier for unnamed records.
func (r *Record) DisplayName() string {
	if name := strings.TrimSpace(r.Name); name != "" {
		return name
	}
	return r.ID
}

func score(v *float64) float64 {
	if v == nil {
		return questionnaire.Neutral
	}
	return questionnaire.Clamp(*v)
}

// Float is a helper for building records in code and tests.
func Float(v float64) *float64 {
	return &v
}
