// Package narrative explains match results with deterministic templates and,
// optionally, generated prose.
package narrative

import (
	"fmt"
	"strings"

	"github.com/spigell/erranza/internal/destination"
	"github.com/spigell/erranza/internal/matching"
	"github.com/spigell/erranza/internal/traits"
)

const (
	LabelExceptional = "Exceptional Match"
	LabelStrong      = "Strong Match"
	LabelGood        = "Good Match"
	LabelModerate    = "Moderate Match"

	highBand = 65.0
	lowBand  = 35.0
)

// Source tells where the prose of a narrative came from.
type Source string

const (
	SourceTemplate  Source = "template"
	SourceGenerated Source = "generated"
)

// Narrative is the display text for one match.
type Narrative struct {
	Label     string      `json:"affinity_label"`
	WhyItFits string      `json:"why_it_fits"`
	Tension   TensionNote `json:"tension"`
	Prose     string      `json:"prose"`
	Source    Source      `json:"prose_source"`
}

// AffinityLabel maps a composite fit score onto the label ladder.
func AffinityLabel(score float64) string {
	switch {
	case score >= 85:
		return LabelExceptional
	case score >= 70:
		return LabelStrong
	case score >= 55:
		return LabelGood
	default:
		return LabelModerate
	}
}

// Generate builds the template narrative for a scored destination.
func Generate(v traits.Vector, result matching.Result, d *destination.Record) Narrative {
	why := WhyItFits(v, d)
	tension := Tension(v, d)
	return Narrative{
		Label:     AffinityLabel(result.FitScore),
		WhyItFits: why,
		Tension:   tension,
		Prose:     why + " " + tension.Message,
		Source:    SourceTemplate,
	}
}

// WhyItFits composes the fit paragraph from the traveller and destination descriptors.
func WhyItFits(v traits.Vector, d *destination.Record) string {
	p := d.Profile()
	name := d.DisplayName()

	var b strings.Builder
	fmt.Fprintf(&b, "As %s traveller who prefers %s, you will find the %s energy of %s %s.",
		energyDisposition(v.Energy),
		pacePreference(v.Pace),
		energyCharacter(p.EnergyLevel()),
		name,
		energyVerdict(v.Energy, p.EnergyLevel()),
	)
	fmt.Fprintf(&b, " Its %s suits how you %s.", socialCharacter(p.SocialVibe), socialDisposition(v.Social))

	if top := v.Top(1); len(top) > 0 {
		fmt.Fprintf(&b, " Your top sensory priority, %s, scores %.0f here.", top[0].Category, p.Sensory(top[0].Category))
	}

	return b.String()
}

func energyDisposition(energy float64) string {
	switch {
	case energy >= highBand:
		return "an achievement-driven"
	case energy <= lowBand:
		return "a restoration-seeking"
	default:
		return "a balanced"
	}
}

func energyCharacter(level float64) string {
	switch {
	case level >= highBand:
		return "stimulating"
	case level <= lowBand:
		return "calm"
	default:
		return "balanced"
	}
}

func energyVerdict(user, dest float64) string {
	gap := user - dest
	switch {
	case gap > tensionThresholdEnergy:
		return "gentler than your usual pace"
	case -gap > tensionThresholdEnergy:
		return "livelier than your usual pace"
	default:
		return "a natural match"
	}
}

func pacePreference(pace float64) string {
	switch {
	case pace >= highBand:
		return "a packed itinerary"
	case pace <= lowBand:
		return "an unhurried rhythm"
	default:
		return "a mix of plans and free time"
	}
}

func socialCharacter(vibe float64) string {
	switch {
	case vibe >= highBand:
		return "lively, communal atmosphere"
	case vibe <= lowBand:
		return "quiet, intimate atmosphere"
	default:
		return "relaxed social scene"
	}
}

func socialDisposition(social float64) string {
	switch {
	case social >= highBand:
		return "love meeting new people"
	case social <= lowBand:
		return "value your own space"
	default:
		return "enjoy company on your own terms"
	}
}
