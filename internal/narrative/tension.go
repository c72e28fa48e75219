package narrative

import (
	"fmt"
	"math"

	"github.com/spigell/erranza/internal/destination"
	"github.com/spigell/erranza/internal/traits"
)

const (
	tensionThresholdEnergy = 25.0
	tensionThresholdSocial = 30.0
	tensionThresholdLuxury = 30.0
)

// Dimension names a trait compared between traveller and destination.
type Dimension string

const (
	DimensionNone   Dimension = ""
	DimensionEnergy Dimension = "energy"
	DimensionSocial Dimension = "social"
	DimensionLuxury Dimension = "luxury"
)

// TensionNote is the single most significant mismatch, if any.
type TensionNote struct {
	Dimension  Dimension `json:"dimension,omitempty"`
	Gap        float64   `json:"gap"`
	Message    string    `json:"message"`
	Mitigation string    `json:"mitigation,omitempty"`
}

// Significant reports whether a tension was found.
func (t TensionNote) Significant() bool {
	return t.Dimension != DimensionNone
}

type gap struct {
	dimension Dimension
	user      float64
	dest      float64
	threshold float64
}

// Tension finds the largest gap among the dimensions exceeding their threshold.
// Equal gaps keep the evaluation order: energy, social, luxury.
func Tension(v traits.Vector, d *destination.Record) TensionNote {
	p := d.Profile()
	name := d.DisplayName()

	gaps := []gap{
		{DimensionEnergy, v.Energy, p.EnergyLevel(), tensionThresholdEnergy},
		{DimensionSocial, v.Social, p.SocialVibe, tensionThresholdSocial},
		{DimensionLuxury, v.Luxury, p.LuxuryStyle, tensionThresholdLuxury},
	}

	var worst *gap
	worstSize := 0.0
	for i := range gaps {
		g := &gaps[i]
		size := math.Abs(g.user - g.dest)
		if size <= g.threshold {
			continue
		}
		if worst == nil || size > worstSize {
			worst = g
			worstSize = size
		}
	}

	if worst == nil {
		return TensionNote{
			Message: fmt.Sprintf("No significant tension: %s lines up well with your travel style.", name),
		}
	}

	message, mitigation := describe(*worst, name)
	return TensionNote{
		Dimension:  worst.dimension,
		Gap:        math.Round(worstSize*10) / 10,
		Message:    message,
		Mitigation: mitigation,
	}
}

func describe(g gap, name string) (string, string) {
	higher := g.user > g.dest

	switch g.dimension {
	case DimensionEnergy:
		if higher {
			return fmt.Sprintf("Energy tension: %s is more restful than your usual travel energy.", name),
				"Plan a few active excursions or day trips to keep momentum."
		}
		return fmt.Sprintf("Energy tension: %s runs at a higher intensity than you usually enjoy.", name),
			"Build in rest days and choose a quiet base away from the busiest areas."
	case DimensionSocial:
		if higher {
			return fmt.Sprintf("Social tension: %s is quieter and more secluded than you tend to like.", name),
				"Join a group tour, cooking class or shared activity to meet people."
		}
		return fmt.Sprintf("Social tension: %s is more crowded and communal than you tend to like.", name),
			"Travel off-season and book private or small-group experiences."
	default:
		if higher {
			return fmt.Sprintf("Comfort tension: %s leans more rustic than your preferred level of polish.", name),
				"Reserve a boutique stay or private transfers for a smoother trip."
		}
		return fmt.Sprintf("Comfort tension: %s leans more polished than the authentic experience you prefer.", name),
			"Seek out local guesthouses, markets and family-run places."
	}
}
