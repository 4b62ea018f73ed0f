package narrative

import (
	"math"

	"github.com/KirkDiggler/dungeonbreak/internal/entities"
)

// FameInput feeds the live stream fame formula.
type FameInput struct {
	CurrentFame       float64
	EffortSpent       float64
	RoomVector        entities.Vector
	ActionNovelty     float64
	RiskLevel         float64
	Momentum          float64
	HasBroadcastSkill bool
}

// FameResult is the gain plus every intermediate.
type FameResult struct {
	Gain              float64            `json:"gain"`
	BaseGain          float64            `json:"baseGain"`
	ContextMultiplier float64            `json:"contextMultiplier"`
	DiminishingFactor float64            `json:"diminishingFactor"`
	Components        map[string]float64 `json:"components"`
}

// ComputeFameGain scales effort by how interesting, new and risky the
// broadcast is, with diminishing returns on existing fame.
func ComputeFameGain(in FameInput) FameResult {
	v := in.RoomVector
	roomInterest := entities.Clamp(0.6*v["Projection"]+0.4*v["Levity"]+0.25*v["Direction"]+0.2*v["Survival"], -0.6, 1.6)
	novelty := entities.Clamp(in.ActionNovelty, 0, 1.6)
	risk := entities.Clamp(in.RiskLevel, 0, 1.4)
	momentumBonus := entities.Clamp(in.Momentum*0.04, 0, 0.3)
	skillBonus := 0.0
	if in.HasBroadcastSkill {
		skillBonus = 0.15
	}

	multiplier := math.Max(0.15, 1+0.45*roomInterest+0.3*novelty+0.25*risk+momentumBonus+skillBonus)
	baseGain := math.Max(0, in.EffortSpent/10)
	diminishing := 1 / (1 + math.Max(0, in.CurrentFame)/120)

	return FameResult{
		Gain:              entities.Round(math.Max(0, baseGain*multiplier*diminishing), 4),
		BaseGain:          baseGain,
		ContextMultiplier: multiplier,
		DiminishingFactor: diminishing,
		Components: map[string]float64{
			"roomInterest":  roomInterest,
			"novelty":       novelty,
			"risk":          risk,
			"momentumBonus": momentumBonus,
			"skillBonus":    skillBonus,
		},
	}
}
