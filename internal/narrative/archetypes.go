package narrative

import (
	"math"
	"sort"

	"github.com/KirkDiggler/dungeonbreak/internal/content"
	"github.com/KirkDiggler/dungeonbreak/internal/entities"
)

const (
	archetypeTraitWeight    = 0.65
	archetypeFeatureWeight  = 0.25
	archetypeSkillBonus     = 0.08
	archetypeSkillBonusCap  = 0.24
	archetypeMinScore       = 0.12
	archetypeSwitchMargin   = 0.05
	archetypeMagnitudeFloor = 1e-9
)

// ArchetypeScore is one ranked heading.
type ArchetypeScore struct {
	ArchetypeID string  `json:"archetypeId"`
	Label       string  `json:"label"`
	Score       float64 `json:"score"`
}

// ArchetypeDirector ranks headings by cosine similarity.
type ArchetypeDirector struct {
	archetypes []content.ArchetypeDefinition
}

// NewArchetypeDirector keeps archetypes in pack order.
func NewArchetypeDirector(archetypes []content.ArchetypeDefinition) *ArchetypeDirector {
	return &ArchetypeDirector{archetypes: archetypes}
}

// Rank scores every archetype, best first. Ties keep pack order.
func (d *ArchetypeDirector) Rank(actor *entities.Entity) []ArchetypeScore {
	rows := make([]ArchetypeScore, 0, len(d.archetypes))
	for _, def := range d.archetypes {
		traitScore := cosine(actor.Traits, def.VectorProfile, entities.TraitNames)
		featureScore := cosine(actor.Features, def.FeatureProfile, entities.FeatureNames)
		preferred := 0
		for _, skillID := range def.PreferredSkills {
			if actor.SkillUnlocked(skillID) {
				preferred++
			}
		}
		skillScore := math.Min(archetypeSkillBonusCap, float64(preferred)*archetypeSkillBonus)
		rows = append(rows, ArchetypeScore{
			ArchetypeID: def.ArchetypeID,
			Label:       def.Label,
			Score:       traitScore*archetypeTraitWeight + featureScore*archetypeFeatureWeight + skillScore,
		})
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Score > rows[j].Score })
	return rows
}

// Classify returns the new heading. The heading only moves when the best
// score clears the floor and beats the current heading by the margin.
func (d *ArchetypeDirector) Classify(actor *entities.Entity, current string) string {
	ranked := d.Rank(actor)
	if len(ranked) == 0 {
		return current
	}
	best := ranked[0]
	if best.Score < archetypeMinScore {
		return current
	}
	for _, row := range ranked {
		if row.ArchetypeID == current {
			if best.Score-row.Score < archetypeSwitchMargin {
				return current
			}
			break
		}
	}
	return best.ArchetypeID
}

func cosine(a, b entities.Vector, keys []string) float64 {
	var dot, magA, magB float64
	for _, k := range keys {
		dot += a[k] * b[k]
		magA += a[k] * a[k]
		magB += b[k] * b[k]
	}
	magA, magB = math.Sqrt(magA), math.Sqrt(magB)
	if magA <= archetypeMagnitudeFloor || magB <= archetypeMagnitudeFloor {
		return 0
	}
	return dot / (magA * magB)
}
