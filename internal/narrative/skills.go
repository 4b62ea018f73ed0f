package narrative

import (
	"sort"
	"strings"

	"github.com/KirkDiggler/dungeonbreak/internal/content"
	"github.com/KirkDiggler/dungeonbreak/internal/entities"
	"github.com/KirkDiggler/dungeonbreak/internal/world"
)

// Skill block reasons
const (
	ReasonSkillVectorDistance  = "skill_vector_distance"
	ReasonNeedsRuneForge       = "needs_rune_forge"
	ReasonExclusiveBranchTaken = "exclusive_branch_taken"
	ReasonUnknownSkill         = "unknown_skill"
	ReasonSkillLocked          = "skill_locked"
	ReasonParentSkillLocked    = "parent_skill_locked"
	ReasonNotEvolutionSkill    = "not_evolution_skill"
	ReasonAlreadyUnlocked      = "already_unlocked"
)

const lockedDistance = 999

// SkillEligibility is one skill evaluated against an actor.
type SkillEligibility struct {
	SkillID        string   `json:"skillId"`
	Name           string   `json:"name"`
	Available      bool     `json:"available"`
	Distance       float64  `json:"distance"`
	BlockedReasons []string `json:"blockedReasons"`
}

// SkillDirector unlocks skills by trait proximity.
type SkillDirector struct {
	skills   []content.SkillDefinition
	byID     map[string]*content.SkillDefinition
	traitMin float64
	traitMax float64
}

// NewSkillDirector indexes skills in pack order. Bonuses clamp traits to
// [traitMin, traitMax].
func NewSkillDirector(skills []content.SkillDefinition, traitMin, traitMax float64) *SkillDirector {
	d := &SkillDirector{
		skills:   skills,
		byID:     make(map[string]*content.SkillDefinition, len(skills)),
		traitMin: traitMin,
		traitMax: traitMax,
	}
	for i := range d.skills {
		d.byID[d.skills[i].SkillID] = &d.skills[i]
	}
	return d
}

// Skill returns the definition for id.
func (d *SkillDirector) Skill(id string) (*content.SkillDefinition, bool) {
	def, ok := d.byID[id]
	return def, ok
}

func (d *SkillDirector) branchTaken(actor *entities.Entity, group string) bool {
	if group == "" {
		return false
	}
	for id, state := range actor.Skills {
		if !state.Unlocked {
			continue
		}
		if def, ok := d.byID[id]; ok && def.BranchGroup == group {
			return true
		}
	}
	return false
}

func isRuneForge(room *world.Room) bool {
	return room != nil && room.Feature == world.FeatureRuneForge
}

// EvaluateUnlocks rates every locked base skill, nearest first.
func (d *SkillDirector) EvaluateUnlocks(actor *entities.Entity, room *world.Room, nearby []*entities.Entity) []SkillEligibility {
	rows := []SkillEligibility{}
	for i := range d.skills {
		def := &d.skills[i]
		if actor.SkillUnlocked(def.SkillID) || def.EvolvedFrom != "" {
			continue
		}

		reasons := []string{}
		distance := entities.Distance(actor.Traits, def.VectorProfile, entities.TraitNames)
		if distance > def.UnlockRadius {
			reasons = append(reasons, ReasonSkillVectorDistance)
		}
		if def.RequiresRuneForge && !isRuneForge(room) {
			reasons = append(reasons, ReasonNeedsRuneForge)
		}
		if d.branchTaken(actor, def.BranchGroup) {
			reasons = append(reasons, ReasonExclusiveBranchTaken)
		}
		prereq := EvaluatePrerequisites(def.UnlockRequirements, &PrerequisiteContext{Actor: actor, Room: room, Nearby: nearby})
		reasons = append(reasons, prereq.BlockedReasons...)

		rows = append(rows, SkillEligibility{
			SkillID:        def.SkillID,
			Name:           def.Name,
			Available:      len(reasons) == 0,
			Distance:       distance,
			BlockedReasons: reasons,
		})
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Distance < rows[j].Distance })
	return rows
}

// UnlockNewSkills unlocks every eligible skill and applies its bonuses.
// Branch exclusivity is rechecked after each unlock.
func (d *SkillDirector) UnlockNewSkills(actor *entities.Entity, room *world.Room, nearby []*entities.Entity) []content.SkillDefinition {
	unlocked := []content.SkillDefinition{}
	for _, row := range d.EvaluateUnlocks(actor, room, nearby) {
		if !row.Available {
			continue
		}
		def := d.byID[row.SkillID]
		if d.branchTaken(actor, def.BranchGroup) {
			continue
		}
		d.grant(actor, def)
		unlocked = append(unlocked, *def)
	}
	return unlocked
}

func (d *SkillDirector) grant(actor *entities.Entity, def *content.SkillDefinition) {
	if actor.Skills == nil {
		actor.Skills = map[string]entities.SkillState{}
	}
	actor.Skills[def.SkillID] = entities.SkillState{SkillID: def.SkillID, Name: def.Name, Unlocked: true}
	actor.ApplyTraitDelta(def.TraitBonus, d.traitMin, d.traitMax)
	actor.ApplyFeatureDelta(def.FeatureBonus)
}

// CanUse checks the use requirements of an unlocked skill.
func (d *SkillDirector) CanUse(actor *entities.Entity, room *world.Room, skillID string, nearby []*entities.Entity) SkillEligibility {
	def, ok := d.byID[skillID]
	if !ok {
		return SkillEligibility{SkillID: skillID, Name: skillID, Distance: lockedDistance, BlockedReasons: []string{ReasonUnknownSkill}}
	}
	if !actor.SkillUnlocked(skillID) {
		return SkillEligibility{SkillID: skillID, Name: def.Name, Distance: lockedDistance, BlockedReasons: []string{ReasonSkillLocked}}
	}
	result := EvaluatePrerequisites(def.UseRequirements, &PrerequisiteContext{Actor: actor, Room: room, Nearby: nearby})
	return SkillEligibility{
		SkillID:        skillID,
		Name:           def.Name,
		Available:      result.Available,
		Distance:       entities.Distance(actor.Traits, def.VectorProfile, entities.TraitNames),
		BlockedReasons: result.BlockedReasons,
	}
}

// AvailableEvolutions rates every locked evolution skill.
func (d *SkillDirector) AvailableEvolutions(actor *entities.Entity, room *world.Room) []SkillEligibility {
	rows := []SkillEligibility{}
	for i := range d.skills {
		def := &d.skills[i]
		if def.EvolvedFrom == "" || actor.SkillUnlocked(def.SkillID) {
			continue
		}
		reasons := []string{}
		if !actor.SkillUnlocked(def.EvolvedFrom) {
			reasons = append(reasons, ReasonParentSkillLocked)
		}
		if def.RequiresRuneForge && !isRuneForge(room) {
			reasons = append(reasons, ReasonNeedsRuneForge)
		}
		prereq := EvaluatePrerequisites(def.UnlockRequirements, &PrerequisiteContext{Actor: actor, Room: room})
		reasons = append(reasons, prereq.BlockedReasons...)

		rows = append(rows, SkillEligibility{
			SkillID:        def.SkillID,
			Name:           def.Name,
			Available:      len(reasons) == 0,
			Distance:       entities.Distance(actor.Traits, def.VectorProfile, entities.TraitNames),
			BlockedReasons: reasons,
		})
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Distance < rows[j].Distance })
	return rows
}

// EvolveSkill unlocks an evolution skill. On failure it returns the reason.
func (d *SkillDirector) EvolveSkill(actor *entities.Entity, room *world.Room, skillID string) (bool, string) {
	def, ok := d.byID[skillID]
	switch {
	case !ok:
		return false, ReasonUnknownSkill
	case def.EvolvedFrom == "":
		return false, ReasonNotEvolutionSkill
	case actor.SkillUnlocked(skillID):
		return false, ReasonAlreadyUnlocked
	case !actor.SkillUnlocked(def.EvolvedFrom):
		return false, ReasonParentSkillLocked
	case def.RequiresRuneForge && !isRuneForge(room):
		return false, ReasonNeedsRuneForge
	}

	prereq := EvaluatePrerequisites(def.UnlockRequirements, &PrerequisiteContext{Actor: actor, Room: room})
	if !prereq.Available {
		reason := strings.Join(prereq.BlockedReasons, ",")
		if reason == "" {
			reason = "blocked"
		}
		return false, reason
	}
	d.grant(actor, def)
	return true, "evolved"
}
