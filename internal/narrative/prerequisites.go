// Package narrative holds the directors that turn entity vectors into
// story branches: skills, dialogue, archetypes and cutscenes, plus the
// deed vectorizer and the fame and fog formulas.
package narrative

import (
	"fmt"
	"strings"

	"github.com/KirkDiggler/dungeonbreak/internal/content"
	"github.com/KirkDiggler/dungeonbreak/internal/entities"
	"github.com/KirkDiggler/dungeonbreak/internal/world"
)

// Availability is the outcome of a rule check.
type Availability struct {
	Available      bool     `json:"available"`
	BlockedReasons []string `json:"blockedReasons"`
}

// PrerequisiteContext is what a rule is evaluated against.
type PrerequisiteContext struct {
	Actor  *entities.Entity
	Room   *world.Room
	Nearby []*entities.Entity
	// Target overrides the first nearby entity for target rules.
	Target *entities.Entity
}

func (c *PrerequisiteContext) target() *entities.Entity {
	if c.Target != nil {
		return c.Target
	}
	if len(c.Nearby) > 0 {
		return c.Nearby[0]
	}
	return nil
}

// EvaluatePrerequisites checks every rule and collects the failures. A
// rule's description is used as its reason when set.
func EvaluatePrerequisites(prereqs []content.Prerequisite, ctx *PrerequisiteContext) Availability {
	reasons := []string{}
	for _, p := range prereqs {
		pass, reason := evaluateOne(p, ctx)
		if !pass {
			reasons = append(reasons, reason)
		}
	}
	return Availability{Available: len(reasons) == 0, BlockedReasons: reasons}
}

func evaluateOne(p content.Prerequisite, ctx *PrerequisiteContext) (bool, string) {
	reason := p.Description
	if reason == "" {
		reason = p.Kind
	}
	actor := ctx.Actor

	switch p.Kind {
	case "room_feature_is":
		return ctx.Room != nil && ctx.Room.Feature == p.Text(), reason
	case "min_attribute":
		value, _ := actor.Attributes.Get(p.Key)
		return float64(value) >= p.Number(), reason
	case "min_trait":
		return actor.Traits[p.Key] >= p.Number(), reason
	case "min_feature":
		return actor.Features[p.Key] >= p.Number(), reason
	case "skill_unlocked":
		return actor.SkillUnlocked(p.Key), reason
	case "target_exists":
		return ctx.target() != nil, reason
	case "target_has_item_tag":
		target := ctx.target()
		return target != nil && target.HasItemTag(p.Key), reason
	case "min_reputation":
		return float64(actor.Reputation) >= p.Number(), reason
	case "max_reputation":
		return float64(actor.Reputation) <= p.Number(), reason
	case "faction_is":
		return strings.EqualFold(actor.Faction, p.Text()), reason
	case "target_faction_is":
		target := ctx.target()
		return target != nil && strings.EqualFold(target.Faction, p.Text()), reason
	case "trait_below":
		return actor.Traits[p.Key] <= p.Number(), reason
	}
	return false, fmt.Sprintf("unknown_prerequisite:%s", p.Kind)
}
