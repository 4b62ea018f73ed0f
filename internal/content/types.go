// Package content holds the designer-authored static catalogs the engine
// consumes: action formulas, policies, room templates, items, skills,
// archetypes, dialogue, cutscenes, quests and global events.
package content

import (
	"fmt"
	"strconv"

	"github.com/KirkDiggler/dungeonbreak/internal/embedding"
	"github.com/KirkDiggler/dungeonbreak/internal/entities"
)

// Catalog is the full validated content set. It is read-only once loaded.
type Catalog struct {
	Contracts     Contracts
	Actions       []ActionSpec
	Policies      []Policy
	RoomTemplates []RoomTemplate
	Items         ItemPack
	Skills        []SkillDefinition
	Archetypes    []ArchetypeDefinition
	Dialogue      []DialogueCluster
	Cutscenes     []CutsceneDefinition
	Quests        []QuestDefinition
	Events        []EventDefinition

	policiesByID map[string]Policy
	templates    map[string]entities.Vector
}

// Contracts are the numeric tuning constants of the simulation.
type Contracts struct {
	CanonicalSeedV1    int64                    `yaml:"canonicalSeedV1"`
	RoomInfluenceScale float64                  `yaml:"roomInfluenceScale"`
	DeedProjection     embedding.Budget         `yaml:"deedProjection"`
	EntityPressure     EntityPressure           `yaml:"entityPressure"`
	Actions            map[string]ActionFormula `yaml:"actions"`
}

// EntityPressure configures the pressure control loop.
type EntityPressure struct {
	Cap                  int  `yaml:"cap"`
	CountItemsAsEntities bool `yaml:"countItemsAsEntities"`
}

// ActionFormula holds the tunable effects of one action.
type ActionFormula struct {
	EnergyDelta         float64         `yaml:"energyDelta,omitempty"`
	EnergyDeltaBase     float64         `yaml:"energyDeltaBase,omitempty"`
	EnergyDeltaRestRoom float64         `yaml:"energyDeltaRestRoom,omitempty"`
	XPDelta             int             `yaml:"xpDelta,omitempty"`
	ReputationDelta     int             `yaml:"reputationDelta,omitempty"`
	EffortCost          float64         `yaml:"effortCost,omitempty"`
	TraitDelta          entities.Vector `yaml:"traitDelta,omitempty"`
	FeatureDelta        entities.Vector `yaml:"featureDelta,omitempty"`
	NoTargetTraitDelta  entities.Vector `yaml:"noTargetTraitDelta,omitempty"`
}

// ActionSpec describes one action type in the catalog.
type ActionSpec struct {
	ActionType          string `yaml:"actionType"`
	Group               string `yaml:"group"`
	RequiresTarget      bool   `yaml:"requiresTarget"`
	RequiresEncounter   bool   `yaml:"requiresEncounter,omitempty"`
	RequiresRoomFeature string `yaml:"requiresRoomFeature,omitempty"`
}

// Policy is a priority-ordered list of preferred action types.
type Policy struct {
	PolicyID      string   `yaml:"policyId"`
	Description   string   `yaml:"description,omitempty"`
	PriorityOrder []string `yaml:"priorityOrder"`
}

// RoomTemplate is the base trait vector for a room feature.
type RoomTemplate struct {
	Feature    string          `yaml:"feature"`
	BaseVector entities.Vector `yaml:"baseVector"`
}

// ItemPack lists rarity tiers and the rune forge stock.
type ItemPack struct {
	RarityTiers []string         `yaml:"rarityTiers"`
	Items       []ItemDefinition `yaml:"items"`
}

// ItemDefinition is a purchasable item template.
type ItemDefinition struct {
	ItemID      string          `yaml:"itemId"`
	Tags        []string        `yaml:"tags"`
	VectorDelta entities.Vector `yaml:"vectorDelta"`
}

// Prerequisite is one discrete rule evaluated against an actor.
type Prerequisite struct {
	Kind        string `yaml:"kind"`
	Key         string `yaml:"key,omitempty"`
	Value       any    `yaml:"value,omitempty"`
	Description string `yaml:"description,omitempty"`
}

// Number returns the value as a float, or 0.
func (p Prerequisite) Number() float64 {
	switch v := p.Value.(type) {
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case float64:
		return v
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0
		}
		return f
	}
	return 0
}

// Text returns the value as a string.
func (p Prerequisite) Text() string {
	if p.Value == nil {
		return ""
	}
	if s, ok := p.Value.(string); ok {
		return s
	}
	return fmt.Sprint(p.Value)
}

// SkillDefinition is a skill that unlocks by trait proximity.
type SkillDefinition struct {
	SkillID            string          `yaml:"skillId"`
	Name               string          `yaml:"name"`
	Description        string          `yaml:"description"`
	VectorProfile      entities.Vector `yaml:"vectorProfile"`
	UnlockRadius       float64         `yaml:"unlockRadius"`
	UnlockRequirements []Prerequisite  `yaml:"unlockRequirements,omitempty"`
	UseRequirements    []Prerequisite  `yaml:"useRequirements,omitempty"`
	BranchGroup        string          `yaml:"branchGroup,omitempty"`
	EvolvedFrom        string          `yaml:"evolvedFrom,omitempty"`
	RequiresRuneForge  bool            `yaml:"requiresRuneForge,omitempty"`
	TraitBonus         entities.Vector `yaml:"traitBonus,omitempty"`
	FeatureBonus       entities.Vector `yaml:"featureBonus,omitempty"`
}

// ArchetypeDefinition is a narrative heading scored by cosine similarity.
type ArchetypeDefinition struct {
	ArchetypeID     string          `yaml:"archetypeId"`
	Label           string          `yaml:"label"`
	Description     string          `yaml:"description"`
	VectorProfile   entities.Vector `yaml:"vectorProfile"`
	FeatureProfile  entities.Vector `yaml:"featureProfile,omitempty"`
	PreferredSkills []string        `yaml:"preferredSkills,omitempty"`
}

// DialogueCluster groups options behind a coarse radius gate.
type DialogueCluster struct {
	ClusterID    string           `yaml:"clusterId"`
	Title        string           `yaml:"title"`
	CenterVector entities.Vector  `yaml:"centerVector"`
	Radius       float64          `yaml:"radius"`
	Options      []DialogueOption `yaml:"options"`
}

// DialogueOption is one choosable line.
type DialogueOption struct {
	OptionID               string          `yaml:"optionId"`
	Label                  string          `yaml:"label"`
	Line                   string          `yaml:"line"`
	AnchorVector           entities.Vector `yaml:"anchorVector"`
	Radius                 float64         `yaml:"radius"`
	EffectVector           entities.Vector `yaml:"effectVector"`
	ResponseText           string          `yaml:"responseText"`
	RequiresRoomFeature    string          `yaml:"requiresRoomFeature,omitempty"`
	RequiresItemTagPresent string          `yaml:"requiresItemTagPresent,omitempty"`
	RequiresItemTagAbsent  string          `yaml:"requiresItemTagAbsent,omitempty"`
	RequiresSkillID        string          `yaml:"requiresSkillId,omitempty"`
	TakeItemTag            string          `yaml:"takeItemTag,omitempty"`
	NextOptionID           string          `yaml:"nextOptionId,omitempty"`
}

// Cutscene trigger kinds
const (
	TriggerItemTag            = "item_tag"
	TriggerSkillUnlock        = "skill_unlock"
	TriggerAttributeMilestone = "attribute_milestone"
	TriggerFameMilestone      = "fame_milestone"
	TriggerChapterComplete    = "chapter_complete"
	TriggerEscape             = "escape"
)

// AttributeThreshold is a minimum attribute value.
type AttributeThreshold struct {
	Key   string `yaml:"key"`
	Value int    `yaml:"value"`
}

// CutsceneDefinition is a scripted beat shown to the player.
type CutsceneDefinition struct {
	CutsceneID         string              `yaml:"cutsceneId"`
	Title              string              `yaml:"title"`
	Text               string              `yaml:"text"`
	TriggerKind        string              `yaml:"triggerKind"`
	Once               bool                `yaml:"once"`
	RequiredActionType string              `yaml:"requiredActionType,omitempty"`
	RequiredItemTag    string              `yaml:"requiredItemTag,omitempty"`
	RequiredSkillID    string              `yaml:"requiredSkillId,omitempty"`
	MinAttribute       *AttributeThreshold `yaml:"minAttribute,omitempty"`
	MinFame            *float64            `yaml:"minFame,omitempty"`
}

// Quest rule kinds
const (
	RuleAction           = "action"
	RuleChapterCompleted = "chapter_completed"
	RuleEscape           = "escape"
)

// RequiredProgress is either a fixed value or derived from the dungeon.
type RequiredProgress struct {
	Mode  string `yaml:"mode"`
	Value int    `yaml:"value,omitempty"`
}

// Required progress modes
const (
	ProgressFixed       = "fixed"
	ProgressTotalLevels = "total_levels"
)

// QuestRule adds progress when its condition holds.
type QuestRule struct {
	Kind          string `yaml:"kind"`
	ActionType    string `yaml:"actionType,omitempty"`
	Amount        int    `yaml:"amount,omitempty"`
	SetToRequired bool   `yaml:"setToRequired,omitempty"`
}

// QuestDefinition is a player quest driven by rules.
type QuestDefinition struct {
	QuestID          string           `yaml:"questId"`
	Title            string           `yaml:"title"`
	Description      string           `yaml:"description"`
	RequiredProgress RequiredProgress `yaml:"requiredProgress"`
	ProgressRules    []QuestRule      `yaml:"progressRules"`
}

// Required returns the progress needed for totalLevels dungeon depth.
func (q QuestDefinition) Required(totalLevels int) int {
	if q.RequiredProgress.Mode == ProgressTotalLevels {
		return totalLevels
	}
	if q.RequiredProgress.Value < 1 {
		return 1
	}
	return q.RequiredProgress.Value
}

// Event kinds and trigger metrics
const (
	EventDeterministic = "deterministic"
	EventEmergent      = "emergent"

	MetricTurnIndex     = "turn_index"
	MetricPlayerFeature = "player_feature"
)

// EventTrigger is the threshold that arms a global event.
type EventTrigger struct {
	Metric string  `yaml:"metric"`
	Key    string  `yaml:"key,omitempty"`
	Gte    float64 `yaml:"gte"`
}

// EventDefinition is a one-shot global event.
type EventDefinition struct {
	EventID                    string          `yaml:"eventId"`
	Kind                       string          `yaml:"kind"`
	Message                    string          `yaml:"message"`
	Trigger                    EventTrigger    `yaml:"trigger"`
	Probability                float64         `yaml:"probability,omitempty"`
	GlobalEnemyLevelBonusDelta int             `yaml:"globalEnemyLevelBonusDelta,omitempty"`
	TraitDelta                 entities.Vector `yaml:"traitDelta,omitempty"`
	FeatureDelta               entities.Vector `yaml:"featureDelta,omitempty"`
}
