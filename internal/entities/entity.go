// Package entities holds the mutable state of everything that acts in the
// dungeon: the player, dungeoneers, bosses and spawned hostiles.
package entities

import "strings"

// Kind classifies an entity.
type Kind string

// Entity kinds
const (
	KindPlayer     Kind = "player"
	KindDungeoneer Kind = "dungeoneer"
	KindBoss       Kind = "boss"
	KindHostile    Kind = "hostile"
)

// BeliefState describes how trustworthy a remembered deed or rumor is.
type BeliefState string

// Belief states
const (
	BeliefVerified    BeliefState = "verified"
	BeliefRumor       BeliefState = "rumor"
	BeliefMisinformed BeliefState = "misinformed"
)

// Rarity tiers
const (
	RarityCommon    = "common"
	RarityRare      = "rare"
	RarityEpic      = "epic"
	RarityLegendary = "legendary"
)

// Item tags with engine meaning.
const (
	TagWeapon   = "weapon"
	TagLoot     = "loot"
	TagTreasure = "treasure"
	TagCurrency = "currency"
	TagArmor    = "armor"
	TagRelic    = "relic"
	TagFame     = "fame"
)

// Attributes are the integer stats trained through play.
type Attributes struct {
	Might     int `json:"might" yaml:"might"`
	Agility   int `json:"agility" yaml:"agility"`
	Insight   int `json:"insight" yaml:"insight"`
	Willpower int `json:"willpower" yaml:"willpower"`
}

// DefaultAttributes returns the baseline block.
func DefaultAttributes() Attributes {
	return Attributes{Might: 5, Agility: 5, Insight: 5, Willpower: 5}
}

// Get returns the named attribute and whether the name is known.
func (a Attributes) Get(name string) (int, bool) {
	switch strings.ToLower(name) {
	case "might":
		return a.Might, true
	case "agility":
		return a.Agility, true
	case "insight":
		return a.Insight, true
	case "willpower":
		return a.Willpower, true
	}
	return 0, false
}

// Set assigns the named attribute. Unknown names are ignored.
func (a *Attributes) Set(name string, value int) bool {
	switch strings.ToLower(name) {
	case "might":
		a.Might = value
	case "agility":
		a.Agility = value
	case "insight":
		a.Insight = value
	case "willpower":
		a.Willpower = value
	default:
		return false
	}
	return true
}

// ItemInstance is an item carried by an entity.
type ItemInstance struct {
	ItemID      string   `json:"itemId"`
	Name        string   `json:"name"`
	Rarity      string   `json:"rarity"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	TraitDelta  Vector   `json:"traitDelta"`
}

// HasTag reports whether the item carries tag.
func (i ItemInstance) HasTag(tag string) bool {
	return contains(i.Tags, tag)
}

// SkillState tracks one skill on an entity.
type SkillState struct {
	SkillID  string  `json:"skillId"`
	Name     string  `json:"name"`
	Unlocked bool    `json:"unlocked"`
	Mastery  float64 `json:"mastery"`
}

// DeedMemory is an immutable record of a deed as one entity remembers it.
type DeedMemory struct {
	DeedID          string      `json:"deedId"`
	ActorEntityID   string      `json:"actorEntityId"`
	SubjectEntityID string      `json:"subjectEntityId"`
	Summary         string      `json:"summary"`
	CanonicalText   string      `json:"canonicalText"`
	SourceAction    string      `json:"sourceAction"`
	TurnIndex       int         `json:"turnIndex"`
	Depth           int         `json:"depth"`
	RoomID          string      `json:"roomId"`
	Tags            []string    `json:"tags"`
	BeliefState     BeliefState `json:"beliefState"`
	SourceEntityID  string      `json:"sourceEntityId"`
	Confidence      float64     `json:"confidence"`
	TraitDelta      Vector      `json:"traitDelta"`
	FeatureDelta    Vector      `json:"featureDelta"`
	Vector          []float64   `json:"vector"`
}

// Rumor is a belief-carrying copy of a deed summary.
type Rumor struct {
	RumorID         string      `json:"rumorId"`
	SourceEntityID  string      `json:"sourceEntityId"`
	ActorEntityID   string      `json:"actorEntityId"`
	SubjectEntityID string      `json:"subjectEntityId"`
	Summary         string      `json:"summary"`
	BeliefState     BeliefState `json:"beliefState"`
	Confidence      float64     `json:"confidence"`
	TurnIndex       int         `json:"turnIndex"`
}

// ActiveEffect is a timed modifier on an entity.
type ActiveEffect struct {
	EffectID       string `json:"effectId"`
	Name           string `json:"name"`
	TraitDelta     Vector `json:"traitDelta"`
	FeatureDelta   Vector `json:"featureDelta"`
	TurnsRemaining int    `json:"turnsRemaining"`
}

// Entity is the full state of one actor.
type Entity struct {
	ID                   string                `json:"entityId"`
	Name                 string                `json:"name"`
	IsPlayer             bool                  `json:"isPlayer"`
	Kind                 Kind                  `json:"entityKind"`
	Depth                int                   `json:"depth"`
	RoomID               string                `json:"roomId"`
	Traits               Vector                `json:"traits"`
	Attributes           Attributes            `json:"attributes"`
	Features             Vector                `json:"features"`
	Faction              string                `json:"faction"`
	Reputation           int                   `json:"reputation"`
	ArchetypeHeading     string                `json:"archetypeHeading"`
	BaseLevel            int                   `json:"baseLevel"`
	XP                   int                   `json:"xp"`
	Health               int                   `json:"health"`
	Energy               float64               `json:"energy"`
	Inventory            []ItemInstance        `json:"inventory"`
	Skills               map[string]SkillState `json:"skills"`
	Deeds                []DeedMemory          `json:"deeds"`
	Rumors               []Rumor               `json:"rumors"`
	Effects              []ActiveEffect        `json:"effects"`
	CompanionTo          string                `json:"companionTo,omitempty"`
	EquippedWeaponItemID string                `json:"equippedWeaponItemId,omitempty"`
}

// IsAlive reports whether the entity still has health.
func (e *Entity) IsAlive() bool {
	return e.Health > 0
}

// IsHostile reports whether the entity is a boss or spawned hostile.
func (e *Entity) IsHostile() bool {
	return e.Kind == KindHostile || e.Kind == KindBoss
}

// Level derives the current level from base level and experience.
func (e *Entity) Level(baseXPPerLevel int) int {
	if baseXPPerLevel <= 0 {
		return e.BaseLevel
	}
	return e.BaseLevel + e.XP/baseXPPerLevel
}

// SkillUnlocked reports whether skillID is unlocked.
func (e *Entity) SkillUnlocked(skillID string) bool {
	state, ok := e.Skills[skillID]
	return ok && state.Unlocked
}

// UnlockedSkillIDs returns the unlocked skill ids in sorted order.
func (e *Entity) UnlockedSkillIDs() []string {
	ids := make([]string, 0, len(e.Skills))
	for id, state := range e.Skills {
		if state.Unlocked {
			ids = append(ids, id)
		}
	}
	sortStrings(ids)
	return ids
}

// HasItemTag reports whether any carried item has tag.
func (e *Entity) HasItemTag(tag string) bool {
	for _, item := range e.Inventory {
		if item.HasTag(tag) {
			return true
		}
	}
	return false
}

// FindItem returns the index of the item whose id or name matches ref,
// case-insensitively for names, or -1.
func (e *Entity) FindItem(ref string) int {
	for i, item := range e.Inventory {
		if item.ItemID == ref {
			return i
		}
	}
	for i, item := range e.Inventory {
		if strings.EqualFold(item.Name, ref) {
			return i
		}
	}
	return -1
}

// RemoveItem removes and returns the item at index. Unequips it if needed.
func (e *Entity) RemoveItem(index int) ItemInstance {
	item := e.Inventory[index]
	e.Inventory = append(e.Inventory[:index:index], e.Inventory[index+1:]...)
	if e.EquippedWeaponItemID == item.ItemID {
		e.EquippedWeaponItemID = ""
	}
	return item
}

// EquippedWeapon returns the equipped weapon, if any.
func (e *Entity) EquippedWeapon() (ItemInstance, bool) {
	if e.EquippedWeaponItemID == "" {
		return ItemInstance{}, false
	}
	for _, item := range e.Inventory {
		if item.ItemID == e.EquippedWeaponItemID {
			return item, true
		}
	}
	return ItemInstance{}, false
}

// ApplyTraitDelta adds delta to the traits, clamping each to [low, high].
func (e *Entity) ApplyTraitDelta(delta Vector, low, high float64) {
	for k, value := range delta {
		if !IsTrait(k) {
			continue
		}
		e.Traits[k] = Clamp(e.Traits[k]+value, low, high)
	}
}

// ApplyFeatureDelta adds delta to the feature accumulators.
func (e *Entity) ApplyFeatureDelta(delta Vector) {
	for k, value := range delta {
		if !IsFeature(k) {
			continue
		}
		e.Features[k] += value
	}
}
