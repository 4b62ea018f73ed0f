package engine

import (
	"fmt"

	"github.com/KirkDiggler/dungeonbreak/internal/entities"
	"github.com/KirkDiggler/dungeonbreak/internal/world"
)

// Blocked reasons reported by availability checks.
const (
	ReasonNeedTrainingRoom    = "Need training room"
	ReasonNeedSomeoneNearby   = "Need someone nearby"
	ReasonNeedEnemyTarget     = "Need an enemy target"
	ReasonNeedEncounter       = "Need an active encounter"
	ReasonNeedFleeDirection   = "Need flee direction"
	ReasonMissingOptionID     = "Missing option id"
	ReasonOptionUnavailable   = "Dialogue option unavailable"
	ReasonNeedEffort          = "Need more Effort"
	ReasonNeedShadowHand      = "Need shadow_hand"
	ReasonNeedTarget          = "Need target"
	ReasonTargetNoLoot        = "Target has no loot"
	ReasonCompanionSlotFilled = "Companion slot already filled"
	ReasonFactionRefuses      = "Target faction refuses companionship"
	ReasonMurderNeedsEnemy    = "Need enemy target"
	ReasonMurderTraitGate     = "Trait gate failed (Survival too low)"
	ReasonMurderFactionGate   = "Faction/reputation gate failed"
	ReasonPlayerOnly          = "Player action only"
	ReasonMissingItem         = "Missing item"
	ReasonNotEquippable       = "Item is not equippable"
	ReasonNeedRuneForge       = "Need rune forge room"
	ReasonMissingItemID       = "Missing item id"
	ReasonNotSold             = "Item not sold at rune forge"
	ReasonNeedCurrency        = "Need currency"
	ReasonMissingSkillID      = "Missing skill id"
	ReasonEvolveUnavailable   = "Evolution unavailable"
)

const (
	murderSurvivalGate   = 0.2
	murderReputationGate = -6
	shadowHandSkill      = "shadow_hand"
	npcSpeakText         = "I keep moving."
)

var recruitRefusingFactions = []string{FactionLaughingFace, FactionLegion}

func (e *Engine) canEscape(actor *entities.Entity, direction string) bool {
	d := e.state.Dungeon
	return actor.IsPlayer && direction == world.Up && actor.Depth == d.EscapeDepth && actor.RoomID == d.EscapeRoomID
}

// step resolves a move for actor. Hostiles and bosses never enter a rune
// forge.
func (e *Engine) step(actor *entities.Entity, direction string) (world.Exit, bool) {
	var blockedFeatures []string
	if actor.IsHostile() {
		blockedFeatures = append(blockedFeatures, world.FeatureRuneForge)
	}
	return e.state.Dungeon.Step(actor.Depth, actor.RoomID, direction, blockedFeatures...)
}

// moveDirections lists the exits of room, plus the escape route when the
// actor stands on it.
func (e *Engine) moveDirections(actor *entities.Entity, room *world.Room) []string {
	dirs := room.ExitDirections()
	if e.canEscape(actor, world.Up) {
		if _, ok := room.ExitTo(world.Up); !ok {
			dirs = append(dirs, world.Up)
		}
	}
	return dirs
}

// nearby returns the living entities sharing actor's room, in id order.
func (e *Engine) nearby(actor *entities.Entity) []*entities.Entity {
	out := []*entities.Entity{}
	for _, id := range e.sortedEntityIDs() {
		other := e.state.Entities[id]
		if other.ID == actor.ID || !other.IsAlive() {
			continue
		}
		if other.Depth == actor.Depth && other.RoomID == actor.RoomID {
			out = append(out, other)
		}
	}
	return out
}

func isEnemy(a, b *entities.Entity) bool {
	switch {
	case a.ID == b.ID:
		return false
	case a.Faction == FactionParty && b.Faction == FactionParty:
		return false
	case a.CompanionTo == b.ID || b.CompanionTo == a.ID:
		return false
	}
	return a.Faction != b.Faction
}

func (e *Engine) enemiesNearby(actor *entities.Entity, nearby []*entities.Entity) []*entities.Entity {
	out := []*entities.Entity{}
	for _, other := range nearby {
		if isEnemy(actor, other) {
			out = append(out, other)
		}
	}
	return out
}

// resolveTarget picks requested when it is nearby (and an enemy if
// enemyOnly), otherwise the first nearby match.
func (e *Engine) resolveTarget(actor *entities.Entity, nearby []*entities.Entity, requested string, enemyOnly bool) *entities.Entity {
	for _, other := range nearby {
		if requested != "" && other.ID != requested {
			continue
		}
		if enemyOnly && !isEnemy(actor, other) {
			continue
		}
		return other
	}
	return nil
}

func (e *Engine) companionCount(actor *entities.Entity) int {
	n := 0
	for _, other := range e.state.Entities {
		if other.CompanionTo == actor.ID && other.IsAlive() {
			n++
		}
	}
	return n
}

func (e *Engine) soldAtRuneForge(itemID string) bool {
	for _, id := range e.catalog.RuneForgeOffers() {
		if id == itemID {
			return true
		}
	}
	return false
}

// availability evaluates the gates of one action without mutating state.
func (e *Engine) availability(actor *entities.Entity, action Action) ActionAvailability {
	return e.gate(actor, action, e.nearby(actor))
}

func (e *Engine) gate(actor *entities.Entity, action Action, nearby []*entities.Entity) ActionAvailability {
	reasons := e.blockedReasons(actor, action, nearby)
	return ActionAvailability{
		ActionType:     action.Type(),
		Label:          string(action.Type()),
		Available:      len(reasons) == 0,
		BlockedReasons: reasons,
		Payload:        action.payload(),
		action:         action,
	}
}

func (e *Engine) blockedReasons(actor *entities.Entity, action Action, nearby []*entities.Entity) []string {
	reasons := []string{}
	room := e.room(actor)

	switch a := action.(type) {
	case Move:
		if !e.canEscape(actor, a.Direction) {
			if _, ok := e.step(actor, a.Direction); !ok {
				reasons = append(reasons, WarnMoveBlocked)
			}
		}
	case Train:
		if room.Feature != world.FeatureTraining {
			reasons = append(reasons, ReasonNeedTrainingRoom)
		}
	case Talk:
		if len(nearby) == 0 {
			reasons = append(reasons, ReasonNeedSomeoneNearby)
		}
	case Fight:
		if e.resolveTarget(actor, nearby, a.TargetID, true) == nil {
			reasons = append(reasons, ReasonNeedEnemyTarget)
		}
	case Flee:
		switch {
		case len(e.enemiesNearby(actor, nearby)) == 0:
			reasons = append(reasons, ReasonNeedEncounter)
		case a.Direction == "":
			reasons = append(reasons, ReasonNeedFleeDirection)
		default:
			if _, ok := e.step(actor, a.Direction); !ok {
				reasons = append(reasons, WarnFleeBlocked)
			}
		}
	case ChooseDialogue:
		if a.OptionID == "" {
			reasons = append(reasons, ReasonMissingOptionID)
			break
		}
		found := false
		for _, option := range e.dialogue.AvailableOptions(actor, room) {
			if option.OptionID == a.OptionID {
				found = true
				break
			}
		}
		if !found {
			reasons = append(reasons, ReasonOptionUnavailable)
		}
	case LiveStream:
		if actor.Features[entities.FeatureEffort] < e.streamEffort(a) {
			reasons = append(reasons, ReasonNeedEffort)
		}
	case Steal:
		if !actor.SkillUnlocked(shadowHandSkill) {
			reasons = append(reasons, ReasonNeedShadowHand)
		}
		target := e.resolveTarget(actor, nearby, a.TargetID, false)
		if target == nil {
			reasons = append(reasons, ReasonNeedTarget)
		} else if lootIndex(target) < 0 {
			reasons = append(reasons, ReasonTargetNoLoot)
		}
	case Recruit:
		if e.companionCount(actor) >= e.state.Config.CompanionsMax {
			reasons = append(reasons, ReasonCompanionSlotFilled)
		}
		target := e.resolveTarget(actor, nearby, a.TargetID, false)
		if target == nil {
			reasons = append(reasons, ReasonNeedTarget)
		} else if containsString(recruitRefusingFactions, target.Faction) {
			reasons = append(reasons, ReasonFactionRefuses)
		}
	case Murder:
		if e.resolveTarget(actor, nearby, a.TargetID, true) == nil {
			reasons = append(reasons, ReasonMurderNeedsEnemy)
		}
		if actor.Traits[entities.TraitSurvival] < murderSurvivalGate {
			reasons = append(reasons, ReasonMurderTraitGate)
		}
		if actor.Faction != FactionLaughingFace && actor.Reputation > murderReputationGate {
			reasons = append(reasons, ReasonMurderFactionGate)
		}
	case EvolveSkill:
		reasons = append(reasons, e.evolveReasons(actor, room, a.SkillID)...)
	case UseItem, DropItem:
		reasons = append(reasons, itemReasons(actor, itemRef(a), false)...)
	case EquipItem:
		reasons = append(reasons, itemReasons(actor, a.ItemID, true)...)
	case Purchase:
		switch {
		case !actor.IsPlayer:
			reasons = append(reasons, ReasonPlayerOnly)
		case room.Feature != world.FeatureRuneForge:
			reasons = append(reasons, ReasonNeedRuneForge)
		case a.ItemID == "":
			reasons = append(reasons, ReasonMissingItemID)
		case !e.soldAtRuneForge(a.ItemID):
			reasons = append(reasons, ReasonNotSold)
		case currencyCount(actor) < purchaseCurrencyFee:
			reasons = append(reasons, ReasonNeedCurrency)
		}
	case ReEquip:
		switch {
		case !actor.IsPlayer:
			reasons = append(reasons, ReasonPlayerOnly)
		case room.Feature != world.FeatureRuneForge:
			reasons = append(reasons, ReasonNeedRuneForge)
		case a.ItemID == "":
			reasons = append(reasons, ReasonMissingItemID)
		default:
			reasons = append(reasons, itemReasons(actor, a.ItemID, true)...)
		}
	}
	return reasons
}

func itemRef(action Action) string {
	switch a := action.(type) {
	case UseItem:
		return a.ItemID
	case DropItem:
		return a.ItemID
	}
	return ""
}

func itemReasons(actor *entities.Entity, ref string, mustEquip bool) []string {
	if !actor.IsPlayer {
		return []string{ReasonPlayerOnly}
	}
	idx := actor.FindItem(ref)
	if ref == "" || idx < 0 {
		return []string{ReasonMissingItem}
	}
	if mustEquip && !isEquippable(actor.Inventory[idx]) {
		return []string{ReasonNotEquippable}
	}
	return nil
}

func (e *Engine) evolveReasons(actor *entities.Entity, room *world.Room, skillID string) []string {
	if skillID == "" {
		return []string{ReasonMissingSkillID}
	}
	for _, row := range e.skills.AvailableEvolutions(actor, room) {
		if row.SkillID != skillID {
			continue
		}
		if row.Available {
			return nil
		}
		if len(row.BlockedReasons) > 0 {
			return row.BlockedReasons
		}
		break
	}
	return []string{ReasonEvolveUnavailable}
}

// AvailableActions lists every action the entity could attempt this turn,
// with its gate result. A nil entity means the player. It never mutates
// state.
func (e *Engine) AvailableActions(entity *entities.Entity) []ActionAvailability {
	if entity == nil {
		entity = e.Player()
	}
	room := e.room(entity)
	nearby := e.nearby(entity)
	rows := []ActionAvailability{}
	add := func(label string, action Action) {
		row := e.gate(entity, action, nearby)
		row.Label = label
		rows = append(rows, row)
	}

	for _, dir := range e.moveDirections(entity, room) {
		add("go "+dir, Move{Direction: dir})
	}
	add("train", Train{})
	add("rest", Rest{})
	add("talk", Talk{})
	add("search", Search{})
	add("say <text>", Speak{IntentText: speakFallbackText})
	add("fight", Fight{})
	add(fmt.Sprintf("stream (%.0f effort)", e.streamEffort(LiveStream{})), LiveStream{})
	add("steal", Steal{})
	add("recruit", Recruit{})
	add("murder", Murder{})

	if len(e.enemiesNearby(entity, nearby)) > 0 {
		for _, dir := range room.ExitDirections() {
			add("flee "+dir, Flee{Direction: dir})
		}
	}

	if options := e.dialogue.AvailableOptions(entity, room); len(options) > 0 {
		payloadOptions := make([]map[string]any, 0, len(options))
		for _, option := range options {
			payloadOptions = append(payloadOptions, map[string]any{"optionId": option.OptionID, "label": option.Label})
		}
		row := e.gate(entity, ChooseDialogue{OptionID: options[0].OptionID}, nearby)
		row.Label = "choose " + options[0].Label
		row.Payload["options"] = payloadOptions
		rows = append(rows, row)
	}

	for _, evolution := range e.skills.AvailableEvolutions(entity, room) {
		add("evolve "+evolution.SkillID, EvolveSkill{SkillID: evolution.SkillID})
	}

	if entity.IsPlayer {
		if room.Feature == world.FeatureRuneForge {
			for _, itemID := range e.catalog.RuneForgeOffers() {
				add("purchase "+itemID, Purchase{ItemID: itemID})
			}
			for _, item := range entity.Inventory {
				add("re-equip "+item.Name, ReEquip{ItemID: item.ItemID})
			}
		}
		for _, item := range entity.Inventory {
			add("use "+item.Name, UseItem{ItemID: item.ItemID})
			add("equip "+item.Name, EquipItem{ItemID: item.ItemID})
			add("drop "+item.Name, DropItem{ItemID: item.ItemID})
		}
	}
	return rows
}

func containsString(values []string, value string) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}
