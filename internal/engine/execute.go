package engine

import (
	"fmt"
	"strings"

	"github.com/KirkDiggler/dungeonbreak/internal/combat"
	"github.com/KirkDiggler/dungeonbreak/internal/embedding"
	"github.com/KirkDiggler/dungeonbreak/internal/entities"
	"github.com/KirkDiggler/dungeonbreak/internal/narrative"
	"github.com/KirkDiggler/dungeonbreak/internal/world"
)

// Warnings recorded on events when an action resolves to a no-op.
const (
	WarnMoveBlocked         = "move_blocked"
	WarnFleeBlocked         = "flee_blocked"
	WarnTalkNoTarget        = "talk_no_target"
	WarnSearchEmpty         = "search_empty"
	WarnFightNoTarget       = "fight_no_target"
	WarnStealNoTarget       = "steal_no_target"
	WarnStealNoLoot         = "steal_no_loot"
	WarnRecruitNoTarget     = "recruit_no_target"
	WarnMurderNoTarget      = "murder_no_target"
	WarnItemMissing         = "item_missing"
	WarnItemNotEquippable   = "item_not_equippable"
	WarnUnknownPurchaseItem = "unknown_purchase_item"
	WarnInsufficientFunds   = "insufficient_currency"
	WarnCombatUnavailable   = "combat_unavailable"
	WarnUnknownAction       = "unknown_action"
)

const (
	defaultEffortCost   = 10
	rumorBaseStream     = 0.65
	rumorBaseDefault    = 0.45
	speakFallbackText   = "..."
	purchaseCurrencyFee = 1
)

// outcome is what one action did, before the shared pipeline runs.
// Deltas are applied by executeAction, never by perform.
type outcome struct {
	message          string
	warnings         []string
	traitDelta       entities.Vector
	featureDelta     entities.Vector
	metadata         map[string]any
	subject          *entities.Entity
	foundTags        []string
	chapterCompleted int
	escaped          bool
}

func blocked(message, warning string, delta entities.Vector) *outcome {
	return &outcome{message: message, warnings: []string{warning}, traitDelta: delta}
}

// executeAction runs one action through availability, effect, room
// influence, skill unlocks, deed projection, rumors, logging, quests and
// cutscenes.
func (e *Engine) executeAction(actor *entities.Entity, action Action, allowCutscenes bool) {
	actionType := string(action.Type())
	availability := e.availability(actor, action)
	if !availability.Available {
		e.record(actor, actionType,
			fmt.Sprintf("%s cannot use '%s' right now.", actor.Name, actionType),
			availability.BlockedReasons, nil, nil,
			map[string]any{"blockedReasons": availability.BlockedReasons})
		e.state.ActionHistory = append(e.state.ActionHistory, actionType)
		return
	}

	cfg := &e.state.Config
	traitsBefore := actor.Traits.Clone()
	featuresBefore := actor.Features.Clone()
	archetypeBefore := actor.ArchetypeHeading
	nearby := e.nearby(actor)
	// influence and unlocks read the room the action started in
	room := e.room(actor)

	out := e.perform(actor, action, nearby)
	if out.metadata == nil {
		out.metadata = map[string]any{}
	}
	actor.ApplyTraitDelta(out.traitDelta, cfg.MinTraitValue, cfg.MaxTraitValue)
	actor.ApplyFeatureDelta(out.featureDelta)
	e.recordDialogueProgress(actor, action, out)

	influence := embedding.CapDeltas(
		room.EffectiveVector().Scale(e.catalog.Contracts.RoomInfluenceScale),
		entities.TraitNames,
		e.catalog.Contracts.DeedProjection,
	)
	actor.ApplyTraitDelta(influence, cfg.MinTraitValue, cfg.MaxTraitValue)

	unlocked := e.skills.UnlockNewSkills(actor, room, nearby)
	unlockedIDs := make([]string, 0, len(unlocked))
	for _, def := range unlocked {
		unlockedIDs = append(unlockedIDs, def.SkillID)
		if e.state.RunBranchChoice == "" && (def.SkillID == runBranchAppraise || def.SkillID == runBranchXray) {
			e.state.RunBranchChoice = def.SkillID
		}
	}

	subject := out.subject
	if subject == nil {
		subject = actor
	}
	deed := e.applyDeedSemantics(actor, &narrative.Deed{
		ActorID:   actor.ID,
		ActorName: actor.Name,
		SubjectID: subject.ID,
		DeedType:  actionType,
		Summary:   out.message,
		Tags:      out.foundTags,
	})

	switch action.Type() {
	case ActionLiveStream:
		e.spreadRumor(actor, subject, deed, rumorBaseStream)
	case ActionMurder, ActionFight, ActionSearch:
		e.spreadRumor(actor, subject, deed, rumorBaseDefault)
	case ActionTalk:
		e.crossPollinate(actor, nearby)
	}

	e.refreshArchetype(actor)
	out.metadata["unlockedSkills"] = unlockedIDs
	out.metadata["archetypeBefore"] = archetypeBefore
	out.metadata["archetypeAfter"] = actor.ArchetypeHeading

	e.record(actor, actionType, out.message, out.warnings,
		entities.Diff(traitsBefore, actor.Traits),
		entities.Diff(featuresBefore, actor.Features),
		out.metadata)
	e.state.ActionHistory = append(e.state.ActionHistory, actionType)

	if out.escaped {
		e.state.Escaped = true
	}
	e.updateQuests(actor, actionType, out.chapterCompleted, out.escaped)

	if allowCutscenes && actor.IsPlayer {
		hits, seen := e.cutscenes.Trigger(&narrative.CutsceneContext{
			Actor:            actor,
			ActionType:       actionType,
			FoundItemTags:    out.foundTags,
			UnlockedSkillIDs: unlockedIDs,
			ChapterCompleted: out.chapterCompleted,
			Escaped:          out.escaped,
		}, e.state.SeenCutscenes)
		e.state.SeenCutscenes = seen
		for _, hit := range hits {
			e.record(actor, EventCutscene, fmt.Sprintf("%s: %s", hit.Title, hit.Text), nil, nil, nil,
				map[string]any{"cutsceneId": hit.CutsceneID, "title": hit.Title})
		}
	}
}

// perform applies the action-specific effect. The switch covers every
// Action variant.
func (e *Engine) perform(actor *entities.Entity, action Action, nearby []*entities.Entity) *outcome {
	switch a := action.(type) {
	case Move:
		return e.performMove(actor, a)
	case Train:
		return e.performTrain(actor)
	case Rest:
		return e.performRest(actor)
	case Talk:
		return e.performTalk(actor, a, nearby)
	case Search:
		return e.performSearch(actor)
	case Speak:
		return e.performSpeak(actor, a)
	case Fight:
		return e.performFight(actor, a, nearby)
	case Flee:
		return e.performFlee(actor, a)
	case ChooseDialogue:
		return e.performChooseDialogue(actor, a)
	case LiveStream:
		return e.performLiveStream(actor, a)
	case Steal:
		return e.performSteal(actor, a, nearby)
	case Recruit:
		return e.performRecruit(actor, a, nearby)
	case Murder:
		return e.performMurder(actor, a, nearby)
	case EvolveSkill:
		return e.performEvolve(actor, a)
	case UseItem:
		return e.performUseItem(actor, a)
	case EquipItem:
		return e.performEquipItem(actor, a)
	case DropItem:
		return e.performDropItem(actor, a)
	case Purchase:
		return e.performPurchase(actor, a)
	case ReEquip:
		return e.performReEquip(actor, a)
	}
	return blocked(fmt.Sprintf("Unknown action %s.", action.Type()), WarnUnknownAction, nil)
}

func (e *Engine) performMove(actor *entities.Entity, a Move) *outcome {
	if e.canEscape(actor, a.Direction) {
		return &outcome{
			message: fmt.Sprintf("%s climbs %s through the escape gate and leaves the dungeon.", actor.Name, a.Direction),
			metadata: map[string]any{
				"direction": a.Direction,
				"fromDepth": actor.Depth,
				"toDepth":   0,
			},
			chapterCompleted: e.chapterFor(actor.Depth),
			escaped:          true,
		}
	}
	exit, ok := e.step(actor, a.Direction)
	if !ok {
		return blocked(fmt.Sprintf("%s cannot go %s from here.", actor.Name, a.Direction), WarnMoveBlocked, nil)
	}
	fromDepth := actor.Depth
	actor.Depth, actor.RoomID = exit.Depth, exit.RoomID

	out := &outcome{
		message: fmt.Sprintf("%s moves %s to %s.", actor.Name, a.Direction, exit.RoomID),
		metadata: map[string]any{
			"direction": a.Direction,
			"fromDepth": fromDepth,
			"toDepth":   exit.Depth,
		},
	}
	if fromDepth > exit.Depth {
		out.chapterCompleted = e.chapterFor(fromDepth)
	}
	return out
}

func (e *Engine) performTrain(actor *entities.Entity) *outcome {
	f := e.catalog.Formula(string(ActionTrain))
	actor.Attributes.Might++
	actor.Attributes.Willpower++
	actor.Energy = entities.Clamp(actor.Energy+f.EnergyDelta, 0, 1)
	actor.XP += f.XPDelta
	return &outcome{
		message:      fmt.Sprintf("%s drills forms and gains strength.", actor.Name),
		traitDelta:   f.TraitDelta,
		featureDelta: f.FeatureDelta,
	}
}

func (e *Engine) performRest(actor *entities.Entity) *outcome {
	f := e.catalog.Formula(string(ActionRest))
	bonus := f.EnergyDeltaBase
	if e.room(actor).Feature == world.FeatureRest {
		bonus = f.EnergyDeltaRestRoom
	}
	actor.Energy = entities.Clamp(actor.Energy+bonus, 0, 1)
	return &outcome{
		message:      fmt.Sprintf("%s takes a breath and recovers energy.", actor.Name),
		traitDelta:   f.TraitDelta,
		featureDelta: f.FeatureDelta,
		metadata:     map[string]any{"restBonus": bonus},
	}
}

func (e *Engine) performTalk(actor *entities.Entity, a Talk, nearby []*entities.Entity) *outcome {
	f := e.catalog.Formula(string(ActionTalk))
	target := e.resolveTarget(actor, nearby, a.TargetID, false)
	if target == nil {
		return blocked(fmt.Sprintf("%s speaks into the dark. No one answers.", actor.Name), WarnTalkNoTarget, f.NoTargetTraitDelta)
	}
	return &outcome{
		message:      fmt.Sprintf("%s talks with %s and trades rumors.", actor.Name, target.Name),
		traitDelta:   f.TraitDelta,
		featureDelta: f.FeatureDelta,
		metadata: map[string]any{
			"targetId":    target.ID,
			"optionLabel": "talk",
			"clusterId":   "social_cluster",
		},
		subject: target,
	}
}

func (e *Engine) performSearch(actor *entities.Entity) *outcome {
	item := e.room(actor).TakeFirstPresentItem()
	if item == nil {
		f := e.catalog.Formula("search_empty")
		return blocked(fmt.Sprintf("%s searches the room but finds nothing new.", actor.Name), WarnSearchEmpty, f.TraitDelta)
	}
	actor.Inventory = append(actor.Inventory, item.Instance())
	return &outcome{
		message:    fmt.Sprintf("%s finds %s.", actor.Name, item.Name),
		traitDelta: item.VectorDelta,
		metadata:   map[string]any{"itemId": item.ItemID, "rarity": item.Rarity},
		foundTags:  append([]string(nil), item.Tags...),
	}
}

func (e *Engine) performSpeak(actor *entities.Entity, a Speak) *outcome {
	text := strings.TrimSpace(a.IntentText)
	if text == "" {
		text = speakFallbackText
	}
	traitDelta, featureDelta := e.deeds.ProjectIntent(text)
	return &outcome{
		message:      fmt.Sprintf("%s speaks: %q", actor.Name, text),
		traitDelta:   traitDelta,
		featureDelta: featureDelta,
		metadata:     map[string]any{"intentText": text},
	}
}

func (e *Engine) performFight(actor *entities.Entity, a Fight, nearby []*entities.Entity) *outcome {
	f := e.catalog.Formula(string(ActionFight))
	target := e.resolveTarget(actor, nearby, a.TargetID, true)
	if target == nil {
		return blocked(fmt.Sprintf("%s has nobody to fight here.", actor.Name), WarnFightNoTarget, nil)
	}
	weaponName, power := selectWeapon(actor)
	result, err := e.resolver.Spar(&combat.SparInput{
		Attacker:    actor,
		Defender:    target,
		WeaponName:  weaponName,
		WeaponPower: power,
	})
	if err != nil {
		return blocked(fmt.Sprintf("%s cannot land a blow on %s.", actor.Name, target.Name), WarnCombatUnavailable, nil)
	}
	actor.XP += f.XPDelta
	return &outcome{
		message:      result.Message,
		traitDelta:   f.TraitDelta,
		featureDelta: f.FeatureDelta,
		metadata: map[string]any{
			"targetId": target.ID,
			"damage":   result.Damage,
			"weapon":   weaponName,
		},
		subject: target,
	}
}

func (e *Engine) performFlee(actor *entities.Entity, a Flee) *outcome {
	exit, ok := e.step(actor, a.Direction)
	if !ok {
		return blocked(fmt.Sprintf("%s cannot flee %s from here.", actor.Name, a.Direction), WarnFleeBlocked, nil)
	}
	f := e.catalog.Formula(string(ActionFlee))
	fromRoom, fromDepth := actor.RoomID, actor.Depth
	actor.Depth, actor.RoomID = exit.Depth, exit.RoomID

	out := &outcome{
		message:      fmt.Sprintf("%s flees %s to %s.", actor.Name, a.Direction, exit.RoomID),
		traitDelta:   f.TraitDelta,
		featureDelta: f.FeatureDelta,
		metadata: map[string]any{
			"direction":  a.Direction,
			"fromRoomId": fromRoom,
			"fromDepth":  fromDepth,
			"toDepth":    exit.Depth,
		},
	}
	if fromDepth > exit.Depth {
		out.chapterCompleted = e.chapterFor(fromDepth)
	}
	return out
}

func (e *Engine) performChooseDialogue(actor *entities.Entity, a ChooseDialogue) *outcome {
	choice := e.dialogue.Choose(actor, e.room(actor), a.OptionID)
	out := &outcome{
		message:    choice.Message,
		warnings:   choice.Warnings,
		traitDelta: choice.TraitDelta,
		metadata: map[string]any{
			"optionId":     choice.OptionID,
			"takenItemId":  nil,
			"optionLabel":  choice.OptionLabel,
			"optionLine":   choice.OptionLine,
			"clusterId":    choice.ClusterID,
			"nextOptionId": nil,
		},
	}
	if choice.NextOptionID != "" {
		out.metadata["nextOptionId"] = choice.NextOptionID
	}
	if choice.TakenItem != nil {
		actor.Inventory = append(actor.Inventory, choice.TakenItem.Instance())
		out.metadata["takenItemId"] = choice.TakenItem.ItemID
		out.foundTags = []string{entities.TagTreasure}
	}
	return out
}

func (e *Engine) performLiveStream(actor *entities.Entity, a LiveStream) *outcome {
	f := e.catalog.Formula(string(ActionLiveStream))
	effort := e.streamEffort(a)
	novelty := 1.0
	if history := e.state.ActionHistory; len(history) > 0 && history[len(history)-1] == string(ActionLiveStream) {
		novelty = 0.75
	}
	room := e.room(actor)
	risk := 0.35
	switch room.Feature {
	case world.FeatureCombat:
		risk = 1
	case world.FeatureTreasure:
		risk = 0.6
	}

	fame := narrative.ComputeFameGain(narrative.FameInput{
		CurrentFame:       actor.Features[entities.FeatureFame],
		EffortSpent:       effort,
		RoomVector:        room.EffectiveVector(),
		ActionNovelty:     novelty,
		RiskLevel:         risk,
		Momentum:          actor.Features[entities.FeatureMomentum],
		HasBroadcastSkill: actor.SkillUnlocked("battle_broadcast"),
	})

	featureDelta := f.FeatureDelta.Clone()
	featureDelta[entities.FeatureFame] += fame.Gain
	featureDelta[entities.FeatureEffort] -= min(effort, actor.Features[entities.FeatureEffort])

	return &outcome{
		message:      fmt.Sprintf("%s goes live and gains %.2f Fame.", actor.Name, fame.Gain),
		traitDelta:   f.TraitDelta,
		featureDelta: featureDelta,
		metadata:     map[string]any{"fame": fame.Gain, "effort": effort},
	}
}

func (e *Engine) streamEffort(a LiveStream) float64 {
	if a.Effort > 0 {
		return a.Effort
	}
	if cost := e.catalog.Formula(string(ActionLiveStream)).EffortCost; cost > 0 {
		return cost
	}
	return defaultEffortCost
}

func (e *Engine) performSteal(actor *entities.Entity, a Steal, nearby []*entities.Entity) *outcome {
	target := e.resolveTarget(actor, nearby, a.TargetID, false)
	if target == nil {
		return blocked(fmt.Sprintf("%s finds no valid target to steal from.", actor.Name), WarnStealNoTarget, nil)
	}
	idx := lootIndex(target)
	if idx < 0 {
		return blocked(fmt.Sprintf("%s has nothing worth stealing.", target.Name), WarnStealNoLoot, nil)
	}
	f := e.catalog.Formula(string(ActionSteal))
	item := target.RemoveItem(idx)
	actor.Inventory = append(actor.Inventory, item)
	return &outcome{
		message:      fmt.Sprintf("%s steals %s from %s.", actor.Name, item.Name, target.Name),
		traitDelta:   f.TraitDelta,
		featureDelta: f.FeatureDelta,
		metadata:     map[string]any{"targetId": target.ID, "itemId": item.ItemID},
		foundTags:    append([]string(nil), item.Tags...),
		subject:      target,
	}
}

func (e *Engine) performRecruit(actor *entities.Entity, a Recruit, nearby []*entities.Entity) *outcome {
	target := e.resolveTarget(actor, nearby, a.TargetID, false)
	if target == nil {
		return blocked(fmt.Sprintf("%s has no one to recruit here.", actor.Name), WarnRecruitNoTarget, nil)
	}
	f := e.catalog.Formula(string(ActionRecruit))
	target.Faction = FactionParty
	target.CompanionTo = actor.ID
	if actor.IsPlayer {
		e.state.ActiveCompanionID = target.ID
	}
	return &outcome{
		message:      fmt.Sprintf("%s joins %s as a companion.", target.Name, actor.Name),
		traitDelta:   f.TraitDelta,
		featureDelta: f.FeatureDelta,
		metadata:     map[string]any{"targetId": target.ID},
		subject:      target,
	}
}

func (e *Engine) performMurder(actor *entities.Entity, a Murder, nearby []*entities.Entity) *outcome {
	target := e.resolveTarget(actor, nearby, a.TargetID, true)
	if target == nil {
		return blocked(fmt.Sprintf("%s cannot carry out murder without a target.", actor.Name), WarnMurderNoTarget, nil)
	}
	f := e.catalog.Formula(string(ActionMurder))
	weaponName, power := selectWeapon(actor)
	result, err := e.resolver.Spar(&combat.SparInput{
		Attacker:    actor,
		Defender:    target,
		WeaponName:  weaponName,
		WeaponPower: power + 1,
		Lethal:      true,
	})
	if err != nil {
		return blocked(fmt.Sprintf("%s cannot land a blow on %s.", actor.Name, target.Name), WarnCombatUnavailable, nil)
	}
	if result.Defeated {
		target.Faction = FactionFallen
	}
	actor.Reputation += f.ReputationDelta
	actor.XP += f.XPDelta
	return &outcome{
		message:      result.Message,
		traitDelta:   f.TraitDelta,
		featureDelta: f.FeatureDelta,
		metadata: map[string]any{
			"targetId": target.ID,
			"lethal":   true,
			"damage":   result.Damage,
		},
		subject: target,
	}
}

func (e *Engine) performEvolve(actor *entities.Entity, a EvolveSkill) *outcome {
	ok, reason := e.skills.EvolveSkill(actor, e.room(actor), a.SkillID)
	if !ok {
		return &outcome{
			message:  fmt.Sprintf("%s cannot evolve %s: %s.", actor.Name, a.SkillID, reason),
			warnings: []string{reason},
			metadata: map[string]any{"skillId": a.SkillID, "reason": reason},
		}
	}
	return &outcome{
		message:  fmt.Sprintf("%s evolves skill %s.", actor.Name, a.SkillID),
		metadata: map[string]any{"skillId": a.SkillID},
	}
}

func (e *Engine) performUseItem(actor *entities.Entity, a UseItem) *outcome {
	idx := actor.FindItem(a.ItemID)
	if idx < 0 {
		return blocked(fmt.Sprintf("%s cannot find item '%s'.", actor.Name, a.ItemID), WarnItemMissing, nil)
	}
	f := e.catalog.Formula(string(ActionUseItem))
	item := actor.Inventory[idx]
	consumed := isConsumable(item)
	message := fmt.Sprintf("%s uses %s.", actor.Name, item.Name)
	if consumed {
		actor.RemoveItem(idx)
		message = fmt.Sprintf("%s uses %s and consumes it.", actor.Name, item.Name)
	}
	return &outcome{
		message:      message,
		traitDelta:   entities.Merge(item.TraitDelta, f.TraitDelta),
		featureDelta: f.FeatureDelta,
		metadata:     map[string]any{"itemId": item.ItemID, "consumed": consumed},
		foundTags:    append([]string(nil), item.Tags...),
	}
}

func (e *Engine) performEquipItem(actor *entities.Entity, a EquipItem) *outcome {
	idx := actor.FindItem(a.ItemID)
	if idx < 0 {
		return blocked(fmt.Sprintf("%s cannot find item '%s'.", actor.Name, a.ItemID), WarnItemMissing, nil)
	}
	item := actor.Inventory[idx]
	if !isEquippable(item) {
		return blocked(fmt.Sprintf("%s cannot be equipped.", item.Name), WarnItemNotEquippable, nil)
	}
	f := e.catalog.Formula(string(ActionEquipItem))
	actor.EquippedWeaponItemID = item.ItemID
	return &outcome{
		message:      fmt.Sprintf("%s equips %s.", actor.Name, item.Name),
		traitDelta:   f.TraitDelta,
		featureDelta: f.FeatureDelta,
		metadata:     map[string]any{"itemId": item.ItemID},
	}
}

func (e *Engine) performDropItem(actor *entities.Entity, a DropItem) *outcome {
	idx := actor.FindItem(a.ItemID)
	if idx < 0 {
		return blocked(fmt.Sprintf("%s cannot find item '%s'.", actor.Name, a.ItemID), WarnItemMissing, nil)
	}
	f := e.catalog.Formula(string(ActionDropItem))
	item := actor.RemoveItem(idx)
	return &outcome{
		message:      fmt.Sprintf("%s drops %s.", actor.Name, item.Name),
		traitDelta:   f.TraitDelta,
		featureDelta: f.FeatureDelta,
		metadata:     map[string]any{"itemId": item.ItemID},
	}
}

func (e *Engine) performPurchase(actor *entities.Entity, a Purchase) *outcome {
	def, ok := e.catalog.Item(a.ItemID)
	if !ok || !e.soldAtRuneForge(a.ItemID) {
		return blocked(fmt.Sprintf("Rune Forge cannot sell '%s'.", a.ItemID), WarnUnknownPurchaseItem, nil)
	}
	spent, ok := consumeCurrency(actor, purchaseCurrencyFee)
	if !ok {
		return &outcome{
			message:  fmt.Sprintf("%s lacks currency to purchase %s.", actor.Name, a.ItemID),
			warnings: []string{WarnInsufficientFunds},
			metadata: map[string]any{"itemId": a.ItemID, "required": purchaseCurrencyFee, "consumed": spent},
		}
	}
	item := e.purchasedItem(def)
	actor.Inventory = append(actor.Inventory, item)
	f := e.catalog.Formula(string(ActionPurchase))
	return &outcome{
		message:      fmt.Sprintf("%s purchases %s from the Rune Forge.", actor.Name, item.Name),
		traitDelta:   f.TraitDelta,
		featureDelta: f.FeatureDelta,
		metadata: map[string]any{
			"itemId":        item.ItemID,
			"purchasedFrom": def.ItemID,
			"currencySpent": spent,
		},
		foundTags: append([]string(nil), item.Tags...),
	}
}

func (e *Engine) performReEquip(actor *entities.Entity, a ReEquip) *outcome {
	idx := actor.FindItem(a.ItemID)
	if idx < 0 {
		return blocked(fmt.Sprintf("%s cannot re-equip missing item '%s'.", actor.Name, a.ItemID), WarnItemMissing, nil)
	}
	item := actor.Inventory[idx]
	if !isEquippable(item) {
		return blocked(fmt.Sprintf("%s cannot be re-equipped.", item.Name), WarnItemNotEquippable, nil)
	}
	f := e.catalog.Formula(string(ActionReEquip))
	actor.EquippedWeaponItemID = item.ItemID
	return &outcome{
		message:      fmt.Sprintf("%s re-equips %s at the Rune Forge.", actor.Name, item.Name),
		traitDelta:   f.TraitDelta,
		featureDelta: f.FeatureDelta,
		metadata:     map[string]any{"itemId": item.ItemID},
	}
}

// recordDialogueProgress keeps the player's dialogue ledger for talk and
// choose_dialogue turns.
func (e *Engine) recordDialogueProgress(actor *entities.Entity, action Action, out *outcome) {
	if !actor.IsPlayer {
		return
	}
	var optionID string
	label := "talk"
	switch a := action.(type) {
	case Talk:
	case ChooseDialogue:
		optionID = a.OptionID
		if choice, _ := out.metadata["optionId"].(string); choice != "" {
			optionID = choice
		}
		label, _ = out.metadata["optionLabel"].(string)
		if label == "" {
			ref := optionID
			if ref == "" {
				ref = "dialogue"
			}
			label = "choose " + ref
		}
	default:
		return
	}

	progress := &e.state.DialogueProgress
	clusterID, _ := out.metadata["clusterId"].(string)
	targetID, _ := out.metadata["targetId"].(string)
	progress.Sequence++
	progress.History = append(progress.History, DialogueEntry{
		Sequence:       progress.Sequence,
		TurnIndex:      e.state.TurnIndex + 1,
		ActionType:     string(action.Type()),
		OptionID:       optionID,
		ClusterID:      clusterID,
		Label:          label,
		ResponseText:   out.message,
		Depth:          actor.Depth,
		RoomID:         actor.RoomID,
		TargetEntityID: targetID,
	})
	if len(progress.History) > dialogueHistoryN {
		progress.History = progress.History[len(progress.History)-dialogueHistoryN:]
	}
	if optionID != "" {
		progress.LastOptionID = optionID
		progress.VisitedOptionIDs = appendUnique(progress.VisitedOptionIDs, optionID)
	}
	if clusterID != "" {
		progress.LastClusterID = clusterID
		progress.VisitedClusterIDs = appendUnique(progress.VisitedClusterIDs, clusterID)
	}
}

func appendUnique(values []string, value string) []string {
	for _, v := range values {
		if v == value {
			return values
		}
	}
	return append(values, value)
}
