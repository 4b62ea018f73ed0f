package engine

import (
	"fmt"
	"sort"

	"github.com/KirkDiggler/dungeonbreak/internal/content"
	"github.com/KirkDiggler/dungeonbreak/internal/entities"
)

// record appends one event, writes its transcript line and advances the
// turn counter.
func (e *Engine) record(actor *entities.Entity, actionType, message string, warnings []string, traitDelta, featureDelta entities.Vector, metadata map[string]any) {
	if warnings == nil {
		warnings = []string{}
	}
	if metadata == nil {
		metadata = map[string]any{}
	}
	chapter := e.chapterFor(actor.Depth)
	e.ensureChapterPages(chapter)

	e.state.EventLog = append(e.state.EventLog, GameEvent{
		TurnIndex:     e.state.TurnIndex,
		ActorID:       actor.ID,
		ActorName:     actor.Name,
		ActionType:    actionType,
		Depth:         actor.Depth,
		RoomID:        actor.RoomID,
		ChapterNumber: chapter,
		ActNumber:     e.state.Dungeon.ActForDepth(actor.Depth),
		Message:       message,
		Warnings:      warnings,
		TraitDelta:    traitDelta.Compact(),
		FeatureDelta:  featureDelta.Compact(),
		Metadata:      metadata,
	})

	line := fmt.Sprintf("[%d] %s@%s: %s", e.state.TurnIndex, actionType, actor.RoomID, message)
	pages := e.state.ChapterPages[chapter]
	pages.Chapter = append(pages.Chapter, line)
	pages.Entities[actor.ID] = append(pages.Entities[actor.ID], line)
	e.state.TurnIndex++
}

func (e *Engine) ensureChapterPages(chapter int) {
	pages, ok := e.state.ChapterPages[chapter]
	if !ok {
		pages = &ChapterPages{Chapter: []string{}, Entities: map[string][]string{}}
		e.state.ChapterPages[chapter] = pages
	}
	if pages.Entities == nil {
		pages.Entities = map[string][]string{}
	}
	for id := range e.state.Entities {
		if _, ok := pages.Entities[id]; !ok {
			pages.Entities[id] = []string{}
		}
	}
}

// updateQuests evaluates the quest rules against the player's last action.
func (e *Engine) updateQuests(actor *entities.Entity, actionType string, chapterCompleted int, escaped bool) {
	if !actor.IsPlayer {
		return
	}
	for _, def := range e.catalog.Quests {
		quest := e.state.Quests[def.QuestID]
		if quest == nil {
			continue
		}
		for _, rule := range def.ProgressRules {
			amount := max(1, rule.Amount)
			switch rule.Kind {
			case content.RuleAction:
				if rule.ActionType == actionType {
					quest.Progress += amount
				}
			case content.RuleChapterCompleted:
				if chapterCompleted > 0 {
					quest.Progress += amount
				}
			case content.RuleEscape:
				if !escaped {
					continue
				}
				if rule.SetToRequired {
					quest.Progress = quest.RequiredProgress
				} else {
					quest.Progress += amount
				}
			}
		}
		quest.Progress = min(quest.RequiredProgress, max(0, quest.Progress))
		quest.IsComplete = quest.Progress >= quest.RequiredProgress
	}
}

// processGlobalEvents fires every armed one-shot event once.
func (e *Engine) processGlobalEvents(player *entities.Entity) {
	cfg := &e.state.Config
	for _, def := range e.catalog.Events {
		if containsString(e.state.GlobalEventFlags, def.EventID) || !e.eventTriggered(def, player) {
			continue
		}
		if def.Kind == content.EventEmergent && e.rng.NextFloat() > def.Probability {
			continue
		}
		e.state.GlobalEventFlags = append(e.state.GlobalEventFlags, def.EventID)
		e.state.GlobalEnemyLevelBonus += def.GlobalEnemyLevelBonusDelta

		traitsBefore := player.Traits.Clone()
		featuresBefore := player.Features.Clone()
		player.ApplyTraitDelta(def.TraitDelta, cfg.MinTraitValue, cfg.MaxTraitValue)
		player.ApplyFeatureDelta(def.FeatureDelta)
		e.record(player, EventGlobal, def.Message, nil,
			entities.Diff(traitsBefore, player.Traits),
			entities.Diff(featuresBefore, player.Features),
			map[string]any{"globalEventId": def.EventID, "eventKind": def.Kind})
	}
}

func (e *Engine) eventTriggered(def content.EventDefinition, player *entities.Entity) bool {
	switch def.Trigger.Metric {
	case content.MetricTurnIndex:
		return float64(e.state.TurnIndex) >= def.Trigger.Gte
	case content.MetricPlayerFeature:
		return player.Features[def.Trigger.Key] >= def.Trigger.Gte
	}
	return false
}

// spawnHostiles brings crawlers in at the exit room of depth.
func (e *Engine) spawnHostiles(depth int) {
	cfg := &e.state.Config
	level := e.state.Dungeon.Level(depth)
	if level == nil {
		return
	}
	for i := 0; i < cfg.HostileSpawnPerTurn; i++ {
		e.state.HostileSpawnIndex++
		index := e.state.HostileSpawnIndex
		bonus := e.state.GlobalEnemyLevelBonus
		hostile := withEmptyCollections(&entities.Entity{
			ID:     fmt.Sprintf("hostile_%05d", index),
			Name:   fmt.Sprintf("Crawler %d", index),
			Kind:   entities.KindHostile,
			Depth:  depth,
			RoomID: level.ExitRoomID,
			Traits: entities.NewTraitVector(0),
			Attributes: entities.Attributes{
				Might:     5 + bonus,
				Agility:   5 + bonus/2,
				Insight:   4,
				Willpower: 5 + bonus/2,
			},
			Features:         entities.NewFeatureVector(),
			Faction:          FactionLegion,
			Reputation:       -4,
			ArchetypeHeading: "hunter",
			BaseLevel:        max(1, cfg.TotalLevels-depth+1+cfg.HostileLevelBonus),
			Health:           70 + bonus*6,
			Energy:           1,
		})
		e.state.Entities[hostile.ID] = hostile
		e.refreshArchetype(hostile)
		e.record(hostile, EventSpawn,
			fmt.Sprintf("%s emerges from %s hunting survivors.", hostile.Name, level.ExitRoomID),
			nil, nil, nil, map[string]any{"spawnRoomId": level.ExitRoomID})
	}
}

// pressure counts living entities, plus present items on the player's
// depth when configured.
func (e *Engine) pressure() int {
	n := 0
	for _, entity := range e.state.Entities {
		if entity.IsAlive() {
			n++
		}
	}
	if e.state.Config.CountItemsAsEntitiesForPressure {
		if level := e.state.Dungeon.Level(e.Player().Depth); level != nil {
			for _, room := range level.Rooms {
				n += room.PresentItemCount()
			}
		}
	}
	return n
}

// enforcePressureCap prunes living hostiles, earliest id first, until the
// pressure is back under the cap or none remain. Bosses, dungeoneers and
// the player are never pruned.
func (e *Engine) enforcePressureCap(player *entities.Entity) {
	limit := e.state.Config.EntityPressureCap
	current := e.pressure()
	if current <= limit {
		return
	}

	hostiles := []string{}
	for id, entity := range e.state.Entities {
		if entity.Kind == entities.KindHostile && entity.IsAlive() {
			hostiles = append(hostiles, id)
		}
	}
	sort.Strings(hostiles)

	pruned := 0
	for _, id := range hostiles {
		if current <= limit {
			break
		}
		delete(e.state.Entities, id)
		current--
		pruned++
	}

	if pruned == 0 {
		return
	}
	e.record(player, EventPressureControl,
		fmt.Sprintf("Pressure cap enforced at %d. Pruned %d hostile entities.", limit, pruned),
		nil, nil, nil,
		map[string]any{"cap": limit, "pruned": pruned, "pressureAfter": current})
}
