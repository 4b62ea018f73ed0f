package engine

import (
	"sort"

	"github.com/KirkDiggler/dungeonbreak/internal/entities"
	"github.com/KirkDiggler/dungeonbreak/internal/world"
)

const minActionWeight = 0.05

// simulateNPCTurns gives every living NPC one action, in id order. NPCs
// pruned or killed earlier in the pass are skipped.
func (e *Engine) simulateNPCTurns() {
	for _, id := range e.sortedEntityIDs() {
		npc, ok := e.state.Entities[id]
		if !ok || npc.IsPlayer || !npc.IsAlive() {
			continue
		}
		action := e.chooseNPCAction(npc)
		if action == nil {
			continue
		}
		e.executeAction(npc, action, false)
	}
}

// legalActions is the available subset of the offered actions, converted
// into concrete NPC intents.
func (e *Engine) legalActions(npc *entities.Entity) []Action {
	out := []Action{}
	for _, row := range e.AvailableActions(npc) {
		if !row.Available {
			continue
		}
		action := row.Action()
		if _, ok := action.(Speak); ok {
			action = Speak{IntentText: npcSpeakText}
		}
		out = append(out, action)
	}
	return out
}

func (e *Engine) chooseNPCAction(npc *entities.Entity) Action {
	legal := e.legalActions(npc)
	if len(legal) == 0 {
		return nil
	}
	enemies := e.enemiesNearby(npc, e.nearby(npc))
	if npc.IsHostile() && len(enemies) == 0 {
		if move := e.predatorMove(npc, legal); move != nil {
			return move
		}
	}
	if action := e.policyAction(npc, legal); action != nil {
		return action
	}
	return e.weightedAction(npc, legal, len(enemies))
}

// predatorMove steps toward the nearest enemy on the same depth by grid
// distance, vertical axis first.
func (e *Engine) predatorMove(npc *entities.Entity, legal []Action) Action {
	room := e.room(npc)
	type candidate struct {
		room     *world.Room
		distance int
	}
	targets := []candidate{}
	for _, id := range e.sortedEntityIDs() {
		other := e.state.Entities[id]
		if other.ID == npc.ID || !other.IsAlive() || other.Depth != npc.Depth || !isEnemy(npc, other) {
			continue
		}
		target := e.room(other)
		if target == nil {
			continue
		}
		targets = append(targets, candidate{room: target, distance: abs(target.Row-room.Row) + abs(target.Column-room.Column)})
	}
	if len(targets) == 0 {
		return nil
	}
	sort.SliceStable(targets, func(i, j int) bool { return targets[i].distance < targets[j].distance })
	target := targets[0].room

	preferred := []string{}
	switch {
	case target.Row < room.Row:
		preferred = append(preferred, world.North)
	case target.Row > room.Row:
		preferred = append(preferred, world.South)
	}
	switch {
	case target.Column < room.Column:
		preferred = append(preferred, world.West)
	case target.Column > room.Column:
		preferred = append(preferred, world.East)
	}

	for _, dir := range preferred {
		for _, action := range legal {
			if move, ok := action.(Move); ok && move.Direction == dir {
				return move
			}
		}
	}
	return nil
}

func (e *Engine) policyAction(npc *entities.Entity, legal []Action) Action {
	policyID, ok := e.state.Config.NPCActionPolicyIDs[npc.Kind]
	if !ok {
		return nil
	}
	policy, ok := e.catalog.Policy(policyID)
	if !ok {
		return nil
	}
	for _, actionType := range policy.PriorityOrder {
		for _, action := range legal {
			if string(action.Type()) == actionType {
				return action
			}
		}
	}
	return nil
}

// weightedAction rolls over the legal actions, weighting each by how well
// it fits the NPC and its room.
func (e *Engine) weightedAction(npc *entities.Entity, legal []Action, enemyCount int) Action {
	if npc.IsHostile() {
		for _, action := range legal {
			if action.Type() == ActionFight {
				return action
			}
		}
	}

	room := e.room(npc)
	weights := make([]float64, len(legal))
	total := 0.0
	for i, action := range legal {
		weights[i] = max(minActionWeight, e.actionWeight(npc, room, action, enemyCount))
		total += weights[i]
	}

	roll := e.rng.NextFloat() * total
	cumulative := 0.0
	for i, action := range legal {
		cumulative += weights[i]
		if cumulative >= roll {
			return action
		}
	}
	return legal[len(legal)-1]
}

func (e *Engine) actionWeight(npc *entities.Entity, room *world.Room, action Action, enemyCount int) float64 {
	score := 1.0
	switch action.Type() {
	case ActionRest:
		if npc.Energy < 0.5 {
			score += 4
		} else {
			score += 0.5
		}
		if room.Feature == world.FeatureRest {
			score += 1.5
		}
	case ActionTrain:
		score += pick(room.Feature == world.FeatureTraining, 4, 0.6)
	case ActionSearch:
		score += pick(room.Feature == world.FeatureTreasure, 4, 1.2)
	case ActionTalk, ActionChooseDialogue:
		score += pick(room.Feature == world.FeatureDialogue, 3, 1)
	case ActionFight:
		score += pick(enemyCount > 0, 5, 0.2)
		if npc.IsHostile() {
			score += 2
		}
	case ActionMurder:
		score += pick(npc.Faction == FactionLaughingFace, 5, 0)
	case ActionLiveStream:
		score += pick(npc.IsPlayer, 2, 0.8)
	case ActionMove:
		score += 1.2
		if npc.Kind == entities.KindHostile {
			score += 2.2
		}
	case ActionEvolveSkill:
		score += pick(room.Feature == world.FeatureRuneForge, 4.5, 0.4)
	}
	return score
}

func pick(cond bool, yes, no float64) float64 {
	if cond {
		return yes
	}
	return no
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
