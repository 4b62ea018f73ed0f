package engine

import (
	"fmt"

	"github.com/KirkDiggler/dungeonbreak/internal/entities"
	"github.com/KirkDiggler/dungeonbreak/internal/narrative"
)

const (
	misinformedAtSource = 0.18
	misinformedPerHop   = 0.22
	misinformedOnShare  = 0.15
	hopDecay            = 0.08
	misinformedHopDecay = 0.2
	shareDecay          = 0.1
	distortedSuffix     = " (distorted by dungeon chatter)"
	rumorTag            = "rumor"
)

// applyDeedSemantics completes the deed, projects it and applies the
// resulting deltas to the entity that remembers it.
func (e *Engine) applyDeedSemantics(holder *entities.Entity, deed *narrative.Deed) entities.DeedMemory {
	cfg := &e.state.Config
	deed.TurnIndex = e.state.TurnIndex
	deed.Depth = holder.Depth
	deed.RoomID = holder.RoomID
	if deed.DeedID == "" {
		deed.DeedID = fmt.Sprintf("%s_%d_%s", holder.ID, deed.TurnIndex, deed.DeedType)
	}
	if deed.Title == "" {
		deed.Title = fmt.Sprintf("%s at depth %d", deed.DeedType, holder.Depth)
	}
	tags := append([]string(nil), deed.Tags...)
	tags = append(tags, deed.DeedType, holder.Faction)
	deed.Tags = tags

	memory := e.deeds.Vectorize(deed)
	holder.ApplyTraitDelta(memory.TraitDelta, cfg.MinTraitValue, cfg.MaxTraitValue)
	holder.ApplyFeatureDelta(memory.FeatureDelta)

	holder.Deeds = append(holder.Deeds, memory)
	if len(holder.Deeds) > maxDeedMemories {
		holder.Deeds = holder.Deeds[len(holder.Deeds)-maxDeedMemories:]
	}
	return memory
}

// spreadRumor starts a rumor about the deed and lets every other living
// entity on the actor's depth roll to hear it.
func (e *Engine) spreadRumor(actor, subject *entities.Entity, deed entities.DeedMemory, baseConfidence float64) {
	belief := entities.BeliefRumor
	if e.rng.NextFloat() < misinformedAtSource {
		belief = entities.BeliefMisinformed
	}
	rumor := entities.Rumor{
		RumorID:         fmt.Sprintf("rumor_%s_%d", actor.ID, deed.TurnIndex),
		SourceEntityID:  actor.ID,
		ActorEntityID:   actor.ID,
		SubjectEntityID: subject.ID,
		Summary:         deed.Summary,
		BeliefState:     belief,
		Confidence:      entities.Clamp(baseConfidence, 0, 1),
		TurnIndex:       deed.TurnIndex,
	}
	actor.Rumors = append(actor.Rumors, rumor)

	for _, id := range e.sortedEntityIDs() {
		other := e.state.Entities[id]
		if other.ID == actor.ID || !other.IsAlive() || other.Depth != actor.Depth {
			continue
		}
		if e.rng.NextFloat() > rumor.Confidence {
			continue
		}
		heard := rumor
		heard.RumorID = fmt.Sprintf("%s_%s", rumor.RumorID, other.ID)
		if belief == entities.BeliefMisinformed || e.rng.NextFloat() < misinformedPerHop {
			heard.BeliefState = entities.BeliefMisinformed
			heard.Summary = rumor.Summary + distortedSuffix
			heard.Confidence = entities.Clamp(rumor.Confidence-misinformedHopDecay, 0, 1)
		} else {
			heard.BeliefState = entities.BeliefRumor
			heard.Confidence = entities.Clamp(rumor.Confidence-hopDecay, 0, 1)
		}
		e.receiveRumor(other, actor, heard, EventRumorHeard)
	}
}

// crossPollinate swaps the latest rumor of the talker and each listener.
func (e *Engine) crossPollinate(actor *entities.Entity, nearby []*entities.Entity) {
	actorLatest, actorHas := latestRumor(actor)
	for _, other := range nearby {
		if !other.IsAlive() {
			continue
		}
		otherLatest, otherHas := latestRumor(other)
		if actorHas {
			e.receiveRumor(other, actor, e.sharedCopy(actorLatest, other), EventRumorShared)
		}
		if otherHas {
			e.receiveRumor(actor, other, e.sharedCopy(otherLatest, actor), EventRumorShared)
		}
	}
}

func (e *Engine) sharedCopy(rumor entities.Rumor, receiver *entities.Entity) entities.Rumor {
	shared := rumor
	shared.RumorID = fmt.Sprintf("%s_shared_%s_%d", rumor.RumorID, receiver.ID, e.state.TurnIndex)
	if rumor.BeliefState == entities.BeliefMisinformed || e.rng.NextFloat() < misinformedOnShare {
		shared.BeliefState = entities.BeliefMisinformed
	}
	shared.Confidence = entities.Clamp(rumor.Confidence-shareDecay, 0, 1)
	return shared
}

func (e *Engine) receiveRumor(receiver, source *entities.Entity, rumor entities.Rumor, deedType string) {
	receiver.Rumors = append(receiver.Rumors, rumor)
	confidence := rumor.Confidence
	e.applyDeedSemantics(receiver, &narrative.Deed{
		DeedID:         fmt.Sprintf("%s_%d_%s_%s", receiver.ID, e.state.TurnIndex, deedType, rumor.RumorID),
		ActorID:        receiver.ID,
		ActorName:      receiver.Name,
		SubjectID:      rumor.SubjectEntityID,
		SourceEntityID: source.ID,
		DeedType:       deedType,
		Summary:        rumor.Summary,
		Tags:           []string{rumorTag},
		BeliefState:    rumor.BeliefState,
		Confidence:     &confidence,
	})
}

func latestRumor(entity *entities.Entity) (entities.Rumor, bool) {
	if len(entity.Rumors) == 0 {
		return entities.Rumor{}, false
	}
	return entity.Rumors[len(entity.Rumors)-1], true
}
