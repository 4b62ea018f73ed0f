package engine

import (
	"github.com/KirkDiggler/dungeonbreak/internal/entities"
	"github.com/KirkDiggler/dungeonbreak/internal/narrative"
)

// Game is the surface presentation layers and the session service use.
// Dispatch is the only method that advances the run.
type Game interface {
	// Dispatch runs one player action and the dungeon's response.
	Dispatch(action Action) TurnResult

	// AvailableActions lists what the entity (nil for the player) can try.
	AvailableActions(entity *entities.Entity) []ActionAvailability
	DialogueOptions(entity *entities.Entity) []narrative.DialogueEvaluation
	Entity(id string) (*entities.Entity, bool)
	Look() string
	Status() Status
	PagesForCurrentChapter() ChapterPages
	RecentDeeds(limit int) []narrative.Deed
	RecentCutscenes(limit int) []GameEvent

	// Snapshot returns a deep copy safe to hand to another goroutine.
	Snapshot() (*GameState, error)
	// Restore replaces the live state with a copy of snapshot.
	Restore(snapshot *GameState) error
}
