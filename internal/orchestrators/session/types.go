package session

import (
	"time"

	"github.com/KirkDiggler/dungeonbreak/internal/engine"
	"github.com/KirkDiggler/dungeonbreak/internal/repositories/saves"
)

// NewGameInput starts a run. A zero seed uses the canonical seed.
type NewGameInput struct {
	Seed int64
}

// NewGameOutput contains the new session and its opening view
type NewGameOutput struct {
	SessionID string
	Seed      int64
	Look      string
}

// DispatchInput is one player action for a session
type DispatchInput struct {
	SessionID string
	Action    engine.PlayerAction
}

// DispatchOutput contains the events the action produced
type DispatchOutput struct {
	Events  []engine.GameEvent
	Escaped bool
}

// LookInput selects a session
type LookInput struct {
	SessionID string
}

// LookOutput contains the room view
type LookOutput struct {
	Look string
}

// StatusInput selects a session
type StatusInput struct {
	SessionID string
}

// StatusOutput contains the player status
type StatusOutput struct {
	Status engine.Status
}

// AvailableActionsInput selects a session
type AvailableActionsInput struct {
	SessionID string
}

// AvailableActionsOutput lists the player's actions with gate results
type AvailableActionsOutput struct {
	Actions []engine.ActionAvailability
}

// SaveInput stores the session. PlayerName defaults to the player entity's
// name and a zero TTL keeps the save until deleted.
type SaveInput struct {
	SessionID  string
	PlayerName string
	TTL        time.Duration
}

// SaveOutput contains the stored save
type SaveOutput struct {
	Save *saves.Save
}

// LoadInput selects a save
type LoadInput struct {
	SaveID string
}

// LoadOutput contains the session resumed from the save
type LoadOutput struct {
	SessionID string
	Turn      int
}

// ListSavesInput selects a player
type ListSavesInput struct {
	PlayerName string
}

// ListSavesOutput lists a player's saves, oldest first
type ListSavesOutput struct {
	Saves []*saves.Save
}

// DeleteSaveInput selects a save
type DeleteSaveInput struct {
	SaveID string
}

// DeleteSaveOutput is empty on success
type DeleteSaveOutput struct{}
