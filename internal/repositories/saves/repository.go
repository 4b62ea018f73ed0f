// Package saves provides persistence for save slots: a snapshot of a run
// plus the metadata needed to list and verify it.
package saves

//go:generate mockgen -destination=mock/mock_repository.go -package=savesmock github.com/KirkDiggler/dungeonbreak/internal/repositories/saves Repository

import (
	"context"
	"sort"
	"time"

	"github.com/KirkDiggler/dungeonbreak/internal/engine"
	"github.com/KirkDiggler/dungeonbreak/internal/errors"
)

const (
	errSaveNil          = "save cannot be nil"
	errSaveIDEmpty      = "save ID cannot be empty"
	errPlayerNameEmpty  = "player name cannot be empty"
	errSnapshotNil      = "save snapshot cannot be nil"
	errNegativeTTL      = "ttl cannot be negative"
	errSaveAlreadyExist = "save with ID %s already exists"
	errSaveNotFound     = "save with ID %s not found"
)

// Save is one stored slot.
type Save struct {
	SaveID       string            `json:"saveId"`
	PlayerName   string            `json:"playerName"`
	Seed         int64             `json:"seed"`
	Turn         int               `json:"turn"`
	SnapshotHash string            `json:"snapshotHash"`
	CreatedAt    time.Time         `json:"createdAt"`
	ExpiresAt    *time.Time        `json:"expiresAt,omitempty"`
	Snapshot     *engine.GameState `json:"snapshot"`
}

// Repository defines the interface for save persistence
type Repository interface {
	// Create stores a new save
	// Returns errors.InvalidArgument for validation failures
	// Returns errors.AlreadyExists if a save with the same ID exists
	// Returns errors.Internal for storage failures
	Create(ctx context.Context, input CreateInput) (*CreateOutput, error)

	// Get retrieves a save by ID
	// Returns errors.InvalidArgument for an empty ID
	// Returns errors.NotFound if the save doesn't exist or has expired
	Get(ctx context.Context, input GetInput) (*GetOutput, error)

	// ListByPlayer retrieves a player's saves, oldest first
	// Returns errors.InvalidArgument for an empty player name
	ListByPlayer(ctx context.Context, input ListByPlayerInput) (*ListByPlayerOutput, error)

	// Delete removes a save by ID
	// Returns errors.InvalidArgument for an empty ID
	// Returns errors.NotFound if the save doesn't exist
	Delete(ctx context.Context, input DeleteInput) (*DeleteOutput, error)
}

// CreateInput defines the input for creating a save. A zero TTL keeps the
// save until it is deleted.
type CreateInput struct {
	Save *Save
	TTL  time.Duration
}

// CreateOutput defines the output for creating a save
type CreateOutput struct {
	Save *Save
}

// GetInput defines the input for getting a save
type GetInput struct {
	SaveID string
}

// GetOutput defines the output for getting a save
type GetOutput struct {
	Save *Save
}

// ListByPlayerInput defines the input for listing a player's saves
type ListByPlayerInput struct {
	PlayerName string
}

// ListByPlayerOutput defines the output for listing a player's saves
type ListByPlayerOutput struct {
	Saves []*Save
}

// DeleteInput defines the input for deleting a save
type DeleteInput struct {
	SaveID string
}

// DeleteOutput defines the output for deleting a save
type DeleteOutput struct{}

func validateCreate(input CreateInput) error {
	if input.Save == nil {
		return errors.InvalidArgument(errSaveNil)
	}
	vb := errors.NewValidationBuilder()
	errors.ValidateRequired("saveId", input.Save.SaveID, vb)
	errors.ValidateRequired("playerName", input.Save.PlayerName, vb)
	if input.Save.Snapshot == nil {
		vb.Field("snapshot", errSnapshotNil)
	}
	if input.TTL < 0 {
		vb.Field("ttl", errNegativeTTL)
	}
	return vb.Build()
}

// stamp fills CreatedAt and ExpiresAt from now. CreatedAt set by the caller
// is kept.
func stamp(save *Save, ttl time.Duration, now time.Time) {
	if save.CreatedAt.IsZero() {
		save.CreatedAt = now
	}
	save.ExpiresAt = nil
	if ttl > 0 {
		expires := save.CreatedAt.Add(ttl)
		save.ExpiresAt = &expires
	}
}

func sortSaves(saves []*Save) {
	sort.Slice(saves, func(i, j int) bool {
		if !saves[i].CreatedAt.Equal(saves[j].CreatedAt) {
			return saves[i].CreatedAt.Before(saves[j].CreatedAt)
		}
		return saves[i].SaveID < saves[j].SaveID
	})
}
