package saves

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/KirkDiggler/dungeonbreak/internal/errors"
	"github.com/KirkDiggler/dungeonbreak/internal/pkg/clock"
)

// MemoryConfig contains configuration for the in-memory save repository.
type MemoryConfig struct {
	Clock clock.Clock
}

type memoryRepository struct {
	mu    sync.RWMutex
	clock clock.Clock
	saves map[string][]byte
	owner map[string]string
}

// NewMemory creates a process-local repository. Saves are stored in their
// encoded form so callers never share state with the store. Expired saves
// read as not found.
func NewMemory(cfg *MemoryConfig) Repository {
	c := clock.New()
	if cfg != nil && cfg.Clock != nil {
		c = cfg.Clock
	}
	return &memoryRepository{
		clock: c,
		saves: map[string][]byte{},
		owner: map[string]string{},
	}
}

func (r *memoryRepository) Create(_ context.Context, input CreateInput) (*CreateOutput, error) {
	if err := validateCreate(input); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	save := input.Save
	if _, err := r.load(save.SaveID); err == nil {
		return nil, errors.AlreadyExistsf(errSaveAlreadyExist, save.SaveID)
	}

	stamp(save, input.TTL, r.clock.Now())
	data, err := json.Marshal(save)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to marshal save")
	}
	r.saves[save.SaveID] = data
	r.owner[save.SaveID] = save.PlayerName

	return &CreateOutput{Save: save}, nil
}

func (r *memoryRepository) Get(_ context.Context, input GetInput) (*GetOutput, error) {
	if input.SaveID == "" {
		return nil, errors.InvalidArgument(errSaveIDEmpty)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	save, err := r.load(input.SaveID)
	if err != nil {
		return nil, err
	}
	return &GetOutput{Save: save}, nil
}

func (r *memoryRepository) ListByPlayer(_ context.Context, input ListByPlayerInput) (*ListByPlayerOutput, error) {
	if input.PlayerName == "" {
		return nil, errors.InvalidArgument(errPlayerNameEmpty)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	saves := []*Save{}
	for id, player := range r.owner {
		if player != input.PlayerName {
			continue
		}
		save, err := r.load(id)
		if err != nil {
			if errors.IsNotFound(err) {
				continue
			}
			return nil, err
		}
		saves = append(saves, save)
	}

	sortSaves(saves)
	return &ListByPlayerOutput{Saves: saves}, nil
}

func (r *memoryRepository) Delete(_ context.Context, input DeleteInput) (*DeleteOutput, error) {
	if input.SaveID == "" {
		return nil, errors.InvalidArgument(errSaveIDEmpty)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.load(input.SaveID); err != nil {
		return nil, err
	}
	delete(r.saves, input.SaveID)
	delete(r.owner, input.SaveID)
	return &DeleteOutput{}, nil
}

// load decodes a stored save. Callers hold the lock.
func (r *memoryRepository) load(id string) (*Save, error) {
	data, ok := r.saves[id]
	if !ok {
		return nil, errors.NotFoundf(errSaveNotFound, id)
	}
	save := &Save{}
	if err := json.Unmarshal(data, save); err != nil {
		return nil, errors.WrapWithCode(err, errors.CodeDataLoss, "failed to unmarshal save")
	}
	if save.ExpiresAt != nil && !r.clock.Now().Before(*save.ExpiresAt) {
		return nil, errors.NotFoundf(errSaveNotFound, id)
	}
	return save, nil
}
