package rpgtoolkit

import (
	"github.com/KirkDiggler/rpg-toolkit/core"

	"github.com/KirkDiggler/dungeonbreak/internal/entities"
)

// EntityAdapter wraps a dungeon entity to implement core.Entity
type EntityAdapter struct {
	*entities.Entity
}

// GetID returns the entity's ID
func (a *EntityAdapter) GetID() string {
	return a.ID
}

// GetType returns the entity kind for rpg-toolkit
func (a *EntityAdapter) GetType() string {
	return string(a.Kind)
}

// entityRef stands in for an entity that is no longer live, such as a
// hostile pruned later in the same turn.
type entityRef struct {
	id         string
	entityType string
}

func (r *entityRef) GetID() string   { return r.id }
func (r *entityRef) GetType() string { return r.entityType }

// Wrap converts an entity to a core.Entity
func Wrap(entity *entities.Entity) *EntityAdapter {
	return &EntityAdapter{Entity: entity}
}

var (
	_ core.Entity = (*EntityAdapter)(nil)
	_ core.Entity = (*entityRef)(nil)
)
