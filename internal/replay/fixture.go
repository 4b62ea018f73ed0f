package replay

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/KirkDiggler/dungeonbreak/internal/engine"
	"github.com/KirkDiggler/dungeonbreak/internal/entities"
	"github.com/KirkDiggler/dungeonbreak/internal/errors"
)

// Format is the encoding of a fixture file.
type Format string

// Supported fixture formats
const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

const (
	fixtureLootPrefix = "fixture_loot_"
	fixtureLootName   = "Fixture Loot"
	fixtureLootDesc   = "Replay fixture deterministic loot payload."
)

// Fixture is a seed plus the ordered player actions to dispatch.
type Fixture struct {
	FixtureID            string                `json:"fixtureId" yaml:"fixtureId"`
	Seed                 int64                 `json:"seed" yaml:"seed"`
	Actions              []engine.PlayerAction `json:"actions" yaml:"actions"`
	Setup                *Setup                `json:"setup,omitempty" yaml:"setup,omitempty"`
	ExpectedSnapshotHash string                `json:"expectedSnapshotHash,omitempty" yaml:"expectedSnapshotHash,omitempty"`
}

// Setup adjusts a fresh engine before the actions run.
type Setup struct {
	DisableHostileSpawn bool         `json:"disableHostileSpawn,omitempty" yaml:"disableHostileSpawn,omitempty"`
	KeepEntityIDs       []string     `json:"keepEntityIds,omitempty" yaml:"keepEntityIds,omitempty"`
	Player              *PlayerSetup `json:"player,omitempty" yaml:"player,omitempty"`
	ColocatedEnemy      *EnemySetup  `json:"colocatedEnemy,omitempty" yaml:"colocatedEnemy,omitempty"`
}

// PlayerSetup overrides player fields. Nil and empty fields are left alone.
type PlayerSetup struct {
	Depth          *int               `json:"depth,omitempty" yaml:"depth,omitempty"`
	RoomID         string             `json:"roomId,omitempty" yaml:"roomId,omitempty"`
	Reputation     *int               `json:"reputation,omitempty" yaml:"reputation,omitempty"`
	Traits         map[string]float64 `json:"traits,omitempty" yaml:"traits,omitempty"`
	Features       map[string]float64 `json:"features,omitempty" yaml:"features,omitempty"`
	Attributes     map[string]int     `json:"attributes,omitempty" yaml:"attributes,omitempty"`
	UnlockedSkills []string           `json:"unlockedSkills,omitempty" yaml:"unlockedSkills,omitempty"`
}

// EnemySetup moves one NPC into the player's room.
type EnemySetup struct {
	EntityID   string `json:"entityId,omitempty" yaml:"entityId,omitempty"`
	Faction    string `json:"faction,omitempty" yaml:"faction,omitempty"`
	Health     *int   `json:"health,omitempty" yaml:"health,omitempty"`
	AddLootTag bool   `json:"addLootTag,omitempty" yaml:"addLootTag,omitempty"`
}

// Validate checks the fixture can be run
func (f *Fixture) Validate() error {
	vb := errors.NewValidationBuilder()
	errors.ValidateRequired("fixtureId", f.FixtureID, vb)
	for i, action := range f.Actions {
		if strings.TrimSpace(action.ActionType) == "" {
			vb.Fieldf("actions", "action %d is missing actionType", i)
		}
	}
	return vb.Build()
}

// Decode reads one fixture. Unknown fields are rejected.
func Decode(r io.Reader, format Format) (*Fixture, error) {
	fixture := &Fixture{}
	switch format {
	case FormatYAML:
		decoder := yaml.NewDecoder(r)
		decoder.KnownFields(true)
		if err := decoder.Decode(fixture); err != nil {
			return nil, errors.WrapWithCode(err, errors.CodeInvalidArgument, "failed to decode yaml fixture")
		}
	case FormatJSON:
		decoder := json.NewDecoder(r)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(fixture); err != nil {
			return nil, errors.WrapWithCode(err, errors.CodeInvalidArgument, "failed to decode json fixture")
		}
	default:
		return nil, errors.InvalidArgumentf("unsupported fixture format %q", format)
	}

	if err := fixture.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid fixture")
	}
	return fixture, nil
}

// FormatForPath picks the format from a file extension.
func FormatForPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	}
	return "", errors.InvalidArgumentf("unsupported fixture extension %q", filepath.Ext(path))
}

// LoadFile reads a fixture from disk.
func LoadFile(path string) (*Fixture, error) {
	format, err := FormatForPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path) // #nosec G304 -- fixture paths come from the operator
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NotFoundf("fixture %s not found", path)
		}
		return nil, errors.Wrapf(err, "failed to read fixture %s", path)
	}
	fixture, err := Decode(bytes.NewReader(data), format)
	if err != nil {
		return nil, errors.Wrapf(err, "fixture %s", path)
	}
	return fixture, nil
}

// ApplySetup mutates a freshly created engine according to setup.
func ApplySetup(game *engine.Engine, setup *Setup) error {
	if setup == nil {
		return nil
	}
	state := game.State()
	player := game.Player()

	if setup.DisableHostileSpawn {
		state.Config.HostileSpawnPerTurn = 0
	}

	if spec := setup.Player; spec != nil {
		if spec.Depth != nil {
			player.Depth = *spec.Depth
		}
		if roomID := strings.TrimSpace(spec.RoomID); roomID != "" {
			player.RoomID = roomID
		}
		if state.Dungeon.Room(player.Depth, player.RoomID) == nil {
			return errors.InvalidArgumentf("player room %s does not exist on depth %d", player.RoomID, player.Depth)
		}
		if spec.Reputation != nil {
			player.Reputation = *spec.Reputation
		}
		for trait, value := range spec.Traits {
			player.Traits[trait] = value
		}
		for feature, value := range spec.Features {
			player.Features[feature] = value
		}
		for name, value := range spec.Attributes {
			if !player.Attributes.Set(name, value) {
				return errors.InvalidArgumentf("unknown attribute %q", name)
			}
		}
		for _, skillID := range spec.UnlockedSkills {
			player.Skills[skillID] = entities.SkillState{SkillID: skillID, Name: skillID, Unlocked: true}
		}
	}

	if len(setup.KeepEntityIDs) > 0 {
		keep := map[string]bool{player.ID: true}
		for _, id := range setup.KeepEntityIDs {
			keep[id] = true
		}
		for id := range state.Entities {
			if !keep[id] {
				delete(state.Entities, id)
			}
		}
	}

	if spec := setup.ColocatedEnemy; spec != nil {
		enemy := colocatedEnemy(state, spec.EntityID)
		if enemy == nil {
			return nil
		}
		enemy.Depth = player.Depth
		enemy.RoomID = player.RoomID
		if faction := strings.TrimSpace(spec.Faction); faction != "" {
			enemy.Faction = faction
		}
		if spec.Health != nil {
			enemy.Health = *spec.Health
		}
		if spec.AddLootTag && !enemy.HasItemTag(entities.TagLoot) {
			enemy.Inventory = append(enemy.Inventory, entities.ItemInstance{
				ItemID:      fixtureLootPrefix + enemy.ID,
				Name:        fixtureLootName,
				Rarity:      string(entities.RarityCommon),
				Description: fixtureLootDesc,
				Tags:        []string{entities.TagLoot},
				TraitDelta:  entities.Vector{},
			})
		}
	}
	return nil
}

// colocatedEnemy returns the requested NPC, or the first NPC by id.
func colocatedEnemy(state *engine.GameState, entityID string) *entities.Entity {
	if entityID != "" {
		if enemy, ok := state.Entities[entityID]; ok {
			return enemy
		}
	}
	var first *entities.Entity
	for id, entity := range state.Entities {
		if entity.IsPlayer {
			continue
		}
		if first == nil || id < first.ID {
			first = entity
		}
	}
	return first
}
