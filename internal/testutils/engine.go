package testutils

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/KirkDiggler/dungeonbreak/internal/content"
	"github.com/KirkDiggler/dungeonbreak/internal/engine"
	"github.com/KirkDiggler/dungeonbreak/internal/repositories/saves"
)

// TestPlayerName is the player name used by save fixtures
const TestPlayerName = "Kael"

// LoadCatalog returns the embedded content packs.
func LoadCatalog(t *testing.T) *content.Catalog {
	t.Helper()
	catalog, err := content.Default()
	require.NoError(t, err, "failed to load default content")
	return catalog
}

// CreateTestEngine starts a run for seed with hostile spawning switched off
// so tests see only the population the seed builds.
func CreateTestEngine(t *testing.T, seed int64) *engine.Engine {
	t.Helper()
	game, err := engine.Create(LoadCatalog(t), seed)
	require.NoError(t, err, "failed to create engine")
	game.State().Config.HostileSpawnPerTurn = 0
	return game
}

// CreateTestSave snapshots game into a save owned by TestPlayerName.
func CreateTestSave(t *testing.T, saveID string, game *engine.Engine) *saves.Save {
	t.Helper()
	snapshot, err := game.Snapshot()
	require.NoError(t, err, "failed to snapshot engine")
	return &saves.Save{
		SaveID:       saveID,
		PlayerName:   TestPlayerName,
		Seed:         snapshot.Config.RandomSeed,
		Turn:         snapshot.TurnIndex,
		SnapshotHash: "hash-" + saveID,
		Snapshot:     snapshot,
	}
}
