package replay

import (
	"context"

	"github.com/KirkDiggler/dungeonbreak/internal/content"
	"github.com/KirkDiggler/dungeonbreak/internal/engine"
	"github.com/KirkDiggler/dungeonbreak/internal/errors"
)

// Config contains the dependencies for a Runner
type Config struct {
	Catalog *content.Catalog
}

// Validate checks that all required dependencies are provided
func (c *Config) Validate() error {
	if c.Catalog == nil {
		return errors.InvalidArgument("catalog is required")
	}
	return nil
}

// Runner replays fixtures
type Runner struct {
	catalog *content.Catalog
}

// NewRunner creates a fixture runner
func NewRunner(cfg *Config) (*Runner, error) {
	if cfg == nil {
		return nil, errors.InvalidArgument("config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}
	return &Runner{catalog: cfg.Catalog}, nil
}

// Result is the end state of one fixture run.
type Result struct {
	FixtureID    string
	Snapshot     *engine.GameState
	SnapshotHash string
}

// Run plays the fixture on a fresh engine with hostile spawning off and
// hashes the final snapshot. When the fixture pins a hash and it differs,
// the result is still returned alongside a DataLoss error.
func (r *Runner) Run(ctx context.Context, fixture *Fixture) (*Result, error) {
	if fixture == nil {
		return nil, errors.InvalidArgument("fixture is required")
	}
	if err := fixture.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid fixture")
	}

	game, err := engine.Create(r.catalog, fixture.Seed)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create engine for fixture %s", fixture.FixtureID)
	}
	if err := ApplySetup(game, fixture.Setup); err != nil {
		return nil, errors.Wrapf(err, "failed to apply setup for fixture %s", fixture.FixtureID)
	}
	game.State().Config.HostileSpawnPerTurn = 0

	for _, action := range fixture.Actions {
		if err := ctx.Err(); err != nil {
			return nil, errors.WrapWithCode(err, errors.CodeCanceled, "replay canceled")
		}
		game.Dispatch(action.Decode())
	}

	snapshot, err := game.Snapshot()
	if err != nil {
		return nil, errors.Wrap(err, "failed to snapshot engine")
	}
	hash, err := Hash(snapshot)
	if err != nil {
		return nil, errors.Wrap(err, "failed to hash snapshot")
	}

	result := &Result{FixtureID: fixture.FixtureID, Snapshot: snapshot, SnapshotHash: hash}
	if fixture.ExpectedSnapshotHash != "" && fixture.ExpectedSnapshotHash != hash {
		return result, errors.DataLossf("snapshot hash mismatch for fixture %s", fixture.FixtureID).
			WithMeta("fixture_id", fixture.FixtureID).
			WithMeta("expected", fixture.ExpectedSnapshotHash).
			WithMeta("actual", hash)
	}
	return result, nil
}
