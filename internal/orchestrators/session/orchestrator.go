// Package session keeps live runs in memory and moves them in and out of
// save slots.
package session

import (
	"context"
	"log/slog"
	"sync"

	"github.com/KirkDiggler/rpg-toolkit/events"

	"github.com/KirkDiggler/dungeonbreak/internal/content"
	"github.com/KirkDiggler/dungeonbreak/internal/engine"
	"github.com/KirkDiggler/dungeonbreak/internal/engine/rpgtoolkit"
	"github.com/KirkDiggler/dungeonbreak/internal/errors"
	"github.com/KirkDiggler/dungeonbreak/internal/pkg/clock"
	"github.com/KirkDiggler/dungeonbreak/internal/pkg/idgen"
	"github.com/KirkDiggler/dungeonbreak/internal/replay"
	"github.com/KirkDiggler/dungeonbreak/internal/repositories/saves"
)

// eventLogPriority runs the log subscriber after any game handlers.
const eventLogPriority = 1000

// Service defines the interface for session operations
type Service interface {
	NewGame(ctx context.Context, input *NewGameInput) (*NewGameOutput, error)

	// Dispatch runs one action. Dispatches on the same session are
	// serialized; different sessions run independently.
	Dispatch(ctx context.Context, input *DispatchInput) (*DispatchOutput, error)

	Look(ctx context.Context, input *LookInput) (*LookOutput, error)
	Status(ctx context.Context, input *StatusInput) (*StatusOutput, error)
	AvailableActions(ctx context.Context, input *AvailableActionsInput) (*AvailableActionsOutput, error)

	// Save snapshots a session into the repository.
	Save(ctx context.Context, input *SaveInput) (*SaveOutput, error)
	// Load resumes a save as a new session. A save whose snapshot no
	// longer matches its hash is rejected with DataLoss.
	Load(ctx context.Context, input *LoadInput) (*LoadOutput, error)

	ListSaves(ctx context.Context, input *ListSavesInput) (*ListSavesOutput, error)
	DeleteSave(ctx context.Context, input *DeleteSaveInput) (*DeleteSaveOutput, error)
}

// Config holds the dependencies for the session orchestrator
type Config struct {
	Catalog    *content.Catalog
	Repository saves.Repository
	Clock      clock.Clock
	SessionIDs idgen.Generator
	SaveIDs    idgen.Generator
	EventBus   events.EventBus
	// PlayerName overrides the catalog's default player name for new games.
	PlayerName string
}

// Validate ensures all required dependencies are provided
func (c *Config) Validate() error {
	vb := errors.NewValidationBuilder()

	if c.Catalog == nil {
		vb.RequiredField("Catalog")
	}
	if c.Repository == nil {
		vb.RequiredField("Repository")
	}
	if c.Clock == nil {
		vb.RequiredField("Clock")
	}
	if c.SessionIDs == nil {
		vb.RequiredField("SessionIDs")
	}
	if c.SaveIDs == nil {
		vb.RequiredField("SaveIDs")
	}
	if c.EventBus == nil {
		vb.RequiredField("EventBus")
	}

	return vb.Build()
}

type orchestrator struct {
	catalog    *content.Catalog
	repo       saves.Repository
	clock      clock.Clock
	sessionIDs idgen.Generator
	saveIDs    idgen.Generator
	publisher  *rpgtoolkit.Publisher
	playerName string

	mu       sync.RWMutex
	sessions map[string]*liveSession
}

// liveSession is one run. mu serializes access to game.
type liveSession struct {
	mu   sync.Mutex
	game *engine.Engine
}

var _ Service = (*orchestrator)(nil)

// NewOrchestrator creates a new session orchestrator with the provided dependencies
func NewOrchestrator(cfg *Config) (Service, error) {
	if cfg == nil {
		return nil, errors.InvalidArgument("config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}

	publisher, err := rpgtoolkit.NewPublisher(&rpgtoolkit.Config{EventBus: cfg.EventBus})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create event publisher")
	}
	publisher.SubscribeAll(eventLogPriority, logEvent)

	return &orchestrator{
		catalog:    cfg.Catalog,
		repo:       cfg.Repository,
		clock:      cfg.Clock,
		sessionIDs: cfg.SessionIDs,
		saveIDs:    cfg.SaveIDs,
		publisher:  publisher,
		playerName: cfg.PlayerName,
		sessions:   make(map[string]*liveSession),
	}, nil
}

func logEvent(ctx context.Context, event events.Event) error {
	var actor string
	if source := event.Source(); source != nil {
		actor = source.GetID()
	}
	message, _ := event.Context().Get(rpgtoolkit.KeyMessage)
	slog.DebugContext(ctx, "Game event",
		"topic", event.Type(),
		"actor_id", actor,
		"message", message,
	)
	return nil
}

// NewGame starts a run and registers it as a session
func (o *orchestrator) NewGame(ctx context.Context, input *NewGameInput) (*NewGameOutput, error) {
	if input == nil {
		return nil, errors.InvalidArgument("input is required")
	}

	seed := input.Seed
	if seed == 0 {
		seed = o.catalog.Contracts.CanonicalSeedV1
	}

	game := engine.DefaultGameConfig(o.catalog, seed)
	if o.playerName != "" {
		game.PlayerName = o.playerName
	}
	run, err := engine.New(&engine.Config{Catalog: o.catalog, Game: &game})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create game")
	}

	sessionID := o.register(run)

	// the opening event goes out like any other turn
	opening := engine.TurnResult{Events: append([]engine.GameEvent(nil), run.State().EventLog...)}
	if err := o.publisher.PublishTurn(ctx, run, opening); err != nil {
		return nil, errors.Wrap(err, "failed to publish opening events")
	}

	slog.Info("Session created",
		"session_id", sessionID,
		"seed", seed,
		"entities", len(run.State().Entities),
	)

	return &NewGameOutput{SessionID: sessionID, Seed: seed, Look: run.Look()}, nil
}

// Dispatch runs one player action on a session
func (o *orchestrator) Dispatch(ctx context.Context, input *DispatchInput) (*DispatchOutput, error) {
	if input == nil {
		return nil, errors.InvalidArgument("input is required")
	}
	if input.Action.ActionType == "" {
		return nil, errors.InvalidArgument("action type is required")
	}

	live, err := o.session(input.SessionID)
	if err != nil {
		return nil, err
	}

	live.mu.Lock()
	defer live.mu.Unlock()

	result := live.game.Dispatch(input.Action.Decode())
	if err := o.publisher.PublishTurn(ctx, live.game, result); err != nil {
		return nil, errors.Wrap(err, "failed to publish turn events")
	}

	slog.Info("Action dispatched",
		"session_id", input.SessionID,
		"action_type", input.Action.ActionType,
		"events", len(result.Events),
		"turn", live.game.State().TurnIndex,
		"escaped", result.Escaped,
	)

	return &DispatchOutput{Events: result.Events, Escaped: result.Escaped}, nil
}

// Look describes the player's room
func (o *orchestrator) Look(_ context.Context, input *LookInput) (*LookOutput, error) {
	if input == nil {
		return nil, errors.InvalidArgument("input is required")
	}
	live, err := o.session(input.SessionID)
	if err != nil {
		return nil, err
	}

	live.mu.Lock()
	defer live.mu.Unlock()
	return &LookOutput{Look: live.game.Look()}, nil
}

// Status summarizes the player's run
func (o *orchestrator) Status(_ context.Context, input *StatusInput) (*StatusOutput, error) {
	if input == nil {
		return nil, errors.InvalidArgument("input is required")
	}
	live, err := o.session(input.SessionID)
	if err != nil {
		return nil, err
	}

	live.mu.Lock()
	defer live.mu.Unlock()
	return &StatusOutput{Status: live.game.Status()}, nil
}

// AvailableActions lists the player's actions
func (o *orchestrator) AvailableActions(_ context.Context, input *AvailableActionsInput) (*AvailableActionsOutput, error) {
	if input == nil {
		return nil, errors.InvalidArgument("input is required")
	}
	live, err := o.session(input.SessionID)
	if err != nil {
		return nil, err
	}

	live.mu.Lock()
	defer live.mu.Unlock()
	return &AvailableActionsOutput{Actions: live.game.AvailableActions(nil)}, nil
}

// Save snapshots a session into a new save slot
func (o *orchestrator) Save(ctx context.Context, input *SaveInput) (*SaveOutput, error) {
	if input == nil {
		return nil, errors.InvalidArgument("input is required")
	}
	if input.TTL < 0 {
		return nil, errors.InvalidArgument("ttl cannot be negative")
	}
	live, err := o.session(input.SessionID)
	if err != nil {
		return nil, err
	}

	live.mu.Lock()
	snapshot, err := live.game.Snapshot()
	playerName := live.game.Player().Name
	live.mu.Unlock()
	if err != nil {
		return nil, errors.Wrap(err, "failed to snapshot session")
	}
	if input.PlayerName != "" {
		playerName = input.PlayerName
	}

	hash, err := replay.Hash(snapshot)
	if err != nil {
		return nil, errors.Wrap(err, "failed to hash snapshot")
	}

	out, err := o.repo.Create(ctx, saves.CreateInput{
		Save: &saves.Save{
			SaveID:       o.saveIDs.Generate(),
			PlayerName:   playerName,
			Seed:         snapshot.Config.RandomSeed,
			Turn:         snapshot.TurnIndex,
			SnapshotHash: hash,
			CreatedAt:    o.clock.Now(),
			Snapshot:     snapshot,
		},
		TTL: input.TTL,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to store save")
	}

	slog.Info("Session saved",
		"session_id", input.SessionID,
		"save_id", out.Save.SaveID,
		"player_name", playerName,
		"turn", out.Save.Turn,
	)

	return &SaveOutput{Save: out.Save}, nil
}

// Load resumes a save as a new session
func (o *orchestrator) Load(ctx context.Context, input *LoadInput) (*LoadOutput, error) {
	if input == nil {
		return nil, errors.InvalidArgument("input is required")
	}
	if input.SaveID == "" {
		return nil, errors.InvalidArgument("save ID is required")
	}

	out, err := o.repo.Get(ctx, saves.GetInput{SaveID: input.SaveID})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get save %s", input.SaveID)
	}
	save := out.Save
	if save.Snapshot == nil {
		return nil, errors.DataLossf("save %s has no snapshot", save.SaveID)
	}

	hash, err := replay.Hash(save.Snapshot)
	if err != nil {
		return nil, errors.Wrap(err, "failed to hash snapshot")
	}
	if save.SnapshotHash != "" && hash != save.SnapshotHash {
		return nil, errors.DataLossf("snapshot hash mismatch for save %s", save.SaveID).
			WithMeta("save_id", save.SaveID).
			WithMeta("expected", save.SnapshotHash).
			WithMeta("actual", hash)
	}

	run, err := engine.FromSnapshot(&engine.Config{Catalog: o.catalog}, save.Snapshot)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to resume save %s", save.SaveID)
	}
	sessionID := o.register(run)

	slog.Info("Session loaded",
		"session_id", sessionID,
		"save_id", save.SaveID,
		"turn", save.Turn,
	)

	return &LoadOutput{SessionID: sessionID, Turn: save.Turn}, nil
}

// ListSaves lists a player's saves
func (o *orchestrator) ListSaves(ctx context.Context, input *ListSavesInput) (*ListSavesOutput, error) {
	if input == nil {
		return nil, errors.InvalidArgument("input is required")
	}
	playerName := input.PlayerName
	if playerName == "" {
		playerName = o.defaultPlayerName()
	}

	out, err := o.repo.ListByPlayer(ctx, saves.ListByPlayerInput{PlayerName: playerName})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list saves for %s", playerName)
	}
	return &ListSavesOutput{Saves: out.Saves}, nil
}

// DeleteSave removes a save
func (o *orchestrator) DeleteSave(ctx context.Context, input *DeleteSaveInput) (*DeleteSaveOutput, error) {
	if input == nil {
		return nil, errors.InvalidArgument("input is required")
	}

	if _, err := o.repo.Delete(ctx, saves.DeleteInput{SaveID: input.SaveID}); err != nil {
		return nil, errors.Wrapf(err, "failed to delete save %s", input.SaveID)
	}

	slog.Info("Save deleted", "save_id", input.SaveID)
	return &DeleteSaveOutput{}, nil
}

func (o *orchestrator) register(run *engine.Engine) string {
	sessionID := o.sessionIDs.Generate()
	o.mu.Lock()
	o.sessions[sessionID] = &liveSession{game: run}
	o.mu.Unlock()
	return sessionID
}

func (o *orchestrator) session(sessionID string) (*liveSession, error) {
	if sessionID == "" {
		return nil, errors.InvalidArgument("session ID is required")
	}
	o.mu.RLock()
	live, ok := o.sessions[sessionID]
	o.mu.RUnlock()
	if !ok {
		return nil, errors.NotFoundf("session %s not found", sessionID)
	}
	return live, nil
}

func (o *orchestrator) defaultPlayerName() string {
	if o.playerName != "" {
		return o.playerName
	}
	return engine.DefaultGameConfig(o.catalog, o.catalog.Contracts.CanonicalSeedV1).PlayerName
}
