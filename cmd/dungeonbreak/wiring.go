package main

import (
	"context"
	"log/slog"

	"github.com/KirkDiggler/rpg-toolkit/events"

	"github.com/KirkDiggler/dungeonbreak/internal/errors"
	"github.com/KirkDiggler/dungeonbreak/internal/orchestrators/session"
	"github.com/KirkDiggler/dungeonbreak/internal/pkg/clock"
	"github.com/KirkDiggler/dungeonbreak/internal/pkg/idgen"
	"github.com/KirkDiggler/dungeonbreak/internal/redis"
	"github.com/KirkDiggler/dungeonbreak/internal/repositories/saves"
)

// newRepository uses redis when an address is configured and falls back to
// process memory otherwise.
func newRepository(ctx context.Context, c clock.Clock) (saves.Repository, error) {
	if cfg.RedisAddr == "" {
		slog.Debug("No redis address configured, saves last for this process only")
		return saves.NewMemory(&saves.MemoryConfig{Clock: c}), nil
	}

	client, err := redis.NewClient(cfg.RedisAddr, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create redis client")
	}
	if err := redis.Ping(ctx, client); err != nil {
		return nil, errors.Wrapf(err, "redis at %s", cfg.RedisAddr)
	}

	repo, err := saves.NewRedis(&saves.RedisConfig{Client: client, Clock: c})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create save repository")
	}
	slog.Debug("Using redis save repository", "addr", cfg.RedisAddr)
	return repo, nil
}

func newSessionService(ctx context.Context) (session.Service, error) {
	c := clock.New()
	repo, err := newRepository(ctx, c)
	if err != nil {
		return nil, err
	}

	return session.NewOrchestrator(&session.Config{
		Catalog:    catalog,
		Repository: repo,
		Clock:      c,
		SessionIDs: idgen.NewSequential("session"),
		SaveIDs:    idgen.NewUUID("save"),
		EventBus:   events.NewBus(),
		PlayerName: cfg.PlayerName,
	})
}
