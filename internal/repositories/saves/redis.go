package saves

import (
	"context"
	"encoding/json"
	"log/slog"

	redis "github.com/redis/go-redis/v9"

	"github.com/KirkDiggler/dungeonbreak/internal/errors"
	"github.com/KirkDiggler/dungeonbreak/internal/pkg/clock"
	redisclient "github.com/KirkDiggler/dungeonbreak/internal/redis"
)

const (
	saveKeyPrefix     = "save:"
	playerIndexPrefix = "save:player:"
)

type redisRepository struct {
	client redisclient.Client
	clock  clock.Clock
}

// RedisConfig contains configuration for the Redis save repository.
type RedisConfig struct {
	Client redisclient.Client
	Clock  clock.Clock
}

// Validate validates the RedisConfig.
func (cfg *RedisConfig) Validate() error {
	if cfg == nil {
		return errors.InvalidArgument("config cannot be nil")
	}
	if cfg.Client == nil {
		return errors.InvalidArgument("client cannot be nil")
	}
	return nil
}

// NewRedis creates a Redis-backed save repository. Snapshots are stored as
// JSON under save:<id> and indexed per player under save:player:<name>.
func NewRedis(cfg *RedisConfig) (Repository, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := cfg.Clock
	if c == nil {
		c = clock.New()
	}

	return &redisRepository{
		client: cfg.Client,
		clock:  c,
	}, nil
}

func (r *redisRepository) Create(ctx context.Context, input CreateInput) (*CreateOutput, error) {
	if err := validateCreate(input); err != nil {
		return nil, err
	}

	save := input.Save
	key := saveKeyPrefix + save.SaveID

	exists, err := r.client.Exists(ctx, key).Result()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to check existence")
	}
	if exists > 0 {
		return nil, errors.AlreadyExistsf(errSaveAlreadyExist, save.SaveID)
	}

	stamp(save, input.TTL, r.clock.Now())

	data, err := json.Marshal(save)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to marshal save")
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, key, data, input.TTL)
	pipe.SAdd(ctx, playerIndexPrefix+save.PlayerName, save.SaveID)

	if _, err := pipe.Exec(ctx); err != nil {
		return nil, errors.Wrapf(err, "failed to create save")
	}

	return &CreateOutput{Save: save}, nil
}

func (r *redisRepository) Get(ctx context.Context, input GetInput) (*GetOutput, error) {
	if input.SaveID == "" {
		return nil, errors.InvalidArgument(errSaveIDEmpty)
	}

	result, err := r.client.Get(ctx, saveKeyPrefix+input.SaveID).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, errors.NotFoundf(errSaveNotFound, input.SaveID)
		}
		return nil, errors.Wrapf(err, "failed to get save")
	}

	save := &Save{}
	if err := json.Unmarshal([]byte(result), save); err != nil {
		return nil, errors.WrapWithCode(err, errors.CodeDataLoss, "failed to unmarshal save")
	}

	return &GetOutput{Save: save}, nil
}

func (r *redisRepository) ListByPlayer(ctx context.Context, input ListByPlayerInput) (*ListByPlayerOutput, error) {
	if input.PlayerName == "" {
		return nil, errors.InvalidArgument(errPlayerNameEmpty)
	}

	indexKey := playerIndexPrefix + input.PlayerName
	saveIDs, err := r.client.SMembers(ctx, indexKey).Result()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get saves from index %s", indexKey)
	}

	saves := make([]*Save, 0, len(saveIDs))
	for _, id := range saveIDs {
		out, err := r.Get(ctx, GetInput{SaveID: id})
		if err != nil {
			// expired or deleted elsewhere
			if errors.IsNotFound(err) {
				slog.WarnContext(ctx, "save not found, cleaning up index",
					"save_id", id,
					"index_key", indexKey)
				r.client.SRem(ctx, indexKey, id)
				continue
			}
			return nil, errors.Wrapf(err, "failed to get save %s", id)
		}
		saves = append(saves, out.Save)
	}

	sortSaves(saves)
	return &ListByPlayerOutput{Saves: saves}, nil
}

func (r *redisRepository) Delete(ctx context.Context, input DeleteInput) (*DeleteOutput, error) {
	if input.SaveID == "" {
		return nil, errors.InvalidArgument(errSaveIDEmpty)
	}

	existing, err := r.Get(ctx, GetInput{SaveID: input.SaveID})
	if err != nil {
		return nil, err
	}

	pipe := r.client.TxPipeline()
	pipe.Del(ctx, saveKeyPrefix+input.SaveID)
	pipe.SRem(ctx, playerIndexPrefix+existing.Save.PlayerName, input.SaveID)

	if _, err := pipe.Exec(ctx); err != nil {
		return nil, errors.Wrapf(err, "failed to delete save")
	}

	return &DeleteOutput{}, nil
}
