package redis

import (
	"github.com/redis/go-redis/v9"
)

// Client is the redis surface the save repository depends on.
type Client interface {
	redis.UniversalClient
}
