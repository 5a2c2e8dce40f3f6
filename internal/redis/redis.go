package redis

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// Connect parses the redis URL and verifies the server answers. The same
// client backs the session store and the pub/sub bus.
func Connect(redisURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opt)
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}
	return client, nil
}
