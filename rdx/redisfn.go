package rdx

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Connect opens and pings a Redis connection.
func Connect(addr string) (*redis.Client, error) {
	conn := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := conn.Ping(ctx).Err(); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}
