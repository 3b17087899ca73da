package lib

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"flamengo/src/types"

	"github.com/redis/go-redis/v9"
)

var redisClient *redis.Client

func GetRedisClient() *redis.Client {
	if redisClient != nil {
		return redisClient
	}
	redisHost := os.Getenv("REDIS_HOST")
	opt, err := redis.ParseURL(redisHost)
	if err != nil {
		log.Printf("[redis] Error parsing connection string: %s\n", err.Error())
		return nil
	}
	rdb := redis.NewClient(opt)
	redisClient = rdb
	return rdb
}

// NewRedisClient Replace redis instance with custom client implementation
func NewRedisClient(c *redis.Client) *redis.Client {
	redisClient = c
	return redisClient
}

func seatMapKey(onibusId string) string {
	return fmt.Sprintf("onibus:%s:seats", onibusId)
}

// CacheSeatMap stores the reserved-seat list for an onibus. Entries are
// short-lived; every reservation mutation drops the key anyway.
func CacheSeatMap(ctx context.Context, onibusId string, seats types.SeatList) {
	rdb := GetRedisClient()
	if rdb == nil {
		return
	}
	b, err := json.Marshal(seats)
	if err != nil {
		return
	}
	if err := rdb.Set(ctx, seatMapKey(onibusId), string(b), 5*time.Minute).Err(); err != nil {
		log.Printf("[redis] Failed to cache seat map for %s: %s\n", onibusId, err.Error())
	}
}

// GetCachedSeatMap returns the cached reserved-seat list, or nil on a miss.
func GetCachedSeatMap(ctx context.Context, onibusId string) types.SeatList {
	rdb := GetRedisClient()
	if rdb == nil {
		return nil
	}
	val, err := rdb.Get(ctx, seatMapKey(onibusId)).Result()
	if err == redis.Nil {
		return nil
	} else if err != nil {
		log.Printf("[redis] Error retrieving seat map for %s: %s\n", onibusId, err.Error())
		return nil
	}
	var seats types.SeatList
	if err := json.Unmarshal([]byte(val), &seats); err != nil {
		return nil
	}
	return seats
}

// InvalidateSeatMap drops the cached seat list for an onibus.
func InvalidateSeatMap(ctx context.Context, onibusId string) {
	rdb := GetRedisClient()
	if rdb == nil {
		return
	}
	if err := rdb.Del(ctx, seatMapKey(onibusId)).Err(); err != nil {
		log.Printf("[redis] Failed to invalidate seat map for %s: %s\n", onibusId, err.Error())
	}
}
