package redis

import (
	redis_models "Soundcheck/models/redis"
	redis_utils "Soundcheck/services/redis/utils"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisClient handles Redis operations
type RedisClient struct {
	client *redis.Client
	ctx    context.Context
}

// NewRedisClient creates a new Redis client instance
func NewRedisClient(Addr string, DB int) *RedisClient {
	var client *redis.Client
	if Addr != "localhost:6379" {
		log.Println("Connecting to remote Redis...")
		opt, err := redis.ParseURL(Addr)
		if err != nil {
			panic("Error parsing Redis URL")
		}
		client = redis.NewClient(opt)
	} else {
		client = redis.NewClient(&redis.Options{
			Addr: Addr,
			DB:   DB,
		})
	}
	return &RedisClient{
		client: client,
		ctx:    context.Background(),
	}
}

// NextSeq atomically allocates the next broadcast sequence number for a
// session. Redis INCR is the cross-process source of the per-session total
// order, so two instances of this core can never hand out the same number.
func (rc *RedisClient) NextSeq(sessionID string) (int64, error) {
	key := redis_utils.FormatSessionSeqKey(sessionID)
	seq, err := rc.client.Incr(rc.ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("error allocating sequence number: %v", err)
	}
	return seq, nil
}

// CurrentSeq returns the last allocated sequence number (0 if none yet).
func (rc *RedisClient) CurrentSeq(sessionID string) (int64, error) {
	key := redis_utils.FormatSessionSeqKey(sessionID)
	val, err := rc.client.Get(rc.ctx, key).Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("error reading sequence number: %v", err)
	}
	seq, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("error parsing sequence number: %v", err)
	}
	return seq, nil
}

// SaveSnapshot caches the latest committed snapshot for reconnect catch-up
// Key format: "session:{id}:snapshot"
// TTL: 24 hours
func (rc *RedisClient) SaveSnapshot(snapshot *redis_models.SessionSnapshot) error {
	key := redis_utils.FormatSessionSnapshotKey(snapshot.SessionID)
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("error marshaling snapshot: %v", err)
	}
	return rc.client.Set(rc.ctx, key, data, 24*time.Hour).Err()
}

// GetSnapshot retrieves the cached snapshot, or (nil, nil) when the cache is
// cold and the caller must rebuild from the store.
func (rc *RedisClient) GetSnapshot(sessionID string) (*redis_models.SessionSnapshot, error) {
	key := redis_utils.FormatSessionSnapshotKey(sessionID)
	data, err := rc.client.Get(rc.ctx, key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error getting snapshot: %v", err)
	}
	var snapshot redis_models.SessionSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("error unmarshaling snapshot: %v", err)
	}
	return &snapshot, nil
}

// PublishSnapshot fans a committed snapshot out on the shared events channel.
// Every process (including this one) re-emits it to its local subscribers.
func (rc *RedisClient) PublishSnapshot(snapshot *redis_models.SessionSnapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("error marshaling snapshot: %v", err)
	}
	return rc.client.Publish(rc.ctx, redis_utils.FormatSessionEventsChannel(), data).Err()
}

// SubscribeSnapshots subscribes to the events channel and decodes each
// message into the handler until ctx is cancelled.
func (rc *RedisClient) SubscribeSnapshots(ctx context.Context, handler func(*redis_models.SessionSnapshot)) error {
	pubsub := rc.client.Subscribe(ctx, redis_utils.FormatSessionEventsChannel())
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var snapshot redis_models.SessionSnapshot
			if err := json.Unmarshal([]byte(msg.Payload), &snapshot); err != nil {
				log.Printf("[PUBSUB-ERROR] Dropping malformed snapshot: %v", err)
				continue
			}
			handler(&snapshot)
		}
	}
}

// UpdateLeaderboard replaces the session's leaderboard ZSET with the given
// roster. Members are player numbers (stable ints), scores are game scores.
// Key format: "session:{id}:leaderboard"
func (rc *RedisClient) UpdateLeaderboard(sessionID string, roster []redis_models.RosterEntry) error {
	key := redis_utils.FormatSessionLeaderboardKey(sessionID)
	pipe := rc.client.TxPipeline()
	pipe.Del(rc.ctx, key)
	for _, entry := range roster {
		pipe.ZAdd(rc.ctx, key, redis.Z{
			Score:  float64(entry.Score),
			Member: strconv.Itoa(entry.PlayerNumber),
		})
	}
	pipe.Expire(rc.ctx, key, 24*time.Hour)
	if _, err := pipe.Exec(rc.ctx); err != nil {
		return fmt.Errorf("error updating leaderboard: %v", err)
	}
	return nil
}

// GetLeaderboard returns player numbers ordered best-to-worst with their
// scores. Callers resolve numbers to names via the roster.
func (rc *RedisClient) GetLeaderboard(sessionID string) (map[int]int, []int, error) {
	if rc == nil || rc.client == nil {
		return nil, nil, fmt.Errorf("redis not connected")
	}
	key := redis_utils.FormatSessionLeaderboardKey(sessionID)
	entries, err := rc.client.ZRevRangeWithScores(rc.ctx, key, 0, -1).Result()
	if err != nil {
		return nil, nil, fmt.Errorf("error reading leaderboard: %v", err)
	}
	scores := make(map[int]int, len(entries))
	order := make([]int, 0, len(entries))
	for _, z := range entries {
		number, err := strconv.Atoi(fmt.Sprint(z.Member))
		if err != nil {
			continue
		}
		scores[number] = int(z.Score)
		order = append(order, number)
	}
	return scores, order, nil
}
