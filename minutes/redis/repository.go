package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/minutesapp/minutes-pipeline/minutes"
	"github.com/redis/go-redis/v9"
)

/* Redis implementation of minutes.Repository
 * Uses Redis Hashes for minutes documents keyed by meeting ID and
 * plain TTL'd keys for processed webhook event IDs.
 */

const (
	hashPrefix  = "minutes"       // Hash naming: minutes:{meeting_id}
	eventPrefix = "minutes:event" // Dedup naming: minutes:event:{event_id}
)

type Repository struct {
	client *redis.Client
}

// NewRepository creates a new Redis repository
func NewRepository(addr, password string, db int) (*Repository, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to Redis: %w", err)
	}

	return &Repository{
		client: client,
	}, nil
}

// Save persists the minutes document for a meeting and bumps its version
func (r *Repository) Save(ctx context.Context, m minutes.Minutes, meetingID string) (minutes.SaveReceipt, error) {
	if meetingID == "" {
		return minutes.SaveReceipt{}, fmt.Errorf("meeting ID is required")
	}

	doc, err := json.Marshal(m)
	if err != nil {
		return minutes.SaveReceipt{}, fmt.Errorf("marshaling minutes: %w", err)
	}

	hashKey := fmt.Sprintf("%s:%s", hashPrefix, meetingID)

	version, err := r.client.HIncrBy(ctx, hashKey, "version", 1).Result()
	if err != nil {
		return minutes.SaveReceipt{}, fmt.Errorf("incrementing minutes version: %w", err)
	}

	err = r.client.HSet(ctx, hashKey, map[string]interface{}{
		"meeting_id": meetingID,
		"document":   doc,
		"updated_at": time.Now().Unix(),
	}).Err()
	if err != nil {
		return minutes.SaveReceipt{}, fmt.Errorf("storing minutes document: %w", err)
	}

	return minutes.SaveReceipt{
		RecordID: fmt.Sprintf("%s:%s:v%d", hashPrefix, meetingID, version),
		Version:  int(version),
	}, nil
}

// Get retrieves the latest minutes document for a meeting
func (r *Repository) Get(ctx context.Context, meetingID string) (minutes.Minutes, error) {
	hashKey := fmt.Sprintf("%s:%s", hashPrefix, meetingID)

	doc, err := r.client.HGet(ctx, hashKey, "document").Result()
	if err == redis.Nil {
		return minutes.Minutes{}, fmt.Errorf("minutes not found for meeting: %s", meetingID)
	}
	if err != nil {
		return minutes.Minutes{}, fmt.Errorf("getting minutes document: %w", err)
	}

	var m minutes.Minutes
	if err := json.Unmarshal([]byte(doc), &m); err != nil {
		return minutes.Minutes{}, fmt.Errorf("unmarshaling minutes document: %w", err)
	}

	return m, nil
}

// IsProcessed reports whether a webhook event ID was already handled
func (r *Repository) IsProcessed(ctx context.Context, eventID string) (bool, error) {
	key := fmt.Sprintf("%s:%s", eventPrefix, eventID)

	exists, err := r.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("checking processed event: %w", err)
	}

	return exists > 0, nil
}

// MarkProcessed records a webhook event ID with an expiry so the set
// of seen events does not grow without bound
func (r *Repository) MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) error {
	key := fmt.Sprintf("%s:%s", eventPrefix, eventID)

	if err := r.client.Set(ctx, key, time.Now().Unix(), ttl).Err(); err != nil {
		return fmt.Errorf("marking event processed: %w", err)
	}

	return nil
}

// Close closes the Redis connection
func (r *Repository) Close(ctx context.Context) error {
	return r.client.Close()
}
