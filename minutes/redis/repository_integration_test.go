//go:build integration

package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/minutesapp/minutes-pipeline/minutes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMinutes(meetingID string) minutes.Minutes {
	return minutes.Minutes{
		Summary: "The team agreed to ship on Friday.",
		Topics: []minutes.Topic{
			{Title: "Release", Points: []string{"Ship on Friday", "Freeze on Thursday"}},
		},
		Decisions: []string{"Ship on Friday"},
		ActionItems: []minutes.ActionItem{
			{Description: "Prepare release notes", Assignee: "Bob", DueDate: "2026-09-04"},
		},
		Attendees: []string{"Alice", "Bob"},
		Metadata: minutes.Metadata{
			MeetingID:   meetingID,
			Topic:       "Planning",
			GeneratedAt: time.Now().UTC().Truncate(time.Second),
			Model:       "gpt-4o-mini",
		},
	}
}

func TestRepository_Save_Integration(t *testing.T) {
	ctx := context.Background()

	t.Run("save minutes in Redis", func(t *testing.T) {
		redisContainer, cleanup := SetupRedisContainer(t, ctx)
		defer cleanup()

		repo := CreateTestRepository(t, redisContainer.Addr)
		defer repo.Close(ctx)

		receipt, err := repo.Save(ctx, testMinutes("mtg-1"), "mtg-1")

		require.NoError(t, err)
		assert.Equal(t, "minutes:mtg-1:v1", receipt.RecordID)
		assert.Equal(t, 1, receipt.Version)
		assert.True(t, KeyExists(t, redisContainer.Addr, "minutes:mtg-1"))
	})

	t.Run("save and retrieve minutes", func(t *testing.T) {
		redisContainer, cleanup := SetupRedisContainer(t, ctx)
		defer cleanup()

		repo := CreateTestRepository(t, redisContainer.Addr)
		defer repo.Close(ctx)

		m := testMinutes("mtg-2")
		_, err := repo.Save(ctx, m, "mtg-2")
		require.NoError(t, err)

		retrieved, err := repo.Get(ctx, "mtg-2")
		require.NoError(t, err)

		assert.Equal(t, m.Summary, retrieved.Summary)
		assert.Equal(t, m.Topics, retrieved.Topics)
		assert.Equal(t, m.Decisions, retrieved.Decisions)
		assert.Equal(t, m.ActionItems, retrieved.ActionItems)
		assert.Equal(t, m.Attendees, retrieved.Attendees)
		assert.Equal(t, m.Metadata.MeetingID, retrieved.Metadata.MeetingID)
		assert.Equal(t, m.Metadata.Model, retrieved.Metadata.Model)
	})

	t.Run("saving again bumps the version", func(t *testing.T) {
		redisContainer, cleanup := SetupRedisContainer(t, ctx)
		defer cleanup()

		repo := CreateTestRepository(t, redisContainer.Addr)
		defer repo.Close(ctx)

		first, err := repo.Save(ctx, testMinutes("mtg-3"), "mtg-3")
		require.NoError(t, err)

		updated := testMinutes("mtg-3")
		updated.Summary = "Revised after review."
		second, err := repo.Save(ctx, updated, "mtg-3")
		require.NoError(t, err)

		assert.Equal(t, 1, first.Version)
		assert.Equal(t, 2, second.Version)
		assert.Equal(t, "minutes:mtg-3:v2", second.RecordID)

		retrieved, err := repo.Get(ctx, "mtg-3")
		require.NoError(t, err)
		assert.Equal(t, "Revised after review.", retrieved.Summary)
	})

	t.Run("empty meeting ID rejected", func(t *testing.T) {
		redisContainer, cleanup := SetupRedisContainer(t, ctx)
		defer cleanup()

		repo := CreateTestRepository(t, redisContainer.Addr)
		defer repo.Close(ctx)

		_, err := repo.Save(ctx, testMinutes(""), "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "meeting ID is required")
	})

	t.Run("get missing minutes", func(t *testing.T) {
		redisContainer, cleanup := SetupRedisContainer(t, ctx)
		defer cleanup()

		repo := CreateTestRepository(t, redisContainer.Addr)
		defer repo.Close(ctx)

		_, err := repo.Get(ctx, "mtg-does-not-exist")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "minutes not found")
	})
}

func TestRepository_Dedup_Integration(t *testing.T) {
	ctx := context.Background()

	t.Run("mark and check processed event", func(t *testing.T) {
		redisContainer, cleanup := SetupRedisContainer(t, ctx)
		defer cleanup()

		repo := CreateTestRepository(t, redisContainer.Addr)
		defer repo.Close(ctx)

		eventID := GenerateEventID(t, 1)

		processed, err := repo.IsProcessed(ctx, eventID)
		require.NoError(t, err)
		assert.False(t, processed)

		require.NoError(t, repo.MarkProcessed(ctx, eventID, time.Hour))

		processed, err = repo.IsProcessed(ctx, eventID)
		require.NoError(t, err)
		assert.True(t, processed)
	})

	t.Run("processed marker carries a TTL", func(t *testing.T) {
		redisContainer, cleanup := SetupRedisContainer(t, ctx)
		defer cleanup()

		repo := CreateTestRepository(t, redisContainer.Addr)
		defer repo.Close(ctx)

		eventID := GenerateEventID(t, 2)
		require.NoError(t, repo.MarkProcessed(ctx, eventID, time.Hour))

		ttl := GetKeyTTL(t, redisContainer.Addr, "minutes:event:"+eventID)
		assert.Greater(t, ttl, int64(3500))
		assert.LessOrEqual(t, ttl, int64(3600))
	})

	t.Run("expired marker disappears", func(t *testing.T) {
		redisContainer, cleanup := SetupRedisContainer(t, ctx)
		defer cleanup()

		repo := CreateTestRepository(t, redisContainer.Addr)
		defer repo.Close(ctx)

		eventID := GenerateEventID(t, 3)
		require.NoError(t, repo.MarkProcessed(ctx, eventID, time.Second))

		time.Sleep(1500 * time.Millisecond)

		processed, err := repo.IsProcessed(ctx, eventID)
		require.NoError(t, err)
		assert.False(t, processed)
	})
}
