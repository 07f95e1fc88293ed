package chat

import (
	"context"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holteng/minne/internal/models"
	"github.com/holteng/minne/internal/testutil"
)

func TestBuildTopicContext_NoReference(t *testing.T) {
	db := testutil.TestDB(t)

	block, ok, err := BuildTopicContext(context.Background(), db, "alice", nil)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, block)
}

func TestBuildTopicContext_NonNumericTopicID(t *testing.T) {
	db := testutil.TestDB(t)

	_, _, err := BuildTopicContext(context.Background(), db, "alice", &ContextRef{TopicID: "health"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidContextRef)
}

func TestBuildTopicContext_EmptyTopic(t *testing.T) {
	db := testutil.TestDB(t)
	topic := testutil.SeedTopicNotes(t, db, "alice", "empty", 0)

	block, ok, err := BuildTopicContext(context.Background(), db, "alice",
		&ContextRef{TopicID: strconv.FormatInt(topic.ID, 10)})
	require.NoError(t, err)
	assert.False(t, ok, "topic with no notes must not produce a block")
	assert.Empty(t, block)
}

func TestBuildTopicContext_FormatsNotes(t *testing.T) {
	db := testutil.TestDB(t)
	ctx := context.Background()

	topic := testutil.SeedTopicNotes(t, db, "alice", "health", 3)

	block, ok, err := BuildTopicContext(ctx, db, "alice",
		&ContextRef{TopicID: strconv.FormatInt(topic.ID, 10)})
	require.NoError(t, err)
	require.True(t, ok)

	assert.True(t, strings.HasPrefix(block, `Notes for topic "health":`), "header: %q", block)
	assert.Equal(t, 3, strings.Count(block, "NoteId:"))
	// Seeded notes are day-granularity, two days apart style dating.
	assert.Contains(t, block, "[2025-01-01→]")

	// Newest start first.
	first := strings.Index(block, "[2025-01-03→]")
	last := strings.Index(block, "[2025-01-01→]")
	assert.True(t, first >= 0 && first < last, "order in %q", block)
}

func TestBuildTopicContext_DeletedTopicPlaceholder(t *testing.T) {
	db := testutil.TestDB(t)
	ctx := context.Background()

	topic := testutil.SeedTopicNotes(t, db, "alice", "vanishing", 2)
	require.NoError(t, db.DeleteTopic(ctx, "alice", topic.ID))

	block, ok, err := BuildTopicContext(ctx, db, "alice",
		&ContextRef{TopicID: strconv.FormatInt(topic.ID, 10)})
	require.NoError(t, err)
	require.True(t, ok, "notes still reference the topic")
	assert.True(t, strings.HasPrefix(block, `Notes for topic "(deleted topic)":`), "header: %q", block)
}

func TestBuildTopicContext_OwnerScoped(t *testing.T) {
	db := testutil.TestDB(t)
	topic := testutil.SeedTopicNotes(t, db, "alice", "health", 2)

	block, ok, err := BuildTopicContext(context.Background(), db, "bob",
		&ContextRef{TopicID: strconv.FormatInt(topic.ID, 10)})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, block)
}

func TestFormatContextLine(t *testing.T) {
	start := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	end := time.Date(2025, 6, 3, 9, 0, 0, 0, time.UTC)
	g := models.GranularityDay

	timed := &models.Note{ID: 12, Content: "camping trip", StartTimestamp: &start, EndTimestamp: &end, Granularity: &g}
	assert.Equal(t, `- ["NoteId: 12"] [2025-06-01→2025-06-03] camping trip`, formatContextLine(timed))

	open := &models.Note{ID: 13, Content: "started course", StartTimestamp: &start, Granularity: &g}
	assert.Equal(t, `- ["NoteId: 13"] [2025-06-01→] started course`, formatContextLine(open))

	timeless := &models.Note{ID: 14, Content: "always carries epipen"}
	assert.Equal(t, `- ["NoteId: 14"] always carries epipen`, formatContextLine(timeless))
}
