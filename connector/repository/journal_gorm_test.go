package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/VIER-CognitiveVoice/cvg-connect/connector/domain"
)

func setupTestJournal(t *testing.T) *JournalGormRepository {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	repo := NewJournalGormRepository(db)
	require.NoError(t, repo.InitSchema(context.Background()))
	return repo
}

func TestJournal_AppendFillsDefaults(t *testing.T) {
	repo := setupTestJournal(t)
	ctx := context.Background()

	event := &domain.DialogEvent{
		DialogID:  "d1",
		Direction: domain.DirectionInbound,
		Kind:      "message",
		Payload:   `{"text":"hi"}`,
	}
	require.NoError(t, repo.Append(ctx, event))

	assert.NotEmpty(t, event.ID)
	assert.False(t, event.CreatedAt.IsZero())
}

func TestJournal_ListByDialog(t *testing.T) {
	repo := setupTestJournal(t)
	ctx := context.Background()

	base := time.Now().Add(-time.Minute)
	for i, kind := range []string{"session", "message", "call_say"} {
		require.NoError(t, repo.Append(ctx, &domain.DialogEvent{
			DialogID:  "d1",
			Direction: domain.DirectionInbound,
			Kind:      kind,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}))
	}
	require.NoError(t, repo.Append(ctx, &domain.DialogEvent{
		DialogID:  "d-other",
		Direction: domain.DirectionInbound,
		Kind:      "message",
	}))

	events, err := repo.ListByDialog(ctx, "d1", 0)
	require.NoError(t, err)
	require.Len(t, events, 3)

	// Newest first.
	assert.Equal(t, "call_say", events[0].Kind)
	assert.Equal(t, "session", events[2].Kind)
}

func TestJournal_ListByDialogHonorsLimit(t *testing.T) {
	repo := setupTestJournal(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, repo.Append(ctx, &domain.DialogEvent{
			DialogID:  "d1",
			Direction: domain.DirectionOutbound,
			Kind:      "call_say",
			CreatedAt: time.Now().Add(time.Duration(i) * time.Millisecond),
		}))
	}

	events, err := repo.ListByDialog(ctx, "d1", 2)
	require.NoError(t, err)
	assert.Len(t, events, 2)
}

func TestJournal_EmptyDialog(t *testing.T) {
	repo := setupTestJournal(t)

	events, err := repo.ListByDialog(context.Background(), "missing", 10)
	require.NoError(t, err)
	assert.Empty(t, events)
}
