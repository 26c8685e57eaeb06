package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/alexanderramin/kalend/internal/domain"
	"github.com/alexanderramin/kalend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newConversationRepo(t *testing.T) *SQLiteConversationRepo {
	t.Helper()
	database := testutil.NewTestDB(t)
	return NewSQLiteConversationRepo(database, testutil.NewTestUoW(database))
}

func TestConversationRepo_Ensure_AllocatesID(t *testing.T) {
	repo := newConversationRepo(t)
	ctx := context.Background()

	s, err := repo.Ensure(ctx, "", "alice")
	require.NoError(t, err)
	assert.NotEmpty(t, s.ID)
	assert.Equal(t, "alice", s.UserID)

	again, err := repo.Ensure(ctx, s.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, s.ID, again.ID)
	assert.Equal(t, s.CreatedAt, again.CreatedAt)
}

func TestConversationRepo_AppendAndList_Ordered(t *testing.T) {
	repo := newConversationRepo(t)
	ctx := context.Background()

	s, err := repo.Ensure(ctx, "sess-1", "alice")
	require.NoError(t, err)

	require.NoError(t, repo.Append(ctx, s.ID,
		domain.NewTurn(domain.RoleUser, "what's on tomorrow?"),
		domain.NewTurn(domain.RoleModel, "Nothing yet."),
	))
	require.NoError(t, repo.Append(ctx, s.ID,
		domain.Turn{Role: domain.RoleUser, Parts: []string{"add gym", "at 7"}},
	))

	stored, err := repo.List(ctx, s.ID)
	require.NoError(t, err)
	require.Len(t, stored, 3)
	for i, st := range stored {
		assert.Equal(t, i+1, st.Seq)
		assert.Equal(t, s.ID, st.SessionID)
	}
	assert.Equal(t, []domain.Turn{
		domain.NewTurn(domain.RoleUser, "what's on tomorrow?"),
		domain.NewTurn(domain.RoleModel, "Nothing yet."),
		{Role: domain.RoleUser, Parts: []string{"add gym", "at 7"}},
	}, History(stored))
}

func TestConversationRepo_Append_UnknownSession(t *testing.T) {
	repo := newConversationRepo(t)

	err := repo.Append(context.Background(), "missing", domain.NewTurn(domain.RoleUser, "hi"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestConversationRepo_Append_RollsBackOnFailure(t *testing.T) {
	database := testutil.NewTestDB(t)
	ctx := context.Background()
	boom := errors.New("disk full")

	plain := NewSQLiteConversationRepo(database, testutil.NewTestUoW(database))
	_, err := plain.Ensure(ctx, "sess-rb", "alice")
	require.NoError(t, err)

	failing := NewSQLiteConversationRepo(database, &testutil.FailOnNthExecUoW{DB: database, FailOn: 2, Err: boom})
	err = failing.Append(ctx, "sess-rb",
		domain.NewTurn(domain.RoleUser, "one"),
		domain.NewTurn(domain.RoleModel, "two"),
	)
	require.ErrorIs(t, err, boom)

	stored, err := plain.List(ctx, "sess-rb")
	require.NoError(t, err)
	assert.Empty(t, stored, "first insert must be rolled back with the second")
}

func TestConversationRepo_SetPersonality(t *testing.T) {
	repo := newConversationRepo(t)
	ctx := context.Background()

	s, err := repo.Ensure(ctx, "sess-p", "alice")
	require.NoError(t, err)
	assert.Empty(t, s.Personality)

	require.NoError(t, repo.SetPersonality(ctx, s.ID, "pirate"))
	got, err := repo.Ensure(ctx, s.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, "pirate", got.Personality)

	assert.ErrorIs(t, repo.SetPersonality(ctx, "nope", "pirate"), ErrNotFound)
}
