package bot

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eliseohh/grammarbot/internal/chatconfig"
	"github.com/eliseohh/grammarbot/internal/command"
	"github.com/eliseohh/grammarbot/internal/grammar"
	"github.com/eliseohh/grammarbot/internal/metrics"
	"github.com/eliseohh/grammarbot/internal/review"
	"github.com/eliseohh/grammarbot/internal/store"
)

// racyRepo lets another writer update the record right before each of the
// first `races` Puts, so those Puts hit a version conflict.
type racyRepo struct {
	*store.MemoryStore
	races  int
	always bool
	puts   int
}

func (r *racyRepo) Put(ctx context.Context, key string, cfg *chatconfig.ChatConfig) error {
	r.puts++
	if cfg.Version != 0 && (r.always || r.races > 0) {
		r.races--
		other, err := r.MemoryStore.Get(ctx, key)
		if err != nil {
			return err
		}
		other.AddWord("other")
		if err := r.MemoryStore.Put(ctx, key, other); err != nil {
			return err
		}
	}
	return r.MemoryStore.Put(ctx, key, cfg)
}

func newService(repo store.Repository) *Service {
	rv := review.NewReviewer(grammar.NewRegistry(grammar.NewInternalChecker()), nil, nil)
	return NewService(repo, command.New("GrammarBot"), rv, metrics.New(), nil)
}

func adminReq(text string) command.Request {
	return command.Request{Text: text, Prefix: "/", IsAdmin: true}
}

func TestHandleCommand(t *testing.T) {
	ctx := context.Background()
	repo := store.NewMemoryStore()
	s := newService(repo)
	key := chatconfig.Key(chatconfig.PlatformTelegram, 42)

	t.Run("first command creates config", func(t *testing.T) {
		res, err := s.HandleCommand(ctx, key, adminReq("/start"))
		require.NoError(t, err)
		assert.Contains(t, res.Reply, "Hi, I'm GrammarBot.")

		cfg, err := repo.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, int64(1), cfg.Version)
	})

	t.Run("mutation is persisted", func(t *testing.T) {
		res, err := s.HandleCommand(ctx, key, adminReq("/language 1"))
		require.NoError(t, err)
		assert.Equal(t, "Language updated.", res.Reply)

		cfg, err := repo.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, chatconfig.English, cfg.Language)
		assert.Equal(t, int64(2), cfg.Version)
	})

	t.Run("denied is not persisted", func(t *testing.T) {
		res, err := s.HandleCommand(ctx, key, command.Request{Text: "/stop", Prefix: "/"})
		require.NoError(t, err)
		assert.True(t, res.Denied)

		cfg, err := repo.Get(ctx, key)
		require.NoError(t, err)
		assert.False(t, cfg.Stopped)
	})

	t.Run("plain text never touches the store", func(t *testing.T) {
		other := chatconfig.Key(chatconfig.PlatformTelegram, 7)
		res, err := s.HandleCommand(ctx, other, adminReq("just chatting"))
		require.NoError(t, err)
		assert.False(t, res.Handled)

		_, err = repo.Get(ctx, other)
		assert.ErrorIs(t, err, store.ErrNotFound)
	})
}

func TestUnhandledInputLeavesChatFresh(t *testing.T) {
	ctx := context.Background()
	repo := store.NewMemoryStore()
	s := newService(repo)
	key := chatconfig.Key(chatconfig.PlatformTelegram, 99)

	for _, text := range []string{"/unknown", "/stop@other_bot", "/"} {
		res, err := s.HandleCommand(ctx, key, adminReq(text))
		require.NoError(t, err)
		assert.False(t, res.Handled, text)
	}
	res, err := s.HandleCallback(ctx, key, "junk", true)
	require.NoError(t, err)
	assert.False(t, res.Handled)

	_, err = repo.Get(ctx, key)
	require.ErrorIs(t, err, store.ErrNotFound)

	res, err = s.HandleCommand(ctx, key, adminReq("/start"))
	require.NoError(t, err)
	assert.Contains(t, res.Reply, "Hi, I'm GrammarBot.")
}

func TestHandleCommandRetriesOnConflict(t *testing.T) {
	ctx := context.Background()
	key := chatconfig.Key(chatconfig.PlatformDiscord, "123")

	repo := &racyRepo{MemoryStore: store.NewMemoryStore()}
	s := newService(repo)
	_, _, err := store.GetOrCreate(ctx, repo, key)
	require.NoError(t, err)

	repo.races = 1
	res, err := s.HandleCommand(ctx, key, adminReq("/add_whitelist mine"))
	require.NoError(t, err)
	assert.Contains(t, res.Reply, "added to the WhiteList")

	cfg, err := repo.Get(ctx, key)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"other", "mine"}, cfg.Whitelist)

	repo.always = true
	_, err = s.HandleCommand(ctx, key, adminReq("/add_whitelist again"))
	assert.ErrorIs(t, err, store.ErrVersionConflict)
}

func TestHandleCallback(t *testing.T) {
	ctx := context.Background()
	repo := store.NewMemoryStore()
	s := newService(repo)
	key := chatconfig.Key(chatconfig.PlatformTelegram, 1)

	res, err := s.HandleCallback(ctx, key, "algorithm:1", true)
	require.NoError(t, err)
	assert.Equal(t, "Algorithm updated.", res.Reply)

	cfg, err := repo.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, chatconfig.InternalAlgorithm, cfg.Algorithm)
}

func TestReviewAndForget(t *testing.T) {
	ctx := context.Background()
	repo := store.NewMemoryStore()
	s := newService(repo)
	key := chatconfig.Key(chatconfig.PlatformTelegram, 5)

	_, err := s.HandleCommand(ctx, key, adminReq("/set_algorithm 1"))
	require.NoError(t, err)
	_, err = s.HandleCommand(ctx, key, adminReq("/language 1"))
	require.NoError(t, err)

	r, err := s.Review(ctx, key, "I recieve teh mail")
	require.NoError(t, err)
	assert.Equal(t, "*receive [Possible spelling mistake]\n*the [Possible spelling mistake]", r.Reply())

	require.NoError(t, s.Forget(ctx, key))
	_, err = repo.Get(ctx, key)
	assert.ErrorIs(t, err, store.ErrNotFound)
}
