package service

import (
	"context"
	"testing"
	"time"

	"polls-be/internal/domain"
	"polls-be/internal/repository"
	"polls-be/pkg/redis"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testEnv struct {
	store   *repository.MemoryStore
	mr      *miniredis.Miniredis
	rdb     *redis.Client
	cache   *VoterCache
	polls   *PollService
	ballots *BallotService
	results *ResultsService
}

func newTestEnv(t *testing.T, withRedis bool) *testEnv {
	t.Helper()
	env := &testEnv{store: repository.NewMemoryStore()}

	if withRedis {
		env.mr = miniredis.RunT(t)
		client, err := redis.NewClient("redis://"+env.mr.Addr(), "test", zap.NewNop())
		require.NoError(t, err)
		t.Cleanup(func() { _ = client.Close() })
		env.rdb = client
	}

	env.cache = NewVoterCache(env.rdb, time.Hour, zap.NewNop())
	repos := &repository.Repositories{Polls: env.store, Votes: env.store}
	env.polls = NewPollService(env.store, zap.NewNop())
	env.ballots = NewBallotService(repos, env.cache, zap.NewNop())
	env.results = NewResultsService(env.polls, env.ballots)
	return env
}

// createPoll creates a poll and returns it with its options loaded
func (e *testEnv) createPoll(t *testing.T, title string, options ...string) *domain.Poll {
	t.Helper()
	ctx := context.Background()
	id, err := e.polls.CreatePoll(ctx, title, "", options, nil)
	require.NoError(t, err)
	poll, err := e.polls.GetPoll(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, poll)
	return poll
}

// failingVotes injects storage errors in front of a real vote repository
type failingVotes struct {
	repository.VoteRepository
	hasVotedErr error
	recordErr   error
	statsErr    error
}

func (f *failingVotes) HasVoted(ctx context.Context, pollID int64, voterID string) (bool, error) {
	if f.hasVotedErr != nil {
		return false, f.hasVotedErr
	}
	return f.VoteRepository.HasVoted(ctx, pollID, voterID)
}

func (f *failingVotes) Record(ctx context.Context, vote *domain.Vote) error {
	if f.recordErr != nil {
		return f.recordErr
	}
	return f.VoteRepository.Record(ctx, vote)
}

func (f *failingVotes) Stats(ctx context.Context, pollID int64) (*domain.VoteStats, error) {
	if f.statsErr != nil {
		return nil, f.statsErr
	}
	return f.VoteRepository.Stats(ctx, pollID)
}
