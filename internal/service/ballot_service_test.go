package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"polls-be/internal/domain"
	"polls-be/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestBallotService_CastVote(t *testing.T) {
	ctx := context.Background()

	t.Run("records and returns the vote id", func(t *testing.T) {
		env := newTestEnv(t, false)
		poll := env.createPoll(t, "Q", "A", "B")

		outcome := env.ballots.CastVote(ctx, poll.ID, poll.Options[0].ID, "10.0.0.1")
		assert.True(t, outcome.Success)
		assert.Equal(t, domain.OutcomeRecorded, outcome.Kind)
		_, err := uuid.Parse(outcome.VoteID)
		assert.NoError(t, err)

		got, _ := env.polls.GetPoll(ctx, poll.ID)
		assert.Equal(t, int64(1), got.Options[0].VoteCount)
		assert.Equal(t, int64(0), got.Options[1].VoteCount)
	})

	t.Run("second vote is a duplicate and changes nothing", func(t *testing.T) {
		env := newTestEnv(t, false)
		poll := env.createPoll(t, "Q", "A", "B")

		require.True(t, env.ballots.CastVote(ctx, poll.ID, poll.Options[0].ID, "voter").Success)

		for _, optionID := range []int64{poll.Options[0].ID, poll.Options[1].ID, 9999} {
			outcome := env.ballots.CastVote(ctx, poll.ID, optionID, "voter")
			assert.False(t, outcome.Success)
			assert.True(t, outcome.IsDuplicate())
			assert.Empty(t, outcome.VoteID)
		}

		got, _ := env.polls.GetPoll(ctx, poll.ID)
		assert.Equal(t, int64(1), got.Options[0].VoteCount)
		assert.Equal(t, int64(0), got.Options[1].VoteCount)
	})

	t.Run("validation outcomes", func(t *testing.T) {
		env := newTestEnv(t, false)
		poll := env.createPoll(t, "Q", "A", "B")
		other := env.createPoll(t, "Other", "C", "D")
		closed := env.createPoll(t, "Closed", "E", "F")
		require.NoError(t, env.polls.ClosePoll(ctx, closed.ID))

		tests := []struct {
			name     string
			pollID   int64
			optionID int64
			voterID  string
			kind     domain.OutcomeKind
		}{
			{"unknown poll", 12345, poll.Options[0].ID, "v1", domain.OutcomePollNotFound},
			{"closed poll", closed.ID, closed.Options[0].ID, "v2", domain.OutcomePollClosed},
			{"option from another poll", poll.ID, other.Options[0].ID, "v3", domain.OutcomeInvalidOption},
			{"unknown option", poll.ID, 12345, "v4", domain.OutcomeInvalidOption},
			{"blank voter", poll.ID, poll.Options[0].ID, "   ", domain.OutcomeInvalidVoter},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				outcome := env.ballots.CastVote(ctx, tt.pollID, tt.optionID, tt.voterID)
				assert.False(t, outcome.Success)
				assert.Equal(t, tt.kind, outcome.Kind)
				assert.True(t, outcome.IsValidationFailure())
				assert.False(t, outcome.IsDuplicate())
			})
		}

		stats, err := env.ballots.GetStats(ctx, poll.ID)
		require.NoError(t, err)
		assert.Zero(t, stats.TotalVotes)
	})

	t.Run("expired poll is closed for voting", func(t *testing.T) {
		env := newTestEnv(t, false)
		ends := time.Now().Add(time.Hour)
		id, err := env.polls.CreatePoll(ctx, "Q", "", []string{"A", "B"}, &ends)
		require.NoError(t, err)
		poll, _ := env.polls.GetPoll(ctx, id)

		env.ballots.now = func() time.Time { return ends.Add(time.Minute) }
		outcome := env.ballots.CastVote(ctx, id, poll.Options[0].ID, "late")
		assert.Equal(t, domain.OutcomePollClosed, outcome.Kind)
	})

	t.Run("storage failure is a generic error", func(t *testing.T) {
		env := newTestEnv(t, false)
		poll := env.createPoll(t, "Q", "A", "B")
		votes := &failingVotes{VoteRepository: env.store, recordErr: errors.New("connection refused")}
		ballots := NewBallotService(&repository.Repositories{Polls: env.store, Votes: votes}, env.cache, zap.NewNop())

		outcome := ballots.CastVote(ctx, poll.ID, poll.Options[0].ID, "voter")
		assert.False(t, outcome.Success)
		assert.Equal(t, domain.OutcomeError, outcome.Kind)
		assert.False(t, outcome.IsValidationFailure())
		assert.Empty(t, outcome.VoteID)
	})

	t.Run("failed duplicate check is a generic error", func(t *testing.T) {
		env := newTestEnv(t, false)
		poll := env.createPoll(t, "Q", "A", "B")
		votes := &failingVotes{VoteRepository: env.store, hasVotedErr: errors.New("timeout")}
		ballots := NewBallotService(&repository.Repositories{Polls: env.store, Votes: votes}, env.cache, zap.NewNop())

		outcome := ballots.CastVote(ctx, poll.ID, poll.Options[0].ID, "voter")
		assert.Equal(t, domain.OutcomeError, outcome.Kind)
	})

	t.Run("store duplicate maps to already voted", func(t *testing.T) {
		env := newTestEnv(t, false)
		poll := env.createPoll(t, "Q", "A", "B")
		votes := &failingVotes{VoteRepository: env.store, recordErr: fmt.Errorf("insert vote: %w", domain.ErrAlreadyVoted)}
		ballots := NewBallotService(&repository.Repositories{Polls: env.store, Votes: votes}, env.cache, zap.NewNop())

		outcome := ballots.CastVote(ctx, poll.ID, poll.Options[0].ID, "voter")
		assert.True(t, outcome.IsDuplicate())
	})
}

func TestBallotService_ConcurrentVotesFromOneVoter(t *testing.T) {
	for _, withRedis := range []bool{false, true} {
		t.Run(fmt.Sprintf("redis=%v", withRedis), func(t *testing.T) {
			ctx := context.Background()
			env := newTestEnv(t, withRedis)
			poll := env.createPoll(t, "Race", "A", "B")
			target := poll.Options[1].ID

			const k = 25
			outcomes := make([]domain.VoteOutcome, k)
			start := make(chan struct{})
			var wg sync.WaitGroup
			for i := 0; i < k; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					<-start
					outcomes[i] = env.ballots.CastVote(ctx, poll.ID, target, "same-voter")
				}(i)
			}
			close(start)
			wg.Wait()

			successes, duplicates := 0, 0
			for _, o := range outcomes {
				switch {
				case o.Success:
					successes++
				case o.IsDuplicate():
					duplicates++
				default:
					t.Errorf("unexpected outcome %q", o.Kind)
				}
			}
			assert.Equal(t, 1, successes)
			assert.Equal(t, k-1, duplicates)

			got, _ := env.polls.GetPoll(ctx, poll.ID)
			assert.Equal(t, int64(1), got.Options[1].VoteCount)
			assert.Equal(t, int64(0), got.Options[0].VoteCount)
			assert.Equal(t, int64(1), env.store.CountVotes(poll.ID, target))
		})
	}
}

func TestBallotService_HasVoted(t *testing.T) {
	ctx := context.Background()

	t.Run("agrees with cast vote", func(t *testing.T) {
		env := newTestEnv(t, false)
		poll := env.createPoll(t, "Q", "A", "B")

		voted, err := env.ballots.HasVoted(ctx, poll.ID, "voter")
		require.NoError(t, err)
		assert.False(t, voted)

		require.True(t, env.ballots.CastVote(ctx, poll.ID, poll.Options[0].ID, "voter").Success)

		voted, err = env.ballots.HasVoted(ctx, poll.ID, "voter")
		require.NoError(t, err)
		assert.True(t, voted)

		voted, err = env.ballots.HasVoted(ctx, poll.ID, "someone-else")
		require.NoError(t, err)
		assert.False(t, voted)
	})

	t.Run("blank voter has not voted", func(t *testing.T) {
		env := newTestEnv(t, false)
		voted, err := env.ballots.HasVoted(ctx, 1, "  ")
		require.NoError(t, err)
		assert.False(t, voted)
	})

	t.Run("cast vote writes the voter marker", func(t *testing.T) {
		env := newTestEnv(t, true)
		poll := env.createPoll(t, "Q", "A", "B")
		key := env.rdb.KeyBuilder.KeyVoterVoted(poll.ID, poll.CreatedAt.UnixNano(), "voter")

		require.True(t, env.ballots.CastVote(ctx, poll.ID, poll.Options[0].ID, "voter").Success)
		assert.True(t, env.mr.Exists(key))
		ttl := env.mr.TTL(key)
		assert.Equal(t, time.Hour, ttl)
	})

	t.Run("store error surfaces", func(t *testing.T) {
		env := newTestEnv(t, false)
		poll := env.createPoll(t, "Q", "A", "B")
		votes := &failingVotes{VoteRepository: env.store, hasVotedErr: errors.New("boom")}
		ballots := NewBallotService(&repository.Repositories{Polls: env.store, Votes: votes}, env.cache, zap.NewNop())

		_, err := ballots.HasVoted(ctx, poll.ID, "voter")
		assert.Error(t, err)
	})

	t.Run("unknown poll has no voters", func(t *testing.T) {
		env := newTestEnv(t, true)
		voted, err := env.ballots.HasVoted(ctx, 404, "voter")
		require.NoError(t, err)
		assert.False(t, voted)
	})
}

func TestBallotService_GetStats(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, false)
	poll := env.createPoll(t, "Q", "A", "B")

	stats, err := env.ballots.GetStats(ctx, poll.ID)
	require.NoError(t, err)
	assert.Equal(t, poll.ID, stats.PollID)
	assert.Zero(t, stats.UniqueVoters)
	assert.Zero(t, stats.TotalVotes)
	assert.Nil(t, stats.FirstVoteAt)
	assert.Nil(t, stats.LastVoteAt)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, voter := range []string{"a", "b", "c"} {
		at := base.Add(time.Duration(i) * time.Minute)
		env.ballots.now = func() time.Time { return at }
		require.True(t, env.ballots.CastVote(ctx, poll.ID, poll.Options[i%2].ID, voter).Success)
	}

	stats, err = env.ballots.GetStats(ctx, poll.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.UniqueVoters)
	assert.Equal(t, int64(3), stats.TotalVotes)
	require.NotNil(t, stats.FirstVoteAt)
	require.NotNil(t, stats.LastVoteAt)
	assert.Equal(t, base, *stats.FirstVoteAt)
	assert.Equal(t, base.Add(2*time.Minute), *stats.LastVoteAt)

	unknown, err := env.ballots.GetStats(ctx, 999)
	require.NoError(t, err)
	assert.Zero(t, unknown.TotalVotes)
}
