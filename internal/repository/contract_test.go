package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"polls-be/internal/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type store interface {
	PollRepository
	VoteRepository
}

func newVote(pollID, optionID int64, voterID string, at time.Time) *domain.Vote {
	return &domain.Vote{
		ID:       uuid.New(),
		PollID:   pollID,
		OptionID: optionID,
		VoterID:  voterID,
		VotedAt:  at,
	}
}

// runContract exercises the behaviour both adapters must share
func runContract(t *testing.T, newStore func(t *testing.T) store) {
	ctx := context.Background()

	t.Run("create preserves option order and zero counts", func(t *testing.T) {
		s := newStore(t)
		id, err := s.Create(ctx, domain.NewPollInput{
			Title:   "Lunch?",
			Options: []string{"Pizza", "Sushi", "Ramen"},
		})
		require.NoError(t, err)

		poll, err := s.GetByID(ctx, id)
		require.NoError(t, err)
		require.NotNil(t, poll)
		assert.True(t, poll.IsActive)
		require.Len(t, poll.Options, 3)
		for i, text := range []string{"Pizza", "Sushi", "Ramen"} {
			assert.Equal(t, text, poll.Options[i].Text)
			assert.Equal(t, int64(0), poll.Options[i].VoteCount)
			assert.Equal(t, id, poll.Options[i].PollID)
		}
	})

	t.Run("missing poll is nil without error", func(t *testing.T) {
		s := newStore(t)
		poll, err := s.GetByID(ctx, 987654)
		assert.NoError(t, err)
		assert.Nil(t, poll)
	})

	t.Run("record increments count and rejects duplicates", func(t *testing.T) {
		s := newStore(t)
		id, err := s.Create(ctx, domain.NewPollInput{Title: "Q", Options: []string{"A", "B"}})
		require.NoError(t, err)
		poll, _ := s.GetByID(ctx, id)
		a, b := poll.Options[0].ID, poll.Options[1].ID
		now := time.Now()

		require.NoError(t, s.Record(ctx, newVote(id, a, "voter-1", now)))
		assert.ErrorIs(t, s.Record(ctx, newVote(id, b, "voter-1", now)), domain.ErrAlreadyVoted)
		require.NoError(t, s.Record(ctx, newVote(id, b, "voter-2", now)))

		poll, _ = s.GetByID(ctx, id)
		assert.Equal(t, int64(1), poll.Options[0].VoteCount)
		assert.Equal(t, int64(1), poll.Options[1].VoteCount)

		voted, err := s.HasVoted(ctx, id, "voter-1")
		require.NoError(t, err)
		assert.True(t, voted)
		voted, err = s.HasVoted(ctx, id, "voter-3")
		require.NoError(t, err)
		assert.False(t, voted)
	})

	t.Run("record validates poll and option", func(t *testing.T) {
		s := newStore(t)
		first, _ := s.Create(ctx, domain.NewPollInput{Title: "One", Options: []string{"A", "B"}})
		second, _ := s.Create(ctx, domain.NewPollInput{Title: "Two", Options: []string{"C", "D"}})
		other, _ := s.GetByID(ctx, second)
		now := time.Now()

		assert.ErrorIs(t, s.Record(ctx, newVote(999999, 1, "v", now)), domain.ErrPollNotFound)
		assert.ErrorIs(t, s.Record(ctx, newVote(first, other.Options[0].ID, "v", now)), domain.ErrOptionNotInPoll)

		require.NoError(t, s.Close(ctx, first))
		poll, _ := s.GetByID(ctx, first)
		assert.ErrorIs(t, s.Record(ctx, newVote(first, poll.Options[0].ID, "v", now)), domain.ErrPollClosed)

		voted, _ := s.HasVoted(ctx, first, "v")
		assert.False(t, voted, "rejected votes must not be persisted")
	})

	t.Run("expired poll rejects votes", func(t *testing.T) {
		s := newStore(t)
		ends := time.Now().Add(time.Hour)
		id, _ := s.Create(ctx, domain.NewPollInput{Title: "Q", Options: []string{"A", "B"}, EndsAt: &ends})
		poll, _ := s.GetByID(ctx, id)

		err := s.Record(ctx, newVote(id, poll.Options[0].ID, "v", ends.Add(time.Second)))
		assert.ErrorIs(t, err, domain.ErrPollClosed)
	})

	t.Run("close is idempotent and list shows only active newest first", func(t *testing.T) {
		s := newStore(t)
		older, _ := s.Create(ctx, domain.NewPollInput{Title: "Older", Options: []string{"A", "B"}})
		newer, _ := s.Create(ctx, domain.NewPollInput{Title: "Newer", Options: []string{"A", "B"}})
		closed, _ := s.Create(ctx, domain.NewPollInput{Title: "Closed", Options: []string{"A", "B"}})

		poll, _ := s.GetByID(ctx, newer)
		require.NoError(t, s.Record(ctx, newVote(newer, poll.Options[1].ID, "v", time.Now())))

		require.NoError(t, s.Close(ctx, closed))
		require.NoError(t, s.Close(ctx, closed))
		require.NoError(t, s.Close(ctx, 999999))

		list, err := s.ListActive(ctx)
		require.NoError(t, err)

		ids := make([]int64, 0, len(list))
		totals := make(map[int64]int64)
		for _, p := range list {
			ids = append(ids, p.ID)
			totals[p.ID] = p.TotalVotes
			assert.True(t, p.IsActive)
		}
		assert.NotContains(t, ids, closed)
		require.Contains(t, ids, newer)
		require.Contains(t, ids, older)
		assert.Less(t, indexOf(ids, newer), indexOf(ids, older))
		assert.Equal(t, int64(1), totals[newer])
		assert.Equal(t, int64(0), totals[older])
	})

	t.Run("stats", func(t *testing.T) {
		s := newStore(t)
		id, _ := s.Create(ctx, domain.NewPollInput{Title: "Q", Options: []string{"A", "B"}})

		stats, err := s.Stats(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, int64(0), stats.TotalVotes)
		assert.Equal(t, int64(0), stats.UniqueVoters)
		assert.Nil(t, stats.FirstVoteAt)
		assert.Nil(t, stats.LastVoteAt)

		poll, _ := s.GetByID(ctx, id)
		t1 := time.Now().UTC().Truncate(time.Millisecond)
		t2 := t1.Add(time.Minute)
		require.NoError(t, s.Record(ctx, newVote(id, poll.Options[0].ID, "a", t2)))
		require.NoError(t, s.Record(ctx, newVote(id, poll.Options[1].ID, "b", t1)))

		stats, err = s.Stats(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, int64(2), stats.TotalVotes)
		assert.Equal(t, int64(2), stats.UniqueVoters)
		require.NotNil(t, stats.FirstVoteAt)
		require.NotNil(t, stats.LastVoteAt)
		assert.True(t, stats.FirstVoteAt.Equal(t1))
		assert.True(t, stats.LastVoteAt.Equal(t2))
	})

	t.Run("delete cascades", func(t *testing.T) {
		s := newStore(t)
		id, _ := s.Create(ctx, domain.NewPollInput{Title: "Q", Options: []string{"A", "B"}})
		poll, _ := s.GetByID(ctx, id)
		require.NoError(t, s.Record(ctx, newVote(id, poll.Options[0].ID, "v", time.Now())))

		deleted, err := s.Delete(ctx, id)
		require.NoError(t, err)
		assert.True(t, deleted)

		gone, err := s.GetByID(ctx, id)
		require.NoError(t, err)
		assert.Nil(t, gone)
		voted, _ := s.HasVoted(ctx, id, "v")
		assert.False(t, voted)

		deleted, err = s.Delete(ctx, id)
		require.NoError(t, err)
		assert.False(t, deleted)
	})

	t.Run("concurrent votes from one voter record exactly once", func(t *testing.T) {
		s := newStore(t)
		id, _ := s.Create(ctx, domain.NewPollInput{Title: "Race", Options: []string{"A", "B"}})
		poll, _ := s.GetByID(ctx, id)
		optionID := poll.Options[0].ID

		const k = 16
		var wg sync.WaitGroup
		errs := make([]error, k)
		start := make(chan struct{})
		for i := 0; i < k; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				<-start
				errs[i] = s.Record(ctx, newVote(id, optionID, "same-voter", time.Now()))
			}(i)
		}
		close(start)
		wg.Wait()

		successes, duplicates := 0, 0
		for _, err := range errs {
			switch {
			case err == nil:
				successes++
			case errors.Is(err, domain.ErrAlreadyVoted):
				duplicates++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}
		assert.Equal(t, 1, successes)
		assert.Equal(t, k-1, duplicates)

		poll, _ = s.GetByID(ctx, id)
		assert.Equal(t, int64(1), poll.Options[0].VoteCount)
	})

	t.Run("concurrent votes from distinct voters all count", func(t *testing.T) {
		s := newStore(t)
		id, _ := s.Create(ctx, domain.NewPollInput{Title: "Crowd", Options: []string{"A", "B"}})
		poll, _ := s.GetByID(ctx, id)

		const k = 20
		var wg sync.WaitGroup
		for i := 0; i < k; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				opt := poll.Options[i%2].ID
				assert.NoError(t, s.Record(ctx, newVote(id, opt, fmt.Sprintf("voter-%d", i), time.Now())))
			}(i)
		}
		wg.Wait()

		poll, _ = s.GetByID(ctx, id)
		assert.Equal(t, int64(k), poll.TotalVotes())
		stats, err := s.Stats(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, int64(k), stats.TotalVotes)
	})
}

func indexOf(ids []int64, id int64) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}
