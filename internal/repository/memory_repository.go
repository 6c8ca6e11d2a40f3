package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"polls-be/internal/domain"
)

type voterKey struct {
	pollID  int64
	voterID string
}

// MemoryStore implements PollRepository and VoteRepository in process. A
// single mutex serializes every write, which gives Record the same
// one-vote-per-voter guarantee the postgres unique constraint does.
type MemoryStore struct {
	mu           sync.RWMutex
	polls        map[int64]*domain.Poll
	votes        map[int64][]domain.Vote
	voters       map[voterKey]struct{}
	nextPollID   int64
	nextOptionID int64
	now          func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		polls:  make(map[int64]*domain.Poll),
		votes:  make(map[int64][]domain.Vote),
		voters: make(map[voterKey]struct{}),
		now:    time.Now,
	}
}

// Create stores a poll with fresh IDs for it and its options
func (s *MemoryStore) Create(_ context.Context, in domain.NewPollInput) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextPollID++
	poll := &domain.Poll{
		ID:          s.nextPollID,
		Title:       in.Title,
		Description: in.Description,
		CreatedAt:   s.now().UTC(),
		EndsAt:      copyTime(in.EndsAt),
		IsActive:    true,
		Options:     make([]domain.Option, 0, len(in.Options)),
	}
	for _, text := range in.Options {
		s.nextOptionID++
		poll.Options = append(poll.Options, domain.Option{
			ID:     s.nextOptionID,
			PollID: poll.ID,
			Text:   text,
		})
	}
	s.polls[poll.ID] = poll

	return poll.ID, nil
}

// GetByID returns a copy of the poll so callers cannot mutate stored state
func (s *MemoryStore) GetByID(_ context.Context, id int64) (*domain.Poll, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	poll, ok := s.polls[id]
	if !ok {
		return nil, nil
	}
	return clonePoll(poll), nil
}

func (s *MemoryStore) ListActive(_ context.Context) ([]domain.PollSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summaries := make([]domain.PollSummary, 0, len(s.polls))
	for _, poll := range s.polls {
		if !poll.IsActive {
			continue
		}
		summaries = append(summaries, domain.PollSummary{
			ID:          poll.ID,
			Title:       poll.Title,
			Description: poll.Description,
			CreatedAt:   poll.CreatedAt,
			EndsAt:      copyTime(poll.EndsAt),
			IsActive:    poll.IsActive,
			TotalVotes:  poll.TotalVotes(),
		})
	}

	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].CreatedAt.Equal(summaries[j].CreatedAt) {
			return summaries[i].ID > summaries[j].ID
		}
		return summaries[i].CreatedAt.After(summaries[j].CreatedAt)
	})
	return summaries, nil
}

func (s *MemoryStore) Close(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if poll, ok := s.polls[id]; ok {
		poll.IsActive = false
	}
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.polls[id]; !ok {
		return false, nil
	}
	for _, v := range s.votes[id] {
		delete(s.voters, voterKey{pollID: id, voterID: v.VoterID})
	}
	delete(s.votes, id)
	delete(s.polls, id)
	return true, nil
}

func (s *MemoryStore) HasVoted(_ context.Context, pollID int64, voterID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.voters[voterKey{pollID: pollID, voterID: voterID}]
	return ok, nil
}

// Record checks and writes under one lock, mirroring the postgres order:
// missing poll, duplicate, closed, foreign option.
func (s *MemoryStore) Record(_ context.Context, vote *domain.Vote) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	poll, ok := s.polls[vote.PollID]
	if !ok {
		return domain.ErrPollNotFound
	}
	key := voterKey{pollID: vote.PollID, voterID: vote.VoterID}
	if _, voted := s.voters[key]; voted {
		return domain.ErrAlreadyVoted
	}
	if !poll.AcceptsVotes(vote.VotedAt) {
		return domain.ErrPollClosed
	}

	idx := -1
	for i := range poll.Options {
		if poll.Options[i].ID == vote.OptionID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return domain.ErrOptionNotInPoll
	}

	poll.Options[idx].VoteCount++
	s.voters[key] = struct{}{}
	s.votes[vote.PollID] = append(s.votes[vote.PollID], *vote)
	return nil
}

func (s *MemoryStore) Stats(_ context.Context, pollID int64) (*domain.VoteStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &domain.VoteStats{PollID: pollID}
	unique := make(map[string]struct{})
	for _, v := range s.votes[pollID] {
		stats.TotalVotes++
		unique[v.VoterID] = struct{}{}
		at := v.VotedAt
		if stats.FirstVoteAt == nil || at.Before(*stats.FirstVoteAt) {
			stats.FirstVoteAt = &at
		}
		if stats.LastVoteAt == nil || at.After(*stats.LastVoteAt) {
			last := at
			stats.LastVoteAt = &last
		}
	}
	stats.UniqueVoters = int64(len(unique))
	return stats, nil
}

// CountVotes returns the number of vote rows referencing optionID
func (s *MemoryStore) CountVotes(pollID, optionID int64) int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, v := range s.votes[pollID] {
		if v.OptionID == optionID {
			n++
		}
	}
	return n
}

func clonePoll(p *domain.Poll) *domain.Poll {
	cp := *p
	cp.EndsAt = copyTime(p.EndsAt)
	cp.Options = append([]domain.Option(nil), p.Options...)
	if cp.Options == nil {
		cp.Options = []domain.Option{}
	}
	return &cp
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
