package repository

import (
	"context"

	"polls-be/internal/domain"
)

// PollRepository persists polls and their options
type PollRepository interface {
	// Create inserts the poll and all of its options atomically and returns
	// the new poll ID. Options keep the order of in.Options.
	Create(ctx context.Context, in domain.NewPollInput) (int64, error)

	// GetByID returns the poll with options ordered by ID, or nil if missing
	GetByID(ctx context.Context, id int64) (*domain.Poll, error)

	// ListActive returns active polls with their vote totals, newest first
	ListActive(ctx context.Context) ([]domain.PollSummary, error)

	// Close clears the active flag. Closing a closed or missing poll is a no-op.
	Close(ctx context.Context, id int64) error

	// Delete removes the poll, its options and its votes
	Delete(ctx context.Context, id int64) (bool, error)
}

// VoteRepository persists votes and the option counters they drive
type VoteRepository interface {
	// HasVoted reports whether a vote exists for (pollID, voterID)
	HasVoted(ctx context.Context, pollID int64, voterID string) (bool, error)

	// Record inserts the vote and increments its option's count as one unit.
	// It returns domain.ErrAlreadyVoted, ErrPollNotFound, ErrPollClosed or
	// ErrOptionNotInPoll when the vote is rejected; nothing is written then.
	Record(ctx context.Context, vote *domain.Vote) error

	// Stats aggregates the votes of a poll
	Stats(ctx context.Context, pollID int64) (*domain.VoteStats, error)
}

// Repositories aggregates all repository interfaces
type Repositories struct {
	Polls PollRepository
	Votes VoteRepository
}
