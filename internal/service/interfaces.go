package service

import (
	"context"
	"time"

	"polls-be/internal/domain"
)

// PollStore defines the poll lifecycle operations
type PollStore interface {
	// CreatePoll validates and persists a poll with its options
	CreatePoll(ctx context.Context, title, description string, optionTexts []string, endsAt *time.Time) (int64, error)

	// CreatePollFromForm splits newline separated option text, then creates the poll
	CreatePollFromForm(ctx context.Context, title, description, rawOptions string, endsAt *time.Time) (int64, error)

	// GetPoll returns the poll or nil when it does not exist
	GetPoll(ctx context.Context, id int64) (*domain.Poll, error)

	// ListActivePolls returns open polls with vote totals, newest first
	ListActivePolls(ctx context.Context) ([]domain.PollSummary, error)

	// ClosePoll stops a poll from accepting votes
	ClosePoll(ctx context.Context, id int64) error

	// DeletePoll removes a poll together with its options and votes
	DeletePoll(ctx context.Context, id int64) (bool, error)
}

// BallotEngine defines the voting operations
type BallotEngine interface {
	// CastVote never returns an error; callers branch on the outcome kind
	CastVote(ctx context.Context, pollID, optionID int64, voterID string) domain.VoteOutcome

	// HasVoted reports whether voterID already voted in the poll
	HasVoted(ctx context.Context, pollID int64, voterID string) (bool, error)

	// GetStats aggregates the votes of a poll
	GetStats(ctx context.Context, pollID int64) (*domain.VoteStats, error)
}

// ResultsReader defines the results operations
type ResultsReader interface {
	GetResults(ctx context.Context, pollID int64) (*domain.PollResults, error)
	GetResultsWithStats(ctx context.Context, pollID int64) (*domain.PollResults, error)
}

// Services aggregates all service interfaces
type Services struct {
	Polls   PollStore
	Ballots BallotEngine
	Results ResultsReader
	Cache   *VoterCache
}
