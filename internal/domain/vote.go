package domain

import (
	"time"

	"github.com/google/uuid"
)

// Vote is one voter's immutable choice within one poll
type Vote struct {
	ID       uuid.UUID `json:"id"`
	PollID   int64     `json:"poll_id"`
	OptionID int64     `json:"option_id"`
	VoterID  string    `json:"-"`
	VotedAt  time.Time `json:"voted_at"`
}

// VoteStats aggregates the vote rows of a poll. The timestamps are nil when
// the poll has no votes.
type VoteStats struct {
	PollID       int64      `json:"poll_id"`
	UniqueVoters int64      `json:"unique_voters"`
	TotalVotes   int64      `json:"total_votes"`
	FirstVoteAt  *time.Time `json:"first_vote_at,omitempty"`
	LastVoteAt   *time.Time `json:"last_vote_at,omitempty"`
}

// OutcomeKind is the closed set of results of a vote attempt
type OutcomeKind string

const (
	OutcomeRecorded      OutcomeKind = "recorded"
	OutcomeAlreadyVoted  OutcomeKind = "already_voted"
	OutcomePollNotFound  OutcomeKind = "poll_not_found"
	OutcomePollClosed    OutcomeKind = "poll_closed"
	OutcomeInvalidOption OutcomeKind = "invalid_option"
	OutcomeInvalidVoter  OutcomeKind = "invalid_voter"
	OutcomeError         OutcomeKind = "error"
)

// VoteOutcome is the result of CastVote. Callers branch on Kind; it carries
// no user-facing text.
type VoteOutcome struct {
	Success bool        `json:"success"`
	Kind    OutcomeKind `json:"kind"`
	VoteID  string      `json:"vote_id,omitempty"`
}

// Recorded builds the success outcome
func Recorded(voteID string) VoteOutcome {
	return VoteOutcome{Success: true, Kind: OutcomeRecorded, VoteID: voteID}
}

// Rejected builds a failed outcome of the given kind
func Rejected(kind OutcomeKind) VoteOutcome {
	return VoteOutcome{Success: false, Kind: kind}
}

// IsDuplicate reports whether the voter had already voted in the poll
func (o VoteOutcome) IsDuplicate() bool {
	return o.Kind == OutcomeAlreadyVoted
}

// IsValidationFailure reports whether the attempt was rejected for bad input
// or poll state, as opposed to a duplicate or a system error
func (o VoteOutcome) IsValidationFailure() bool {
	switch o.Kind {
	case OutcomePollNotFound, OutcomePollClosed, OutcomeInvalidOption, OutcomeInvalidVoter:
		return true
	}
	return false
}
