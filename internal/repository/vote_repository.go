package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"polls-be/internal/domain"
	"polls-be/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type PostgresVoteRepository struct {
	db *database.PostgresDB
}

func NewVoteRepository(db *database.PostgresDB) *PostgresVoteRepository {
	return &PostgresVoteRepository{db: db}
}

// HasVoted checks for an existing vote of voterID in pollID
func (r *PostgresVoteRepository) HasVoted(ctx context.Context, pollID int64, voterID string) (bool, error) {
	var exists bool
	err := r.db.Pool.QueryRow(ctx, hasVotedQuery, pollID, voterID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check existing vote: %w", err)
	}
	return exists, nil
}

// HasVoted and Record's in-transaction duplicate check share this query
const hasVotedQuery = `
	SELECT EXISTS(
		SELECT 1 FROM votes
		WHERE poll_id = $1 AND voter_id = $2
	)
`

// optionForeignKey is the composite (option_id, poll_id) key on votes
const optionForeignKey = "votes_option_fk"

// Record inserts a vote and bumps its option's counter in one transaction.
//
// The poll row is read FOR SHARE so a concurrent close waits for in-flight
// votes. The insert relies on votes_poll_voter_key: when two calls race past
// the existence check, ON CONFLICT makes the loser insert nothing and its
// increment is rolled back with the transaction.
func (r *PostgresVoteRepository) Record(ctx context.Context, vote *domain.Vote) error {
	err := r.db.WithTx(ctx, func(tx pgx.Tx) error {
		var isActive bool
		var endsAt *time.Time
		err := tx.QueryRow(ctx, `
			SELECT is_active, ends_at FROM polls
			WHERE id = $1
			FOR SHARE
		`, vote.PollID).Scan(&isActive, &endsAt)
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrPollNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to lock poll: %w", err)
		}

		var exists bool
		if err := tx.QueryRow(ctx, hasVotedQuery, vote.PollID, vote.VoterID).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check existing vote: %w", err)
		}
		if exists {
			return domain.ErrAlreadyVoted
		}

		poll := domain.Poll{IsActive: isActive, EndsAt: endsAt}
		if !poll.AcceptsVotes(vote.VotedAt) {
			return domain.ErrPollClosed
		}

		tag, err := tx.Exec(ctx, `
			UPDATE options SET vote_count = vote_count + 1
			WHERE id = $1 AND poll_id = $2
		`, vote.OptionID, vote.PollID)
		if err != nil {
			return fmt.Errorf("failed to increment vote count: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrOptionNotInPoll
		}

		var inserted uuid.UUID
		err = tx.QueryRow(ctx, `
			INSERT INTO votes (id, poll_id, option_id, voter_id, voted_at)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (poll_id, voter_id) DO NOTHING
			RETURNING id
		`, vote.ID, vote.PollID, vote.OptionID, vote.VoterID, vote.VotedAt).Scan(&inserted)
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrAlreadyVoted
		}
		if err != nil {
			return fmt.Errorf("failed to insert vote: %w", err)
		}
		return nil
	})

	return recordError(err)
}

// recordError maps constraint violations raised by a concurrent write to
// the domain sentinels. The composite option key covers an option deleted
// mid-vote; any other foreign key means the poll went away.
func recordError(err error) error {
	switch {
	case err == nil:
		return nil
	case database.IsUniqueViolation(err):
		return domain.ErrAlreadyVoted
	case database.IsForeignKeyViolation(err):
		if database.ConstraintName(err) == optionForeignKey {
			return domain.ErrOptionNotInPoll
		}
		return domain.ErrPollNotFound
	default:
		return err
	}
}

// Stats aggregates vote rows for a poll
func (r *PostgresVoteRepository) Stats(ctx context.Context, pollID int64) (*domain.VoteStats, error) {
	stats := &domain.VoteStats{PollID: pollID}
	err := r.db.Pool.QueryRow(ctx, `
		SELECT COUNT(DISTINCT voter_id), COUNT(*), MIN(voted_at), MAX(voted_at)
		FROM votes
		WHERE poll_id = $1
	`, pollID).Scan(
		&stats.UniqueVoters,
		&stats.TotalVotes,
		&stats.FirstVoteAt,
		&stats.LastVoteAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get vote stats: %w", err)
	}
	return stats, nil
}
