package repository

import (
	"context"
	"errors"
	"fmt"

	"polls-be/internal/domain"
	"polls-be/pkg/database"

	"github.com/jackc/pgx/v5"
)

type PostgresPollRepository struct {
	db *database.PostgresDB
}

func NewPollRepository(db *database.PostgresDB) *PostgresPollRepository {
	return &PostgresPollRepository{db: db}
}

// Create inserts the poll row and its options in one transaction
func (r *PostgresPollRepository) Create(ctx context.Context, in domain.NewPollInput) (int64, error) {
	var pollID int64

	err := r.db.WithTx(ctx, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO polls (title, description, ends_at)
			VALUES ($1, $2, $3)
			RETURNING id
		`, in.Title, in.Description, in.EndsAt).Scan(&pollID)
		if err != nil {
			return fmt.Errorf("failed to insert poll: %w", err)
		}

		for _, text := range in.Options {
			if _, err := tx.Exec(ctx, `
				INSERT INTO options (poll_id, option_text)
				VALUES ($1, $2)
			`, pollID, text); err != nil {
				return fmt.Errorf("failed to insert option: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	return pollID, nil
}

// GetByID gets a poll and its options
func (r *PostgresPollRepository) GetByID(ctx context.Context, id int64) (*domain.Poll, error) {
	var poll domain.Poll
	err := r.db.Pool.QueryRow(ctx, `
		SELECT id, title, description, created_at, ends_at, is_active
		FROM polls
		WHERE id = $1
	`, id).Scan(
		&poll.ID,
		&poll.Title,
		&poll.Description,
		&poll.CreatedAt,
		&poll.EndsAt,
		&poll.IsActive,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get poll: %w", err)
	}

	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, poll_id, option_text, vote_count
		FROM options
		WHERE poll_id = $1
		ORDER BY id
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get options: %w", err)
	}
	defer rows.Close()

	poll.Options = make([]domain.Option, 0)
	for rows.Next() {
		var opt domain.Option
		if err := rows.Scan(&opt.ID, &opt.PollID, &opt.Text, &opt.VoteCount); err != nil {
			return nil, fmt.Errorf("failed to scan option: %w", err)
		}
		poll.Options = append(poll.Options, opt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read options: %w", err)
	}

	return &poll, nil
}

// ListActive gets active polls with their summed vote counts
func (r *PostgresPollRepository) ListActive(ctx context.Context) ([]domain.PollSummary, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT p.id, p.title, p.description, p.created_at, p.ends_at, p.is_active,
		       COALESCE(SUM(o.vote_count), 0)::BIGINT AS total_votes
		FROM polls p
		LEFT JOIN options o ON o.poll_id = p.id
		WHERE p.is_active = true
		GROUP BY p.id
		ORDER BY p.created_at DESC, p.id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list active polls: %w", err)
	}
	defer rows.Close()

	polls := make([]domain.PollSummary, 0)
	for rows.Next() {
		var p domain.PollSummary
		if err := rows.Scan(
			&p.ID,
			&p.Title,
			&p.Description,
			&p.CreatedAt,
			&p.EndsAt,
			&p.IsActive,
			&p.TotalVotes,
		); err != nil {
			return nil, fmt.Errorf("failed to scan poll: %w", err)
		}
		polls = append(polls, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read polls: %w", err)
	}

	return polls, nil
}

// Close marks a poll inactive
func (r *PostgresPollRepository) Close(ctx context.Context, id int64) error {
	_, err := r.db.Pool.Exec(ctx, `
		UPDATE polls SET is_active = false
		WHERE id = $1 AND is_active = true
	`, id)
	if err != nil {
		return fmt.Errorf("failed to close poll: %w", err)
	}
	return nil
}

// Delete removes a poll; options and votes go with it via ON DELETE CASCADE
func (r *PostgresPollRepository) Delete(ctx context.Context, id int64) (bool, error) {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM polls WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete poll: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
