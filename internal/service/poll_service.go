package service

import (
	"context"
	"strings"
	"time"

	"polls-be/internal/domain"
	"polls-be/internal/repository"
	apperrors "polls-be/pkg/errors"

	"go.uber.org/zap"
)

// PollService owns the poll lifecycle: create, read, list, close, delete
type PollService struct {
	polls  repository.PollRepository
	logger *zap.Logger
	now    func() time.Time
}

func NewPollService(polls repository.PollRepository, logger *zap.Logger) *PollService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PollService{
		polls:  polls,
		logger: logger,
		now:    time.Now,
	}
}

// CreatePoll trims the options, drops blank ones and requires at least
// domain.MinOptions to remain. Nothing is persisted when validation fails.
func (s *PollService) CreatePoll(ctx context.Context, title, description string, optionTexts []string, endsAt *time.Time) (int64, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return 0, apperrors.NewValidationError("Poll title is required", nil)
	}

	options := domain.CleanOptions(optionTexts)
	if len(options) < domain.MinOptions {
		return 0, apperrors.NewValidationError("A poll needs at least two non-empty options", map[string]interface{}{
			"min_options": domain.MinOptions,
			"received":    len(options),
		})
	}

	if endsAt != nil && !endsAt.After(s.now()) {
		return 0, apperrors.NewValidationError("End time must be in the future", map[string]interface{}{
			"ends_at": endsAt.UTC().Format(time.RFC3339),
		})
	}

	id, err := s.polls.Create(ctx, domain.NewPollInput{
		Title:       title,
		Description: strings.TrimSpace(description),
		Options:     options,
		EndsAt:      endsAt,
	})
	if err != nil {
		s.logger.Error("Failed to create poll", zap.Error(err))
		return 0, apperrors.NewInternalError("Failed to create poll", err)
	}

	s.logger.Info("Poll created",
		zap.Int64("poll_id", id),
		zap.Int("options", len(options)))
	return id, nil
}

// CreatePollFromForm accepts the option list as newline separated text
func (s *PollService) CreatePollFromForm(ctx context.Context, title, description, rawOptions string, endsAt *time.Time) (int64, error) {
	return s.CreatePoll(ctx, title, description, domain.ParseOptionLines(rawOptions), endsAt)
}

// GetPoll returns nil, nil for an unknown id
func (s *PollService) GetPoll(ctx context.Context, id int64) (*domain.Poll, error) {
	poll, err := s.polls.GetByID(ctx, id)
	if err != nil {
		s.logger.Error("Failed to load poll", zap.Int64("poll_id", id), zap.Error(err))
		return nil, apperrors.NewInternalError("Failed to load poll", err)
	}
	return poll, nil
}

func (s *PollService) ListActivePolls(ctx context.Context) ([]domain.PollSummary, error) {
	polls, err := s.polls.ListActive(ctx)
	if err != nil {
		s.logger.Error("Failed to list active polls", zap.Error(err))
		return nil, apperrors.NewInternalError("Failed to list polls", err)
	}
	return polls, nil
}

// ClosePoll is idempotent and a no-op for an unknown id
func (s *PollService) ClosePoll(ctx context.Context, id int64) error {
	poll, err := s.GetPoll(ctx, id)
	if err != nil {
		return err
	}
	if poll == nil {
		return nil
	}

	if err := s.polls.Close(ctx, id); err != nil {
		s.logger.Error("Failed to close poll", zap.Int64("poll_id", id), zap.Error(err))
		return apperrors.NewInternalError("Failed to close poll", err)
	}

	s.logger.Info("Poll closed", zap.Int64("poll_id", id))
	return nil
}

func (s *PollService) DeletePoll(ctx context.Context, id int64) (bool, error) {
	deleted, err := s.polls.Delete(ctx, id)
	if err != nil {
		s.logger.Error("Failed to delete poll", zap.Int64("poll_id", id), zap.Error(err))
		return false, apperrors.NewInternalError("Failed to delete poll", err)
	}
	if deleted {
		s.logger.Info("Poll deleted", zap.Int64("poll_id", id))
	}
	return deleted, nil
}
