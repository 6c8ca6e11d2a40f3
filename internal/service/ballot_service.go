package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"polls-be/internal/domain"
	"polls-be/internal/repository"
	apperrors "polls-be/pkg/errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BallotService casts votes and answers voter questions. The store's
// (poll, voter) uniqueness is the authoritative duplicate signal; the
// checks made here before writing only save a round trip.
type BallotService struct {
	polls  repository.PollRepository
	votes  repository.VoteRepository
	cache  *VoterCache
	logger *zap.Logger
	now    func() time.Time
	newID  func() uuid.UUID
}

func NewBallotService(repos *repository.Repositories, cache *VoterCache, logger *zap.Logger) *BallotService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BallotService{
		polls:  repos.Polls,
		votes:  repos.Votes,
		cache:  cache,
		logger: logger,
		now:    time.Now,
		newID:  uuid.New,
	}
}

// CastVote records one vote for voterID. Storage failures are logged and
// reported as domain.OutcomeError without detail.
func (s *BallotService) CastVote(ctx context.Context, pollID, optionID int64, voterID string) domain.VoteOutcome {
	voterID = strings.TrimSpace(voterID)
	if voterID == "" {
		return domain.Rejected(domain.OutcomeInvalidVoter)
	}

	log := s.logger.With(zap.Int64("poll_id", pollID), zap.Int64("option_id", optionID))

	// A missing poll has no votes, so not-found never hides a duplicate.
	now := s.now().UTC()
	poll, err := s.polls.GetByID(ctx, pollID)
	if err != nil {
		log.Error("Failed to load poll for vote", zap.Error(err))
		return domain.Rejected(domain.OutcomeError)
	}
	if poll == nil {
		return domain.Rejected(domain.OutcomePollNotFound)
	}

	voted, err := s.hasVoted(ctx, poll, voterID)
	if err != nil {
		log.Error("Duplicate vote check failed", zap.Error(err))
		return domain.Rejected(domain.OutcomeError)
	}
	if voted {
		log.Debug("Vote rejected, voter already voted")
		return domain.Rejected(domain.OutcomeAlreadyVoted)
	}

	switch {
	case !poll.AcceptsVotes(now):
		return domain.Rejected(domain.OutcomePollClosed)
	case !poll.HasOption(optionID):
		return domain.Rejected(domain.OutcomeInvalidOption)
	}

	vote := &domain.Vote{
		ID:       s.newID(),
		PollID:   pollID,
		OptionID: optionID,
		VoterID:  voterID,
		VotedAt:  now,
	}
	if err := s.votes.Record(ctx, vote); err != nil {
		kind := outcomeForRecordError(err)
		if kind == domain.OutcomeError {
			log.Error("Failed to record vote", zap.Error(err))
		} else {
			log.Debug("Vote rejected by store", zap.String("kind", string(kind)))
		}
		if kind == domain.OutcomeAlreadyVoted {
			s.cache.MarkVoted(ctx, poll, voterID)
		}
		return domain.Rejected(kind)
	}

	s.cache.MarkVoted(ctx, poll, voterID)
	log.Info("Vote recorded", zap.String("vote_id", vote.ID.String()))
	return domain.Recorded(vote.ID.String())
}

func outcomeForRecordError(err error) domain.OutcomeKind {
	switch {
	case errors.Is(err, domain.ErrAlreadyVoted):
		return domain.OutcomeAlreadyVoted
	case errors.Is(err, domain.ErrPollNotFound):
		return domain.OutcomePollNotFound
	case errors.Is(err, domain.ErrPollClosed):
		return domain.OutcomePollClosed
	case errors.Is(err, domain.ErrOptionNotInPoll):
		return domain.OutcomeInvalidOption
	default:
		return domain.OutcomeError
	}
}

// HasVoted uses the same existence query as the store's duplicate check. An
// unknown poll has no voters.
func (s *BallotService) HasVoted(ctx context.Context, pollID int64, voterID string) (bool, error) {
	voterID = strings.TrimSpace(voterID)
	if voterID == "" {
		return false, nil
	}
	poll, err := s.polls.GetByID(ctx, pollID)
	if err != nil {
		return false, apperrors.NewInternalError("Failed to check vote", err)
	}
	if poll == nil {
		return false, nil
	}
	voted, err := s.hasVoted(ctx, poll, voterID)
	if err != nil {
		return false, apperrors.NewInternalError("Failed to check vote", err)
	}
	return voted, nil
}

func (s *BallotService) hasVoted(ctx context.Context, poll *domain.Poll, voterID string) (bool, error) {
	return s.cache.HasVotedWithCache(ctx, poll, voterID, func(ctx context.Context) (bool, error) {
		return s.votes.HasVoted(ctx, poll.ID, voterID)
	})
}

// GetStats returns zero counts and nil timestamps for a poll without votes
func (s *BallotService) GetStats(ctx context.Context, pollID int64) (*domain.VoteStats, error) {
	stats, err := s.votes.Stats(ctx, pollID)
	if err != nil {
		s.logger.Error("Failed to load vote stats", zap.Int64("poll_id", pollID), zap.Error(err))
		return nil, apperrors.NewInternalError("Failed to load vote statistics", err)
	}
	return stats, nil
}
