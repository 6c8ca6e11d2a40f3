package service

import (
	"context"

	"polls-be/internal/domain"
)

// ResultsService derives percentages from the poll's current counts. Nothing
// here is cached.
type ResultsService struct {
	polls   *PollService
	ballots *BallotService
}

func NewResultsService(polls *PollService, ballots *BallotService) *ResultsService {
	return &ResultsService{polls: polls, ballots: ballots}
}

// GetResults returns nil, nil for an unknown poll
func (s *ResultsService) GetResults(ctx context.Context, pollID int64) (*domain.PollResults, error) {
	poll, err := s.polls.GetPoll(ctx, pollID)
	if err != nil || poll == nil {
		return nil, err
	}
	return domain.BuildResults(poll), nil
}

// GetResultsWithStats adds the poll's vote statistics to GetResults
func (s *ResultsService) GetResultsWithStats(ctx context.Context, pollID int64) (*domain.PollResults, error) {
	results, err := s.GetResults(ctx, pollID)
	if err != nil || results == nil {
		return nil, err
	}
	stats, err := s.ballots.GetStats(ctx, pollID)
	if err != nil {
		return nil, err
	}
	results.Stats = stats
	return results, nil
}
