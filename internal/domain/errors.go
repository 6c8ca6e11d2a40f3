package domain

import "errors"

// Sentinel errors returned by repositories
var (
	ErrAlreadyVoted    = errors.New("voter has already voted in this poll")
	ErrPollNotFound    = errors.New("poll not found")
	ErrPollClosed      = errors.New("poll is closed")
	ErrOptionNotInPoll = errors.New("option does not belong to poll")
)
