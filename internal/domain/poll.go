package domain

import (
	"strings"
	"time"
)

// MinOptions is the smallest option count a poll can be created with
const MinOptions = 2

// Poll is a question with a fixed set of options. Only IsActive and the
// options' vote counts change after creation.
type Poll struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	CreatedAt   time.Time  `json:"created_at"`
	EndsAt      *time.Time `json:"ends_at,omitempty"`
	IsActive    bool       `json:"is_active"`
	Options     []Option   `json:"options"`
}

// Option is one selectable answer within a poll
type Option struct {
	ID        int64  `json:"id"`
	PollID    int64  `json:"poll_id"`
	Text      string `json:"text"`
	VoteCount int64  `json:"vote_count"`
}

// PollSummary is a poll listing row annotated with its current total
type PollSummary struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	CreatedAt   time.Time  `json:"created_at"`
	EndsAt      *time.Time `json:"ends_at,omitempty"`
	IsActive    bool       `json:"is_active"`
	TotalVotes  int64      `json:"total_votes"`
}

// NewPollInput is what CreatePoll persists
type NewPollInput struct {
	Title       string
	Description string
	Options     []string
	EndsAt      *time.Time
}

// IsExpired reports whether the poll's end time has passed at now
func (p *Poll) IsExpired(now time.Time) bool {
	return p.EndsAt != nil && !now.Before(*p.EndsAt)
}

// AcceptsVotes reports whether the poll is open for voting at now
func (p *Poll) AcceptsVotes(now time.Time) bool {
	return p.IsActive && !p.IsExpired(now)
}

// HasOption reports whether optionID belongs to the poll
func (p *Poll) HasOption(optionID int64) bool {
	for _, opt := range p.Options {
		if opt.ID == optionID {
			return true
		}
	}
	return false
}

// TotalVotes sums the options' vote counts
func (p *Poll) TotalVotes() int64 {
	var total int64
	for _, opt := range p.Options {
		total += opt.VoteCount
	}
	return total
}

// CleanOptions trims each option text and drops the blank ones
func CleanOptions(texts []string) []string {
	cleaned := make([]string, 0, len(texts))
	for _, text := range texts {
		if trimmed := strings.TrimSpace(text); trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	return cleaned
}

// ParseOptionLines splits newline separated form text into cleaned options.
// Both \n and \r\n line endings are accepted.
func ParseOptionLines(raw string) []string {
	return CleanOptions(strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n"))
}
