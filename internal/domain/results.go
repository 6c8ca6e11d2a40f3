package domain

// OptionResult is an option annotated with its share of the poll's votes
type OptionResult struct {
	Option
	Percentage int `json:"percentage"`
}

// PollResults is a poll with per-option percentages
type PollResults struct {
	Poll
	Options    []OptionResult `json:"options"`
	TotalVotes int64          `json:"total_votes"`
	Stats      *VoteStats     `json:"stats,omitempty"`
}

// Percentage returns count/total*100 rounded to the nearest integer, ties
// away from zero. A zero total yields 0. Integer math keeps exact ties such
// as 57/200 from landing just below .5.
func Percentage(count, total int64) int {
	if total <= 0 || count <= 0 {
		return 0
	}
	return int((200*count + total) / (2 * total))
}

// BuildResults derives results from the poll's current counts
func BuildResults(poll *Poll) *PollResults {
	total := poll.TotalVotes()
	results := &PollResults{
		Poll:       *poll,
		Options:    make([]OptionResult, 0, len(poll.Options)),
		TotalVotes: total,
	}
	results.Poll.Options = nil
	for _, opt := range poll.Options {
		results.Options = append(results.Options, OptionResult{
			Option:     opt,
			Percentage: Percentage(opt.VoteCount, total),
		})
	}
	return results
}
