package handler

import (
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"polls-be/internal/domain"
	"polls-be/internal/service"
	"polls-be/pkg/errors"
	"polls-be/pkg/logger"

	"github.com/dustin/go-humanize"
	"github.com/go-chi/chi/v5"
)

// PollHandler serves polls, votes and results. The voter is identified by
// client address.
type PollHandler struct {
	polls   service.PollStore
	ballots service.BallotEngine
	results service.ResultsReader
	log     *logger.Logger
}

func NewPollHandler(services *service.Services, log *logger.Logger) *PollHandler {
	return &PollHandler{
		polls:   services.Polls,
		ballots: services.Ballots,
		results: services.Results,
		log:     log,
	}
}

// RegisterRoutes mounts the poll routes on r
func (h *PollHandler) RegisterRoutes(r chi.Router) {
	r.Route("/polls", func(r chi.Router) {
		r.Get("/", h.ListPolls)
		r.Post("/", h.CreatePoll)

		r.Route("/{pollID}", func(r chi.Router) {
			r.Get("/", h.GetPoll)
			r.Delete("/", h.DeletePoll)
			r.Post("/close", h.ClosePoll)
			r.Post("/votes", h.CastVote)
			r.Get("/results", h.GetResults)
		})
	})
}

// CreatePollRequest is the JSON body of POST /polls. Options holds newline
// separated text as typed into a form; OptionList, when present, wins.
type CreatePollRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Options     string     `json:"options"`
	OptionList  []string   `json:"option_list"`
	EndsAt      *time.Time `json:"ends_at"`
}

// CastVoteRequest is the body of POST /polls/{pollID}/votes
type CastVoteRequest struct {
	OptionID int64 `json:"option_id"`
}

// VoteResponse is returned for every vote attempt, accepted or not
type VoteResponse struct {
	Success bool               `json:"success"`
	Kind    domain.OutcomeKind `json:"kind"`
	Message string             `json:"message"`
	VoteID  string             `json:"vote_id,omitempty"`
}

// PollView is a poll plus whether the caller has voted in it
type PollView struct {
	*domain.Poll
	HasVoted bool `json:"has_voted"`
}

// ResultsView is poll results plus whether the caller has voted in the poll
type ResultsView struct {
	*domain.PollResults
	HasVoted         bool   `json:"has_voted"`
	LastVoteRelative string `json:"last_vote_relative,omitempty"`
}

var outcomeMessages = map[domain.OutcomeKind]string{
	domain.OutcomeRecorded:      "Your vote has been recorded",
	domain.OutcomeAlreadyVoted:  "You have already voted in this poll",
	domain.OutcomePollNotFound:  "Poll not found",
	domain.OutcomePollClosed:    "This poll is closed",
	domain.OutcomeInvalidOption: "Selected option does not belong to this poll",
	domain.OutcomeInvalidVoter:  "Could not identify the voter",
	domain.OutcomeError:         "Something went wrong while recording your vote, please try again",
}

var outcomeStatus = map[domain.OutcomeKind]int{
	domain.OutcomeRecorded:      http.StatusCreated,
	domain.OutcomeAlreadyVoted:  http.StatusConflict,
	domain.OutcomePollNotFound:  http.StatusNotFound,
	domain.OutcomePollClosed:    http.StatusConflict,
	domain.OutcomeInvalidOption: http.StatusBadRequest,
	domain.OutcomeInvalidVoter:  http.StatusBadRequest,
	domain.OutcomeError:         http.StatusInternalServerError,
}

// ListPolls handles GET /api/v1/polls
func (h *PollHandler) ListPolls(w http.ResponseWriter, r *http.Request) {
	polls, err := h.polls.ListActivePolls(r.Context())
	if err != nil {
		respondErr(w, r, h.log, err)
		return
	}
	respondData(w, http.StatusOK, polls)
}

// CreatePoll handles POST /api/v1/polls with a JSON or form encoded body
func (h *PollHandler) CreatePoll(w http.ResponseWriter, r *http.Request) {
	req, appErr := decodeCreatePoll(r)
	if appErr != nil {
		respondError(w, r, h.log, appErr)
		return
	}

	var (
		id  int64
		err error
	)
	if req.OptionList != nil {
		id, err = h.polls.CreatePoll(r.Context(), req.Title, req.Description, req.OptionList, req.EndsAt)
	} else {
		id, err = h.polls.CreatePollFromForm(r.Context(), req.Title, req.Description, req.Options, req.EndsAt)
	}
	if err != nil {
		respondErr(w, r, h.log, err)
		return
	}

	poll, err := h.polls.GetPoll(r.Context(), id)
	if err != nil {
		respondErr(w, r, h.log, err)
		return
	}
	w.Header().Set("Location", "/api/v1/polls/"+strconv.FormatInt(id, 10))
	respondData(w, http.StatusCreated, poll)
}

// GetPoll handles GET /api/v1/polls/{pollID}
func (h *PollHandler) GetPoll(w http.ResponseWriter, r *http.Request) {
	pollID, ok := h.pollID(w, r)
	if !ok {
		return
	}

	poll, err := h.polls.GetPoll(r.Context(), pollID)
	if err != nil {
		respondErr(w, r, h.log, err)
		return
	}
	if poll == nil {
		respondError(w, r, h.log, errors.NewNotFoundError("Poll not found"))
		return
	}

	voted, err := h.ballots.HasVoted(r.Context(), pollID, clientIP(r))
	if err != nil {
		respondErr(w, r, h.log, err)
		return
	}
	respondData(w, http.StatusOK, PollView{Poll: poll, HasVoted: voted})
}

// ClosePoll handles POST /api/v1/polls/{pollID}/close
func (h *PollHandler) ClosePoll(w http.ResponseWriter, r *http.Request) {
	pollID, ok := h.pollID(w, r)
	if !ok {
		return
	}

	poll, err := h.polls.GetPoll(r.Context(), pollID)
	if err != nil {
		respondErr(w, r, h.log, err)
		return
	}
	if poll == nil {
		respondError(w, r, h.log, errors.NewNotFoundError("Poll not found"))
		return
	}

	if err := h.polls.ClosePoll(r.Context(), pollID); err != nil {
		respondErr(w, r, h.log, err)
		return
	}
	poll.IsActive = false
	respondData(w, http.StatusOK, poll)
}

// DeletePoll handles DELETE /api/v1/polls/{pollID}
func (h *PollHandler) DeletePoll(w http.ResponseWriter, r *http.Request) {
	pollID, ok := h.pollID(w, r)
	if !ok {
		return
	}

	deleted, err := h.polls.DeletePoll(r.Context(), pollID)
	if err != nil {
		respondErr(w, r, h.log, err)
		return
	}
	if !deleted {
		respondError(w, r, h.log, errors.NewNotFoundError("Poll not found"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CastVote handles POST /api/v1/polls/{pollID}/votes
func (h *PollHandler) CastVote(w http.ResponseWriter, r *http.Request) {
	pollID, ok := h.pollID(w, r)
	if !ok {
		return
	}

	var req CastVoteRequest
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/x-www-form-urlencoded") {
		if err := r.ParseForm(); err != nil {
			respondError(w, r, h.log, errors.NewValidationError("Invalid form body", nil))
			return
		}
		raw := r.PostForm.Get("option_id")
		if raw == "" {
			raw = r.PostForm.Get("optionId")
		}
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			respondError(w, r, h.log, errors.NewValidationError("Please select an option", nil))
			return
		}
		req.OptionID = id
	} else if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, r, h.log, errors.NewValidationError("Invalid request body", nil))
		return
	}
	if req.OptionID <= 0 {
		respondError(w, r, h.log, errors.NewValidationError("Please select an option", nil))
		return
	}

	outcome := h.ballots.CastVote(r.Context(), pollID, req.OptionID, clientIP(r))
	status, known := outcomeStatus[outcome.Kind]
	if !known {
		status = http.StatusInternalServerError
	}
	respondJSON(w, status, VoteResponse{
		Success: outcome.Success,
		Kind:    outcome.Kind,
		Message: outcomeMessages[outcome.Kind],
		VoteID:  outcome.VoteID,
	})
}

// GetResults handles GET /api/v1/polls/{pollID}/results. Totals are computed
// on every request; the ETag only saves the body transfer.
func (h *PollHandler) GetResults(w http.ResponseWriter, r *http.Request) {
	pollID, ok := h.pollID(w, r)
	if !ok {
		return
	}

	results, err := h.results.GetResultsWithStats(r.Context(), pollID)
	if err != nil {
		respondErr(w, r, h.log, err)
		return
	}
	if results == nil {
		respondError(w, r, h.log, errors.NewNotFoundError("Poll not found"))
		return
	}

	voted, err := h.ballots.HasVoted(r.Context(), pollID, clientIP(r))
	if err != nil {
		respondErr(w, r, h.log, err)
		return
	}
	view := ResultsView{PollResults: results, HasVoted: voted}

	// the relative time changes on its own, so it stays out of the ETag
	etag := generateETag(view)
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	if results.Stats != nil && results.Stats.LastVoteAt != nil {
		view.LastVoteRelative = humanize.Time(*results.Stats.LastVoteAt)
	}
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "no-cache")
	respondData(w, http.StatusOK, view)
}

func (h *PollHandler) pollID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "pollID")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		respondError(w, r, h.log, errors.NewValidationError("Invalid poll id", map[string]interface{}{"poll_id": raw}))
		return 0, false
	}
	return id, true
}

// form inputs of type datetime-local carry no zone or seconds
var formTimeLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02T15:04"}

func decodeCreatePoll(r *http.Request) (*CreatePollRequest, *errors.AppError) {
	contentType := r.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "application/x-www-form-urlencoded") &&
		!strings.HasPrefix(contentType, "multipart/form-data") {
		var req CreatePollRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return nil, errors.NewValidationError("Invalid request body", nil)
		}
		return &req, nil
	}

	if err := r.ParseMultipartForm(1 << 20); err != nil && err != http.ErrNotMultipart {
		return nil, errors.NewValidationError("Invalid form body", nil)
	}
	req := &CreatePollRequest{
		Title:       r.PostFormValue("title"),
		Description: r.PostFormValue("description"),
		Options:     r.PostFormValue("options"),
	}
	if raw := strings.TrimSpace(r.PostFormValue("ends_at")); raw != "" {
		endsAt, err := parseFormTime(raw)
		if err != nil {
			return nil, errors.NewValidationError("Invalid end time", map[string]interface{}{"ends_at": raw})
		}
		req.EndsAt = &endsAt
	}
	return req, nil
}

func parseFormTime(raw string) (time.Time, error) {
	var err error
	for _, layout := range formTimeLayouts {
		var t time.Time
		if t, err = time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, err
}

// clientIP returns the caller's address without port. chi's RealIP
// middleware has already applied X-Forwarded-For and X-Real-IP.
func clientIP(r *http.Request) string {
	ip := r.RemoteAddr
	if host, _, err := net.SplitHostPort(ip); err == nil {
		ip = host
	}
	if ip == "::1" {
		return "127.0.0.1"
	}
	return ip
}
