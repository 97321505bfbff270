package controllers

import (
	"context"
	"errors"
	"net/http"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gookit/validate"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/Kubolab-io/takkapp-v1-sub000/models"
	"github.com/Kubolab-io/takkapp-v1-sub000/services"
	"github.com/Kubolab-io/takkapp-v1-sub000/utils"
)

const maxRequestBodySize = 1 << 20 // 1 MB

// MatchController serves the weekly matching endpoints.
type MatchController struct {
	Matching *services.MatchingService
	Photos   services.PhotoResolver
	Timeout  time.Duration
	log      zerolog.Logger
}

func NewMatchController(matching *services.MatchingService, photos services.PhotoResolver, timeout time.Duration, logger zerolog.Logger) *MatchController {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &MatchController{
		Matching: matching,
		Photos:   photos,
		Timeout:  timeout,
		log:      logger.With().Str("component", "http").Logger(),
	}
}

type userRequest struct {
	UserID string `json:"userId" validate:"required"`
}

type decisionRequest struct {
	UserID  string `json:"userId" validate:"required"`
	MatchID string `json:"matchId" validate:"required"`
}

type epochResponse struct {
	EpochID          string    `json:"epochId"`
	EpochEnd         time.Time `json:"epochEnd"`
	RemainingSeconds int64     `json:"remainingSeconds"`
}

type entriesResponse struct {
	EpochID string              `json:"epochId"`
	Matches []models.MatchEntry `json:"matches"`
	Total   int                 `json:"totalMatches"`
	Denied  bool                `json:"denied,omitempty"`
	Created bool                `json:"created,omitempty"`
}

// GetEpoch returns the current epoch and the seconds left in it.
func (mc *MatchController) GetEpoch(w http.ResponseWriter, r *http.Request) {
	epoch := mc.Matching.CurrentEpoch()
	remaining := epoch.End.Sub(mc.Matching.Clock.Now())
	if remaining < 0 {
		remaining = 0
	}
	utils.WriteJSONResponse(w, http.StatusOK, epochResponse{
		EpochID:          epoch.ID,
		EpochEnd:         epoch.End,
		RemainingSeconds: int64(remaining / time.Second),
	})
}

// Generate returns the user's entries for the current epoch, generating them
// on the first call of the epoch.
func (mc *MatchController) Generate(w http.ResponseWriter, r *http.Request) {
	var payload userRequest
	if !mc.decode(w, r, &payload) {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), mc.Timeout)
	defer cancel()

	gen, err := mc.Matching.GetOrGenerate(ctx, payload.UserID)
	if err != nil {
		mc.fail(w, r, err)
		return
	}
	entries := services.ResolveEntryPhotos(ctx, mc.Photos, gen.Entries)
	utils.WriteJSONResponse(w, http.StatusOK, entriesResponse{
		EpochID: gen.EpochID,
		Matches: entries,
		Total:   len(entries),
		Denied:  gen.Denied,
		Created: gen.Created,
	})
}

// GetEntries lists a user's entries for ?epochId=, defaulting to the current epoch.
func (mc *MatchController) GetEntries(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		utils.WriteJSONError(w, http.StatusBadRequest, "userId is required")
		return
	}
	epochID := r.URL.Query().Get("epochId")
	if epochID == "" {
		epochID = mc.Matching.CurrentEpochID()
	}
	ctx, cancel := context.WithTimeout(r.Context(), mc.Timeout)
	defer cancel()

	entries, err := mc.Matching.ListEntries(ctx, userID, epochID)
	if err != nil {
		mc.fail(w, r, err)
		return
	}
	entries = services.ResolveEntryPhotos(ctx, mc.Photos, entries)
	utils.WriteJSONResponse(w, http.StatusOK, entriesResponse{EpochID: epochID, Matches: entries, Total: len(entries)})
}

func (mc *MatchController) Accept(w http.ResponseWriter, r *http.Request) {
	var payload decisionRequest
	if !mc.decode(w, r, &payload) {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), mc.Timeout)
	defer cancel()

	pair, err := mc.Matching.Accept(ctx, payload.UserID, payload.MatchID)
	if err != nil {
		mc.fail(w, r, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, map[string]interface{}{
		"message": "Match accepted",
		"matchId": pair.ID,
		"status":  services.EntryStatusFor(*pair, payload.UserID),
	})
}

func (mc *MatchController) Reject(w http.ResponseWriter, r *http.Request) {
	var payload decisionRequest
	if !mc.decode(w, r, &payload) {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), mc.Timeout)
	defer cancel()

	if err := mc.Matching.Reject(ctx, payload.UserID, payload.MatchID); err != nil {
		mc.fail(w, r, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, map[string]interface{}{
		"message": "Match rejected",
		"matchId": payload.MatchID,
		"status":  models.MatchStatusRejected,
	})
}

func (mc *MatchController) Reconcile(w http.ResponseWriter, r *http.Request) {
	var payload userRequest
	if !mc.decode(w, r, &payload) {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), mc.Timeout)
	defer cancel()

	result, err := mc.Matching.Reconcile(ctx, payload.UserID)
	if err != nil {
		mc.fail(w, r, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, result)
}

func (mc *MatchController) GetPair(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), mc.Timeout)
	defer cancel()

	pair, err := mc.Matching.GetPair(ctx, mux.Vars(r)["matchId"])
	if err != nil {
		mc.fail(w, r, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, pair)
}

// GetChatChannel hands a mutual pair over to the chat subsystem.
func (mc *MatchController) GetChatChannel(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), mc.Timeout)
	defer cancel()

	handoff, err := mc.Matching.ChatChannel(ctx, mux.Vars(r)["matchId"])
	if err != nil {
		mc.fail(w, r, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, handoff)
}

func (mc *MatchController) decode(w http.ResponseWriter, r *http.Request, payload interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	if err := json.NewDecoder(r.Body).Decode(payload); err != nil {
		utils.WriteJSONError(w, http.StatusBadRequest, "Invalid request payload")
		return false
	}
	v := validate.Struct(payload)
	if !v.Validate() {
		utils.WriteJSONError(w, http.StatusBadRequest, v.Errors.One())
		return false
	}
	return true
}

// fail maps service errors to status codes. Transient failures are marked
// retryable; everything else is a one-shot failure.
func (mc *MatchController) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, message := http.StatusInternalServerError, "Something went wrong"
	var partial *services.PartialGenerationError

	switch {
	case errors.Is(err, services.ErrInvalidArgument):
		status, message = http.StatusBadRequest, err.Error()
	case errors.Is(err, services.ErrPairNotFound),
		errors.Is(err, services.ErrViewNotFound),
		errors.Is(err, services.ErrEntryNotFound):
		status, message = http.StatusNotFound, "Match not found"
	case errors.Is(err, services.ErrNotAParticipant):
		status, message = http.StatusForbidden, "Not a participant of this match"
	case errors.Is(err, services.ErrEntryRejected):
		status, message = http.StatusConflict, "Match was rejected"
	case errors.Is(err, services.ErrNotMutual):
		status, message = http.StatusConflict, "Match is not mutual"
	case errors.As(err, &partial):
		status, message = http.StatusInternalServerError, "Failed to generate matches"
	case errors.Is(err, models.ErrMalformedDocument):
		status, message = http.StatusInternalServerError, "Something went wrong"
	case services.IsTransient(err):
		mc.log.Warn().Err(err).Str("requestId", RequestID(r)).Str("path", r.URL.Path).Msg("⚠️ Store unavailable")
		utils.WriteJSONResponse(w, http.StatusServiceUnavailable, map[string]interface{}{
			"error":     "Temporarily unavailable, try again",
			"retryable": true,
		})
		return
	}

	event := mc.log.Warn()
	if status >= http.StatusInternalServerError {
		event = mc.log.Error()
	}
	event.Err(err).Str("requestId", RequestID(r)).Str("path", r.URL.Path).Int("status", status).Msg("❌ Request failed")
	utils.WriteJSONError(w, status, message)
}
