package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"cricketcore/internal/archive"
	"cricketcore/internal/archive/blob"
	"cricketcore/internal/core"
	"cricketcore/pkg/domain"

	"github.com/go-chi/chi/v5"
)

// maxBodyBytes caps request bodies; every payload is a handful of fields.
const maxBodyBytes = 64 << 10

type errorResponse struct {
	Error  string `json:"error"`
	Reason string `json:"reason,omitempty"`
}

type violationResponse struct {
	Rule     string `json:"rule"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
}

func violations(res domain.Result) []violationResponse {
	out := make([]violationResponse, 0, len(res.Violations))
	for _, v := range res.Violations {
		out = append(out, violationResponse{Rule: v.Rule, Severity: string(v.Severity), Message: v.Message})
	}
	return out
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// respondError maps service errors onto HTTP statuses.
func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		rejection *core.Rejection
		blocked   domain.RuleViolationError
		status    = http.StatusInternalServerError
		body      = errorResponse{Error: err.Error()}
	)
	switch {
	case errors.As(err, &rejection):
		status = http.StatusConflict
		body.Reason = string(rejection.Reason)
	case errors.As(err, &blocked):
		status = http.StatusUnprocessableEntity
		body.Reason = "rule_violation"
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, archive.ErrNoScorecard):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrAlreadyExists):
		status = http.StatusConflict
		body.Reason = "already_exists"
	case errors.Is(err, domain.ErrInvalidDelivery), errors.Is(err, errBadRequest):
		status = http.StatusBadRequest
	case errors.Is(err, blob.ErrUnsupported):
		status = http.StatusNotImplemented
	}
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", "path", r.URL.Path, "error", err)
		body.Error = http.StatusText(status)
	}
	respondJSON(w, status, body)
}

var errBadRequest = errors.New("bad request")

func decode(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: invalid request body: %v", errBadRequest, err)
	}
	return nil
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
	})
}

type createTeamRequest struct {
	Name      string `json:"name"`
	ShortCode string `json:"short_code"`
}

func (h *Handler) listTeams(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"teams": h.svc.ListTeams(r.Context())})
}

func (h *Handler) createTeam(w http.ResponseWriter, r *http.Request) {
	var req createTeamRequest
	if err := decode(w, r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	team, res, err := h.svc.CreateTeam(r.Context(), req.Name, req.ShortCode)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{"team": team, "violations": violations(res)})
}

type addPlayerRequest struct {
	Name string `json:"name"`
}

func (h *Handler) roster(w http.ResponseWriter, r *http.Request) {
	team := chi.URLParam(r, "team")
	respondJSON(w, http.StatusOK, map[string]any{"team": team, "players": h.svc.Roster(r.Context(), team)})
}

func (h *Handler) addPlayer(w http.ResponseWriter, r *http.Request) {
	var req addPlayerRequest
	if err := decode(w, r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	player, res, err := h.svc.AddPlayer(r.Context(), chi.URLParam(r, "team"), req.Name)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{"player": player, "violations": violations(res)})
}

type scheduleMatchRequest struct {
	TeamA      string `json:"team_a"`
	TeamB      string `json:"team_b"`
	OversLimit int    `json:"overs_limit"`
}

type matchSummary struct {
	domain.Match
	Number int `json:"number"`
}

func (h *Handler) listMatches(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	numbers := h.svc.MatchNumbers(ctx)
	matches := h.svc.ListMatches(ctx)
	out := make([]matchSummary, 0, len(matches))
	for _, m := range matches {
		out = append(out, matchSummary{Match: m, Number: numbers[m.ID]})
	}
	respondJSON(w, http.StatusOK, map[string]any{"matches": out, "count": len(out)})
}

func (h *Handler) scheduleMatch(w http.ResponseWriter, r *http.Request) {
	var req scheduleMatchRequest
	if err := decode(w, r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	m, res, err := h.svc.ScheduleMatch(r.Context(), req.TeamA, req.TeamB, req.OversLimit)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{"match": m, "violations": violations(res)})
}

// stateHandler adapts a state-returning service call taking only the match ID.
func (h *Handler) stateHandler(fn func(*http.Request, string) (core.MatchState, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state, err := fn(r, chi.URLParam(r, "id"))
		if err != nil {
			h.respondError(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, state)
	}
}

func (h *Handler) matchState(w http.ResponseWriter, r *http.Request) {
	h.stateHandler(func(r *http.Request, id string) (core.MatchState, error) {
		return h.svc.MatchState(r.Context(), id)
	})(w, r)
}

func (h *Handler) startMatch(w http.ResponseWriter, r *http.Request) {
	h.stateHandler(func(r *http.Request, id string) (core.MatchState, error) {
		return h.svc.StartMatch(r.Context(), id)
	})(w, r)
}

func (h *Handler) undo(w http.ResponseWriter, r *http.Request) {
	h.stateHandler(func(r *http.Request, id string) (core.MatchState, error) {
		return h.svc.UndoLastDelivery(r.Context(), id)
	})(w, r)
}

func (h *Handler) closeMatch(w http.ResponseWriter, r *http.Request) {
	h.stateHandler(func(r *http.Request, id string) (core.MatchState, error) {
		return h.svc.CloseMatch(r.Context(), id)
	})(w, r)
}

func (h *Handler) closeDialog(w http.ResponseWriter, r *http.Request) {
	h.stateHandler(func(r *http.Request, id string) (core.MatchState, error) {
		return h.svc.CloseDialog(r.Context(), id)
	})(w, r)
}

type nameRequest struct {
	Name string `json:"name"`
}

// nameHandler decodes {"name": ...} and passes it to fn.
func (h *Handler) nameHandler(fn func(*http.Request, string, string) (core.MatchState, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req nameRequest
		if err := decode(w, r, &req); err != nil {
			h.respondError(w, r, err)
			return
		}
		state, err := fn(r, chi.URLParam(r, "id"), req.Name)
		if err != nil {
			h.respondError(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, state)
	}
}

func (h *Handler) assignBowler(w http.ResponseWriter, r *http.Request) {
	h.nameHandler(func(r *http.Request, id, name string) (core.MatchState, error) {
		return h.svc.AssignBowler(r.Context(), id, name)
	})(w, r)
}

func (h *Handler) assignStriker(w http.ResponseWriter, r *http.Request) {
	h.nameHandler(func(r *http.Request, id, name string) (core.MatchState, error) {
		return h.svc.AssignStriker(r.Context(), id, name)
	})(w, r)
}

func (h *Handler) assignNonStriker(w http.ResponseWriter, r *http.Request) {
	h.nameHandler(func(r *http.Request, id, name string) (core.MatchState, error) {
		return h.svc.AssignNonStriker(r.Context(), id, name)
	})(w, r)
}

type batFirstRequest struct {
	Team string `json:"team"`
}

func (h *Handler) setBatFirst(w http.ResponseWriter, r *http.Request) {
	var req batFirstRequest
	if err := decode(w, r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	state, err := h.svc.SetBatFirst(r.Context(), chi.URLParam(r, "id"), req.Team)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, state)
}

type dialogRequest struct {
	Kind core.DialogKind `json:"kind"`
}

func (h *Handler) openDialog(w http.ResponseWriter, r *http.Request) {
	var req dialogRequest
	if err := decode(w, r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	state, err := h.svc.OpenDialog(r.Context(), chi.URLParam(r, "id"), req.Kind)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, state)
}

func (h *Handler) scorecard(w http.ResponseWriter, r *http.Request) {
	card, err := h.svc.Scorecard(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, card)
}

// deliveryRequest names one of the scorer's quick outcomes, or carries a full
// delivery record.
type deliveryRequest struct {
	Kind     string              `json:"kind"`
	Runs     int                 `json:"runs"`
	Player   string              `json:"player"`
	Preset   domain.NoBallPreset `json:"preset"`
	Credit   bool                `json:"credit"`
	Delivery *domain.Delivery    `json:"delivery"`
}

func (req deliveryRequest) delivery() (domain.Delivery, error) {
	if req.Delivery != nil {
		return *req.Delivery, nil
	}
	switch req.Kind {
	case "dot":
		return domain.DotBall(), nil
	case "runs":
		return domain.RunsOffBat(req.Runs), nil
	case "byes":
		return domain.Byes(req.Runs), nil
	case "wide":
		return domain.Wide(req.Runs), nil
	case "no_ball":
		if req.Preset != "" {
			return domain.NoBallFromPreset(req.Preset)
		}
		return domain.NoBall(req.Runs, req.Credit), nil
	case "bowled":
		return domain.Bowled(), nil
	case "caught":
		return domain.Caught(), nil
	case "run_out":
		return domain.RunOut(req.Player, req.Runs), nil
	case "no_ball_run_out":
		return domain.NoBallRunOut(req.Player, req.Runs), nil
	}
	return domain.Delivery{}, fmt.Errorf("%w: unknown delivery kind %q", errBadRequest, req.Kind)
}

func (h *Handler) applyDelivery(w http.ResponseWriter, r *http.Request) {
	var req deliveryRequest
	if err := decode(w, r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	d, err := req.delivery()
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	out, err := h.svc.ApplyDelivery(r.Context(), chi.URLParam(r, "id"), d)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, out)
}

func (h *Handler) requireArchiver(w http.ResponseWriter, r *http.Request) bool {
	if h.archiver == nil {
		h.respondError(w, r, fmt.Errorf("scorecard archive disabled: %w", blob.ErrUnsupported))
		return false
	}
	return true
}

func (h *Handler) archiveHistory(w http.ResponseWriter, r *http.Request) {
	if !h.requireArchiver(w, r) {
		return
	}
	infos, err := h.archiver.History(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"versions": infos, "count": len(infos)})
}

func (h *Handler) archiveLatest(w http.ResponseWriter, r *http.Request) {
	if !h.requireArchiver(w, r) {
		return
	}
	card, err := h.archiver.Latest(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, card)
}

func (h *Handler) archiveURL(w http.ResponseWriter, r *http.Request) {
	if !h.requireArchiver(w, r) {
		return
	}
	var expiry time.Duration
	if raw := r.URL.Query().Get("expiry"); raw != "" {
		secs, err := strconv.Atoi(raw)
		if err != nil || secs < 0 {
			h.respondError(w, r, fmt.Errorf("%w: expiry must be a number of seconds", errBadRequest))
			return
		}
		expiry = time.Duration(secs) * time.Second
	}
	url, err := h.archiver.DownloadURL(r.Context(), chi.URLParam(r, "id"), expiry)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"url": url})
}
