package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/ahochma/choreboard/internal/model"
	"github.com/ahochma/choreboard/internal/monthkey"
	"github.com/ahochma/choreboard/internal/scoring"
	"github.com/ahochma/choreboard/internal/store"
	"github.com/ahochma/choreboard/internal/websocket"
	"github.com/google/uuid"
)

// ScoreHandler exposes the completion ledger and the scoring engine: record
// completions, read totals, close months, and read closed results.
type ScoreHandler struct {
	scoring     *scoring.Service
	people      *store.PersonStore
	chores      *store.ChoreStore
	completions *store.CompletionStore
	results     *store.ResultStore
	hub         *websocket.Hub
	logger      *slog.Logger
}

func NewScoreHandler(
	svc *scoring.Service,
	people *store.PersonStore,
	chores *store.ChoreStore,
	completions *store.CompletionStore,
	results *store.ResultStore,
	hub *websocket.Hub,
	logger *slog.Logger,
) *ScoreHandler {
	return &ScoreHandler{
		scoring:     svc,
		people:      people,
		chores:      chores,
		completions: completions,
		results:     results,
		hub:         hub,
		logger:      logger,
	}
}

func (h *ScoreHandler) broadcast(msg websocket.Message) {
	if h.hub != nil {
		h.hub.Broadcast(msg)
	}
}

type completionRequest struct {
	ChoreID     uuid.UUID  `json:"chore_id"`
	PersonID    uuid.UUID  `json:"person_id"`
	CompletedAt *time.Time `json:"completed_at"`
}

// RecordCompletion appends a completion to the ledger, freezing the chore's
// current title and points into it.
func (h *ScoreHandler) RecordCompletion(w http.ResponseWriter, r *http.Request) {
	var req completionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	chore, err := h.chores.GetByID(req.ChoreID)
	if err != nil {
		h.logger.Error("get chore", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get chore"})
		return
	}
	if chore == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "chore not found"})
		return
	}

	person, err := h.people.GetByID(req.PersonID)
	if err != nil {
		h.logger.Error("get person", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get person"})
		return
	}
	if person == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "person not found"})
		return
	}

	var at time.Time
	if req.CompletedAt != nil {
		at = *req.CompletedAt
	}

	completion, err := h.scoring.MarkDone(*chore, *person, at)
	if err != nil {
		h.logger.Error("record completion", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to record completion"})
		return
	}

	h.broadcast(websocket.NewMessage("completion", "recorded", completion.ID.String(), map[string]any{
		"person_id": completion.PersonID.String(),
		"points":    completion.PointsSnapshot,
	}))
	writeJSON(w, http.StatusCreated, completion)
}

// ListCompletions returns the ledger slice for one month (?month=YYYY-MM),
// defaulting to the current UTC month.
func (h *ScoreHandler) ListCompletions(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("month")
	if key == "" {
		key = monthkey.KeyOf(time.Now())
	}

	start, end, err := monthkey.Range(key)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid month key"})
		return
	}

	completions, err := h.completions.ListByRange(start, end)
	if err != nil {
		h.logger.Error("list completions", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list completions"})
		return
	}
	if completions == nil {
		completions = []model.Completion{}
	}
	writeJSON(w, http.StatusOK, completions)
}

// MonthTotals returns per-person point totals for the month in the path.
func (h *ScoreHandler) MonthTotals(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	totals, err := h.scoring.Totals(key)
	if err != nil {
		if errors.Is(err, monthkey.ErrInvalidKey) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid month key"})
			return
		}
		h.logger.Error("month totals", "month", key, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to compute totals"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"month_key": key, "totals": totals})
}

// TodayTotals returns per-person totals for the server-local day.
func (h *ScoreHandler) TodayTotals(w http.ResponseWriter, r *http.Request) {
	totals, err := h.scoring.TodayTotals()
	if err != nil {
		h.logger.Error("today totals", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to compute totals"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"totals": totals})
}

// Leader returns the current month's leading person name, empty when nobody
// has scored yet.
func (h *ScoreHandler) Leader(w http.ResponseWriter, r *http.Request) {
	name, err := h.scoring.CurrentLeaderName()
	if err != nil {
		h.logger.Error("current leader", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to compute leader"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"leader": name})
}

// Wins returns per-person win counts over the last n closed months
// (?months=n, default 6).
func (h *ScoreHandler) Wins(w http.ResponseWriter, r *http.Request) {
	n := scoring.DefaultWinsWindow
	if raw := r.URL.Query().Get("months"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "months must be a non-negative integer"})
			return
		}
		n = parsed
	}

	wins, err := h.scoring.WinsOverLastMonths(n)
	if err != nil {
		h.logger.Error("wins", "months", n, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to compute wins"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"months": n, "wins": wins})
}

// CloseMonth finalizes the month in the path. Closing an already-closed
// month is a conflict, never an overwrite.
func (h *ScoreHandler) CloseMonth(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	result, err := h.scoring.CloseMonth(key)
	if err != nil {
		switch {
		case errors.Is(err, monthkey.ErrInvalidKey):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid month key"})
		case errors.Is(err, scoring.ErrMonthAlreadyClosed):
			writeJSON(w, http.StatusConflict, map[string]string{"error": "month already closed"})
		default:
			h.logger.Error("close month", "month", key, "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to close month"})
		}
		return
	}

	h.broadcast(websocket.NewMessage("monthly_result", "closed", result.MonthKey, map[string]any{
		"winners": len(result.WinnerIDs),
	}))
	writeJSON(w, http.StatusCreated, result)
}

// ListResults returns all closed months, newest first.
func (h *ScoreHandler) ListResults(w http.ResponseWriter, r *http.Request) {
	results, err := h.results.List()
	if err != nil {
		h.logger.Error("list results", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list results"})
		return
	}
	if results == nil {
		results = []model.MonthlyResult{}
	}
	writeJSON(w, http.StatusOK, results)
}

// GetResult returns the closed result for one month.
func (h *ScoreHandler) GetResult(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	if !monthkey.Valid(key) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid month key"})
		return
	}

	result, err := h.results.GetByKey(key)
	if err != nil {
		h.logger.Error("get result", "month", key, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get result"})
		return
	}
	if result == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "month not closed"})
		return
	}
	writeJSON(w, http.StatusOK, result)
}
