// Package api exposes pkg/solver as a gin HTTP service: submit a grid
// template for filling, fetch a run's result, list recent runs, request
// cancellation, and subscribe to live progress over a websocket.
package api

import (
	"log"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/hoverbird/ingrid-core/internal/auth"
	"github.com/hoverbird/ingrid-core/internal/realtime"
	"github.com/hoverbird/ingrid-core/internal/store"
	"github.com/hoverbird/ingrid-core/pkg/dupeindex"
	"github.com/hoverbird/ingrid-core/pkg/gridtemplate"
	"github.com/hoverbird/ingrid-core/pkg/solver"
	"github.com/hoverbird/ingrid-core/pkg/wordlist"
)

// HubInterface is the subset of *realtime.Hub the handlers need to push
// search progress. Defined as an interface so tests can substitute a fake.
type HubInterface interface {
	BroadcastProgress(runID string, stats solver.Statistics)
	BroadcastCompleted(runID string, stats solver.Statistics)
	BroadcastFailed(runID string, failure *solver.FillFailure)
}

const (
	defaultMinScore           = 50
	defaultMaxSharedSubstring = 5
)

type Handlers struct {
	store       *store.Store
	authService *auth.AuthService
	words       *wordlist.Wordlist
	hub         HubInterface
	wsHub       *realtime.Hub // set alongside hub, used only to serve the websocket upgrade
}

func NewHandlers(st *store.Store, authService *auth.AuthService, words *wordlist.Wordlist) *Handlers {
	return &Handlers{store: st, authService: authService, words: words}
}

// SetHub wires the realtime hub in after construction. The handlers use it
// both to broadcast run progress and to serve the websocket upgrade; until
// it is set, no progress is broadcast.
func (h *Handlers) SetHub(hub *realtime.Hub) {
	h.hub = hub
	h.wsHub = hub
}

// SubmitRunRequest is the body of a submit-grid-for-filling request.
type SubmitRunRequest struct {
	Template           string `json:"template" binding:"required"`
	MinScore           int    `json:"minScore"`
	MaxSharedSubstring int    `json:"maxSharedSubstring"`
}

type SubmitRunResponse struct {
	RunID string `json:"runId"`
}

// SubmitRun parses the submitted template, kicks off solver.FindFill in the
// background, and returns the run id immediately so the caller can poll
// GetRun or subscribe to ServeRunProgress.
func (h *Handlers) SubmitRun(c *gin.Context) {
	var req SubmitRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.MinScore == 0 {
		req.MinScore = defaultMinScore
	}
	if req.MaxSharedSubstring == 0 {
		req.MaxSharedSubstring = defaultMaxSharedSubstring
	}

	grid, err := gridtemplate.Parse(req.Template)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	dupes, err := dupeindex.Build(h.words, distinctLengths(grid), req.MaxSharedSubstring)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var abort atomic.Bool
	config, err := grid.ToConfig(h.words, dupes, req.MinScore, &abort)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	runID := uuid.New().String()
	run := &store.FillRun{
		ID:                 runID,
		Template:           req.Template,
		MinScore:           req.MinScore,
		MaxSharedSubstring: req.MaxSharedSubstring,
		Status:             store.StatusRunning,
		CreatedAt:          time.Now(),
	}
	if err := h.store.CreateFillRun(run); err != nil {
		log.Printf("SubmitRun: failed to create run record: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create run"})
		return
	}

	stopWatch := h.store.WatchAbort(runID, &abort, time.Second)
	if h.hub != nil {
		config.OnProgress = func(stats solver.Statistics) {
			h.hub.BroadcastProgress(runID, stats)
		}
	}

	go h.runFill(runID, grid, config, stopWatch)

	c.JSON(http.StatusAccepted, SubmitRunResponse{RunID: runID})
}

// runFill drives one solver.FindFill call to completion and persists and
// broadcasts the outcome. It owns stopWatch: the Redis-backed abort
// watcher started for this run, torn down once the search ends either way.
func (h *Handlers) runFill(runID string, grid *gridtemplate.Grid, config *solver.Config, stopWatch func()) {
	defer stopWatch()

	success, failure := solver.FindFill(config)
	if failure != nil {
		if err := h.store.FailFillRun(runID, failure); err != nil {
			log.Printf("runFill: failed to persist failure for %s: %v", runID, err)
		}
		if h.hub != nil {
			h.hub.BroadcastFailed(runID, failure)
		}
		return
	}

	renderedGrid := grid.Render(h.words, success.Choices)
	if err := h.store.CompleteFillRun(runID, renderedGrid, success.Statistics); err != nil {
		log.Printf("runFill: failed to persist completion for %s: %v", runID, err)
	}
	if h.hub != nil {
		h.hub.BroadcastCompleted(runID, success.Statistics)
	}
}

// GetRun fetches a fill run's current status and, once finished, its
// result.
func (h *Handlers) GetRun(c *gin.Context) {
	run, err := h.store.GetFillRun(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
		return
	}
	if run == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
		return
	}
	c.JSON(http.StatusOK, run)
}

// ListRuns returns the most recently submitted runs, newest first.
func (h *Handlers) ListRuns(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	runs, err := h.store.ListRecentFillRuns(limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

// CancelRun requests cooperative cancellation of a still-running fill,
// whichever fillserver instance happens to be driving the search.
func (h *Handlers) CancelRun(c *gin.Context) {
	id := c.Param("id")
	run, err := h.store.GetFillRun(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
		return
	}
	if run == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
		return
	}
	if run.Status != store.StatusRunning {
		c.JSON(http.StatusConflict, gin.H{"error": "run is not in progress"})
		return
	}

	if err := h.store.RequestAbort(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to request abort"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "abort requested"})
}

// ServeRunProgress upgrades the connection to a websocket subscribed to the
// progress stream of the run named in the route; the client may switch to
// another run by sending a subscribe message. Authentication
// is via a token query parameter since a websocket handshake carries no
// Authorization header.
func (h *Handlers) ServeRunProgress(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}
	if _, err := h.authService.ValidateToken(token); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	if h.wsHub == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "realtime hub unavailable"})
		return
	}
	if err := realtime.ServeWs(h.wsHub, c.Writer, c.Request, c.Param("id")); err != nil {
		log.Printf("ServeRunProgress: websocket upgrade failed: %v", err)
	}
}

// distinctLengths lists every slot length the template uses, the length
// set a dupeindex.Build call needs to cover.
func distinctLengths(grid *gridtemplate.Grid) []int {
	seen := make(map[int]bool)
	var lengths []int
	for _, e := range grid.Entries {
		if !seen[e.Length] {
			seen[e.Length] = true
			lengths = append(lengths, e.Length)
		}
	}
	return lengths
}
