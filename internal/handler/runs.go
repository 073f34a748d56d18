package handler

import (
    "context"  // run source interface
    "errors"   // errors.Is on repository sentinels
    "net/http" // HTTP status codes
    "strconv"  // limit query parameter

    "github.com/labstack/echo/v4" // echo request context

    "github.com/iliyamo/irctc-booking-supporter/internal/model"      // run records
    "github.com/iliyamo/irctc-booking-supporter/internal/repository" // ErrNotFound
    "github.com/iliyamo/irctc-booking-supporter/internal/status"     // latest status update
)

// LiveRuns is the in-process run view.  *service.Channel implements it.
type LiveRuns interface {
    Active() (model.RunRecord, bool)
    Runs() []model.RunRecord
    Run(id string) (model.RunRecord, bool)
}

// RunStore is the persisted run history.  *repository.RunRepo implements it.
type RunStore interface {
    Recent(ctx context.Context, limit int) ([]model.RunRecord, error)
    GetByID(ctx context.Context, id string) (model.RunRecord, error)
}

// StatusHandler serves the last status line and the run history.  Store
// may be nil when no database is configured.
type StatusHandler struct {
    Last  *status.Snapshot
    Live  LiveRuns
    Store RunStore
}

func NewStatusHandler(last *status.Snapshot, live LiveRuns, store RunStore) *StatusHandler {
    return &StatusHandler{Last: last, Live: live, Store: store}
}

type statusResp struct {
    Running bool             `json:"running"`
    Run     *model.RunRecord `json:"run,omitempty"`
    Update  *status.Update   `json:"update,omitempty"`
}

// Status handles GET /v1/status: the most recent update and the run in
// flight, if any.
func (h *StatusHandler) Status(c echo.Context) error {
    var resp statusResp
    if u, ok := h.Last.Last(); ok {
        resp.Update = &u
    }
    if run, ok := h.Live.Active(); ok {
        resp.Running = true
        resp.Run = &run
    }
    return c.JSON(http.StatusOK, resp)
}

// Runs handles GET /v1/runs?limit=N.  The database wins when configured.
func (h *StatusHandler) Runs(c echo.Context) error {
    limit := 20
    if s := c.QueryParam("limit"); s != "" {
        n, err := strconv.Atoi(s)
        if err != nil || n <= 0 {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid limit"})
        }
        limit = n
    }
    if h.Store != nil {
        runs, err := h.Store.Recent(c.Request().Context(), limit)
        if err != nil {
            return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not list runs"})
        }
        return c.JSON(http.StatusOK, echo.Map{"runs": runs})
    }
    runs := h.Live.Runs()
    if len(runs) > limit {
        runs = runs[:limit]
    }
    return c.JSON(http.StatusOK, echo.Map{"runs": runs})
}

// Run handles GET /v1/runs/:id.  Runs of this process are answered from
// memory so an active run shows live progress.
func (h *StatusHandler) Run(c echo.Context) error {
    id := c.Param("id")
    if run, ok := h.Live.Run(id); ok {
        return c.JSON(http.StatusOK, run)
    }
    if h.Store != nil {
        run, err := h.Store.GetByID(c.Request().Context(), id)
        switch {
        case err == nil:
            return c.JSON(http.StatusOK, run)
        case !errors.Is(err, repository.ErrNotFound):
            return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not load run"})
        }
    }
    return c.JSON(http.StatusNotFound, echo.Map{"error": "run not found"})
}
