package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"dance-ops/internal/config"
	"dance-ops/internal/export"
	"dance-ops/internal/reconcile"

	"go.uber.org/zap"
)

type OpsHandler struct {
	cfg   *config.Config
	store Store
	svc   *reconcile.Service
	log   *zap.Logger
}

func NewOpsHandler(cfg *config.Config, store Store, svc *reconcile.Service, log *zap.Logger) *OpsHandler {
	return &OpsHandler{cfg: cfg, store: store, svc: svc, log: log}
}

// GET /api/export/roster.xlsx
// Accepts the same filters as the student list; paging is ignored.
func (h *OpsHandler) Roster(w http.ResponseWriter, r *http.Request) {
	f, err := parseStudentFilter(r)
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	students, err := h.store.AllStudents(r.Context(), f)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	data, err := export.RosterXLSX(students)
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	filename := fmt.Sprintf("roster-%s.xlsx", time.Now().Format("2006-01-02"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// POST /api/reconcile
// Runs detached from the request context so a client disconnect does not abort the
// batch halfway.
func (h *OpsHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	res, err := h.svc.All(ctx, "api")
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]interface{}{
		"students":    res.Students,
		"updated":     res.Updated,
		"unpriced":    res.Unpriced,
		"failed":      res.Failed,
		"duration_ms": res.Duration.Milliseconds(),
	})
}

// GET /api/prices
func (h *OpsHandler) Prices(w http.ResponseWriter, r *http.Request) {
	table := h.svc.Prices()
	jsonResponse(w, http.StatusOK, map[string]interface{}{
		"currency":  table.Currency,
		"locations": table.Locations,
	})
}

// GET /healthz
func (h *OpsHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		h.log.Warn("health check failed", zap.Error(err))
		jsonResponse(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}
