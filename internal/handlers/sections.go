package handlers

import (
	"net/http"
	"strings"

	"dance-ops/internal/config"
	"dance-ops/internal/enrollment"
	"dance-ops/internal/models"
	"dance-ops/internal/reconcile"
	"dance-ops/internal/util"

	"go.uber.org/zap"
)

type SectionsHandler struct {
	cfg   *config.Config
	store Store
	svc   *reconcile.Service
	log   *zap.Logger
}

func NewSectionsHandler(cfg *config.Config, store Store, svc *reconcile.Service, log *zap.Logger) *SectionsHandler {
	return &SectionsHandler{cfg: cfg, store: store, svc: svc, log: log}
}

// GET /api/sections
func (h *SectionsHandler) List(w http.ResponseWriter, r *http.Request) {
	sections, err := h.store.ListSections(r.Context(), strings.TrimSpace(r.URL.Query().Get("location")))
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	items := make([]map[string]interface{}, 0, len(sections))
	for _, s := range sections {
		items = append(items, sectionSummaryJSON(s))
	}
	jsonResponse(w, http.StatusOK, map[string]interface{}{"sections": items})
}

type createSectionRequest struct {
	Name      string `json:"name" validate:"required,max=200"`
	Location  string `json:"location" validate:"required,max=100"`
	Day       string `json:"day" validate:"required"`
	Label     string `json:"label" validate:"required,alphanum,max=8"`
	StartTime string `json:"start_time" validate:"omitempty,datetime=15:04"`
	StartDate string `json:"start_date"`
	Capacity  int    `json:"capacity" validate:"min=0,max=500"`
}

// POST /api/sections
func (h *SectionsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createSectionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}
	day, err := enrollment.ParseDay(req.Day)
	if err != nil {
		writeError(w, h.log, badRequest("%v", err))
		return
	}
	start, err := util.ParseOptionalDate(req.StartDate)
	if err != nil {
		writeError(w, h.log, badRequest("start_date: %v", err))
		return
	}

	sec, err := h.store.CreateSection(r.Context(), models.NewSection{
		Name:      strings.TrimSpace(req.Name),
		Location:  strings.TrimSpace(req.Location),
		Day:       day,
		Label:     req.Label,
		StartTime: req.StartTime,
		StartDate: start,
		Capacity:  req.Capacity,
	})
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	h.log.Info("section created", zap.String("section_id", sec.ID.String()), zap.String("name", sec.Name))
	jsonResponse(w, http.StatusCreated, sectionJSON(sec))
}

// GET /api/sections/{id}/waitlist
func (h *SectionsHandler) Waitlist(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	sec, err := h.store.GetSection(r.Context(), id)
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	entries, err := h.store.Waitlist(r.Context(), id)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	items := make([]map[string]interface{}, 0, len(entries))
	for _, e := range entries {
		items = append(items, waitlistJSON(e))
	}
	jsonResponse(w, http.StatusOK, map[string]interface{}{
		"section":  sectionJSON(sec),
		"waitlist": items,
	})
}

// POST /api/sections/{id}/waitlist/promote
func (h *SectionsHandler) Promote(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	e, err := h.store.PromoteFromWaitlist(r.Context(), id)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	h.log.Info("waitlist promoted", zap.String("section_id", id.String()), zap.String("student_id", e.StudentID.String()))
	jsonResponse(w, http.StatusOK, map[string]interface{}{
		"enrollment": enrollmentJSON(e),
		"view":       refreshView(r.Context(), h.svc, h.log, e.StudentID),
	})
}

// DELETE /api/sections/{id}/waitlist/{enrollmentID}
func (h *SectionsHandler) RemoveFromWaitlist(w http.ResponseWriter, r *http.Request) {
	sectionID, err := pathID(r, "id")
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	enrollmentID, err := pathID(r, "enrollmentID")
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	e, err := h.store.GetEnrollment(r.Context(), enrollmentID)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	if e.SectionID != sectionID {
		writeError(w, h.log, models.ErrNotFound)
		return
	}

	dropped, err := h.store.RemoveFromWaitlist(r.Context(), enrollmentID)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	h.log.Info("removed from waitlist", zap.String("section_id", sectionID.String()), zap.String("student_id", dropped.StudentID.String()))
	jsonResponse(w, http.StatusOK, map[string]interface{}{"enrollment": enrollmentJSON(dropped)})
}

// DELETE /api/enrollments/{id}
func (h *SectionsHandler) DropEnrollment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	e, err := h.store.Drop(r.Context(), id)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	h.log.Info("enrollment dropped", zap.String("enrollment_id", id.String()), zap.String("student_id", e.StudentID.String()))
	jsonResponse(w, http.StatusOK, map[string]interface{}{
		"enrollment": enrollmentJSON(e),
		"view":       refreshView(r.Context(), h.svc, h.log, e.StudentID),
	})
}
