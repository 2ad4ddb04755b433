package handlers

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"dance-ops/internal/config"
	"dance-ops/internal/enrollment"
	"dance-ops/internal/export"
	"dance-ops/internal/models"
	"dance-ops/internal/pricing"
	"dance-ops/internal/reconcile"
	"dance-ops/internal/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type StudentsHandler struct {
	cfg   *config.Config
	store Store
	svc   *reconcile.Service
	log   *zap.Logger
}

func NewStudentsHandler(cfg *config.Config, store Store, svc *reconcile.Service, log *zap.Logger) *StudentsHandler {
	return &StudentsHandler{cfg: cfg, store: store, svc: svc, log: log}
}

// parseStudentFilter reads the list query string. Unknown statuses and days are
// rejected rather than silently matching nothing.
func parseStudentFilter(r *http.Request) (models.StudentFilter, error) {
	q := r.URL.Query()
	f := models.StudentFilter{
		Location: strings.TrimSpace(q.Get("location")),
		Session:  strings.TrimSpace(q.Get("session")),
		Search:   strings.TrimSpace(q.Get("q")),
	}

	if raw := q.Get("status"); raw != "" {
		var statuses []string
		for _, part := range strings.Split(raw, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			st, err := pricing.ParsePaymentStatus(part)
			if err != nil {
				return f, badRequest("%v", err)
			}
			statuses = append(statuses, string(st))
		}
		f.Status = strings.Join(statuses, ",")
	}

	if raw := q.Get("day"); raw != "" {
		d, err := enrollment.ParseDay(raw)
		if err != nil {
			return f, badRequest("%v", err)
		}
		f.Day = d.String()
	}

	for name, dst := range map[string]*int{"page": &f.Page, "per_page": &f.PerPage} {
		raw := q.Get(name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return f, badRequest("invalid %s", name)
		}
		*dst = n
	}
	return f.Normalize(), nil
}

// GET /api/students
func (h *StudentsHandler) List(w http.ResponseWriter, r *http.Request) {
	f, err := parseStudentFilter(r)
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	students, total, err := h.store.ListStudents(r.Context(), f)
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	items := make([]map[string]interface{}, 0, len(students))
	for _, st := range students {
		items = append(items, studentJSON(st))
	}
	jsonResponse(w, http.StatusOK, map[string]interface{}{
		"students":    items,
		"total":       total,
		"page":        f.Page,
		"per_page":    f.PerPage,
		"total_pages": (total + f.PerPage - 1) / f.PerPage,
	})
}

type createStudentRequest struct {
	FirstName   string `json:"first_name" validate:"required,max=100"`
	LastName    string `json:"last_name" validate:"required,max=100"`
	ParentName  string `json:"parent_name" validate:"omitempty,max=200"`
	ParentEmail string `json:"parent_email" validate:"omitempty,email"`
	ParentPhone string `json:"parent_phone" validate:"omitempty,max=40"`
	Location    string `json:"location" validate:"required,max=100"`
	Notes       string `json:"notes" validate:"omitempty,max=2000"`
}

// POST /api/students
func (h *StudentsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createStudentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}

	st, err := h.store.CreateStudent(r.Context(), models.NewStudent{
		FirstName:   strings.TrimSpace(req.FirstName),
		LastName:    strings.TrimSpace(req.LastName),
		ParentName:  req.ParentName,
		ParentEmail: req.ParentEmail,
		ParentPhone: req.ParentPhone,
		Location:    strings.TrimSpace(req.Location),
		Notes:       req.Notes,
	})
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	h.log.Info("student created", zap.String("student_id", st.ID.String()), zap.String("location", st.Location))
	jsonResponse(w, http.StatusCreated, studentJSON(st))
}

// GET /api/students/{id}
func (h *StudentsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	detail, err := h.store.GetStudentDetail(r.Context(), id)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	view, err := h.svc.Preview(r.Context(), detail.Student)
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	enrollments := make([]map[string]interface{}, 0, len(detail.Enrollments))
	for _, ed := range detail.Enrollments {
		e := enrollmentJSON(ed.Enrollment)
		e["section"] = sectionJSON(ed.Section)
		enrollments = append(enrollments, e)
	}
	jsonResponse(w, http.StatusOK, map[string]interface{}{
		"student":     studentJSON(detail.Student),
		"enrollments": enrollments,
		"view":        view,
	})
}

type paymentRequest struct {
	Status     string           `json:"status" validate:"required"`
	AmountPaid *decimal.Decimal `json:"amount_paid"`
}

// POST /api/students/{id}/payment
func (h *StudentsHandler) UpdatePayment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	var req paymentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}
	status, err := pricing.ParsePaymentStatus(req.Status)
	if err != nil {
		writeError(w, h.log, badRequest("%v", err))
		return
	}

	amount := decimal.Zero
	if req.AmountPaid != nil {
		amount = *req.AmountPaid
	}
	if amount.IsNegative() {
		writeError(w, h.log, badRequest("amount_paid cannot be negative"))
		return
	}
	if status == pricing.StatusPartial && !amount.IsPositive() {
		writeError(w, h.log, badRequest("amount_paid is required for PARTIAL"))
		return
	}

	if err := h.store.UpdatePaymentStatus(r.Context(), id, status, amount); err != nil {
		writeError(w, h.log, err)
		return
	}
	h.log.Info("payment status updated",
		zap.String("student_id", id.String()),
		zap.String("status", string(status)),
		zap.String("amount_paid", amount.StringFixed(2)),
		zap.String("by", userEmail(r)),
	)
	h.respondWithStudent(w, r, id, http.StatusOK, nil)
}

type moveRequest struct {
	FromSectionID uuid.UUID `json:"from_section_id" validate:"required"`
	ToSectionID   uuid.UUID `json:"to_section_id" validate:"required"`
	StartDate     string    `json:"start_date"`
}

// POST /api/students/{id}/move
func (h *StudentsHandler) Move(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	var req moveRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}
	start, err := util.ParseOptionalDate(req.StartDate)
	if err != nil {
		writeError(w, h.log, badRequest("start_date: %v", err))
		return
	}

	if err := h.store.MoveStudent(r.Context(), id, req.FromSectionID, req.ToSectionID, start); err != nil {
		writeError(w, h.log, err)
		return
	}
	h.log.Info("student moved",
		zap.String("student_id", id.String()),
		zap.String("from", req.FromSectionID.String()),
		zap.String("to", req.ToSectionID.String()),
	)
	h.respondWithStudent(w, r, id, http.StatusOK, nil)
}

type sessionRequest struct {
	Label string `json:"label" validate:"required,alphanum,max=8"`
}

// POST /api/students/{id}/session
func (h *StudentsHandler) ChangeSession(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	var req sessionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}

	moved, err := h.store.MoveStudentToSession(r.Context(), id, req.Label)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	h.log.Info("student session changed", zap.String("student_id", id.String()), zap.String("label", req.Label), zap.Int("moved", moved))
	h.respondWithStudent(w, r, id, http.StatusOK, map[string]interface{}{"moved": moved})
}

type enrollRequest struct {
	SectionID uuid.UUID `json:"section_id" validate:"required"`
	StartDate string    `json:"start_date"`
}

// POST /api/students/{id}/enroll
func (h *StudentsHandler) Enroll(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	var req enrollRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}
	start, err := util.ParseOptionalDate(req.StartDate)
	if err != nil {
		writeError(w, h.log, badRequest("start_date: %v", err))
		return
	}
	// Surface a missing student as 404 rather than a foreign key failure.
	if _, err := h.store.GetStudent(r.Context(), id); err != nil {
		writeError(w, h.log, err)
		return
	}

	e, err := h.store.Enroll(r.Context(), id, req.SectionID, start)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	h.log.Info("student enrolled",
		zap.String("student_id", id.String()),
		zap.String("section_id", req.SectionID.String()),
		zap.String("status", string(e.Status)),
	)
	h.respondWithStudent(w, r, id, http.StatusCreated, map[string]interface{}{"enrollment": enrollmentJSON(e)})
}

// GET /api/students/{id}/statement.pdf
func (h *StudentsHandler) Statement(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	detail, err := h.store.GetStudentDetail(r.Context(), id)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	view, err := h.svc.Preview(r.Context(), detail.Student)
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	var sections []*models.Section
	for _, ed := range detail.Enrollments {
		if ed.Enrollment.Status == enrollment.StatusActive {
			sections = append(sections, ed.Section)
		}
	}
	sort.SliceStable(sections, func(i, j int) bool { return sections[i].Day.Before(sections[j].Day) })

	data, err := export.StatementPDF(detail.Student, view, sections, h.svc.Prices().Currency, time.Now())
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="statement-%s.pdf"`, fileSlug(detail.Student.FullName())))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// respondWithStudent re-reconciles the student after a write and returns the fresh row.
// A failed reconcile is logged only; the write already happened and the scheduler will
// catch up.
func (h *StudentsHandler) respondWithStudent(w http.ResponseWriter, r *http.Request, id uuid.UUID, status int, extra map[string]interface{}) {
	view := refreshView(r.Context(), h.svc, h.log, id)

	st, err := h.store.GetStudent(r.Context(), id)
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	resp := map[string]interface{}{"student": studentJSON(st), "view": view}
	for k, v := range extra {
		resp[k] = v
	}
	jsonResponse(w, status, resp)
}

func refreshView(ctx context.Context, svc *reconcile.Service, log *zap.Logger, id uuid.UUID) *reconcile.View {
	view, err := svc.Student(ctx, id)
	if err != nil {
		log.Warn("failed to reconcile student after update", zap.String("student_id", id.String()), zap.Error(err))
		return nil
	}
	return view
}

func fileSlug(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	for _, c := range s {
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9':
			b.WriteRune(c)
		case b.Len() > 0 && !strings.HasSuffix(b.String(), "-"):
			b.WriteByte('-')
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
