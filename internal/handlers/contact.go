package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"dance-ops/internal/config"
	"dance-ops/internal/enrollment"
	"dance-ops/internal/models"
	"dance-ops/internal/notify"
	"dance-ops/internal/pricing"
	"dance-ops/internal/reconcile"

	"go.uber.org/zap"
)

type ContactHandler struct {
	cfg   *config.Config
	store Store
	svc   *reconcile.Service
	log   *zap.Logger
}

func NewContactHandler(cfg *config.Config, store Store, svc *reconcile.Service, log *zap.Logger) *ContactHandler {
	return &ContactHandler{cfg: cfg, store: store, svc: svc, log: log}
}

// GET /api/sections/{id}/contact
// ?include=waitlist adds waitlisted families.
func (h *ContactHandler) Section(w http.ResponseWriter, r *http.Request) {
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

	students, err := h.store.StudentsInSection(r.Context(), id, enrollment.StatusActive)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	if r.URL.Query().Get("include") == "waitlist" {
		waiting, err := h.store.StudentsInSection(r.Context(), id, enrollment.StatusWaitlisted)
		if err != nil {
			writeError(w, h.log, err)
			return
		}
		students = append(students, waiting...)
	}

	recipients, missing := recipientsOf(students)
	name := fmt.Sprintf("%s (%s %s)", sec.Name, sec.Day.Title(), sec.Label)
	jsonResponse(w, http.StatusOK, map[string]interface{}{
		"mailto":          notify.SectionBroadcast(name, recipients),
		"recipients":      len(recipients),
		"missing_email":   missing,
		"section_id":      sec.ID,
		"section_display": name,
	})
}

// GET /api/contact/unpaid
// Families with an UNPAID or PARTIAL status and a positive balance, optionally narrowed
// by location and session.
func (h *ContactHandler) Unpaid(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	students, err := h.store.AllStudents(r.Context(), models.StudentFilter{
		Status:   string(pricing.StatusUnpaid) + "," + string(pricing.StatusPartial),
		Location: strings.TrimSpace(q.Get("location")),
		Session:  strings.TrimSpace(q.Get("session")),
	})
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	var owing []*models.Student
	for _, st := range students {
		if st.View.AmountOwed.IsPositive() {
			owing = append(owing, st)
		}
	}

	recipients, missing := recipientsOf(owing)
	jsonResponse(w, http.StatusOK, map[string]interface{}{
		"mailto":        notify.PaymentReminder(h.svc.Prices().Currency, recipients),
		"recipients":    len(recipients),
		"missing_email": missing,
	})
}

// recipientsOf returns students with a parent email and the names of those without.
func recipientsOf(students []*models.Student) ([]notify.Recipient, []string) {
	recipients := make([]notify.Recipient, 0, len(students))
	missing := []string{}
	for _, st := range students {
		if !st.ParentEmail.Valid || strings.TrimSpace(st.ParentEmail.String) == "" {
			missing = append(missing, st.FullName())
			continue
		}
		recipients = append(recipients, notify.Recipient{
			StudentName: st.FullName(),
			Email:       st.ParentEmail.String,
			AmountOwed:  st.View.AmountOwed,
		})
	}
	return recipients, missing
}
