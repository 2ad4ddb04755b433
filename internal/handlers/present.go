package handlers

import (
	"database/sql/driver"
	"time"

	"dance-ops/internal/enrollment"
	"dance-ops/internal/models"
	"dance-ops/internal/util"
)

// nullableString renders sql.Null* values as JSON null when unset.
func nullableString(v driver.Valuer) interface{} {
	out, _ := v.Value()
	return out
}

func studentJSON(st *models.Student) map[string]interface{} {
	days, err := enrollment.SplitDays(st.View.SelectedDays)
	if err != nil || days == nil {
		days = []enrollment.Day{}
	}
	var reconciledAt interface{}
	if st.View.ReconciledAt.Valid {
		reconciledAt = st.View.ReconciledAt.Time.Format(time.RFC3339)
	}

	return map[string]interface{}{
		"id":                     st.ID,
		"first_name":             st.FirstName,
		"last_name":              st.LastName,
		"full_name":              st.FullName(),
		"parent_name":            nullableString(st.ParentName),
		"parent_email":           nullableString(st.ParentEmail),
		"parent_phone":           nullableString(st.ParentPhone),
		"location":               st.Location,
		"payment_status":         st.PaymentStatus,
		"payment_status_display": models.GetStatusDisplayInfo(string(st.PaymentStatus)),
		"amount_paid":            st.AmountPaid,
		"notes":                  nullableString(st.Notes),
		"selected_days":          days,
		"session_label":          st.View.SessionLabel,
		"start_date":             util.FormatNullDate(st.View.StartDate),
		"frequency":              st.View.Frequency,
		"amount_owed":            st.View.AmountOwed,
		"priced":                 st.View.Priced,
		"reconciled_at":          reconciledAt,
		"created_at":             st.CreatedAt.Format(time.RFC3339),
	}
}

func sectionJSON(sec *models.Section) map[string]interface{} {
	return map[string]interface{}{
		"id":         sec.ID,
		"name":       sec.Name,
		"location":   sec.Location,
		"day":        sec.Day,
		"label":      sec.Label,
		"start_time": nullableString(sec.StartTime),
		"start_date": util.FormatNullDate(sec.StartDate),
		"capacity":   sec.Capacity,
	}
}

func sectionSummaryJSON(s *models.SectionSummary) map[string]interface{} {
	out := sectionJSON(s.Section)
	out["active_count"] = s.ActiveCount
	out["waitlist_count"] = s.WaitlistCount
	out["seats_left"] = s.SeatsLeft()
	return out
}

func enrollmentJSON(e *models.Enrollment) map[string]interface{} {
	var pos interface{}
	if e.WaitlistPosition.Valid {
		pos = e.WaitlistPosition.Int32
	}
	return map[string]interface{}{
		"id":                e.ID,
		"student_id":        e.StudentID,
		"section_id":        e.SectionID,
		"status":            e.Status,
		"status_display":    models.GetStatusDisplayInfo(string(e.Status)),
		"waitlist_position": pos,
		"start_date":        util.FormatNullDate(e.StartDate),
	}
}

func waitlistJSON(w *models.WaitlistEntry) map[string]interface{} {
	return map[string]interface{}{
		"enrollment_id": w.EnrollmentID,
		"student_id":    w.StudentID,
		"student_name":  w.StudentName,
		"parent_email":  nullableString(w.ParentEmail),
		"position":      w.Position,
		"queued_at":     w.CreatedAt.Format(time.RFC3339),
	}
}
