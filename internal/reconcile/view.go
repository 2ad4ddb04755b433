package reconcile

import (
	"database/sql"
	"encoding/json"
	"strconv"
	"time"

	"dance-ops/internal/enrollment"
	"dance-ops/internal/models"
	"dance-ops/internal/pricing"
	"dance-ops/internal/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// View is a student's reconciled schedule together with what they owe.
type View struct {
	*enrollment.Schedule
	Location      string                `json:"location"`
	PaymentStatus pricing.PaymentStatus `json:"payment_status"`
	AmountPaid    decimal.Decimal       `json:"amount_paid"`
	Price         decimal.Decimal       `json:"price"`
	AmountOwed    decimal.Decimal       `json:"amount_owed"`
	PriceKey      string                `json:"price_key"`
	Priced        bool                  `json:"priced"`
}

// Compute runs the schedule engine over rows and prices the result. A schedule with no
// table entry is returned with Priced false and a zero amount owed.
func Compute(st *models.Student, rows []enrollment.Row, prices *pricing.Table) *View {
	return price(st, enrollment.ReconcileStudent(st.ID, rows), prices)
}

func price(st *models.Student, sched *enrollment.Schedule, prices *pricing.Table) *View {
	// ErrNoPrice is the only failure and leaves the quote unpriced at zero.
	quote, _ := prices.AmountOwed(st.PaymentStatus, st.AmountPaid, st.Location, sched)
	return &View{
		Schedule:      sched,
		Location:      st.Location,
		PaymentStatus: st.PaymentStatus,
		AmountPaid:    st.AmountPaid,
		Price:         quote.Price,
		AmountOwed:    quote.AmountOwed,
		PriceKey:      quote.Key,
		Priced:        quote.Priced,
	}
}

// MarshalJSON renders start dates as YYYY-MM-DD, with "" when no day is active.
func (v View) MarshalJSON() ([]byte, error) {
	type plain View
	out := struct {
		plain
		StartDates map[enrollment.Day]string `json:"start_dates"`
		StartDate  string                    `json:"start_date"`
	}{plain: plain(v), StartDates: map[enrollment.Day]string{}}
	if v.Schedule != nil {
		for day, t := range v.StartDates {
			out.StartDates[day] = util.FormatDate(t)
		}
		out.StartDate = util.FormatDate(v.StartDate)
	}
	return json.Marshal(out)
}

// Stored maps the view onto the denormalized student columns.
func (v *View) Stored(at time.Time) models.StoredView {
	sv := models.StoredView{
		SelectedDays: enrollment.JoinDays(v.SelectedDays),
		SessionLabel: v.SessionLabel,
		Frequency:    v.Frequency,
		AmountOwed:   v.AmountOwed,
		Priced:       v.Priced,
		ReconciledAt: sql.NullTime{Time: at, Valid: true},
	}
	if !v.StartDate.IsZero() {
		sv.StartDate = sql.NullTime{Time: v.StartDate, Valid: true}
	}
	return sv
}

// FromStored rebuilds a view from the stored columns without touching enrollments.
// StartDates stays empty since only the earliest date is persisted.
func FromStored(st *models.Student) (*View, error) {
	days, err := enrollment.SplitDays(st.View.SelectedDays)
	if err != nil {
		return nil, err
	}
	if days == nil {
		days = []enrollment.Day{}
	}
	sched := &enrollment.Schedule{
		StudentID:    st.ID,
		SelectedDays: days,
		SessionLabel: st.View.SessionLabel,
		StartDates:   map[enrollment.Day]time.Time{},
		Frequency:    st.View.Frequency,
	}
	if st.View.StartDate.Valid {
		sched.StartDate = st.View.StartDate.Time
	}
	return &View{
		Schedule:      sched,
		Location:      st.Location,
		PaymentStatus: st.PaymentStatus,
		AmountPaid:    st.AmountPaid,
		Price:         decimal.Zero,
		AmountOwed:    st.View.AmountOwed,
		PriceKey:      pricing.Key(sched),
		Priced:        st.View.Priced,
	}, nil
}

// Mismatch is one stored column that disagrees with a fresh computation.
type Mismatch struct {
	StudentID uuid.UUID `json:"student_id"`
	Name      string    `json:"name"`
	Field     string    `json:"field"`
	Stored    string    `json:"stored"`
	Computed  string    `json:"computed"`
}

// diff compares the stored columns of st with a freshly computed view.
func diff(st *models.Student, fresh models.StoredView) []Mismatch {
	var out []Mismatch
	add := func(field, stored, computed string) {
		if stored != computed {
			out = append(out, Mismatch{StudentID: st.ID, Name: st.FullName(), Field: field, Stored: stored, Computed: computed})
		}
	}

	add("selected_days", st.View.SelectedDays, fresh.SelectedDays)
	add("session_label", st.View.SessionLabel, fresh.SessionLabel)
	add("start_date", util.FormatNullDate(st.View.StartDate), util.FormatNullDate(fresh.StartDate))
	add("frequency", strconv.Itoa(st.View.Frequency), strconv.Itoa(fresh.Frequency))
	add("amount_owed", st.View.AmountOwed.StringFixed(2), fresh.AmountOwed.StringFixed(2))
	add("priced", strconv.FormatBool(st.View.Priced), strconv.FormatBool(fresh.Priced))
	return out
}
