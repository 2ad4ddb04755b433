package enrollment

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestReconcileStudent(t *testing.T) {
	student := uuid.New()
	other := uuid.New()

	tests := []struct {
		name       string
		rows       []Row
		wantDays   []Day
		wantLabel  string
		wantStart  time.Time
		wantFreq   int
		wantStarts map[Day]time.Time
	}{
		{
			name:       "no rows",
			rows:       nil,
			wantDays:   []Day{},
			wantLabel:  "",
			wantStarts: map[Day]time.Time{},
		},
		{
			name: "single active row",
			rows: []Row{
				{StudentID: student, Day: Tuesday, Label: "B", StartDate: date("2026-09-08"), Status: StatusActive},
			},
			wantDays:   []Day{Tuesday},
			wantLabel:  "B",
			wantStart:  date("2026-09-08"),
			wantFreq:   1,
			wantStarts: map[Day]time.Time{Tuesday: date("2026-09-08")},
		},
		{
			name: "days sorted monday first and deduplicated",
			rows: []Row{
				{StudentID: student, Day: Sunday, Label: "A", StartDate: date("2026-09-13"), Status: StatusActive},
				{StudentID: student, Day: Thursday, Label: "A", StartDate: date("2026-09-10"), Status: StatusActive},
				{StudentID: student, Day: Monday, Label: "A", StartDate: date("2026-09-07"), Status: StatusActive},
				{StudentID: student, Day: Thursday, Label: "A", StartDate: date("2026-09-17"), Status: StatusActive},
			},
			wantDays:  []Day{Monday, Thursday, Sunday},
			wantLabel: "A",
			wantStart: date("2026-09-07"),
			wantFreq:  3,
			wantStarts: map[Day]time.Time{
				Monday:   date("2026-09-07"),
				Thursday: date("2026-09-10"),
				Sunday:   date("2026-09-13"),
			},
		},
		{
			name: "waitlisted and dropped rows ignored",
			rows: []Row{
				{StudentID: student, Day: Monday, Label: "B", StartDate: date("2026-09-07"), Status: StatusWaitlisted},
				{StudentID: student, Day: Wednesday, Label: "B", StartDate: date("2026-09-02"), Status: StatusDropped},
				{StudentID: student, Day: Friday, Label: "A", StartDate: date("2026-09-11"), Status: StatusActive},
			},
			wantDays:   []Day{Friday},
			wantLabel:  "A",
			wantStart:  date("2026-09-11"),
			wantFreq:   1,
			wantStarts: map[Day]time.Time{Friday: date("2026-09-11")},
		},
		{
			name: "only inactive rows",
			rows: []Row{
				{StudentID: student, Day: Monday, Label: "B", StartDate: date("2026-09-07"), Status: StatusWaitlisted},
			},
			wantDays:   []Day{},
			wantLabel:  "",
			wantStarts: map[Day]time.Time{},
		},
		{
			name: "majority label wins",
			rows: []Row{
				{StudentID: student, Day: Monday, Label: "B", StartDate: date("2026-09-07"), Status: StatusActive},
				{StudentID: student, Day: Wednesday, Label: "B", StartDate: date("2026-09-09"), Status: StatusActive},
				{StudentID: student, Day: Friday, Label: "A", StartDate: date("2026-09-11"), Status: StatusActive},
			},
			wantDays:  []Day{Monday, Wednesday, Friday},
			wantLabel: "B",
			wantStart: date("2026-09-07"),
			wantFreq:  3,
			wantStarts: map[Day]time.Time{
				Monday:    date("2026-09-07"),
				Wednesday: date("2026-09-09"),
				Friday:    date("2026-09-11"),
			},
		},
		{
			name: "tie broken toward A",
			rows: []Row{
				{StudentID: student, Day: Tuesday, Label: "B", StartDate: date("2026-09-08"), Status: StatusActive},
				{StudentID: student, Day: Thursday, Label: "A", StartDate: date("2026-09-10"), Status: StatusActive},
			},
			wantDays:  []Day{Tuesday, Thursday},
			wantLabel: "A",
			wantStart: date("2026-09-08"),
			wantFreq:  2,
			wantStarts: map[Day]time.Time{
				Tuesday:  date("2026-09-08"),
				Thursday: date("2026-09-10"),
			},
		},
		{
			name: "tie without A goes to smallest label",
			rows: []Row{
				{StudentID: student, Day: Tuesday, Label: "C", StartDate: date("2026-09-08"), Status: StatusActive},
				{StudentID: student, Day: Thursday, Label: "B", StartDate: date("2026-09-10"), Status: StatusActive},
			},
			wantDays:  []Day{Tuesday, Thursday},
			wantLabel: "B",
			wantStart: date("2026-09-08"),
			wantFreq:  2,
			wantStarts: map[Day]time.Time{
				Tuesday:  date("2026-09-08"),
				Thursday: date("2026-09-10"),
			},
		},
		{
			name: "zero start date skipped",
			rows: []Row{
				{StudentID: student, Day: Monday, Label: "A", Status: StatusActive},
				{StudentID: student, Day: Wednesday, Label: "A", StartDate: date("2026-09-09"), Status: StatusActive},
			},
			wantDays:   []Day{Monday, Wednesday},
			wantLabel:  "A",
			wantStart:  date("2026-09-09"),
			wantFreq:   2,
			wantStarts: map[Day]time.Time{Wednesday: date("2026-09-09")},
		},
		{
			name: "rows of other students ignored",
			rows: []Row{
				{StudentID: other, Day: Monday, Label: "B", StartDate: date("2026-09-07"), Status: StatusActive},
				{StudentID: student, Day: Saturday, Label: "A", StartDate: date("2026-09-12"), Status: StatusActive},
			},
			wantDays:   []Day{Saturday},
			wantLabel:  "A",
			wantStart:  date("2026-09-12"),
			wantFreq:   1,
			wantStarts: map[Day]time.Time{Saturday: date("2026-09-12")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ReconcileStudent(student, tt.rows)
			require.NotNil(t, got)
			assert.Equal(t, student, got.StudentID)
			assert.Equal(t, tt.wantDays, got.SelectedDays)
			assert.Equal(t, tt.wantLabel, got.SessionLabel)
			assert.True(t, tt.wantStart.Equal(got.StartDate), "start date = %v, want %v", got.StartDate, tt.wantStart)
			assert.Equal(t, tt.wantFreq, got.Frequency)
			assert.Equal(t, tt.wantStarts, got.StartDates)
		})
	}
}

func TestReconcileOrderIndependent(t *testing.T) {
	student := uuid.New()
	rows := []Row{
		{StudentID: student, Day: Wednesday, Label: "B", StartDate: date("2026-09-09"), Status: StatusActive},
		{StudentID: student, Day: Monday, Label: "A", StartDate: date("2026-09-14"), Status: StatusActive},
		{StudentID: student, Day: Monday, Label: "B", StartDate: date("2026-09-07"), Status: StatusActive},
		{StudentID: student, Day: Friday, Label: "A", StartDate: date("2026-09-11"), Status: StatusWaitlisted},
	}
	reversed := make([]Row, len(rows))
	for i, r := range rows {
		reversed[len(rows)-1-i] = r
	}

	a := ReconcileStudent(student, rows)
	b := ReconcileStudent(student, reversed)
	assert.Equal(t, a, b)
	assert.Equal(t, "B", a.SessionLabel)
	assert.Equal(t, []Day{Monday, Wednesday}, a.SelectedDays)
	assert.True(t, date("2026-09-07").Equal(a.StartDates[Monday]))
}

func TestReconcileGroupsByStudent(t *testing.T) {
	s1, s2 := uuid.New(), uuid.New()
	rows := []Row{
		{StudentID: s1, Day: Monday, Label: "A", StartDate: date("2026-09-07"), Status: StatusActive},
		{StudentID: s2, Day: Tuesday, Label: "B", StartDate: date("2026-09-08"), Status: StatusActive},
		{StudentID: s1, Day: Wednesday, Label: "A", StartDate: date("2026-09-09"), Status: StatusActive},
		{StudentID: s2, Day: Thursday, Label: "B", StartDate: date("2026-09-10"), Status: StatusDropped},
	}

	got := Reconcile(rows)
	require.Len(t, got, 2)
	assert.Equal(t, []Day{Monday, Wednesday}, got[s1].SelectedDays)
	assert.Equal(t, 2, got[s1].Frequency)
	assert.Equal(t, []Day{Tuesday}, got[s2].SelectedDays)
	assert.Equal(t, "B", got[s2].SessionLabel)
}
