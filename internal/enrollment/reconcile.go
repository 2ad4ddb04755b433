package enrollment

import (
	"time"

	"github.com/google/uuid"
)

// Status is the state of one student/section join.
type Status string

const (
	StatusActive     Status = "ACTIVE"
	StatusWaitlisted Status = "WAITLISTED"
	StatusDropped    Status = "DROPPED"
)

// Valid reports whether s is a known enrollment status.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusWaitlisted, StatusDropped:
		return true
	}
	return false
}

// DefaultLabel wins session label ties.
const DefaultLabel = "A"

// Row is a single enrollment joined with its class section.
type Row struct {
	StudentID uuid.UUID
	SectionID uuid.UUID
	Day       Day
	Label     string
	StartDate time.Time
	Status    Status
}

// Schedule is the reconciled view of a student's enrollment rows.
type Schedule struct {
	StudentID    uuid.UUID         `json:"student_id"`
	SelectedDays []Day             `json:"selected_days"`
	SessionLabel string            `json:"session_label"`
	StartDates   map[Day]time.Time `json:"start_dates"`
	StartDate    time.Time         `json:"start_date"`
	Frequency    int               `json:"frequency"`
}

// Reconcile groups rows by student and reconciles each group. Every student that
// appears in rows gets a schedule, even when none of its rows are active.
func Reconcile(rows []Row) map[uuid.UUID]*Schedule {
	byStudent := make(map[uuid.UUID][]Row)
	for _, r := range rows {
		byStudent[r.StudentID] = append(byStudent[r.StudentID], r)
	}

	out := make(map[uuid.UUID]*Schedule, len(byStudent))
	for id, studentRows := range byStudent {
		out[id] = ReconcileStudent(id, studentRows)
	}
	return out
}

// ReconcileStudent builds the schedule for one student. Rows belonging to other
// students are ignored.
func ReconcileStudent(studentID uuid.UUID, rows []Row) *Schedule {
	sched := &Schedule{
		StudentID:    studentID,
		SelectedDays: []Day{},
		StartDates:   make(map[Day]time.Time),
	}

	seen := make(map[Day]bool)
	labelVotes := make(map[string]int)

	for _, r := range rows {
		if r.StudentID != studentID || r.Status != StatusActive {
			continue
		}

		if !seen[r.Day] {
			seen[r.Day] = true
			sched.SelectedDays = append(sched.SelectedDays, r.Day)
		}

		labelVotes[r.Label]++

		if r.StartDate.IsZero() {
			continue
		}
		if cur, ok := sched.StartDates[r.Day]; !ok || r.StartDate.Before(cur) {
			sched.StartDates[r.Day] = r.StartDate
		}
	}

	SortDays(sched.SelectedDays)
	sched.Frequency = len(sched.SelectedDays)
	sched.SessionLabel = majorityLabel(labelVotes)
	sched.StartDate = earliest(sched.StartDates)

	return sched
}

// majorityLabel picks the label with the most votes. Ties go to DefaultLabel when it is
// among the leaders, otherwise to the lexicographically smallest leader.
func majorityLabel(votes map[string]int) string {
	best := ""
	bestCount := 0
	for label, n := range votes {
		switch {
		case n > bestCount:
			best, bestCount = label, n
		case n == bestCount:
			if preferLabel(label, best) {
				best = label
			}
		}
	}
	return best
}

func preferLabel(candidate, current string) bool {
	if candidate == DefaultLabel {
		return true
	}
	if current == DefaultLabel {
		return false
	}
	return candidate < current
}

func earliest(dates map[Day]time.Time) time.Time {
	var first time.Time
	for _, d := range dates {
		if first.IsZero() || d.Before(first) {
			first = d
		}
	}
	return first
}
