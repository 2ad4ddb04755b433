package main

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"dance-ops/internal/db"
	"dance-ops/internal/enrollment"
	"dance-ops/internal/models"
	"dance-ops/internal/pricing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Seeder for demo sections and students.
//
// SAFETY: only runs when APP_ENV=development and --confirm is given.
var (
	seedCount   int
	seedConfirm bool
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert demo sections and students (development only)",
	Long: `Creates one section per location, session label and priced weekday in the
price table, then enrolls --count demo students across them with a mix of payment
states. Requires APP_ENV=development and --confirm.`,
	Args: cobra.NoArgs,
	RunE: runSeed,
}

func init() {
	seedCmd.Flags().IntVar(&seedCount, "count", 25, "number of students to seed")
	seedCmd.Flags().BoolVar(&seedConfirm, "confirm", false, "confirm seeding (required)")
}

type seedStudent struct {
	Student  models.NewStudent
	Sections []int
	Status   pricing.PaymentStatus
	Paid     decimal.Decimal
}

// planSeed lays out sections for every priced weekday and distributes count students
// round robin over locations and sessions. Every third student takes two days.
func planSeed(prices *pricing.Table, count int) ([]models.NewSection, []seedStudent) {
	type group struct {
		location, label string
		sections        []int
	}

	var sections []models.NewSection
	var groups []group
	for _, loc := range prices.LocationNames() {
		labels := make([]string, 0, len(prices.Locations[loc]))
		for label := range prices.Locations[loc] {
			labels = append(labels, label)
		}
		sort.Strings(labels)

		for _, label := range labels {
			var days []enrollment.Day
			for key := range prices.Locations[loc][label] {
				if d, err := enrollment.ParseDay(key); err == nil {
					days = append(days, d)
				}
			}
			enrollment.SortDays(days)

			g := group{location: loc, label: label}
			for _, d := range days {
				g.sections = append(g.sections, len(sections))
				sections = append(sections, models.NewSection{
					Name:      fmt.Sprintf("%s %s %s", capitalize(loc), d.Title(), label),
					Location:  loc,
					Day:       d,
					Label:     label,
					StartTime: "16:30",
					Capacity:  12,
				})
			}
			if len(g.sections) > 0 {
				groups = append(groups, g)
			}
		}
	}
	if len(groups) == 0 {
		return sections, nil
	}

	students := make([]seedStudent, 0, count)
	for i := 0; i < count; i++ {
		g := groups[i%len(groups)]
		picked := []int{g.sections[(i/len(groups))%len(g.sections)]}
		if i%3 == 0 && len(g.sections) > 1 {
			picked = g.sections[:2]
		}

		s := seedStudent{
			Student: models.NewStudent{
				FirstName:   "Seed",
				LastName:    fmt.Sprintf("Student %02d", i+1),
				ParentName:  fmt.Sprintf("Parent %02d", i+1),
				ParentEmail: fmt.Sprintf("parent%02d@example.com", i+1),
				Location:    g.location,
				Notes:       "Demo data",
			},
			Sections: picked,
			Status:   pricing.StatusUnpaid,
			Paid:     decimal.Zero,
		}
		switch i % 4 {
		case 1:
			s.Status = pricing.StatusPaid
		case 2:
			s.Status = pricing.StatusPartial
			s.Paid = decimal.NewFromInt(50)
		}
		students = append(students, s)
	}
	return sections, students
}

func runSeed(cmd *cobra.Command, args []string) error {
	if !cfg.IsDevelopment() {
		return errors.New("seeder can only run with APP_ENV=development")
	}
	if !seedConfirm {
		return fmt.Errorf("--confirm is required: enrollctl seed --count %d --confirm", seedCount)
	}

	ctx := cmd.Context()
	repo, svc, err := openService(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	plan, students := planSeed(svc.Prices(), seedCount)
	sectionIDs, err := createSections(ctx, repo, plan)
	if err != nil {
		return err
	}

	inserted, waitlisted := 0, 0
	for _, s := range students {
		st, err := repo.CreateStudent(ctx, s.Student)
		if err != nil {
			logger.Error("failed to insert student", zap.String("name", s.Student.LastName), zap.Error(err))
			continue
		}
		if err := repo.UpdatePaymentStatus(ctx, st.ID, s.Status, s.Paid); err != nil {
			return err
		}
		for _, idx := range s.Sections {
			e, err := repo.Enroll(ctx, st.ID, sectionIDs[idx], plan[idx].StartDate)
			if err != nil {
				return err
			}
			if e.Status == enrollment.StatusWaitlisted {
				waitlisted++
			}
		}
		inserted++
	}

	res, err := svc.All(ctx, "seed")
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "sections=%d students=%d waitlisted=%d unpriced=%d\n",
		len(plan), inserted, waitlisted, res.Unpriced)
	return nil
}

func createSections(ctx context.Context, repo *models.Repository, plan []models.NewSection) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(plan))
	for _, in := range plan {
		sec, err := repo.CreateSection(ctx, in)
		if err != nil {
			return nil, err
		}
		ids = append(ids, sec.ID)
	}
	return ids, nil
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
