package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"dance-ops/internal/config"
	"dance-ops/internal/enrollment"
	"dance-ops/internal/pricing"
	"dance-ops/internal/reconcile"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanSeed(t *testing.T) {
	sections, students := planSeed(pricing.Default(), 8)

	// downtown A/B have three priced days each, northside A/B have two.
	require.Len(t, sections, 10)
	assert.Equal(t, "Downtown Monday A", sections[0].Name)
	assert.Equal(t, enrollment.Saturday, sections[2].Day)
	assert.Equal(t, "northside", sections[9].Location)

	require.Len(t, students, 8)
	assert.Equal(t, []int{0, 1}, students[0].Sections)
	assert.Equal(t, []int{3}, students[1].Sections)
	assert.Equal(t, []int{8, 9}, students[3].Sections)
	assert.Equal(t, []int{1}, students[4].Sections)

	assert.Equal(t, pricing.StatusUnpaid, students[0].Status)
	assert.Equal(t, pricing.StatusPaid, students[1].Status)
	assert.Equal(t, pricing.StatusPartial, students[2].Status)
	assert.Equal(t, "50", students[2].Paid.String())

	for _, s := range students {
		for _, idx := range s.Sections {
			assert.Equal(t, s.Student.Location, sections[idx].Location, s.Student.LastName)
		}
	}
}

func TestPlanSeedEmptyTable(t *testing.T) {
	sections, students := planSeed(&pricing.Table{}, 5)
	assert.Empty(t, sections)
	assert.Empty(t, students)
}

func TestRunPrices(t *testing.T) {
	cfg = &config.Config{}
	t.Cleanup(func() { cfg = nil })

	t.Run("built-in table", func(t *testing.T) {
		var out bytes.Buffer
		cmd := &cobra.Command{}
		cmd.SetOut(&out)

		require.NoError(t, runPrices(cmd, nil))
		assert.True(t, strings.HasPrefix(out.String(), "# 2 locations OK\n"))
		assert.Contains(t, out.String(), "downtown:")
		assert.Contains(t, out.String(), "340.00")
	})

	t.Run("invalid file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "prices.yaml")
		require.NoError(t, os.WriteFile(path, []byte("locations:\n  downtown:\n    A:\n      monday: 100\n"), 0o600))

		cmd := &cobra.Command{}
		cmd.SetOut(&bytes.Buffer{})
		err := runPrices(cmd, []string{path})
		require.Error(t, err)
		assert.Contains(t, err.Error(), `missing "both" price`)
	})
}

func TestPrintMismatches(t *testing.T) {
	id := uuid.New()
	mismatches := []reconcile.Mismatch{
		{StudentID: id, Name: "Ava Lee", Field: "amount_owed", Stored: "0", Computed: "185"},
		{StudentID: id, Name: "Ava Lee", Field: "session_label", Stored: "", Computed: "A"},
	}

	tests := []struct {
		name     string
		in       []reconcile.Mismatch
		limit    int
		contains []string
		excludes []string
	}{
		{name: "none", in: nil, limit: 10, contains: []string{"all students up to date"}},
		{name: "all", in: mismatches, limit: 0, contains: []string{"STUDENT", "amount_owed", "session_label"}},
		{name: "limited", in: mismatches, limit: 1, contains: []string{"amount_owed", "... 1 more"}, excludes: []string{"session_label"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			cmd := &cobra.Command{}
			cmd.SetOut(&out)

			printMismatches(cmd, tt.in, tt.limit)
			for _, s := range tt.contains {
				assert.Contains(t, out.String(), s)
			}
			for _, s := range tt.excludes {
				assert.NotContains(t, out.String(), s)
			}
		})
	}
}

func TestSeedRequiresDevelopmentAndConfirm(t *testing.T) {
	t.Cleanup(func() { cfg, seedConfirm = nil, false })

	cfg = &config.Config{AppEnv: "production"}
	seedConfirm = true
	err := runSeed(&cobra.Command{}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "APP_ENV=development")

	cfg = &config.Config{AppEnv: "development"}
	seedConfirm = false
	err = runSeed(&cobra.Command{}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--confirm")
}
