package main

import (
	"fmt"
	"text/tabwriter"

	"dance-ops/internal/db"
	"dance-ops/internal/reconcile"

	"github.com/spf13/cobra"
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Recompute and store every student's schedule and balance",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, svc, err := openService(cmd.Context())
		if err != nil {
			return err
		}
		defer db.Close()

		res, err := svc.All(cmd.Context(), "cli")
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "students=%d updated=%d unpriced=%d failed=%d duration=%s\n",
			res.Students, res.Updated, res.Unpriced, res.Failed, res.Duration)
		if res.Failed > 0 {
			return fmt.Errorf("%d students could not be saved", res.Failed)
		}
		return nil
	},
}

var checkLimit int

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Report students whose stored schedule or balance is out of date",
	Long: `Compares the stored schedule and balance columns with a fresh computation
from enrollments and the price table. Nothing is written. Exits non-zero when
any student is out of date.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, svc, err := openService(cmd.Context())
		if err != nil {
			return err
		}
		defer db.Close()

		mismatches, err := svc.Check(cmd.Context())
		if err != nil {
			return err
		}
		printMismatches(cmd, mismatches, checkLimit)
		if len(mismatches) > 0 {
			return fmt.Errorf("%d stale fields, run `enrollctl reconcile`", len(mismatches))
		}
		return nil
	},
}

func init() {
	checkCmd.Flags().IntVar(&checkLimit, "limit", 50, "maximum rows to print (0 prints all)")
}

func printMismatches(cmd *cobra.Command, mismatches []reconcile.Mismatch, limit int) {
	out := cmd.OutOrStdout()
	if len(mismatches) == 0 {
		fmt.Fprintln(out, "all students up to date")
		return
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STUDENT\tNAME\tFIELD\tSTORED\tCOMPUTED")
	for i, m := range mismatches {
		if limit > 0 && i >= limit {
			break
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", m.StudentID, m.Name, m.Field, m.Stored, m.Computed)
	}
	tw.Flush()
	if limit > 0 && len(mismatches) > limit {
		fmt.Fprintf(out, "... %d more\n", len(mismatches)-limit)
	}
}
