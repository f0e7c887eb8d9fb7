package main

import (
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/KARTIK-KUMAR-SINGH/Smart-Farming-Robot/internal/dto"
	"github.com/KARTIK-KUMAR-SINGH/Smart-Farming-Robot/internal/repository/sqlite"
)

func newPicksCmd(o *options) *cobra.Command {
	var (
		filter dto.PickFilter
		stats  bool
	)

	cmd := &cobra.Command{
		Use:   "picks",
		Short: "Show the pick journal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := sqlite.New(o.dbPath)
			if err != nil {
				return err
			}
			defer db.Close()
			repo := sqlite.NewPickRepository(db)

			if stats {
				return printStats(cmd, repo)
			}

			picks, err := repo.GetAll(&filter)
			if err != nil {
				return err
			}
			if len(picks) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No picks recorded.")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "ID\tSEQ\tSTARTED\tSTATUS\tCONF\tTARGET\tFAILED STEP")
			fmt.Fprintln(w, "--\t---\t-------\t------\t----\t------\t-----------")
			for _, p := range picks {
				fmt.Fprintf(w, "%d\t%d\t%s\t%s\t%.2f\t%d,%d,%d,%d\t%s\n",
					p.ID, p.Sequence, p.StartedAt.Local().Format("2006-01-02 15:04:05"), p.Status,
					p.Confidence, p.Base, p.Shoulder1, p.Shoulder2, p.Claw, p.FailedStep)
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVarP(&filter.Limit, "limit", "n", 20, "number of picks to show, 0 for all")
	cmd.Flags().IntVar(&filter.Offset, "offset", 0, "skip this many newest picks")
	cmd.Flags().StringVar(&filter.Status, "status", "", "only picks with this status (running, completed, aborted)")
	cmd.Flags().BoolVar(&stats, "stats", false, "show totals instead of the list")
	return cmd
}

func printStats(cmd *cobra.Command, repo *sqlite.PickRepository) error {
	stats, err := repo.GetStats()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "total: %d\n", stats.Total)
	for _, k := range sortedKeys(stats.PerStatus) {
		fmt.Fprintf(out, "  %s: %d\n", k, stats.PerStatus[k])
	}
	if len(stats.PerStep) > 0 {
		fmt.Fprintln(out, "failures per step:")
		for _, k := range sortedKeys(stats.PerStep) {
			fmt.Fprintf(out, "  %s: %d\n", k, stats.PerStep[k])
		}
	}
	return nil
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
