package main

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/HerbHall/subnetsweep/internal/inventory"
)

func newHistoryCmd(settingsPath *string) *cobra.Command {
	var (
		runID string
		limit int
		asc   bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded sweeps from the history database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := loadSettings(*settingsPath, cmd.Flags())
			if err != nil {
				return err
			}
			if s.Store.Path == "" {
				return errors.New("history is disabled: set store.path")
			}

			st, err := openHistory(cmd.Context(), s.Store.Path)
			if err != nil {
				return err
			}
			defer st.Close()
			repo := inventory.NewSQLiteSweepRepository(st.DB())

			var records []inventory.SweepRecord
			if runID != "" {
				records, err = repo.ListRun(cmd.Context(), runID)
			} else {
				order := "desc"
				if asc {
					order = "asc"
				}
				var page *inventory.ListResult[inventory.SweepRecord]
				page, err = repo.List(cmd.Context(), inventory.ListOptions{Limit: limit, SortOrder: order})
				if page != nil {
					records = page.Items
				}
			}
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "STARTED\tRUN\tINTERFACE\tSUBNET\tONLINE\tDURATION")
			for _, r := range records {
				online := fmt.Sprintf("%d/%d", len(r.Online), r.Usable)
				if r.Skipped {
					online += " (skipped)"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
					r.StartedAt.Local().Format(time.DateTime), r.RunID, r.Interface, r.Subnet,
					online, r.Duration.Round(time.Millisecond))
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&runID, "run", "", "show every sweep of one run")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum sweeps to list")
	cmd.Flags().BoolVar(&asc, "asc", false, "oldest first")
	return cmd
}
