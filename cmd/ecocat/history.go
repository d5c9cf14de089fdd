package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/veldtlabs/ecocat/catalog"
)

func newHistoryCmd(a *app) *cobra.Command {
	var (
		limit int
		runID string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent runs from the catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := catalog.Open(a.cfg.CatalogPath)
			if err != nil {
				return err
			}
			defer cat.Close()

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			defer w.Flush()

			if runID != "" {
				attempts, err := cat.Attempts(cmd.Context(), runID, limit)
				if err != nil {
					return err
				}
				fmt.Fprintln(w, "FETCHED AT\tKEY\tREASON\tOUTCOME\tDURATION\tERROR")
				for _, at := range attempts {
					fmt.Fprintf(w, "%s\t%s/%s\t%s\t%s\t%s\t%s\n",
						at.FetchedAt.Format("2006-01-02 15:04:05"),
						at.Category, at.RecordID, at.Reason, at.Outcome,
						at.Duration.Round(0), at.Err)
				}
				return nil
			}

			runs, err := cat.History(cmd.Context(), limit)
			if err != nil {
				return err
			}
			fmt.Fprintln(w, "RUN\tKIND\tSTARTED\tCONSIDERED\tFRESH\tNEW\tUPDATED\tFAILED")
			for _, r := range runs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%d\t%d\n",
					r.ID, r.Kind, r.StartedAt.Format("2006-01-02 15:04:05"),
					r.Summary.Considered, r.Summary.SkippedFresh,
					r.Summary.FetchedNew, r.Summary.FetchedUpdated, r.Summary.Failed)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum rows to show")
	cmd.Flags().StringVar(&runID, "run", "", "show the fetch log for one run")
	return cmd
}
