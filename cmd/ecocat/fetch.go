package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/veldtlabs/ecocat/catalog"
	"github.com/veldtlabs/ecocat/fetcher"
	"github.com/veldtlabs/ecocat/jitter"
	"github.com/veldtlabs/ecocat/record"
	"github.com/veldtlabs/ecocat/scheduler"
)

func newFetchCmd(a *app) *cobra.Command {
	var (
		kind  string
		input string
	)

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Run the incremental fetch engine over a descriptor file",
		Long: `Triage the descriptor file against the record store, then fetch every
new or stale record in randomized batches. Per-record failures are tallied,
not fatal: a run that completes exits zero even when some fetches failed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			fcfg := a.cfg.FetcherConfig()
			fcfg.Logger = a.logger

			switch kind {
			case "detail":
				if input == "" {
					input = a.cfg.Output.DescriptorPath
				}
				template := a.cfg.Fetch.DetailURL
				fcfg.URL = func(d record.Descriptor) string {
					return strings.ReplaceAll(template, "{id}", url.QueryEscape(d.ID))
				}
			case "kml":
				if input == "" {
					input = a.cfg.Output.KMLDescriptorPath
				}
				// Attachment descriptors carry their own URLs; GET, not POST.
				fcfg.Method = http.MethodGet
			default:
				return fmt.Errorf("unknown fetch kind %q (want detail or kml)", kind)
			}

			descs, err := record.ReadDescriptorFile(input)
			if err != nil {
				return err
			}

			st, err := a.openStore()
			if err != nil {
				return err
			}
			oracle, err := a.oracle()
			if err != nil {
				return err
			}

			scfg := scheduler.Config{
				MaxConcurrent: a.cfg.Fetch.MaxConcurrent,
				Logger:        a.logger,
			}

			// The catalog is observability only: if it can't be opened the run
			// proceeds without a recorder.
			var runID string
			cat, err := catalog.Open(a.cfg.CatalogPath)
			if err != nil {
				a.logger.Warn("catalog unavailable, running without history", "error", err)
			} else {
				defer cat.Close()
				runID, err = cat.BeginRun(cmd.Context(), kind)
				if err != nil {
					a.logger.Warn("catalog run not recorded", "error", err)
				} else {
					scfg.Recorder = cat.Recorder(runID)
				}
			}

			sched := scheduler.New(st, oracle,
				fetcher.New(st, fcfg),
				jitter.New(a.cfg.JitterConfig()),
				scfg,
			)

			summary, runErr := sched.Run(cmd.Context(), descs)
			if summary != nil {
				if cat != nil && runID != "" {
					if err := cat.FinishRun(cmd.Context(), runID, summary); err != nil {
						a.logger.Warn("catalog run not finalized", "error", err)
					}
				}
				out, _ := json.MarshalIndent(summary, "", "  ")
				fmt.Fprintln(os.Stdout, string(out))
			}
			return runErr
		},
	}

	cmd.Flags().StringVar(&kind, "kind", "detail", "what to fetch: detail or kml")
	cmd.Flags().StringVarP(&input, "input", "i", "", "descriptor file path (default from config)")
	return cmd
}
