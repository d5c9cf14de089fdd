package main

import (
	"github.com/spf13/cobra"

	"github.com/veldtlabs/ecocat/combine"
)

func newCombineCmd(a *app) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "combine",
		Short: "Merge the per-category GeoJSON outputs into one collection",
		RunE: func(cmd *cobra.Command, args []string) error {
			if output == "" {
				output = a.cfg.Output.CombinedPath
			}

			paths, err := combine.Files(a.cfg.Output.GeoJSONDir)
			if err != nil {
				return err
			}
			fc, stats, err := combine.Combine(paths, a.logger)
			if err != nil {
				return err
			}
			if err := combine.WriteFile(output, fc); err != nil {
				return err
			}
			a.logger.Info("combined geojson written",
				"path", output,
				"files", stats.Files,
				"features", stats.Features,
				"dropped", stats.Dropped,
			)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "combined GeoJSON path (default from config)")
	return cmd
}
