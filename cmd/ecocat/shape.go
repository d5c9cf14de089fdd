package main

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/veldtlabs/ecocat/shape"
)

func newShapeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shape [csv...]",
		Short: "Build GeoJSON from stored KML and parsed CSVs",
		Long: `For each input CSV, join its rows with the stored KML geometry and write
a GeoJSON feature collection next to it under the geojson directory. With no
arguments, every CSV under the configured csv directory is processed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			paths := args
			if len(paths) == 0 {
				var err error
				paths, err = filepath.Glob(filepath.Join(a.cfg.Output.CSVDir, "*.csv"))
				if err != nil {
					return err
				}
				sort.Strings(paths)
			}
			if len(paths) == 0 {
				return fmt.Errorf("no input CSVs under %s", a.cfg.Output.CSVDir)
			}

			st, err := a.openStore()
			if err != nil {
				return err
			}

			for _, csvPath := range paths {
				fc, err := shape.FromCSV(csvPath, st, a.logger)
				if err != nil {
					return err
				}
				if len(fc.Features) == 0 {
					a.logger.Info("no geometry for input, skipping", "csv", csvPath)
					continue
				}
				stem := strings.TrimSuffix(filepath.Base(csvPath), ".csv")
				out := filepath.Join(a.cfg.Output.GeoJSONDir, stem+".geojson")
				if err := shape.WriteFile(out, fc); err != nil {
					return err
				}
				a.logger.Info("geojson written", "path", out, "features", len(fc.Features))
			}
			return nil
		},
	}
	return cmd
}
