package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/veldtlabs/ecocat/parse"
	"github.com/veldtlabs/ecocat/record"
)

func newParseCmd(a *app) *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:   "parse",
		Short: "Extract CSVs from stored detail payloads",
		Long: `Walk the record store and write one CSV per category, plus a descriptor
file for the KML attachments the payloads reference (input for fetch --kind kml).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cats, err := categories(category)
			if err != nil {
				return err
			}

			st, err := a.openStore()
			if err != nil {
				return err
			}
			parser := parse.New(st, parse.Config{Logger: a.logger})

			var kmlDescs []record.Descriptor
			for _, cat := range cats {
				rows, err := parser.Rows(cat)
				if err != nil {
					return err
				}
				if len(rows) == 0 {
					a.logger.Info("no records to parse", "category", cat)
					continue
				}
				path := filepath.Join(a.cfg.Output.CSVDir, fmt.Sprintf("%s.csv", cat))
				if err := parser.WriteCSVFile(path, rows); err != nil {
					return err
				}
				a.logger.Info("csv written", "path", path, "rows", len(rows))
				kmlDescs = append(kmlDescs, parse.KMLDescriptors(rows)...)
			}

			if len(kmlDescs) == 0 {
				a.logger.Info("no KML attachments referenced")
				return nil
			}
			if err := record.WriteDescriptorFile(a.cfg.Output.KMLDescriptorPath, kmlDescs); err != nil {
				return err
			}
			a.logger.Info("kml descriptor file written",
				"path", a.cfg.Output.KMLDescriptorPath, "descriptors", len(kmlDescs))
			return nil
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "limit to one category (ec, fc, wl, crz)")
	return cmd
}
