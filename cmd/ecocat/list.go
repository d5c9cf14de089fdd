package main

import (
	"github.com/spf13/cobra"

	"github.com/veldtlabs/ecocat/listing"
	"github.com/veldtlabs/ecocat/record"
)

func newListCmd(a *app) *cobra.Command {
	var (
		category string
		output   string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Pull the search API and write the descriptor file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cats, err := categories(category)
			if err != nil {
				return err
			}
			if output == "" {
				output = a.cfg.Output.DescriptorPath
			}

			lcfg := a.cfg.ListingClientConfig()
			lcfg.Logger = a.logger
			client := listing.New(lcfg)

			var descs []record.Descriptor
			for _, cat := range cats {
				batch, err := client.Descriptors(cmd.Context(), cat)
				if err != nil {
					return err
				}
				descs = append(descs, batch...)
			}

			if err := record.WriteDescriptorFile(output, descs); err != nil {
				return err
			}
			a.logger.Info("descriptor file written", "path", output, "descriptors", len(descs))
			return nil
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "limit to one category (ec, fc, wl, crz)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "descriptor file path (default from config)")
	return cmd
}
