package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/veldtlabs/ecocat/config"
	"github.com/veldtlabs/ecocat/freshness"
	"github.com/veldtlabs/ecocat/record"
	"github.com/veldtlabs/ecocat/store"
)

// app carries the state shared by the subcommands, built once in the root's
// PersistentPreRunE.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	var (
		configPath string
		verbose    bool
	)

	root := &cobra.Command{
		Use:           "ecocat",
		Short:         "Incremental fetch pipeline for environmental clearance proposals",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}
			a.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
			slog.SetDefault(a.logger)

			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			a.cfg = cfg
			return nil
		},
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to YAML config file")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		newListCmd(a),
		newFetchCmd(a),
		newParseCmd(a),
		newShapeCmd(a),
		newCombineCmd(a),
		newHistoryCmd(a),
	)
	return root
}

// openStore opens the record store at the configured root.
func (a *app) openStore() (*store.Store, error) {
	return store.New(a.cfg.StoreRoot)
}

// oracle builds the freshness oracle for the configured timezone.
func (a *app) oracle() (*freshness.Oracle, error) {
	var loc *time.Location
	if a.cfg.Timezone != "" {
		var err error
		loc, err = time.LoadLocation(a.cfg.Timezone)
		if err != nil {
			return nil, fmt.Errorf("load timezone %q: %w", a.cfg.Timezone, err)
		}
	}
	return freshness.New(loc, a.logger), nil
}

// categories resolves a --category flag value: empty means every proposal
// category.
func categories(flag string) ([]record.Category, error) {
	if flag == "" {
		return record.ProposalCategories(), nil
	}
	cat, err := record.ParseCategory(flag)
	if err != nil {
		return nil, err
	}
	return []record.Category{cat}, nil
}
