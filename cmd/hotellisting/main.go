// Command hotellisting runs the hotel listing API and its maintenance tasks.
package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/islandman/hotel-listing/internal/infrastructure/config"
	"github.com/islandman/hotel-listing/pkg/logger"
)

const serviceName = "hotel-listing"

// cliState is filled by the root command before any subcommand runs.
type cliState struct {
	cfg *config.Config
	log zerolog.Logger
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		envFile string
		rt      cliState
	)

	root := &cobra.Command{
		Use:           "hotellisting",
		Short:         "Hotel listing API server and admin tasks",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := godotenv.Load(envFile); err != nil {
				// A missing default .env is fine; an explicit one must exist.
				if !errors.Is(err, fs.ErrNotExist) || cmd.Flags().Changed("env-file") {
					return fmt.Errorf("load %s: %w", envFile, err)
				}
			}

			cfg, err := config.Load(cmd.Context())
			if err != nil {
				return err
			}
			rt.cfg = cfg
			rt.log = logger.Init(logger.Options{
				Level:   cfg.LogLevel,
				Pretty:  cfg.IsDevelopment(),
				Service: serviceName,
			})
			return nil
		},
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")

	root.AddCommand(newServeCmd(&rt))
	root.AddCommand(newMigrateCmd(&rt))
	root.AddCommand(newUserCmd(&rt))
	return root
}
