package main

import (
	"errors"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/kailas-cloud/facetdex/internal/config"
)

type rootOptions struct {
	env string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "facetdex",
		Short:         "Faceted search over Redis",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// .env is optional; real environment variables win.
			if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return err
			}
			if !cmd.Flags().Changed("env") {
				opts.env = config.GetEnv()
			}
			return nil
		},
	}
	cmd.PersistentFlags().StringVar(&opts.env, "env", "local", "config environment (config/<env>.yaml), defaults to $ENV")

	cmd.AddCommand(
		newServeCmd(opts),
		newIndexCmd(opts),
		newLoadCmd(opts),
		newSearchCmd(opts),
		newVersionCmd(),
	)
	return cmd
}
