package main

import (
	"github.com/spf13/cobra"
)

func newMigrateCmd(rt *cliState) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cmd.Context(), rt.cfg, rt.log, true)
			if err != nil {
				return err
			}
			return store.Close()
		},
	}
}
