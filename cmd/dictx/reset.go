package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

func newResetCmd(a *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Remove every definition from the store",
		Long: `Reset deletes all tables, table types, data types, macros, reserved
message IDs and variable paths. The project name and description are kept.
This cannot be undone.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("reset deletes the whole dictionary; pass --yes to confirm")
			}
			svc, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()
			id, err := svc.Reset(cmd.Context())
			if err != nil {
				return userError(err)
			}
			fmt.Fprintf(a.out, "Dictionary reset (run %s)\n", id)
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm the reset")
	return cmd
}
