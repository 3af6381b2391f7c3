package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/dictx/internal/wire"
)

func newTablesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "List the stored tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()
			tables, err := svc.ListTables(cmd.Context())
			if err != nil {
				return userError(err)
			}
			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tTYPE\tROWS\tDESCRIPTION")
			for _, t := range tables {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", t.Name, t.TypeName, t.Rows, t.Description)
			}
			return tw.Flush()
		},
	}
}

func newTypesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "types",
		Short: "List the stored table types",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()
			types, err := svc.ListTableTypes(cmd.Context())
			if err != nil {
				return userError(err)
			}
			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tKIND\tCOLUMNS\tTABLES")
			for _, t := range types {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", t.Name, t.Kind, strings.Join(t.Columns, ", "), strings.Join(t.Tables, ", "))
			}
			return tw.Flush()
		},
	}
}

func newFormatsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "formats",
		Short: "List the document formats",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tEXTENSION\tCONTENT TYPE")
			for _, name := range wire.Names() {
				f, err := wire.Lookup(name)
				if err != nil {
					return err
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\n", f.Name(), f.Extension(), f.ContentType())
			}
			return tw.Flush()
		},
	}
}
