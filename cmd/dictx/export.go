package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/dictx/internal/core"
	"github.com/JonMunkholm/dictx/internal/wire"
)

func newExportCmd(a *app) *cobra.Command {
	var (
		format        string
		output        string
		substitute    bool
		reservedIDs   bool
		variablePaths bool
	)
	cmd := &cobra.Command{
		Use:   "export [table...]",
		Short: "Export tables and their definitions to a document",
		Long: `Export writes the named tables, or every table when none are named,
together with the table types, data types, macros and other definitions
they depend on.

The format comes from --format, then the --output extension, then DICT_FORMAT.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if format == "" && output != "" {
				if f, err := wire.ForPath(output); err == nil {
					format = f.Name()
				}
			}
			req := core.ExportRequest{Tables: args, Format: format}
			flags := cmd.Flags()
			if flags.Changed("substitute-macros") {
				req.SubstituteMacros = &substitute
			}
			if flags.Changed("reserved-ids") {
				req.IncludeReservedIDs = &reservedIDs
			}
			if flags.Changed("variable-paths") {
				req.IncludeVariablePaths = &variablePaths
			}

			svc, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()
			res, err := svc.Export(cmd.Context(), req)
			if err != nil {
				return userError(err)
			}
			for _, w := range res.Warnings {
				a.logger.Warn("export warning", "table", w.Table, "message", w.Message)
			}

			if output == "" || output == "-" {
				_, err = a.out.Write(res.Data)
				return err
			}
			if err := os.WriteFile(output, res.Data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}
			a.logger.Info("export written",
				"run_id", res.RunID,
				"path", output,
				"format", res.Format,
				"tables", len(res.Tables),
				"bytes", len(res.Data),
			)
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "", "document format: xml, yaml or json")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	cmd.Flags().BoolVar(&substitute, "substitute-macros", false, "replace macro names with their values")
	cmd.Flags().BoolVar(&reservedIDs, "reserved-ids", true, "include reserved message IDs")
	cmd.Flags().BoolVar(&variablePaths, "variable-paths", false, "include variable paths")
	return cmd
}
