package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/dictx/internal/codec"
	"github.com/JonMunkholm/dictx/internal/core"
	"github.com/JonMunkholm/dictx/internal/wire"
)

func newImportCmd(a *app) *cobra.Command {
	var (
		format  string
		scope   string
		onError string
		dryRun  bool
	)
	cmd := &cobra.Command{
		Use:   "import <file|->",
		Short: "Import a document into the store",
		Long: `Import merges the definitions of a document into the store. Nothing is
saved unless the whole import succeeds.

--on-error decides what happens to definitions that cannot be imported:
abort, ignore, ignore-all or prompt. prompt asks on stdin for each one,
so the document must then come from a file.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if path == "-" && strings.EqualFold(onError, "prompt") {
				return fmt.Errorf("--on-error prompt answers from stdin; read the document from a file instead")
			}
			data, err := readInput(a.in, path)
			if err != nil {
				return err
			}
			if format == "" && path != "-" {
				if f, err := wire.ForPath(path); err == nil {
					format = f.Name()
				}
			}
			sc, err := codec.ParseScope(scope)
			if err != nil {
				return err
			}
			var decide codec.DecideFunc
			switch strings.ToLower(onError) {
			case "":
			case "prompt":
				decide = promptDecider(a.in, a.errOut)
			default:
				d, err := codec.ParseDecision(onError)
				if err != nil {
					return err
				}
				decide = codec.Always(d)
			}

			svc, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()
			sum, err := svc.Import(cmd.Context(), core.ImportRequest{
				Format: format,
				Data:   data,
				Scope:  sc,
				Decide: decide,
				DryRun: dryRun,
			})
			if err != nil {
				return userError(err)
			}
			return printSummary(a.out, sum)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "", "document format (default from the file extension)")
	cmd.Flags().StringVar(&scope, "scope", "all", "import scope: all or first-table")
	cmd.Flags().StringVar(&onError, "on-error", "", "abort, ignore, ignore-all or prompt (default from DICT_ON_ERROR)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "check the import without saving")
	return cmd
}

func readInput(stdin io.Reader, path string) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

func printSummary(out io.Writer, sum *core.ImportSummary) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	if sum.DryRun {
		fmt.Fprintln(tw, "Dry run, nothing saved")
	}
	fmt.Fprintf(tw, "Run\t%s\n", sum.RunID)
	fmt.Fprintf(tw, "Scope\t%s\n", sum.Scope)
	fmt.Fprintf(tw, "Tables\t%d\t%s\n", len(sum.Tables), strings.Join(sum.Tables, ", "))
	fmt.Fprintf(tw, "Table types\t%d\n", sum.TableTypes)
	fmt.Fprintf(tw, "Data types\t%d\n", sum.DataTypes)
	fmt.Fprintf(tw, "Macros\t%d\n", sum.Macros)
	fmt.Fprintf(tw, "Reserved IDs\t%d\n", sum.ReservedIDs)
	fmt.Fprintf(tw, "Variable paths\t%d\n", sum.VariablePaths)
	return tw.Flush()
}
