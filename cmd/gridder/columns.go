package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	gridder "github.com/flywave/go-gridder"
)

var columnsCmd = &cobra.Command{
	Use:   "columns CSV",
	Short: "List the columns of a CSV file and preview its first rows.",
	Args:  cobra.ExactArgs(1),
	RunE:  runColumns,
}

func init() {
	columnsCmd.Flags().Int("rows", 5, "number of data rows to preview")
}

func runColumns(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	header, rows, err := gridder.Preview(f, viper.GetInt("rows"))
	if err != nil {
		return fmt.Errorf("%s: %s", args[0], gridder.Diagnose(err))
	}

	out := cmd.OutOrStdout()
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for i, h := range header {
		fmt.Fprintf(tw, "%d\t%s\n", i, h)
	}
	tw.Flush()

	if len(rows) > 0 {
		fmt.Fprintln(out)
		tw = tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, strings.Join(header, "\t"))
		for _, r := range rows {
			fmt.Fprintln(tw, strings.Join(r, "\t"))
		}
		tw.Flush()
	}

	if g := gridder.GuessColumns(header); g.X != "" || g.Y != "" {
		fmt.Fprintf(out, "\nsuggested: --x_col %q --y_col %q\n", g.X, g.Y)
	}
	return nil
}
