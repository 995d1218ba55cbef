package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	gridder "github.com/flywave/go-gridder"
	"github.com/flywave/go-gridder/journal"
	"github.com/flywave/go-gridder/manifest"
)

var batchCmd = &cobra.Command{
	Use:   "batch MANIFEST",
	Short: "Grid every job of a manifest (.ini, .gcfg or .toml).",
	Args:  cobra.ExactArgs(1),
	RunE:  runBatch,
}

func init() {
	fs := batchCmd.Flags()
	fs.String("out_dir", "", "output directory, overriding the manifest")
	fs.String("journal", "", "sqlite journal recording every job, overriding the manifest")
	fs.Int("workers", 0, "files processed in parallel, overriding the manifest")
}

func runBatch(cmd *cobra.Command, args []string) error {
	m, err := manifest.Load(args[0])
	if err != nil {
		return err
	}
	jobs, err := m.Jobs()
	if err != nil {
		return err
	}

	outDir := m.OutDir()
	if v := viper.GetString("out_dir"); v != "" {
		outDir = v
	}
	b := gridder.NewBatch(outDir)
	b.Logger = log
	b.Workers = m.Run.Workers
	if v := viper.GetInt("workers"); v > 0 {
		b.Workers = v
	}
	b.Observers = append(b.Observers, gridder.ObserverFunc(func(runID string, job *gridder.Job) {
		log.WithFields(logrus.Fields{"job": job.ID, "file": job.Input}).Debug(job.Status)
	}))

	journalPath := m.JournalPath()
	if v := viper.GetString("journal"); v != "" {
		journalPath = v
	}
	if journalPath != "" {
		j, err := journal.Open(journalPath)
		if err != nil {
			return err
		}
		defer j.Close()
		j.Logger = log
		b.Observers = append(b.Observers, j)
	}

	runErr := b.Run(cmd.Context(), jobs)

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "JOB\tINPUT\tMETHOD\tSTATUS\tOUTPUT")
	for _, job := range jobs {
		out := ""
		switch {
		case job.Result != nil:
			out = job.Result.Output
		case job.Err != nil:
			out = gridder.Diagnose(job.Err)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", job.ID, job.Input, job.Config.Method, job.Status, out)
	}
	tw.Flush()

	if runErr != nil {
		return runErr
	}
	if failed := gridder.Failed(jobs); len(failed) > 0 {
		return fmt.Errorf("%d of %d jobs failed (run %s)", len(failed), len(jobs), b.RunID)
	}
	return nil
}
