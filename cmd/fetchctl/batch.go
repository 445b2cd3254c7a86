package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tanq16/fetchctl/internal/batch"
)

func newBatchCmd() *cobra.Command {
	flags := &cliFlags{}
	var workers int
	cmd := &cobra.Command{
		Use:   "batch [jobs-file]",
		Short: "Download every URL listed in a YAML job file, several at a time",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jobs, err := batch.LoadJobs(args[0])
			if err != nil {
				return err
			}
			results := batch.Run(jobs, workers, func(j batch.Job) error {
				jobFlags := *flags
				jobFlags.output = j.Output
				return runGet(j.URL, &jobFlags, nil, false)
			})
			var failed int
			for _, r := range results {
				if r.Err != nil {
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d jobs failed", failed, len(results))
			}
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().IntVarP(&workers, "workers", "w", 2, "Number of downloads to run concurrently")
	return cmd
}
