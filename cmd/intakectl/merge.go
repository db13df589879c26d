package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/intake/internal/core"
)

type mergeOptions struct {
	base    string
	out     string
	resolve bool
}

func newMergeCmd() *cobra.Command {
	var opts mergeOptions

	cmd := &cobra.Command{
		Use:   "merge [flags] BATCH...",
		Short: "Merge batch files into a snapshot",
		Long: "Merge applies each batch file ({target, channel, teachers|subjects|mappings})\n" +
			"in order, keeping the first copy of any duplicate, and writes the snapshot.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			if opts.out != "" {
				f, err := os.Create(opts.out)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			return runMerge(w, cmd.ErrOrStderr(), opts, args)
		},
	}

	cmd.Flags().StringVar(&opts.base, "base", "", "Existing snapshot to merge into")
	cmd.Flags().StringVarP(&opts.out, "output", "o", "", "Write the snapshot here instead of stdout")
	cmd.Flags().BoolVar(&opts.resolve, "resolve", false, "Fill mapping IDs from teacher and subject names")

	return cmd
}

func runMerge(w, errw io.Writer, opts mergeOptions, batches []string) error {
	var snap core.Snapshot
	if opts.base != "" {
		var err error
		if snap, err = readSnapshot(opts.base); err != nil {
			return withCode(exitUsage, err)
		}
	}

	for _, path := range batches {
		var batch core.Batch
		if err := readJSON(path, &batch); err != nil {
			return withCode(exitUsage, err)
		}
		if !batch.Target.Valid() {
			return withCode(exitUsage, fmt.Errorf("%s: unknown target %q", path, batch.Target))
		}
		var stats core.MergeStats
		snap, stats = core.MergeWithStats(snap, batch)
		slog.Info("batch merged", "file", path, "stats", stats.String())
		fmt.Fprintf(errw, "%s: %s\n", path, stats)
	}

	if opts.resolve {
		snap = core.ResolveMappings(snap)
	}
	return writeJSON(w, snap)
}
