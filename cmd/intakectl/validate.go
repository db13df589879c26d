package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/intake/internal/branch"
	"github.com/JonMunkholm/intake/internal/core"
)

type validateOptions struct {
	snapshot    string
	branchFile  string
	branchID    string
	asJSON      bool
	failOnWarns bool
}

func newValidateCmd() *cobra.Command {
	var opts validateOptions

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a snapshot file and print its findings",
		Long: "Validate reads a snapshot ({teachers, subjects, teacherSubjectMap}) and prints\n" +
			"every error and warning. It exits 1 when the dataset has blocking errors.",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.branchID != "" && opts.branchFile == "" {
				return withCode(exitUsage, fmt.Errorf("--branch needs --branches"))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.snapshot, "snapshot", "", "Snapshot JSON file, or - for stdin (required)")
	cmd.Flags().StringVar(&opts.branchFile, "branches", "", "Branch structure file; enables year checks with --branch")
	cmd.Flags().StringVar(&opts.branchID, "branch", "", "Branch ID to check subject years against")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "Print the report as JSON")
	cmd.Flags().BoolVar(&opts.failOnWarns, "strict", false, "Also exit 1 when there are warnings")
	_ = cmd.MarkFlagRequired("snapshot")

	return cmd
}

func runValidate(w io.Writer, opts validateOptions) error {
	snap, err := readSnapshot(opts.snapshot)
	if err != nil {
		return withCode(exitUsage, err)
	}

	var b *core.Branch
	if opts.branchID != "" {
		catalog, err := branch.Load(opts.branchFile)
		if err != nil {
			return withCode(exitUsage, err)
		}
		var ok bool
		if b, ok = catalog.Branch(opts.branchID); !ok {
			return withCode(exitUsage, fmt.Errorf("%w: %s", core.ErrBranchNotFound, opts.branchID))
		}
	}

	report := core.ValidateForBranch(snap, b)
	if opts.asJSON {
		if err := writeJSON(w, report); err != nil {
			return err
		}
	} else {
		printReport(w, snap, report)
	}

	if !report.Valid {
		return withCode(exitInvalid, fmt.Errorf("dataset invalid: %s", report.Summary()))
	}
	if opts.failOnWarns && len(report.Warnings) > 0 {
		return withCode(exitInvalid, fmt.Errorf("dataset has warnings: %s", report.Summary()))
	}
	return nil
}

func printReport(w io.Writer, snap core.Snapshot, report core.Report) {
	c := snap.Counts()
	fmt.Fprintf(w, "teachers=%d subjects=%d mappings=%d\n", c.Teachers, c.Subjects, c.Mappings)
	for _, f := range report.Errors {
		fmt.Fprintf(w, "ERROR   %-18s %s\n", f.Kind, f.Error())
	}
	for _, f := range report.Warnings {
		fmt.Fprintf(w, "WARNING %-18s %s\n", f.Kind, f.Error())
	}
	status := "valid"
	if !report.Valid {
		status = "invalid"
	}
	fmt.Fprintf(w, "%s: %s\n", status, report.Summary())
}
