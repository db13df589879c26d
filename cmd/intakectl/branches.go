package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/intake/internal/branch"
)

func newBranchesCmd() *cobra.Command {
	var (
		file   string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "branches",
		Short: "List the branches in a branch structure file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBranches(cmd.OutOrStdout(), file, asJSON)
		},
	}
	cmd.Flags().StringVar(&file, "file", "branches.yaml", "Branch structure file")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print as JSON")
	return cmd
}

func runBranches(w io.Writer, file string, asJSON bool) error {
	catalog, err := branch.Load(file)
	if err != nil {
		return withCode(exitUsage, err)
	}
	if asJSON {
		return writeJSON(w, catalog.Branches())
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tYEARS\tDAYS\tREADY")
	for _, b := range catalog.Branches() {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%t\n",
			b.ID, b.Name, strings.Join(b.AcademicYears, ","), len(b.WorkingDays), b.Ready())
	}
	return tw.Flush()
}
