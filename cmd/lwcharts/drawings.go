package main

import (
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dgnsrekt/lwcharts/internal/toolbox"
)

func newDrawingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "drawings",
		Short: "Inspect exported drawings files",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "tags <file>",
		Short: "List the tags in a drawings file with their drawing counts",
		Args:  cobra.ExactArgs(1),
		RunE:  runDrawingsTags,
	})
	return cmd
}

func runDrawingsTags(cmd *cobra.Command, args []string) error {
	set, err := toolbox.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read drawings: %w", err)
	}
	tags := make([]string, 0, len(set))
	for tag := range set {
		tags = append(tags, tag)
	}
	sort.Strings(tags)

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TAG\tDRAWINGS")
	for _, tag := range tags {
		fmt.Fprintf(w, "%s\t%d\n", tag, len(set[tag]))
	}
	return w.Flush()
}
