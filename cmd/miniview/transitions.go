package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/miniview-io/miniview/internal/client"
)

func newTransitionsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "transitions",
		Short:         "Show recent PiP mode transitions",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runTransitions,
	}
	cmd.Flags().Int("limit", 20, "Maximum number of entries to show")
	return cmd
}

func runTransitions(cmd *cobra.Command, _ []string) error {
	out := newOutputFormatter(cmd)

	limit, _ := cmd.Flags().GetInt("limit")

	c, err := newClient()
	if err != nil {
		return out.Error("Failed to initialise client", err)
	}

	entries, err := c.Transitions(limit)
	if err != nil {
		return out.Error("Daemon unavailable", err)
	}

	if out.jsonMode {
		return out.Print(entries)
	}

	if len(entries) == 0 {
		fmt.Println("No transitions recorded.")
		return nil
	}

	printTransitionsTable(entries)
	return nil
}

func printTransitionsTable(entries []client.TransitionInfo) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tPIP\tWINDOW\tCAUSE")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%gx%g\t%s\n",
			e.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			onOff(e.Enabled),
			e.WindowWidth, e.WindowHeight,
			e.Cause)
	}
	w.Flush()
}
