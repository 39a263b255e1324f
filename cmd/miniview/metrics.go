package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newMetricsCommand() *cobra.Command {
	return &cobra.Command{
		Use:           "metrics",
		Short:         "Dump daemon metrics in Prometheus text format",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := newOutputFormatter(cmd)

			c, err := newClient()
			if err != nil {
				return out.Error("Failed to initialise client", err)
			}

			text, err := c.Metrics()
			if err != nil {
				return out.Error("Daemon unavailable", err)
			}

			fmt.Print(text)
			return nil
		},
	}
}
