package main

import (
	"fmt"

	"github.com/spf13/cobra"

	miniviewversion "github.com/miniview-io/miniview/internal/version"
)

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:           "version",
		Short:         "Show client and daemon versions",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runVersion,
	}
}

func runVersion(cmd *cobra.Command, _ []string) error {
	out := newOutputFormatter(cmd)
	clientVersion := miniviewversion.String()

	var daemonVersion string
	var daemonErr error
	if c, err := newClient(); err == nil {
		if status, statusErr := c.Status(); statusErr == nil {
			daemonVersion = status.Version
		} else {
			daemonErr = statusErr
		}
	} else {
		daemonErr = err
	}

	if out.jsonMode {
		data := map[string]any{
			"client": clientVersion,
		}
		if daemonErr == nil {
			data["daemon"] = daemonVersion
			if w := miniviewversion.CheckVersionMismatch(daemonVersion); w != "" {
				data["mismatch"] = true
				data["warning"] = w
			}
		} else {
			data["daemon"] = nil
			data["daemon_error"] = daemonErr.Error()
		}
		return out.Print(data)
	}

	fmt.Printf("Client: %s\n", miniviewversion.FormatVersion(clientVersion))
	if daemonErr == nil {
		fmt.Printf("Daemon: %s\n", miniviewversion.FormatVersion(daemonVersion))
		if w := miniviewversion.CheckVersionMismatch(daemonVersion); w != "" {
			fmt.Println(w)
		}
	} else {
		fmt.Printf("Daemon: unavailable (%v)\n", daemonErr)
	}

	return nil
}
