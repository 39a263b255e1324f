package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/miniview-io/miniview/internal/client"
	miniviewversion "github.com/miniview-io/miniview/internal/version"
)

func newStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:           "status",
		Short:         "Show daemon status and current PiP state",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runStatus,
	}
}

func runStatus(cmd *cobra.Command, _ []string) error {
	out := newOutputFormatter(cmd)

	c, err := newClient()
	if err != nil {
		return out.Error("Failed to initialise client", err)
	}

	status, err := c.Status()
	if err != nil {
		return out.Error("Daemon unavailable", err)
	}

	if out.jsonMode {
		return out.Print(status)
	}

	fmt.Print(formatStatus(status))
	if w := miniviewversion.CheckVersionMismatch(status.Version); w != "" {
		fmt.Println(w)
	}
	return nil
}

func formatStatus(status *client.StatusInfo) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Daemon version:     %s\n", status.Version)
	fmt.Fprintf(&b, "PiP mode:           %s\n", onOff(status.InPipMode))
	fmt.Fprintf(&b, "Layout listener:    %s\n", activeInactive(status.ListenerActive))
	fmt.Fprintf(&b, "Audio only:         %s\n", onOff(status.AudioOnly))
	fmt.Fprintf(&b, "Max senders:        %s\n", formatSenders(status.MaxSenders))
	fmt.Fprintf(&b, "Received quality:   %s\n", status.ReceivedQuality)
	fmt.Fprintf(&b, "Pinned participant: %s\n", orNone(status.PinnedParticipant))
	fmt.Fprintf(&b, "Hosts connected:    %d\n", status.HostsConnected)
	return b.String()
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}

func activeInactive(v bool) string {
	if v {
		return "active"
	}
	return "inactive"
}

func formatSenders(limit *int) string {
	if limit == nil {
		return "unlimited"
	}
	return fmt.Sprintf("%d", *limit)
}

func orNone(v string) string {
	if v == "" {
		return "none"
	}
	return v
}
