package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/miniview-io/miniview/internal/client"
)

// Host frame commands: each connects as a short-lived host app, sends one
// frame and disconnects. Intended for scripting and for exercising the
// daemon without a real host app attached.

func connectEphemeral(prefix string) (*client.Client, error) {
	c, err := newClient()
	if err != nil {
		return nil, err
	}
	if err := c.Connect(prefix + "_" + uuid.NewString()); err != nil {
		return nil, err
	}
	return c, nil
}

func newLayoutCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "layout <width> <height>",
		Short:         "Report a window geometry change",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runLayout,
	}
	cmd.Flags().String("screen", "1920x1080", "Screen dimensions as WIDTHxHEIGHT")
	return cmd
}

func runLayout(cmd *cobra.Command, args []string) error {
	out := newOutputFormatter(cmd)

	width, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return out.Error("Invalid width", err)
	}
	height, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return out.Error("Invalid height", err)
	}

	screenSpec, _ := cmd.Flags().GetString("screen")
	screenWidth, screenHeight, err := parseDimensions(screenSpec)
	if err != nil {
		return out.Error("Invalid screen dimensions", err)
	}

	c, err := connectEphemeral("cli_layout")
	if err != nil {
		return out.Error("Failed to connect to daemon", err)
	}
	defer c.Close()

	if err := c.SendLayout(width, height, screenWidth, screenHeight); err != nil {
		return out.Error("Failed to send layout", err)
	}
	return out.Success(fmt.Sprintf("Reported window %gx%g", width, height), map[string]interface{}{
		"window_width":  width,
		"window_height": height,
	})
}

func parseDimensions(spec string) (float64, float64, error) {
	parts := strings.SplitN(spec, "x", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("expected WIDTHxHEIGHT, got %q", spec)
	}
	w, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid width %q", parts[0])
	}
	h, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid height %q", parts[1])
	}
	if w <= 0 || h <= 0 {
		return 0, 0, fmt.Errorf("dimensions must be positive, got %gx%g", w, h)
	}
	return w, h, nil
}

func newJoinCommand() *cobra.Command {
	return &cobra.Command{
		Use:           "join [conference-id]",
		Short:         "Signal that a conference session was joined",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := newOutputFormatter(cmd)

			conferenceID := ""
			if len(args) == 1 {
				conferenceID = args[0]
			}

			c, err := connectEphemeral("cli_join")
			if err != nil {
				return out.Error("Failed to connect to daemon", err)
			}
			defer c.Close()

			if err := c.SendJoined(conferenceID); err != nil {
				return out.Error("Failed to send join", err)
			}
			return out.Success("Conference join signalled", map[string]interface{}{
				"conference_id": conferenceID,
			})
		},
	}
}

func newAudioOnlyCommand() *cobra.Command {
	return &cobra.Command{
		Use:           "audio-only on|off",
		Short:         "Toggle audio-only conference mode",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := newOutputFormatter(cmd)

			enabled, err := parseOnOff(args[0])
			if err != nil {
				return out.Error("Invalid argument", err)
			}

			c, err := connectEphemeral("cli_audio")
			if err != nil {
				return out.Error("Failed to connect to daemon", err)
			}
			defer c.Close()

			if err := c.SendAudioOnly(enabled); err != nil {
				return out.Error("Failed to send audio-only toggle", err)
			}
			return out.Success("Audio-only mode "+onOff(enabled), map[string]interface{}{
				"audio_only": enabled,
			})
		},
	}
}

func parseOnOff(arg string) (bool, error) {
	switch strings.ToLower(arg) {
	case "on", "true", "1":
		return true, nil
	case "off", "false", "0":
		return false, nil
	}
	return false, fmt.Errorf("expected on or off, got %q", arg)
}

func newPinCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "pin [participant-id]",
		Short:         "Pin a participant, or clear the pin with --clear",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runPin,
	}
	cmd.Flags().Bool("clear", false, "Clear the pinned participant")
	return cmd
}

func runPin(cmd *cobra.Command, args []string) error {
	out := newOutputFormatter(cmd)

	clear, _ := cmd.Flags().GetBool("clear")
	participantID := ""
	if len(args) == 1 {
		participantID = args[0]
	}
	if clear && participantID != "" {
		return out.Error("Cannot combine --clear with a participant ID", nil)
	}
	if !clear && participantID == "" {
		return out.Error("Provide a participant ID or --clear", nil)
	}

	c, err := connectEphemeral("cli_pin")
	if err != nil {
		return out.Error("Failed to connect to daemon", err)
	}
	defer c.Close()

	if err := c.SendPin(participantID); err != nil {
		return out.Error("Failed to send pin", err)
	}
	if participantID == "" {
		return out.Success("Pinned participant cleared", nil)
	}
	return out.Success("Pinned participant "+participantID, map[string]interface{}{
		"participant_id": participantID,
	})
}

func newRequestPipCommand() *cobra.Command {
	return &cobra.Command{
		Use:           "request-pip",
		Short:         "Ask connected host apps to enter picture-in-picture",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := newOutputFormatter(cmd)

			c, err := connectEphemeral("cli_request")
			if err != nil {
				return out.Error("Failed to connect to daemon", err)
			}
			defer c.Close()

			if err := c.RequestPip(); err != nil {
				return out.Error("Failed to send PiP request", err)
			}
			return out.Success("PiP request sent", nil)
		},
	}
}
