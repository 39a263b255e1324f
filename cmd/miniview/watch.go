package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newWatchCommand() *cobra.Command {
	return &cobra.Command{
		Use:           "watch",
		Short:         "Stream PiP mode changes from the daemon",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runWatch,
	}
}

func runWatch(cmd *cobra.Command, _ []string) error {
	out := newOutputFormatter(cmd)

	c, err := newClient()
	if err != nil {
		return out.Error("Failed to initialise client", err)
	}
	if err := c.Connect("cli_watch_" + uuid.NewString()); err != nil {
		return out.Error("Failed to connect to daemon", err)
	}
	defer c.Close()

	if !out.jsonMode {
		fmt.Println("Watching for PiP mode changes (Ctrl+C to stop)...")
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	for {
		select {
		case <-sigChan:
			return nil
		case err, ok := <-c.Errors():
			if !ok {
				return nil
			}
			return out.Error("Stream closed", err)
		case ev, ok := <-c.Events():
			if !ok {
				return nil
			}
			if ev.Type != "mode_changed" {
				continue
			}
			if out.jsonMode {
				line, _ := json.Marshal(map[string]interface{}{
					"time":    time.Now().Format(time.RFC3339),
					"enabled": ev.Enabled,
					"trigger": ev.Trigger,
				})
				fmt.Println(string(line))
				continue
			}
			fmt.Printf("%s  pip=%s trigger=%s\n",
				time.Now().Format("15:04:05"), onOff(ev.Enabled), ev.Trigger)
		}
	}
}
