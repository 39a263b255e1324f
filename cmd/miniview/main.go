package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/miniview-io/miniview/internal/client"
	"github.com/miniview-io/miniview/internal/config"
	miniviewversion "github.com/miniview-io/miniview/internal/version"
)

// Global variables for use across commands
var (
	rootCmd      *cobra.Command
	flagInstance string
)

// OutputFormatter handles output in JSON or human-readable format
type OutputFormatter struct {
	jsonMode bool
}

// newOutputFormatter creates a new formatter based on the command's --json flag
func newOutputFormatter(cmd *cobra.Command) *OutputFormatter {
	jsonMode, _ := cmd.Flags().GetBool("json")
	return &OutputFormatter{jsonMode: jsonMode}
}

// Print outputs data in the appropriate format
func (f *OutputFormatter) Print(data interface{}) error {
	if f.jsonMode {
		jsonBytes, err := json.MarshalIndent(data, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Println(string(jsonBytes))
		return nil
	}
	switch v := data.(type) {
	case string:
		fmt.Println(v)
	default:
		jsonBytes, _ := json.MarshalIndent(data, "", "  ")
		fmt.Println(string(jsonBytes))
	}
	return nil
}

// Success outputs a success message
func (f *OutputFormatter) Success(message string, data map[string]interface{}) error {
	if f.jsonMode {
		output := map[string]interface{}{
			"success": true,
			"message": message,
		}
		for k, v := range data {
			output[k] = v
		}
		return f.Print(output)
	}
	fmt.Println(message)
	return nil
}

// Error outputs an error message
func (f *OutputFormatter) Error(message string, err error) error {
	if f.jsonMode {
		output := map[string]interface{}{
			"success": false,
			"error":   message,
		}
		if err != nil {
			output["details"] = err.Error()
		}
		jsonBytes, _ := json.MarshalIndent(output, "", "  ")
		fmt.Fprintln(os.Stderr, string(jsonBytes))
	} else {
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", message, err)
		} else {
			fmt.Fprintln(os.Stderr, message)
		}
	}
	if err != nil {
		return fmt.Errorf("%s: %w", message, err)
	}
	return fmt.Errorf("%s", message)
}

func newClient() (*client.Client, error) {
	return client.New(flagInstance)
}

func init() {
	rootCmd = &cobra.Command{
		Use:   "miniview",
		Short: "Miniview - picture-in-picture mode controller for conference windows",
		Long: `Miniview tracks conference window geometry reported by host apps and
drives picture-in-picture mode: when a window collapses below the
threshold the daemon trims the session (single sender, low quality,
no pinned participant) and restores it when the window grows back.`,
	}
	rootCmd.Version = miniviewversion.String()
	rootCmd.SetVersionTemplate("{{printf \"%s\\n\" .Version}}")

	rootCmd.PersistentFlags().Bool("json", false, "Output in JSON format")
	rootCmd.PersistentFlags().StringVar(&flagInstance, "instance", config.DefaultInstance, "Instance name")
}

func main() {
	rootCmd.AddCommand(
		newStatusCommand(),
		newWatchCommand(),
		newLayoutCommand(),
		newJoinCommand(),
		newAudioOnlyCommand(),
		newPinCommand(),
		newRequestPipCommand(),
		newTransitionsCommand(),
		newMetricsCommand(),
		newVersionCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
