package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/miniview-io/miniview/internal/config"
	configstore "github.com/miniview-io/miniview/internal/config/store"
	"github.com/miniview-io/miniview/internal/daemon"
	miniviewversion "github.com/miniview-io/miniview/internal/version"
)

var (
	flagInstance string
	flagConfig   string
	flagDebug    bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "miniviewd",
		Short:         "Miniview daemon - tracks window layout and drives picture-in-picture mode",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runDaemon,
	}
	rootCmd.Version = miniviewversion.String()
	rootCmd.SetVersionTemplate("{{printf \"%s\\n\" .Version}}")
	rootCmd.Flags().StringVar(&flagInstance, "instance", config.DefaultInstance, "instance name")
	rootCmd.Flags().StringVar(&flagConfig, "config", "", "path to config.yaml (defaults to the instance config)")
	rootCmd.Flags().BoolVar(&flagDebug, "debug", false, "enable debug logging")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runDaemon(cmd *cobra.Command, args []string) error {
	if daemon.IsRunning(flagInstance) {
		return fmt.Errorf("daemon is already running for instance %q", flagInstance)
	}

	paths, err := config.EnsureInstanceDirs(flagInstance)
	if err != nil {
		return fmt.Errorf("failed to prepare instance directories: %w", err)
	}

	configPath := flagConfig
	if configPath == "" {
		configPath = paths.Config
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if flagDebug {
		cfg.Debug = true
	}

	store, err := configstore.Open(configstore.Options{InstanceName: flagInstance})
	if err != nil {
		return fmt.Errorf("failed to open config store: %w", err)
	}

	d, err := daemon.New(daemon.Options{
		InstanceName: flagInstance,
		Config:       cfg,
		Journal:      store,
	})
	if err != nil {
		store.Close()
		return fmt.Errorf("failed to create daemon: %w", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	if err := d.Start(); err != nil {
		store.Close()
		return fmt.Errorf("failed to start daemon: %w", err)
	}

	log.Printf("Miniview daemon started (PID: %d)", os.Getpid())
	log.Printf("Listening on: %s", d.Gateway().Addr())

	errChan := make(chan error, 1)
	go func() {
		errChan <- d.Wait()
	}()

	select {
	case sig := <-sigChan:
		log.Printf("Received signal %s, shutting down...", sig)
	case err := <-errChan:
		if err != nil {
			log.Printf("Daemon error: %v", err)
			d.Shutdown()
			store.Close()
			return err
		}
	}

	if err := d.Shutdown(); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}
	store.Close()

	log.Println("Daemon stopped")
	return nil
}
