package config

import (
	"os"
	"path/filepath"
)

const DefaultInstance = "default"

// InstancePaths contains all paths for a miniview instance.
type InstancePaths struct {
	Home     string // Instance home directory
	Config   string // YAML configuration file path
	ConfigDB string // SQLite settings/journal store path
	Lock     string // Daemon lock file path
	Logs     string // Logs directory
	TempDir  string // Temporary files directory
}

// GetInstancePaths returns all paths for a given instance.
// Empty instance name defaults to "default".
func GetInstancePaths(instanceName string) InstancePaths {
	if instanceName == "" {
		instanceName = DefaultInstance
	}

	instanceDir := filepath.Join(GetMiniviewHome(), "instances", instanceName)

	return InstancePaths{
		Home:     instanceDir,
		Config:   filepath.Join(instanceDir, "config.yaml"),
		ConfigDB: filepath.Join(instanceDir, "config.db"),
		Lock:     filepath.Join(instanceDir, "daemon.lock"),
		Logs:     filepath.Join(instanceDir, "logs"),
		TempDir:  filepath.Join(instanceDir, "tmp"),
	}
}

// GetMiniviewHome returns the miniview home directory (~/.miniview).
func GetMiniviewHome() string {
	userHome, _ := os.UserHomeDir()
	return filepath.Join(userHome, ".miniview")
}

// ExpandPath expands ~ to the user home directory.
func ExpandPath(path string) string {
	if len(path) == 0 {
		return path
	}
	if path[0] == '~' {
		home, _ := os.UserHomeDir()
		if len(path) == 1 {
			return home
		}
		if path[1] == '/' || path[1] == os.PathSeparator {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}

// EnsureInstanceDirs creates the directory structure for the given instance
// if it does not exist.
func EnsureInstanceDirs(instanceName string) (InstancePaths, error) {
	paths := GetInstancePaths(instanceName)

	dirs := []string{
		paths.Home,
		paths.Logs,
		paths.TempDir,
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return paths, err
		}
	}

	return paths, nil
}
