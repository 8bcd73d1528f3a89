package config

import (
	"os"
	"path/filepath"
	"time"
)

const (
	// LocationKey names the merged key that may point at the resource.
	LocationKey = "orchestrator.configUrl"

	userConfigDir  = ".orchestrator"
	configFileName = "orchestrator.properties"

	// fetchTimeout bounds a remote resource download.
	fetchTimeout = 30 * time.Second

	// maxResourceSize bounds how much of a resource is read.
	maxResourceSize = 8 << 20
)

// DefaultLocation returns ~/.orchestrator/orchestrator.properties, or "" when
// the home directory is unknown.
func DefaultLocation() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(homeDir, userConfigDir, configFileName)
}
