package logging

import (
	"os"
	"path/filepath"
)

// DefaultLogDir returns the default log directory (~/.echosearch/logs/),
// falling back to the temp directory when home is unavailable.
func DefaultLogDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".echosearch", "logs")
	}
	return filepath.Join(home, ".echosearch", "logs")
}

// DefaultLogPath returns the default retrieval log path.
func DefaultLogPath() string {
	return filepath.Join(DefaultLogDir(), "retrieval.log")
}
