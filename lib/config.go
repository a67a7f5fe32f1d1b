package lib

import (
	"log/slog"
)

// Config is a structure containing all configuration information
// for any execution of code.
type Config struct {
	Logger *slog.Logger

	// generate
	Force            bool
	Gitkeep          bool
	RemoveEmptyDirs  bool
	SaveRemaining    bool
	Ignore           map[string]bool
	NoOwner          bool
	NoPrivileges     bool
	NoSecurityLabels bool
	NoTablespaces    bool
}
