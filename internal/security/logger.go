package security

import (
	"strings"

	"github.com/sgaunet/bullets"
)

// DebugCommand logs a command line at debug level with credentials removed.
func DebugCommand(logger *bullets.Logger, name string, args []string) {
	if logger == nil {
		return
	}
	logger.Debug("Executing: " + SanitizeString(name+" "+strings.Join(args, " ")))
}
