package gpu

import (
	"log/slog"

	"github.com/gogpu/quadframe"
)

// slogger returns the logger configured through quadframe.SetLogger.
// All logging in internal/gpu goes through this function.
func slogger() *slog.Logger { return quadframe.Logger() }
