package app

import (
	"log/slog"

	"github.com/gogpu/quadframe"
)

func slogger() *slog.Logger { return quadframe.Logger() }
