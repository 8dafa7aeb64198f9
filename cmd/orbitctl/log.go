package main

import (
	"io"
	"log/slog"
)

// discardLogger swallows parser warnings; the CLI reports errors directly.
var discardLogger = slog.New(slog.NewJSONHandler(io.Discard, nil))
