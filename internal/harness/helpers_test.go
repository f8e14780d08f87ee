package harness

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

func stringsReader(s string) io.Reader {
	return strings.NewReader(s)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// captureLogger returns a logger writing text records into the returned
// buffer.
func captureLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})), &buf
}

func sprintf(format string, args ...any) string {
	return fmt.Sprintf(format, args...)
}
