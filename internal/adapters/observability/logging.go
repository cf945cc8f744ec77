package observability

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// NewLogger returns a zerolog Logger.
// APP_ENV=dev (or development) uses a human-friendly console writer.
// A non-empty file additionally writes JSON lines to a rotated log file.
func NewLogger(env, level, file string) zerolog.Logger {
	var out io.Writer = os.Stdout
	if env == "dev" || env == "development" {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}
	if file != "" {
		out = zerolog.MultiLevelWriter(out, &lumberjack.Logger{
			Filename:   file,
			MaxSize:    50, // MB
			MaxBackups: 5,
			MaxAge:     28, // days
			Compress:   true,
		})
	}

	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(out).Level(lvl).With().Timestamp().Logger()
}
