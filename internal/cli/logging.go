package cli

import (
	"io"
	"log/slog"
	"os"

	slogmulti "github.com/samber/slog-multi"
)

// newLogger builds the command logger: text on stderr at Info, or Debug
// with --verbose. With --log-file every record is also written as JSON to
// that file. The returned close func releases the file.
func newLogger(opts *RootOptions, stderr io.Writer) (*slog.Logger, func() error, error) {
	level := slog.LevelInfo
	if opts.Verbose {
		level = slog.LevelDebug
	}
	text := slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level})
	if opts.LogFile == "" {
		return slog.New(text), func() error { return nil }, nil
	}

	f, err := os.OpenFile(opts.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, err
	}
	file := slog.NewJSONHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug})
	return slog.New(slogmulti.Fanout(text, file)), f.Close, nil
}
