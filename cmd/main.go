package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/google/logger"
	"github.com/spf13/cobra"

	"luckydraw/internal/config"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "luckydraw",
		Short:        "Prize drawing server and terminal draw tool",
		SilenceUsage: true,
	}
	root.AddCommand(newServeCmd(), newDrawCmd(), newExportCmd())
	return root
}

// setupLogger initializes google/logger from the configuration. The returned
// closer must be called before exit.
func setupLogger(cfg *config.AppConfig) (io.Closer, error) {
	var out io.Writer = io.Discard
	var file *os.File
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o660)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		out, file = f, f
	}
	// Without a log file, logs go to the console.
	l := logger.Init("luckydraw", cfg.LogVerbose || file == nil, false, out)
	return closerFunc(func() error {
		l.Close()
		if file != nil {
			return file.Close()
		}
		return nil
	}), nil
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }
