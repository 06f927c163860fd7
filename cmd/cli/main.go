package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/SaqibMamoon/post-fmriprep-analysis/internal/app"
	"github.com/SaqibMamoon/post-fmriprep-analysis/internal/cli"
)

// main is the entrypoint for the post-fmriprep-analysis application.
func main() {
	// Use a minimal logger until the full one is configured.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	if err := run(os.Stderr, os.Args[1:]); err != nil {
		if exitErr, ok := err.(*cli.ExitError); ok {
			fmt.Fprintln(os.Stderr, exitErr.Message)
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run encapsulates the main application logic for easier testing and error
// handling.
func run(outW io.Writer, args []string) (err error) {
	appConfig, shouldExit, err := cli.Parse(args, outW)
	if err != nil {
		return err
	}
	if shouldExit {
		return nil
	}

	// Startup panics (a broken contrast file, most likely) become a clean
	// error instead of a stack trace.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("application startup panicked: %v", r)
		}
	}()

	analysisApp := app.NewApp(outW, appConfig, nil)
	return analysisApp.Run(context.Background())
}
