package cli

import (
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/SaqibMamoon/post-fmriprep-analysis/internal/app"
	"github.com/SaqibMamoon/post-fmriprep-analysis/internal/model"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// labelList collects repeatable --participant-label values. Each occurrence
// may itself be a comma-separated list, and labels may carry the "sub-"
// prefix or not.
type labelList []string

func (l *labelList) String() string {
	return strings.Join(*l, ",")
}

func (l *labelList) Set(value string) error {
	for _, raw := range strings.Split(value, ",") {
		label := strings.TrimPrefix(strings.TrimSpace(raw), "sub-")
		if label != "" {
			*l = append(*l, label)
		}
	}
	return nil
}

// Parse processes command-line arguments. It returns a populated app.Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	flagSet := flag.NewFlagSet("post-fmriprep-analysis", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
post-fmriprep-analysis - FSL task analysis on fMRIPrep derivatives.

Usage:
  post-fmriprep-analysis [options] DERIVATIVES_DIR OUTPUT_DIR ANALYSIS_LEVEL

Arguments:
  DERIVATIVES_DIR
    Path to the fMRIPrep derivatives directory.
  OUTPUT_DIR
    Path to write analysis results.
  ANALYSIS_LEVEL
    Either 'participant' (first level) or 'group' (second level).

Options:
`)
		flagSet.PrintDefaults()
	}

	var participants labelList
	spaceFlag := flagSet.String("space", "MNI152NLin2009cAsym", "Target stereotactic space label.")
	bidsDirFlag := flagSet.String("bids-dir", "", "Path to the raw BIDS dataset (task event files).")
	flagSet.Var(&participants, "participant-label", "Subject label(s) to process. Repeatable or comma-separated.")
	taskFlag := flagSet.String("task", "", "Task label to filter on.")
	workDirFlag := flagSet.String("w", "work", "Working directory for intermediate files.")
	contrastsFlag := flagSet.String("contrasts", "", "Path to an HCL contrast definition file.")
	fwhmFlag := flagSet.Float64("fwhm", 6.0, "Smoothing kernel FWHM in mm.")
	graphFlag := flagSet.String("graph", "", "Write a DOT rendering of the workflow to this path and exit.")
	dryRunFlag := flagSet.Bool("dry-run", false, "Build the workflow but do not execute it.")
	statusPortFlag := flagSet.Int("status-port", 0, "Port for the HTTP status server. 0 is disabled.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	if flagSet.NArg() != 3 {
		// A bare invocation gets the full usage text, but it is still a
		// usage error, not a clean exit.
		if flagSet.NArg() == 0 {
			flagSet.Usage()
		}
		return nil, false, &ExitError{
			Code:    2,
			Message: fmt.Sprintf("expected 3 positional arguments (DERIVATIVES_DIR OUTPUT_DIR ANALYSIS_LEVEL), got %d", flagSet.NArg()),
		}
	}

	level, err := model.ParseAnalysisLevel(flagSet.Arg(2))
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}

	config, err := app.NewConfig(app.Config{
		DerivativesDir: flagSet.Arg(0),
		OutputDir:      flagSet.Arg(1),
		Level:          level,
		Space:          *spaceFlag,
		BIDSDir:        *bidsDirFlag,
		Participants:   participants,
		Task:           *taskFlag,
		WorkDir:        *workDirFlag,
		ContrastsPath:  *contrastsFlag,
		FWHM:           *fwhmFlag,
		GraphPath:      *graphFlag,
		DryRun:         *dryRunFlag,
		StatusPort:     *statusPortFlag,
		LogFormat:      logFormat,
		LogLevel:       logLevel,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	return config, false, nil
}
