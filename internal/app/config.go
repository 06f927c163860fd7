package app

import (
	"errors"

	"github.com/SaqibMamoon/post-fmriprep-analysis/internal/model"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	DerivativesDir string
	OutputDir      string
	Level          model.AnalysisLevel

	Space        string
	BIDSDir      string
	Participants []string
	Task         string
	WorkDir      string

	ContrastsPath string
	FWHM          float64
	GraphPath     string
	DryRun        bool

	StatusPort int
	LogFormat  string
	LogLevel   string
}

// NewConfig validates the locally decidable configuration invariants. Path
// existence is not checked: missing or mismatched files surface later, when
// the walker or the engine looks for them.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.DerivativesDir == "" {
		return nil, errors.New("DerivativesDir is a required configuration field and cannot be empty")
	}
	if cfg.OutputDir == "" {
		return nil, errors.New("OutputDir is a required configuration field and cannot be empty")
	}
	if _, err := model.ParseAnalysisLevel(string(cfg.Level)); err != nil {
		return nil, err
	}
	if cfg.FWHM <= 0 {
		return nil, errors.New("fwhm must be positive")
	}
	return &cfg, nil
}
