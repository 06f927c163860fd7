package app

import (
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/SaqibMamoon/post-fmriprep-analysis/internal/contrast"
	"github.com/SaqibMamoon/post-fmriprep-analysis/internal/engine"
	"github.com/SaqibMamoon/post-fmriprep-analysis/internal/model"
)

// App encapsulates the application's dependencies, configuration, and
// lifecycle: one App is one analysis run.
type App struct {
	outW      io.Writer
	logger    *slog.Logger
	config    *Config
	engine    engine.Engine
	contrasts []model.Contrast
	request   *model.Request

	mu    sync.Mutex
	phase string
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance with its own isolated logger. Passing a nil
// engine selects the real FSL engine; tests inject a stand-in.
func NewApp(outW io.Writer, cfg *Config, eng engine.Engine) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	logger.Debug("Logger configured successfully.")

	if eng == nil {
		eng = engine.NewFSL()
	}

	// Contrast configuration is resolved at startup. A broken contrast file
	// is a fatal startup error, recovered into a clean message in main.
	contrasts, err := contrast.Resolve(cfg.ContrastsPath)
	if err != nil {
		panic(fmt.Errorf("failed to load contrast configuration: %w", err))
	}
	logger.Debug("Contrast configuration resolved.", "count", len(contrasts))

	request := &model.Request{
		RunID:          uuid.NewString(),
		DerivativesDir: cfg.DerivativesDir,
		OutputDir:      cfg.OutputDir,
		BIDSDir:        cfg.BIDSDir,
		WorkDir:        cfg.WorkDir,
		Level:          cfg.Level,
		Space:          cfg.Space,
		Task:           cfg.Task,
		Participants:   append([]string(nil), cfg.Participants...),
		FWHM:           cfg.FWHM,
	}

	return &App{
		outW:      outW,
		logger:    logger,
		config:    cfg,
		engine:    eng,
		contrasts: contrasts,
		request:   request,
		phase:     "initialized",
	}
}

// Request returns the resolved analysis request. This is primarily for testing.
func (a *App) Request() *model.Request {
	return a.request
}

// Contrasts returns the resolved contrast set. This is primarily for testing.
func (a *App) Contrasts() []model.Contrast {
	return a.contrasts
}

func (a *App) setPhase(phase string) {
	a.mu.Lock()
	a.phase = phase
	a.mu.Unlock()
	a.logger.Debug("Run phase changed.", "phase", phase)
}

func (a *App) currentPhase() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.phase
}
