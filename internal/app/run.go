package app

import (
	"context"
	"fmt"
	"os"

	"github.com/SaqibMamoon/post-fmriprep-analysis/internal/bids"
	"github.com/SaqibMamoon/post-fmriprep-analysis/internal/ctxlog"
	"github.com/SaqibMamoon/post-fmriprep-analysis/internal/model"
	"github.com/SaqibMamoon/post-fmriprep-analysis/internal/workflow"
)

// Run executes the main application logic: discover input files, build the
// workflow graph for the requested analysis level, and hand it to the engine.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.", "run_id", a.request.RunID, "level", a.request.Level)

	if a.config.StatusPort > 0 {
		a.startStatusServer(a.config.StatusPort)
	}

	a.setPhase("discovering")
	walker := bids.NewWalker(a.request.DerivativesDir, a.request.BIDSDir, a.request.Space, a.request.Task)
	builder := workflow.NewBuilder(a.request, a.contrasts)

	var (
		wf  *workflow.Workflow
		err error
	)
	switch a.request.Level {
	case model.LevelParticipant:
		fileSet, walkErr := walker.Participant(ctx, a.request.Participants)
		if walkErr != nil {
			return fmt.Errorf("failed to walk dataset: %w", walkErr)
		}
		// The walker is deliberately silent on an unmatched label; the run
		// as a whole refuses to continue with nothing to analyze.
		if fileSet.Empty() {
			return fmt.Errorf("no subjects matched in %s (participants=%v, task=%q, space=%q)",
				a.request.DerivativesDir, a.request.Participants, a.request.Task, a.request.Space)
		}
		a.logger.Info("Subjects discovered.", "count", len(fileSet.Subjects))

		a.setPhase("building")
		wf, err = builder.FirstLevel(ctx, fileSet)
	case model.LevelGroup:
		groupData, walkErr := walker.Group(ctx, a.request.OutputDir, a.request.Participants)
		if walkErr != nil {
			return fmt.Errorf("failed to walk first-level outputs: %w", walkErr)
		}
		if len(groupData.Copes) == 0 {
			return fmt.Errorf("no first-level effect estimates found under %s; run the participant level first", a.request.OutputDir)
		}
		a.logger.Info("First-level estimates discovered.", "copes", len(groupData.Copes))

		a.setPhase("building")
		wf, err = builder.GroupLevel(ctx, groupData)
	default:
		return fmt.Errorf("unsupported analysis level %q", a.request.Level)
	}
	if err != nil {
		return fmt.Errorf("failed to build workflow: %w", err)
	}
	a.logger.Debug("Workflow graph built.", "workflow", wf.Name, "node_count", wf.Len())

	if a.config.GraphPath != "" {
		return a.renderGraph(wf)
	}
	if a.config.DryRun {
		a.logger.Info("Dry run requested, skipping execution.", "workflow", wf.Name, "node_count", wf.Len())
		return nil
	}

	a.setPhase("executing")
	a.logger.Info("🚀 Starting workflow execution.", "workflow", wf.Name, "node_count", wf.Len())
	result, err := a.engine.Execute(ctx, wf)
	if err != nil {
		return fmt.Errorf("execution failed: %w", err)
	}
	result.RunID = a.request.RunID

	a.setPhase("done")
	a.logger.Info("🏁 Execution finished.", "workflow", result.Workflow, "nodes_run", result.NodesRun, "elapsed", result.Elapsed)
	return nil
}

// renderGraph writes the built workflow as DOT and stops before execution.
func (a *App) renderGraph(wf *workflow.Workflow) error {
	file, err := os.Create(a.config.GraphPath)
	if err != nil {
		return fmt.Errorf("failed to create graph file: %w", err)
	}
	defer file.Close()

	if err := wf.DOT(file); err != nil {
		return fmt.Errorf("failed to render workflow graph: %w", err)
	}
	a.logger.Info("Workflow graph written.", "path", a.config.GraphPath)
	return nil
}
