// Package engine executes built workflows. The boundary is deliberately
// narrow (build a workflow elsewhere, Execute it here) so the orchestration
// logic can be tested against a stand-in engine instead of a machine with
// FSL installed.
package engine

import (
	"context"

	"github.com/SaqibMamoon/post-fmriprep-analysis/internal/model"
	"github.com/SaqibMamoon/post-fmriprep-analysis/internal/workflow"
)

// Engine runs a finalized workflow to completion. The run is wholesale:
// there is no retry and no partial-failure recovery, the first node error
// aborts everything.
type Engine interface {
	Execute(ctx context.Context, wf *workflow.Workflow) (*model.Result, error)
}
