package workflow

import (
	"github.com/SaqibMamoon/post-fmriprep-analysis/internal/model"
	"github.com/SaqibMamoon/post-fmriprep-analysis/internal/runinfo"
)

// Builder constructs workflows from an analysis request and a contrast set.
// It performs no I/O itself; file reads and writes happen when the engine
// runs the nodes.
type Builder struct {
	request   *model.Request
	contrasts []model.Contrast
	runCfg    runinfo.Config
}

// NewBuilder creates a builder bound to one request.
func NewBuilder(request *model.Request, contrasts []model.Contrast) *Builder {
	return &Builder{
		request:   request,
		contrasts: contrasts,
		runCfg:    runinfo.DefaultConfig(),
	}
}

// wiring accumulates graph mutations and keeps only the first error, so
// the builder can declare nodes and edges without per-call error plumbing.
type wiring struct {
	wf  *Workflow
	err error
}

func (w *wiring) add(n *Node) {
	if w.err == nil {
		w.err = w.wf.AddNode(n)
	}
}

func (w *wiring) connect(from, to string) {
	if w.err == nil {
		w.err = w.wf.Connect(from, to)
	}
}
