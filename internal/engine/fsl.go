package engine

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/SaqibMamoon/post-fmriprep-analysis/internal/ctxlog"
	"github.com/SaqibMamoon/post-fmriprep-analysis/internal/model"
	"github.com/SaqibMamoon/post-fmriprep-analysis/internal/workflow"
)

// FSL executes workflow nodes by invoking the FSL command-line tools found
// on PATH. Nodes run sequentially in the workflow's topological order.
type FSL struct{}

// NewFSL creates the real engine.
func NewFSL() *FSL {
	return &FSL{}
}

// Execute runs every node of the workflow. Command failures are wrapped
// with the node name and the tail of the command's stderr; they are not
// translated or classified further.
func (e *FSL) Execute(ctx context.Context, wf *workflow.Workflow) (*model.Result, error) {
	logger := ctxlog.FromContext(ctx)
	nodes, err := wf.Nodes()
	if err != nil {
		return nil, err
	}

	values := workflow.NewValues()
	start := time.Now()
	for _, node := range nodes {
		if node.Dir != "" {
			if err := os.MkdirAll(node.Dir, 0o755); err != nil {
				return nil, errors.Wrapf(err, "node %q: failed to create working directory", node.ID)
			}
		}

		switch {
		case node.Argv != nil:
			if err := e.runCommand(ctx, node, values); err != nil {
				return nil, err
			}
		case node.Func != nil:
			logger.Debug("Running node.", "node", node.ID)
			if err := node.Func(ctx, values); err != nil {
				return nil, errors.Wrapf(err, "node %q failed", node.ID)
			}
		default:
			return nil, errors.Errorf("node %q has no action", node.ID)
		}
	}

	return &model.Result{
		Workflow: wf.Name,
		NodesRun: len(nodes),
		Elapsed:  time.Since(start),
	}, nil
}

func (e *FSL) runCommand(ctx context.Context, node *workflow.Node, values *workflow.Values) error {
	logger := ctxlog.FromContext(ctx)

	argv, err := node.Argv(values)
	if err != nil {
		return errors.Wrapf(err, "node %q: failed to resolve command", node.ID)
	}
	if len(argv) == 0 {
		return errors.Errorf("node %q resolved to an empty command", node.ID)
	}

	logger.Debug("Running command.", "node", node.ID, "command", strings.Join(argv, " "))
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = node.Dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return errors.Wrapf(err, "node %q (%s) failed: %s", node.ID, argv[0], tail(stderr.String()))
	}
	if node.StdoutKey != "" {
		values.Set(node.StdoutKey, strings.TrimSpace(stdout.String()))
	}
	return nil
}

// tail keeps error messages readable when a tool dumps pages of output.
func tail(s string) string {
	s = strings.TrimSpace(s)
	lines := strings.Split(s, "\n")
	if len(lines) <= 5 {
		return s
	}
	return "... " + strings.Join(lines[len(lines)-5:], "\n")
}
