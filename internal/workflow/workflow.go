package workflow

import (
	"context"
	"io"

	"github.com/dominikbraun/graph"
	"github.com/dominikbraun/graph/draw"
	"github.com/pkg/errors"
)

// Node is a unit of work in the workflow graph. Exactly one of Argv or Func
// is set: Argv nodes invoke an external FSL binary, Func nodes run
// in-process glue such as design rendering or derivative sinks.
type Node struct {
	// ID uniquely names the node within its workflow.
	ID string
	// Dir is the node's working directory. The engine creates it before
	// running the node.
	Dir string

	// Argv resolves the command line to execute, reading any dynamic
	// inputs (captured stdout of upstream nodes) from the store.
	Argv func(v *Values) ([]string, error)
	// StdoutKey stores the command's trimmed stdout under this key, for
	// downstream Argv resolvers. Ignored for Func nodes.
	StdoutKey string

	// Func is the in-process action for non-command nodes.
	Func func(ctx context.Context, v *Values) error
}

// Workflow is a named DAG of nodes with a stable topological order, fixed
// by Finalize.
type Workflow struct {
	Name string

	g     graph.Graph[string, *Node]
	order []string
}

// New creates an empty workflow. The underlying graph rejects edges that
// would introduce a cycle, so a finalized workflow is a DAG by construction.
func New(name string) *Workflow {
	return &Workflow{
		Name: name,
		g: graph.New(func(n *Node) string { return n.ID },
			graph.Directed(), graph.Acyclic(), graph.PreventCycles()),
	}
}

// AddNode inserts a node. Duplicate IDs are an error.
func (w *Workflow) AddNode(n *Node) error {
	if n.ID == "" {
		return errors.New("node ID must not be empty")
	}
	if err := w.g.AddVertex(n); err != nil {
		return errors.Wrapf(err, "failed to add node %q", n.ID)
	}
	return nil
}

// Connect adds a dependency edge: to runs after from.
func (w *Workflow) Connect(from, to string) error {
	if err := w.g.AddEdge(from, to); err != nil {
		return errors.Wrapf(err, "failed to connect %q -> %q", from, to)
	}
	return nil
}

// Finalize fixes the execution order. Ties between independent nodes are
// broken alphabetically so repeated builds of the same request execute
// identically.
func (w *Workflow) Finalize() error {
	order, err := graph.StableTopologicalSort(w.g, func(a, b string) bool { return a < b })
	if err != nil {
		return errors.Wrap(err, "failed to order workflow graph")
	}
	w.order = order
	return nil
}

// Nodes returns the nodes in execution order. Finalize must have been
// called.
func (w *Workflow) Nodes() ([]*Node, error) {
	if w.order == nil {
		return nil, errors.New("workflow is not finalized")
	}
	nodes := make([]*Node, 0, len(w.order))
	for _, id := range w.order {
		n, err := w.g.Vertex(id)
		if err != nil {
			return nil, errors.Wrapf(err, "missing node %q", id)
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

// Len returns the number of nodes in the graph.
func (w *Workflow) Len() int {
	if w.order != nil {
		return len(w.order)
	}
	size, err := w.g.Order()
	if err != nil {
		return 0
	}
	return size
}

// Has reports whether a node with the given ID exists.
func (w *Workflow) Has(id string) bool {
	_, err := w.g.Vertex(id)
	return err == nil
}

// DOT renders the graph in Graphviz DOT format.
func (w *Workflow) DOT(out io.Writer) error {
	return errors.Wrap(draw.DOT(w.g, out), "failed to render DOT")
}
