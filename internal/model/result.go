package model

import "time"

// Result reports the outcome of one engine execution. Success or failure is
// wholesale: there is no partial-failure recovery, so a Result is only
// produced when every node completed.
type Result struct {
	RunID    string
	Workflow string
	// NodesRun is the number of graph nodes the engine executed.
	NodesRun int
	Elapsed  time.Duration
}
