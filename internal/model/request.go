package model

import "fmt"

// AnalysisLevel selects the scope of a run: one first-level model per
// subject, or a single aggregate model across subjects.
type AnalysisLevel string

const (
	// LevelParticipant runs a first-level model for every selected subject.
	LevelParticipant AnalysisLevel = "participant"
	// LevelGroup runs the second-level (group) model over first-level outputs.
	LevelGroup AnalysisLevel = "group"
)

// ParseAnalysisLevel validates a raw CLI value against the two permitted
// analysis levels.
func ParseAnalysisLevel(raw string) (AnalysisLevel, error) {
	switch AnalysisLevel(raw) {
	case LevelParticipant, LevelGroup:
		return AnalysisLevel(raw), nil
	}
	return "", fmt.Errorf("invalid analysis level %q: must be %q or %q", raw, LevelParticipant, LevelGroup)
}

// Request is the immutable description of one analysis invocation. It is
// constructed exactly once from command-line input.
type Request struct {
	// RunID uniquely identifies this invocation in logs and the status
	// endpoint. Generated at startup, never user-supplied.
	RunID string

	// DerivativesDir is the fMRIPrep output tree the analysis reads from.
	DerivativesDir string
	// OutputDir receives the analysis derivatives.
	OutputDir string
	// BIDSDir is the raw BIDS dataset holding task event files.
	BIDSDir string
	// WorkDir holds engine-managed intermediate artifacts.
	WorkDir string

	Level AnalysisLevel

	// Space is the target stereotactic space label. It is never validated
	// locally; an unknown label simply matches no preprocessed files.
	Space string
	// Task filters runs by BIDS task entity. Empty matches any task.
	Task string
	// Participants is the ordered set of subject labels, stored without the
	// "sub-" prefix.
	Participants []string

	// FWHM is the smoothing kernel in mm for SUSAN.
	FWHM float64
}
