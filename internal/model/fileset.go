package model

// SubjectData groups the per-run input files discovered for one subject and
// session. All paths are read-only references into the derivatives and raw
// BIDS trees.
type SubjectData struct {
	// Subject is the bare label, without the "sub-" prefix.
	Subject string
	// Session is the bare session label, or empty for datasets without
	// session subfolders.
	Session string

	// Bold is the preprocessed BOLD series in the requested space.
	Bold string
	// Mask is the matching brain mask.
	Mask string
	// Events is the task events file from the raw BIDS tree.
	Events string
	// Regressors is the fMRIPrep confounds table.
	Regressors string

	// RepetitionTime in seconds, resolved from the BOLD sidecar JSON.
	RepetitionTime float64
}

// Key returns a stable identifier for the subject/session pair, suitable for
// node naming.
func (s SubjectData) Key() string {
	if s.Session == "" {
		return "sub-" + s.Subject
	}
	return "sub-" + s.Subject + "_ses-" + s.Session
}

// FileSet is the ordered collection of discovered subject data. A request
// that matches no subjects yields an empty, non-nil set; deciding whether
// that is fatal is the caller's policy, not the walker's.
type FileSet struct {
	Subjects []SubjectData
}

// Empty reports whether the walk discovered no subjects at all.
func (fs *FileSet) Empty() bool {
	return fs == nil || len(fs.Subjects) == 0
}

// GroupData holds the inputs to a second-level analysis: the per-subject
// effect estimates produced by first-level runs plus a common brain mask.
type GroupData struct {
	// Copes and VarCopes are index-aligned across subjects.
	Copes    []string
	VarCopes []string
	// GroupMask is the brain mask the group model is estimated within.
	GroupMask string
	// BIDSRef is a representative source file used to derive output naming.
	BIDSRef string
}
