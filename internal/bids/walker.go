package bids

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/SaqibMamoon/post-fmriprep-analysis/internal/ctxlog"
	"github.com/SaqibMamoon/post-fmriprep-analysis/internal/model"
)

// Walker enumerates subject and session files in an fMRIPrep derivatives
// tree and its companion raw BIDS dataset.
type Walker struct {
	derivativesDir string
	bidsDir        string
	space          string
	task           string
}

// NewWalker creates a walker bound to one derivatives tree. The space and
// task labels are taken verbatim from the request; an unrecognized space
// simply matches no files.
func NewWalker(derivativesDir, bidsDir, space, task string) *Walker {
	return &Walker{
		derivativesDir: derivativesDir,
		bidsDir:        bidsDir,
		space:          space,
		task:           task,
	}
}

// Participant discovers the first-level inputs for the requested labels, in
// request order. Labels without a matching subject directory contribute
// nothing. An empty label list selects every subject in the tree.
func (w *Walker) Participant(ctx context.Context, labels []string) (*model.FileSet, error) {
	logger := ctxlog.FromContext(ctx)

	if len(labels) == 0 {
		discovered, err := w.allSubjects()
		if err != nil {
			return nil, err
		}
		labels = discovered
	}

	fileSet := &model.FileSet{}
	for _, label := range labels {
		label = strings.TrimPrefix(label, "sub-")
		subjectDir := filepath.Join(w.derivativesDir, "sub-"+label)
		if _, err := os.Stat(subjectDir); err != nil {
			logger.Debug("Subject directory not found, skipping.", "subject", label, "dir", subjectDir)
			continue
		}

		sessions, err := sessionLabels(subjectDir)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to list sessions for sub-%s", label)
		}
		for _, session := range sessions {
			data, ok, err := w.collectRun(label, session)
			if err != nil {
				return nil, err
			}
			if !ok {
				logger.Debug("No matching functional run.", "subject", label, "session", session,
					"task", w.task, "space", w.space)
				continue
			}
			fileSet.Subjects = append(fileSet.Subjects, data)
		}
	}

	return fileSet, nil
}

// collectRun pairs up the functional files for one subject/session. It
// reports ok=false when no preprocessed BOLD matches the task and space
// filters; a matched BOLD with missing companions is still returned, and
// the gap surfaces downstream. Multi-run sessions resolve to the lowest
// run label: the first matching BOLD fixes the run entity, and the
// companion files must carry the same one.
func (w *Walker) collectRun(label, session string) (model.SubjectData, bool, error) {
	funcDir := filepath.Join(w.derivativesDir, "sub-"+label)
	if session != "" {
		funcDir = filepath.Join(funcDir, "ses-"+session)
	}
	funcDir = filepath.Join(funcDir, "func")

	entries, err := os.ReadDir(funcDir)
	if err != nil {
		if os.IsNotExist(err) {
			return model.SubjectData{}, false, nil
		}
		return model.SubjectData{}, false, errors.Wrapf(err, "failed to read %s", funcDir)
	}

	data := model.SubjectData{Subject: label, Session: session}
	var run string
	// ReadDir sorts entries, so the first matching BOLD is the lowest run.
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		e := ParseEntities(entry.Name())
		if w.task != "" && e.Task != w.task {
			continue
		}
		if e.Suffix == "bold" && e.Desc == "preproc" && e.Ext == ".nii.gz" && e.Space == w.space {
			data.Bold = filepath.Join(funcDir, entry.Name())
			run = e.Run
			break
		}
	}
	if data.Bold == "" {
		return model.SubjectData{}, false, nil
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		e := ParseEntities(entry.Name())
		if w.task != "" && e.Task != w.task {
			continue
		}
		if e.Run != run {
			continue
		}
		path := filepath.Join(funcDir, entry.Name())
		switch {
		case e.Suffix == "mask" && e.Desc == "brain" && e.Ext == ".nii.gz" && e.Space == w.space:
			data.Mask = path
		// Confounds tables carry no space entity. fMRIPrep >=20.2 names
		// them desc-confounds_timeseries; older releases used
		// desc-confounds_regressors.
		case e.Desc == "confounds" && e.Ext == ".tsv" && (e.Suffix == "timeseries" || e.Suffix == "regressors"):
			data.Regressors = path
		}
	}

	data.Events = w.findEvents(label, session, run)
	data.RepetitionTime = readRepetitionTime(
		sidecarPath(data.Bold),
		w.taskSidecar(w.derivativesDir),
		w.taskSidecar(w.bidsDir),
	)
	return data, true, nil
}

// findEvents locates the task events file in the raw BIDS tree, preferring
// the subject's own func directory and falling back to the inherited
// dataset-root file. When the selected BOLD carries a run entity, the
// subject-level events file must carry the same one; a run-less events file
// is accepted as the inherited default.
func (w *Walker) findEvents(label, session, run string) string {
	if w.bidsDir == "" {
		return ""
	}

	funcDir := filepath.Join(w.bidsDir, "sub-"+label)
	if session != "" {
		funcDir = filepath.Join(funcDir, "ses-"+session)
	}
	funcDir = filepath.Join(funcDir, "func")

	if entries, err := os.ReadDir(funcDir); err == nil {
		fallback := ""
		for _, entry := range entries {
			e := ParseEntities(entry.Name())
			if e.Suffix != "events" || e.Ext != ".tsv" {
				continue
			}
			if w.task != "" && e.Task != w.task {
				continue
			}
			if e.Run == run {
				return filepath.Join(funcDir, entry.Name())
			}
			if e.Run == "" && fallback == "" {
				fallback = filepath.Join(funcDir, entry.Name())
			}
		}
		if fallback != "" {
			return fallback
		}
	}

	if w.task != "" {
		inherited := filepath.Join(w.bidsDir, "task-"+w.task+"_events.tsv")
		if _, err := os.Stat(inherited); err == nil {
			return inherited
		}
	}
	return ""
}

// taskSidecar returns the dataset-root bold sidecar for the task filter, or
// empty when no task is set.
func (w *Walker) taskSidecar(root string) string {
	if root == "" || w.task == "" {
		return ""
	}
	return filepath.Join(root, "task-"+w.task+"_bold.json")
}

// allSubjects lists every sub-* directory in the derivatives tree, sorted.
func (w *Walker) allSubjects() ([]string, error) {
	entries, err := os.ReadDir(w.derivativesDir)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read derivatives directory %s", w.derivativesDir)
	}
	var labels []string
	for _, entry := range entries {
		if entry.IsDir() && strings.HasPrefix(entry.Name(), "sub-") {
			labels = append(labels, strings.TrimPrefix(entry.Name(), "sub-"))
		}
	}
	sort.Strings(labels)
	return labels, nil
}

// sessionLabels lists ses-* subdirectories, sorted. A dataset without
// session folders yields a single empty label.
func sessionLabels(subjectDir string) ([]string, error) {
	entries, err := os.ReadDir(subjectDir)
	if err != nil {
		return nil, err
	}
	var sessions []string
	for _, entry := range entries {
		if entry.IsDir() && strings.HasPrefix(entry.Name(), "ses-") {
			sessions = append(sessions, strings.TrimPrefix(entry.Name(), "ses-"))
		}
	}
	if len(sessions) == 0 {
		return []string{""}, nil
	}
	sort.Strings(sessions)
	return sessions, nil
}

// Group discovers the second-level inputs: cope/varcope images written by
// first-level runs under the output directory, plus a brain mask from the
// derivatives tree. The first discovered mask serves as the group mask.
func (w *Walker) Group(ctx context.Context, outputDir string, labels []string) (*model.GroupData, error) {
	logger := ctxlog.FromContext(ctx)

	selected := make(map[string]bool, len(labels))
	for _, label := range labels {
		selected[strings.TrimPrefix(label, "sub-")] = true
	}

	group := &model.GroupData{}
	firstLevelRoot := filepath.Join(outputDir, "FSLAnalysis")
	err := filepath.WalkDir(firstLevelRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return filepath.SkipAll
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		e := ParseEntities(d.Name())
		if e.Desc != "intask" || e.Ext != ".nii.gz" {
			return nil
		}
		if len(selected) > 0 && !selected[e.Subject] {
			return nil
		}
		if w.task != "" && e.Task != w.task {
			return nil
		}
		switch e.Suffix {
		case "cope":
			group.Copes = append(group.Copes, path)
		case "varcope":
			group.VarCopes = append(group.VarCopes, path)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to walk first-level outputs under %s", firstLevelRoot)
	}
	sort.Strings(group.Copes)
	sort.Strings(group.VarCopes)

	if len(group.Copes) != len(group.VarCopes) {
		return nil, errors.Errorf("unbalanced first-level outputs: %d copes but %d varcopes",
			len(group.Copes), len(group.VarCopes))
	}

	mask, err := w.firstMask()
	if err != nil {
		return nil, err
	}
	group.GroupMask = mask
	if len(group.Copes) > 0 {
		group.BIDSRef = group.Copes[0]
	}

	logger.Debug("Group inputs discovered.", "copes", len(group.Copes), "mask", group.GroupMask)
	return group, nil
}

// firstMask walks the derivatives tree for the first brain mask matching
// the task and space filters.
func (w *Walker) firstMask() (string, error) {
	var masks []string
	err := filepath.WalkDir(w.derivativesDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return filepath.SkipAll
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		e := ParseEntities(d.Name())
		if e.Suffix != "mask" || e.Desc != "brain" || e.Ext != ".nii.gz" || e.Space != w.space {
			return nil
		}
		if w.task != "" && e.Task != w.task {
			return nil
		}
		masks = append(masks, path)
		return nil
	})
	if err != nil {
		return "", errors.Wrapf(err, "failed to search for a group mask under %s", w.derivativesDir)
	}
	if len(masks) == 0 {
		return "", nil
	}
	sort.Strings(masks)
	return masks[0], nil
}
