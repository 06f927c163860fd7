package workflow

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/SaqibMamoon/post-fmriprep-analysis/internal/bids"
)

// sinkSpec describes one derivative sink: a produced file to be filed under
// the output tree with a BIDS-derivatives name drawn from a source file.
type sinkSpec struct {
	// baseDir is the sink root, e.g. <output>/FSLAnalysis.
	baseDir string
	// sourceFile donates the naming entities (subject, session, task,
	// space).
	sourceFile string
	// inFile is the produced file to copy.
	inFile string
	// desc and suffix name the derivative.
	desc   string
	suffix string
	// subOverride replaces the subject entity; group outputs use "all".
	subOverride string
}

// sinkNode wraps a sinkSpec as an in-process node.
func sinkNode(id string, spec sinkSpec) *Node {
	return &Node{
		ID: id,
		Func: func(ctx context.Context, v *Values) error {
			dest, err := spec.destination()
			if err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
				return errors.Wrap(err, "failed to create sink directory")
			}
			return copyFile(spec.inFile, dest)
		},
	}
}

// destination derives the target path: sub-<label>[/ses-<label>]/func/ under
// the base directory, with the source entities re-assembled around the new
// desc and suffix. The extension follows the produced file, not the source.
func (s sinkSpec) destination() (string, error) {
	e := bids.ParseEntities(s.sourceFile)
	if s.subOverride != "" {
		e.Subject = s.subOverride
		e.Session = ""
	}
	if e.Subject == "" {
		return "", errors.Errorf("sink source %q carries no subject entity", s.sourceFile)
	}

	var parts []string
	parts = append(parts, "sub-"+e.Subject)
	if e.Session != "" {
		parts = append(parts, "ses-"+e.Session)
	}
	if e.Task != "" {
		parts = append(parts, "task-"+e.Task)
	}
	if e.Run != "" {
		parts = append(parts, "run-"+e.Run)
	}
	if e.Space != "" {
		parts = append(parts, "space-"+e.Space)
	}
	if s.desc != "" {
		parts = append(parts, "desc-"+s.desc)
	}
	name := strings.Join(parts, "_") + "_" + s.suffix + bids.ParseEntities(s.inFile).Ext

	dir := filepath.Join(s.baseDir, "sub-"+e.Subject)
	if e.Session != "" {
		dir = filepath.Join(dir, "ses-"+e.Session)
	}
	return filepath.Join(dir, "func", name), nil
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return errors.Wrap(err, "failed to open sink input")
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return errors.Wrap(err, "failed to create sink output")
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return errors.Wrapf(err, "failed to copy %s", filepath.Base(src))
	}
	return out.Close()
}
