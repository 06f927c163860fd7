// Package fsf renders FEAT design files. The first-level design is a
// design.fsf plus one three-column timing file per condition and a single
// confound-EV matrix; the second level is the trio of VEST files FLAMEO
// consumes for a group-mean model.
package fsf

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/SaqibMamoon/post-fmriprep-analysis/internal/model"
	"github.com/SaqibMamoon/post-fmriprep-analysis/internal/runinfo"
)

// EV is one explanatory variable of the first-level design: a named
// condition backed by a three-column timing file.
type EV struct {
	Name string
	File string
}

// Design collects everything the first-level design.fsf depends on.
type Design struct {
	// OutputDir is the FEAT output directory (FEAT appends ".feat").
	OutputDir string
	// Functional is the smoothed BOLD series the model is fit on.
	Functional string
	// TR is the repetition time in seconds.
	TR float64
	// Volumes is the length of the time axis.
	Volumes int
	// HighPassCutoff is the temporal high-pass filter cutoff in seconds.
	HighPassCutoff float64
	// ConfoundFile is the combined motion + nuisance regressor matrix.
	// Empty disables confound EVs.
	ConfoundFile string

	EVs       []EV
	Contrasts []model.Contrast
}

// WriteEVFiles writes one three-column (onset, duration, amplitude) timing
// file per condition into dir and returns the resulting EV list, in the
// run-info condition order.
func WriteEVFiles(dir string, info *runinfo.RunInfo) ([]EV, error) {
	evs := make([]EV, 0, len(info.Conditions))
	for i, condition := range info.Conditions {
		var b strings.Builder
		for j := range info.Onsets[i] {
			fmt.Fprintf(&b, "%g\t%g\t%g\n", info.Onsets[i][j], info.Durations[i][j], info.Amplitudes[i][j])
		}
		path := filepath.Join(dir, "ev_"+condition+".txt")
		if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
			return nil, errors.Wrapf(err, "failed to write EV file for condition %q", condition)
		}
		evs = append(evs, EV{Name: condition, File: path})
	}
	return evs, nil
}

// WriteConfoundsFile combines the motion parameters and the selected
// nuisance regressors into one whitespace-separated matrix, one column per
// confound. An empty run info (no motion file, no regressors) yields no
// file and an empty path.
func WriteConfoundsFile(dir string, info *runinfo.RunInfo) (string, error) {
	motion, err := readMatrix(info.MotionFile)
	if err != nil {
		return "", errors.Wrap(err, "failed to read motion parameter file")
	}
	if len(motion) == 0 && len(info.Regressors) == 0 {
		return "", nil
	}

	rows := len(motion)
	if rows == 0 && len(info.Regressors) > 0 {
		rows = len(info.Regressors[0])
	}
	for _, series := range info.Regressors {
		if len(series) != rows {
			return "", errors.Errorf("regressor length %d does not match %d timepoints", len(series), rows)
		}
	}

	var b strings.Builder
	for row := 0; row < rows; row++ {
		var cells []string
		if len(motion) > 0 {
			for _, v := range motion[row] {
				cells = append(cells, fmt.Sprintf("%g", v))
			}
		}
		for _, series := range info.Regressors {
			cells = append(cells, fmt.Sprintf("%g", series[row]))
		}
		b.WriteString(strings.Join(cells, " "))
		b.WriteByte('\n')
	}

	path := filepath.Join(dir, "confounds.txt")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return "", errors.Wrap(err, "failed to write confound matrix")
	}
	return path, nil
}

func readMatrix(path string) ([][]float64, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var matrix [][]float64
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		if line == "" {
			continue
		}
		var row []float64
		for _, cell := range strings.Fields(line) {
			var v float64
			if _, err := fmt.Sscanf(cell, "%g", &v); err != nil {
				return nil, errors.Errorf("bad value %q in %s", cell, path)
			}
			row = append(row, v)
		}
		matrix = append(matrix, row)
	}
	return matrix, nil
}

// WriteDesign renders design.fsf into dir and returns its path.
func WriteDesign(dir string, d Design) (string, error) {
	path := filepath.Join(dir, "design.fsf")
	file, err := os.Create(path)
	if err != nil {
		return "", errors.Wrap(err, "failed to create design.fsf")
	}
	defer file.Close()

	if err := Render(file, d); err != nil {
		return "", err
	}
	return path, nil
}
