// Package runinfo turns a BIDS events file and an fMRIPrep confounds table
// into the pieces a first-level FEAT design needs: per-condition onset,
// duration and amplitude vectors, a motion parameter file, and the selected
// nuisance regressors.
package runinfo

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Config selects which confound columns participate in the model.
type Config struct {
	// RegressorNames are the nuisance columns added to the design. Names
	// absent from the confounds table are skipped.
	RegressorNames []string
	// MotionColumns are written to the realignment parameter file. All six
	// must be present.
	MotionColumns []string
	// Amplitude is the default event amplitude when the events file has no
	// amplitudes column.
	Amplitude float64
}

// DefaultConfig mirrors the regressor selection the analysis has always
// used: DVARS, framewise displacement, six aCompCor components and four
// cosine drift terms.
func DefaultConfig() Config {
	cfg := Config{
		RegressorNames: []string{"dvars", "framewise_displacement"},
		MotionColumns: []string{
			"trans_x", "trans_y", "trans_z",
			"rot_x", "rot_y", "rot_z",
		},
		Amplitude: 1.0,
	}
	for i := 0; i < 6; i++ {
		cfg.RegressorNames = append(cfg.RegressorNames, fmt.Sprintf("a_comp_cor_%02d", i))
	}
	for i := 0; i < 4; i++ {
		cfg.RegressorNames = append(cfg.RegressorNames, fmt.Sprintf("cosine%02d", i))
	}
	return cfg
}

// RunInfo is the extracted model information for one functional run. The
// per-condition slices are index-aligned with Conditions; Regressors holds
// one series per entry of RegressorNames.
type RunInfo struct {
	Conditions []string
	Onsets     [][]float64
	Durations  [][]float64
	Amplitudes [][]float64

	RegressorNames []string
	Regressors     [][]float64

	// MotionFile is the realignment parameter file written into outDir.
	MotionFile string
}

// Extract parses the events and confounds tables and writes the motion
// parameter file into outDir.
func Extract(eventsPath, regressorsPath, outDir string, cfg Config) (*RunInfo, error) {
	info := &RunInfo{}

	if err := extractEvents(eventsPath, cfg.Amplitude, info); err != nil {
		return nil, err
	}
	if err := extractConfounds(regressorsPath, outDir, cfg, info); err != nil {
		return nil, err
	}
	return info, nil
}

func extractEvents(path string, defaultAmplitude float64, info *RunInfo) error {
	header, rows, err := readTable(path)
	if err != nil {
		return errors.Wrapf(err, "failed to read events file %s", path)
	}

	onsetCol, err := columnIndex(header, "onset")
	if err != nil {
		return errors.Wrap(err, path)
	}
	durationCol, err := columnIndex(header, "duration")
	if err != nil {
		return errors.Wrap(err, path)
	}
	trialTypeCol, err := columnIndex(header, "trial_type")
	if err != nil {
		return errors.Wrap(err, path)
	}
	amplitudeCol, amplitudeErr := columnIndex(header, "amplitudes")

	byCondition := map[string]int{}
	for _, row := range rows {
		condition := row[trialTypeCol]
		idx, seen := byCondition[condition]
		if !seen {
			idx = len(info.Conditions)
			byCondition[condition] = idx
			info.Conditions = append(info.Conditions, condition)
			info.Onsets = append(info.Onsets, nil)
			info.Durations = append(info.Durations, nil)
			info.Amplitudes = append(info.Amplitudes, nil)
		}

		onset, err := parseCell(row[onsetCol])
		if err != nil {
			return errors.Wrapf(err, "bad onset in %s", path)
		}
		duration, err := parseCell(row[durationCol])
		if err != nil {
			return errors.Wrapf(err, "bad duration in %s", path)
		}
		amplitude := defaultAmplitude
		if amplitudeErr == nil {
			if amplitude, err = parseCell(row[amplitudeCol]); err != nil {
				return errors.Wrapf(err, "bad amplitude in %s", path)
			}
		}

		info.Onsets[idx] = append(info.Onsets[idx], round3(onset))
		info.Durations[idx] = append(info.Durations[idx], round3(duration))
		info.Amplitudes[idx] = append(info.Amplitudes[idx], round3(amplitude))
	}

	sortByCondition(info)
	return nil
}

// sortByCondition orders conditions alphabetically so the EV numbering is
// stable across runs regardless of event order in the file.
func sortByCondition(info *RunInfo) {
	order := make([]int, len(info.Conditions))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		return info.Conditions[order[a]] < info.Conditions[order[b]]
	})

	conditions := make([]string, len(order))
	onsets := make([][]float64, len(order))
	durations := make([][]float64, len(order))
	amplitudes := make([][]float64, len(order))
	for newIdx, oldIdx := range order {
		conditions[newIdx] = info.Conditions[oldIdx]
		onsets[newIdx] = info.Onsets[oldIdx]
		durations[newIdx] = info.Durations[oldIdx]
		amplitudes[newIdx] = info.Amplitudes[oldIdx]
	}
	info.Conditions = conditions
	info.Onsets = onsets
	info.Durations = durations
	info.Amplitudes = amplitudes
}

func extractConfounds(path, outDir string, cfg Config, info *RunInfo) error {
	header, rows, err := readTable(path)
	if err != nil {
		return errors.Wrapf(err, "failed to read confounds file %s", path)
	}

	motionCols := make([]int, len(cfg.MotionColumns))
	for i, name := range cfg.MotionColumns {
		if motionCols[i], err = columnIndex(header, name); err != nil {
			return errors.Wrap(err, path)
		}
	}

	motionFile := filepath.Join(outDir, "motion.par")
	var motion strings.Builder
	for _, row := range rows {
		for i, col := range motionCols {
			if i > 0 {
				motion.WriteByte(' ')
			}
			value, err := parseCell(row[col])
			if err != nil {
				return errors.Wrapf(err, "bad %s value in %s", cfg.MotionColumns[i], path)
			}
			fmt.Fprintf(&motion, "%g", value)
		}
		motion.WriteByte('\n')
	}
	if err := os.WriteFile(motionFile, []byte(motion.String()), 0o644); err != nil {
		return errors.Wrap(err, "failed to write motion parameter file")
	}
	info.MotionFile = motionFile

	// Selected regressors missing from the table are skipped, matching the
	// tolerant behavior the analysis has always had for older fMRIPrep
	// confound namings.
	for _, name := range cfg.RegressorNames {
		col, err := columnIndex(header, name)
		if err != nil {
			continue
		}
		series := make([]float64, len(rows))
		for i, row := range rows {
			if series[i], err = parseCell(row[col]); err != nil {
				return errors.Wrapf(err, "bad %s value in %s", name, path)
			}
		}
		info.RegressorNames = append(info.RegressorNames, name)
		info.Regressors = append(info.Regressors, series)
	}
	return nil
}

// readTable reads a BIDS tab-separated table into a header row and data rows.
func readTable(path string) ([]string, [][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.Comma = '\t'
	records, err := reader.ReadAll()
	if err != nil {
		return nil, nil, err
	}
	if len(records) == 0 {
		return nil, nil, errors.New("empty table")
	}
	return records[0], records[1:], nil
}

func columnIndex(header []string, name string) (int, error) {
	for i, col := range header {
		if col == name {
			return i, nil
		}
	}
	return -1, errors.Errorf("missing column %q", name)
}

// parseCell parses one numeric cell. BIDS encodes missing values as "n/a",
// which the model treats as zero.
func parseCell(cell string) (float64, error) {
	cell = strings.TrimSpace(cell)
	if cell == "" || cell == "n/a" {
		return 0, nil
	}
	return strconv.ParseFloat(cell, 64)
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
