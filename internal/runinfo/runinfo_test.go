package runinfo

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const eventsTSV = `onset	duration	trial_type
1.0005	2.0	incongruent
5.5	2.0	congruent
9.25	2.0	incongruent
`

const confoundsTSV = `trans_x	trans_y	trans_z	rot_x	rot_y	rot_z	dvars	framewise_displacement	a_comp_cor_00	cosine00
0.01	0.02	0.03	0.001	0.002	0.003	n/a	n/a	0.5	0.1
0.02	0.03	0.04	0.002	0.003	0.004	1.2	0.05	0.6	0.2
`

func writeRun(t *testing.T) (events, confounds, dir string) {
	t.Helper()
	dir = t.TempDir()
	events = filepath.Join(dir, "events.tsv")
	confounds = filepath.Join(dir, "confounds.tsv")
	require.NoError(t, os.WriteFile(events, []byte(eventsTSV), 0o644))
	require.NoError(t, os.WriteFile(confounds, []byte(confoundsTSV), 0o644))
	return events, confounds, dir
}

func TestExtract(t *testing.T) {
	t.Parallel()
	events, confounds, dir := writeRun(t)

	info, err := Extract(events, confounds, dir, DefaultConfig())
	require.NoError(t, err)

	t.Run("conditions are grouped and sorted", func(t *testing.T) {
		require.Equal(t, []string{"congruent", "incongruent"}, info.Conditions)
		assert.Equal(t, []float64{5.5}, info.Onsets[0])
		assert.Equal(t, []float64{1.001, 9.25}, info.Onsets[1], "onsets are rounded to 3 decimals")
		assert.Equal(t, []float64{2, 2}, info.Durations[1])
	})

	t.Run("amplitudes default to 1", func(t *testing.T) {
		assert.Equal(t, []float64{1}, info.Amplitudes[0])
		assert.Equal(t, []float64{1, 1}, info.Amplitudes[1])
	})

	t.Run("motion file has six columns per timepoint", func(t *testing.T) {
		data, err := os.ReadFile(info.MotionFile)
		require.NoError(t, err)
		lines := strings.Split(strings.TrimSpace(string(data)), "\n")
		require.Len(t, lines, 2)
		assert.Len(t, strings.Fields(lines[0]), 6)
		assert.Equal(t, "0.01 0.02 0.03 0.001 0.002 0.003", lines[0])
	})

	t.Run("nuisance regressors keep the configured order and zero out n/a", func(t *testing.T) {
		require.Equal(t, []string{"dvars", "framewise_displacement", "a_comp_cor_00", "cosine00"}, info.RegressorNames)
		assert.Equal(t, []float64{0, 1.2}, info.Regressors[0], "n/a becomes 0")
		assert.Equal(t, []float64{0.5, 0.6}, info.Regressors[2])
	})
}

func TestExtract_AmplitudesColumn(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	events := filepath.Join(dir, "events.tsv")
	confounds := filepath.Join(dir, "confounds.tsv")
	require.NoError(t, os.WriteFile(events, []byte(
		"onset\tduration\ttrial_type\tamplitudes\n1.0\t2.0\tgo\t0.75\n"), 0o644))
	require.NoError(t, os.WriteFile(confounds, []byte(confoundsTSV), 0o644))

	info, err := Extract(events, confounds, dir, DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, []float64{0.75}, info.Amplitudes[0])
}

func TestExtract_MissingColumns(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	confounds := filepath.Join(dir, "confounds.tsv")
	require.NoError(t, os.WriteFile(confounds, []byte(confoundsTSV), 0o644))

	t.Run("events without trial_type fail", func(t *testing.T) {
		events := filepath.Join(dir, "events_broken.tsv")
		require.NoError(t, os.WriteFile(events, []byte("onset\tduration\n1.0\t2.0\n"), 0o644))
		_, err := Extract(events, confounds, dir, DefaultConfig())
		assert.ErrorContains(t, err, `missing column "trial_type"`)
	})

	t.Run("confounds without motion columns fail", func(t *testing.T) {
		events := filepath.Join(dir, "events.tsv")
		require.NoError(t, os.WriteFile(events, []byte(eventsTSV), 0o644))
		broken := filepath.Join(dir, "confounds_broken.tsv")
		require.NoError(t, os.WriteFile(broken, []byte("dvars\n1.0\n"), 0o644))
		_, err := Extract(events, broken, dir, DefaultConfig())
		assert.ErrorContains(t, err, `missing column "trans_x"`)
	})
}

func TestDefaultConfig(t *testing.T) {
	t.Parallel()
	cfg := DefaultConfig()

	assert.Len(t, cfg.MotionColumns, 6)
	assert.Contains(t, cfg.RegressorNames, "a_comp_cor_05")
	assert.Contains(t, cfg.RegressorNames, "cosine03")
	assert.Equal(t, 1.0, cfg.Amplitude)
}
