package app

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SaqibMamoon/post-fmriprep-analysis/internal/model"
	"github.com/SaqibMamoon/post-fmriprep-analysis/internal/workflow"
)

const testSpace = "MNI152NLin2009cAsym"

// stubEngine records the workflows handed to it instead of invoking FSL.
type stubEngine struct {
	executed []*workflow.Workflow
	err      error
}

func (s *stubEngine) Execute(ctx context.Context, wf *workflow.Workflow) (*model.Result, error) {
	s.executed = append(s.executed, wf)
	if s.err != nil {
		return nil, s.err
	}
	return &model.Result{Workflow: wf.Name, NodesRun: wf.Len()}, nil
}

// fixtureDataset writes a minimal derivatives tree plus raw BIDS companion
// for one subject running the stroop task.
func fixtureDataset(t *testing.T) (derivatives, bidsDir string) {
	t.Helper()
	root := t.TempDir()
	derivatives = filepath.Join(root, "derivatives")
	bidsDir = filepath.Join(root, "bids")

	funcDir := filepath.Join(derivatives, "sub-104", "func")
	require.NoError(t, os.MkdirAll(funcDir, 0o755))
	for _, name := range []string{
		"sub-104_task-stroop_space-" + testSpace + "_desc-preproc_bold.nii.gz",
		"sub-104_task-stroop_space-" + testSpace + "_desc-brain_mask.nii.gz",
		"sub-104_task-stroop_desc-confounds_timeseries.tsv",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(funcDir, name), []byte("x"), 0o644))
	}

	rawFunc := filepath.Join(bidsDir, "sub-104", "func")
	require.NoError(t, os.MkdirAll(rawFunc, 0o755))
	require.NoError(t, os.WriteFile(
		filepath.Join(rawFunc, "sub-104_task-stroop_events.tsv"),
		[]byte("onset\tduration\ttrial_type\n1.0\t2.0\tcongruent\n"), 0o644))
	require.NoError(t, os.WriteFile(
		filepath.Join(bidsDir, "task-stroop_bold.json"),
		[]byte(`{"RepetitionTime": 2.0}`), 0o644))

	return derivatives, bidsDir
}

func testConfig(t *testing.T, derivatives, bidsDir string) *Config {
	t.Helper()
	cfg, err := NewConfig(Config{
		DerivativesDir: derivatives,
		OutputDir:      filepath.Join(t.TempDir(), "out"),
		BIDSDir:        bidsDir,
		WorkDir:        filepath.Join(t.TempDir(), "work"),
		Level:          model.LevelParticipant,
		Space:          testSpace,
		Task:           "stroop",
		FWHM:           6,
	})
	require.NoError(t, err)
	return cfg
}

func TestRun_Participant(t *testing.T) {
	t.Parallel()
	derivatives, bidsDir := fixtureDataset(t)
	cfg := testConfig(t, derivatives, bidsDir)

	eng := &stubEngine{}
	a := NewApp(&bytes.Buffer{}, cfg, eng)

	require.NoError(t, a.Run(context.Background()))

	require.Len(t, eng.executed, 1, "exactly one workflow is executed")
	wf := eng.executed[0]
	assert.Equal(t, "wf_1st_level", wf.Name)
	assert.True(t, wf.Has("feat_sub-104"))

	t.Run("workflow references the discovered files", func(t *testing.T) {
		nodes, err := wf.Nodes()
		require.NoError(t, err)
		for _, n := range nodes {
			if n.ID != "median_sub-104" {
				continue
			}
			argv, err := n.Argv(workflow.NewValues())
			require.NoError(t, err)
			assert.Contains(t, argv[1], "desc-preproc_bold.nii.gz")
			assert.True(t, strings.HasPrefix(argv[1], derivatives))
		}
	})
}

func TestRun_ParticipantErrors(t *testing.T) {
	t.Parallel()
	derivatives, bidsDir := fixtureDataset(t)

	t.Run("no subjects matched", func(t *testing.T) {
		cfg := testConfig(t, derivatives, bidsDir)
		cfg.Participants = []string{"999"}

		eng := &stubEngine{}
		a := NewApp(&bytes.Buffer{}, cfg, eng)

		err := a.Run(context.Background())
		assert.ErrorContains(t, err, "no subjects matched")
		assert.Empty(t, eng.executed)
	})

	t.Run("unknown space matches nothing", func(t *testing.T) {
		cfg := testConfig(t, derivatives, bidsDir)
		cfg.Space = "NotARealSpace2099"

		a := NewApp(&bytes.Buffer{}, cfg, &stubEngine{})
		assert.ErrorContains(t, a.Run(context.Background()), "no subjects matched")
	})

	t.Run("engine failure is reported", func(t *testing.T) {
		cfg := testConfig(t, derivatives, bidsDir)
		a := NewApp(&bytes.Buffer{}, cfg, &stubEngine{err: assert.AnError})
		assert.ErrorContains(t, a.Run(context.Background()), "execution failed")
	})
}

func TestRun_DryRunAndGraph(t *testing.T) {
	t.Parallel()
	derivatives, bidsDir := fixtureDataset(t)

	t.Run("dry run builds but never executes", func(t *testing.T) {
		cfg := testConfig(t, derivatives, bidsDir)
		cfg.DryRun = true

		eng := &stubEngine{}
		a := NewApp(&bytes.Buffer{}, cfg, eng)
		require.NoError(t, a.Run(context.Background()))
		assert.Empty(t, eng.executed)
	})

	t.Run("graph renders DOT and stops", func(t *testing.T) {
		cfg := testConfig(t, derivatives, bidsDir)
		cfg.GraphPath = filepath.Join(t.TempDir(), "workflow.dot")

		eng := &stubEngine{}
		a := NewApp(&bytes.Buffer{}, cfg, eng)
		require.NoError(t, a.Run(context.Background()))
		assert.Empty(t, eng.executed)

		data, err := os.ReadFile(cfg.GraphPath)
		require.NoError(t, err)
		assert.Contains(t, string(data), "feat_sub-104")
	})
}

func TestRun_Group(t *testing.T) {
	t.Parallel()
	derivatives, bidsDir := fixtureDataset(t)

	t.Run("no first-level outputs", func(t *testing.T) {
		cfg := testConfig(t, derivatives, bidsDir)
		cfg.Level = model.LevelGroup

		eng := &stubEngine{}
		a := NewApp(&bytes.Buffer{}, cfg, eng)
		err := a.Run(context.Background())
		assert.ErrorContains(t, err, "run the participant level first")
		assert.Empty(t, eng.executed)
	})

	t.Run("runs the group workflow over first-level estimates", func(t *testing.T) {
		cfg := testConfig(t, derivatives, bidsDir)
		cfg.Level = model.LevelGroup

		// Pre-populate the output tree as a finished participant run would.
		statsDir := filepath.Join(cfg.OutputDir, "FSLAnalysis", "sub-104", "func")
		require.NoError(t, os.MkdirAll(statsDir, 0o755))
		for _, suffix := range []string{"cope", "varcope"} {
			name := "sub-104_task-stroop_space-" + testSpace + "_desc-intask_" + suffix + ".nii.gz"
			require.NoError(t, os.WriteFile(filepath.Join(statsDir, name), []byte("x"), 0o644))
		}

		eng := &stubEngine{}
		a := NewApp(&bytes.Buffer{}, cfg, eng)
		require.NoError(t, a.Run(context.Background()))

		require.Len(t, eng.executed, 1)
		assert.Equal(t, "wf_2nd_level", eng.executed[0].Name)
		assert.True(t, eng.executed[0].Has("flameo_ols"))
	})
}

func TestNewApp(t *testing.T) {
	t.Parallel()
	derivatives, bidsDir := fixtureDataset(t)

	t.Run("resolves request and default contrasts", func(t *testing.T) {
		cfg := testConfig(t, derivatives, bidsDir)
		cfg.Space = "NotARealSpace2099"

		a := NewApp(&bytes.Buffer{}, cfg, &stubEngine{})
		req := a.Request()
		assert.NotEmpty(t, req.RunID)
		assert.Equal(t, "NotARealSpace2099", req.Space, "space is passed through verbatim")
		assert.Equal(t, model.LevelParticipant, req.Level)

		contrasts := a.Contrasts()
		require.Len(t, contrasts, 1)
		assert.Equal(t, "incongruent_gt_congruent", contrasts[0].Name)
	})

	t.Run("broken contrast configuration panics", func(t *testing.T) {
		cfg := testConfig(t, derivatives, bidsDir)
		cfg.ContrastsPath = filepath.Join(t.TempDir(), "missing.hcl")

		assert.Panics(t, func() {
			NewApp(&bytes.Buffer{}, cfg, &stubEngine{})
		})
	})
}

func TestNewConfig(t *testing.T) {
	t.Parallel()

	t.Run("missing derivatives dir", func(t *testing.T) {
		_, err := NewConfig(Config{OutputDir: "out", Level: model.LevelParticipant, FWHM: 6})
		assert.ErrorContains(t, err, "DerivativesDir")
	})

	t.Run("missing output dir", func(t *testing.T) {
		_, err := NewConfig(Config{DerivativesDir: "d", Level: model.LevelParticipant, FWHM: 6})
		assert.ErrorContains(t, err, "OutputDir")
	})

	t.Run("invalid level", func(t *testing.T) {
		_, err := NewConfig(Config{DerivativesDir: "d", OutputDir: "o", Level: "banana", FWHM: 6})
		assert.ErrorContains(t, err, "invalid analysis level")
	})

	t.Run("non-positive smoothing kernel", func(t *testing.T) {
		_, err := NewConfig(Config{DerivativesDir: "d", OutputDir: "o", Level: model.LevelParticipant})
		assert.ErrorContains(t, err, "fwhm must be positive")
	})
}
