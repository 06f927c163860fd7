package workflow

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SaqibMamoon/post-fmriprep-analysis/internal/model"
)

func testRequest(t *testing.T) *model.Request {
	t.Helper()
	return &model.Request{
		RunID:          "test-run",
		DerivativesDir: filepath.Join(t.TempDir(), "derivatives"),
		OutputDir:      filepath.Join(t.TempDir(), "out"),
		WorkDir:        filepath.Join(t.TempDir(), "work"),
		Level:          model.LevelParticipant,
		Space:          "MNI152NLin2009cAsym",
		Task:           "stroop",
		FWHM:           6,
	}
}

func testContrasts() []model.Contrast {
	return []model.Contrast{{
		Name:       "incongruent_gt_congruent",
		Type:       "T",
		Conditions: []string{"incongruent", "congruent"},
		Weights:    []float64{1, -1},
	}}
}

func subjectData(label, session string) model.SubjectData {
	base := "sub-" + label + "_task-stroop_space-MNI152NLin2009cAsym"
	return model.SubjectData{
		Subject:        label,
		Session:        session,
		Bold:           base + "_desc-preproc_bold.nii.gz",
		Mask:           base + "_desc-brain_mask.nii.gz",
		Events:         "sub-" + label + "_task-stroop_events.tsv",
		Regressors:     "sub-" + label + "_desc-confounds_timeseries.tsv",
		RepetitionTime: 2,
	}
}

func TestFirstLevel(t *testing.T) {
	t.Parallel()
	b := NewBuilder(testRequest(t), testContrasts())

	fileSet := &model.FileSet{Subjects: []model.SubjectData{
		subjectData("104", ""),
		subjectData("119", ""),
	}}

	wf, err := b.FirstLevel(context.Background(), fileSet)
	require.NoError(t, err)
	assert.Equal(t, "wf_1st_level", wf.Name)

	t.Run("builds the full node chain per subject", func(t *testing.T) {
		for _, key := range []string{"sub-104", "sub-119"} {
			for _, prefix := range []string{
				"runinfo_", "median_", "mean_", "susan_", "design_", "feat_",
				"ds_cope_", "ds_varcope_", "ds_zstat_", "ds_tstat_",
			} {
				assert.True(t, wf.Has(prefix+key), "missing node %s%s", prefix, key)
			}
		}
		assert.Equal(t, 20, wf.Len())
	})

	t.Run("ordering respects the data flow", func(t *testing.T) {
		nodes, err := wf.Nodes()
		require.NoError(t, err)

		pos := map[string]int{}
		for i, n := range nodes {
			pos[n.ID] = i
		}
		assert.Less(t, pos["median_sub-104"], pos["susan_sub-104"])
		assert.Less(t, pos["mean_sub-104"], pos["susan_sub-104"])
		assert.Less(t, pos["runinfo_sub-104"], pos["design_sub-104"])
		assert.Less(t, pos["susan_sub-104"], pos["design_sub-104"])
		assert.Less(t, pos["design_sub-104"], pos["feat_sub-104"])
		assert.Less(t, pos["feat_sub-104"], pos["ds_cope_sub-104"])
	})

	t.Run("empty file set yields an empty workflow", func(t *testing.T) {
		wf, err := b.FirstLevel(context.Background(), &model.FileSet{})
		require.NoError(t, err)
		assert.Zero(t, wf.Len())
	})
}

func TestFirstLevel_SessionKeys(t *testing.T) {
	t.Parallel()
	b := NewBuilder(testRequest(t), testContrasts())

	fileSet := &model.FileSet{Subjects: []model.SubjectData{
		subjectData("104", "retest"),
		subjectData("104", "test"),
	}}

	wf, err := b.FirstLevel(context.Background(), fileSet)
	require.NoError(t, err)
	assert.True(t, wf.Has("feat_sub-104_ses-retest"))
	assert.True(t, wf.Has("feat_sub-104_ses-test"))
}

func TestFirstLevel_NodeCommands(t *testing.T) {
	t.Parallel()
	req := testRequest(t)
	b := NewBuilder(req, testContrasts())

	subject := subjectData("104", "")
	wf, err := b.FirstLevel(context.Background(), &model.FileSet{Subjects: []model.SubjectData{subject}})
	require.NoError(t, err)

	nodes, err := wf.Nodes()
	require.NoError(t, err)
	byID := map[string]*Node{}
	for _, n := range nodes {
		byID[n.ID] = n
	}

	t.Run("median samples the masked 50th percentile", func(t *testing.T) {
		argv, err := byID["median_sub-104"].Argv(NewValues())
		require.NoError(t, err)
		assert.Equal(t, []string{"fslstats", subject.Bold, "-k", subject.Mask, "-p", "50"}, argv)
	})

	t.Run("susan derives brightness and sigma from the median", func(t *testing.T) {
		v := NewValues()
		v.Set("median/sub-104", "1000")

		argv, err := byID["susan_sub-104"].Argv(v)
		require.NoError(t, err)
		require.Len(t, argv, 10)
		assert.Equal(t, "susan", argv[0])
		assert.Equal(t, subject.Bold, argv[1])
		assert.Equal(t, "750", argv[2], "brightness is 75% of the median")
		assert.Equal(t, "2.54796", argv[3][:7], "sigma is FWHM scaled by 2*sqrt(2*ln 2)")
	})

	t.Run("susan fails without a recorded median", func(t *testing.T) {
		_, err := byID["susan_sub-104"].Argv(NewValues())
		assert.ErrorContains(t, err, "no value recorded")
	})

	t.Run("runinfo fails without events or confounds", func(t *testing.T) {
		bare := subject
		bare.Events = ""
		wf, err := b.FirstLevel(context.Background(), &model.FileSet{Subjects: []model.SubjectData{bare}})
		require.NoError(t, err)
		nodes, err := wf.Nodes()
		require.NoError(t, err)
		for _, n := range nodes {
			if n.ID == "runinfo_sub-104" {
				assert.ErrorContains(t, n.Func(context.Background(), NewValues()), "no events file")
			}
		}
	})
}
