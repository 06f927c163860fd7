package workflow

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/SaqibMamoon/post-fmriprep-analysis/internal/ctxlog"
	"github.com/SaqibMamoon/post-fmriprep-analysis/internal/fsf"
	"github.com/SaqibMamoon/post-fmriprep-analysis/internal/model"
	"github.com/SaqibMamoon/post-fmriprep-analysis/internal/nifti"
	"github.com/SaqibMamoon/post-fmriprep-analysis/internal/runinfo"
)

const (
	// highPassCutoff is the temporal filter cutoff in seconds.
	highPassCutoff = 100.0
	// susanSigmaFactor converts a FWHM in mm to the Gaussian sigma SUSAN
	// expects: 2*sqrt(2*ln(2)).
	susanSigmaFactor = 2.35482
	// brightnessFraction scales the median intensity into SUSAN's
	// brightness threshold.
	brightnessFraction = 0.75
)

// FirstLevel builds the per-subject analysis graph: smoothing, model fit,
// and derivative sinks for every discovered subject/session.
func (b *Builder) FirstLevel(ctx context.Context, fileSet *model.FileSet) (*Workflow, error) {
	logger := ctxlog.FromContext(ctx)
	wf := New("wf_1st_level")
	w := &wiring{wf: wf}

	for _, subject := range fileSet.Subjects {
		b.addSubject(w, subject)
	}
	if w.err != nil {
		return nil, w.err
	}
	if err := wf.Finalize(); err != nil {
		return nil, err
	}
	logger.Debug("First-level workflow built.", "subjects", len(fileSet.Subjects), "node_count", wf.Len())
	return wf, nil
}

// addSubject wires the node chain for one subject/session:
//
//	median ─┐
//	mean  ──┴─> susan ──────────┬─> feat ─> sinks
//	runinfo ─> design ──────────┘
func (b *Builder) addSubject(w *wiring, subject model.SubjectData) {
	key := subject.Key()
	dir := filepath.Join(b.request.WorkDir, "wf_1st_level", key)

	meanFile := filepath.Join(dir, "mean_func.nii.gz")
	smoothedFile := filepath.Join(dir, "bold_smooth.nii.gz")
	designFile := filepath.Join(dir, "design.fsf")
	featDir := filepath.Join(dir, "feat")

	runinfoID := "runinfo_" + key
	medianID := "median_" + key
	meanID := "mean_" + key
	susanID := "susan_" + key
	designID := "design_" + key
	featID := "feat_" + key

	runinfoKey := "runinfo/" + key
	medianKey := "median/" + key

	w.add(&Node{
		ID:  runinfoID,
		Dir: dir,
		Func: func(ctx context.Context, v *Values) error {
			if subject.Events == "" {
				return errors.Errorf("no events file found for %s", key)
			}
			if subject.Regressors == "" {
				return errors.Errorf("no confounds file found for %s", key)
			}
			info, err := runinfo.Extract(subject.Events, subject.Regressors, dir, b.runCfg)
			if err != nil {
				return err
			}
			v.Set(runinfoKey, info)
			return nil
		},
	})

	w.add(&Node{
		ID:  medianID,
		Dir: dir,
		Argv: func(v *Values) ([]string, error) {
			if subject.Mask == "" {
				return nil, errors.Errorf("no brain mask found for %s", key)
			}
			return []string{"fslstats", subject.Bold, "-k", subject.Mask, "-p", "50"}, nil
		},
		StdoutKey: medianKey,
	})

	w.add(&Node{
		ID:  meanID,
		Dir: dir,
		Argv: func(v *Values) ([]string, error) {
			return []string{"fslmaths", subject.Bold, "-Tmean", meanFile}, nil
		},
	})

	w.add(&Node{
		ID:  susanID,
		Dir: dir,
		Argv: func(v *Values) ([]string, error) {
			median, err := v.Float(medianKey)
			if err != nil {
				return nil, err
			}
			brightness := fmt.Sprintf("%g", brightnessFraction*median)
			sigma := fmt.Sprintf("%g", b.request.FWHM/susanSigmaFactor)
			return []string{
				"susan", subject.Bold, brightness, sigma, "3", "1", "1",
				meanFile, brightness, smoothedFile,
			}, nil
		},
	})

	w.add(&Node{
		ID:  designID,
		Dir: dir,
		Func: func(ctx context.Context, v *Values) error {
			raw, ok := v.Get(runinfoKey)
			if !ok {
				return errors.Errorf("run info missing for %s", key)
			}
			info := raw.(*runinfo.RunInfo)

			evs, err := fsf.WriteEVFiles(dir, info)
			if err != nil {
				return err
			}
			confounds, err := fsf.WriteConfoundsFile(dir, info)
			if err != nil {
				return err
			}

			header, err := nifti.ReadHeader(subject.Bold)
			if err != nil {
				return errors.Wrapf(err, "failed to inspect BOLD for %s", key)
			}
			tr := subject.RepetitionTime
			if tr == 0 {
				tr = header.RepetitionTime()
			}

			_, err = fsf.WriteDesign(dir, fsf.Design{
				OutputDir:      featDir,
				Functional:     smoothedFile,
				TR:             tr,
				Volumes:        header.Volumes(),
				HighPassCutoff: highPassCutoff,
				ConfoundFile:   confounds,
				EVs:            evs,
				Contrasts:      b.contrasts,
			})
			return err
		},
	})

	w.add(&Node{
		ID:  featID,
		Dir: dir,
		Argv: func(v *Values) ([]string, error) {
			return []string{"feat", designFile}, nil
		},
	})

	w.connect(runinfoID, designID)
	w.connect(medianID, susanID)
	w.connect(meanID, susanID)
	w.connect(susanID, designID)
	w.connect(designID, featID)
	w.connect(susanID, featID)

	// FEAT writes its stats under <outputdir>.feat.
	statsDir := filepath.Join(featDir+".feat", "stats")
	for _, stat := range []string{"cope", "varcope", "zstat", "tstat"} {
		sinkID := "ds_" + stat + "_" + key
		w.add(sinkNode(sinkID, sinkSpec{
			baseDir:    filepath.Join(b.request.OutputDir, "FSLAnalysis"),
			sourceFile: subject.Bold,
			inFile:     filepath.Join(statsDir, stat+"1.nii.gz"),
			desc:       "intask",
			suffix:     stat,
		}))
		w.connect(featID, sinkID)
	}
}
