package workflow

import (
	"bufio"
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/SaqibMamoon/post-fmriprep-analysis/internal/ctxlog"
	"github.com/SaqibMamoon/post-fmriprep-analysis/internal/fsf"
	"github.com/SaqibMamoon/post-fmriprep-analysis/internal/model"
)

const (
	// clusterZThreshold and clusterPThreshold parameterize the cluster
	// forming step; clusterConnectivity is 26-neighbourhood in 3D.
	clusterZThreshold   = "3.2"
	clusterPThreshold   = "0.025"
	clusterConnectivity = "26"
	// fwePValue is half of 0.05 for the two-tailed FWE threshold.
	fwePValue = "0.025"
)

// GroupLevel builds the second-level graph: merge the per-subject effect
// estimates, fit the group-mean model with FLAMEO, and threshold the group
// z-map three ways (raw, voxel FWE, cluster), each sign separately.
func (b *Builder) GroupLevel(ctx context.Context, group *model.GroupData) (*Workflow, error) {
	logger := ctxlog.FromContext(ctx)
	if len(group.Copes) == 0 {
		return nil, errors.New("group workflow needs at least one cope image")
	}
	if group.GroupMask == "" {
		return nil, errors.New("group workflow needs a group mask")
	}

	wf := New("wf_2nd_level")
	w := &wiring{wf: wf}

	dir := filepath.Join(b.request.WorkDir, "wf_2nd_level")
	statsDir := filepath.Join(dir, "stats")
	n := len(group.Copes)

	copesMerged := filepath.Join(dir, "copes_merged.nii.gz")
	varcopesMerged := filepath.Join(dir, "varcopes_merged.nii.gz")
	zstat := filepath.Join(statsDir, "zstat1.nii.gz")
	res4d := filepath.Join(statsDir, "res4d.nii.gz")
	nonsig0 := filepath.Join(dir, "nonsignificant0.nii.gz")
	nonsig := filepath.Join(dir, "nonsignificant.nii.gz")
	zstatFWE := filepath.Join(dir, "zstat1_fwe.nii.gz")
	zstatInv := filepath.Join(dir, "zstat1_inv.nii.gz")
	posThresh := filepath.Join(dir, "cluster_pos_thresh.nii.gz")
	posIndex := filepath.Join(dir, "cluster_pos_index.nii.gz")
	posLmax := filepath.Join(dir, "cluster_pos_localmax.txt")
	negThresh := filepath.Join(dir, "cluster_neg_thresh.nii.gz")
	negIndex := filepath.Join(dir, "cluster_neg_index.nii.gz")
	negLmax := filepath.Join(dir, "cluster_neg_localmax.txt")
	negThreshInv := filepath.Join(dir, "cluster_neg_thresh_inv.nii.gz")
	zstatClust := filepath.Join(dir, "zstat1_clust.nii.gz")

	design := fsf.GroupDesign{
		MatFile: filepath.Join(dir, "design.mat"),
		ConFile: filepath.Join(dir, "design.con"),
		GrpFile: filepath.Join(dir, "design.grp"),
	}

	w.add(&Node{
		ID:  "merge_copes",
		Dir: dir,
		Argv: func(v *Values) ([]string, error) {
			return append([]string{"fslmerge", "-t", copesMerged}, group.Copes...), nil
		},
	})
	w.add(&Node{
		ID:  "merge_varcopes",
		Dir: dir,
		Argv: func(v *Values) ([]string, error) {
			return append([]string{"fslmerge", "-t", varcopesMerged}, group.VarCopes...), nil
		},
	})
	w.add(&Node{
		ID:  "l2_model",
		Dir: dir,
		Func: func(ctx context.Context, v *Values) error {
			_, err := fsf.WriteGroupDesign(dir, n)
			return err
		},
	})
	w.add(&Node{
		ID:  "flameo_ols",
		Dir: dir,
		Argv: func(v *Values) ([]string, error) {
			return []string{
				"flameo",
				"--cope_file=" + copesMerged,
				"--var_cope_file=" + varcopesMerged,
				"--mask_file=" + group.GroupMask,
				"--design_file=" + design.MatFile,
				"--t_con_file=" + design.ConFile,
				"--cov_split_file=" + design.GrpFile,
				"--run_mode=ols",
				"--log_dir=" + statsDir,
			}, nil
		},
	})
	w.connect("merge_copes", "flameo_ols")
	w.connect("merge_varcopes", "flameo_ols")
	w.connect("l2_model", "flameo_ols")

	// Smoothness feeds both thresholding branches. dof is N-1 for the
	// group-mean model.
	w.add(&Node{
		ID:  "smoothness",
		Dir: dir,
		Argv: func(v *Values) ([]string, error) {
			return []string{"smoothest", "-d", strconv.Itoa(n - 1), "-m", group.GroupMask, "-r", res4d}, nil
		},
		StdoutKey: "smoothest",
	})
	w.add(&Node{
		ID:  "parse_smoothness",
		Dir: dir,
		Func: func(ctx context.Context, v *Values) error {
			out, err := v.String("smoothest")
			if err != nil {
				return err
			}
			estimates, err := parseSmoothest(out)
			if err != nil {
				return err
			}
			v.Set("dlh", estimates.dlh)
			v.Set("volume", estimates.volume)
			v.Set("resels", estimates.resels)
			return nil
		},
	})
	w.connect("flameo_ols", "smoothness")
	w.connect("smoothness", "parse_smoothness")

	// FWE branch: ptoz gives the voxel threshold, then everything below it
	// in magnitude is subtracted away, preserving sign.
	w.add(&Node{
		ID:  "fwe_ptoz",
		Dir: dir,
		Argv: func(v *Values) ([]string, error) {
			resels, err := v.Float("resels")
			if err != nil {
				return nil, err
			}
			return []string{"ptoz", fwePValue, "-g", fmt.Sprintf("%g", resels)}, nil
		},
		StdoutKey: "zthresh",
	})
	w.add(&Node{
		ID:  "fwe_nonsig0",
		Dir: dir,
		Argv: func(v *Values) ([]string, error) {
			z, err := v.Float("zthresh")
			if err != nil {
				return nil, err
			}
			return []string{"fslmaths", zstat, "-uthr", fmt.Sprintf("%g", z), nonsig0}, nil
		},
	})
	w.add(&Node{
		ID:  "fwe_nonsig1",
		Dir: dir,
		Argv: func(v *Values) ([]string, error) {
			z, err := v.Float("zthresh")
			if err != nil {
				return nil, err
			}
			return []string{"fslmaths", nonsig0, "-thr", fmt.Sprintf("%g", -z), nonsig}, nil
		},
	})
	w.add(&Node{
		ID:  "fwe_thresh",
		Dir: dir,
		Argv: func(v *Values) ([]string, error) {
			return []string{"fslmaths", zstat, "-sub", nonsig, zstatFWE}, nil
		},
	})
	w.connect("parse_smoothness", "fwe_ptoz")
	w.connect("fwe_ptoz", "fwe_nonsig0")
	w.connect("fwe_nonsig0", "fwe_nonsig1")
	w.connect("fwe_nonsig1", "fwe_thresh")

	// Cluster branch, both signs.
	clusterArgs := func(in, thresh, index, lmax string) func(v *Values) ([]string, error) {
		return func(v *Values) ([]string, error) {
			dlh, err := v.Float("dlh")
			if err != nil {
				return nil, err
			}
			volume, err := v.Float("volume")
			if err != nil {
				return nil, err
			}
			return []string{
				"cluster",
				"-i", in,
				"-c", copesMerged,
				"-t", clusterZThreshold,
				"-p", clusterPThreshold,
				"-d", fmt.Sprintf("%g", dlh),
				"--volume=" + fmt.Sprintf("%g", volume),
				"--othresh=" + thresh,
				"--oindex=" + index,
				"--olmax=" + lmax,
				"--connectivity=" + clusterConnectivity,
				"--mm",
			}, nil
		}
	}
	w.add(&Node{ID: "cluster_pos", Dir: dir, Argv: clusterArgs(zstat, posThresh, posIndex, posLmax)})
	w.add(&Node{
		ID:  "zstat_inv",
		Dir: dir,
		Argv: func(v *Values) ([]string, error) {
			return []string{"fslmaths", zstat, "-mul", "-1", zstatInv}, nil
		},
	})
	w.add(&Node{ID: "cluster_neg", Dir: dir, Argv: clusterArgs(zstatInv, negThresh, negIndex, negLmax)})
	w.add(&Node{
		ID:  "cluster_inv",
		Dir: dir,
		Argv: func(v *Values) ([]string, error) {
			return []string{"fslmaths", negThresh, "-mul", "-1", negThreshInv}, nil
		},
	})
	w.add(&Node{
		ID:  "cluster_all",
		Dir: dir,
		Argv: func(v *Values) ([]string, error) {
			return []string{"fslmaths", posThresh, "-add", negThreshInv, zstatClust}, nil
		},
	})
	w.connect("parse_smoothness", "cluster_pos")
	w.connect("flameo_ols", "cluster_pos")
	w.connect("flameo_ols", "zstat_inv")
	w.connect("zstat_inv", "cluster_neg")
	w.connect("parse_smoothness", "cluster_neg")
	w.connect("merge_copes", "cluster_pos")
	w.connect("merge_copes", "cluster_neg")
	w.connect("cluster_neg", "cluster_inv")
	w.connect("cluster_pos", "cluster_all")
	w.connect("cluster_inv", "cluster_all")
	w.connect("flameo_ols", "fwe_nonsig0")
	w.connect("flameo_ols", "fwe_thresh")

	// Sinks: everything files under grp_all with the subject entity
	// collapsed to "all".
	grpBase := filepath.Join(b.request.OutputDir, "grp_all")
	sinks := []struct {
		id     string
		after  string
		in     string
		desc   string
		suffix string
	}{
		{"ds_zraw", "flameo_ols", zstat, "", "zstat"},
		{"ds_zfwe", "fwe_thresh", zstatFWE, "fwe", "zstat"},
		{"ds_zclust", "cluster_all", zstatClust, "clust", "zstat"},
		{"ds_clustidx_pos", "cluster_pos", posIndex, "", "pclusterindex"},
		{"ds_clustlmax_pos", "cluster_pos", posLmax, "intask", "plocalmax"},
		{"ds_clustidx_neg", "cluster_neg", negIndex, "", "nclusterindex"},
		{"ds_clustlmax_neg", "cluster_neg", negLmax, "intask", "nlocalmax"},
	}
	for _, s := range sinks {
		w.add(sinkNode(s.id, sinkSpec{
			baseDir:     grpBase,
			sourceFile:  group.BIDSRef,
			inFile:      s.in,
			desc:        s.desc,
			suffix:      s.suffix,
			subOverride: "all",
		}))
		w.connect(s.after, s.id)
	}

	if w.err != nil {
		return nil, w.err
	}
	if err := wf.Finalize(); err != nil {
		return nil, err
	}
	logger.Debug("Group-level workflow built.", "inputs", n, "node_count", wf.Len())
	return wf, nil
}

// smoothnessEstimates are the three numbers smoothest prints.
type smoothnessEstimates struct {
	dlh    float64
	volume float64
	resels float64
}

// parseSmoothest reads the whitespace-delimited KEY VALUE lines of the
// smoothest output.
func parseSmoothest(out string) (*smoothnessEstimates, error) {
	estimates := &smoothnessEstimates{}
	seen := map[string]bool{}

	scanner := bufio.NewScanner(strings.NewReader(out))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}
		value, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			continue
		}
		switch fields[0] {
		case "DLH":
			estimates.dlh = value
			seen["DLH"] = true
		case "VOLUME":
			estimates.volume = value
			seen["VOLUME"] = true
		case "RESELS":
			estimates.resels = value
			seen["RESELS"] = true
		}
	}
	for _, key := range []string{"DLH", "VOLUME", "RESELS"} {
		if !seen[key] {
			return nil, errors.Errorf("smoothest output is missing %s", key)
		}
	}
	return estimates, nil
}
