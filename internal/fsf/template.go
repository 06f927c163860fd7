package fsf

import (
	"io"
	"strconv"
	"text/template"

	"github.com/pkg/errors"
)

// The design is rendered from a fully precomputed view: all EV and contrast
// numbering, including the interleaved temporal-derivative real EVs, is
// expanded in Go so the template stays a plain range.
const designTemplate = `# FEAT version number
set fmri(version) 6.00
set fmri(inmelodic) 0

# First-level analysis
set fmri(level) 1
set fmri(analysis) 7

set fmri(outputdir) "{{.OutputDir}}"
set fmri(tr) {{printf "%g" .TR}}
set fmri(npts) {{.Volumes}}
set fmri(ndelete) 0
set fmri(multiple) 1
set feat_files(1) "{{.Functional}}"

# Pre-statistics: data arrive smoothed and realigned from upstream, so only
# temporal filtering remains.
set fmri(filtering_yn) 1
set fmri(smooth) 0
set fmri(mc) 0
set fmri(temphp_yn) 1
set fmri(paradigm_hp) {{printf "%g" .HighPassCutoff}}

# Registration is disabled: inputs are already resampled to the target space.
set fmri(reginitial_highres_yn) 0
set fmri(reghighres_yn) 0
set fmri(regstandard_yn) 0

# Statistics
set fmri(stats_yn) 1
set fmri(prewhiten_yn) 1
set fmri(motionevs) 0
{{if .ConfoundFile}}set fmri(confoundevs) 1
set confoundev_files(1) "{{.ConfoundFile}}"
{{else}}set fmri(confoundevs) 0
{{end}}
set fmri(evs_orig) {{.EVCount}}
set fmri(evs_real) {{.RealEVCount}}
set fmri(evs_vox) 0
set fmri(ncon_orig) {{.ContrastCount}}
set fmri(ncon_real) {{.ContrastCount}}
set fmri(nftests_orig) 0
set fmri(nftests_real) 0
{{range .EVViews}}
# EV {{.Index}}: {{.Name}}
set fmri(evtitle{{.Index}}) "{{.Name}}"
set fmri(shape{{.Index}}) 3
set fmri(convolve{{.Index}}) 3
set fmri(convolve_phase{{.Index}}) 0
set fmri(tempfilt_yn{{.Index}}) 1
set fmri(deriv_yn{{.Index}}) 1
set fmri(custom{{.Index}}) "{{.File}}"
{{range .Ortho}}set fmri(ortho{{.}}) 0
{{end}}{{end}}
set fmri(con_mode_old) orig
set fmri(con_mode) real
{{range .ContrastViews}}
# Contrast {{.Index}}: {{.Name}}
set fmri(conpic_real.{{.Index}}) 1
set fmri(conname_real.{{.Index}}) "{{.Name}}"
{{range .Weights}}set fmri(con_real{{.Key}}) {{printf "%g" .Value}}
{{end}}{{end}}`

type evView struct {
	Index int
	Name  string
	File  string
	// Ortho holds the pre-rendered "N.M" orthogonalization keys.
	Ortho []string
}

type realWeight struct {
	// Key is the pre-rendered "contrast.realEV" index pair.
	Key   string
	Value float64
}

type contrastView struct {
	Index   int
	Name    string
	Weights []realWeight
}

type designView struct {
	Design
	EVCount       int
	RealEVCount   int
	ContrastCount int
	EVViews       []evView
	ContrastViews []contrastView
}

// Render writes a complete design.fsf for the given design.
func Render(w io.Writer, d Design) error {
	if len(d.EVs) == 0 {
		return errors.New("design has no explanatory variables")
	}
	if d.Volumes <= 0 {
		return errors.New("design has no volumes")
	}
	if d.TR <= 0 {
		return errors.New("design has no repetition time")
	}

	view := buildView(d)
	tpl, err := template.New("design.fsf").Parse(designTemplate)
	if err != nil {
		return errors.Wrap(err, "failed to parse design template")
	}
	return errors.Wrap(tpl.Execute(w, view), "failed to render design.fsf")
}

func buildView(d Design) designView {
	view := designView{
		Design:  d,
		EVCount: len(d.EVs),
		// Each EV contributes a temporal derivative, doubling the real EVs.
		RealEVCount:   2 * len(d.EVs),
		ContrastCount: len(d.Contrasts),
	}

	for i, ev := range d.EVs {
		ortho := make([]string, 0, len(d.EVs)+1)
		for j := 0; j <= len(d.EVs); j++ {
			ortho = append(ortho, keyPair(i+1, j))
		}
		view.EVViews = append(view.EVViews, evView{
			Index: i + 1,
			Name:  ev.Name,
			File:  ev.File,
			Ortho: ortho,
		})
	}

	for ci, contrast := range d.Contrasts {
		cv := contrastView{Index: ci + 1, Name: contrast.Name}
		for evi, ev := range d.EVs {
			// The original EV maps to real EV 2*i-1; its temporal
			// derivative at 2*i always gets weight zero.
			cv.Weights = append(cv.Weights,
				realWeight{Key: keyPair(ci+1, 2*evi+1), Value: contrast.Weight(ev.Name)},
				realWeight{Key: keyPair(ci+1, 2*evi+2), Value: 0},
			)
		}
		view.ContrastViews = append(view.ContrastViews, cv)
	}
	return view
}

func keyPair(a, b int) string {
	return strconv.Itoa(a) + "." + strconv.Itoa(b)
}
