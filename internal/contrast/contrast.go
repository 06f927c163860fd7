// Package contrast resolves the contrast configuration for a run. Contrasts
// used to be a hand-edited list inside the workflow source; they are now an
// explicit configuration structure, read from an HCL file or taken from the
// compiled-in defaults, so an analysis can be re-parametrized without code
// edits.
//
// The file format is one block per contrast:
//
//	contrast "incongruent_gt_congruent" {
//	  type       = "T"
//	  conditions = ["incongruent", "congruent"]
//	  weights    = [1, -1]
//	}
package contrast

import (
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/pkg/errors"

	"github.com/SaqibMamoon/post-fmriprep-analysis/internal/model"
)

// contrastBlock mirrors one HCL `contrast` block.
type contrastBlock struct {
	Name       string    `hcl:"name,label"`
	Type       string    `hcl:"type,optional"`
	Conditions []string  `hcl:"conditions"`
	Weights    []float64 `hcl:"weights"`
}

// fileContent mirrors the root body of a contrast file.
type fileContent struct {
	Contrasts []contrastBlock `hcl:"contrast,block"`
}

// Default returns the compiled-in contrast set, used when no contrast file
// is supplied on the command line.
func Default() []model.Contrast {
	return []model.Contrast{
		{
			Name:       "incongruent_gt_congruent",
			Type:       model.ContrastTypeT,
			Conditions: []string{"incongruent", "congruent"},
			Weights:    []float64{1, -1},
		},
	}
}

// Load parses and validates a contrast definition file.
func Load(path string) ([]model.Contrast, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, errors.Wrapf(diags, "failed to parse contrast file %s", path)
	}

	var content fileContent
	if diags := gohcl.DecodeBody(file.Body, nil, &content); diags.HasErrors() {
		return nil, errors.Wrapf(diags, "failed to decode contrast file %s", path)
	}
	if len(content.Contrasts) == 0 {
		return nil, errors.Errorf("contrast file %s defines no contrasts", path)
	}

	contrasts := make([]model.Contrast, 0, len(content.Contrasts))
	for _, block := range content.Contrasts {
		c := model.Contrast{
			Name:       block.Name,
			Type:       block.Type,
			Conditions: block.Conditions,
			Weights:    block.Weights,
		}
		if c.Type == "" {
			c.Type = model.ContrastTypeT
		}
		if err := c.Validate(); err != nil {
			return nil, errors.Wrapf(err, "invalid contrast in %s", path)
		}
		contrasts = append(contrasts, c)
	}
	return contrasts, nil
}

// Resolve returns the contrast set for a run: the file at path when one is
// given, the defaults otherwise.
func Resolve(path string) ([]model.Contrast, error) {
	if path == "" {
		return Default(), nil
	}
	return Load(path)
}
