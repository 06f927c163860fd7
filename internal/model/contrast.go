package model

import "github.com/pkg/errors"

// ContrastTypeT is the only statistical test type currently supported; it
// matches FEAT's t-contrast rows.
const ContrastTypeT = "T"

// Contrast is a statistical comparison between task conditions: an ordered
// set of condition labels and one weight per condition.
type Contrast struct {
	Name       string
	Type       string
	Conditions []string
	Weights    []float64
}

// Validate checks the structural integrity of a contrast. It does not check
// that the condition labels exist in any events file; that mismatch only
// surfaces when the design is fit.
func (c Contrast) Validate() error {
	if c.Name == "" {
		return errors.New("contrast name must not be empty")
	}
	if c.Type != ContrastTypeT {
		return errors.Errorf("contrast %q: unsupported type %q", c.Name, c.Type)
	}
	if len(c.Conditions) == 0 {
		return errors.Errorf("contrast %q: at least one condition is required", c.Name)
	}
	if len(c.Conditions) != len(c.Weights) {
		return errors.Errorf("contrast %q: %d conditions but %d weights",
			c.Name, len(c.Conditions), len(c.Weights))
	}
	allZero := true
	for _, w := range c.Weights {
		if w != 0 {
			allZero = false
			break
		}
	}
	if allZero {
		return errors.Errorf("contrast %q: weights must not all be zero", c.Name)
	}
	return nil
}

// Weight returns the weight assigned to a condition, or zero when the
// condition does not participate in the contrast.
func (c Contrast) Weight(condition string) float64 {
	for i, name := range c.Conditions {
		if name == condition {
			return c.Weights[i]
		}
	}
	return 0
}
