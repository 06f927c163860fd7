package fsf

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// GroupDesign is the set of VEST files describing a single-group average
// model: one wave of ones across the input copes, a single group-mean
// contrast, and one variance group.
type GroupDesign struct {
	MatFile string
	ConFile string
	GrpFile string
}

// WriteGroupDesign writes design.mat, design.con and design.grp for n
// inputs into dir.
func WriteGroupDesign(dir string, n int) (*GroupDesign, error) {
	if n < 1 {
		return nil, errors.Errorf("group design needs at least one input, got %d", n)
	}

	var mat strings.Builder
	fmt.Fprintf(&mat, "/NumWaves\t1\n/NumPoints\t%d\n/PPheights\t\t%e\n\n/Matrix\n", n, 1.0)
	for i := 0; i < n; i++ {
		fmt.Fprintf(&mat, "%e\n", 1.0)
	}

	var con strings.Builder
	fmt.Fprintf(&con, "/ContrastName1\tgroup mean\n/NumWaves\t1\n/NumContrasts\t1\n/PPheights\t\t%e\n\n/Matrix\n%e\n", 1.0, 1.0)

	var grp strings.Builder
	fmt.Fprintf(&grp, "/NumWaves\t1\n/NumPoints\t%d\n\n/Matrix\n", n)
	for i := 0; i < n; i++ {
		grp.WriteString("1\n")
	}

	design := &GroupDesign{
		MatFile: filepath.Join(dir, "design.mat"),
		ConFile: filepath.Join(dir, "design.con"),
		GrpFile: filepath.Join(dir, "design.grp"),
	}
	for path, content := range map[string]string{
		design.MatFile: mat.String(),
		design.ConFile: con.String(),
		design.GrpFile: grp.String(),
	} {
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return nil, errors.Wrapf(err, "failed to write %s", filepath.Base(path))
		}
	}
	return design, nil
}
