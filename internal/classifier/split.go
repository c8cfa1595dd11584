package classifier

import (
	"fmt"
	"math"
	"math/rand"

	apperrors "churnlab/internal/errors"
	"churnlab/internal/features"
)

// Dataset is a feature matrix with its label column split out
type Dataset struct {
	IDs      []string
	Features []string
	X        [][]float64
	Y        []int
}

// Len returns the number of samples
func (d *Dataset) Len() int {
	return len(d.X)
}

// Split separates labelColumn from the matrix and shuffles the rows into
// train and test sets. The shuffle is driven only by seed, so the same
// matrix, fraction and seed always give the same partition. The test set
// gets ceil(n*testFraction) rows.
func Split(m *features.Matrix, labelColumn string, testFraction float64, seed int64) (train, test *Dataset, err error) {
	if testFraction <= 0 || testFraction >= 1 {
		return nil, nil, apperrors.NewFitError(fmt.Sprintf("test fraction %g outside (0, 1)", testFraction), nil)
	}
	labelIdx := m.ColumnIndex(labelColumn)
	if labelIdx < 0 {
		return nil, nil, apperrors.NewFitError("label column not found", nil).WithColumn(labelColumn)
	}

	n := m.Len()
	nTest := int(math.Ceil(float64(n) * testFraction))
	if n < 2 || nTest >= n {
		return nil, nil, apperrors.NewFitError(fmt.Sprintf("cannot split %d rows with test fraction %g", n, testFraction), nil)
	}

	names := make([]string, 0, len(m.Columns)-1)
	for j, c := range m.Columns {
		if j != labelIdx {
			names = append(names, c)
		}
	}

	labels := make([]int, n)
	for i, row := range m.Rows {
		switch row[labelIdx] {
		case 0:
			labels[i] = 0
		case 1:
			labels[i] = 1
		default:
			return nil, nil, apperrors.NewFitError(fmt.Sprintf("label %v is not 0 or 1", row[labelIdx]), nil).
				WithRecord(m.IDs[i]).WithColumn(labelColumn)
		}
	}

	perm := rand.New(rand.NewSource(seed)).Perm(n)
	take := func(idx []int) *Dataset {
		d := &Dataset{
			Features: names,
			IDs:      make([]string, len(idx)),
			X:        make([][]float64, len(idx)),
			Y:        make([]int, len(idx)),
		}
		for k, i := range idx {
			x := make([]float64, 0, len(names))
			x = append(x, m.Rows[i][:labelIdx]...)
			x = append(x, m.Rows[i][labelIdx+1:]...)
			d.IDs[k] = m.IDs[i]
			d.X[k] = x
			d.Y[k] = labels[i]
		}
		return d
	}

	return take(perm[nTest:]), take(perm[:nTest]), nil
}
