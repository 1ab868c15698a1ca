// Package metrics accumulates classification metrics across batches.
package metrics

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// Average selects how per-class F1 scores are combined.
type Average int

const (
	// Micro pools true/false positives over all classes. For single-label
	// multiclass data this equals accuracy.
	Micro Average = iota
	// Macro is the unweighted mean of per-class scores.
	Macro
	// Weighted weights each class score by its support.
	Weighted
)

func (a Average) String() string {
	switch a {
	case Micro:
		return "micro"
	case Macro:
		return "macro"
	case Weighted:
		return "weighted"
	default:
		return fmt.Sprintf("Average(%d)", int(a))
	}
}

// ParseAverage parses "micro", "macro" or "weighted". The empty string is micro.
func ParseAverage(s string) (Average, error) {
	switch strings.ToLower(s) {
	case "", "micro":
		return Micro, nil
	case "macro":
		return Macro, nil
	case "weighted":
		return Weighted, nil
	}
	return 0, fmt.Errorf("metrics: unknown F1 average %q", s)
}

// MulticlassF1 accumulates a confusion matrix and reports its F1 score.
//
// Rows of the matrix are targets, columns are predictions.
type MulticlassF1 struct {
	numClasses int
	average    Average
	confusion  *mat.Dense
}

// NewMulticlassF1 creates an empty metric for numClasses classes.
func NewMulticlassF1(numClasses int, average Average) *MulticlassF1 {
	if numClasses <= 0 {
		panic("metrics: numClasses must be positive")
	}
	return &MulticlassF1{
		numClasses: numClasses,
		average:    average,
		confusion:  mat.NewDense(numClasses, numClasses, nil),
	}
}

// Update adds one batch of predictions. preds and targets must have the same
// length and hold class ids in [0, numClasses).
func (m *MulticlassF1) Update(preds, targets []int32) error {
	if len(preds) != len(targets) {
		return fmt.Errorf("metrics: %d predictions for %d targets", len(preds), len(targets))
	}
	for i := range preds {
		p, t := int(preds[i]), int(targets[i])
		if p < 0 || p >= m.numClasses || t < 0 || t >= m.numClasses {
			return fmt.Errorf("metrics: class pair (%d, %d) out of range [0, %d)", t, p, m.numClasses)
		}
		m.confusion.Set(t, p, m.confusion.At(t, p)+1)
	}
	return nil
}

// Count returns the number of samples seen since the last Reset.
func (m *MulticlassF1) Count() int {
	return int(mat.Sum(m.confusion))
}

// Confusion returns a copy of the confusion matrix.
func (m *MulticlassF1) Confusion() *mat.Dense {
	return mat.DenseCopyOf(m.confusion)
}

// Compute returns the F1 score of everything seen since the last Reset.
// An empty metric scores 0.
func (m *MulticlassF1) Compute() float64 {
	total := mat.Sum(m.confusion)
	if total == 0 {
		return 0
	}
	if m.average == Micro {
		return mat.Trace(m.confusion) / total
	}

	var sum, weights float64
	for c := 0; c < m.numClasses; c++ {
		tp := m.confusion.At(c, c)
		support := mat.Sum(m.confusion.RowView(c))
		predicted := mat.Sum(m.confusion.ColView(c))
		if support == 0 && predicted == 0 {
			// Absent classes are left out of the average.
			continue
		}
		f1 := 0.0
		if tp > 0 {
			f1 = 2 * tp / (support + predicted)
		}
		w := 1.0
		if m.average == Weighted {
			w = support
		}
		sum += w * f1
		weights += w
	}
	if weights == 0 {
		return 0
	}
	return sum / weights
}

// Reset clears the accumulated counts.
func (m *MulticlassF1) Reset() {
	m.confusion.Zero()
}
