package data

import (
	"encoding/json"
	"math"
	"os"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat"
)

// Stats holds per-channel normalisation statistics of a dataset.
type Stats struct {
	Mean []float64 `json:"mean"`
	Var  []float64 `json:"var"`
	Std  []float64 `json:"std"`
}

// ComputeStats decodes every sample of ds and returns the per-channel mean,
// population variance and standard deviation of its pixels.
func ComputeStats(ds Dataset) (*Stats, error) {
	if ds.Len() == 0 {
		return nil, errors.New("cannot compute statistics of an empty dataset")
	}
	shape := ds.Shape()
	channels, plane := shape[0], shape[1]*shape[2]
	buf := make([]float32, channels*plane)
	values := make([]float64, plane)

	// Every image has the same pixel count, so the pooled moments are plain
	// averages of the per-image moments.
	means := make([][]float64, channels)
	squares := make([][]float64, channels)
	for i := 0; i < ds.Len(); i++ {
		if _, err := ds.Item(i, buf); err != nil {
			return nil, errors.Wrapf(err, "sample %d", i)
		}
		for c := 0; c < channels; c++ {
			for j, v := range buf[c*plane : (c+1)*plane] {
				values[j] = float64(v)
			}
			m, v := stat.PopMeanVariance(values, nil)
			means[c] = append(means[c], m)
			squares[c] = append(squares[c], v+m*m)
		}
	}

	s := &Stats{
		Mean: make([]float64, channels),
		Var:  make([]float64, channels),
		Std:  make([]float64, channels),
	}
	for c := 0; c < channels; c++ {
		m := stat.Mean(means[c], nil)
		v := math.Max(stat.Mean(squares[c], nil)-m*m, 0)
		s.Mean[c], s.Var[c], s.Std[c] = m, v, math.Sqrt(v)
	}
	return s, nil
}

// LoadOrComputeStats returns the statistics cached at path, computing and
// writing them first if the file does not exist.
func LoadOrComputeStats(path string, ds Dataset) (*Stats, error) {
	raw, err := os.ReadFile(path)
	if err == nil {
		var s Stats
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, errors.Wrapf(err, "parsing %s", path)
		}
		return &s, nil
	}
	if !os.IsNotExist(err) {
		return nil, errors.Wrap(err, "reading statistics cache")
	}

	s, err := ComputeStats(ds)
	if err != nil {
		return nil, err
	}
	raw, err = json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "encoding statistics")
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return nil, errors.Wrap(err, "writing statistics cache")
	}
	return s, nil
}

// Apply normalises a planar [C, plane] buffer in place. A zero standard
// deviation leaves the channel centred but unscaled.
func (s *Stats) Apply(buf []float32, plane int) {
	for c := range s.Mean {
		mean, std := float32(s.Mean[c]), float32(s.Std[c])
		if std == 0 {
			std = 1
		}
		ch := buf[c*plane : (c+1)*plane]
		for i := range ch {
			ch[i] = (ch[i] - mean) / std
		}
	}
}
