package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMulticlassF1_MicroIsAccuracy(t *testing.T) {
	m := NewMulticlassF1(3, Micro)
	require.NoError(t, m.Update([]int32{0, 1, 2, 2}, []int32{0, 2, 2, 1}))
	assert.InDelta(t, 0.5, m.Compute(), 1e-12)
	assert.Equal(t, 4, m.Count())
}

func TestMulticlassF1_MacroAndWeighted(t *testing.T) {
	preds := []int32{0, 0, 1, 1, 1}
	targets := []int32{0, 1, 1, 1, 0}
	// class 0: tp 1, support 2, predicted 2 -> 0.5
	// class 1: tp 2, support 3, predicted 3 -> 2/3

	macro := NewMulticlassF1(2, Macro)
	require.NoError(t, macro.Update(preds, targets))
	assert.InDelta(t, (0.5+2.0/3)/2, macro.Compute(), 1e-12)

	weighted := NewMulticlassF1(2, Weighted)
	require.NoError(t, weighted.Update(preds, targets))
	assert.InDelta(t, (2*0.5+3*2.0/3)/5, weighted.Compute(), 1e-12)
}

func TestMulticlassF1_AbsentClassesIgnored(t *testing.T) {
	m := NewMulticlassF1(10, Macro)
	require.NoError(t, m.Update([]int32{1, 1}, []int32{1, 1}))
	assert.InDelta(t, 1, m.Compute(), 1e-12)
}

func TestMulticlassF1_AccumulatesAndResets(t *testing.T) {
	m := NewMulticlassF1(2, Micro)
	assert.Zero(t, m.Compute())

	require.NoError(t, m.Update([]int32{0}, []int32{0}))
	require.NoError(t, m.Update([]int32{1}, []int32{0}))
	assert.InDelta(t, 0.5, m.Compute(), 1e-12)
	assert.Equal(t, 1.0, m.Confusion().At(0, 1))

	m.Reset()
	assert.Zero(t, m.Count())
	assert.Zero(t, m.Compute())
}

func TestMulticlassF1_Errors(t *testing.T) {
	m := NewMulticlassF1(2, Micro)
	assert.Error(t, m.Update([]int32{0}, []int32{0, 1}))
	assert.Error(t, m.Update([]int32{2}, []int32{0}))
	assert.Error(t, m.Update([]int32{0}, []int32{-1}))
	assert.Panics(t, func() { NewMulticlassF1(0, Micro) })
}

func TestParseAverage(t *testing.T) {
	tests := []struct {
		in   string
		want Average
	}{
		{"", Micro},
		{"micro", Micro},
		{"Macro", Macro},
		{"weighted", Weighted},
	}
	for _, tt := range tests {
		got, err := ParseAverage(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
		if tt.in != "" {
			assert.Equal(t, tt.want.String(), got.String())
		}
	}
	_, err := ParseAverage("harmonic")
	assert.Error(t, err)
}
