package parallel

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFor_VisitsEveryIndexOnce(t *testing.T) {
	for _, cfg := range []Config{
		DefaultConfig(),
		{Workers: 1},
		{Workers: 4, Grain: 7},
		{Workers: 64, Grain: 1},
	} {
		n := 1000
		hits := make([]int32, n)
		For(n, func(i int) {
			atomic.AddInt32(&hits[i], 1)
		}, cfg)
		for i, h := range hits {
			assert.EqualValues(t, 1, h, "cfg %+v index %d", cfg, i)
		}
	}
}

func TestFor_Empty(t *testing.T) {
	called := false
	For(0, func(int) { called = true }, DefaultConfig())
	assert.False(t, called)
}

func TestForPlanes(t *testing.T) {
	batch, channels := 4, 8
	var seen [4][8]atomic.Bool
	ForPlanes(batch, channels, func(n, c int) {
		seen[n][c].Store(true)
	}, Config{Workers: 3, Grain: 2})

	for n := 0; n < batch; n++ {
		for c := 0; c < channels; c++ {
			assert.True(t, seen[n][c].Load(), "missing plane [%d][%d]", n, c)
		}
	}
}
