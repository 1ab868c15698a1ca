// Package parallel fans CPU kernel work out over goroutines.
package parallel

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// Config controls parallel execution behavior.
type Config struct {
	Workers int // Goroutines to use; values < 2 run sequentially.
	Grain   int // Work items claimed per fetch. Small for heavy items such as whole feature planes.
}

// DefaultConfig uses one worker per CPU with a grain of one item.
func DefaultConfig() Config {
	return Config{Workers: runtime.GOMAXPROCS(0), Grain: 1}
}

// For runs f(i) for every i in [0, n).
//
// Workers claim Grain consecutive indices at a time from a shared counter, so
// uneven item costs (border planes, ragged batches) balance themselves.
// f must be safe to call concurrently for distinct i.
func For(n int, f func(i int), cfg Config) {
	grain := max(cfg.Grain, 1)
	workers := min(cfg.Workers, (n+grain-1)/grain)
	if workers < 2 {
		for i := 0; i < n; i++ {
			f(i)
		}
		return
	}

	var next atomic.Int64
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for {
				start := int(next.Add(int64(grain))) - grain
				if start >= n {
					return
				}
				for i := start; i < min(start+grain, n); i++ {
					f(i)
				}
			}
		}()
	}
	wg.Wait()
}

// ForPlanes runs f(n, c) over every (batch, channel) plane of an [N, C, ...] tensor.
func ForPlanes(batch, channels int, f func(n, c int), cfg Config) {
	For(batch*channels, func(k int) {
		f(k/channels, k%channels)
	}, cfg)
}
