package data

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/born-ml/resnet/internal/tensor"
)

// Batch is a group of decoded samples laid out as [N, C, H, W].
type Batch struct {
	Images []float32
	Shape  tensor.Shape
	Labels []int32
}

// Len returns the number of samples in the batch.
func (b *Batch) Len() int { return len(b.Labels) }

// Tensor copies the images into a tensor on backend.
func Tensor[B tensor.Backend](b *Batch, backend B) (*tensor.Tensor[B], error) {
	return tensor.FromSlice(b.Images, b.Shape, backend)
}

// Loader groups the samples of a dataset into batches.
//
// Samples within a batch are decoded concurrently by Workers goroutines and
// the next batch is decoded while the current one is being consumed.
type Loader struct {
	Dataset   Dataset
	BatchSize int
	Workers   int
	Sampler   Sampler // nil visits samples in order
}

// NewLoader creates a loader. batchSize and workers below 1 are raised to 1.
func NewLoader(ds Dataset, batchSize, workers int, sampler Sampler) *Loader {
	return &Loader{Dataset: ds, BatchSize: max(batchSize, 1), Workers: max(workers, 1), Sampler: sampler}
}

// NumBatches returns the number of batches in one epoch. The last batch may
// be short.
func (l *Loader) NumBatches() int {
	n := len(l.indices())
	return (n + l.BatchSize - 1) / l.BatchSize
}

func (l *Loader) indices() []int {
	if l.Sampler == nil {
		return SequentialSampler(l.Dataset.Len()).Indices()
	}
	return l.Sampler.Indices()
}

type loaded struct {
	batch *Batch
	err   error
}

// Each runs fn on every batch of one epoch. It stops at the first error
// from decoding or from fn, or when ctx is cancelled.
func (l *Loader) Each(ctx context.Context, fn func(*Batch) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	idx := l.indices()
	out := make(chan loaded, 1)
	go func() {
		defer close(out)
		for start := 0; start < len(idx); start += l.BatchSize {
			end := min(start+l.BatchSize, len(idx))
			b, err := l.load(ctx, idx[start:end])
			select {
			case out <- loaded{b, err}:
			case <-ctx.Done():
				return
			}
			if err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case r, ok := <-out:
			if !ok {
				return ctx.Err()
			}
			if r.err != nil {
				return r.err
			}
			if err := fn(r.batch); err != nil {
				return err
			}
		}
	}
}

// load decodes the samples at idx with a pool of workers.
func (l *Loader) load(ctx context.Context, idx []int) (*Batch, error) {
	shape := l.Dataset.Shape()
	size := shape.NumElements()
	b := &Batch{
		Images: make([]float32, len(idx)*size),
		Shape:  append(tensor.Shape{len(idx)}, shape...),
		Labels: make([]int32, len(idx)),
	}

	jobs := make(chan int)
	var (
		wg       sync.WaitGroup
		once     sync.Once
		firstErr error
	)
	for w := 0; w < min(l.Workers, len(idx)); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				label, err := l.Dataset.Item(idx[j], b.Images[j*size:(j+1)*size])
				if err != nil {
					once.Do(func() { firstErr = errors.Wrapf(err, "sample %d", idx[j]) })
					continue
				}
				b.Labels[j] = label
			}
		}()
	}

feed:
	for j := range idx {
		select {
		case jobs <- j:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return b, nil
}
