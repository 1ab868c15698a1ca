// Package data turns annotated image folders into batches for training.
//
// A Dataset yields one [C, H, W] sample at a time. A Loader groups samples
// into batches, decoding them on a worker pool while the previous batch is
// being consumed, and a Sampler decides the order samples are visited in.
package data

import "github.com/born-ml/resnet/internal/tensor"

// Dataset is a random-access collection of labelled images.
type Dataset interface {
	// Len returns the number of samples.
	Len() int
	// Shape returns the per-sample [C, H, W] shape.
	Shape() tensor.Shape
	// Label returns the class id of sample i without decoding it.
	Label(i int) int32
	// Item writes sample i into buf (len C*H*W) and returns its class id.
	// It is safe to call concurrently.
	Item(i int, buf []float32) (int32, error)
}

// Labels collects the class id of every sample.
func Labels(ds Dataset) []int32 {
	labels := make([]int32, ds.Len())
	for i := range labels {
		labels[i] = ds.Label(i)
	}
	return labels
}

// NumClasses returns one more than the largest class id in ds.
func NumClasses(ds Dataset) int {
	n := 0
	for _, l := range Labels(ds) {
		if int(l)+1 > n {
			n = int(l) + 1
		}
	}
	return n
}
