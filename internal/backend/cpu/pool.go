package cpu

import (
	"fmt"
	"math"

	"github.com/born-ml/resnet/internal/parallel"
	"github.com/born-ml/resnet/internal/tensor"
)

// MaxPool2D performs 2D max pooling with implicit -inf padding.
//
// Input shape:  [N, C, H, W]
// Output shape: [N, C, (H+2p-k)/s+1, (W+2p-k)/s+1]
//
// Example (2x2 pool, stride=2, no padding):
//
//	Input: [[1,2,3,4],    Output: [[6,8],
//	        [5,6,7,8],             [14,16]]
//	        [9,10,11,12],
//	        [13,14,15,16]]
func (cpu *CPUBackend) MaxPool2D(input *tensor.RawTensor, kernelSize, stride, padding int) *tensor.RawTensor {
	cpu.place("maxpool2d", input)
	n, c, h, w := dims4("maxpool2d", input)
	hOut, wOut := poolOutput("maxpool2d", h, w, kernelSize, stride, padding)
	output := cpu.alloc("maxpool2d", tensor.Shape{n, c, hOut, wOut})

	in, out := input.Data(), output.Data()
	parallel.ForPlanes(n, c, func(b, ch int) {
		p := b*c + ch
		src := in[p*h*w : (p+1)*h*w]
		dst := out[p*hOut*wOut : (p+1)*hOut*wOut]
		for oh := 0; oh < hOut; oh++ {
			for ow := 0; ow < wOut; ow++ {
				_, v := windowMax(src, h, w, oh*stride-padding, ow*stride-padding, kernelSize)
				dst[oh*wOut+ow] = v
			}
		}
	}, cpu.par)
	return output
}

// MaxPool2DBackward routes each output gradient to the input position that
// won the forward max. Ties resolve to the first position in row-major order,
// matching the forward pass.
func (cpu *CPUBackend) MaxPool2DBackward(input, grad *tensor.RawTensor, kernelSize, stride, padding int) *tensor.RawTensor {
	n, c, h, w := dims4("maxpool2d_backward", input)
	hOut, wOut := poolOutput("maxpool2d_backward", h, w, kernelSize, stride, padding)
	dx := cpu.alloc("maxpool2d_backward", input.Shape())

	in, gd, dd := input.Data(), grad.Data(), dx.Data()
	parallel.ForPlanes(n, c, func(b, ch int) {
		p := b*c + ch
		src := in[p*h*w : (p+1)*h*w]
		gs := gd[p*hOut*wOut : (p+1)*hOut*wOut]
		dst := dd[p*h*w : (p+1)*h*w]
		for oh := 0; oh < hOut; oh++ {
			for ow := 0; ow < wOut; ow++ {
				idx, _ := windowMax(src, h, w, oh*stride-padding, ow*stride-padding, kernelSize)
				if idx >= 0 {
					dst[idx] += gs[oh*wOut+ow]
				}
			}
		}
	}, cpu.par)
	return dx
}

// windowMax returns the flat index and value of the maximum inside the
// k×k window anchored at (top, left), skipping padded positions.
func windowMax(plane []float32, h, w, top, left, k int) (int, float32) {
	best, bestIdx := float32(math.Inf(-1)), -1
	for i := max(top, 0); i < min(top+k, h); i++ {
		for j := max(left, 0); j < min(left+k, w); j++ {
			if v := plane[i*w+j]; bestIdx < 0 || v > best {
				best, bestIdx = v, i*w+j
			}
		}
	}
	return bestIdx, best
}

func poolOutput(op string, h, w, kernelSize, stride, padding int) (int, int) {
	if kernelSize <= 0 || stride <= 0 || padding < 0 {
		panic(fmt.Sprintf("%s: invalid kernel size %d / stride %d / padding %d", op, kernelSize, stride, padding))
	}
	if 2*padding > kernelSize {
		panic(fmt.Sprintf("%s: padding %d should be at most half of kernel size %d", op, padding, kernelSize))
	}
	hOut := (h+2*padding-kernelSize)/stride + 1
	wOut := (w+2*padding-kernelSize)/stride + 1
	if hOut <= 0 || wOut <= 0 {
		panic(fmt.Sprintf("%s: kernel size %d too large for input %dx%d", op, kernelSize, h, w))
	}
	return hOut, wOut
}

// AdaptiveAvgPool2D averages each input plane down to outH×outW cells.
//
// Cell (i, j) covers rows [⌊i·H/outH⌋, ⌈(i+1)·H/outH⌉) and the matching
// columns, so every input position contributes to at least one cell.
func (cpu *CPUBackend) AdaptiveAvgPool2D(input *tensor.RawTensor, outH, outW int) *tensor.RawTensor {
	cpu.place("adaptive_avgpool2d", input)
	n, c, h, w := dims4("adaptive_avgpool2d", input)
	if outH <= 0 || outW <= 0 {
		panic(fmt.Sprintf("adaptive_avgpool2d: invalid output size %dx%d", outH, outW))
	}
	output := cpu.alloc("adaptive_avgpool2d", tensor.Shape{n, c, outH, outW})

	in, out := input.Data(), output.Data()
	parallel.ForPlanes(n, c, func(b, ch int) {
		p := b*c + ch
		src := in[p*h*w : (p+1)*h*w]
		dst := out[p*outH*outW : (p+1)*outH*outW]
		for i := 0; i < outH; i++ {
			h0, h1 := adaptiveRange(i, h, outH)
			for j := 0; j < outW; j++ {
				w0, w1 := adaptiveRange(j, w, outW)
				var sum float32
				for y := h0; y < h1; y++ {
					for x := w0; x < w1; x++ {
						sum += src[y*w+x]
					}
				}
				dst[i*outW+j] = sum / float32((h1-h0)*(w1-w0))
			}
		}
	}, cpu.par)
	return output
}

// AdaptiveAvgPool2DBackward spreads every cell's gradient evenly over the
// input positions it averaged.
func (cpu *CPUBackend) AdaptiveAvgPool2DBackward(input, grad *tensor.RawTensor) *tensor.RawTensor {
	n, c, h, w := dims4("adaptive_avgpool2d_backward", input)
	gs := grad.Shape()
	outH, outW := gs[2], gs[3]
	dx := cpu.alloc("adaptive_avgpool2d_backward", input.Shape())

	gd, dd := grad.Data(), dx.Data()
	parallel.ForPlanes(n, c, func(b, ch int) {
		p := b*c + ch
		src := gd[p*outH*outW : (p+1)*outH*outW]
		dst := dd[p*h*w : (p+1)*h*w]
		for i := 0; i < outH; i++ {
			h0, h1 := adaptiveRange(i, h, outH)
			for j := 0; j < outW; j++ {
				w0, w1 := adaptiveRange(j, w, outW)
				share := src[i*outW+j] / float32((h1-h0)*(w1-w0))
				for y := h0; y < h1; y++ {
					for x := w0; x < w1; x++ {
						dst[y*w+x] += share
					}
				}
			}
		}
	}, cpu.par)
	return dx
}

func adaptiveRange(i, in, out int) (int, int) {
	return i * in / out, ((i+1)*in + out - 1) / out
}
