package cpu

import (
	"fmt"

	"github.com/born-ml/resnet/internal/parallel"
	"github.com/born-ml/resnet/internal/tensor"
)

// ChannelMoments returns the per-channel mean and biased variance of an
// [N, C, H, W] input, accumulated in float64.
func (cpu *CPUBackend) ChannelMoments(input *tensor.RawTensor) (mean, variance []float32) {
	cpu.place("channel_moments", input)
	n, c, h, w := dims4("channel_moments", input)
	plane := h * w
	count := float64(n * plane)
	in := input.Data()

	mean = make([]float32, c)
	variance = make([]float32, c)
	parallel.For(c, func(ch int) {
		var sum float64
		for b := 0; b < n; b++ {
			for _, v := range in[(b*c+ch)*plane : (b*c+ch+1)*plane] {
				sum += float64(v)
			}
		}
		mu := sum / count
		var sq float64
		for b := 0; b < n; b++ {
			for _, v := range in[(b*c+ch)*plane : (b*c+ch+1)*plane] {
				d := float64(v) - mu
				sq += d * d
			}
		}
		mean[ch] = float32(mu)
		variance[ch] = float32(sq / count)
	}, cpu.par)
	return mean, variance
}

// BatchNorm2D computes gamma[c]·(x-mean[c])·invStd[c] + beta[c] over an
// [N, C, H, W] input.
func (cpu *CPUBackend) BatchNorm2D(input, gamma, beta *tensor.RawTensor, mean, invStd []float32, _ bool) *tensor.RawTensor {
	cpu.place("batchnorm2d", input, gamma, beta)
	n, c, h, w := dims4("batchnorm2d", input)
	if gamma.NumElements() != c || beta.NumElements() != c || len(mean) != c || len(invStd) != c {
		panic(fmt.Sprintf("batchnorm2d: expected %d channel statistics, got gamma=%d beta=%d mean=%d inv_std=%d",
			c, gamma.NumElements(), beta.NumElements(), len(mean), len(invStd)))
	}
	output := cpu.alloc("batchnorm2d", input.Shape())

	plane := h * w
	in, out, g, bt := input.Data(), output.Data(), gamma.Data(), beta.Data()
	parallel.ForPlanes(n, c, func(b, ch int) {
		off := (b*c + ch) * plane
		scale := g[ch] * invStd[ch]
		shift := bt[ch] - mean[ch]*scale
		src, dst := in[off:off+plane], out[off:off+plane]
		for i, v := range src {
			dst[i] = v*scale + shift
		}
	}, cpu.par)
	return output
}

// BatchNorm2DBackward returns the gradients of BatchNorm2D with respect to
// input, gamma and beta.
//
// With batchStats the statistics depend on the input and
//
//	dx = gamma·invStd/M · (M·dy − Σdy − x̂·Σ(dy·x̂))
//
// otherwise the layer is a fixed affine map and dx = gamma·invStd·dy.
func (cpu *CPUBackend) BatchNorm2DBackward(
	input, gamma, grad *tensor.RawTensor,
	mean, invStd []float32,
	batchStats bool,
) (dx, dgamma, dbeta *tensor.RawTensor) {
	n, c, h, w := dims4("batchnorm2d_backward", input)
	plane := h * w
	m := float32(n * plane)

	dx = cpu.alloc("batchnorm2d_backward", input.Shape())
	dgamma = cpu.alloc("batchnorm2d_backward", tensor.Shape{c})
	dbeta = cpu.alloc("batchnorm2d_backward", tensor.Shape{c})

	in, gd, g := input.Data(), grad.Data(), gamma.Data()
	dxd, dgd, dbd := dx.Data(), dgamma.Data(), dbeta.Data()

	parallel.For(c, func(ch int) {
		var sumDy, sumDyXhat float32
		for b := 0; b < n; b++ {
			off := (b*c + ch) * plane
			for i := off; i < off+plane; i++ {
				xhat := (in[i] - mean[ch]) * invStd[ch]
				sumDy += gd[i]
				sumDyXhat += gd[i] * xhat
			}
		}
		dbd[ch] = sumDy
		dgd[ch] = sumDyXhat

		scale := g[ch] * invStd[ch]
		for b := 0; b < n; b++ {
			off := (b*c + ch) * plane
			for i := off; i < off+plane; i++ {
				if !batchStats {
					dxd[i] = scale * gd[i]
					continue
				}
				xhat := (in[i] - mean[ch]) * invStd[ch]
				dxd[i] = scale / m * (m*gd[i] - sumDy - xhat*sumDyXhat)
			}
		}
	}, cpu.par)
	return dx, dgamma, dbeta
}
