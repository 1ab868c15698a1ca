package cpu

import (
	"fmt"

	"github.com/born-ml/resnet/internal/parallel"
	"github.com/born-ml/resnet/internal/tensor"
)

// convGeom holds the dimensions of one Conv2D call.
type convGeom struct {
	n, cIn, h, w    int
	cOut, kh, kw    int
	hOut, wOut      int
	stride, padding int
}

// patch is the im2col row count, C_in * K_h * K_w.
func (g convGeom) patch() int { return g.cIn * g.kh * g.kw }

// plane is the number of output positions per channel, H_out * W_out.
func (g convGeom) plane() int { return g.hOut * g.wOut }

// direct reports whether the input sample already is its own im2col matrix
// (1x1 kernel, stride 1, no padding).
func (g convGeom) direct() bool {
	return g.kh == 1 && g.kw == 1 && g.stride == 1 && g.padding == 0
}

func newConvGeom(op string, input, kernel *tensor.RawTensor, stride, padding int) convGeom {
	n, cIn, h, w := dims4(op, input)
	ks := kernel.Shape()
	if len(ks) != 4 {
		panic(fmt.Sprintf("%s: kernel must be 4D [C_out,C_in,K_h,K_w], got %dD", op, len(ks)))
	}
	if ks[1] != cIn {
		panic(fmt.Sprintf("%s: input channels %d != kernel channels %d", op, cIn, ks[1]))
	}
	if stride <= 0 || padding < 0 {
		panic(fmt.Sprintf("%s: invalid stride %d / padding %d", op, stride, padding))
	}
	g := convGeom{
		n: n, cIn: cIn, h: h, w: w,
		cOut: ks[0], kh: ks[2], kw: ks[3],
		stride: stride, padding: padding,
	}
	g.hOut = (h+2*padding-g.kh)/stride + 1
	g.wOut = (w+2*padding-g.kw)/stride + 1
	if g.hOut <= 0 || g.wOut <= 0 {
		panic(fmt.Sprintf("%s: invalid output dimensions: out_h=%d, out_w=%d (check stride/padding)", op, g.hOut, g.wOut))
	}
	return g
}

// Conv2D performs 2D convolution with the im2col algorithm.
//
// Input shape:  [N, C_in, H, W]
// Kernel shape: [C_out, C_in, K_h, K_w]
// Output shape: [N, C_out, H_out, W_out]
//
// Each sample is unfolded into a [C_in*K_h*K_w, H_out*W_out] column matrix and
// multiplied by the kernel viewed as [C_out, C_in*K_h*K_w]; the product is
// already laid out as that sample's [C_out, H_out, W_out] output.
func (cpu *CPUBackend) Conv2D(input, kernel *tensor.RawTensor, stride, padding int) *tensor.RawTensor {
	cpu.place("conv2d", input, kernel)
	g := newConvGeom("conv2d", input, kernel, stride, padding)
	output := cpu.alloc("conv2d", tensor.Shape{g.n, g.cOut, g.hOut, g.wOut})

	in, k, out := input.Data(), kernel.Data(), output.Data()
	inSize, outSize := g.cIn*g.h*g.w, g.cOut*g.plane()

	var cols []float32
	if !g.direct() {
		cols = make([]float32, g.patch()*g.plane())
	}
	for n := 0; n < g.n; n++ {
		sample := in[n*inSize : (n+1)*inSize]
		src := sample
		if !g.direct() {
			im2col(cols, sample, g, cpu.par)
			src = cols
		}
		gemm(false, false, g.cOut, g.plane(), g.patch(), k, src, 0, out[n*outSize:(n+1)*outSize])
	}
	return output
}

// im2col unfolds one [C, H, W] sample into cols [C*K_h*K_w, H_out*W_out].
// Positions that fall into the zero padding are written as 0.
func im2col(cols, sample []float32, g convGeom, par parallel.Config) {
	plane := g.plane()
	parallel.For(g.cIn, func(c int) {
		src := sample[c*g.h*g.w : (c+1)*g.h*g.w]
		for kh := 0; kh < g.kh; kh++ {
			for kw := 0; kw < g.kw; kw++ {
				row := cols[((c*g.kh+kh)*g.kw+kw)*plane:][:plane]
				for oh := 0; oh < g.hOut; oh++ {
					ih := oh*g.stride - g.padding + kh
					dst := row[oh*g.wOut : (oh+1)*g.wOut]
					if ih < 0 || ih >= g.h {
						clear(dst)
						continue
					}
					for ow := range dst {
						iw := ow*g.stride - g.padding + kw
						if iw < 0 || iw >= g.w {
							dst[ow] = 0
						} else {
							dst[ow] = src[ih*g.w+iw]
						}
					}
				}
			}
		}
	}, par)
}

// col2im folds cols back onto a [C, H, W] sample, accumulating overlaps.
func col2im(sample, cols []float32, g convGeom, par parallel.Config) {
	plane := g.plane()
	parallel.For(g.cIn, func(c int) {
		dst := sample[c*g.h*g.w : (c+1)*g.h*g.w]
		for kh := 0; kh < g.kh; kh++ {
			for kw := 0; kw < g.kw; kw++ {
				row := cols[((c*g.kh+kh)*g.kw+kw)*plane:][:plane]
				for oh := 0; oh < g.hOut; oh++ {
					ih := oh*g.stride - g.padding + kh
					if ih < 0 || ih >= g.h {
						continue
					}
					for ow := 0; ow < g.wOut; ow++ {
						iw := ow*g.stride - g.padding + kw
						if iw >= 0 && iw < g.w {
							dst[ih*g.w+iw] += row[oh*g.wOut+ow]
						}
					}
				}
			}
		}
	}, par)
}
