package cpu

import (
	"github.com/born-ml/resnet/internal/tensor"
)

// Conv2DInputBackward computes ∂L/∂input [N, C_in, H, W] for Conv2D.
//
// Per sample: d_cols = kernelᵀ @ grad_sample, then col2im folds the columns
// back onto the input grid.
func (cpu *CPUBackend) Conv2DInputBackward(input, kernel, grad *tensor.RawTensor, stride, padding int) *tensor.RawTensor {
	g := newConvGeom("conv2d_input_backward", input, kernel, stride, padding)
	dx := cpu.alloc("conv2d_input_backward", input.Shape())

	k, gd, dd := kernel.Data(), grad.Data(), dx.Data()
	inSize, outSize := g.cIn*g.h*g.w, g.cOut*g.plane()

	var dcols []float32
	if !g.direct() {
		dcols = make([]float32, g.patch()*g.plane())
	}
	for n := 0; n < g.n; n++ {
		gs := gd[n*outSize : (n+1)*outSize]
		if g.direct() {
			gemm(true, false, g.patch(), g.plane(), g.cOut, k, gs, 0, dd[n*inSize:(n+1)*inSize])
			continue
		}
		gemm(true, false, g.patch(), g.plane(), g.cOut, k, gs, 0, dcols)
		col2im(dd[n*inSize:(n+1)*inSize], dcols, g, cpu.par)
	}
	return dx
}

// Conv2DKernelBackward computes ∂L/∂kernel [C_out, C_in, K_h, K_w] for Conv2D.
//
// Accumulates grad_sample @ colsᵀ over the batch.
func (cpu *CPUBackend) Conv2DKernelBackward(input, kernel, grad *tensor.RawTensor, stride, padding int) *tensor.RawTensor {
	g := newConvGeom("conv2d_kernel_backward", input, kernel, stride, padding)
	dk := cpu.alloc("conv2d_kernel_backward", kernel.Shape())

	in, gd, dkd := input.Data(), grad.Data(), dk.Data()
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
		gemm(false, true, g.cOut, g.patch(), g.plane(), gd[n*outSize:(n+1)*outSize], src, 1, dkd)
	}
	return dk
}
