package cpu

import (
	"fmt"
	"math"

	"github.com/born-ml/resnet/internal/tensor"
)

// CrossEntropy computes mean(-log softmax(logits)[target]) over the batch.
//
// logits: [batch, classes]; targets: class indices. The log-sum-exp is taken
// around the row maximum so large logits do not overflow.
func (cpu *CPUBackend) CrossEntropy(logits *tensor.RawTensor, targets []int32) *tensor.RawTensor {
	cpu.place("cross_entropy", logits)
	batch, classes := logitDims("cross_entropy", logits, targets)
	data := logits.Data()

	var total float64
	for b := 0; b < batch; b++ {
		row := data[b*classes : (b+1)*classes]
		total += logSumExp(row) - float64(row[targets[b]])
	}

	loss := cpu.alloc("cross_entropy", tensor.Shape{1})
	loss.Data()[0] = float32(total / float64(batch))
	return loss
}

// CrossEntropyBackward returns (softmax(logits) − onehot(targets)) · grad / batch.
func (cpu *CPUBackend) CrossEntropyBackward(logits *tensor.RawTensor, targets []int32, grad *tensor.RawTensor) *tensor.RawTensor {
	batch, classes := logitDims("cross_entropy_backward", logits, targets)
	scale := grad.Data()[0] / float32(batch)
	dx := cpu.alloc("cross_entropy_backward", logits.Shape())

	data, out := logits.Data(), dx.Data()
	for b := 0; b < batch; b++ {
		row := data[b*classes : (b+1)*classes]
		lse := logSumExp(row)
		for j, v := range row {
			p := float32(math.Exp(float64(v) - lse))
			if int32(j) == targets[b] {
				p--
			}
			out[b*classes+j] = p * scale
		}
	}
	return dx
}

func logSumExp(row []float32) float64 {
	m := row[0]
	for _, v := range row[1:] {
		m = max(m, v)
	}
	var sum float64
	for _, v := range row {
		sum += math.Exp(float64(v - m))
	}
	return float64(m) + math.Log(sum)
}

func logitDims(op string, logits *tensor.RawTensor, targets []int32) (int, int) {
	s := logits.Shape()
	if len(s) != 2 {
		panic(fmt.Sprintf("%s: logits must be 2D [batch_size, num_classes], got %v", op, s))
	}
	if len(targets) != s[0] {
		panic(fmt.Sprintf("%s: got %d targets for batch of %d", op, len(targets), s[0]))
	}
	for i, t := range targets {
		if t < 0 || int(t) >= s[1] {
			panic(fmt.Sprintf("%s: target %d at index %d out of range [0, %d)", op, t, i, s[1]))
		}
	}
	return s[0], s[1]
}
