package nn

import (
	"fmt"

	"github.com/born-ml/resnet/internal/tensor"
)

// CrossEntropyLoss returns the mean softmax cross-entropy of logits
// [N, num_classes] against class indices, as a [1] tensor.
//
// Uses the log-sum-exp trick for numerical stability:
//
//	loss_i = log(sum_j exp(logits_ij)) - logits_i,target_i
//
// Example:
//
//	logits := model.Forward(images) // [N, 36]
//	loss := nn.CrossEntropyLoss(logits, labels)
func CrossEntropyLoss[B tensor.Backend](logits *tensor.Tensor[B], targets []int32) *tensor.Tensor[B] {
	shape := logits.Shape()
	if len(shape) != 2 {
		panic(fmt.Sprintf("cross_entropy: expected 2D logits [batch, classes], got shape %v", shape))
	}
	if len(targets) != shape[0] {
		panic(fmt.Sprintf("cross_entropy: %d targets for batch of %d", len(targets), shape[0]))
	}
	backend := logits.Backend()
	return tensor.New(backend.CrossEntropy(logits.Raw(), targets), backend)
}
