package nn

import (
	"fmt"
	"strings"

	"github.com/born-ml/resnet/internal/tensor"
)

// Sequential is a container module that chains modules together.
//
// Each module's output becomes the next module's input:
//
//	block := nn.NewSequential[B](
//	    nn.NewConv2D(64, 64, 3, 1, 1, false, backend),
//	    nn.NewBatchNorm2D(64, backend),
//	)
type Sequential[B tensor.Backend] struct {
	modules []Module[B]
}

// NewSequential creates a new Sequential container.
func NewSequential[B tensor.Backend](modules ...Module[B]) *Sequential[B] {
	return &Sequential[B]{modules: modules}
}

// Forward applies all modules in sequence.
func (s *Sequential[B]) Forward(input *tensor.Tensor[B]) *tensor.Tensor[B] {
	output := input
	for _, module := range s.modules {
		output = module.Forward(output)
	}
	return output
}

// Parameters returns the parameters of every module, in order.
func (s *Sequential[B]) Parameters() []*Parameter[B] {
	var params []*Parameter[B]
	for _, module := range s.modules {
		params = append(params, module.Parameters()...)
	}
	return params
}

// Add appends a module to the sequence.
func (s *Sequential[B]) Add(module Module[B]) {
	s.modules = append(s.modules, module)
}

// Len returns the number of modules in the sequence.
func (s *Sequential[B]) Len() int {
	return len(s.modules)
}

// Module returns the module at the given index.
//
// Panics if index is out of bounds.
func (s *Sequential[B]) Module(index int) Module[B] {
	if index < 0 || index >= len(s.modules) {
		panic(fmt.Sprintf("sequential: index %d out of bounds [0, %d)", index, len(s.modules)))
	}
	return s.modules[index]
}

// SetTraining propagates the mode to every Trainable child.
func (s *Sequential[B]) SetTraining(training bool) {
	for _, module := range s.modules {
		SetTraining(module, training)
	}
}

// Training reports the mode of the first Trainable child, or false when
// there is none.
func (s *Sequential[B]) Training() bool {
	for _, module := range s.modules {
		if t, ok := module.(Trainable); ok {
			return t.Training()
		}
	}
	return false
}

// StateDict returns the state of every Stateful child, keyed by index
// ("0.weight", "1.running_mean", ...).
func (s *Sequential[B]) StateDict() map[string]*tensor.RawTensor {
	sd := make(map[string]*tensor.RawTensor)
	for i, module := range s.modules {
		if st, ok := module.(Stateful); ok {
			MergeState(sd, st.StateDict(), fmt.Sprintf("%d.", i))
		}
	}
	return sd
}

// LoadStateDict loads the state of every Stateful child from stateDict.
func (s *Sequential[B]) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	for i, module := range s.modules {
		st, ok := module.(Stateful)
		if !ok {
			continue
		}
		prefix := fmt.Sprintf("%d.", i)
		if err := st.LoadStateDict(SubState(stateDict, prefix)); err != nil {
			return fmt.Errorf("%s%w", prefix, err)
		}
	}
	return nil
}

// String renders the container PyTorch-style, one child per line.
func (s *Sequential[B]) String() string {
	var sb strings.Builder
	sb.WriteString("Sequential(\n")
	for i, module := range s.modules {
		fmt.Fprintf(&sb, "  (%d): %s\n", i, Indent(fmt.Sprint(module), 2))
	}
	sb.WriteString(")")
	return sb.String()
}

// Indent prefixes every line after the first with n spaces, for nesting
// module descriptions.
func Indent(s string, n int) string {
	return strings.ReplaceAll(s, "\n", "\n"+strings.Repeat(" ", n))
}
