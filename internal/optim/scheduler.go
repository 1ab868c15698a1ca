package optim

// Scheduler adjusts an optimizer's learning rate once per epoch.
type Scheduler interface {
	// Step advances the schedule by one epoch.
	Step()
	// LR returns the learning rate the schedule currently prescribes.
	LR() float32
}

// ExponentialLR multiplies the learning rate by gamma every epoch.
type ExponentialLR struct {
	opt   Optimizer
	base  float32
	gamma float64
	epoch int
}

// NewExponentialLR creates an exponential schedule starting at the
// optimizer's current learning rate.
func NewExponentialLR(opt Optimizer, gamma float64) *ExponentialLR {
	return &ExponentialLR{opt: opt, base: opt.GetLR(), gamma: gamma}
}

// Step advances the schedule and updates the optimizer.
func (s *ExponentialLR) Step() {
	s.epoch++
	s.opt.SetLR(s.LR())
}

// LR returns base * gamma^epoch.
func (s *ExponentialLR) LR() float32 {
	return float32(float64(s.base) * pow(s.gamma, s.epoch))
}

// StepLR multiplies the learning rate by gamma every stepSize epochs.
type StepLR struct {
	opt      Optimizer
	base     float32
	stepSize int
	gamma    float64
	epoch    int
}

// NewStepLR creates a step schedule starting at the optimizer's current
// learning rate. stepSize must be positive.
func NewStepLR(opt Optimizer, stepSize int, gamma float64) *StepLR {
	if stepSize <= 0 {
		panic("steplr: step size must be positive")
	}
	return &StepLR{opt: opt, base: opt.GetLR(), stepSize: stepSize, gamma: gamma}
}

// Step advances the schedule and updates the optimizer.
func (s *StepLR) Step() {
	s.epoch++
	s.opt.SetLR(s.LR())
}

// LR returns base * gamma^(epoch / stepSize).
func (s *StepLR) LR() float32 {
	return float32(float64(s.base) * pow(s.gamma, s.epoch/s.stepSize))
}

func pow(x float64, n int) float64 {
	r := 1.0
	for ; n > 0; n-- {
		r *= x
	}
	return r
}
