package optim

// updateRule returns the change to add to weight j of one parameter, given
// its effective gradient gij. k is the 1-based count of updates so far.
type updateRule func(cfg *Config, k int, s *slot, j int, gij float64) float64

// rules maps every Method to its update.
var rules = map[Method]updateRule{
	SGD:        sgdUpdate,
	Adagrad:    adagradUpdate,
	Adadelta:   adadeltaUpdate,
	Adam:       adamUpdate,
	Nesterov:   nesterovUpdate,
	Windowgrad: windowgradUpdate,
}

// sgdUpdate is stochastic gradient descent with optional momentum.
//
// Without momentum:
//
//	dx = -lr * gij
//
// With momentum, gsum is the velocity:
//
//	dx = momentum*gsum - lr*gij
//	gsum = dx
func sgdUpdate(cfg *Config, _ int, s *slot, j int, gij float64) float64 {
	if cfg.Momentum <= 0 {
		return -cfg.LearningRate * gij
	}
	dx := cfg.Momentum*s.gsum[j] - cfg.LearningRate*gij
	s.gsum[j] = dx
	return dx
}

// nesterovUpdate is Nesterov accelerated momentum:
//
//	prev = gsum
//	gsum = gsum*momentum + lr*gij
//	dx   = momentum*prev - (1+momentum)*gsum
func nesterovUpdate(cfg *Config, _ int, s *slot, j int, gij float64) float64 {
	prev := s.gsum[j]
	s.gsum[j] = s.gsum[j]*cfg.Momentum + cfg.LearningRate*gij
	return cfg.Momentum*prev - (1+cfg.Momentum)*s.gsum[j]
}
