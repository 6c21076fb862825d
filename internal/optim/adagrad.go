package optim

import "math"

// adagradUpdate scales the step by the root of the summed squared gradients:
//
//	gsum += gij^2
//	dx = -lr / sqrt(gsum + eps) * gij
func adagradUpdate(cfg *Config, _ int, s *slot, j int, gij float64) float64 {
	s.gsum[j] += gij * gij
	return -cfg.LearningRate / math.Sqrt(s.gsum[j]+cfg.Eps) * gij
}

// windowgradUpdate is adagrad over an exponentially decaying window, also
// known as RMSProp:
//
//	gsum = ro*gsum + (1-ro)*gij^2
//	dx = -lr / sqrt(gsum + eps) * gij
func windowgradUpdate(cfg *Config, _ int, s *slot, j int, gij float64) float64 {
	s.gsum[j] = cfg.Ro*s.gsum[j] + (1-cfg.Ro)*gij*gij
	return -cfg.LearningRate / math.Sqrt(s.gsum[j]+cfg.Eps) * gij
}

// adadeltaUpdate needs no learning rate; the step is the ratio of the
// running update and gradient magnitudes:
//
//	gsum = ro*gsum + (1-ro)*gij^2
//	dx = -sqrt((xsum + eps) / (gsum + eps)) * gij
//	xsum = ro*xsum + (1-ro)*dx^2
func adadeltaUpdate(cfg *Config, _ int, s *slot, j int, gij float64) float64 {
	s.gsum[j] = cfg.Ro*s.gsum[j] + (1-cfg.Ro)*gij*gij
	dx := -math.Sqrt((s.xsum[j]+cfg.Eps)/(s.gsum[j]+cfg.Eps)) * gij
	s.xsum[j] = cfg.Ro*s.xsum[j] + (1-cfg.Ro)*dx*dx
	return dx
}
