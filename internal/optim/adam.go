package optim

import "math"

// adamUpdate implements Adam (Kingma & Ba, 2014) with gsum as the first
// moment and xsum as the second:
//
//	m_t   = beta1*m + (1-beta1)*gij
//	v_t   = beta2*v + (1-beta2)*gij^2
//	m_hat = m_t / (1 - beta1^k)
//	v_hat = v_t / (1 - beta2^k)
//	dx    = -lr * m_hat / (sqrt(v_hat) + eps)
//
// k counts completed updates, not examples.
func adamUpdate(cfg *Config, k int, s *slot, j int, gij float64) float64 {
	s.gsum[j] = cfg.Beta1*s.gsum[j] + (1-cfg.Beta1)*gij
	s.xsum[j] = cfg.Beta2*s.xsum[j] + (1-cfg.Beta2)*gij*gij

	mHat := s.gsum[j] / (1 - math.Pow(cfg.Beta1, float64(k)))
	vHat := s.xsum[j] / (1 - math.Pow(cfg.Beta2, float64(k)))
	return -cfg.LearningRate * mHat / (math.Sqrt(vHat) + cfg.Eps)
}
