package drone

// dropPolicy simulates link unreliability: a mutable drop probability and a
// uniform [0, 1) source. One independent sample is drawn per eligible
// fragment; draws are never reused across packets.
type dropPolicy struct {
	rate float64
	rand func() float64
}

func (dp *dropPolicy) set(rate float64) error {
	if rate < 0 || rate > 1 {
		return ErrInvalidDropRate
	}
	dp.rate = rate
	return nil
}

func (dp *dropPolicy) decide() bool {
	return dp.rate > 0 && dp.rand() < dp.rate
}
