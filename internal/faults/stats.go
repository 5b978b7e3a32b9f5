package faults

// historyCap bounds the rolling outcome history per kind.
const historyCap = 100

// rateStep is the smoothing increment applied per observed outcome.
const rateStep = 0.1

type kindStats struct {
	history []bool
	rate    float64
}

// RecordOutcome feeds an observed recovery outcome for a kind into the
// rolling statistics. The smoothed success rate moves by ±0.1 per outcome
// and stays within [0, 1]; history is capped at 100 entries per kind.
func (c *Classifier) RecordOutcome(kind Kind, success bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.stats[kind]
	if !ok {
		s = &kindStats{rate: 0.5}
		c.stats[kind] = s
	}

	s.history = append(s.history, success)
	if len(s.history) > historyCap {
		s.history = s.history[len(s.history)-historyCap:]
	}

	if success {
		s.rate = min(s.rate+rateStep, 1)
	} else {
		s.rate = max(s.rate-rateStep, 0)
	}

	c.logger.Debug(
		"recovery outcome recorded",
		"kind", kind,
		"success", success,
		"rate", s.rate,
		"observations", len(s.history),
	)
}

// SuccessRate returns the smoothed 0..1 recovery success rate for a kind.
// Kinds with no observations report the neutral 0.5.
func (c *Classifier) SuccessRate(kind Kind) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	if s, ok := c.stats[kind]; ok {
		return s.rate
	}
	return 0.5
}

// Reset clears all rolling statistics. Called at shutdown so a restarted
// process starts from neutral rates.
func (c *Classifier) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats = make(map[Kind]*kindStats)
}
