package router

import (
	"time"

	"github.com/sirupsen/logrus"
)

// ewmaAlpha is the smoothing factor for latency and error-rate averages.
const ewmaAlpha = 0.2

// initialLatency seeds the latency average for providers with no history so
// fresh providers neither dominate nor vanish under latency-weighted
// strategies.
const initialLatency = 2 * time.Second

// profile tracks the live health of one provider. All access goes through
// the router's mutex.
type profile struct {
	id          string
	premium     bool
	costPer1K   float64
	maxInFlight int

	avgLatency time.Duration
	errorRate  float64
	inFlight   int
	available  bool

	consecutiveFailures int
	openedAt            time.Time // circuit open time, zero when closed
	probing             bool      // a half-open probe is in flight
}

// Snapshot is a read-only copy of a provider profile for status reporting.
type Snapshot struct {
	ID          string        `json:"id"`
	Premium     bool          `json:"premium"`
	CostPer1K   float64       `json:"cost_per_1k_tokens"`
	AvgLatency  time.Duration `json:"avg_latency_ns"`
	ErrorRate   float64       `json:"error_rate"`
	InFlight    int           `json:"in_flight"`
	MaxInFlight int           `json:"max_in_flight"`
	Available   bool          `json:"available"`
}

// eligible reports whether the provider may appear in a routing plan:
// available, or circuit-open with an elapsed cooldown and no probe running.
func (p *profile) eligible(now time.Time, cooldown time.Duration) bool {
	if p.inFlight >= p.maxInFlight {
		return false
	}
	if p.available {
		return true
	}
	return !p.probing && now.Sub(p.openedAt) >= cooldown
}

// recordSuccess folds a successful attempt into the profile and closes the
// circuit if it was open.
func (p *profile) recordSuccess(latency time.Duration) {
	if p.avgLatency == 0 {
		p.avgLatency = latency
	} else {
		p.avgLatency = time.Duration(float64(p.avgLatency)*(1-ewmaAlpha) + float64(latency)*ewmaAlpha)
	}
	p.errorRate *= 1 - ewmaAlpha
	p.consecutiveFailures = 0
	p.probing = false
	if !p.available {
		logrus.Infof("provider %s recovered, closing circuit", p.id)
		p.available = true
		p.openedAt = time.Time{}
	}
}

// recordFailure folds a failed attempt into the profile and opens the circuit
// after too many consecutive failures.
func (p *profile) recordFailure(now time.Time, failureThreshold int) {
	p.errorRate = p.errorRate*(1-ewmaAlpha) + ewmaAlpha
	p.consecutiveFailures++
	p.probing = false
	if p.available && p.consecutiveFailures >= failureThreshold {
		logrus.Warnf("provider %s failed %d times in a row, opening circuit", p.id, p.consecutiveFailures)
		p.available = false
		p.openedAt = now
	} else if !p.available {
		// Failed probe: restart the cooldown window.
		p.openedAt = now
	}
}

func (p *profile) latencyOrDefault() time.Duration {
	if p.avgLatency == 0 {
		return initialLatency
	}
	return p.avgLatency
}
