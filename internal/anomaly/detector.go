package anomaly

import (
	"fmt"
)

// Kind classifies a suspicious submission
type Kind string

const (
	KindNegative Kind = "NEGATIVE"
	KindSpike    Kind = "SPIKE"
	KindStalled  Kind = "STALLED"
)

// Finding explains why a submission was flagged
type Finding struct {
	Kind   Kind
	Reason string
}

// Detector flags implausible consumption against a connection's verified history
type Detector struct {
	spikeThreshold float64
	minHistory     int
}

// NewDetector creates a detector. Spike and stall checks need at least
// minHistory verified consumptions.
func NewDetector(spikeThreshold float64, minHistory int) *Detector {
	return &Detector{spikeThreshold: spikeThreshold, minHistory: minHistory}
}

// Check returns nil when consumption looks plausible
func (d *Detector) Check(consumption float64, history []float64) *Finding {
	if consumption < 0 {
		return &Finding{
			Kind:   KindNegative,
			Reason: fmt.Sprintf("negative consumption %.2f: reading is below the last verified reading", consumption),
		}
	}

	if len(history) == 0 || len(history) < d.minHistory {
		return nil
	}
	average := mean(history)
	if average <= 0 {
		return nil
	}

	switch {
	case consumption > d.spikeThreshold*average:
		reason := fmt.Sprintf("consumption spike: %.2f exceeds %.1fx average verified consumption %.2f",
			consumption, d.spikeThreshold, average)
		return &Finding{Kind: KindSpike, Reason: reason}
	case consumption == 0:
		return &Finding{
			Kind:   KindStalled,
			Reason: fmt.Sprintf("zero consumption against average verified consumption %.2f: meter may be stalled", average),
		}
	}
	return nil
}

func mean(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
