package world

// Status classifies how healthy a resource pool is. It is a pure function of
// amount and capacity, recomputed on every mutation.
type Status string

const (
	StatusDepleted   Status = "depleted"
	StatusAtRisk     Status = "at_risk"
	StatusModerate   Status = "moderate"
	StatusSufficient Status = "sufficient"
	StatusAbundant   Status = "abundant"
)

// Capped resources classify by fill ratio; uncapped ones by absolute amount.
func StatusFor(amount float64, capacity *float64) Status {
	if amount <= 0 {
		return StatusDepleted
	}
	if capacity != nil && *capacity > 0 {
		ratio := amount / *capacity
		switch {
		case ratio < 0.05:
			return StatusDepleted
		case ratio < 0.20:
			return StatusAtRisk
		case ratio < 0.50:
			return StatusModerate
		case ratio < 0.80:
			return StatusSufficient
		default:
			return StatusAbundant
		}
	}
	switch {
	case amount < 100:
		return StatusAtRisk
	case amount < 500:
		return StatusModerate
	case amount < 2000:
		return StatusSufficient
	default:
		return StatusAbundant
	}
}
