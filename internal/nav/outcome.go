package nav

// Cause codes for expected navigation failures. These are ordinary outcome
// values; only world-query or actuator faults surface as Go errors.
const (
	CauseTimeout     = "E_NAV_TIMEOUT"
	CauseStuck       = "E_NAV_STUCK"
	CauseInterrupted = "E_INTERRUPTED"
	CauseHazard      = "E_HAZARD"
	CauseNoMaterial  = "E_NO_MATERIAL"
	CauseProtected   = "E_PROTECTED"
)

// Outcome is what every top-level operation returns. Hazards and stuck
// states are normal, reportable results, never panics or errors.
type Outcome struct {
	Reached  bool
	Distance float64
	Cause    string
	// Profile names the movement profile that produced the result when the
	// navigator had to choose one.
	Profile string
}

func success(distance float64) Outcome {
	return Outcome{Reached: true, Distance: distance}
}

func failed(cause string, distance float64) Outcome {
	return Outcome{Cause: cause, Distance: distance}
}
