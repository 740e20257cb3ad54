package plugin

// ValidationState classifies the outcome of a configuration probe.
type ValidationState string

const (
	StateValid       ValidationState = "valid"
	StateInvalid     ValidationState = "invalid"
	StateProbeFailed ValidationState = "probe_failed"
)

// Validation is the result of a configuration probe. A probe that could not
// run (network fault, internal error) is distinct from a configuration that
// is genuinely invalid, so hosts can tell "misconfigured" from "unreachable".
type Validation struct {
	State  ValidationState
	Reason string
	Err    error
}

// Valid reports whether the configuration passed the probe.
func (v Validation) Valid() bool { return v.State == StateValid }

// Valid builds a passing validation result.
func Valid() Validation {
	return Validation{State: StateValid}
}

// Invalid builds a failing validation result with a reason.
func Invalid(reason string) Validation {
	return Validation{State: StateInvalid, Reason: reason}
}

// ProbeFailed builds a result for a probe that could not complete.
func ProbeFailed(err error) Validation {
	v := Validation{State: StateProbeFailed, Err: err}
	if err != nil {
		v.Reason = err.Error()
	}
	return v
}
