package enums

import "fmt"

// SubmissionState tracks one order submission attempt.
type SubmissionState string

const (
	SubmissionStateIdle        SubmissionState = "idle"
	SubmissionStateValidating  SubmissionState = "validating"
	SubmissionStateSubmitting  SubmissionState = "submitting"
	SubmissionStateAccepted    SubmissionState = "accepted"
	SubmissionStateCartCleared SubmissionState = "cart_cleared"
	SubmissionStateRejected    SubmissionState = "rejected"
	SubmissionStateFailed      SubmissionState = "failed"
)

var validSubmissionStates = []SubmissionState{
	SubmissionStateIdle,
	SubmissionStateValidating,
	SubmissionStateSubmitting,
	SubmissionStateAccepted,
	SubmissionStateCartCleared,
	SubmissionStateRejected,
	SubmissionStateFailed,
}

var submissionTransitions = map[SubmissionState][]SubmissionState{
	SubmissionStateIdle:        {SubmissionStateValidating},
	SubmissionStateValidating:  {SubmissionStateRejected, SubmissionStateSubmitting, SubmissionStateFailed},
	SubmissionStateSubmitting:  {SubmissionStateAccepted, SubmissionStateRejected, SubmissionStateFailed},
	SubmissionStateAccepted:    {SubmissionStateCartCleared, SubmissionStateIdle},
	SubmissionStateCartCleared: {SubmissionStateIdle},
	SubmissionStateRejected:    {SubmissionStateIdle},
	SubmissionStateFailed:      {SubmissionStateIdle},
}

func (s SubmissionState) String() string {
	return string(s)
}

// IsValid reports whether the value is a known submission state.
func (s SubmissionState) IsValid() bool {
	for _, candidate := range validSubmissionStates {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the attempt has finished.
func (s SubmissionState) IsTerminal() bool {
	switch s {
	case SubmissionStateCartCleared, SubmissionStateRejected, SubmissionStateFailed:
		return true
	}
	return false
}

// CanTransition reports whether next may follow s.
func (s SubmissionState) CanTransition(next SubmissionState) bool {
	for _, candidate := range submissionTransitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// ParseSubmissionState converts the raw string to SubmissionState.
func ParseSubmissionState(value string) (SubmissionState, error) {
	for _, candidate := range validSubmissionStates {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid submission state %q", value)
}
