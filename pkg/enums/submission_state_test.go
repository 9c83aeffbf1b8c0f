package enums

import "testing"

func TestSubmissionStateTransitions(t *testing.T) {
	cases := []struct {
		from, to SubmissionState
		allowed  bool
	}{
		{SubmissionStateIdle, SubmissionStateValidating, true},
		{SubmissionStateIdle, SubmissionStateSubmitting, false},
		{SubmissionStateValidating, SubmissionStateRejected, true},
		{SubmissionStateValidating, SubmissionStateAccepted, false},
		{SubmissionStateSubmitting, SubmissionStateAccepted, true},
		{SubmissionStateSubmitting, SubmissionStateFailed, true},
		{SubmissionStateAccepted, SubmissionStateCartCleared, true},
		{SubmissionStateCartCleared, SubmissionStateIdle, true},
		{SubmissionStateRejected, SubmissionStateSubmitting, false},
	}
	for _, tc := range cases {
		if got := tc.from.CanTransition(tc.to); got != tc.allowed {
			t.Fatalf("%s -> %s: expected %v, got %v", tc.from, tc.to, tc.allowed, got)
		}
	}
}

func TestSubmissionStateTerminal(t *testing.T) {
	for _, state := range validSubmissionStates {
		terminal := state == SubmissionStateCartCleared || state == SubmissionStateRejected || state == SubmissionStateFailed
		if state.IsTerminal() != terminal {
			t.Fatalf("unexpected terminal flag for %s", state)
		}
	}
}

func TestParseSubmissionState(t *testing.T) {
	got, err := ParseSubmissionState("submitting")
	if err != nil || got != SubmissionStateSubmitting {
		t.Fatalf("expected submitting, got %q err=%v", got, err)
	}
	if _, err := ParseSubmissionState("shipped"); err == nil {
		t.Fatal("expected error for unknown state")
	}
}

func TestParseCartMutation(t *testing.T) {
	for _, raw := range []string{"add", "remove", "clear"} {
		if _, err := ParseCartMutation(raw); err != nil {
			t.Fatalf("unexpected error for %q: %v", raw, err)
		}
	}
	if _, err := ParseCartMutation("merge"); err == nil {
		t.Fatal("expected error for unknown mutation")
	}
}
