package enums

// SubmissionOutcome labels how a submission attempt ended, for metrics and logs.
type SubmissionOutcome string

const (
	SubmissionOutcomeAccepted      SubmissionOutcome = "accepted"
	SubmissionOutcomeRejected      SubmissionOutcome = "rejected"
	SubmissionOutcomeFailed        SubmissionOutcome = "failed"
	SubmissionOutcomeEmptyCart     SubmissionOutcome = "empty_cart"
	SubmissionOutcomeInvalidForm   SubmissionOutcome = "invalid_form"
	SubmissionOutcomeStockConflict SubmissionOutcome = "stock_conflict"
	SubmissionOutcomeInFlight      SubmissionOutcome = "in_flight"
)

func (s SubmissionOutcome) String() string {
	return string(s)
}
