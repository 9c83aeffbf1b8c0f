package types

// SuccessEnvelope wraps every successful storefront response.
type SuccessEnvelope struct {
	Data any `json:"data"`
}

// APIError is the client-facing part of a failure. RequestID lets support
// match a storefront error report to the server logs.
type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Details   any    `json:"details,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}
