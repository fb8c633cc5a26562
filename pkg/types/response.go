package types

type SuccessEnvelope struct {
	Data any `json:"data"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
	// PaymentError lets clients distinguish a declined payment from a
	// generic validation or server failure and re-prompt payment details.
	PaymentError bool `json:"paymentError,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}
