package dto

type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
	// MaxAllowed carries the largest acceptable payment when an amount is
	// rejected for exceeding the pending balance.
	MaxAllowed string `json:"maxAllowed,omitempty"`
}

type TokenRequest struct {
	Username string `json:"username"`
}
