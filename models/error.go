package models

// ErrorMessageResponse returns the error message response struct
type ErrorMessageResponse struct {
	Response MessageError
}

// MessageError contains the inner details for the error message response
type MessageError struct {
	Message string
	Error   string
}

// RedirectResponse tells the client where to continue after a failed or finished action
type RedirectResponse struct {
	Message  string            `json:"message"`
	Redirect string            `json:"redirect"`
	State    map[string]string `json:"state,omitempty"`
}

// HealthCheckResponse is returned by the health endpoint
type HealthCheckResponse struct {
	Alive bool `json:"alive"`
}
