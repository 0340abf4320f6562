package resource

// AlertRequest is the trigger request body: one or many target addresses,
// a message body and an optional title.
type AlertRequest struct {
	IPs     []string `json:"ips"`
	Message string   `json:"message"`
	Title   string   `json:"title,omitempty"`
}

// AlertResponse reports how many targets were published to the bus.
type AlertResponse struct {
	Status    string `json:"status"`
	Published int    `json:"published"`
}

// AlertErrorResponse reports a failed trigger request.
type AlertErrorResponse struct {
	Status  string   `json:"status"`
	Error   string   `json:"error"`
	Missing []string `json:"missing,omitempty"`
}

// NewAlertResponse creates a success response.
func NewAlertResponse(published int) *AlertResponse {
	return &AlertResponse{
		Status:    "success",
		Published: published,
	}
}

// NewAlertError creates a generic error response.
func NewAlertError(msg string) *AlertErrorResponse {
	return &AlertErrorResponse{
		Status: "error",
		Error:  msg,
	}
}

// NewAlertValidationError creates an error response naming the missing or
// malformed request fields.
func NewAlertValidationError(missing []string) *AlertErrorResponse {
	return &AlertErrorResponse{
		Status:  "error",
		Error:   "validation failed",
		Missing: missing,
	}
}
