package apierror

// ErrorResponse is the wire shape of every error the gateway emits.
type ErrorResponse struct {
	Code        string `json:"error"`
	Description string `json:"error_description"`
}
