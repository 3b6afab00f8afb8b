package serviceerror

type ServiceErrorType string

const (
	ClientErrorType ServiceErrorType = "client_error"
	ServerErrorType ServiceErrorType = "server_error"
)

type ServiceError struct {
	Code             string           `json:"code"`
	Type             ServiceErrorType `json:"type"`
	Error            string           `json:"error"`
	ErrorDescription string           `json:"error_description,omitempty"`
}

var (
	InternalServerError = ServiceError{
		Type:             ServerErrorType,
		Code:             "SSE-5000",
		Error:            "internal_server_error",
		ErrorDescription: "An unexpected error occurred",
	}

	UpstreamError = ServiceError{
		Type:             ServerErrorType,
		Code:             "SSE-5002",
		Error:            "upstream_unavailable",
		ErrorDescription: "The consent backend could not be reached",
	}

	InvalidRequestError = ServiceError{
		Type:             ClientErrorType,
		Code:             "CSE-4000",
		Error:            "invalid_request",
		ErrorDescription: "The request is invalid",
	}

	ResourceNotFoundError = ServiceError{
		Type:             ClientErrorType,
		Code:             "CSE-4004",
		Error:            "resource_not_found",
		ErrorDescription: "Resource not found",
	}

	UnauthorizedError = ServiceError{
		Type:             ClientErrorType,
		Code:             "CSE-4010",
		Error:            "unauthorized",
		ErrorDescription: "Authentication failed",
	}

	SupersededError = ServiceError{
		Type:             ClientErrorType,
		Code:             "CSE-4090",
		Error:            "request_superseded",
		ErrorDescription: "A newer request made this one stale",
	}

	ValidationError = ServiceError{
		Type:             ClientErrorType,
		Code:             "CSE-4001",
		Error:            "validation_error",
		ErrorDescription: "Validation failed",
	}
)

func CustomServiceError(baseError ServiceError, description string) *ServiceError {
	return &ServiceError{
		Type:             baseError.Type,
		Code:             baseError.Code,
		Error:            baseError.Error,
		ErrorDescription: description,
	}
}
