package constants

const (
	AuthorizationHeaderName = "Authorization"
	ContentTypeHeaderName   = "Content-Type"
	CorrelationIDHeaderName = "X-Correlation-ID"
	ContentTypeJSON         = "application/json"
	ContentTypeCSV          = "text/csv"
	TokenTypeBearer         = "Bearer"

	APIBasePath = "/api/v1"

	// UnknownTimestamp is rendered for records whose creation time could not
	// be recovered from audit history. Never the empty string.
	UnknownTimestamp = "unknown"
)
