package errs

import "fmt"

// Kind categorizes application errors for HTTP status mapping.
type Kind int

const (
	// Unknown represents an unclassified error.
	Unknown Kind = iota
	// InvalidInput indicates the request was malformed (HTTP 400).
	InvalidInput
	// RateLimited indicates the client exhausted its scan quota (HTTP 429).
	RateLimited
	// RootFetchFailed indicates the root page could not be fetched or audited (HTTP 502).
	RootFetchFailed
	// Timeout indicates the root page took too long to respond (HTTP 504).
	Timeout
	// NotFound indicates the referenced scan session does not exist (HTTP 404).
	NotFound
	// SubScanFailed marks a recoverable failure of a sub-page, PDF, crawl or
	// vendor step. It is logged and never returned to callers.
	SubScanFailed
	// PersistenceFailure indicates the scan record could not be stored (HTTP 500).
	PersistenceFailure
	// ParsingFailed indicates the response could not be parsed (HTTP 500).
	ParsingFailed
)

func (k Kind) String() string {
	switch k {
	case InvalidInput:
		return "invalid_input"
	case RateLimited:
		return "rate_limited"
	case RootFetchFailed:
		return "root_fetch_failed"
	case Timeout:
		return "timeout"
	case NotFound:
		return "not_found"
	case SubScanFailed:
		return "sub_scan_failed"
	case PersistenceFailure:
		return "persistence_failure"
	case ParsingFailed:
		return "parsing_failed"
	default:
		return "unknown"
	}
}

// AppError carries a category, user message, and original cause.
type AppError struct {
	Kind           Kind
	UpstreamStatus int // HTTP status code returned by the target domain
	RetryAfter     int // seconds, set for RateLimited
	Message        string
	Cause          error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}
