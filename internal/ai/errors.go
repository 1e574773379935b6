package ai

import "fmt"

// ErrorKind categorizes evaluation failures into actionable operator
// messages. The classification does not change retry behavior: every
// evaluation is a one-shot attempt.
type ErrorKind int

const (
	// KindTransport covers network failures and timeouts.
	KindTransport ErrorKind = iota
	// KindQuota means the service rejected the request due to exhausted
	// quota or billing limits.
	KindQuota
	// KindRateLimit means the service rejected the request due to rate limiting.
	KindRateLimit
	// KindInvalidKey means the configured credential was rejected.
	KindInvalidKey
	// KindService is the fallback for any other non-success service response.
	KindService
	// KindInvalidFormat means the response could not be parsed into the
	// required JSON shape after all fallback stages.
	KindInvalidFormat
)

// Error is the classified failure of a single evaluation attempt.
type Error struct {
	Kind       ErrorKind
	StatusCode int
	// Message is the message from the service error body, if any.
	Message string
	// Raw holds the raw response text for invalid-format failures.
	Raw string
	Err error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindQuota:
		return "api quota exceeded"
	case KindRateLimit:
		return "api rate limit exceeded"
	case KindInvalidKey:
		return "invalid api key"
	case KindInvalidFormat:
		return "invalid response format"
	case KindService:
		if e.Message != "" {
			return fmt.Sprintf("service error (status %d): %s", e.StatusCode, e.Message)
		}
		return fmt.Sprintf("service error (status %d)", e.StatusCode)
	default:
		return fmt.Sprintf("request failed: %v", e.Err)
	}
}

func (e *Error) Unwrap() error { return e.Err }
