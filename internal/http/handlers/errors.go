// Stable error codes for the API. Handlers pick the most specific code and
// pass it to fail() together with the HTTP status; clients branch on the code
// rather than parsing messages. Generic codes mirror common HTTP semantics,
// the domain-specific ones cover failures a status alone cannot convey.
package handlers

const (
	ErrCodeBadRequest   = "bad_request"
	ErrCodeUnauthorized = "unauthorized"
	ErrCodeForbidden    = "forbidden"
	ErrCodeNotFound     = "not_found"
	ErrCodeConflict     = "conflict"
	ErrCodeRateLimited  = "too_many_requests"
	ErrCodeInternal     = "internal_error"

	// Domain-specific:
	ErrCodeAnswerFailed     = "answer_failed"
	ErrCodeCreateFailed     = "create_failed"
	ErrCodeListFailed       = "list_failed"
	ErrCodeAIUnavailable    = "ai_unavailable"
	ErrCodeMethodNotAllowed = "method_not_allowed"
)
