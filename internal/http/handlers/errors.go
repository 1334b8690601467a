// Package handlers defines HTTP-layer error codes used across all API endpoints.
//
// Codes are lowercase snake_case and give clients a stable, machine-readable
// taxonomy next to the human-readable message. Generic codes mirror HTTP
// status semantics; domain codes name the operation that failed.
//
// Example response:
//
//	{
//	  "request_id": "e1b9be03-4999-4289-9f03-999b042d65d6",
//	  "code": "text_too_long",
//	  "message": "text too long: max 220 runes"
//	}
package handlers

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeNotFound         = "not_found"
	ErrCodeConflict         = "conflict"
	ErrCodeRateLimited      = "too_many_requests"
	ErrCodeInternal         = "internal_error"
	ErrCodeUnavailable      = "unavailable"
	ErrCodeMethodNotAllowed = "method_not_allowed"

	// Domain-specific:
	ErrCodeTextTooLong   = "text_too_long"
	ErrCodeUnknownField  = "unknown_field"
	ErrCodeEnqueueFailed = "enqueue_failed"
	ErrCodeCreateFailed  = "create_failed"
	ErrCodeUpdateFailed  = "update_failed"
	ErrCodeListFailed    = "list_failed"
)
