// Package services defines the business logic for conversations, assistant
// answers, and feedback. This file centralizes common service-level error
// values so that they can be consistently returned by service methods and
// checked by callers.
//
// These errors are intended for internal use by the service layer and
// translation into user-facing messages or HTTP status codes should be
// performed at the handler/controller layer.
package services

import "errors"

// Conversation-related errors.
var (
	// ErrConversationNotFound indicates that the requested conversation does
	// not exist or is not accessible to the current operator.
	ErrConversationNotFound = errors.New("conversation not found")

	// ErrEmptyQuestion is returned when a request to ask the assistant
	// contains an empty question.
	ErrEmptyQuestion = errors.New("question is empty")

	// ErrQuestionTooLong is returned when a question exceeds the maximum
	// configured length limit.
	ErrQuestionTooLong = errors.New("question too long")

	// ErrInvalidVerdict is returned when a feedback verdict is outside the
	// allowed set (currently "good" or "bad").
	ErrInvalidVerdict = errors.New("feedback verdict must be good or bad")

	// ErrMessageNotFound indicates that the requested message does not exist
	// or is not accessible to the current operator.
	ErrMessageNotFound = errors.New("message not found")

	// ErrForbiddenFeedback is returned when an operator attempts to leave
	// feedback on a message they are not permitted to rate.
	ErrForbiddenFeedback = errors.New("cannot leave feedback on this message")

	// ErrDuplicateFeedback is returned when an operator attempts to leave
	// feedback on a message that has already been rated.
	ErrDuplicateFeedback = errors.New("feedback already exists")
)
