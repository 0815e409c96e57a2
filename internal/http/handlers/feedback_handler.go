// Feedback HTTP handlers.
//
// This file exposes the REST endpoint for rating assistant answers:
//   - POST /messages/{id}/feedback  (record a verdict)
//
// Handlers in this file are transport-thin: they validate input, delegate to
// application services, and translate domain/service errors into HTTP results.
// Verdicts are constrained to {"good", "bad"}.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/visaflow/crm-backend/internal/services"
)

// RecordFeedbackRequest is the JSON payload for rating an assistant answer.
//
// Verdict must be one of:
//   - "good" : the answer was helpful
//   - "bad"  : the answer was wrong or unhelpful
//
// The binding tag enforces the domain constraint at the transport layer.
type RecordFeedbackRequest struct {
	// Verdict is the feedback signal: "good" or "bad".
	Verdict string `json:"verdict" binding:"required,oneof=good bad"`
	// Comment is an optional free-text note stored with the audit row.
	Comment *string `json:"comment,omitempty"`
}

// RecordFeedback records a "good" or "bad" verdict for an assistant answer.
// At most one verdict is accepted per message; further attempts return 409.
func (h *Handlers) RecordFeedback(c *gin.Context) {
	var req RecordFeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "verdict must be good or bad")
		return
	}

	// Pull operator from context → header → demo fallback (implemented in
	// conversation_handler.go)
	oid := operatorID(c)
	messageID := c.Param("id")

	if err := h.fbSvc.Record(c.Request.Context(), oid, messageID, req.Verdict, req.Comment); err != nil {
		switch err {
		case services.ErrMessageNotFound:
			fail(c, http.StatusNotFound, ErrCodeNotFound, "message not found")
		case services.ErrInvalidVerdict:
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "verdict must be good or bad")
		case services.ErrForbiddenFeedback:
			fail(c, http.StatusForbidden, ErrCodeForbidden, "cannot leave feedback on this message")
		case services.ErrDuplicateFeedback:
			fail(c, http.StatusConflict, ErrCodeConflict, "feedback already exists")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}

	noContent(c)
}
