// Assistant HTTP handlers.
//
// This file exposes REST endpoints for the conversational assistant:
//   - POST /conversations/{id}/ask       (ask a question and get an answer)
//   - GET  /conversations/{id}/messages  (list paginated transcript messages)
//
// Handlers are transport-thin:
//   - validate & normalize inputs (including newline and length constraints)
//   - delegate to application services (AssistantService)
//   - implement conditional responses (ETag) and idempotency semantics
//
// Idempotency:
// If the client supplies an Idempotency-Key header and a previous successful
// result exists for (operator, conversation, key), the handler returns that
// recorded assistant message and sets `Idempotency-Replayed: true`.
package handlers

import (
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/visaflow/crm-backend/internal/domain"
	"github.com/visaflow/crm-backend/internal/repo"
	"github.com/visaflow/crm-backend/internal/services"
	"github.com/visaflow/crm-backend/internal/utils"
)

//
// DTOs
//

// AskRequest is the JSON payload for asking the assistant a question.
//
// Question is normalized by the handler (line endings and excessive blank
// lines) before being passed to the service layer. The service also enforces
// a maximum rune count, which can be configured in AssistantService.
type AskRequest struct {
	// Question is the operator question. It must be non-empty.
	Question string `json:"question" binding:"required,min=1"`
}

// AskResponse is the JSON envelope for a newly created assistant answer.
type AskResponse struct {
	// Message is the assistant answer created as a result of the request.
	Message *domain.Message `json:"message"`
}

// ListMessagesResponse contains a page of transcript messages and pagination
// metadata.
type ListMessagesResponse struct {
	Messages   []domain.Message `json:"messages"`
	Pagination Pagination       `json:"pagination"`
}

//
// Helpers
//

// clampMsgPagination parses page/page_size from query parameters, applies sane
// defaults and caps, and returns the validated (page, pageSize).
func clampMsgPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = utils.AtoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = utils.AtoiDefault(c.Query("page_size"), defaultPageSize)
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return
}

// nlCollapseRE collapses runs of 3+ newlines to two, preserving paragraphs.
var nlCollapseRE = regexp.MustCompile(`\n{3,}`)

// sanitizeQuestion normalizes operator text for consistent downstream behavior:
//   - converts CRLF/CR to LF,
//   - collapses runs of 3+ LFs to exactly two (paragraph separation),
//   - trims surrounding whitespace.
func sanitizeQuestion(raw string) string {
	s := strings.ReplaceAll(raw, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = nlCollapseRE.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// discoverMaxQuestionRunes inspects the concrete AssistantService for a
// configured question-length limit. If unavailable, it returns a conservative
// fallback.
func discoverMaxQuestionRunes(asstSvc AssistantService) int {
	const fallback = 4000
	if as, ok := asstSvc.(*services.AssistantService); ok {
		if as.MaxQuestionRunes > 0 {
			return as.MaxQuestionRunes
		}
	}
	return fallback
}

//
// Handlers
//

// AskQuestion appends an operator question to the conversation and generates
// an assistant answer. Supports idempotency via the Idempotency-Key header
// (same key yields the same recorded result).
func (h *Handlers) AskQuestion(c *gin.Context) {
	ctx := c.Request.Context()
	conversationID := c.Param("id")

	if _, err := uuid.Parse(conversationID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "conversation id must be a UUID")
		return
	}

	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "question required")
		return
	}

	// Sanitize + early size cap to fail fast at the edge.
	question := sanitizeQuestion(req.Question)
	maxRunes := discoverMaxQuestionRunes(h.asstSvc)
	if maxRunes > 0 && utf8.RuneCountInString(question) > maxRunes {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, fmt.Sprintf("question too long: max %d runes", maxRunes))
		return
	}
	if question == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "question required")
		return
	}

	currentOperator := operatorID(c)

	// Idempotency (replay path) – read validated key if present.
	idemKey, _ := idempotencyKey(c)
	if idemKey != "" {
		if svc, okSvc := h.asstSvc.(*services.AssistantService); okSvc && svc.DB != nil {
			if rec, err := repo.GetIdempotency(ctx, svc.DB, currentOperator, conversationID, idemKey, time.Now().UTC()); err == nil && rec != nil {
				if prev, err2 := repo.GetMessage(svc.DB, rec.MessageID); err2 == nil {
					c.Header("Idempotency-Replayed", "true")
					ok(c, http.StatusOK, AskResponse{Message: prev})
					return
				}
			}
		}
	}

	// Normal processing (service has a second guard for length).
	m, err := h.asstSvc.Ask(ctx, currentOperator, conversationID, question)
	if err != nil {
		switch err {
		case services.ErrConversationNotFound:
			fail(c, http.StatusNotFound, ErrCodeNotFound, "conversation not found")
		case services.ErrQuestionTooLong:
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, fmt.Sprintf("question too long: max %d runes", maxRunes))
		case services.ErrEmptyQuestion:
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "question required")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeAnswerFailed, err.Error())
		}
		return
	}

	// Idempotency (store path) – best effort.
	if idemKey != "" {
		if svc, ok := h.asstSvc.(*services.AssistantService); ok && svc.DB != nil {
			ttl := 24 * time.Hour
			_, _ = repo.CreateIdempotency(ctx, svc.DB, currentOperator, conversationID, idemKey, m.ID, http.StatusOK, ttl)
		}
	}

	ok(c, http.StatusOK, AskResponse{Message: m})
}

// ListMessages returns a paginated list of transcript messages for the given
// conversation.
func (h *Handlers) ListMessages(c *gin.Context) {
	ctx := c.Request.Context()
	conversationID := c.Param("id")

	if _, err := uuid.Parse(conversationID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "conversation id must be a UUID")
		return
	}

	// ETag pre-check (best effort).
	var db *gorm.DB
	if svc, ok := h.asstSvc.(*services.AssistantService); ok {
		db = svc.DB
	}
	if db != nil {
		count, maxTS, err := repo.MessagesStats(ctx, db, conversationID)
		if err == nil {
			var ts int64
			if maxTS != nil {
				ts = maxTS.Unix()
			}
			etag := fmt.Sprintf(`W/"messages:%s:%d:%d"`, conversationID, count, ts)
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	page, pageSize := clampMsgPagination(c)

	items, total, err := h.asstSvc.ListPage(ctx, operatorID(c), conversationID, page, pageSize)
	if err != nil {
		switch err {
		case services.ErrConversationNotFound:
			fail(c, http.StatusNotFound, ErrCodeNotFound, "conversation not found")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		}
		return
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	ok(c, http.StatusOK, ListMessagesResponse{
		Messages: items,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	})
}

// idempotencyKey extracts an idempotency key if an upstream middleware has
// already validated/stashed it. The fallback behavior reads the
// "Idempotency-Key" header directly when no dedicated middleware exists.
func idempotencyKey(c *gin.Context) (string, bool) {
	if v := strings.TrimSpace(c.GetHeader("Idempotency-Key")); v != "" {
		return v, true
	}
	return "", false
}
