// Conversation HTTP handlers.
//
// This file exposes REST endpoints for conversation resources:
//   - POST   /conversations               (create)
//   - GET    /conversations               (list, paginated, ETag support)
//   - PUT    /conversations/{id}/title    (rename)
//
// Handlers are transport-thin: they validate input, call application services,
// and translate results into HTTP responses (including conditional responses).
package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/visaflow/crm-backend/internal/ai"
	"github.com/visaflow/crm-backend/internal/domain"
	"github.com/visaflow/crm-backend/internal/repo"
	"github.com/visaflow/crm-backend/internal/services"
	"github.com/visaflow/crm-backend/internal/utils"
)

//
// Service contracts (context-aware)
//

// ConversationService defines conversation lifecycle operations consumed by
// HTTP handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type ConversationService interface {
	// Create starts a new conversation for operatorID with an optional title.
	Create(ctx context.Context, operatorID, title string) (*domain.Conversation, error)
	// List returns all conversations for an operator (legacy, non-paginated).
	List(ctx context.Context, operatorID string) ([]domain.Conversation, error)
	// ListPage returns a page of conversations for an operator and the total count.
	ListPage(ctx context.Context, operatorID string, page, pageSize int) ([]domain.Conversation, int64, error)
	// UpdateTitle renames a conversation that belongs to operatorID.
	UpdateTitle(ctx context.Context, operatorID, conversationID, title string) error
}

// AssistantService defines question answering and transcript retrieval
// operations.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type AssistantService interface {
	// Ask appends an operator question and an assistant answer to a
	// conversation atomically.
	Ask(ctx context.Context, operatorID, conversationID, question string) (*domain.Message, error)
	// ListPage returns a page of messages within a conversation and the total count.
	ListPage(ctx context.Context, operatorID, conversationID string, page, pageSize int) ([]domain.Message, int64, error)
}

// FeedbackService defines operations to capture operator verdicts on
// assistant answers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type FeedbackService interface {
	// Record submits a verdict ("good" or "bad") for messageID by operatorID.
	Record(ctx context.Context, operatorID, messageID, verdict string, comment *string) error
}

// ConnectionTester probes the remote AI service reachability.
type ConnectionTester interface {
	TestConnection(ctx context.Context, apiKey string, provider ai.Provider) error
}

//
// Handler wiring
//

// Handlers groups HTTP endpoints for conversations, assistant answers, and
// feedback. It depends on abstract service interfaces to keep transport
// concerns separate from business logic.
type Handlers struct {
	convSvc ConversationService
	asstSvc AssistantService
	fbSvc   FeedbackService
	aiSvc   ConnectionTester
	aiCfg   ai.Config
}

// New constructs and returns a Handlers instance bound to the given services.
func New(convSvc ConversationService, asstSvc AssistantService, fbSvc FeedbackService, aiSvc ConnectionTester, aiCfg ai.Config) *Handlers {
	return &Handlers{convSvc: convSvc, asstSvc: asstSvc, fbSvc: fbSvc, aiSvc: aiSvc, aiCfg: aiCfg}
}

// operatorID extracts the authenticated operator id from Gin context (set by
// upstream middleware). If absent, it falls back to the "X-Operator-ID"
// header (tests use it), and finally to "demo-operator". It never touches
// c.Request if it's nil.
func operatorID(c *gin.Context) string {
	if v, ok := c.Get("operatorID"); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	if c != nil && c.Request != nil {
		if h := strings.TrimSpace(c.GetHeader("X-Operator-ID")); h != "" {
			return h
		}
	}
	return "demo-operator"
}

//
// DTOs
//

// CreateConversationRequest is the JSON payload for creating a conversation.
type CreateConversationRequest struct {
	// Title optionally sets the conversation title; a default is used when empty.
	Title string `json:"title"`
}

// UpdateConversationTitleRequest is the JSON payload for updating a
// conversation title.
type UpdateConversationTitleRequest struct {
	// Title is the new conversation name (1–255 chars).
	Title string `json:"title" binding:"required,min=1,max=255"`
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// ListConversationsResponse wraps a page of conversations and pagination
// information.
type ListConversationsResponse struct {
	Conversations []domain.Conversation `json:"conversations"`
	Pagination    Pagination            `json:"pagination"`
}

//
// Helpers
//

// clampPagination parses and bounds page and page_size query params to sane
// defaults and limits, returning (page, pageSize).
func clampPagination(c *gin.Context) (page, pageSize int) {
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

//
// Handlers
//

// CreateConversation creates a conversation for the current operator and
// returns the conversation resource.
func (h *Handlers) CreateConversation(c *gin.Context) {
	var req CreateConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	title := strings.TrimSpace(req.Title)

	conv, err := h.convSvc.Create(c.Request.Context(), operatorID(c), title)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeCreateFailed, err.Error())
		return
	}
	ok(c, http.StatusCreated, conv)
}

// ListConversations returns a page of the operator's conversations. Supports
// weak ETag via If-None-Match and may return 304.
func (h *Handlers) ListConversations(c *gin.Context) {
	ctx := c.Request.Context()
	oid := operatorID(c)
	page, pageSize := clampPagination(c)

	// ETag pre-check (best effort).
	var db *gorm.DB
	if svc, ok := h.convSvc.(*services.ConversationService); ok {
		db = svc.DB
	}
	if db != nil {
		count, maxTS, err := repo.ConversationsStats(ctx, db, oid)
		if err == nil {
			var ts int64
			if maxTS != nil {
				ts = maxTS.Unix()
			}
			etag := fmt.Sprintf(`W/"conversations:%s:%d:%d"`, oid, count, ts)
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	// Fetch page.
	items, total, err := h.convSvc.ListPage(ctx, oid, page, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	resp := ListConversationsResponse{
		Conversations: items,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	}
	ok(c, http.StatusOK, resp)
}

// UpdateConversationTitle updates the title of a conversation owned by the
// current operator.
func (h *Handlers) UpdateConversationTitle(c *gin.Context) {
	conversationID := c.Param("id")
	if _, err := uuid.Parse(conversationID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "conversation id must be a UUID")
		return
	}

	var req UpdateConversationTitleRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Title) == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "title required (1–255 chars)")
		return
	}

	if err := h.convSvc.UpdateTitle(c.Request.Context(), operatorID(c), conversationID, req.Title); err != nil {
		fail(c, http.StatusNotFound, ErrCodeNotFound, "conversation not found")
		return
	}

	noContent(c)
}
