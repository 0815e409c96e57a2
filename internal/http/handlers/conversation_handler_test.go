package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/visaflow/crm-backend/internal/ai"
	"github.com/visaflow/crm-backend/internal/domain"
)

//
// Stub services shared by the handler tests. None of them is the concrete
// *services.* type, so the ETag and idempotency database paths are skipped.
//

type stubConvSvc struct {
	created   *domain.Conversation
	createErr error

	pageItems []domain.Conversation
	pageTotal int64
	pageErr   error

	updateErr error

	gotOperator string
	gotConvID   string
	gotTitle    string
	gotPage     int
	gotPageSize int
}

func (s *stubConvSvc) Create(_ context.Context, operatorID, title string) (*domain.Conversation, error) {
	s.gotOperator = operatorID
	s.gotTitle = title
	if s.createErr != nil {
		return nil, s.createErr
	}
	return s.created, nil
}

func (s *stubConvSvc) List(_ context.Context, operatorID string) ([]domain.Conversation, error) {
	s.gotOperator = operatorID
	return s.pageItems, s.pageErr
}

func (s *stubConvSvc) ListPage(_ context.Context, operatorID string, page, pageSize int) ([]domain.Conversation, int64, error) {
	s.gotOperator = operatorID
	s.gotPage = page
	s.gotPageSize = pageSize
	if s.pageErr != nil {
		return nil, 0, s.pageErr
	}
	return s.pageItems, s.pageTotal, nil
}

func (s *stubConvSvc) UpdateTitle(_ context.Context, operatorID, conversationID, title string) error {
	s.gotOperator = operatorID
	s.gotConvID = conversationID
	s.gotTitle = title
	return s.updateErr
}

type stubAsstSvc struct {
	msg    *domain.Message
	askErr error

	pageItems []domain.Message
	pageTotal int64
	pageErr   error

	gotOperator string
	gotConvID   string
	gotQuestion string
}

func (s *stubAsstSvc) Ask(_ context.Context, operatorID, conversationID, question string) (*domain.Message, error) {
	s.gotOperator = operatorID
	s.gotConvID = conversationID
	s.gotQuestion = question
	if s.askErr != nil {
		return nil, s.askErr
	}
	return s.msg, nil
}

func (s *stubAsstSvc) ListPage(_ context.Context, operatorID, conversationID string, page, pageSize int) ([]domain.Message, int64, error) {
	s.gotOperator = operatorID
	s.gotConvID = conversationID
	if s.pageErr != nil {
		return nil, 0, s.pageErr
	}
	return s.pageItems, s.pageTotal, nil
}

type stubFbSvc struct {
	recordErr error

	gotOperator string
	gotMsgID    string
	gotVerdict  string
	gotComment  *string
}

func (s *stubFbSvc) Record(_ context.Context, operatorID, messageID, verdict string, comment *string) error {
	s.gotOperator = operatorID
	s.gotMsgID = messageID
	s.gotVerdict = verdict
	s.gotComment = comment
	return s.recordErr
}

type stubTester struct {
	err   error
	calls int
}

func (s *stubTester) TestConnection(_ context.Context, _ string, _ ai.Provider) error {
	s.calls++
	return s.err
}

// newHandlerRouter wires the handlers onto a bare engine so tests can drive
// them with real HTTP requests.
func newHandlerRouter(h *Handlers) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/conversations", h.CreateConversation)
	r.GET("/conversations", h.ListConversations)
	r.PUT("/conversations/:id/title", h.UpdateConversationTitle)
	r.POST("/conversations/:id/ask", h.AskQuestion)
	r.GET("/conversations/:id/messages", h.ListMessages)
	r.POST("/messages/:id/feedback", h.RecordFeedback)
	r.GET("/ai/test-connection", h.TestAIConnection)
	return r
}

func do(t *testing.T, r *gin.Engine, method, path, body string, hdr map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var rd *strings.Reader
	if body != "" {
		rd = strings.NewReader(body)
	} else {
		rd = strings.NewReader("")
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

const validConvID = "123e4567-e89b-12d3-a456-426614174000"

func TestOperatorID_Precedence(t *testing.T) {
	gin.SetMode(gin.TestMode)

	// Context value wins over everything.
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Request.Header.Set("X-Operator-ID", "from-header")
	c.Set("operatorID", "from-context")
	if got := operatorID(c); got != "from-context" {
		t.Fatalf("operatorID = %q, want from-context", got)
	}

	// Header is next.
	c2, _ := gin.CreateTestContext(httptest.NewRecorder())
	c2.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c2.Request.Header.Set("X-Operator-ID", "  op-7  ")
	if got := operatorID(c2); got != "op-7" {
		t.Fatalf("operatorID = %q, want op-7", got)
	}

	// Fallback when nothing is set.
	c3, _ := gin.CreateTestContext(httptest.NewRecorder())
	c3.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	if got := operatorID(c3); got != "demo-operator" {
		t.Fatalf("operatorID = %q, want demo-operator", got)
	}
}

func TestCreateConversation(t *testing.T) {
	conv := &stubConvSvc{created: &domain.Conversation{ID: validConvID, Title: "Visa planning", OperatorID: "op-1"}}
	h := New(conv, &stubAsstSvc{}, &stubFbSvc{}, nil, ai.Config{})
	r := newHandlerRouter(h)

	w := do(t, r, http.MethodPost, "/conversations", `{"title":"  Visa planning  "}`, map[string]string{"X-Operator-ID": "op-1"})
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201; body %s", w.Code, w.Body.String())
	}
	var got domain.Conversation
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.ID != validConvID || got.Title != "Visa planning" {
		t.Fatalf("unexpected conversation: %+v", got)
	}
	if conv.gotOperator != "op-1" {
		t.Fatalf("service saw operator %q, want op-1", conv.gotOperator)
	}
	if conv.gotTitle != "Visa planning" {
		t.Fatalf("title not trimmed before service call: %q", conv.gotTitle)
	}
}

func TestCreateConversation_BadJSON(t *testing.T) {
	h := New(&stubConvSvc{}, &stubAsstSvc{}, &stubFbSvc{}, nil, ai.Config{})
	r := newHandlerRouter(h)

	w := do(t, r, http.MethodPost, "/conversations", `{"title":`, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	var er ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &er); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if er.Code != ErrCodeBadRequest {
		t.Fatalf("code = %q, want %q", er.Code, ErrCodeBadRequest)
	}
}

func TestListConversations_PaginationEnvelope(t *testing.T) {
	conv := &stubConvSvc{
		pageItems: []domain.Conversation{{ID: "c1"}, {ID: "c2"}},
		pageTotal: 45,
	}
	h := New(conv, &stubAsstSvc{}, &stubFbSvc{}, nil, ai.Config{})
	r := newHandlerRouter(h)

	w := do(t, r, http.MethodGet, "/conversations?page=3&page_size=10", "", map[string]string{"X-Operator-ID": "op-1"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body %s", w.Code, w.Body.String())
	}
	var resp ListConversationsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(resp.Conversations) != 2 {
		t.Fatalf("got %d conversations, want 2", len(resp.Conversations))
	}
	p := resp.Pagination
	if p.Page != 3 || p.PageSize != 10 || p.Total != 45 || p.TotalPages != 5 {
		t.Fatalf("pagination = %+v", p)
	}
	if !p.HasNext {
		t.Fatal("page 3 of 5 should have a next page")
	}
	if conv.gotPage != 3 || conv.gotPageSize != 10 {
		t.Fatalf("service saw page=%d size=%d", conv.gotPage, conv.gotPageSize)
	}
}

func TestListConversations_DefaultsAndClamping(t *testing.T) {
	conv := &stubConvSvc{pageItems: []domain.Conversation{}, pageTotal: 0}
	h := New(conv, &stubAsstSvc{}, &stubFbSvc{}, nil, ai.Config{})
	r := newHandlerRouter(h)

	if w := do(t, r, http.MethodGet, "/conversations", "", nil); w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if conv.gotPage != 1 || conv.gotPageSize != 20 {
		t.Fatalf("defaults: page=%d size=%d, want 1/20", conv.gotPage, conv.gotPageSize)
	}

	do(t, r, http.MethodGet, "/conversations?page=0&page_size=500", "", nil)
	if conv.gotPage != 1 || conv.gotPageSize != 100 {
		t.Fatalf("clamped: page=%d size=%d, want 1/100", conv.gotPage, conv.gotPageSize)
	}

	do(t, r, http.MethodGet, "/conversations?page=abc&page_size=-2", "", nil)
	if conv.gotPage != 1 || conv.gotPageSize != 1 {
		t.Fatalf("garbage params: page=%d size=%d, want 1/1", conv.gotPage, conv.gotPageSize)
	}
}

func TestListConversations_ServiceError(t *testing.T) {
	conv := &stubConvSvc{pageErr: context.DeadlineExceeded}
	h := New(conv, &stubAsstSvc{}, &stubFbSvc{}, nil, ai.Config{})
	r := newHandlerRouter(h)

	w := do(t, r, http.MethodGet, "/conversations", "", nil)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	var er ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &er); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if er.Code != ErrCodeListFailed {
		t.Fatalf("code = %q, want %q", er.Code, ErrCodeListFailed)
	}
}

func TestUpdateConversationTitle(t *testing.T) {
	conv := &stubConvSvc{}
	h := New(conv, &stubAsstSvc{}, &stubFbSvc{}, nil, ai.Config{})
	r := newHandlerRouter(h)

	// Non-UUID id.
	if w := do(t, r, http.MethodPut, "/conversations/not-a-uuid/title", `{"title":"New"}`, nil); w.Code != http.StatusBadRequest {
		t.Fatalf("non-uuid: status = %d, want 400", w.Code)
	}

	// Missing title.
	if w := do(t, r, http.MethodPut, "/conversations/"+validConvID+"/title", `{}`, nil); w.Code != http.StatusBadRequest {
		t.Fatalf("missing title: status = %d, want 400", w.Code)
	}

	// Whitespace-only title.
	if w := do(t, r, http.MethodPut, "/conversations/"+validConvID+"/title", `{"title":"   "}`, nil); w.Code != http.StatusBadRequest {
		t.Fatalf("blank title: status = %d, want 400", w.Code)
	}

	// Service failure maps to 404.
	conv.updateErr = context.Canceled
	if w := do(t, r, http.MethodPut, "/conversations/"+validConvID+"/title", `{"title":"New"}`, nil); w.Code != http.StatusNotFound {
		t.Fatalf("service error: status = %d, want 404", w.Code)
	}

	// Success.
	conv.updateErr = nil
	w := do(t, r, http.MethodPut, "/conversations/"+validConvID+"/title", `{"title":"Renamed"}`, map[string]string{"X-Operator-ID": "op-9"})
	if w.Code != http.StatusNoContent {
		t.Fatalf("success: status = %d, want 204; body %s", w.Code, w.Body.String())
	}
	if conv.gotOperator != "op-9" || conv.gotConvID != validConvID || conv.gotTitle != "Renamed" {
		t.Fatalf("service saw op=%q id=%q title=%q", conv.gotOperator, conv.gotConvID, conv.gotTitle)
	}
}
