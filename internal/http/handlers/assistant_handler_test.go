package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/visaflow/crm-backend/internal/ai"
	"github.com/visaflow/crm-backend/internal/domain"
	"github.com/visaflow/crm-backend/internal/services"
)

func Test_sanitizeQuestion(t *testing.T) {
	if got := sanitizeQuestion("a\r\nb\rc"); got != "a\nb\nc" {
		t.Fatalf("line endings: got %q", got)
	}
	if got := sanitizeQuestion("para one\n\n\n\n\npara two"); got != "para one\n\npara two" {
		t.Fatalf("newline collapse: got %q", got)
	}
	if got := sanitizeQuestion("  \n  trimmed  \n  "); got != "trimmed" {
		t.Fatalf("trim: got %q", got)
	}
	if got := sanitizeQuestion("   \n\n   "); got != "" {
		t.Fatalf("whitespace only: got %q", got)
	}
}

func Test_discoverMaxQuestionRunes(t *testing.T) {
	if got := discoverMaxQuestionRunes(&stubAsstSvc{}); got != 4000 {
		t.Fatalf("stub service: got %d, want fallback 4000", got)
	}
	if got := discoverMaxQuestionRunes(&services.AssistantService{MaxQuestionRunes: 123}); got != 123 {
		t.Fatalf("configured service: got %d, want 123", got)
	}
	if got := discoverMaxQuestionRunes(&services.AssistantService{}); got != 4000 {
		t.Fatalf("zero-valued service: got %d, want fallback 4000", got)
	}
}

func TestAskQuestion_Validation(t *testing.T) {
	asst := &stubAsstSvc{msg: &domain.Message{ID: "m-1"}}
	h := New(&stubConvSvc{}, asst, &stubFbSvc{}, nil, ai.Config{})
	r := newHandlerRouter(h)

	if w := do(t, r, http.MethodPost, "/conversations/not-a-uuid/ask", `{"question":"hi"}`, nil); w.Code != http.StatusBadRequest {
		t.Fatalf("non-uuid: status = %d, want 400", w.Code)
	}
	if w := do(t, r, http.MethodPost, "/conversations/"+validConvID+"/ask", `{"question":`, nil); w.Code != http.StatusBadRequest {
		t.Fatalf("bad json: status = %d, want 400", w.Code)
	}
	// Whitespace collapses to empty after sanitization.
	if w := do(t, r, http.MethodPost, "/conversations/"+validConvID+"/ask", `{"question":"  \n\n  "}`, nil); w.Code != http.StatusBadRequest {
		t.Fatalf("blank question: status = %d, want 400", w.Code)
	}
	// Over the fallback rune cap (stub service has no configured limit).
	long := strings.Repeat("a", 4001)
	w := do(t, r, http.MethodPost, "/conversations/"+validConvID+"/ask", `{"question":"`+long+`"}`, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("too long: status = %d, want 400", w.Code)
	}
	if asst.gotQuestion != "" {
		t.Fatalf("service was called for an invalid request with %q", asst.gotQuestion)
	}
}

func TestAskQuestion_Success(t *testing.T) {
	asst := &stubAsstSvc{msg: &domain.Message{ID: "m-1", Role: "assistant", Content: "Total cases: 4"}}
	h := New(&stubConvSvc{}, asst, &stubFbSvc{}, nil, ai.Config{})
	r := newHandlerRouter(h)

	body := `{"question":"How many\r\ncases\n\n\n\ndo we have?"}`
	w := do(t, r, http.MethodPost, "/conversations/"+validConvID+"/ask", body, map[string]string{"X-Operator-ID": "op-2"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body %s", w.Code, w.Body.String())
	}
	var resp AskResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Message == nil || resp.Message.ID != "m-1" {
		t.Fatalf("unexpected message: %+v", resp.Message)
	}
	if asst.gotOperator != "op-2" || asst.gotConvID != validConvID {
		t.Fatalf("service saw op=%q conv=%q", asst.gotOperator, asst.gotConvID)
	}
	if asst.gotQuestion != "How many\ncases\n\ndo we have?" {
		t.Fatalf("question not sanitized: %q", asst.gotQuestion)
	}
}

func TestAskQuestion_ErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
		code string
	}{
		{services.ErrConversationNotFound, http.StatusNotFound, ErrCodeNotFound},
		{services.ErrQuestionTooLong, http.StatusBadRequest, ErrCodeBadRequest},
		{services.ErrEmptyQuestion, http.StatusBadRequest, ErrCodeBadRequest},
		{errors.New("snapshot store down"), http.StatusInternalServerError, ErrCodeAnswerFailed},
	}
	for _, tc := range cases {
		asst := &stubAsstSvc{askErr: tc.err}
		h := New(&stubConvSvc{}, asst, &stubFbSvc{}, nil, ai.Config{})
		r := newHandlerRouter(h)

		w := do(t, r, http.MethodPost, "/conversations/"+validConvID+"/ask", `{"question":"status?"}`, nil)
		if w.Code != tc.want {
			t.Fatalf("%v: status = %d, want %d", tc.err, w.Code, tc.want)
		}
		var er ErrorResponse
		if err := json.Unmarshal(w.Body.Bytes(), &er); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if er.Code != tc.code {
			t.Fatalf("%v: code = %q, want %q", tc.err, er.Code, tc.code)
		}
	}
}

// An Idempotency-Key header must not disturb normal processing when the
// service implementation carries no database handle.
func TestAskQuestion_IdempotencyKeyWithoutStore(t *testing.T) {
	asst := &stubAsstSvc{msg: &domain.Message{ID: "m-2"}}
	h := New(&stubConvSvc{}, asst, &stubFbSvc{}, nil, ai.Config{})
	r := newHandlerRouter(h)

	w := do(t, r, http.MethodPost, "/conversations/"+validConvID+"/ask", `{"question":"status?"}`,
		map[string]string{"Idempotency-Key": "key-1"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body %s", w.Code, w.Body.String())
	}
	if w.Header().Get("Idempotency-Replayed") != "" {
		t.Fatal("replay header set without a recorded result")
	}
}

func TestListMessages(t *testing.T) {
	asst := &stubAsstSvc{
		pageItems: []domain.Message{{ID: "m-1", Role: "user"}, {ID: "m-2", Role: "assistant"}},
		pageTotal: 2,
	}
	h := New(&stubConvSvc{}, asst, &stubFbSvc{}, nil, ai.Config{})
	r := newHandlerRouter(h)

	if w := do(t, r, http.MethodGet, "/conversations/nope/messages", "", nil); w.Code != http.StatusBadRequest {
		t.Fatalf("non-uuid: status = %d, want 400", w.Code)
	}

	w := do(t, r, http.MethodGet, "/conversations/"+validConvID+"/messages", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body %s", w.Code, w.Body.String())
	}
	var resp ListMessagesResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(resp.Messages) != 2 || resp.Pagination.Total != 2 {
		t.Fatalf("unexpected page: %+v", resp)
	}
	if resp.Pagination.TotalPages != 1 || resp.Pagination.HasNext {
		t.Fatalf("pagination = %+v", resp.Pagination)
	}
}

func TestListMessages_ErrorMapping(t *testing.T) {
	asst := &stubAsstSvc{pageErr: services.ErrConversationNotFound}
	h := New(&stubConvSvc{}, asst, &stubFbSvc{}, nil, ai.Config{})
	r := newHandlerRouter(h)

	if w := do(t, r, http.MethodGet, "/conversations/"+validConvID+"/messages", "", nil); w.Code != http.StatusNotFound {
		t.Fatalf("not found: status = %d, want 404", w.Code)
	}

	asst.pageErr = errors.New("db closed")
	w := do(t, r, http.MethodGet, "/conversations/"+validConvID+"/messages", "", nil)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("other error: status = %d, want 500", w.Code)
	}
}

func Test_idempotencyKey(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodPost, "/", nil)
	if k, ok := idempotencyKey(c); ok || k != "" {
		t.Fatalf("no header: got %q, %v", k, ok)
	}
	c.Request.Header.Set("Idempotency-Key", "  key-42  ")
	if k, ok := idempotencyKey(c); !ok || k != "key-42" {
		t.Fatalf("with header: got %q, %v", k, ok)
	}
}
