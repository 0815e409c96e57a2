package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/visaflow/crm-backend/internal/ai"
	"github.com/visaflow/crm-backend/internal/services"
)

func TestRecordFeedback_Success(t *testing.T) {
	fb := &stubFbSvc{}
	h := New(&stubConvSvc{}, &stubAsstSvc{}, fb, nil, ai.Config{})
	r := newHandlerRouter(h)

	w := do(t, r, http.MethodPost, "/messages/m-1/feedback", `{"verdict":"good"}`, map[string]string{"X-Operator-ID": "op-3"})
	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204; body %s", w.Code, w.Body.String())
	}
	if fb.gotOperator != "op-3" || fb.gotMsgID != "m-1" || fb.gotVerdict != "good" {
		t.Fatalf("service saw op=%q msg=%q verdict=%q", fb.gotOperator, fb.gotMsgID, fb.gotVerdict)
	}
	if fb.gotComment != nil {
		t.Fatalf("comment should be nil when omitted, got %q", *fb.gotComment)
	}
}

func TestRecordFeedback_CommentReachesService(t *testing.T) {
	fb := &stubFbSvc{}
	h := New(&stubConvSvc{}, &stubAsstSvc{}, fb, nil, ai.Config{})
	r := newHandlerRouter(h)

	w := do(t, r, http.MethodPost, "/messages/m-1/feedback", `{"verdict":"bad","comment":"missed the revenue question"}`, nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204; body %s", w.Code, w.Body.String())
	}
	if fb.gotComment == nil || *fb.gotComment != "missed the revenue question" {
		t.Fatalf("comment did not reach the service: %v", fb.gotComment)
	}
}

func TestRecordFeedback_BindingRejectsBadVerdicts(t *testing.T) {
	fb := &stubFbSvc{}
	h := New(&stubConvSvc{}, &stubAsstSvc{}, fb, nil, ai.Config{})
	r := newHandlerRouter(h)

	for _, body := range []string{`{}`, `{"verdict":"meh"}`, `{"verdict":""}`, `{"verdict":`} {
		w := do(t, r, http.MethodPost, "/messages/m-1/feedback", body, nil)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("body %s: status = %d, want 400", body, w.Code)
		}
	}
	if fb.gotVerdict != "" {
		t.Fatalf("service was called with %q", fb.gotVerdict)
	}
}

func TestRecordFeedback_ErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
		code string
	}{
		{services.ErrMessageNotFound, http.StatusNotFound, ErrCodeNotFound},
		{services.ErrInvalidVerdict, http.StatusBadRequest, ErrCodeBadRequest},
		{services.ErrForbiddenFeedback, http.StatusForbidden, ErrCodeForbidden},
		{services.ErrDuplicateFeedback, http.StatusConflict, ErrCodeConflict},
		{errors.New("db closed"), http.StatusInternalServerError, ErrCodeInternal},
	}
	for _, tc := range cases {
		h := New(&stubConvSvc{}, &stubAsstSvc{}, &stubFbSvc{recordErr: tc.err}, nil, ai.Config{})
		r := newHandlerRouter(h)

		w := do(t, r, http.MethodPost, "/messages/m-1/feedback", `{"verdict":"bad"}`, nil)
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
