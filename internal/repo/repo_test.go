package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/visaflow/crm-backend/internal/domain"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func TestConversationCRUD(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	c, err := CreateConversation(ctx, db, "op1", "Visa questions")
	if err != nil {
		t.Fatalf("CreateConversation: %v", err)
	}
	if c.ID == "" || c.OperatorID != "op1" || c.Title != "Visa questions" {
		t.Fatalf("bad conversation: %+v", c)
	}

	// Ownership scoping: another operator cannot fetch it.
	if _, err := GetConversation(ctx, db, c.ID, "op2"); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("expected not-found for foreign operator, got %v", err)
	}
	got, err := GetConversation(ctx, db, c.ID, "op1")
	if err != nil || got.ID != c.ID {
		t.Fatalf("GetConversation: %v %+v", err, got)
	}

	if err := UpdateConversationTitle(ctx, db, c.ID, "op1", "Renamed"); err != nil {
		t.Fatalf("UpdateConversationTitle: %v", err)
	}
	got, _ = GetConversation(ctx, db, c.ID, "op1")
	if got.Title != "Renamed" {
		t.Fatalf("title not updated: %q", got.Title)
	}

	// List and count are operator-scoped too.
	if _, err := CreateConversation(ctx, db, "op2", "Other operator"); err != nil {
		t.Fatalf("CreateConversation op2: %v", err)
	}
	all, err := ListConversations(ctx, db, "op1")
	if err != nil || len(all) != 1 {
		t.Fatalf("ListConversations = %d, %v", len(all), err)
	}
	n, err := CountConversations(ctx, db, "op1")
	if err != nil || n != 1 {
		t.Fatalf("CountConversations = %d, %v", n, err)
	}
}

func TestListConversationsPage(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	for _, title := range []string{"a", "b", "c"} {
		if _, err := CreateConversation(ctx, db, "op1", title); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	page, err := ListConversationsPage(ctx, db, "op1", 0, 2)
	if err != nil || len(page) != 2 {
		t.Fatalf("page 1 = %d, %v", len(page), err)
	}
	rest, err := ListConversationsPage(ctx, db, "op1", 2, 2)
	if err != nil || len(rest) != 1 {
		t.Fatalf("page 2 = %d, %v", len(rest), err)
	}
}

func TestMessageLifecycle(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	conv, err := CreateConversation(ctx, db, "op1", "t")
	if err != nil {
		t.Fatalf("seed conversation: %v", err)
	}

	q := "how many cases?"
	if _, err := CreateMessage(db, conv.ID, "user", q, nil); err != nil {
		t.Fatalf("CreateMessage user: %v", err)
	}
	am, err := CreateMessage(db, conv.ID, "assistant", "4 cases", &q)
	if err != nil {
		t.Fatalf("CreateMessage assistant: %v", err)
	}
	if am.AskedQuestion == nil || *am.AskedQuestion != q {
		t.Fatalf("asked question not carried: %+v", am)
	}

	got, err := GetMessage(db, am.ID)
	if err != nil || got.Role != "assistant" {
		t.Fatalf("GetMessage: %v %+v", err, got)
	}
	if _, err := GetMessage(db, "missing"); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("expected not-found, got %v", err)
	}

	n, err := CountMessages(db, conv.ID)
	if err != nil || n != 2 {
		t.Fatalf("CountMessages = %d, %v", n, err)
	}
	page, err := ListMessagesPage(db, conv.ID, 0, 10)
	if err != nil || len(page) != 2 || page[0].Role != "user" {
		t.Fatalf("ListMessagesPage: %v %+v", err, page)
	}
}

func TestSetMessageFeedback(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	conv, _ := CreateConversation(ctx, db, "op1", "t")
	q := "q"
	m, _ := CreateMessage(db, conv.ID, "assistant", "a", &q)

	if err := SetMessageFeedback(db, m.ID, domain.FeedbackGood); err != nil {
		t.Fatalf("SetMessageFeedback: %v", err)
	}
	got, _ := GetMessage(db, m.ID)
	if got.Feedback == nil || *got.Feedback != domain.FeedbackGood {
		t.Fatalf("feedback not set: %+v", got)
	}

	if err := SetMessageFeedback(db, "missing", domain.FeedbackBad); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCreateFeedback(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	conv, _ := CreateConversation(ctx, db, "op1", "t")
	q := "q"
	m, _ := CreateMessage(db, conv.ID, "assistant", "a", &q)

	note := "spot on"
	fb, err := CreateFeedback(db, m.ID, "q", "a", domain.FeedbackGood, &note)
	if err != nil {
		t.Fatalf("CreateFeedback: %v", err)
	}
	if fb.ID == "" || fb.Verdict != domain.FeedbackGood {
		t.Fatalf("bad feedback row: %+v", fb)
	}
	if fb.Comment == nil || *fb.Comment != "spot on" {
		t.Fatalf("comment not stored: %+v", fb)
	}

	// Second verdict for the same message violates the unique index.
	if _, err := CreateFeedback(db, m.ID, "q", "a", domain.FeedbackBad, nil); err == nil {
		t.Fatalf("expected unique violation on second feedback")
	}
}

func TestIdempotency(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	// Unknown tuple is a miss.
	if _, err := GetIdempotency(ctx, db, "op1", "c1", "k1", now); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	// Empty conversation ID short-circuits without querying.
	if _, err := GetIdempotency(ctx, db, "op1", "", "k1", now); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for empty conversation, got %v", err)
	}

	rec, err := CreateIdempotency(ctx, db, "op1", "c1", "k1", "m1", 200, time.Hour)
	if err != nil {
		t.Fatalf("CreateIdempotency: %v", err)
	}
	if rec.MessageID != "m1" || rec.Status != 200 {
		t.Fatalf("bad record: %+v", rec)
	}

	got, err := GetIdempotency(ctx, db, "op1", "c1", "k1", now)
	if err != nil || got.ID != rec.ID {
		t.Fatalf("GetIdempotency: %v %+v", err, got)
	}

	// Same tuple again is a duplicate.
	if _, err := CreateIdempotency(ctx, db, "op1", "c1", "k1", "m2", 200, time.Hour); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
	// A different key for the same conversation is fine.
	if _, err := CreateIdempotency(ctx, db, "op1", "c1", "k2", "m3", 200, time.Hour); err != nil {
		t.Fatalf("distinct key should insert: %v", err)
	}

	// Expired records are invisible.
	if _, err := CreateIdempotency(ctx, db, "op1", "c2", "k1", "m4", 200, -time.Minute); err != nil {
		t.Fatalf("insert expired: %v", err)
	}
	if _, err := GetIdempotency(ctx, db, "op1", "c2", "k1", now); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expired record must be a miss, got %v", err)
	}
}

func TestRecordStoreLists(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if _, err := CreateCase(ctx, db, &domain.Case{Name: "John", Status: domain.CaseStatusActive, Country: "Canada"}); err != nil {
		t.Fatalf("CreateCase: %v", err)
	}
	if _, err := CreateStaff(ctx, db, &domain.Staff{Name: "Petra", Status: "active"}); err != nil {
		t.Fatalf("CreateStaff: %v", err)
	}

	c2, err := CreateCase(ctx, db, &domain.Case{Name: "Maria", Status: domain.CaseStatusPending, Country: "Australia"})
	if err != nil {
		t.Fatalf("CreateCase 2: %v", err)
	}
	if _, err := CreateDocument(ctx, db, &domain.Document{CaseID: c2.ID, Category: "identity", Status: domain.DocStatusPending, UploadedAt: time.Now()}); err != nil {
		t.Fatalf("CreateDocument: %v", err)
	}
	if _, err := CreatePayment(ctx, db, &domain.Payment{CaseID: c2.ID, Amount: 100, Currency: "EUR", Status: domain.PaymentStatusCompleted, PaidAt: time.Now()}); err != nil {
		t.Fatalf("CreatePayment: %v", err)
	}

	s := NewRecordStore(db)
	if cs, err := s.ListCases(ctx); err != nil || len(cs) != 2 {
		t.Fatalf("ListCases = %d, %v", len(cs), err)
	}
	if st, err := s.ListStaff(ctx); err != nil || len(st) != 1 {
		t.Fatalf("ListStaff = %d, %v", len(st), err)
	}
	if ds, err := s.ListDocuments(ctx); err != nil || len(ds) != 1 {
		t.Fatalf("ListDocuments = %d, %v", len(ds), err)
	}
	if ps, err := s.ListPayments(ctx); err != nil || len(ps) != 1 {
		t.Fatalf("ListPayments = %d, %v", len(ps), err)
	}
}

func TestStats(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	// Empty state: zero count, nil max.
	n, maxAt, err := ConversationsStats(ctx, db, "op1")
	if err != nil || n != 0 || maxAt != nil {
		t.Fatalf("empty conversations stats: %d %v %v", n, maxAt, err)
	}

	conv, _ := CreateConversation(ctx, db, "op1", "t")
	n, maxAt, err = ConversationsStats(ctx, db, "op1")
	if err != nil || n != 1 || maxAt == nil {
		t.Fatalf("conversations stats: %d %v %v", n, maxAt, err)
	}

	n, maxAt, err = MessagesStats(ctx, db, conv.ID)
	if err != nil || n != 0 || maxAt != nil {
		t.Fatalf("empty messages stats: %d %v %v", n, maxAt, err)
	}
	if _, err := CreateMessage(db, conv.ID, "user", "q", nil); err != nil {
		t.Fatalf("seed message: %v", err)
	}
	n, maxAt, err = MessagesStats(ctx, db, conv.ID)
	if err != nil || n != 1 || maxAt == nil {
		t.Fatalf("messages stats: %d %v %v", n, maxAt, err)
	}
}
