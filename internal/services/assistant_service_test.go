package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	sqlite "github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/visaflow/crm-backend/internal/ai"
	"github.com/visaflow/crm-backend/internal/repo"
	"github.com/visaflow/crm-backend/internal/snapshot"
)

func newServiceDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

type stubLoader struct {
	snap *snapshot.Snapshot
	err  error
}

func (l *stubLoader) Load(context.Context) (*snapshot.Snapshot, error) {
	return l.snap, l.err
}

type stubResolver struct {
	answer string
	seen   *snapshot.Snapshot
}

func (r *stubResolver) Resolve(_ context.Context, _ string, snap *snapshot.Snapshot, _ ai.Config) string {
	r.seen = snap
	return r.answer
}

func newAssistant(t *testing.T, db *gorm.DB, answer string) (*AssistantService, *stubResolver) {
	t.Helper()
	res := &stubResolver{answer: answer}
	return &AssistantService{
		DB:               db,
		Loader:           &stubLoader{snap: &snapshot.Snapshot{}},
		Resolver:         res,
		MaxQuestionRunes: 2000,
		MaxAnswerRunes:   8000,
		TitleMaxLen:      60,
		Logger:           zerolog.Nop(),
	}, res
}

func TestAsk_PersistsQuestionAndAnswer(t *testing.T) {
	db := newServiceDB(t)
	ctx := context.Background()
	conv, err := repo.CreateConversation(ctx, db, "op1", "Budget planning")
	if err != nil {
		t.Fatalf("seed conversation: %v", err)
	}

	svc, _ := newAssistant(t, db, "there are 4 cases")
	m, err := svc.Ask(ctx, "op1", conv.ID, "  how many cases?  ")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if m.Role != roleAssistant || m.Content != "there are 4 cases" {
		t.Fatalf("assistant message wrong: %+v", m)
	}
	// Trimmed question travels with the assistant row.
	if m.AskedQuestion == nil || *m.AskedQuestion != "how many cases?" {
		t.Fatalf("asked question = %v", m.AskedQuestion)
	}

	msgs, err := repo.ListMessagesPage(db, conv.ID, 0, 10)
	if err != nil || len(msgs) != 2 {
		t.Fatalf("transcript = %d messages, %v", len(msgs), err)
	}
	if msgs[0].Role != roleOperator || msgs[0].Content != "how many cases?" {
		t.Fatalf("operator message wrong: %+v", msgs[0])
	}
}

func TestAsk_Validation(t *testing.T) {
	db := newServiceDB(t)
	ctx := context.Background()
	conv, _ := repo.CreateConversation(ctx, db, "op1", "t")
	svc, _ := newAssistant(t, db, "a")

	if _, err := svc.Ask(ctx, "op1", conv.ID, "   "); !errors.Is(err, ErrEmptyQuestion) {
		t.Fatalf("expected ErrEmptyQuestion, got %v", err)
	}

	svc.MaxQuestionRunes = 5
	if _, err := svc.Ask(ctx, "op1", conv.ID, "much too long"); !errors.Is(err, ErrQuestionTooLong) {
		t.Fatalf("expected ErrQuestionTooLong, got %v", err)
	}

	svc.MaxQuestionRunes = 2000
	if _, err := svc.Ask(ctx, "op1", "00000000-0000-0000-0000-000000000000", "q"); !errors.Is(err, ErrConversationNotFound) {
		t.Fatalf("expected ErrConversationNotFound, got %v", err)
	}
	// Foreign conversations are invisible, not forbidden.
	if _, err := svc.Ask(ctx, "op2", conv.ID, "q"); !errors.Is(err, ErrConversationNotFound) {
		t.Fatalf("expected ErrConversationNotFound for foreign operator, got %v", err)
	}
}

func TestAsk_SnapshotLoadFailureDegrades(t *testing.T) {
	db := newServiceDB(t)
	ctx := context.Background()
	conv, _ := repo.CreateConversation(ctx, db, "op1", "t")

	svc, res := newAssistant(t, db, "best effort answer")
	svc.Loader = &stubLoader{err: errors.New("store down")}

	m, err := svc.Ask(ctx, "op1", conv.ID, "how many cases?")
	if err != nil {
		t.Fatalf("Ask must survive a snapshot failure: %v", err)
	}
	if m.Content != "best effort answer" {
		t.Fatalf("answer = %q", m.Content)
	}
	if res.seen == nil || len(res.seen.Cases) != 0 {
		t.Fatalf("resolver should have received an empty snapshot, got %+v", res.seen)
	}
}

func TestAsk_AutoTitlesPlaceholderConversations(t *testing.T) {
	db := newServiceDB(t)
	ctx := context.Background()
	conv, _ := repo.CreateConversation(ctx, db, "op1", defaultTitleNew)

	svc, _ := newAssistant(t, db, "a")
	if _, err := svc.Ask(ctx, "op1", conv.ID, "what is the status of pending visa applications this month?"); err != nil {
		t.Fatalf("Ask: %v", err)
	}

	got, err := repo.GetConversation(ctx, db, conv.ID, "op1")
	if err != nil {
		t.Fatalf("GetConversation: %v", err)
	}
	if got.Title == defaultTitleNew || got.Title == "" {
		t.Fatalf("placeholder title not replaced: %q", got.Title)
	}
	// Stop words drop out and remaining words are title-cased.
	if !strings.Contains(got.Title, "Status") || !strings.Contains(got.Title, "Visa") {
		t.Fatalf("generated title = %q", got.Title)
	}
	if strings.Contains(got.Title, "The ") || strings.Contains(got.Title, " Of ") {
		t.Fatalf("stop words leaked into title: %q", got.Title)
	}
}

func TestAsk_KeepsCustomTitle(t *testing.T) {
	db := newServiceDB(t)
	ctx := context.Background()
	conv, _ := repo.CreateConversation(ctx, db, "op1", "Quarterly review")

	svc, _ := newAssistant(t, db, "a")
	if _, err := svc.Ask(ctx, "op1", conv.ID, "how many cases?"); err != nil {
		t.Fatalf("Ask: %v", err)
	}

	got, _ := repo.GetConversation(ctx, db, conv.ID, "op1")
	if got.Title != "Quarterly review" {
		t.Fatalf("custom title must not be overwritten: %q", got.Title)
	}
}

func TestAsk_ClipsLongAnswers(t *testing.T) {
	db := newServiceDB(t)
	ctx := context.Background()
	conv, _ := repo.CreateConversation(ctx, db, "op1", "t")

	svc, _ := newAssistant(t, db, strings.Repeat("λ", 100))
	svc.MaxAnswerRunes = 40

	m, err := svc.Ask(ctx, "op1", conv.ID, "q")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if got := len([]rune(m.Content)); got != 40 {
		t.Fatalf("returned answer = %d runes; want 40", got)
	}
}

func TestListPage_Messages(t *testing.T) {
	db := newServiceDB(t)
	ctx := context.Background()
	conv, _ := repo.CreateConversation(ctx, db, "op1", "t")

	svc, _ := newAssistant(t, db, "a")

	// Empty conversation returns an empty page without error.
	items, total, err := svc.ListPage(ctx, "op1", conv.ID, 1, 10)
	if err != nil || total != 0 || len(items) != 0 {
		t.Fatalf("empty ListPage: %v total=%d items=%d", err, total, len(items))
	}

	for i := 0; i < 3; i++ {
		if _, err := svc.Ask(ctx, "op1", conv.ID, "question"); err != nil {
			t.Fatalf("seed ask: %v", err)
		}
	}
	items, total, err = svc.ListPage(ctx, "op1", conv.ID, 1, 4)
	if err != nil || total != 6 || len(items) != 4 {
		t.Fatalf("ListPage: %v total=%d items=%d", err, total, len(items))
	}

	// Ownership is enforced on reads too.
	if _, _, err := svc.ListPage(ctx, "op2", conv.ID, 1, 10); !errors.Is(err, ErrConversationNotFound) {
		t.Fatalf("expected ErrConversationNotFound, got %v", err)
	}
}

func TestGenerateTitleFromQuestion(t *testing.T) {
	svc := &AssistantService{}

	if got := svc.generateTitleFromQuestion("the of and to"); got != "" {
		t.Fatalf("stop-word-only question should yield empty title, got %q", got)
	}
	if got := svc.generateTitleFromQuestion(""); got != "" {
		t.Fatalf("empty question should yield empty title, got %q", got)
	}
	got := svc.generateTitleFromQuestion("one two three four five six seven eight nine ten")
	if len(strings.Fields(got)) != 8 {
		t.Fatalf("title should cap at 8 words, got %q", got)
	}
}

func TestShouldAutoTitle(t *testing.T) {
	svc := &AssistantService{}
	for _, title := range []string{"", "  ", defaultTitleNew, "untitled", "NEW CONVERSATION"} {
		if !svc.shouldAutoTitle(title) {
			t.Errorf("shouldAutoTitle(%q) = false", title)
		}
	}
	if svc.shouldAutoTitle("Visa planning") {
		t.Fatalf("custom title must not auto-title")
	}
}
