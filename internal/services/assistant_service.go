// Package services – AssistantService
//
// This file implements AssistantService, the application-level component that
// owns the question/answer lifecycle inside a conversation. It validates
// inputs, checks conversation ownership, loads a fresh operational snapshot,
// delegates answer resolution to the configured Resolver, and persists the
// operator/assistant message pair atomically.
//
// Optional enhancement: it also auto-generates a conversation title from the
// first operator question when the conversation still has a default/empty
// title.
//
// Observability: all public methods are OpenTelemetry-instrumented; spans
// include conversation/operator identifiers and pagination parameters where
// applicable.
package services

import (
	"context"
	"regexp"
	"strings"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/rs/zerolog"

	"github.com/visaflow/crm-backend/internal/ai"
	"github.com/visaflow/crm-backend/internal/domain"
	"github.com/visaflow/crm-backend/internal/repo"
	"github.com/visaflow/crm-backend/internal/snapshot"

	// OpenTelemetry
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	roleOperator  = "user"
	roleAssistant = "assistant"

	// default titles we consider placeholder and eligible for auto-generation
	defaultTitleNew      = "New conversation"
	defaultTitleUntitled = "Untitled"
)

// SnapshotLoader supplies the point-in-time operational dataset answers are
// computed over.
type SnapshotLoader interface {
	Load(ctx context.Context) (*snapshot.Snapshot, error)
}

// Resolver turns one question plus one snapshot into answer text. The
// contract is total: implementations always return text, never an error.
type Resolver interface {
	Resolve(ctx context.Context, question string, snap *snapshot.Snapshot, cfg ai.Config) string
}

// AssistantService coordinates question validation, snapshot loading, answer
// resolution, and transcript persistence.
type AssistantService struct {
	DB       *gorm.DB
	Loader   SnapshotLoader
	Resolver Resolver
	AI       ai.Config

	// Optional guards
	MaxQuestionRunes int
	MaxAnswerRunes   int

	// Title generation config
	TitleLocale language.Tag
	TitleMaxLen int

	Logger zerolog.Logger
}

// Ask validates the question, verifies the conversation, resolves an answer
// over a fresh snapshot, and persists both operator and assistant messages
// atomically. It may auto-generate a conversation title.
func (s *AssistantService) Ask(ctx context.Context, operatorID, conversationID, question string) (*domain.Message, error) {
	tr := otel.Tracer("services/AssistantService")
	ctx, span := tr.Start(ctx, "Ask",
		trace.WithAttributes(
			attribute.String("conversation.id", conversationID),
			attribute.String("operator.id", operatorID),
		),
	)
	defer span.End()

	// Normalize & validate question
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}
	if s.MaxQuestionRunes > 0 && utf8.RuneCountInString(question) > s.MaxQuestionRunes {
		return nil, ErrQuestionTooLong
	}

	// Ensure the conversation exists and belongs to the operator
	conv, err := repo.GetConversation(ctx, s.DB, conversationID, operatorID)
	if err != nil {
		return nil, ErrConversationNotFound
	}

	// Load the dataset the answer is computed over. A load failure degrades
	// to an empty snapshot rather than failing the request.
	snap, err := s.Loader.Load(ctx)
	if err != nil {
		s.Logger.Warn().Err(err).Msg("snapshot load failed, answering over empty dataset")
		snap = &snapshot.Snapshot{}
	}

	answer := s.Resolver.Resolve(ctx, question, snap, s.AI)

	// Persist operator + assistant (and maybe update title) in one transaction
	var assistantMsg *domain.Message
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := repo.CreateMessage(tx, conversationID, roleOperator, question, nil); err != nil {
			return err
		}
		m, err := repo.CreateMessage(tx, conversationID, roleAssistant, answer, &question)
		if err != nil {
			return err
		}
		assistantMsg = m

		// Auto-title if placeholder
		if s.shouldAutoTitle(conv.Title) {
			gen := s.generateTitleFromQuestion(question)
			if gen != "" {
				gen = s.clipTitle(gen)
				if uerr := tx.Model(&domain.Conversation{}).Where("id = ?", conversationID).Update("title", gen).Error; uerr == nil {
					conv.Title = gen
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Clip answer length if configured
	if s.MaxAnswerRunes > 0 && utf8.RuneCountInString(assistantMsg.Content) > s.MaxAnswerRunes {
		runes := []rune(assistantMsg.Content)
		assistantMsg.Content = string(runes[:s.MaxAnswerRunes])
	}

	return assistantMsg, nil
}

// ListPage returns paginated messages for a conversation owned by the
// operator.
func (s *AssistantService) ListPage(ctx context.Context, operatorID, conversationID string, page, pageSize int) ([]domain.Message, int64, error) {
	tr := otel.Tracer("services/AssistantService")
	ctx, span := tr.Start(ctx, "ListPage",
		trace.WithAttributes(
			attribute.String("conversation.id", conversationID),
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	// Ensure conversation exists and belongs to the operator
	if _, err := repo.GetConversation(ctx, s.DB, conversationID, operatorID); err != nil {
		return nil, 0, ErrConversationNotFound
	}

	total, err := repo.CountMessages(s.DB.WithContext(ctx), conversationID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Message{}, 0, nil
	}

	items, err := repo.ListMessagesPage(s.DB.WithContext(ctx), conversationID, offset, pageSize)
	return items, total, err
}

// shouldAutoTitle reports whether the current title is a placeholder.
func (s *AssistantService) shouldAutoTitle(current string) bool {
	t := strings.TrimSpace(strings.ToLower(current))
	return t == "" || t == strings.ToLower(defaultTitleNew) || t == strings.ToLower(defaultTitleUntitled)
}

// generateTitleFromQuestion derives a concise title from the question.
func (s *AssistantService) generateTitleFromQuestion(question string) string {
	question = strings.TrimSpace(question)
	if question == "" {
		return ""
	}
	toks := titleWordRE.FindAllString(strings.ToLower(question), -1)
	if len(toks) == 0 {
		return ""
	}

	titleCaser := cases.Title(s.TitleLocaleOrDefault())
	out := make([]string, 0, 8)

	for _, w := range toks {
		if _, skip := titleStopWords[w]; skip {
			continue
		}
		out = append(out, titleCaser.String(w))
		if len(out) >= 8 {
			break
		}
	}
	if len(out) == 0 {
		return ""
	}
	return strings.Join(out, " ")
}

// clipTitle truncates a generated title to the configured maximum rune length.
func (s *AssistantService) clipTitle(title string) string {
	limit := s.TitleMaxLen
	if limit <= 0 {
		limit = 60
	}
	if utf8.RuneCountInString(title) > limit {
		return string([]rune(title)[:limit])
	}
	return title
}

// TitleLocaleOrDefault returns the configured locale for casing or English if
// unset.
func (s *AssistantService) TitleLocaleOrDefault() language.Tag {
	if s.TitleLocale == language.Und {
		return language.English
	}
	return s.TitleLocale
}

// --- Title generation helpers ---

// Extract Unicode letters with optional trailing numbers (e.g., "q3").
var titleWordRE = regexp.MustCompile(`[\p{L}]+[\p{N}]*`)

// Minimal English stop-words set for compact titles.
var titleStopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "of": {}, "to": {}, "in": {},
	"is": {}, "are": {}, "for": {}, "on": {}, "with": {}, "by": {}, "from": {},
	"at": {}, "as": {}, "that": {}, "this": {}, "it": {}, "be": {}, "was": {}, "were": {},
}
