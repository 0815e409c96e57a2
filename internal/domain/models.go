// Package domain defines the persistence models for the visa-consultancy CRM:
// cases, staff, documents, payments, plus the assistant conversation
// transcript (conversations, messages, feedback). These types are mapped with
// GORM and form the core data layer of the application.
package domain

import (
	"time"

	"gorm.io/gorm"
)

// Case lifecycle statuses.
const (
	CaseStatusActive    = "active"
	CaseStatusPending   = "pending"
	CaseStatusCompleted = "completed"
	CaseStatusInactive  = "inactive"
)

// Document review statuses.
const (
	DocStatusVerified = "verified"
	DocStatusPending  = "pending"
	DocStatusRejected = "rejected"
	DocStatusExpired  = "expired"
)

// Payment lifecycle statuses.
const (
	PaymentStatusCompleted = "completed"
	PaymentStatusPending   = "pending"
)

// Feedback verdicts recorded against assistant messages.
const (
	FeedbackGood = "good"
	FeedbackBad  = "bad"
)

// Case represents a single visa-consultancy client engagement tracked through
// lifecycle statuses.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - Name: client display name.
//   - Status: one of active|pending|completed|inactive (enforced by DB constraint).
//   - Country: target country, free text (not normalized here).
//   - VisaType: visa category, free text.
//   - AppointmentAt: optional scheduled appointment date/time.
//   - StaffID: optional reference to the assigned consultant.
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
//   - DeletedAt: soft deletion marker (retains row for audit/history).
type Case struct {
	ID            string         `json:"id"             gorm:"type:char(36);primaryKey"`
	Name          string         `json:"name"           gorm:"type:varchar(255);not null"`
	Status        string         `json:"status"         gorm:"type:varchar(16);not null;index;check:status IN ('active','pending','completed','inactive')"`
	Country       string         `json:"country"        gorm:"type:varchar(128)"`
	VisaType      string         `json:"visa_type"      gorm:"type:varchar(128)"`
	AppointmentAt *time.Time     `json:"appointment_at,omitempty"`
	StaffID       *string        `json:"staff_id,omitempty" gorm:"type:char(36);index"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `json:"-"              gorm:"index"`
}

// TableName returns the database table name for Case.
func (Case) TableName() string { return "cases" }

// Staff represents a consultant who can be assigned to cases.
//
// CaseCount is derived by the snapshot loader at read time and never stored;
// GORM ignores it.
type Staff struct {
	ID        string         `json:"id"         gorm:"type:char(36);primaryKey"`
	Name      string         `json:"name"       gorm:"type:varchar(255);not null"`
	Status    string         `json:"status"     gorm:"type:varchar(16);not null;default:'active'"`
	CaseCount int            `json:"case_count" gorm:"-"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-"          gorm:"index"`
}

// TableName returns the database table name for Staff.
func (Staff) TableName() string { return "staff" }

// Document represents an uploaded client document attached to a case.
//
// Category is one of identity|education|employment|financial|medical|other;
// Status is the review outcome (verified|pending|rejected|expired).
type Document struct {
	ID         string         `json:"id"          gorm:"type:char(36);primaryKey"`
	CaseID     string         `json:"case_id"     gorm:"type:char(36);not null;index"`
	Category   string         `json:"category"    gorm:"type:varchar(32);not null;check:category IN ('identity','education','employment','financial','medical','other')"`
	Status     string         `json:"status"      gorm:"type:varchar(16);not null;check:status IN ('verified','pending','rejected','expired')"`
	UploadedAt time.Time      `json:"uploaded_at"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `json:"-"           gorm:"index"`

	// Case is the owning engagement. Documents are cascade-deleted with it.
	Case Case `json:"-" gorm:"foreignKey:CaseID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Document.
func (Document) TableName() string { return "documents" }

// Payment represents a client payment associated with a case.
type Payment struct {
	ID        string         `json:"id"        gorm:"type:char(36);primaryKey"`
	CaseID    string         `json:"case_id"   gorm:"type:char(36);not null;index"`
	Amount    float64        `json:"amount"    gorm:"not null"`
	Currency  string         `json:"currency"  gorm:"type:char(3);not null;default:'EUR'"`
	Status    string         `json:"status"    gorm:"type:varchar(16);not null;check:status IN ('completed','pending')"`
	Category  string         `json:"category"  gorm:"type:varchar(64)"`
	PaidAt    time.Time      `json:"paid_at"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-"         gorm:"index"`

	// Case is the owning engagement. Payments are cascade-deleted with it.
	Case Case `json:"-" gorm:"foreignKey:CaseID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Payment.
func (Payment) TableName() string { return "payments" }

// Conversation represents an assistant conversation owned by an operator.
// Each conversation has a generated title and contains messages exchanged
// between the operator and the assistant.
type Conversation struct {
	ID         string         `json:"id"          gorm:"type:char(36);primaryKey"`
	OperatorID string         `json:"operator_id" gorm:"type:varchar(64);not null;index:idx_operator_convs"`
	Title      string         `json:"title"       gorm:"type:varchar(255);not null;default:'New conversation'"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `json:"-"           gorm:"index"`
}

// TableName returns the database table name for Conversation.
func (Conversation) TableName() string { return "conversations" }

// Message represents a single utterance within a conversation. Messages are
// authored either by the "user" (operator) or the "assistant". Assistant
// messages carry the originating question so feedback can be recorded against
// the question/answer pair, and an optional feedback verdict once rated.
//
// Fields:
//   - ID: UUID primary key (char(36)).
//   - ConversationID: foreign key to the owning conversation (indexed).
//   - Role: "user" or "assistant" (enforced by DB constraint).
//   - Content: full text content of the message.
//   - AskedQuestion: for assistant messages, the operator question answered.
//   - Feedback: "good" or "bad" once the operator has rated the answer; the
//     UI hides the feedback control when this is set.
type Message struct {
	ID             string         `json:"id"              gorm:"type:char(36);primaryKey"`
	ConversationID string         `json:"conversation_id" gorm:"type:char(36);not null;index:idx_conv_msgs,priority:1"`
	Role           string         `json:"role"            gorm:"type:varchar(16);not null;check:role IN ('user','assistant')"`
	Content        string         `json:"content"         gorm:"type:text;not null"`
	AskedQuestion  *string        `json:"asked_question,omitempty" gorm:"type:text"`
	Feedback       *string        `json:"feedback,omitempty" gorm:"type:varchar(8);check:feedback IN ('good','bad')"`
	CreatedAt      time.Time      `json:"created_at"      gorm:"index:idx_conv_msgs,priority:2"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `json:"-"               gorm:"index"`

	// Conversation is the parent transcript. Messages are cascade-deleted
	// if their conversation is removed.
	Conversation Conversation `json:"-" gorm:"foreignKey:ConversationID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Message.
func (Message) TableName() string { return "messages" }

// Feedback is the audit row behind a transcript verdict: it snapshots the
// question and answer text at rating time so the training collaborator has a
// stable record even if the message is later soft-deleted. At most one
// feedback row exists per message (enforced by unique index); the transcript
// message's Feedback column is the authoritative "already rated" signal.
type Feedback struct {
	ID        string         `json:"id"         gorm:"type:char(36);primaryKey"`
	MessageID string         `json:"message_id" gorm:"type:char(36);not null;uniqueIndex:ux_feedback_message"`
	Question  string         `json:"question"   gorm:"type:text;not null"`
	Answer    string         `json:"answer"     gorm:"type:text;not null"`
	Verdict   string         `json:"verdict"    gorm:"type:varchar(8);not null;check:verdict IN ('good','bad')"`
	Comment   *string        `json:"comment,omitempty" gorm:"type:text"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-"          gorm:"index"`

	// Message is the rated assistant message. Feedback is cascade-deleted
	// if the underlying message is removed.
	Message Message `json:"-" gorm:"foreignKey:MessageID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Feedback.
func (Feedback) TableName() string { return "feedback" }
