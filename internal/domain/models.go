// Package domain defines the persistence models for diary users, their
// messages, the structured facts extracted from each message, and the
// requirement/topic catalogs that drive clarification. These types are mapped
// with GORM and shared by the repository and service layers.
package domain

import (
	"time"

	"gorm.io/datatypes"
)

// NoTopic is stored in Message.Topic when topic resolution concluded that the
// message does not belong to any supported topic. A nil Topic means resolution
// has not happened yet.
const NoTopic = "no_topic"

// User is the identity anchor for a chat-platform account.
//
// Fields:
//   - ID: UUID primary key (char(36)).
//   - TelegramID: external chat-platform id; unique.
//   - Username: display name reported by the chat platform.
//   - IsActive: soft activation flag.
type User struct {
	ID         string    `json:"id"          gorm:"type:char(36);primaryKey"`
	TelegramID int64     `json:"telegram_id" gorm:"not null;uniqueIndex:ux_users_telegram_id"`
	Username   string    `json:"username"    gorm:"type:varchar(255);not null;default:''"`
	IsActive   bool      `json:"is_active"   gorm:"not null;default:true"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// Message is one user utterance after debouncing.
//
// Topic and IsComplete are tri-state: nil means "not decided yet".
// TokenUsage accumulates the inference-service cost of every call made while
// processing the message.
type Message struct {
	ID          string    `json:"id"           gorm:"type:char(36);primaryKey"`
	UserID      string    `json:"user_id"      gorm:"type:char(36);not null;index:idx_user_msgs,priority:1"`
	ExternalID  int64     `json:"external_id"  gorm:"not null;default:0"`
	Text        string    `json:"text"         gorm:"type:text;not null"`
	Topic       *string   `json:"topic"        gorm:"type:varchar(255)"`
	IsComplete  *bool     `json:"is_complete"`
	IsProcessed bool      `json:"is_processed" gorm:"not null;default:false"`
	TokenUsage  int       `json:"token_usage"  gorm:"not null;default:0"`
	SentAt      time.Time `json:"sent_at"`
	CreatedAt   time.Time `json:"created_at"   gorm:"index:idx_user_msgs,priority:2"`
	UpdatedAt   time.Time `json:"updated_at"`

	// User owns the message. Messages are cascade-deleted with their user.
	User User `json:"-" gorm:"foreignKey:UserID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Message.
func (Message) TableName() string { return "messages" }

// Entity is the structured attribute set extracted from exactly one message.
// MessageID is the primary key, so a message can never own two rows.
type Entity struct {
	MessageID     string  `json:"message_id"     gorm:"type:char(36);primaryKey"`
	Attributes    `gorm:"embedded"`
	TopicID       *uint   `json:"topic_id"       gorm:"index"`
	RequirementID *uint   `json:"requirement_id" gorm:"index"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Message     Message      `json:"-" gorm:"foreignKey:MessageID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Topic       *Topic       `json:"-" gorm:"foreignKey:TopicID;references:ID;constraint:OnDelete:SET NULL"`
	Requirement *Requirement `json:"-" gorm:"foreignKey:RequirementID;references:ID;constraint:OnDelete:SET NULL"`
}

// TableName returns the database table name for Entity.
func (Entity) TableName() string { return "entities" }

// Requirement lists the fields that must be filled for an (action, object)
// pair and the question to ask for each of them. Absent action or object is
// stored as the empty string so the pair index stays unique.
type Requirement struct {
	ID             uint                                  `json:"id"              gorm:"primaryKey;autoIncrement"`
	Action         string                                `json:"action"          gorm:"type:varchar(255);not null;default:'';uniqueIndex:ux_requirement_pair,priority:1"`
	Object         string                                `json:"object"          gorm:"type:varchar(255);not null;default:'';uniqueIndex:ux_requirement_pair,priority:2"`
	RequiredFields datatypes.JSONSlice[string]           `json:"required_fields"`
	Questions      datatypes.JSONType[map[string]string] `json:"questions"`
	CreatedAt      time.Time                             `json:"created_at"`
	UpdatedAt      time.Time                             `json:"updated_at"`
}

// TableName returns the database table name for Requirement.
func (Requirement) TableName() string { return "entity_requirements" }

// Topic is a named classification bucket.
type Topic struct {
	ID        uint      `json:"id"         gorm:"primaryKey;autoIncrement"`
	Name      string    `json:"name"       gorm:"type:varchar(255);not null;uniqueIndex:ux_topics_name"`
	CreatedAt time.Time `json:"created_at"`

	Keywords []Keyword `json:"keywords,omitempty" gorm:"foreignKey:TopicID;references:ID"`
}

// TableName returns the database table name for Topic.
func (Topic) TableName() string { return "topics" }

// Keyword links a word to exactly one topic. A word appears at most once per
// topic (ux_keyword_topic_word).
type Keyword struct {
	ID        uint      `json:"id"         gorm:"primaryKey;autoIncrement"`
	TopicID   uint      `json:"topic_id"   gorm:"not null;index;uniqueIndex:ux_keyword_topic_word,priority:1"`
	Word      string    `json:"word"       gorm:"type:varchar(255);not null;index;uniqueIndex:ux_keyword_topic_word,priority:2"`
	CreatedAt time.Time `json:"created_at"`

	Topic Topic `json:"-" gorm:"foreignKey:TopicID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Keyword.
func (Keyword) TableName() string { return "keywords" }

// Prompt is a named prompt template used by inference calls.
type Prompt struct {
	Name      string    `json:"name"    gorm:"type:varchar(64);primaryKey"`
	Content   string    `json:"content" gorm:"type:text;not null"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for Prompt.
func (Prompt) TableName() string { return "prompts" }

// PromptDefineTopic names the prompt appended to keyword lists when asking the
// inference service for a topic.
const PromptDefineTopic = "define_topic"
