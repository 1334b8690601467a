package domain

import "time"

// Idempotency records the outcome of a previously accepted request, keyed by
// (scope, subject, key). Replays of the same key within the TTL return the
// recorded result instead of repeating side effects such as enqueueing a
// message twice.
type Idempotency struct {
	ID         string    `gorm:"type:TEXT NOT NULL;primaryKey"`
	Scope      string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_scope_subject_key,priority:1"`
	Subject    string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_scope_subject_key,priority:2"`
	Key        string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_scope_subject_key,priority:3"`
	ResourceID string    `gorm:"type:TEXT NOT NULL"`
	Status     int       `gorm:"type:INTEGER NOT NULL"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`
	ExpiresAt  time.Time `gorm:"not null;index"`
}

// TableName implements the GORM tabler interface.
func (Idempotency) TableName() string { return "idempotency" }
