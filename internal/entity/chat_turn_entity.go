package entity

import (
	"time"

	"github.com/google/uuid"
)

// ChatTurn is one finished ask/answer exchange on a thread.
type ChatTurn struct {
	Id               uuid.UUID `gorm:"type:uuid;primaryKey"`
	ThreadId         uuid.UUID `gorm:"type:uuid;index"`
	CorrelationId    uuid.UUID `gorm:"type:uuid;uniqueIndex"`
	UserMessage      string
	Status           string
	Answer           string
	SourcesJSON      string `gorm:"column:sources_json;type:jsonb"`
	PromptTokens     int
	CompletionTokens int
	Cost             float64
	CreatedAt        time.Time
}

// ThreadSnapshot is the durable copy of a thread's dialogue state, written
// after each turn so a thread survives cache eviction and restarts.
type ThreadSnapshot struct {
	ThreadId  uuid.UUID `gorm:"type:uuid;primaryKey"`
	StateJSON string    `gorm:"column:state_json;type:jsonb"`
	UpdatedAt time.Time
}
