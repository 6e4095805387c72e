package domain

import (
	"time"

	"gorm.io/datatypes"
)

const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
	StatusRejected  = "rejected"
)

// QueryLog records one exchange with the AI service.
type QueryLog struct {
	ID           string            `gorm:"primaryKey;column:id" json:"id"`
	Question     string            `gorm:"column:question;not null" json:"question"`
	GeneratedSQL string            `gorm:"column:generated_sql;not null;default:''" json:"sql"`
	Explanation  string            `gorm:"column:explanation;not null;default:''" json:"explanation"`
	RowCount     int               `gorm:"column:row_count;not null;default:0" json:"rowCount"`
	Status       string            `gorm:"column:status;not null" json:"status"`
	Error        string            `gorm:"column:error;not null;default:''" json:"error,omitempty"`
	Context      datatypes.JSONMap `gorm:"column:context;type:jsonb" json:"context,omitempty"`
	DurationMS   int64             `gorm:"column:duration_ms;not null;default:0" json:"durationMs"`
	CreatedAt    time.Time         `gorm:"column:created_at;not null" json:"createdAt"`
}

func (QueryLog) TableName() string { return "chat_query_logs" }
