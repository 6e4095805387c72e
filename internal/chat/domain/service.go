package domain

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

const (
	MaxQuestionLength = 2000
	DefaultHistory    = 20
	MaxHistory        = 100
)

type QueryRequest struct {
	Question string         `json:"question"`
	Context  map[string]any `json:"context,omitempty"`
}

// QueryResult is what the AI service produced for a question.
type QueryResult struct {
	ID          string           `json:"id"`
	SQL         string           `json:"sql"`
	Explanation string           `json:"explanation"`
	Results     []map[string]any `json:"results"`
}

type HistoryRequest struct {
	Limit int
}

type Service interface {
	Query(ctx context.Context, req QueryRequest) (*QueryResult, error)
	History(ctx context.Context, req HistoryRequest) ([]QueryLog, error)
}

// AIClient forwards a natural language question to the AI service.
type AIClient interface {
	ProcessQuery(ctx context.Context, question string, queryContext map[string]any) (*QueryResult, error)
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, entry *QueryLog) error
	ListRecent(ctx context.Context, db *gorm.DB, limit int) ([]QueryLog, error)
}

var (
	ErrInvalidQuestion      = errors.New("invalid_question")
	ErrInvalidLimit         = errors.New("invalid_limit")
	ErrAIServiceUnavailable = errors.New("ai_service_unavailable")
)
