package service

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/oklog/ulid/v2"
	"github.com/smallbiznis/vendorscope/internal/chat/domain"
	"github.com/smallbiznis/vendorscope/internal/clock"
	obsmetrics "github.com/smallbiznis/vendorscope/internal/observability/metrics"
	"github.com/smallbiznis/vendorscope/internal/retry"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	Clock   clock.Clock
	Repo    domain.Repository
	Client  domain.AIClient
	Metrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	clock   clock.Clock
	repo    domain.Repository
	client  domain.AIClient
	metrics *obsmetrics.Metrics
}

func NewService(p Params) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("chat.service"),
		clock:   p.Clock,
		repo:    p.Repo,
		client:  p.Client,
		metrics: p.Metrics,
	}
}

func (s *Service) Query(ctx context.Context, req domain.QueryRequest) (*domain.QueryResult, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" || utf8.RuneCountInString(question) > domain.MaxQuestionLength {
		return nil, domain.ErrInvalidQuestion
	}

	started := s.clock.Now()
	entry := &domain.QueryLog{
		ID:        ulid.Make().String(),
		Question:  question,
		CreatedAt: started.UTC(),
	}
	if len(req.Context) > 0 {
		entry.Context = datatypes.JSONMap(req.Context)
	}

	result, err := s.client.ProcessQuery(ctx, question, req.Context)
	entry.DurationMS = s.clock.Now().Sub(started).Milliseconds()
	if err != nil {
		entry.Status = domain.StatusFailed
		if isRejected(err) {
			entry.Status = domain.StatusRejected
		}
		entry.Error = err.Error()
		s.record(ctx, entry)
		s.log.Warn("chat query failed",
			zap.String("query_id", entry.ID),
			zap.String("status", entry.Status),
			zap.Error(err),
		)
		return nil, err
	}

	result.ID = entry.ID
	if result.Results == nil {
		result.Results = []map[string]any{}
	}
	entry.Status = domain.StatusSucceeded
	entry.GeneratedSQL = result.SQL
	entry.Explanation = result.Explanation
	entry.RowCount = len(result.Results)
	s.record(ctx, entry)

	return result, nil
}

func (s *Service) History(ctx context.Context, req domain.HistoryRequest) ([]domain.QueryLog, error) {
	limit := req.Limit
	if limit == 0 {
		limit = domain.DefaultHistory
	}
	if limit < 0 || limit > domain.MaxHistory {
		return nil, domain.ErrInvalidLimit
	}

	logs, err := s.repo.ListRecent(ctx, s.db, limit)
	if err != nil {
		return nil, err
	}
	if logs == nil {
		logs = []domain.QueryLog{}
	}
	return logs, nil
}

// record persists the exchange. A failed write is logged and never fails
// the caller's query.
func (s *Service) record(ctx context.Context, entry *domain.QueryLog) {
	if s.metrics != nil {
		s.metrics.RecordChatQuery(ctx, entry.Status)
	}
	if err := s.repo.Insert(ctx, s.db, entry); err != nil {
		s.log.Error("failed to store chat query log",
			zap.String("query_id", entry.ID),
			zap.Error(err),
		)
	}
}

func isRejected(err error) bool {
	var statusErr *retry.StatusError
	if !errors.As(err, &statusErr) {
		return false
	}
	return statusErr.StatusCode >= 400 && statusErr.StatusCode < 500 && !retry.IsRetryableStatus(statusErr.StatusCode)
}
