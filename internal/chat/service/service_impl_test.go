package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/vendorscope/internal/chat/domain"
	"github.com/smallbiznis/vendorscope/internal/chat/repository"
	"github.com/smallbiznis/vendorscope/internal/clock"
	"github.com/smallbiznis/vendorscope/internal/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type aiClientMock struct {
	mock.Mock
	clock *clock.FakeClock
}

func (m *aiClientMock) ProcessQuery(ctx context.Context, question string, queryContext map[string]any) (*domain.QueryResult, error) {
	args := m.Called(ctx, question, queryContext)
	m.clock.Advance(150 * time.Millisecond)
	res, _ := args.Get(0).(*domain.QueryResult)
	return res, args.Error(1)
}

var testNow = time.Date(2024, 6, 30, 9, 30, 0, 0, time.UTC)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.QueryLog{}))
	return db
}

func newTestService(t *testing.T, client domain.AIClient, clk clock.Clock) (*Service, *gorm.DB) {
	t.Helper()
	db := setupTestDB(t)
	svc := NewService(Params{
		DB:     db,
		Log:    zap.NewNop(),
		Clock:  clk,
		Repo:   repository.Provide(),
		Client: client,
	}).(*Service)
	return svc, db
}

func TestQueryStoresSuccessfulExchange(t *testing.T) {
	clk := clock.NewFakeClock(testNow)
	client := &aiClientMock{clock: clk}
	client.On("ProcessQuery", mock.Anything, "top vendors", map[string]any{"year": 2024}).
		Return(&domain.QueryResult{
			SQL:         "SELECT name FROM vendors",
			Explanation: "lists vendors",
			Results:     []map[string]any{{"name": "Acme"}, {"name": "Globex"}},
		}, nil)

	svc, db := newTestService(t, client, clk)

	res, err := svc.Query(context.Background(), domain.QueryRequest{
		Question: "  top vendors  ",
		Context:  map[string]any{"year": 2024},
	})
	require.NoError(t, err)
	require.NotEmpty(t, res.ID)
	assert.Equal(t, "SELECT name FROM vendors", res.SQL)
	assert.Len(t, res.Results, 2)
	client.AssertExpectations(t)

	var stored domain.QueryLog
	require.NoError(t, db.First(&stored, "id = ?", res.ID).Error)
	assert.Equal(t, "top vendors", stored.Question)
	assert.Equal(t, domain.StatusSucceeded, stored.Status)
	assert.Equal(t, 2, stored.RowCount)
	assert.Equal(t, int64(150), stored.DurationMS)
	assert.Equal(t, "lists vendors", stored.Explanation)
	assert.Equal(t, json.Number("2024"), stored.Context["year"])
}

func TestQueryRejectsBlankQuestion(t *testing.T) {
	clk := clock.NewFakeClock(testNow)
	client := &aiClientMock{clock: clk}
	svc, db := newTestService(t, client, clk)

	_, err := svc.Query(context.Background(), domain.QueryRequest{Question: "   "})
	require.ErrorIs(t, err, domain.ErrInvalidQuestion)
	client.AssertNotCalled(t, "ProcessQuery", mock.Anything, mock.Anything, mock.Anything)

	var count int64
	require.NoError(t, db.Model(&domain.QueryLog{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestQueryLogsFailure(t *testing.T) {
	clk := clock.NewFakeClock(testNow)
	client := &aiClientMock{clock: clk}
	upstream := fmt.Errorf("%w: %w", domain.ErrAIServiceUnavailable, &retry.StatusError{StatusCode: http.StatusServiceUnavailable})
	client.On("ProcessQuery", mock.Anything, "spend by month", map[string]any(nil)).Return(nil, upstream)

	svc, db := newTestService(t, client, clk)

	_, err := svc.Query(context.Background(), domain.QueryRequest{Question: "spend by month"})
	require.ErrorIs(t, err, domain.ErrAIServiceUnavailable)

	var stored domain.QueryLog
	require.NoError(t, db.First(&stored).Error)
	assert.Equal(t, domain.StatusFailed, stored.Status)
	assert.Contains(t, stored.Error, "503")
}

func TestQueryMarksRejectedQuestions(t *testing.T) {
	clk := clock.NewFakeClock(testNow)
	client := &aiClientMock{clock: clk}
	upstream := fmt.Errorf("%w: %w", domain.ErrAIServiceUnavailable, &retry.StatusError{StatusCode: http.StatusUnprocessableEntity, Body: "unsupported"})
	client.On("ProcessQuery", mock.Anything, "drop table vendors", map[string]any(nil)).Return(nil, upstream)

	svc, db := newTestService(t, client, clk)

	_, err := svc.Query(context.Background(), domain.QueryRequest{Question: "drop table vendors"})
	require.Error(t, err)

	var stored domain.QueryLog
	require.NoError(t, db.First(&stored).Error)
	assert.Equal(t, domain.StatusRejected, stored.Status)
}

func TestHistoryReturnsNewestFirst(t *testing.T) {
	clk := clock.NewFakeClock(testNow)
	client := &aiClientMock{clock: clk}
	client.On("ProcessQuery", mock.Anything, mock.Anything, mock.Anything).
		Return(&domain.QueryResult{SQL: "SELECT 1"}, nil)

	svc, _ := newTestService(t, client, clk)

	for _, q := range []string{"first", "second", "third"} {
		_, err := svc.Query(context.Background(), domain.QueryRequest{Question: q})
		require.NoError(t, err)
		clk.Advance(time.Minute)
	}

	logs, err := svc.History(context.Background(), domain.HistoryRequest{Limit: 2})
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, "third", logs[0].Question)
	assert.Equal(t, "second", logs[1].Question)

	_, err = svc.History(context.Background(), domain.HistoryRequest{Limit: domain.MaxHistory + 1})
	assert.ErrorIs(t, err, domain.ErrInvalidLimit)
}
