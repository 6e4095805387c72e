package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	chatdomain "github.com/smallbiznis/vendorscope/internal/chat/domain"
	"github.com/smallbiznis/vendorscope/internal/vendoranalytics/report"
)

type chatQueryRequest struct {
	Question string         `json:"question"`
	Context  map[string]any `json:"context"`
}

type chatQueryResponse struct {
	Success   bool                    `json:"success"`
	Data      *chatdomain.QueryResult `json:"data"`
	Timestamp string                  `json:"timestamp"`
}

func (s *Server) ChatQuery(c *gin.Context) {
	var req chatQueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	res, err := s.chatSvc.Query(c.Request.Context(), chatdomain.QueryRequest{
		Question: req.Question,
		Context:  req.Context,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, chatQueryResponse{
		Success:   true,
		Data:      res,
		Timestamp: report.Timestamp(s.clock.Now()),
	})
}

func (s *Server) ListChatQueries(c *gin.Context) {
	limit, err := queryInt(c, "limit", 1, chatdomain.MaxHistory)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	logs, err := s.chatSvc.History(c.Request.Context(), chatdomain.HistoryRequest{Limit: limit})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, logs, gin.H{
		"count":     len(logs),
		"timestamp": report.Timestamp(s.clock.Now()),
	})
}
