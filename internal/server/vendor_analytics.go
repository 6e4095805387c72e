package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	vendordomain "github.com/smallbiznis/vendorscope/internal/vendoranalytics/domain"
)

type successResponse struct {
	Success  bool `json:"success"`
	Data     any  `json:"data"`
	Metadata any  `json:"metadata"`
}

func respond(c *gin.Context, data, metadata any) {
	c.JSON(http.StatusOK, successResponse{
		Success:  true,
		Data:     data,
		Metadata: metadata,
	})
}

func (s *Server) GetPerformanceScorecard(c *gin.Context) {
	limit, err := queryInt(c, "limit", 1, vendordomain.MaxLimit)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	timeframe, err := queryInt(c, "timeframe", 1, vendordomain.MaxWindow)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.vendorAnalyticsSvc.GetPerformanceScorecard(c.Request.Context(), vendordomain.PerformanceRequest{
		Limit:     limit,
		Timeframe: timeframe,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, resp.Data, resp.Metadata)
}

func (s *Server) GetPaymentReliability(c *gin.Context) {
	limit, err := queryInt(c, "limit", 1, vendordomain.MaxLimit)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.vendorAnalyticsSvc.GetPaymentReliability(c.Request.Context(), vendordomain.PaymentReliabilityRequest{
		Limit: limit,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, resp.Data, resp.Metadata)
}

func (s *Server) GetSpendingTrends(c *gin.Context) {
	months, err := queryInt(c, "months", 1, vendordomain.MaxWindow)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	topVendors, err := queryInt(c, "topVendors", 1, vendordomain.MaxTopVendors)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.vendorAnalyticsSvc.GetSpendingTrends(c.Request.Context(), vendordomain.SpendingTrendsRequest{
		Months:     months,
		TopVendors: topVendors,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, resp.Data, resp.Metadata)
}

func (s *Server) GetRiskAssessment(c *gin.Context) {
	limit, err := queryInt(c, "limit", 1, vendordomain.MaxLimit)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.vendorAnalyticsSvc.GetRiskAssessment(c.Request.Context(), vendordomain.RiskAssessmentRequest{
		Limit: limit,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, resp.Data, resp.Metadata)
}
