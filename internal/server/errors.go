package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	chatdomain "github.com/smallbiznis/vendorscope/internal/chat/domain"
	"github.com/smallbiznis/vendorscope/internal/clock"
	vendordomain "github.com/smallbiznis/vendorscope/internal/vendoranalytics/domain"
	"github.com/smallbiznis/vendorscope/internal/vendoranalytics/report"
)

type errorResponse struct {
	Success   bool   `json:"success"`
	Error     string `json:"error"`
	Timestamp string `json:"timestamp"`
}

var (
	ErrInternal           = errors.New("internal_error")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrRateLimited        = errors.New("rate_limited")
	ErrServiceUnavailable = errors.New("service_unavailable")
)

// ParamError is a query parameter that is not an integer inside its bounds.
type ParamError struct {
	Name     string
	Min, Max int
}

func (e *ParamError) Error() string {
	return fmt.Sprintf("invalid %s: must be an integer between %d and %d", e.Name, e.Min, e.Max)
}

func (e *ParamError) Unwrap() error { return ErrInvalidRequest }

func ErrorHandlingMiddleware(clk clock.Clock) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, message := mapError(lastErr.Err)
		c.AbortWithStatusJSON(status, errorResponse{
			Success:   false,
			Error:     message,
			Timestamp: report.Timestamp(clk.Now()),
		})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func mapError(err error) (int, string) {
	if err == nil {
		return http.StatusInternalServerError, "internal server error"
	}

	var paramErr *ParamError
	switch {
	case errors.As(err, &paramErr):
		return http.StatusBadRequest, paramErr.Error()
	case isValidationError(err):
		return http.StatusBadRequest, validationMessage(err)
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, "rate limit exceeded"
	case errors.Is(err, vendordomain.ErrDataSourceUnavailable):
		return http.StatusInternalServerError, err.Error()
	case errors.Is(err, chatdomain.ErrAIServiceUnavailable):
		return http.StatusBadGateway, "ai service unavailable"
	case errors.Is(err, ErrServiceUnavailable):
		return http.StatusServiceUnavailable, "service unavailable"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, vendordomain.ErrInvalidLimit),
		errors.Is(err, vendordomain.ErrInvalidTimeframe),
		errors.Is(err, vendordomain.ErrInvalidMonths),
		errors.Is(err, vendordomain.ErrInvalidTopVendors),
		errors.Is(err, chatdomain.ErrInvalidQuestion),
		errors.Is(err, chatdomain.ErrInvalidLimit):
		return true
	default:
		return false
	}
}

func validationMessage(err error) string {
	switch {
	case errors.Is(err, vendordomain.ErrInvalidLimit):
		return fmt.Sprintf("invalid limit: must be an integer between 1 and %d", vendordomain.MaxLimit)
	case errors.Is(err, vendordomain.ErrInvalidTimeframe):
		return fmt.Sprintf("invalid timeframe: must be an integer between 1 and %d", vendordomain.MaxWindow)
	case errors.Is(err, vendordomain.ErrInvalidMonths):
		return fmt.Sprintf("invalid months: must be an integer between 1 and %d", vendordomain.MaxWindow)
	case errors.Is(err, vendordomain.ErrInvalidTopVendors):
		return fmt.Sprintf("invalid topVendors: must be an integer between 1 and %d", vendordomain.MaxTopVendors)
	case errors.Is(err, chatdomain.ErrInvalidQuestion):
		return fmt.Sprintf("invalid question: must be between 1 and %d characters", chatdomain.MaxQuestionLength)
	case errors.Is(err, chatdomain.ErrInvalidLimit):
		return fmt.Sprintf("invalid limit: must be an integer between 1 and %d", chatdomain.MaxHistory)
	default:
		return "invalid request"
	}
}

// classifyErrorForLog feeds the request logger's error_type and error_code.
func classifyErrorForLog(err error) (string, string) {
	status, _ := mapError(err)
	switch {
	case status == http.StatusBadRequest:
		return "validation_error", err.Error()
	case status == http.StatusTooManyRequests:
		return "rate_limited", ErrRateLimited.Error()
	case errors.Is(err, vendordomain.ErrDataSourceUnavailable):
		return "data_source_error", vendordomain.ErrDataSourceUnavailable.Error()
	case errors.Is(err, chatdomain.ErrAIServiceUnavailable):
		return "upstream_error", chatdomain.ErrAIServiceUnavailable.Error()
	default:
		return "internal_error", ErrInternal.Error()
	}
}
