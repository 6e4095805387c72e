package server

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// queryInt reads an optional integer parameter. A missing or empty value
// yields 0 so the service applies its configured default; anything present
// must parse and fall inside [min, max].
func queryInt(c *gin.Context, name string, min, max int) (int, error) {
	raw, ok := c.GetQuery(name)
	if !ok {
		return 0, nil
	}
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0, nil
	}
	parsed, err := strconv.Atoi(trimmed)
	if err != nil || parsed < min || parsed > max {
		return 0, &ParamError{Name: name, Min: min, Max: max}
	}
	return parsed, nil
}
