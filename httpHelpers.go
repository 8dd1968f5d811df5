package main

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/retail_ledger/config"
	"bitbucket.org/mmdatafocus/retail_ledger/models"
	"bitbucket.org/mmdatafocus/retail_ledger/utils"
	"github.com/gin-gonic/gin"
)

const dateLayout = "2006-01-02"

// errBadQuery marks malformed query parameters; it renders like a validation error.
var errBadQuery = models.NewLedgerError(models.KindValidation, "InvalidQuery", "invalid query parameter")

func statusOf(err error) int {
	if errors.Is(err, utils.ErrLockNotObtained) {
		return http.StatusConflict
	}
	switch models.KindOf(err) {
	case models.KindValidation, models.KindQuery:
		return http.StatusBadRequest
	case models.KindBusinessRule:
		return http.StatusUnprocessableEntity
	case models.KindNotFound:
		return http.StatusNotFound
	case models.KindConflict:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// respondError is the single place domain errors become HTTP responses.
func respondError(c *gin.Context, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		config.LogError(config.GetLogger(), "server", c.HandlerName(), c.FullPath(), nil, err)
		_ = c.Error(err)
		c.AbortWithStatusJSON(status, gin.H{"error": "InternalError", "message": "internal server error"})
		return
	}
	code := models.CodeOf(err)
	if code == "" && errors.Is(err, utils.ErrLockNotObtained) {
		code = "Busy"
	}
	c.AbortWithStatusJSON(status, gin.H{"error": code, "message": err.Error()})
}

func bindJSON(c *gin.Context, dest any) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":  "InvalidRequest",
			"fields": utils.ProcessValidationErrors(err),
		})
		return false
	}
	return true
}

func pathId(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		respondError(c, fmt.Errorf("%w: id %q", errBadQuery, c.Param("id")))
		return 0, false
	}
	return id, true
}

func queryString(c *gin.Context, key string) *string {
	return utils.NilIfEmpty(strings.TrimSpace(c.Query(key)))
}

func queryInt(c *gin.Context, key string) (*int, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be an integer", errBadQuery, key)
	}
	return &n, nil
}

func queryBool(c *gin.Context, key string) (*bool, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be true or false", errBadQuery, key)
	}
	return &b, nil
}

// queryDate parses YYYY-MM-DD as midnight UTC.
func queryDate(c *gin.Context, key string) (*time.Time, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be YYYY-MM-DD", errBadQuery, key)
	}
	return &t, nil
}

func queryInts(c *gin.Context, key string) ([]int, error) {
	ids, err := utils.ParseIntList(c.Query(key))
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be a comma separated list of integers", errBadQuery, key)
	}
	return ids, nil
}
