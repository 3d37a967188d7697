package query

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"meetdesk-backend/shared/utils/response"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

// PageParams represents pagination parameters
type PageParams struct {
	Page  int
	Limit int
}

// Offset returns the number of rows to skip
func (p PageParams) Offset() int {
	return (p.Page - 1) * p.Limit
}

// ParsePageParams extracts page/limit from the query string
func ParsePageParams(c *gin.Context) PageParams {
	page, err := strconv.Atoi(c.Query("page"))
	if err != nil || page < 1 {
		page = DefaultPage
	}

	limit, err := strconv.Atoi(c.Query("limit"))
	if err != nil || limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	return PageParams{Page: page, Limit: limit}
}

// ParseDate accepts RFC3339 timestamps or plain YYYY-MM-DD dates (UTC midnight)
func ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", value)
	}
	return t.UTC(), nil
}

// ParseDateRange reads startDate/endDate. ok is false when either is missing or invalid.
func ParseDateRange(c *gin.Context) (from, to time.Time, ok bool) {
	startRaw, endRaw := c.Query("startDate"), c.Query("endDate")
	if startRaw == "" || endRaw == "" {
		return time.Time{}, time.Time{}, false
	}
	from, err := ParseDate(startRaw)
	if err != nil {
		return time.Time{}, time.Time{}, false
	}
	to, err = ParseDate(endRaw)
	if err != nil {
		return time.Time{}, time.Time{}, false
	}
	return from, to, true
}

// ApplySearch applies a case-insensitive OR search to specified fields
func ApplySearch(query *gorm.DB, search string, searchFields []string) *gorm.DB {
	if search == "" || len(searchFields) == 0 {
		return query
	}

	conditions := make([]string, len(searchFields))
	args := make([]interface{}, len(searchFields))

	for i, field := range searchFields {
		conditions[i] = fmt.Sprintf("%s ILIKE ?", field)
		args[i] = "%" + search + "%"
	}

	whereClause := strings.Join(conditions, " OR ")
	return query.Where(whereClause, args...)
}

// BuildPagination creates pagination metadata
func BuildPagination(params PageParams, total int64) response.Pagination {
	pages := (total + int64(params.Limit) - 1) / int64(params.Limit)
	return response.Pagination{
		Total: total,
		Page:  params.Page,
		Pages: pages,
		Limit: params.Limit,
	}
}
