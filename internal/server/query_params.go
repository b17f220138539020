package server

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	disputedomain "github.com/smallbiznis/disputeops/internal/dispute/domain"
)

const (
	dateOnlyLayout = "2006-01-02"
	timeLayout     = time.RFC3339
)

var errInvalidDate = errors.New("invalid_date")

// parseOptionalDate parses a calendar date in loc. An empty value yields the
// zero time.
func parseOptionalDate(value string, loc *time.Location) (time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return time.Time{}, nil
	}
	parsed, err := time.ParseInLocation(dateOnlyLayout, trimmed, loc)
	if err != nil {
		return time.Time{}, errInvalidDate
	}
	return parsed, nil
}

func parseOptionalInt(value string) (int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return 0, nil
	}
	return strconv.Atoi(trimmed)
}

func parseOptionalTime(value string) (*time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}
	if parsed, err := time.Parse(time.RFC3339, trimmed); err == nil {
		return &parsed, nil
	}
	return nil, errors.New("invalid_time")
}

// queryDate reads a date query parameter, aborting the request on failure.
func (s *Server) queryDate(c *gin.Context, name string) (time.Time, bool) {
	date, err := parseOptionalDate(c.Query(name), s.cfg.Location())
	if err != nil {
		AbortWithError(c, newValidationError(name, "invalid_"+name, "invalid "+name))
		return time.Time{}, false
	}
	return date, true
}

// queryInt reads an integer query parameter, aborting the request on failure.
func queryInt(c *gin.Context, name string) (int, bool) {
	value, err := parseOptionalInt(c.Query(name))
	if err != nil {
		AbortWithError(c, newValidationError(name, "invalid_"+name, "invalid "+name))
		return 0, false
	}
	return value, true
}

// queryDates reads start_date and end_date. Both absent means no bound.
func (s *Server) queryDates(c *gin.Context) (*time.Time, *time.Time, bool) {
	start, ok := s.queryDate(c, "start_date")
	if !ok {
		return nil, nil, false
	}
	end, ok := s.queryDate(c, "end_date")
	if !ok {
		return nil, nil, false
	}

	var startAt, endAt *time.Time
	if !start.IsZero() {
		startAt = &start
	}
	if !end.IsZero() {
		endAt = &end
	}
	return startAt, endAt, true
}

// queryWindow turns start_date and end_date into an inclusive window. A
// single bound covers that one date.
func (s *Server) queryWindow(c *gin.Context) (*disputedomain.Window, bool) {
	start, end, ok := s.queryDates(c)
	if !ok {
		return nil, false
	}
	if start == nil && end == nil {
		return nil, true
	}
	if start == nil {
		start = end
	}
	if end == nil {
		end = start
	}
	window, err := disputedomain.NewWindow(*start, *end, s.cfg.Location())
	if err != nil {
		AbortWithError(c, err)
		return nil, false
	}
	return &window, true
}
