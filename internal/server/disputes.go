package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	disputedomain "github.com/smallbiznis/disputeops/internal/dispute/domain"
	"github.com/smallbiznis/disputeops/pkg/db/pagination"
)

type listRecordsQuery struct {
	PageToken    string `form:"page_token"`
	PageSize     int    `form:"page_size"`
	AcquirerBank string `form:"acquirer_bank"`
}

func (s *Server) ListRecords(c *gin.Context) {
	category := categoryFromContext(c)

	var query listRecordsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	startDate, endDate, ok := s.queryDates(c)
	if !ok {
		return
	}

	resp, err := s.disputeSvc.List(c.Request.Context(), disputedomain.ListRequest{
		Pagination: pagination.Pagination{
			PageToken: strings.TrimSpace(query.PageToken),
			PageSize:  query.PageSize,
		},
		Category:     category,
		StartDate:    startDate,
		EndDate:      endDate,
		AcquirerBank: strings.TrimSpace(query.AcquirerBank),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.audit(c, "VIEW_"+strings.ToUpper(string(category)), string(category), nil, map[string]any{
		"records": len(resp.Records),
	})
	c.JSON(http.StatusOK, gin.H{"data": resp.Records, "page_info": resp.PageInfo})
}

func (s *Server) GetRecord(c *gin.Context) {
	category := categoryFromContext(c)
	id := strings.TrimSpace(c.Param("id"))

	record, err := s.disputeSvc.Get(c.Request.Context(), category, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.audit(c, "VIEW_RECORD", string(category), &id, nil)
	c.JSON(http.StatusOK, gin.H{"data": record})
}

func (s *Server) GetRecordLink(c *gin.Context) {
	category := categoryFromContext(c)
	id := strings.TrimSpace(c.Param("id"))

	status, err := s.disputeSvc.LinkStatus(c.Request.Context(), category, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.audit(c, "VIEW_RECORD_LINK", string(category), &id, map[string]any{"linked": status.Linked})
	c.JSON(http.StatusOK, gin.H{"data": status})
}
