package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	disputedomain "github.com/smallbiznis/disputeops/internal/dispute/domain"
)

const auditTargetDashboard = "dashboard"

func (s *Server) GetDailyVolumes(c *gin.Context) {
	date, ok := s.queryDate(c, "date")
	if !ok {
		return
	}

	resp, err := s.dashboardSvc.GetDailyVolumes(c.Request.Context(), date)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.audit(c, "VIEW_DAILY_VOLUMES", auditTargetDashboard, nil, map[string]any{"date": resp.Date})
	c.JSON(http.StatusOK, resp)
}

func (s *Server) GetMatchingRecords(c *gin.Context) {
	window, ok := s.queryWindow(c)
	if !ok {
		return
	}

	resp, err := s.dashboardSvc.GetMatchingRecords(c.Request.Context(), window)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.audit(c, "VIEW_MATCHING_RECORDS", auditTargetDashboard, nil, windowMetadata(window))
	c.JSON(http.StatusOK, resp)
}

func (s *Server) GetTodayCases(c *gin.Context) {
	date, ok := s.queryDate(c, "date")
	if !ok {
		return
	}
	limit, ok := queryInt(c, "limit")
	if !ok {
		return
	}
	offset, ok := queryInt(c, "offset")
	if !ok {
		return
	}

	resp, err := s.dashboardSvc.GetTodayCases(c.Request.Context(), date, limit, offset)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.audit(c, "VIEW_TODAY_CASES", auditTargetDashboard, nil, map[string]any{
		"limit":  limit,
		"offset": offset,
	})
	c.JSON(http.StatusOK, resp)
}

func (s *Server) GetTopIssuers(c *gin.Context) {
	date, ok := s.queryDate(c, "date")
	if !ok {
		return
	}
	limit, ok := s.rankingLimit(c)
	if !ok {
		return
	}

	resp, err := s.dashboardSvc.GetTopIssuers(c.Request.Context(), date, limit)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.audit(c, "VIEW_TOP_ISSUERS", auditTargetDashboard, nil, map[string]any{"limit": limit})
	c.JSON(http.StatusOK, resp)
}

func (s *Server) GetTopAcquirers(c *gin.Context) {
	date, ok := s.queryDate(c, "date")
	if !ok {
		return
	}
	limit, ok := s.rankingLimit(c)
	if !ok {
		return
	}

	resp, err := s.dashboardSvc.GetTopAcquirers(c.Request.Context(), date, limit)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.audit(c, "VIEW_TOP_ACQUIRERS", auditTargetDashboard, nil, map[string]any{"limit": limit})
	c.JSON(http.StatusOK, resp)
}

func (s *Server) GetVolumeHistory(c *gin.Context) {
	days, ok := queryInt(c, "days")
	if !ok {
		return
	}

	resp, err := s.dashboardSvc.GetVolumeHistory(c.Request.Context(), days)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.audit(c, "VIEW_VOLUME_HISTORY", auditTargetDashboard, nil, map[string]any{"days": resp.Days})
	c.JSON(http.StatusOK, resp)
}

func (s *Server) GetAnnualStatistics(c *gin.Context) {
	year, ok := queryInt(c, "year")
	if !ok {
		return
	}
	bank := strings.TrimSpace(c.Query("bank"))
	if bank == "" {
		bank = disputedomain.AllBanks
	}

	resp, err := s.dashboardSvc.GetAnnualStatistics(c.Request.Context(), year, bank)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.audit(c, "VIEW_ANNUAL_STATISTICS", auditTargetDashboard, nil, map[string]any{
		"year": resp.Year,
		"bank": resp.Bank,
	})
	c.JSON(http.StatusOK, resp)
}

func (s *Server) GetBankDistribution(c *gin.Context) {
	year, ok := queryInt(c, "year")
	if !ok {
		return
	}

	resp, err := s.dashboardSvc.GetBankDistribution(c.Request.Context(), year)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.audit(c, "VIEW_BANK_DISTRIBUTION", auditTargetDashboard, nil, map[string]any{"year": year})
	c.JSON(http.StatusOK, resp)
}

func (s *Server) GetMonthlyYearlyStatistics(c *gin.Context) {
	year, ok := queryInt(c, "year")
	if !ok {
		return
	}
	mode := c.Query("mode")

	resp, err := s.dashboardSvc.GetMonthlyYearlyStatistics(c.Request.Context(), year, mode)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.audit(c, "VIEW_MONTHLY_YEARLY_STATISTICS", auditTargetDashboard, nil, map[string]any{
		"year": resp.Year,
		"mode": resp.Mode,
	})
	c.JSON(http.StatusOK, resp)
}

func (s *Server) GetTodayData(c *gin.Context) {
	date, ok := s.queryDate(c, "date")
	if !ok {
		return
	}

	resp, err := s.dashboardSvc.GetTodayDataByCategory(c.Request.Context(), date)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.audit(c, "VIEW_TODAY_DATA", auditTargetDashboard, nil, nil)
	c.JSON(http.StatusOK, resp)
}

// rankingLimit reads limit, falling back to the configured ranking size.
func (s *Server) rankingLimit(c *gin.Context) (int, bool) {
	limit, ok := queryInt(c, "limit")
	if !ok {
		return 0, false
	}
	if limit == 0 {
		limit = s.dashboardCfg.Get().RankingLimit
	}
	return limit, true
}

func windowMetadata(window *disputedomain.Window) map[string]any {
	if window == nil {
		return map[string]any{"window": "all"}
	}
	return map[string]any{
		"start_date": window.Start.Format(dateOnlyLayout),
		"end_date":   window.End.Format(dateOnlyLayout),
	}
}
