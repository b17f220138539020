package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/disputeops/internal/audit/domain"
	authdomain "github.com/smallbiznis/disputeops/internal/auth/domain"
	"github.com/smallbiznis/disputeops/internal/authorization"
	"github.com/smallbiznis/disputeops/internal/config"
	dashboarddomain "github.com/smallbiznis/disputeops/internal/dashboard/domain"
	disputedomain "github.com/smallbiznis/disputeops/internal/dispute/domain"
	"github.com/smallbiznis/disputeops/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	analystToken = "analyst-token"
	adminToken   = "admin-token"
	goodPassword = "correct-horse"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubAuth struct {
	principals map[string]*authdomain.Principal
	loggedOut  []string
	created    []authdomain.CreateUserRequest
}

func newStubAuth() *stubAuth {
	return &stubAuth{principals: map[string]*authdomain.Principal{
		analystToken: {User: authdomain.User{ID: snowflake.ID(1001), Username: "ana", Role: authdomain.RoleAnalyst, IsActive: true}},
		adminToken:   {User: authdomain.User{ID: snowflake.ID(1), Username: "admin", Role: authdomain.RoleAdmin, IsActive: true}},
	}}
}

func (s *stubAuth) CreateUser(_ context.Context, req authdomain.CreateUserRequest) (*authdomain.User, error) {
	s.created = append(s.created, req)
	return &authdomain.User{ID: snowflake.ID(2002), Username: req.Username, Email: req.Email, Role: req.Role, IsActive: true}, nil
}

func (s *stubAuth) EnsureUser(ctx context.Context, req authdomain.CreateUserRequest) (*authdomain.User, bool, error) {
	user, err := s.CreateUser(ctx, req)
	return user, true, err
}

func (s *stubAuth) Login(_ context.Context, req authdomain.LoginRequest) (*authdomain.LoginResult, error) {
	if req.Identifier != "ana" || req.Password != goodPassword {
		return nil, authdomain.ErrInvalidCredentials
	}
	return &authdomain.LoginResult{
		User:      s.principals[analystToken].User.View(),
		RawToken:  analystToken,
		ExpiresAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}, nil
}

func (s *stubAuth) Logout(_ context.Context, rawToken string) error {
	s.loggedOut = append(s.loggedOut, rawToken)
	return nil
}

func (s *stubAuth) Authenticate(_ context.Context, rawToken string) (*authdomain.Principal, error) {
	principal, ok := s.principals[rawToken]
	if !ok {
		return nil, authdomain.ErrInvalidSession
	}
	return principal, nil
}

func (s *stubAuth) GetUser(_ context.Context, id snowflake.ID) (*authdomain.User, error) {
	for _, p := range s.principals {
		if p.User.ID == id {
			user := p.User
			return &user, nil
		}
	}
	return nil, authdomain.ErrUserNotFound
}

type recordingAudit struct {
	mu      sync.Mutex
	actions []string
	fail    error
}

func (a *recordingAudit) AuditLog(_ context.Context, _ string, _ *string, action string, _ string, _ *string, _ map[string]any) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.fail != nil {
		return a.fail
	}
	a.actions = append(a.actions, action)
	return nil
}

func (a *recordingAudit) List(context.Context, auditdomain.ListAuditLogRequest) (auditdomain.ListAuditLogResponse, error) {
	return auditdomain.ListAuditLogResponse{AuditLogs: []auditdomain.AuditLog{}}, nil
}

func (a *recordingAudit) has(action string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, got := range a.actions {
		if got == action {
			return true
		}
	}
	return false
}

type stubDashboard struct {
	date   time.Time
	window *disputedomain.Window
	limit  int
	offset int
	year   int
	bank   string
	mode   string
	err    error
}

func (d *stubDashboard) GetDailyVolumes(_ context.Context, date time.Time) (dashboarddomain.DailyVolumes, error) {
	d.date = date
	return dashboarddomain.DailyVolumes{Date: date.Format(dateOnlyLayout)}, d.err
}

func (d *stubDashboard) GetMatchingRecords(_ context.Context, window *disputedomain.Window) (dashboarddomain.MatchingRecords, error) {
	d.window = window
	return dashboarddomain.MatchingRecords{}, d.err
}

func (d *stubDashboard) GetTodayCases(_ context.Context, date time.Time, limit, offset int) (dashboarddomain.TodayCases, error) {
	d.date, d.limit, d.offset = date, limit, offset
	return dashboarddomain.TodayCases{Limit: limit, Offset: offset}, d.err
}

func (d *stubDashboard) GetTopIssuers(_ context.Context, date time.Time, limit int) (dashboarddomain.TopIssuers, error) {
	d.date, d.limit = date, limit
	return dashboarddomain.TopIssuers{}, d.err
}

func (d *stubDashboard) GetTopAcquirers(_ context.Context, date time.Time, limit int) (dashboarddomain.TopAcquirers, error) {
	d.date, d.limit = date, limit
	return dashboarddomain.TopAcquirers{}, d.err
}

func (d *stubDashboard) GetVolumeHistory(_ context.Context, days int) (dashboarddomain.VolumeHistory, error) {
	d.limit = days
	return dashboarddomain.VolumeHistory{Days: days}, d.err
}

func (d *stubDashboard) GetAnnualStatistics(_ context.Context, year int, bank string) (dashboarddomain.AnnualStatistics, error) {
	d.year, d.bank = year, bank
	return dashboarddomain.AnnualStatistics{Year: year, Bank: bank}, d.err
}

func (d *stubDashboard) GetBankDistribution(_ context.Context, year int) (dashboarddomain.BankDistribution, error) {
	d.year = year
	return dashboarddomain.BankDistribution{Year: year}, d.err
}

func (d *stubDashboard) GetMonthlyYearlyStatistics(_ context.Context, year int, mode string) (dashboarddomain.PeriodSeries, error) {
	d.year, d.mode = year, mode
	return dashboarddomain.PeriodSeries{Year: year, Mode: mode}, d.err
}

func (d *stubDashboard) GetTodayDataByCategory(_ context.Context, date time.Time) (dashboarddomain.CategoryRecords, error) {
	d.date = date
	return dashboarddomain.CategoryRecords{}, d.err
}

type stubDisputes struct {
	listReq  disputedomain.ListRequest
	category disputedomain.Category
	id       string
}

func (d *stubDisputes) List(_ context.Context, req disputedomain.ListRequest) (disputedomain.ListResponse, error) {
	d.listReq = req
	return disputedomain.ListResponse{Category: req.Category, Records: []*disputedomain.Record{}}, nil
}

func (d *stubDisputes) Get(_ context.Context, category disputedomain.Category, id string) (*disputedomain.Record, error) {
	d.category, d.id = category, id
	if id == "404" {
		return nil, disputedomain.ErrNotFound
	}
	return &disputedomain.Record{ID: snowflake.ID(42)}, nil
}

func (d *stubDisputes) LinkStatus(_ context.Context, category disputedomain.Category, id string) (disputedomain.LinkStatus, error) {
	d.category, d.id = category, id
	return disputedomain.LinkStatus{ID: id, Category: category, Linked: true}, nil
}

func (d *stubDisputes) Ingest(context.Context, disputedomain.Category, []*disputedomain.Record) (int, error) {
	return 0, nil
}

type testServer struct {
	engine    *gin.Engine
	auth      *stubAuth
	audit     *recordingAudit
	dashboard *stubDashboard
	disputes  *stubDisputes
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	conn, err := db.NewTest()
	require.NoError(t, err)
	enforcer, err := authorization.NewEnforcer(conn)
	require.NoError(t, err)

	ts := &testServer{
		engine:    gin.New(),
		auth:      newStubAuth(),
		audit:     &recordingAudit{},
		dashboard: &stubDashboard{},
		disputes:  &stubDisputes{},
	}
	ts.engine.Use(ErrorHandlingMiddleware())

	NewServer(ServerParams{
		Gin:          ts.engine,
		Cfg:          config.Config{Timezone: "UTC"},
		Log:          zap.NewNop(),
		Authsvc:      ts.auth,
		AuthzSvc:     authorization.NewService(authorization.Params{Log: zap.NewNop(), Enforcer: enforcer}),
		AuditSvc:     ts.audit,
		DisputeSvc:   ts.disputes,
		DashboardSvc: ts.dashboard,
		DashboardCfg: config.StaticDashboardConfig(config.DefaultDashboardConfig()),
	})
	return ts
}

func (ts *testServer) do(method, path, token, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.engine.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorPayload {
	t.Helper()
	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Error
}

func TestAPIRequiresBearerToken(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodGet, "/api/dashboard/daily-volumes", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = ts.do(http.MethodGet, "/api/dashboard/daily-volumes", "unknown", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthorized", decodeError(t, rec).Type)
}

func TestDailyVolumesParsesDateAndAudits(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodGet, "/api/dashboard/daily-volumes?date=2024-12-09", analystToken, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, time.Date(2024, 12, 9, 0, 0, 0, 0, time.UTC), ts.dashboard.date)
	assert.Eventually(t, func() bool { return ts.audit.has("VIEW_DAILY_VOLUMES") }, time.Second, 10*time.Millisecond)

	rec = ts.do(http.MethodGet, "/api/dashboard/daily-volumes", analystToken, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, ts.dashboard.date.IsZero())
}

func TestDashboardRejectsMalformedQuery(t *testing.T) {
	ts := newTestServer(t)

	for _, path := range []string{
		"/api/dashboard/daily-volumes?date=09/12/2024",
		"/api/dashboard/today-cases?limit=ten",
		"/api/dashboard/volume-history?days=x",
		"/api/dashboard/annual-statistics?year=twenty",
		"/api/dashboard/matching-records?start_date=2024-12-09&end_date=2024-12-01",
	} {
		rec := ts.do(http.MethodGet, path, analystToken, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
		assert.Equal(t, "validation_error", decodeError(t, rec).Type, path)
	}
}

func TestDashboardServiceErrorsMapToStatus(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{dashboarddomain.ErrInvalidMode, http.StatusBadRequest},
		{dashboarddomain.ErrInvalidYear, http.StatusBadRequest},
		{fmt.Errorf("%w: %w", disputedomain.ErrTimeout, context.DeadlineExceeded), http.StatusGatewayTimeout},
		{fmt.Errorf("%w: %w", disputedomain.ErrStorageUnavailable, errors.New("conn refused")), http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		ts := newTestServer(t)
		ts.dashboard.err = tc.err

		rec := ts.do(http.MethodGet, "/api/dashboard/monthly-yearly-statistics?mode=weekly", analystToken, "")
		assert.Equal(t, tc.status, rec.Code, tc.err.Error())
	}
}

func TestMatchingRecordsWindow(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodGet, "/api/dashboard/matching-records", analystToken, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, ts.dashboard.window)

	rec = ts.do(http.MethodGet, "/api/dashboard/matching-records?start_date=2024-12-01", analystToken, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, ts.dashboard.window)
	assert.Equal(t, ts.dashboard.window.Start, ts.dashboard.window.End)

	rec = ts.do(http.MethodGet, "/api/dashboard/matching-records?start_date=2024-12-01&end_date=2024-12-09", analystToken, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 9, ts.dashboard.window.End.Day())
}

func TestTopRankingsDefaultLimit(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodGet, "/api/dashboard/top-issuers", analystToken, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, config.DefaultDashboardConfig().RankingLimit, ts.dashboard.limit)

	rec = ts.do(http.MethodGet, "/api/dashboard/top-acquirers?limit=3", analystToken, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 3, ts.dashboard.limit)
}

func TestAnnualStatisticsDefaultsToAllBanks(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodGet, "/api/dashboard/annual-statistics?year=2024", analystToken, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2024, ts.dashboard.year)
	assert.Equal(t, disputedomain.AllBanks, ts.dashboard.bank)

	rec = ts.do(http.MethodGet, "/api/dashboard/annual-statistics?bank=WORLDLINE", analystToken, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, ts.dashboard.year)
	assert.Equal(t, "WORLDLINE", ts.dashboard.bank)
}

func TestRecordRoutesCarryCategory(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodGet, "/api/issued-chargebacks?start_date=2024-12-01&acquirer_bank=INGENICO&page_size=10", analystToken, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, disputedomain.CategoryIssuedChargeback, ts.disputes.listReq.Category)
	assert.Equal(t, "INGENICO", ts.disputes.listReq.AcquirerBank)
	assert.Equal(t, 10, ts.disputes.listReq.PageSize)
	require.NotNil(t, ts.disputes.listReq.StartDate)
	assert.Nil(t, ts.disputes.listReq.EndDate)
	assert.Eventually(t, func() bool { return ts.audit.has("VIEW_ISSUED_CHARGEBACK") }, time.Second, 10*time.Millisecond)

	rec = ts.do(http.MethodGet, "/api/received-representments/77/link", analystToken, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, disputedomain.CategoryReceivedRepresentment, ts.disputes.category)
	assert.Equal(t, "77", ts.disputes.id)

	rec = ts.do(http.MethodGet, "/api/received-chargebacks/404", analystToken, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAuditLogsRequireAdmin(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodGet, "/api/audit-logs", analystToken, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(http.MethodGet, "/api/audit-logs?action=LOGIN", adminToken, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(http.MethodGet, "/api/audit-logs?start_at=yesterday", adminToken, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogin(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodPost, "/auth/login", "", `{"username":"ana","password":"`+goodPassword+`"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp loginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, analystToken, resp.Token)
	assert.Equal(t, "2025-01-01T00:00:00Z", resp.ExpiresAt)
	assert.Equal(t, "ana", resp.User.Username)
	assert.Eventually(t, func() bool { return ts.audit.has("LOGIN") }, time.Second, 10*time.Millisecond)

	rec = ts.do(http.MethodPost, "/auth/login", "", `{"username":"ana","password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Eventually(t, func() bool { return ts.audit.has("LOGIN_FAILED") }, time.Second, 10*time.Millisecond)

	rec = ts.do(http.MethodPost, "/auth/login", "", `{"password":"x"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogoutAndMe(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodGet, "/auth/me", analystToken, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"username":"ana"`)

	rec = ts.do(http.MethodPost, "/auth/logout", analystToken, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []string{analystToken}, ts.auth.loggedOut)
}

func TestRegister(t *testing.T) {
	ts := newTestServer(t)
	body := `{"username":"bob","email":"bob@bank.test","password":"long-enough","role":"Analyst"}`

	rec := ts.do(http.MethodPost, "/auth/register", analystToken, body)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(http.MethodPost, "/auth/register", adminToken, `{"username":"bob","email":"bob@bank.test","password":"short"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(http.MethodPost, "/auth/register", adminToken, body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.Len(t, ts.auth.created, 1)
	assert.Equal(t, authdomain.RoleAnalyst, ts.auth.created[0].Role)
	assert.Eventually(t, func() bool { return ts.audit.has("REGISTER_USER") }, time.Second, 10*time.Millisecond)
}

func TestAuditFailureDoesNotFailRequest(t *testing.T) {
	ts := newTestServer(t)
	ts.audit.fail = errors.New("audit store down")

	rec := ts.do(http.MethodGet, "/api/dashboard/today-data-by-category", analystToken, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestTodayDataServedOnBothPaths(t *testing.T) {
	ts := newTestServer(t)

	for _, path := range []string{"/api/dashboard/today-data-by-category", "/api/dashboard/today-data"} {
		rec := ts.do(http.MethodGet, path+"?date=2024-12-09", analystToken, "")
		require.Equal(t, http.StatusOK, rec.Code, path)
	}
	assert.Eventually(t, func() bool { return ts.audit.has("VIEW_TODAY_DATA") }, time.Second, 10*time.Millisecond)
}

func TestMonthlyYearlyStatisticsAuditAction(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodGet, "/api/dashboard/monthly-yearly-statistics?year=2024&mode=yearly", analystToken, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Eventually(t, func() bool { return ts.audit.has("VIEW_MONTHLY_YEARLY_STATISTICS") }, time.Second, 10*time.Millisecond)
}

func TestUnknownRouteIsNotFound(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodGet, "/api/nope", analystToken, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBearerToken(t *testing.T) {
	cases := map[string]string{
		"Bearer abc":   "abc",
		"bearer  abc ": "abc",
		"Basic abc":    "",
		"Bearer ":      "",
	}
	for header, want := range cases {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
		c.Request.Header.Set("Authorization", header)
		got, ok := bearerToken(c)
		assert.Equal(t, want, got, header)
		assert.Equal(t, want != "", ok, header)
	}
}
