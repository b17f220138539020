package scheduler

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	auditdomain "github.com/smallbiznis/disputeops/internal/audit/domain"
	"github.com/smallbiznis/disputeops/internal/authorization"
	"github.com/smallbiznis/disputeops/internal/clock"
	"github.com/smallbiznis/disputeops/internal/config"
	"github.com/smallbiznis/disputeops/internal/dispute/disputetest"
	disputedomain "github.com/smallbiznis/disputeops/internal/dispute/domain"
	"github.com/smallbiznis/disputeops/internal/dispute/repository"
	"github.com/smallbiznis/disputeops/internal/dispute/service"
	"github.com/smallbiznis/disputeops/internal/ingest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const batch = `processed_at,affiliation_number,merchant_name,agency,account,authorization_code,acquirer_reference,amount_presented,issuer_bank,acquirer_bank
2024-12-09T08:30:00Z,AFF001,Commerce Plus SARL,AGE001,CPT001,AUTH001,WL001,1250.50,BNP PARIBAS,WORLDLINE
`

type recordingAudit struct {
	mu      sync.Mutex
	targets []string
}

func (a *recordingAudit) AuditLog(_ context.Context, _ string, _ *string, action string, targetType string, _ *string, _ map[string]any) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.targets = append(a.targets, action+":"+targetType)
	return nil
}

func (a *recordingAudit) List(context.Context, auditdomain.ListAuditLogRequest) (auditdomain.ListAuditLogResponse, error) {
	return auditdomain.ListAuditLogResponse{}, nil
}

type fixture struct {
	sched *Scheduler
	audit *recordingAudit
	conn  *gorm.DB
	dir   string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	conn := disputetest.NewDB(t)
	svc := service.NewService(service.Params{
		DB:     conn,
		Log:    zap.NewNop(),
		GenID:  disputetest.Node(t),
		Repo:   repository.Provide(),
		Config: config.Config{Timezone: "UTC"},
	})
	ledger, err := ingest.OpenLedger(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = ledger.Close() })

	enforcer, err := authorization.NewEnforcer(conn)
	require.NoError(t, err)
	authz := authorization.NewService(authorization.Params{Log: zap.NewNop(), Enforcer: enforcer})

	f := &fixture{audit: &recordingAudit{}, conn: conn, dir: t.TempDir()}
	f.sched = newScheduler(zap.NewNop(), Config{DropDir: f.dir}, ingest.NewImporter(ledger, svc, zap.NewNop()),
		authz, f.audit, disputetest.Node(t), clock.NewFakeClock(time.Date(2024, 12, 9, 0, 0, 0, 0, time.UTC)), nil)
	return f
}

func (f *fixture) drop(t *testing.T, category disputedomain.Category, name, content string) {
	t.Helper()
	dir := filepath.Join(f.dir, category.Path())
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
}

func (f *fixture) count(t *testing.T, category disputedomain.Category) int64 {
	t.Helper()
	n, err := repository.Provide().Count(context.Background(), f.conn, category, disputedomain.Filter{})
	require.NoError(t, err)
	return n
}

func TestImportDropDirImportsEachFileOnce(t *testing.T) {
	f := newFixture(t)
	f.drop(t, disputedomain.CategoryReceivedChargeback, "rcb-1.csv", batch)
	f.drop(t, disputedomain.CategoryIssuedChargeback, "icb-1.CSV", batch)
	f.drop(t, disputedomain.CategoryIssuedChargeback, "notes.txt", "not a batch")

	require.NoError(t, f.sched.RunOnce(context.Background()))
	assert.Equal(t, int64(1), f.count(t, disputedomain.CategoryReceivedChargeback))
	assert.Equal(t, int64(1), f.count(t, disputedomain.CategoryIssuedChargeback))
	assert.Equal(t, int64(0), f.count(t, disputedomain.CategoryIssuedRepresentment))
	assert.ElementsMatch(t, []string{"IMPORT_BATCH:received_chargeback", "IMPORT_BATCH:issued_chargeback"}, f.audit.targets)

	require.NoError(t, f.sched.RunOnce(context.Background()))
	assert.Equal(t, int64(1), f.count(t, disputedomain.CategoryReceivedChargeback))
	assert.Len(t, f.audit.targets, 2)
}

func TestImportDropDirContinuesPastBadFile(t *testing.T) {
	f := newFixture(t)
	f.drop(t, disputedomain.CategoryReceivedRepresentment, "a-bad.csv", "account,agency\nx,y\n")
	f.drop(t, disputedomain.CategoryReceivedRepresentment, "b-good.csv", batch)

	err := f.sched.RunOnce(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ingest.ErrMissingColumn), "err = %v", err)
	assert.Equal(t, int64(1), f.count(t, disputedomain.CategoryReceivedRepresentment))
}

func TestRunJobTreatsDeadlineAsSoftStop(t *testing.T) {
	f := newFixture(t)

	err := f.sched.runJob(context.Background(), "timeout_job", 5*time.Millisecond, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	assert.NoError(t, err)

	err = f.sched.runJob(context.Background(), "failing_job", time.Second, func(context.Context) error {
		return errors.New("boom")
	})
	assert.EqualError(t, err, "boom")
}

func TestSchedulerDisabledWithoutDropDir(t *testing.T) {
	var nilScheduler *Scheduler
	assert.False(t, nilScheduler.Enabled())
	assert.False(t, (&Scheduler{}).Enabled())

	cfg := ProvideConfig(config.Config{Ingest: config.IngestConfig{DropDir: " /var/drop "}}).withDefaults()
	assert.Equal(t, "/var/drop", cfg.DropDir)
	assert.Equal(t, time.Minute, cfg.RunInterval)
}
