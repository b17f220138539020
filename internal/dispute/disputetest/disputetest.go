// Package disputetest builds in-memory dispute stores for package tests.
package disputetest

import (
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/disputeops/internal/dispute/domain"
	"github.com/smallbiznis/disputeops/pkg/db"
	"gorm.io/gorm"
)

var (
	nodeOnce sync.Once
	node     *snowflake.Node
)

// Node returns a snowflake node shared by the test binary.
func Node(t testing.TB) *snowflake.Node {
	t.Helper()
	nodeOnce.Do(func() {
		n, err := snowflake.NewNode(1)
		if err != nil {
			panic(err)
		}
		node = n
	})
	return node
}

// NewDB opens a SQLite database holding the four category tables.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	conn, err := db.NewTest()
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	for _, category := range domain.Categories {
		if err := conn.Table(category.Table()).AutoMigrate(&domain.Record{}); err != nil {
			t.Fatalf("migrate %s: %v", category.Table(), err)
		}
	}
	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return conn
}

// Record returns a record processed at processedAt with the given presented
// amount and a fixed composite key.
func Record(processedAt time.Time, amount string) *domain.Record {
	value := domain.NewAmount(decimal.RequireFromString(amount))
	return &domain.Record{
		FileReference:     "FILE-TEST",
		ProcessedAt:       processedAt.UTC(),
		AffiliationNumber: "1234567",
		MerchantName:      "TEST MERCHANT",
		Agency:            "00123",
		Account:           "000123456789",
		AuthorizationCode: "AUTH01",
		IssuerBank:        "30004",
		IssuerName:        "BNP PARIBAS",
		AcquirerBank:      "WORLDLINE",
		AcquirerReference: "WL001",
		AmountPresented:   value,
		AmountOriginal:    value,
		SettlementStatus:  "pending",
	}
}

// Insert stores records in category, assigning ids where missing.
func Insert(t testing.TB, conn *gorm.DB, category domain.Category, records ...*domain.Record) {
	t.Helper()
	if len(records) == 0 {
		return
	}
	gen := Node(t)
	for _, record := range records {
		if record.ID == 0 {
			record.ID = gen.Generate()
		}
		if record.CreatedAt.IsZero() {
			record.CreatedAt = time.Now().UTC()
		}
	}
	if err := conn.Table(category.Table()).Create(records).Error; err != nil {
		t.Fatalf("insert %s: %v", category.Table(), err)
	}
}
