package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Record is the shared shape of every dispute category row.
type Record struct {
	ID                   snowflake.ID    `gorm:"primaryKey" json:"id"`
	FileReference        string          `gorm:"column:file_reference;type:text" json:"file_reference"`
	ProcessedAt          time.Time       `gorm:"column:processed_at;not null" json:"processed_at"`
	AffiliationNumber    string          `gorm:"column:affiliation_number;type:text" json:"affiliation_number"`
	MerchantName         string          `gorm:"column:merchant_name;type:text" json:"merchant_name"`
	Agency               string          `gorm:"column:agency;type:text" json:"agency"`
	Account              string          `gorm:"column:account;type:text" json:"account"`
	InvoiceReference     string          `gorm:"column:invoice_reference;type:text" json:"invoice_reference,omitempty"`
	Cardholder           string          `gorm:"column:cardholder;type:text" json:"cardholder,omitempty"`
	OperationCode        string          `gorm:"column:operation_code;type:text" json:"operation_code,omitempty"`
	OperationLabel       string          `gorm:"column:operation_label;type:text" json:"operation_label,omitempty"`
	CardNumber           string          `gorm:"column:card_number;type:text" json:"card_number,omitempty"`
	CardNetwork          string          `gorm:"column:card_network;type:text" json:"card_network,omitempty"`
	CardType             string          `gorm:"column:card_type;type:text" json:"card_type,omitempty"`
	TransactionAt        *time.Time      `gorm:"column:transaction_at" json:"transaction_at,omitempty"`
	AuthorizationCode    string          `gorm:"column:authorization_code;type:text" json:"authorization_code"`
	IssuerBank           string          `gorm:"column:issuer_bank;type:text" json:"issuer_bank"`
	IssuerName           string          `gorm:"column:issuer_name;type:text" json:"issuer_name,omitempty"`
	AcquirerBank         string          `gorm:"column:acquirer_bank;type:text" json:"acquirer_bank"`
	AcquirerReference    string          `gorm:"column:acquirer_reference;type:text" json:"acquirer_reference"`
	AmountPresented      Amount          `gorm:"column:amount_presented;type:decimal(12,2);not null;default:0" json:"amount_presented"`
	AmountOriginal       Amount          `gorm:"column:amount_original;type:decimal(12,2);not null;default:0" json:"amount_original"`
	ReasonCode           string          `gorm:"column:reason_code;type:text" json:"reason_code,omitempty"`
	ReasonLabel          string          `gorm:"column:reason_label;type:text" json:"reason_label,omitempty"`
	SettlementStatus     string          `gorm:"column:settlement_status;type:text" json:"settlement_status,omitempty"`
	MerchantCancellation bool            `gorm:"column:merchant_cancellation;not null;default:false" json:"merchant_cancellation"`
	CreatedAt            time.Time       `gorm:"column:created_at;not null" json:"created_at"`
}

// Key returns the composite match key of the record.
func (r Record) Key() CompositeKey {
	return CompositeKey{
		AffiliationNumber: r.AffiliationNumber,
		Agency:            r.Agency,
		Account:           r.Account,
		AuthorizationCode: r.AuthorizationCode,
		AcquirerReference: r.AcquirerReference,
	}
}

// Validate checks the fields every stored record must carry. Blank key
// parts are rejected so keyless records never link through empty strings.
func (r Record) Validate() error {
	if r.ProcessedAt.IsZero() {
		return ErrInvalidRecord
	}
	if r.AmountPresented.IsNegative() || r.AmountOriginal.IsNegative() {
		return ErrInvalidAmount
	}
	required := []struct {
		name  string
		value string
	}{
		{"file_reference", r.FileReference},
		{"merchant_name", r.MerchantName},
		{"affiliation_number", r.AffiliationNumber},
		{"agency", r.Agency},
		{"account", r.Account},
		{"authorization_code", r.AuthorizationCode},
		{"acquirer_reference", r.AcquirerReference},
	}
	for _, field := range required {
		if strings.TrimSpace(field.value) == "" {
			return fmt.Errorf("%w: %s is required", ErrInvalidRecord, field.name)
		}
	}
	return nil
}

// CompositeKey links a chargeback to its representment when all five parts
// are equal.
type CompositeKey struct {
	AffiliationNumber string `gorm:"column:affiliation_number" json:"affiliation_number"`
	Agency            string `gorm:"column:agency" json:"agency"`
	Account           string `gorm:"column:account" json:"account"`
	AuthorizationCode string `gorm:"column:authorization_code" json:"authorization_code"`
	AcquirerReference string `gorm:"column:acquirer_reference" json:"acquirer_reference"`
}

// AllBanks disables the acquirer bank filter.
const AllBanks = "all"

// Filter narrows a category read.
type Filter struct {
	Window       *Window
	AcquirerBank string
	Limit        int
	Offset       int
	Cursor       *RecordCursor
}

// BankFilter returns the normalized acquirer bank, or "" when unfiltered.
func (f Filter) BankFilter() string {
	bank := strings.TrimSpace(f.AcquirerBank)
	if bank == "" || strings.EqualFold(bank, AllBanks) {
		return ""
	}
	return bank
}

// RecordCursor positions a descending processed_at scan.
type RecordCursor struct {
	ID          snowflake.ID
	ProcessedAt time.Time
}

// Totals is the count and presented/original sums of a filtered read.
type Totals struct {
	Count           int64  `gorm:"column:count" json:"count"`
	AmountPresented Amount `gorm:"column:amount_presented" json:"amount"`
	AmountOriginal  Amount `gorm:"column:amount_original" json:"amount_original"`
}

// Add returns the component-wise sum of t and other.
func (t Totals) Add(other Totals) Totals {
	return Totals{
		Count:           t.Count + other.Count,
		AmountPresented: t.AmountPresented.Add(other.AmountPresented),
		AmountOriginal:  t.AmountOriginal.Add(other.AmountOriginal),
	}
}

// Grouping selects the columns a GroupTotals read groups by.
type Grouping string

const (
	GroupByIssuer   Grouping = "issuer"
	GroupByAcquirer Grouping = "acquirer"
)

// GroupTotal aggregates one (bank, attribute) group within a category.
type GroupTotal struct {
	Bank      string          `gorm:"column:bank"`
	Attribute string          `gorm:"column:attribute"`
	Count     int64           `gorm:"column:count"`
	Volume    decimal.Decimal `gorm:"column:volume"`
}
