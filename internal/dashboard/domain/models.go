package domain

import (
	"time"

	disputedomain "github.com/smallbiznis/disputeops/internal/dispute/domain"
)

const (
	ModeMonthly = "monthly"
	ModeYearly  = "yearly"

	AllBanksLabel = "All Banks"
	UnknownBank   = "Unknown"
)

// PerCategoryAggregate holds the count and sums of each category over one
// window, plus the totals across categories.
type PerCategoryAggregate struct {
	ReceivedChargebacks    disputedomain.Totals `json:"received_chargebacks"`
	IssuedRepresentments   disputedomain.Totals `json:"issued_representments"`
	IssuedChargebacks      disputedomain.Totals `json:"issued_chargebacks"`
	ReceivedRepresentments disputedomain.Totals `json:"received_representments"`
	TotalCount             int64                `json:"total_count"`
	TotalAmount            disputedomain.Amount `json:"total_amount"`
}

// For returns the totals stored for category.
func (a PerCategoryAggregate) For(category disputedomain.Category) disputedomain.Totals {
	switch category {
	case disputedomain.CategoryReceivedChargeback:
		return a.ReceivedChargebacks
	case disputedomain.CategoryIssuedRepresentment:
		return a.IssuedRepresentments
	case disputedomain.CategoryIssuedChargeback:
		return a.IssuedChargebacks
	case disputedomain.CategoryReceivedRepresentment:
		return a.ReceivedRepresentments
	default:
		return disputedomain.Totals{}
	}
}

// Set stores totals for category and recomputes the cross-category totals.
func (a *PerCategoryAggregate) Set(category disputedomain.Category, totals disputedomain.Totals) {
	switch category {
	case disputedomain.CategoryReceivedChargeback:
		a.ReceivedChargebacks = totals
	case disputedomain.CategoryIssuedRepresentment:
		a.IssuedRepresentments = totals
	case disputedomain.CategoryIssuedChargeback:
		a.IssuedChargebacks = totals
	case disputedomain.CategoryReceivedRepresentment:
		a.ReceivedRepresentments = totals
	default:
		return
	}

	a.TotalCount = 0
	a.TotalAmount = disputedomain.Amount{}
	for _, c := range disputedomain.Categories {
		t := a.For(c)
		a.TotalCount += t.Count
		a.TotalAmount = a.TotalAmount.Add(t.AmountPresented)
	}
}

type DailyVolumes struct {
	Date string `json:"date"`
	PerCategoryAggregate
}

type MatchingRecords struct {
	ReceivedChargebacksLinked int64   `json:"received_chargebacks_linked"`
	ReceivedChargebacksTotal  int64   `json:"received_chargebacks_total"`
	ReceivedChargebacksRate   float64 `json:"received_chargebacks_rate"`
	IssuedChargebacksLinked   int64   `json:"issued_chargebacks_linked"`
	IssuedChargebacksTotal    int64   `json:"issued_chargebacks_total"`
	IssuedChargebacksRate     float64 `json:"issued_chargebacks_rate"`
	StartDate                 string  `json:"start_date,omitempty"`
	EndDate                   string  `json:"end_date,omitempty"`
}

// TodayCase is a record tagged with the category it was read from.
type TodayCase struct {
	Category disputedomain.Category `json:"category"`
	*disputedomain.Record
}

type TodayCases struct {
	Date      string      `json:"date"`
	Cases     []TodayCase `json:"cases"`
	Total     int         `json:"total"`
	Limit     int         `json:"limit"`
	Offset    int         `json:"offset"`
	Truncated bool        `json:"truncated"`
}

type TopIssuer struct {
	IssuerBank  string               `json:"issuer_bank"`
	DisplayName string               `json:"display_name"`
	Volume      disputedomain.Amount `json:"volume"`
	Count       int64                `json:"count"`
}

type TopAcquirer struct {
	AcquirerBank      string               `json:"acquirer_bank"`
	AcquirerReference string               `json:"acquirer_reference"`
	Volume            disputedomain.Amount `json:"volume"`
	Count             int64                `json:"count"`
}

type TopIssuers struct {
	Date    string      `json:"date"`
	Issuers []TopIssuer `json:"issuers"`
}

type TopAcquirers struct {
	Date      string        `json:"date"`
	Acquirers []TopAcquirer `json:"acquirers"`
}

// VolumePoint is one day of the volume history series.
type VolumePoint struct {
	Date                   string `json:"date"`
	ReceivedChargebacks    int64  `json:"received_chargebacks"`
	IssuedRepresentments   int64  `json:"issued_representments"`
	IssuedChargebacks      int64  `json:"issued_chargebacks"`
	ReceivedRepresentments int64  `json:"received_representments"`
	Total                  int64  `json:"total"`
}

type VolumeHistory struct {
	Days   int           `json:"days"`
	Points []VolumePoint `json:"points"`
}

type AnnualStatistics struct {
	Year               int     `json:"year"`
	Bank               string  `json:"bank"`
	TotalCases         int64   `json:"total_cases"`
	PreviousTotalCases int64   `json:"previous_total_cases"`
	Trend              float64 `json:"trend"`
	PerCategoryAggregate
}

// BankCounts is the per-category record count of one bank.
type BankCounts struct {
	Bank                   string `json:"bank"`
	ReceivedChargebacks    int64  `json:"received_chargebacks"`
	IssuedRepresentments   int64  `json:"issued_representments"`
	IssuedChargebacks      int64  `json:"issued_chargebacks"`
	ReceivedRepresentments int64  `json:"received_representments"`
	Total                  int64  `json:"total"`
}

// Add increments the count of category by n.
func (b *BankCounts) Add(category disputedomain.Category, n int64) {
	switch category {
	case disputedomain.CategoryReceivedChargeback:
		b.ReceivedChargebacks += n
	case disputedomain.CategoryIssuedRepresentment:
		b.IssuedRepresentments += n
	case disputedomain.CategoryIssuedChargeback:
		b.IssuedChargebacks += n
	case disputedomain.CategoryReceivedRepresentment:
		b.ReceivedRepresentments += n
	default:
		return
	}
	b.Total += n
}

type BankDistribution struct {
	Year      int          `json:"year"`
	Issuers   []BankCounts `json:"issuers"`
	Acquirers []BankCounts `json:"acquirers"`
}

// CategoryTrend is the percentage change of each category count.
type CategoryTrend struct {
	ReceivedChargebacks    float64 `json:"received_chargebacks"`
	IssuedRepresentments   float64 `json:"issued_representments"`
	IssuedChargebacks      float64 `json:"issued_chargebacks"`
	ReceivedRepresentments float64 `json:"received_representments"`
	Total                  float64 `json:"total"`
}

// PeriodStatistics is one entry of the monthly or yearly series. Month is
// zero in yearly mode.
type PeriodStatistics struct {
	Year  int           `json:"year"`
	Month int           `json:"month,omitempty"`
	Trend CategoryTrend `json:"trend"`
	PerCategoryAggregate
}

type PeriodSeries struct {
	Year    int                `json:"year"`
	Mode    string             `json:"mode"`
	Periods []PeriodStatistics `json:"periods"`
}

type CategoryRecords struct {
	Date                   string                  `json:"date"`
	ReceivedChargebacks    []*disputedomain.Record `json:"received_chargebacks"`
	IssuedRepresentments   []*disputedomain.Record `json:"issued_representments"`
	IssuedChargebacks      []*disputedomain.Record `json:"issued_chargebacks"`
	ReceivedRepresentments []*disputedomain.Record `json:"received_representments"`
}

// Set stores the records of category, never leaving a nil slice.
func (c *CategoryRecords) Set(category disputedomain.Category, records []*disputedomain.Record) {
	if records == nil {
		records = []*disputedomain.Record{}
	}
	switch category {
	case disputedomain.CategoryReceivedChargeback:
		c.ReceivedChargebacks = records
	case disputedomain.CategoryIssuedRepresentment:
		c.IssuedRepresentments = records
	case disputedomain.CategoryIssuedChargeback:
		c.IssuedChargebacks = records
	case disputedomain.CategoryReceivedRepresentment:
		c.ReceivedRepresentments = records
	}
}

// FormatDate renders a calendar date the way the API accepts it.
func FormatDate(t time.Time) string {
	return t.Format(time.DateOnly)
}
