package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/disputeops/internal/dispute/domain"
)

var (
	ErrMissingColumn = errors.New("missing_column")
	ErrEmptyFile     = errors.New("empty_file")
)

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.DateOnly,
}

var requiredColumns = []string{"processed_at", "amount_presented"}

// column setters keyed by the header names upstream batch files use.
var columns = map[string]func(r *domain.Record, value string) error{
	"file_reference":     func(r *domain.Record, v string) error { r.FileReference = v; return nil },
	"affiliation_number": func(r *domain.Record, v string) error { r.AffiliationNumber = v; return nil },
	"merchant_name":      func(r *domain.Record, v string) error { r.MerchantName = v; return nil },
	"agency":             func(r *domain.Record, v string) error { r.Agency = v; return nil },
	"account":            func(r *domain.Record, v string) error { r.Account = v; return nil },
	"invoice_reference":  func(r *domain.Record, v string) error { r.InvoiceReference = v; return nil },
	"cardholder":         func(r *domain.Record, v string) error { r.Cardholder = v; return nil },
	"operation_code":     func(r *domain.Record, v string) error { r.OperationCode = v; return nil },
	"operation_label":    func(r *domain.Record, v string) error { r.OperationLabel = v; return nil },
	"card_number":        func(r *domain.Record, v string) error { r.CardNumber = v; return nil },
	"card_network":       func(r *domain.Record, v string) error { r.CardNetwork = v; return nil },
	"card_type":          func(r *domain.Record, v string) error { r.CardType = v; return nil },
	"authorization_code": func(r *domain.Record, v string) error { r.AuthorizationCode = v; return nil },
	"issuer_bank":        func(r *domain.Record, v string) error { r.IssuerBank = v; return nil },
	"issuer_name":        func(r *domain.Record, v string) error { r.IssuerName = v; return nil },
	"acquirer_bank":      func(r *domain.Record, v string) error { r.AcquirerBank = v; return nil },
	"acquirer_reference": func(r *domain.Record, v string) error { r.AcquirerReference = v; return nil },
	"reason_code":        func(r *domain.Record, v string) error { r.ReasonCode = v; return nil },
	"reason_label":       func(r *domain.Record, v string) error { r.ReasonLabel = v; return nil },
	"settlement_status":  func(r *domain.Record, v string) error { r.SettlementStatus = v; return nil },
	"processed_at": func(r *domain.Record, v string) error {
		t, err := parseTime(v)
		if err != nil {
			return err
		}
		r.ProcessedAt = t
		return nil
	},
	"transaction_at": func(r *domain.Record, v string) error {
		if v == "" {
			return nil
		}
		t, err := parseTime(v)
		if err != nil {
			return err
		}
		r.TransactionAt = &t
		return nil
	},
	"amount_presented": func(r *domain.Record, v string) error {
		d, err := decimal.NewFromString(v)
		if err != nil {
			return fmt.Errorf("could not parse amount '%s': %w", v, err)
		}
		r.AmountPresented = domain.NewAmount(d)
		return nil
	},
	"amount_original": func(r *domain.Record, v string) error {
		if v == "" {
			return nil
		}
		d, err := decimal.NewFromString(v)
		if err != nil {
			return fmt.Errorf("could not parse amount '%s': %w", v, err)
		}
		r.AmountOriginal = domain.NewAmount(d)
		return nil
	},
	"merchant_cancellation": func(r *domain.Record, v string) error {
		if v == "" {
			return nil
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("could not parse merchant_cancellation '%s': %w", v, err)
		}
		r.MerchantCancellation = b
		return nil
	},
}

// ReadRecords parses a header-led CSV batch file. Unknown columns are
// ignored. A missing original amount takes the presented amount.
func ReadRecords(r io.Reader) ([]*domain.Record, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, ErrEmptyFile
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))] = i
	}
	for _, name := range requiredColumns {
		if _, ok := index[name]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, name)
		}
	}

	var records []*domain.Record
	line := 1
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("error reading line %d: %w", line, err)
		}

		record := &domain.Record{}
		for name, i := range index {
			set, ok := columns[name]
			if !ok || i >= len(row) {
				continue
			}
			if err := set(record, strings.TrimSpace(row[i])); err != nil {
				return nil, fmt.Errorf("line %d column %s: %w", line, name, err)
			}
		}
		if record.AmountOriginal.IsZero() {
			record.AmountOriginal = record.AmountPresented
		}
		records = append(records, record)
	}
	return records, nil
}

func parseTime(value string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("could not parse time '%s'", value)
}
